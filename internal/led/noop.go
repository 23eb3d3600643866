package led

import "log/slog"

// noop implements Controller for boards without a usable LED.
type noop struct {
	logger *slog.Logger
}

func newNoop(logger *slog.Logger) *noop {
	return &noop{logger: logger}
}

// Set logs the request and does nothing else.
func (n *noop) Set(ledType string, enabled bool, pattern string) error {
	n.logger.Debug("LED control not available (no-op)",
		"led_type", ledType,
		"enabled", enabled,
		"pattern", pattern)
	return nil
}

// Available returns an empty list.
func (n *noop) Available() []string {
	return []string{}
}

// Patterns returns an empty list.
func (n *noop) Patterns() []string {
	return []string{}
}
