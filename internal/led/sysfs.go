package led

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
)

// SysfsRoot is the kernel's LED class directory.
const SysfsRoot = "/sys/class/leds"

// sysfs implements Controller through the Linux LED class interface.
type sysfs struct {
	root string
	leds map[string]string // LED type -> sysfs name
}

func newSysfs(root string, leds map[string]string) *sysfs {
	return &sysfs{root: root, leds: leds}
}

// Set writes the LED's trigger and brightness.
func (s *sysfs) Set(ledType string, enabled bool, pattern string) error {
	name, ok := s.leds[ledType]
	if !ok {
		return fmt.Errorf("LED type %q not supported on this board", ledType)
	}

	ledPath := filepath.Join(s.root, name)
	if _, err := os.Stat(ledPath); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("LED %q not found at %s", ledType, ledPath)
	}

	if pattern != "" {
		trigger := pattern
		switch pattern {
		case "solid":
			// Manual control; brightness below keeps it lit.
			trigger = "none"
		case "blink", "heartbeat":
			trigger = "heartbeat"
		}
		if err := os.WriteFile(filepath.Join(ledPath, "trigger"), []byte(trigger), 0o644); err != nil {
			return fmt.Errorf("failed to set LED trigger: %w", err)
		}
	}

	brightness := "0"
	if enabled {
		brightness = "1"
	}
	if err := os.WriteFile(filepath.Join(ledPath, "brightness"), []byte(brightness), 0o644); err != nil {
		return fmt.Errorf("failed to set LED brightness: %w", err)
	}
	return nil
}

// Available returns the LED types mapped for this board, sorted.
func (s *sysfs) Available() []string {
	types := make([]string, 0, len(s.leds))
	for t := range s.leds {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// Patterns returns the supported patterns.
func (s *sysfs) Patterns() []string {
	return []string{"solid", "blink", "heartbeat"}
}
