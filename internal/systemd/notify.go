// Package systemd reports daemon lifecycle to the service manager.
package systemd

import (
	"context"
	"log/slog"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Notifier sends sd_notify messages. Without NOTIFY_SOCKET every call is
// a no-op.
type Notifier struct {
	logger *slog.Logger
	notify func(unsetEnv bool, state string) (bool, error)
	cancel context.CancelFunc
	done   chan struct{}
}

// NewNotifier creates a notifier.
func NewNotifier(logger *slog.Logger) *Notifier {
	return &Notifier{logger: logger, notify: daemon.SdNotify}
}

// Ready reports that startup finished and starts the watchdog heartbeat
// when the unit configures WatchdogSec.
func (n *Notifier) Ready() {
	n.send(daemon.SdNotifyReady)

	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		n.logger.Warn("Failed to read watchdog settings", "error", err)
		return
	}
	if interval > 0 {
		n.startWatchdog(interval / 2)
	}
}

// Status sets the free-form unit status line.
func (n *Notifier) Status(status string) {
	n.send("STATUS=" + status)
}

// Stopping reports shutdown and stops the watchdog heartbeat.
func (n *Notifier) Stopping() {
	if n.cancel != nil {
		n.cancel()
		<-n.done
		n.cancel = nil
	}
	n.send(daemon.SdNotifyStopping)
}

func (n *Notifier) startWatchdog(every time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel
	n.done = make(chan struct{})
	n.logger.Debug("Watchdog enabled", "interval", every)

	go func() {
		defer close(n.done)
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n.send(daemon.SdNotifyWatchdog)
			}
		}
	}()
}

func (n *Notifier) send(state string) {
	sent, err := n.notify(false, state)
	if err != nil {
		n.logger.Warn("sd_notify failed", "state", state, "error", err)
		return
	}
	if sent {
		n.logger.Debug("sd_notify sent", "state", state)
	}
}
