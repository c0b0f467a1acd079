// Package systemd reports service lifecycle to systemd via sd_notify.
package systemd

import (
	"log/slog"
	"sync"

	"github.com/coreos/go-systemd/v22/daemon"
)

// NotifyFunc sends a state string to the service manager. It mirrors
// daemon.SdNotify: sent is false when no notification socket is set.
type NotifyFunc func(unsetEnvironment bool, state string) (sent bool, err error)

// Notifier sends READY, RELOADING and STOPPING notifications. Outside
// systemd every call is a silent no-op.
type Notifier struct {
	notify NotifyFunc
	logger *slog.Logger

	mu       sync.Mutex
	stopping bool
}

// NewNotifier creates a Notifier backed by daemon.SdNotify.
func NewNotifier(logger *slog.Logger) *Notifier {
	return NewNotifierWithFunc(daemon.SdNotify, logger)
}

// NewNotifierWithFunc creates a Notifier with a custom send function.
func NewNotifierWithFunc(notify NotifyFunc, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{notify: notify, logger: logger}
}

// Ready reports that the HTTP server is accepting requests.
func (n *Notifier) Ready() {
	n.send(daemon.SdNotifyReady)
}

// Reloading reports a config reload in progress; Ready must follow.
func (n *Notifier) Reloading() {
	n.send(daemon.SdNotifyReloading)
}

// Stopping reports shutdown. Only the first call is sent.
func (n *Notifier) Stopping() {
	n.mu.Lock()
	if n.stopping {
		n.mu.Unlock()
		return
	}
	n.stopping = true
	n.mu.Unlock()
	n.send(daemon.SdNotifyStopping)
}

func (n *Notifier) send(state string) {
	sent, err := n.notify(false, state)
	switch {
	case err != nil:
		n.logger.Warn("Failed to notify systemd", "state", state, "error", err)
	case sent:
		n.logger.Debug("Notified systemd", "state", state)
	}
}
