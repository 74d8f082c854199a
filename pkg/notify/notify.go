// Package notify shows desktop notifications.
package notify

import (
	"log/slog"

	"github.com/gen2brain/beeep"
)

const appName = "vocAIyze"

// Notifier sends desktop notifications.
type Notifier struct {
	enabled bool
	send    func(title, message, icon string) error
	logger  *slog.Logger
}

// New creates a Notifier.
func New(enabled bool, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		enabled: enabled,
		send: func(title, message, icon string) error {
			return beeep.Notify(title, message, icon)
		},
		logger: logger,
	}
}

// SetEnabled turns notifications on or off.
func (n *Notifier) SetEnabled(enabled bool) {
	n.enabled = enabled
}

// Error shows a failure notification.
func (n *Notifier) Error(msg string) {
	n.notify("Error", msg)
}

// Info shows an informational notification.
func (n *Notifier) Info(msg string) {
	n.notify("", msg)
}

func (n *Notifier) notify(title, message string) {
	if !n.enabled {
		return
	}
	if len(message) > 100 {
		message = message[:100] + "..."
	}
	full := appName
	if title != "" {
		full += ": " + title
	}
	if err := n.send(full, message, ""); err != nil {
		n.logger.Debug("notification failed", "error", err)
	}
}
