package notify

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// TerminalNotifier prints notifications to the terminal.
type TerminalNotifier struct {
	out     io.Writer
	enabled bool
}

// NewTerminalNotifier creates a terminal notification channel.
func NewTerminalNotifier() *TerminalNotifier {
	return &TerminalNotifier{out: os.Stdout, enabled: true}
}

// Name returns the name of the notifier.
func (t *TerminalNotifier) Name() string {
	return "terminal"
}

// IsEnabled returns whether the notifier is enabled.
func (t *TerminalNotifier) IsEnabled() bool {
	return t.enabled
}

// Send prints the notification with a type-dependent color.
func (t *TerminalNotifier) Send(ctx context.Context, n Notification) error {
	var header *color.Color
	switch n.Type {
	case NotificationTrade:
		header = color.New(color.FgGreen, color.Bold)
	case NotificationRisk:
		header = color.New(color.FgYellow, color.Bold)
	case NotificationError:
		header = color.New(color.FgRed, color.Bold)
	default:
		header = color.New(color.FgCyan)
	}

	if _, err := header.Fprintln(t.out, n.Title); err != nil {
		return err
	}
	if n.Message != "" {
		if _, err := fmt.Fprintln(t.out, n.Message); err != nil {
			return err
		}
	}
	return nil
}
