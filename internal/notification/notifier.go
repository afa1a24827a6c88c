// Package notification delivers decision reports and scheduled broadcasts to
// external channels (Telegram, generic webhooks, or the log).
package notification

import (
	"context"
	"errors"
	"log/slog"
)

// AlertLevel is the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert is one outbound message. ImagePath, when set, is a local file sent
// alongside the text by channels that support images.
type Alert struct {
	Level     AlertLevel `json:"level"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Link      string     `json:"link,omitempty"`
	ImagePath string     `json:"image_path,omitempty"`
}

// Notifier delivers alerts.
type Notifier interface {
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier writes alerts to the structured log. Used when no channel is configured.
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	slog.Info("notify",
		"level", alert.Level, "title", alert.Title,
		"message", alert.Message, "image", alert.ImagePath)
	return nil
}

// Fanout sends every alert to all notifiers and joins their errors.
type Fanout []Notifier

func (f Fanout) Send(ctx context.Context, alert Alert) error {
	var errs []error
	for _, n := range f {
		if err := n.Send(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
