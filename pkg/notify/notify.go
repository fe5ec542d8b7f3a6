// Package notify delivers success/failure messages after orchestration.
// Delivery is best-effort: a failed send is logged and never fails the
// action that triggered it.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Message is one notification payload.
type Message struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Notifier sends a message to one channel.
type Notifier interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// LogNotifier writes notifications to the log. Used as the default
// channel and in dry runs.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Name() string {
	return "log"
}

func (n *LogNotifier) Send(ctx context.Context, msg Message) error {
	n.logger.Info("notification",
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body))
	return nil
}

// WebhookNotifier posts the message as JSON to a configured endpoint.
// Covers chat integrations that accept incoming webhooks.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a webhook notifier for the given URL.
func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (n *WebhookNotifier) Name() string {
	return "webhook"
}

func (n *WebhookNotifier) Send(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Multi fans one message out to several channels. Failures are logged
// per channel; Send itself never returns an error.
type Multi struct {
	notifiers []Notifier
	logger    *zap.Logger
}

// NewMulti creates a fan-out notifier.
func NewMulti(logger *zap.Logger, notifiers ...Notifier) *Multi {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Multi{notifiers: notifiers, logger: logger}
}

func (m *Multi) Name() string {
	return "multi"
}

func (m *Multi) Send(ctx context.Context, msg Message) error {
	for _, n := range m.notifiers {
		if err := n.Send(ctx, msg); err != nil {
			m.logger.Warn("notification delivery failed",
				zap.String("channel", n.Name()),
				zap.String("subject", msg.Subject),
				zap.Error(err))
		}
	}
	return nil
}
