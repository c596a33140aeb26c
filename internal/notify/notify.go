// Package notify publishes the completion notice a wrangler emits after its
// outputs are persisted. The notice is the downstream trigger for the next
// pipeline stage, so it is sent exactly once per successful run and never on
// failure.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Notice is the completion message.
type Notice struct {
	Module     string `json:"module"`
	Checkpoint int    `json:"checkpoint"`
	RunID      string `json:"run_id"`
	SentAt     string `json:"sent_at"`
}

// Notifier publishes completion notices.
type Notifier interface {
	Publish(ctx context.Context, n Notice) error
}

// Log is a Notifier that only records the notice, for deployments where the
// orchestrator polls outputs instead of listening for notices.
type Log struct {
	Logger *logrus.Logger
}

// Publish logs the notice.
func (l Log) Publish(_ context.Context, n Notice) error {
	l.Logger.WithFields(logrus.Fields{
		"module":     n.Module,
		"checkpoint": n.Checkpoint,
		"run_id":     n.RunID,
	}).Info("completion notice")
	return nil
}

// Webhook POSTs notices to an orchestrator endpoint.
type Webhook struct {
	URL string
	hc  *http.Client
}

// NewWebhook builds a webhook notifier with a bounded request timeout.
func NewWebhook(url string, timeout time.Duration) (*Webhook, error) {
	if url == "" {
		return nil, fmt.Errorf("notify: webhook URL is required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Webhook{URL: url, hc: &http.Client{Timeout: timeout}}, nil
}

// Publish sends the notice. SentAt is stamped here so callers only describe
// the event.
func (w *Webhook) Publish(ctx context.Context, n Notice) error {
	n.SentAt = time.Now().UTC().Format(time.RFC3339)
	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("notify: marshal notice: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.hc.Do(req)
	if err != nil {
		return fmt.Errorf("notify: publish: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notify: endpoint returned %s", resp.Status)
	}
	return nil
}
