// Package events posts best-effort notifications to a webhook. Emission
// failures are logged and swallowed, never propagated to callers.
package events

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Type identifies the kind of event.
type Type string

const (
	EnrichmentCompleted Type = "enrichment_completed"
	EnrichmentFailed    Type = "enrichment_failed"
	CacheCleared        Type = "cache_cleared"
	ExportRequested     Type = "export_requested"
	ErrorOccurred       Type = "error_occurred"
)

// Event is a single notification payload.
type Event struct {
	Type      Type           `json:"type"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Sink emits events. The zero-URL sink is a no-op.
type Sink struct {
	webhookURL string
	client     *http.Client
}

// NewSink creates a Sink posting to webhookURL. An empty URL disables emission.
func NewSink(webhookURL string) *Sink {
	return &Sink{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

// Emit posts the event. Fire-and-forget: any failure is logged and dropped.
func (s *Sink) Emit(ctx context.Context, evtType Type, details map[string]any) {
	if s == nil || s.webhookURL == "" {
		return
	}

	evt := Event{Type: evtType, Details: details, Timestamp: time.Now().UTC()}
	body, err := json.Marshal(evt)
	if err != nil {
		zap.L().Warn("events: marshal failed", zap.String("type", string(evtType)), zap.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		zap.L().Warn("events: create request failed", zap.String("type", string(evtType)), zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		zap.L().Warn("events: emit failed", zap.String("type", string(evtType)), zap.Error(err))
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		zap.L().Warn("events: webhook rejected event",
			zap.String("type", string(evtType)),
			zap.Int("status", resp.StatusCode),
		)
	}
}
