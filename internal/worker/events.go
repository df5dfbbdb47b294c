// Package worker publishes ingestion lifecycle events to NSQ so downstream
// consumers can react to corpus changes without polling.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"reactor/backend/internal/corpus"
	"reactor/backend/internal/middleware"
)

const (
	TopicIngestCompleted = "ingest.completed"
	TopicIngestFailed    = "ingest.failed"
)

// EventPublisher is satisfied by *nsq.Producer.
type EventPublisher interface {
	Publish(topic string, body []byte) error
}

// NoopPublisher drops events. Used when no nsqd is configured and in tests.
type NoopPublisher struct{}

func (NoopPublisher) Publish(string, []byte) error { return nil }

type IngestEvent struct {
	DocumentID    string    `json:"document_id,omitempty"`
	Source        string    `json:"source"`
	Title         string    `json:"title,omitempty"`
	Version       int       `json:"version,omitempty"`
	Chunks        int       `json:"chunks,omitempty"`
	Error         string    `json:"error,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// IngestEvents emits completion and failure events after ingestion. Publishing
// is best effort: a broker error is logged and never fails the ingest itself.
type IngestEvents struct {
	pub    EventPublisher
	logger *slog.Logger
}

func NewIngestEvents(pub EventPublisher, logger *slog.Logger) *IngestEvents {
	if pub == nil {
		pub = NoopPublisher{}
	}
	return &IngestEvents{pub: pub, logger: logger}
}

func (e *IngestEvents) Completed(ctx context.Context, doc *corpus.Document, chunks int) {
	e.emit(ctx, TopicIngestCompleted, IngestEvent{
		DocumentID: doc.ID,
		Source:     doc.Source,
		Title:      doc.Title,
		Version:    doc.Version,
		Chunks:     chunks,
	})
}

func (e *IngestEvents) Failed(ctx context.Context, source string, cause error) {
	e.emit(ctx, TopicIngestFailed, IngestEvent{
		Source: source,
		Error:  cause.Error(),
	})
}

func (e *IngestEvents) emit(ctx context.Context, topic string, event IngestEvent) {
	event.CorrelationID = middleware.GetCorrelationID(ctx)
	event.OccurredAt = time.Now().UTC()

	body, err := json.Marshal(event)
	if err != nil {
		e.logger.ErrorContext(ctx, "failed to encode ingest event", "topic", topic, "error", err)
		return
	}
	if err := e.pub.Publish(topic, body); err != nil {
		e.logger.ErrorContext(ctx, "failed to publish ingest event", "topic", topic, "error", err)
	}
}
