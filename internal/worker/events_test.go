package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reactor/backend/internal/corpus"
	"reactor/backend/internal/middleware"
)

type capturePublisher struct {
	topic string
	body  []byte
	err   error
}

func (p *capturePublisher) Publish(topic string, body []byte) error {
	p.topic = topic
	p.body = body
	return p.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIngestEventsCompleted(t *testing.T) {
	pub := &capturePublisher{}
	events := NewIngestEvents(pub, discardLogger())

	ctx := middleware.WithCorrelationID(context.Background(), "corr-123")
	events.Completed(ctx, &corpus.Document{
		ID:      "doc-1",
		Source:  "notes/a.md",
		Title:   "Doc A",
		Version: 2,
	}, 5)

	assert.Equal(t, TopicIngestCompleted, pub.topic)

	var got IngestEvent
	require.NoError(t, json.Unmarshal(pub.body, &got))
	assert.Equal(t, "doc-1", got.DocumentID)
	assert.Equal(t, "notes/a.md", got.Source)
	assert.Equal(t, 2, got.Version)
	assert.Equal(t, 5, got.Chunks)
	assert.Equal(t, "corr-123", got.CorrelationID)
	assert.False(t, got.OccurredAt.IsZero())
}

func TestIngestEventsFailed(t *testing.T) {
	pub := &capturePublisher{}
	events := NewIngestEvents(pub, discardLogger())

	events.Failed(context.Background(), "notes/a.md", errors.New("embedder down"))

	assert.Equal(t, TopicIngestFailed, pub.topic)

	var got IngestEvent
	require.NoError(t, json.Unmarshal(pub.body, &got))
	assert.Equal(t, "notes/a.md", got.Source)
	assert.Equal(t, "embedder down", got.Error)
}

func TestIngestEventsPublishErrorIsSwallowed(t *testing.T) {
	pub := &capturePublisher{err: errors.New("nsqd unreachable")}
	events := NewIngestEvents(pub, discardLogger())

	assert.NotPanics(t, func() {
		events.Completed(context.Background(), &corpus.Document{ID: "doc-1", Source: "s"}, 1)
	})
}

func TestNewIngestEventsNilPublisher(t *testing.T) {
	events := NewIngestEvents(nil, discardLogger())

	assert.NotPanics(t, func() {
		events.Failed(context.Background(), "s", errors.New("x"))
	})
}
