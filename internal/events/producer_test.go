package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/Kowal031/work-log/internal/domain"
)

type stubWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *stubWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *stubWriter) Close() error {
	w.closed = true
	return nil
}

func TestProducerPublish(t *testing.T) {
	writer := &stubWriter{}
	producer := NewProducerWithWriter(writer)

	occurred := time.Date(2026, time.January, 28, 17, 30, 0, 0, time.UTC)
	producer.Publish(context.Background(), domain.EntryEvent{
		Type:       domain.EventEntryStopped,
		UserID:     "user-1",
		TaskID:     "task-1",
		EntryID:    "entry-1",
		OccurredAt: occurred,
	})

	require.Len(t, writer.messages, 1)
	msg := writer.messages[0]
	require.Equal(t, []byte("user-1"), msg.Key)
	require.Len(t, msg.Headers, 1)
	require.Equal(t, "event-type", msg.Headers[0].Key)
	require.Equal(t, []byte(domain.EventEntryStopped), msg.Headers[0].Value)

	var envelope map[string]string
	require.NoError(t, json.Unmarshal(msg.Value, &envelope))
	require.Equal(t, domain.EventEntryStopped, envelope["type"])
	require.Equal(t, "entry-1", envelope["entry_id"])
	require.Equal(t, "2026-01-28T17:30:00.000Z", envelope["occurred_at"])
}

func TestProducerPublishSwallowsWriteErrors(t *testing.T) {
	writer := &stubWriter{err: errors.New("broker down")}
	producer := NewProducerWithWriter(writer)

	// Must not panic or propagate; delivery is best-effort.
	producer.Publish(context.Background(), domain.EntryEvent{
		Type:    domain.EventEntryCreated,
		UserID:  "user-1",
		EntryID: "entry-1",
	})
	require.Empty(t, writer.messages)
}

func TestProducerClose(t *testing.T) {
	writer := &stubWriter{}
	producer := NewProducerWithWriter(writer)
	require.NoError(t, producer.Close())
	require.True(t, writer.closed)
}
