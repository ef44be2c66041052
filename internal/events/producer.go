// Package events publishes entry lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"log"

	"github.com/segmentio/kafka-go"

	"github.com/Kowal031/work-log/internal/domain"
)

// Writer is the subset of kafka.Writer the producer needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer broadcasts entry lifecycle events. Delivery is best-effort:
// failures are logged and never surfaced to the request path.
type Producer struct {
	writer Writer
}

// NewProducer creates a Producer writing to the given topic.
func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
		Async:        false,
	}}
}

// NewProducerWithWriter creates a Producer over an existing writer.
func NewProducerWithWriter(writer Writer) *Producer {
	return &Producer{writer: writer}
}

type eventEnvelope struct {
	Type       string `json:"type"`
	UserID     string `json:"user_id"`
	TaskID     string `json:"task_id"`
	EntryID    string `json:"entry_id"`
	OccurredAt string `json:"occurred_at"`
}

// Publish serialises the event and writes it keyed by user id, so one user's
// events stay ordered within a partition.
func (p *Producer) Publish(ctx context.Context, event domain.EntryEvent) {
	payload, err := json.Marshal(eventEnvelope{
		Type:       event.Type,
		UserID:     event.UserID,
		TaskID:     event.TaskID,
		EntryID:    event.EntryID,
		OccurredAt: event.OccurredAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
	if err != nil {
		log.Printf("events: marshal %s: %v", event.Type, err)
		return
	}

	msg := kafka.Message{
		Key:   []byte(event.UserID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		log.Printf("events: publish %s for entry %s: %v", event.Type, event.EntryID, err)
	}
}

// Close releases the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
