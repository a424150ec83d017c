// Package notify publishes ledger changes to Kafka for downstream consumers.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const (
	PriceRecorded        = "price.recorded"
	EventTotalRecomputed = "event.total_recomputed"
	PaymentRecorded      = "payment.recorded"
	PaymentDeleted       = "payment.deleted"
)

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Notification struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	EntityID   uint      `json:"entity_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data,omitempty"`
}

// Publisher is a no-op when it has no writer.
type Publisher struct {
	w   MessageWriter
	now func() time.Time
}

func New(w MessageWriter) *Publisher {
	return &Publisher{w: w, now: time.Now}
}

// NewKafka returns a publisher for topic, or a no-op publisher when no brokers are configured.
func NewKafka(brokers []string, topic string) *Publisher {
	if len(brokers) == 0 {
		return New(nil)
	}
	return New(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	})
}

func (p *Publisher) Enabled() bool {
	return p != nil && p.w != nil
}

// Publish keys messages by type and entity so one entity's changes stay ordered.
func (p *Publisher) Publish(ctx context.Context, typ string, entityID uint, data any) error {
	if !p.Enabled() {
		return nil
	}
	n := Notification{
		ID:         uuid.NewString(),
		Type:       typ,
		EntityID:   entityID,
		OccurredAt: p.now().UTC(),
		Data:       data,
	}
	value, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("notificación %s: %w", typ, err)
	}
	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("%s:%d", typ, entityID)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(typ)},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka %s: %w", typ, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	if !p.Enabled() {
		return nil
	}
	return p.w.Close()
}
