// Package events publishes completed receipts for downstream storage and reporting.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/Lixing-Zhang/smart-checkout/backend/internal/models"
)

// ReceiptCompleted is the event type written for every finished checkout.
const ReceiptCompleted = "receipt.completed"

// DefaultReceiptTopic is the topic used when none is configured.
const DefaultReceiptTopic = "receipts.completed"

// ReceiptEvent is the message body.
type ReceiptEvent struct {
	EventID    string         `json:"event_id"`
	Type       string         `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Receipt    models.Receipt `json:"receipt"`
}

// MessageWriter is the subset of *kafka.Writer used here.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes receipt events keyed by receipt ID.
type KafkaPublisher struct {
	writer MessageWriter
	now    func() time.Time
	newID  func() string
}

// NewKafkaWriter builds a writer for brokers and topic.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	if topic == "" {
		topic = DefaultReceiptTopic
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
}

// NewKafkaPublisher wraps writer.
func NewKafkaPublisher(writer MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{
		writer: writer,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// PublishReceipt writes one ReceiptCompleted event.
func (p *KafkaPublisher) PublishReceipt(ctx context.Context, receipt models.Receipt) error {
	event := ReceiptEvent{
		EventID:    p.newID(),
		Type:       ReceiptCompleted,
		OccurredAt: p.now().UTC(),
		Receipt:    receipt,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal receipt event")
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(receipt.ID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ReceiptCompleted)},
		},
	})
	if err != nil {
		return errors.Wrapf(err, "publish receipt %s", receipt.ID)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher drops every receipt. Used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishReceipt(context.Context, models.Receipt) error { return nil }

func (NoopPublisher) Close() error { return nil }
