package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lixing-Zhang/smart-checkout/backend/internal/models"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func testReceipt() models.Receipt {
	return models.Receipt{
		ID:        "RCP-1777734245-1234",
		Timestamp: time.Date(2026, 5, 2, 15, 4, 5, 0, time.UTC),
		Items:     []models.LineItem{{ProductLabel: "banana", Quantity: 3}},
		CartTotals: models.CartTotals{
			Subtotal: models.MustMoney("4.47"),
			Tax:      models.MustMoney("0.36"),
			Total:    models.MustMoney("4.83"),
		},
		PaymentMethod: "card",
		Status:        models.ReceiptStatusCompleted,
	}
}

func TestKafkaPublisher_PublishReceipt(t *testing.T) {
	w := &recordingWriter{}
	p := NewKafkaPublisher(w)
	p.now = func() time.Time { return time.Date(2026, 5, 2, 15, 4, 6, 0, time.UTC) }
	p.newID = func() string { return "evt-1" }

	require.NoError(t, p.PublishReceipt(context.Background(), testReceipt()))
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, "RCP-1777734245-1234", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, ReceiptCompleted, string(msg.Headers[0].Value))

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "evt-1", body["event_id"])
	assert.Equal(t, ReceiptCompleted, body["type"])
	assert.Equal(t, "2026-05-02T15:04:06Z", body["occurred_at"])

	receipt := body["receipt"].(map[string]any)
	assert.Equal(t, "RCP-1777734245-1234", receipt["receipt_id"])
	assert.Equal(t, 4.83, receipt["total"])
	assert.Equal(t, "completed", receipt["status"])
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	boom := errors.New("broker unreachable")
	p := NewKafkaPublisher(&recordingWriter{err: boom})

	err := p.PublishReceipt(context.Background(), testReceipt())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "RCP-1777734245-1234")
}

func TestKafkaPublisher_EventIDsAreUUIDs(t *testing.T) {
	w := &recordingWriter{}
	p := NewKafkaPublisher(w)

	require.NoError(t, p.PublishReceipt(context.Background(), testReceipt()))
	require.NoError(t, p.PublishReceipt(context.Background(), testReceipt()))

	var first, second ReceiptEvent
	require.NoError(t, json.Unmarshal(w.messages[0].Value, &first))
	require.NoError(t, json.Unmarshal(w.messages[1].Value, &second))
	assert.Len(t, first.EventID, 36)
	assert.NotEqual(t, first.EventID, second.EventID)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestNewKafkaWriter(t *testing.T) {
	w := NewKafkaWriter([]string{"kafka-1:9092", "kafka-2:9092"}, "")
	defer w.Close()

	assert.Equal(t, DefaultReceiptTopic, w.Topic)
	assert.Contains(t, w.Addr.String(), "kafka-1:9092")
}

func TestNoopPublisher(t *testing.T) {
	var p NoopPublisher
	assert.NoError(t, p.PublishReceipt(context.Background(), testReceipt()))
	assert.NoError(t, p.Close())
}
