package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/kendall-kelly/barter-api/models"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.messages = append(w.messages, msgs...)
	return w.err
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisherKeysByTrade(t *testing.T) {
	writer := &recordingWriter{}
	publisher := &KafkaPublisher{writer: writer, topic: "trade-events"}

	trade := &models.Trade{ID: 42, Item1ID: 1, Item2ID: 2, SenderID: 10, ReceiverID: 20, Status: models.TradeAccepted}
	event := newTradeEvent(EventTradeStatusChanged, trade, models.TradePending, 20)

	require.NoError(t, publisher.Publish(context.Background(), event))
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, "42", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, EventTradeStatusChanged, string(msg.Headers[0].Value))

	var decoded TradeEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, uint(42), decoded.TradeID)
	assert.Equal(t, models.TradeAccepted, decoded.Status)
	assert.Equal(t, models.TradePending, decoded.PreviousStatus)
	assert.Equal(t, uint(20), decoded.ActorID)

	require.NoError(t, publisher.Close())
	assert.True(t, writer.closed)
}

func TestKafkaPublisherWrapsWriteErrors(t *testing.T) {
	writer := &recordingWriter{err: errors.New("leader not available")}
	publisher := &KafkaPublisher{writer: writer, topic: "trade-events"}

	err := publisher.Publish(context.Background(), TradeEvent{Type: EventTradeCreated, TradeID: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trade-events")
	assert.Contains(t, err.Error(), "leader not available")
}

func TestNewKafkaPublisherConfiguresWriter(t *testing.T) {
	publisher := NewKafkaPublisher([]string{"localhost:9092"}, "trade-events")

	writer, ok := publisher.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "trade-events", writer.Topic)
	assert.IsType(t, &kafka.Hash{}, writer.Balancer)
	assert.True(t, writer.Async)
	require.NotNil(t, writer.Completion, "async delivery errors need a handler")
}

func TestDeliveryFailuresAreLogged(t *testing.T) {
	var buf bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(previous) })

	complete := logDeliveryFailures("trade-events")
	msgs := []kafka.Message{{
		Key:     []byte("42"),
		Headers: []kafka.Header{{Key: "event_type", Value: []byte(EventTradeStatusChanged)}},
	}}

	complete(msgs, nil)
	assert.Empty(t, buf.String(), "successful batches are not logged")

	complete(msgs, errors.New("leader not available"))
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "failed to deliver trade event", entry["msg"])
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "42", entry["trade_id"])
	assert.Equal(t, EventTradeStatusChanged, entry["type"])
	assert.Equal(t, "leader not available", entry["error"])
}

func TestNoopPublisher(t *testing.T) {
	var p EventPublisher = NoopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), TradeEvent{}))
	assert.NoError(t, p.Close())
}
