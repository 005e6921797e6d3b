package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/kendall-kelly/barter-api/models"
	"github.com/segmentio/kafka-go"
)

// Trade event types
const (
	EventTradeCreated       = "trade.created"
	EventTradeStatusChanged = "trade.status_changed"
)

// TradeEvent is emitted after a trade write commits
type TradeEvent struct {
	Type           string             `json:"type"`
	TradeID        uint               `json:"trade_id"`
	Status         models.TradeStatus `json:"status"`
	PreviousStatus models.TradeStatus `json:"previous_status,omitempty"`
	ActorID        uint               `json:"actor_id"`
	SenderID       uint               `json:"sender_id"`
	ReceiverID     uint               `json:"receiver_id"`
	Item1ID        uint               `json:"item1_id"`
	Item2ID        uint               `json:"item2_id"`
	OccurredAt     time.Time          `json:"occurred_at"`
}

func newTradeEvent(eventType string, trade *models.Trade, previous models.TradeStatus, actorID uint) TradeEvent {
	return TradeEvent{
		Type:           eventType,
		TradeID:        trade.ID,
		Status:         trade.Status,
		PreviousStatus: previous,
		ActorID:        actorID,
		SenderID:       trade.SenderID,
		ReceiverID:     trade.ReceiverID,
		Item1ID:        trade.Item1ID,
		Item2ID:        trade.Item2ID,
		OccurredAt:     time.Now().UTC(),
	}
}

// EventPublisher delivers trade events to downstream consumers
type EventPublisher interface {
	Publish(ctx context.Context, event TradeEvent) error
	Close() error
}

// NoopPublisher drops every event
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, TradeEvent) error { return nil }
func (NoopPublisher) Close() error                              { return nil }

// kafkaWriter is the part of *kafka.Writer the publisher uses
type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a topic keyed by trade id, so every event
// for one trade lands on the same partition in order.
type KafkaPublisher struct {
	writer kafkaWriter
	topic  string
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		Async:        true,
		RequiredAcks: kafka.RequireOne,
		Completion:   logDeliveryFailures(topic),
	}
	return &KafkaPublisher{writer: writer, topic: topic}
}

// logDeliveryFailures reports batches the async writer could not deliver;
// WriteMessages has already returned by then.
func logDeliveryFailures(topic string) func([]kafka.Message, error) {
	return func(messages []kafka.Message, err error) {
		if err == nil {
			return
		}
		for _, msg := range messages {
			slog.Error("failed to deliver trade event",
				"topic", topic,
				"trade_id", string(msg.Key),
				"type", eventTypeOf(msg),
				"error", err)
		}
	}
}

func eventTypeOf(msg kafka.Message) string {
	for _, h := range msg.Headers {
		if h.Key == "event_type" {
			return string(h.Value)
		}
	}
	return ""
}

func (p *KafkaPublisher) Publish(ctx context.Context, event TradeEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal trade event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(event.TradeID), 10)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write trade event to %s: %w", p.topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	if err := p.writer.Close(); err != nil {
		slog.Error("failed to close kafka writer", "topic", p.topic, "error", err)
		return err
	}
	return nil
}

// publishAfterCommit sends the event and logs failures; the trade write has
// already committed so the caller never sees a publish error.
func publishAfterCommit(ctx context.Context, publisher EventPublisher, event TradeEvent) {
	if err := publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		slog.Error("failed to publish trade event",
			"type", event.Type,
			"trade_id", event.TradeID,
			"error", err)
	}
}
