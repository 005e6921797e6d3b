package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kendall-kelly/barter-api/models"
	"github.com/kendall-kelly/barter-api/observability"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// NegotiationChannel stores and lists the messages exchanged on a trade
type NegotiationChannel interface {
	Send(ctx context.Context, callerID uint, in SendMessageInput) (*models.ChatMessageView, error)
	List(ctx context.Context, tradeID, callerID uint) ([]models.ChatMessageView, error)
}

// SendMessageInput is one message from the caller to the other participant
type SendMessageInput struct {
	TradeID    uint
	ReceiverID uint
	Message    string
}

// ChatService is the gorm-backed NegotiationChannel
type ChatService struct {
	Deps
}

func NewChatService(deps Deps) *ChatService {
	return &ChatService{Deps: deps.withDefaults()}
}

func chatLockKey(tradeID uint) string { return fmt.Sprintf("chat:%d", tradeID) }

// Send stores a message on a trade. The receiver must be the caller's
// counterpart and the trimmed text must be non-empty. Timestamps never go
// backwards within a trade.
func (s *ChatService) Send(ctx context.Context, callerID uint, in SendMessageInput) (view *models.ChatMessageView, err error) {
	ctx, span := startSpan(ctx, "ChatService.Send",
		attribute.Int64("caller.id", int64(callerID)),
		attribute.Int64("trade.id", int64(in.TradeID)))
	defer func() { endSpan(span, "chat.send", err) }()

	if callerID == 0 {
		return nil, ErrUnauthorized
	}
	if in.TradeID == 0 || in.ReceiverID == 0 {
		return nil, validation("MISSING_FIELDS", "trade_id and receiver_id are required")
	}

	trade, err := findTrade(s.DB.WithContext(ctx), in.TradeID)
	if err != nil {
		return nil, err
	}
	if !trade.IsParticipant(callerID) {
		return nil, ErrNotParticipant
	}
	if in.ReceiverID != trade.Counterpart(callerID) {
		return nil, validation("INVALID_RECEIVER", "Receiver must be the other participant of this trade")
	}
	text := strings.TrimSpace(in.Message)
	if text == "" {
		return nil, validation("EMPTY_MESSAGE", "Message cannot be empty")
	}

	// loaded before the write so a failed lookup never leaves a stored message behind
	sender, err := s.Identity.ByID(ctx, callerID)
	if err != nil {
		return nil, asServiceError("load sender", err)
	}

	release, err := acquireLocks(ctx, s.Locker, s.LockWait, chatLockKey(trade.ID))
	if err != nil {
		return nil, err
	}
	defer release()

	msg := &models.ChatMessage{
		TradeID:    trade.ID,
		SenderID:   callerID,
		ReceiverID: in.ReceiverID,
		Message:    text,
		IsRead:     false,
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last []models.ChatMessage
		if err := tx.Where("trade_id = ?", trade.ID).Order("sent_at DESC, id DESC").Limit(1).Find(&last).Error; err != nil {
			return storageFailure("load last message", err)
		}

		msg.Timestamp = time.Now().UTC().Truncate(time.Microsecond)
		if len(last) == 1 && msg.Timestamp.Before(last[0].Timestamp) {
			msg.Timestamp = last[0].Timestamp
		}

		if err := tx.Create(msg).Error; err != nil {
			return storageFailure("store message", err)
		}
		return nil
	})
	if err != nil {
		return nil, asServiceError("send message", err)
	}

	observability.ChatMessagesSent.Inc()
	slog.InfoContext(ctx, "chat message sent",
		"message_id", msg.ID,
		"trade_id", msg.TradeID,
		"sender_id", msg.SenderID,
		"receiver_id", msg.ReceiverID)

	return s.messageView(ctx, *msg, *sender), nil
}

// List returns every message on the trade, oldest first
func (s *ChatService) List(ctx context.Context, tradeID, callerID uint) (out []models.ChatMessageView, err error) {
	ctx, span := startSpan(ctx, "ChatService.List",
		attribute.Int64("caller.id", int64(callerID)),
		attribute.Int64("trade.id", int64(tradeID)))
	defer func() { endSpan(span, "chat.list", err) }()

	if callerID == 0 {
		return nil, ErrUnauthorized
	}

	trade, err := findTrade(s.DB.WithContext(ctx), tradeID)
	if err != nil {
		return nil, err
	}
	if !trade.IsParticipant(callerID) {
		return nil, ErrNotParticipant
	}

	var messages []models.ChatMessage
	err = s.DB.WithContext(ctx).
		Preload("Sender").
		Where("trade_id = ?", trade.ID).
		Order("sent_at ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, storageFailure("list messages", err)
	}

	out = make([]models.ChatMessageView, 0, len(messages))
	for _, m := range messages {
		out = append(out, *s.messageView(ctx, m, m.Sender))
	}
	return out, nil
}

func (s *ChatService) messageView(ctx context.Context, m models.ChatMessage, sender models.User) *models.ChatMessageView {
	m.Sender = models.User{}
	return &models.ChatMessageView{
		ChatMessage:  m,
		SenderName:   sender.DisplayName(),
		SenderAvatar: s.Media.URL(ctx, sender.AvatarURL),
	}
}
