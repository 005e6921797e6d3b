package models

import "time"

// ChatMessage is one line of negotiation attached to a trade
type ChatMessage struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TradeID    uint      `gorm:"not null;index:idx_chat_trade_sent,priority:1" json:"trade_id"`
	SenderID   uint      `gorm:"not null;index" json:"sender_id"`
	Sender     User      `gorm:"foreignKey:SenderID" json:"-"`
	ReceiverID uint      `gorm:"not null;index" json:"receiver_id"`
	Message    string    `gorm:"type:text;not null" json:"message"`
	Timestamp  time.Time `gorm:"column:sent_at;not null;index:idx_chat_trade_sent,priority:2" json:"timestamp"`
	IsRead     bool      `gorm:"not null;default:false" json:"is_read"`
}

// TableName specifies the table name for the ChatMessage model
func (ChatMessage) TableName() string {
	return "chat_messages"
}
