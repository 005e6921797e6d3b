package models

import "time"

// TradeStatus is the lifecycle state of a trade
type TradeStatus string

const (
	TradePending   TradeStatus = "pending"
	TradeAccepted  TradeStatus = "accepted"
	TradeDeclined  TradeStatus = "declined"
	TradeCompleted TradeStatus = "completed"
	TradeCancelled TradeStatus = "cancelled"
)

// TradeStatuses lists every status a caller may request
var TradeStatuses = []TradeStatus{TradeAccepted, TradeDeclined, TradePending, TradeCompleted, TradeCancelled}

// ParseTradeStatus returns the status named by s and whether it is known
func ParseTradeStatus(s string) (TradeStatus, bool) {
	for _, status := range TradeStatuses {
		if string(status) == s {
			return status, true
		}
	}
	return "", false
}

// IsActive reports whether the trade still blocks a new proposal for its items
func (s TradeStatus) IsActive() bool {
	return s == TradePending || s == TradeAccepted
}

// Trade is a proposal to swap Item1 (offered by Sender) for Item2 (owned by Receiver)
type Trade struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	Item1ID    uint        `gorm:"not null;index" json:"item1_id"`
	Item1      Item        `gorm:"foreignKey:Item1ID" json:"-"`
	Item2ID    uint        `gorm:"not null;index" json:"item2_id"`
	Item2      Item        `gorm:"foreignKey:Item2ID" json:"-"`
	SenderID   uint        `gorm:"not null;index" json:"sender_id"`
	Sender     User        `gorm:"foreignKey:SenderID" json:"-"`
	ReceiverID uint        `gorm:"not null;index" json:"receiver_id"`
	Receiver   User        `gorm:"foreignKey:ReceiverID" json:"-"`
	Status     TradeStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	CreatedAt  time.Time   `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// TableName specifies the table name for the Trade model
func (Trade) TableName() string {
	return "trades"
}

// IsParticipant reports whether userID is the sender or the receiver
func (t Trade) IsParticipant(userID uint) bool {
	return userID != 0 && (t.SenderID == userID || t.ReceiverID == userID)
}

// Counterpart returns the other participant, or 0 when userID is not part of the trade
func (t Trade) Counterpart(userID uint) uint {
	switch userID {
	case t.SenderID:
		return t.ReceiverID
	case t.ReceiverID:
		return t.SenderID
	}
	return 0
}

// ItemIDs returns the two referenced item ids
func (t Trade) ItemIDs() []uint {
	return []uint{t.Item1ID, t.Item2ID}
}
