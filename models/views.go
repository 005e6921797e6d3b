package models

import "time"

// ItemView is the catalog record as it appears inside trade responses
type ItemView struct {
	ID          uint       `json:"id"`
	OwnerID     uint       `json:"owner_id,omitempty"`
	Title       string     `json:"title"`
	Category    string     `json:"category,omitempty"`
	Price       float64    `json:"price"`
	Description string     `json:"description"`
	ImageURL    string     `json:"image_url"`
	Status      ItemStatus `json:"status,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

// UserView is the public face of a participant
type UserView struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatar_url"`
}

// TradeSummary is one row of the sent or received inbox
type TradeSummary struct {
	ID            uint        `json:"id"`
	Status        TradeStatus `json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
	OfferedItem   ItemView    `json:"offered_item"`
	RequestedItem ItemView    `json:"requested_item"`
	Sender        *UserView   `json:"sender,omitempty"`
	Receiver      *UserView   `json:"receiver,omitempty"`
}

// TradeDetail is the fully joined view of a single trade
type TradeDetail struct {
	ID        uint        `json:"id"`
	Status    TradeStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	Item1     ItemView    `json:"item1"`
	Item2     ItemView    `json:"item2"`
	Sender    UserView    `json:"sender"`
	Receiver  UserView    `json:"receiver"`
}

// ExistingTrade answers "is there already a live trade over this item?"
type ExistingTrade struct {
	Exists        bool        `json:"exists"`
	TradeID       uint        `json:"trade_id,omitempty"`
	Status        TradeStatus `json:"status,omitempty"`
	Item1ID       uint        `json:"item1_id,omitempty"`
	Item2ID       uint        `json:"item2_id,omitempty"`
	OfferedItem   *ItemView   `json:"offered_item,omitempty"`
	RequestedItem *ItemView   `json:"requested_item,omitempty"`
}

// ChatMessageView is a stored message enriched with its sender's display data
type ChatMessageView struct {
	ChatMessage
	SenderName   string `json:"sender_name"`
	SenderAvatar string `json:"sender_avatar"`
}

// ListedItem is an available item shown in the browse feed with its owner
type ListedItem struct {
	ItemView
	OwnerName   string `json:"owner_name"`
	OwnerAvatar string `json:"owner_avatar"`
}

// Avatar is one of the preset profile pictures a user can pick
type Avatar struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
	URL  string `json:"url"`
}
