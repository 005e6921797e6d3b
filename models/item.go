package models

import "time"

// ItemStatus is the availability of a catalog item
type ItemStatus string

const (
	ItemAvailable ItemStatus = "available"
	ItemTraded    ItemStatus = "traded"
)

// Item is something a user has listed for barter
type Item struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	OwnerID     uint       `gorm:"not null;index" json:"owner_id"`
	Owner       User       `gorm:"foreignKey:OwnerID" json:"-"`
	Title       string     `gorm:"not null" json:"title"`
	Category    string     `gorm:"not null" json:"category"`
	Price       float64    `gorm:"not null;default:0" json:"price"`
	Description string     `gorm:"type:text" json:"description"`
	ImageKey    string     `json:"image_key"`
	Status      ItemStatus `gorm:"type:varchar(20);not null;default:'available';index" json:"status"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName specifies the table name for the Item model
func (Item) TableName() string {
	return "items"
}

// IsAvailable reports whether the item can still be offered or requested
func (i Item) IsAvailable() bool {
	return i.Status == ItemAvailable
}
