package models

import (
	"strings"
	"time"
)

// DefaultAvatar is assigned to users who never uploaded a picture
const DefaultAvatar = "assets/avatars/avatar1.png"

// User is a registered trader
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	AuthSubject string    `gorm:"uniqueIndex;not null" json:"-"` // 'sub' claim of the bearer token
	FirstName   string    `gorm:"not null" json:"first_name"`
	LastName    string    `gorm:"not null" json:"last_name"`
	Email       string    `gorm:"uniqueIndex;not null" json:"email"`
	AvatarURL   string    `gorm:"not null;default:'assets/avatars/avatar1.png'" json:"avatar_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// DisplayName joins first and last name the way other traders see it
func (u User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
