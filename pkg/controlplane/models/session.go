package models

import "time"

// Session is a live authentication token. The integer ID is the token value
// surfaced to the client in sign_in/connect_farm replies. Sessions are
// created on successful credential check and removed on sign-out, farm
// detach, or socket close; nothing about them is meant to survive a server
// restart.
type Session struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for Session.
func (Session) TableName() string {
	return "session"
}
