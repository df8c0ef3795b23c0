package model

import "time"

// ExternalUser is an end user of the embedded chat widget. It is created
// lazily on first WebSocket setup and owned by the admin whose token
// authenticated the connection.
type ExternalUser struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AdminID   uint      `gorm:"index" json:"admin_id"`
	Username  string    `gorm:"size:255;not null;index" json:"username"`
	UserType  string    `gorm:"size:32;not null;default:external" json:"user_type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
