package model

import "time"

// ChannelMessage is an archived copy of one envelope that crossed a course
// channel. Rows are written asynchronously by the transcript worker.
type ChannelMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Channel   string    `gorm:"size:256;not null;index" json:"channel"`
	Sender    string    `gorm:"size:255;not null" json:"sender"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Timestamp time.Time `gorm:"not null" json:"timestamp"`
	CreatedAt time.Time `json:"created_at"`
}
