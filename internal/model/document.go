package model

import "time"

// Document is an uploaded course material. Text holds the extracted plain
// text content used for prompt injection; the raw upload is not retained.
type Document struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CourseID    uint      `gorm:"not null;index" json:"course_id"`
	Name        string    `gorm:"size:256;not null" json:"name"`
	ContentType string    `gorm:"size:128" json:"content_type"`
	Text        string    `gorm:"type:longtext" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}
