package model

import (
	"strings"
	"time"
)

type Course struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	AdminID     uint      `gorm:"not null;index" json:"admin_id"`
	Title       string    `gorm:"size:256;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ChannelName is the pub/sub topic identifier for this course. Titles are
// normalized so the name is safe as an AMQP routing key.
func (c *Course) ChannelName() string {
	return strings.ReplaceAll(strings.TrimSpace(c.Title), " ", "_")
}

// CourseMember associates an external user with a course channel. Rows are
// recorded on first join and are idempotent per (course, user) pair.
type CourseMember struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	CourseID       uint      `gorm:"not null;uniqueIndex:idx_course_member" json:"course_id"`
	ExternalUserID uint      `gorm:"not null;uniqueIndex:idx_course_member" json:"external_user_id"`
	CreatedAt      time.Time `json:"created_at"`
}
