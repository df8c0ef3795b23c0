package model

import "time"

// GptPreset is admin-configured generation parameters bound to a course.
// The chat core reads presets but never writes them.
type GptPreset struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:128;not null;uniqueIndex" json:"name"`
	Model       string    `gorm:"size:64;not null" json:"model"`
	MaxTokens   int       `gorm:"default:150" json:"max_tokens"`
	Temperature float64   `gorm:"default:0.7" json:"temperature"`
	CourseID    uint      `gorm:"not null;index" json:"course_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
