package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"chatplatform/internal/model"
)

type ChatSessionRepository struct {
	db *gorm.DB
}

func NewChatSessionRepository(db *gorm.DB) *ChatSessionRepository {
	return &ChatSessionRepository{db: db}
}

func (r *ChatSessionRepository) Create(session *model.ChatSession) error {
	if err := r.db.Create(session).Error; err != nil {
		return fmt.Errorf("create chat session failed: %w", err)
	}
	return nil
}

// CurrentByUserID returns the most recently started active session for the
// user, or nil. Callers decide whether it is still within its lifetime.
func (r *ChatSessionRepository) CurrentByUserID(externalUserID uint) (*model.ChatSession, error) {
	var session model.ChatSession
	err := r.db.Where("external_user_id = ? AND is_active = ?", externalUserID, true).
		Order("started_at DESC").
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query current chat session failed: %w", err)
	}
	return &session, nil
}

// SaveHistory persists the session's conversation history column.
// Last-writer-wins; no optimistic locking.
func (r *ChatSessionRepository) SaveHistory(session *model.ChatSession) error {
	err := r.db.Model(&model.ChatSession{}).
		Where("id = ?", session.ID).
		Update("conversation_history", session.ConversationHistory).Error
	if err != nil {
		return fmt.Errorf("save chat session history failed: %w", err)
	}
	return nil
}

// End deactivates the session and stamps its end time. Sessions are never
// hard-deleted in normal operation.
func (r *ChatSessionRepository) End(sessionID uint) error {
	now := time.Now()
	err := r.db.Model(&model.ChatSession{}).
		Where("id = ?", sessionID).
		Updates(map[string]interface{}{"is_active": false, "ended_at": &now}).Error
	if err != nil {
		return fmt.Errorf("end chat session failed: %w", err)
	}
	return nil
}
