package repository

import (
	"fmt"

	"gorm.io/gorm"

	"chatplatform/internal/model"
)

type ChannelMessageRepository struct {
	db *gorm.DB
}

func NewChannelMessageRepository(db *gorm.DB) *ChannelMessageRepository {
	return &ChannelMessageRepository{db: db}
}

func (r *ChannelMessageRepository) Create(msg *model.ChannelMessage) error {
	if err := r.db.Create(msg).Error; err != nil {
		return fmt.Errorf("create channel message failed: %w", err)
	}
	return nil
}

func (r *ChannelMessageRepository) ListByChannel(channel string, limit int) ([]model.ChannelMessage, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var messages []model.ChannelMessage
	err := r.db.Where("channel = ?", channel).
		Order("timestamp ASC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("list channel messages failed: %w", err)
	}
	return messages, nil
}
