package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"chatplatform/internal/model"
)

type ExternalUserRepository struct {
	db *gorm.DB
}

func NewExternalUserRepository(db *gorm.DB) *ExternalUserRepository {
	return &ExternalUserRepository{db: db}
}

func (r *ExternalUserRepository) Create(user *model.ExternalUser) error {
	if err := r.db.Create(user).Error; err != nil {
		return fmt.Errorf("create external user failed: %w", err)
	}
	return nil
}

func (r *ExternalUserRepository) GetByUsernameAndAdmin(username string, adminID uint) (*model.ExternalUser, error) {
	var user model.ExternalUser
	err := r.db.Where("username = ? AND admin_id = ?", username, adminID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query external user failed: %w", err)
	}
	return &user, nil
}
