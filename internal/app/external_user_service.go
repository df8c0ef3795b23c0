package app

import (
	"strings"

	"chatplatform/internal/model"
	"chatplatform/internal/repository"
)

type ExternalUserService struct {
	repo *repository.ExternalUserRepository
}

func NewExternalUserService(repo *repository.ExternalUserRepository) *ExternalUserService {
	return &ExternalUserService{repo: repo}
}

// GetOrCreate resolves the external user an admin's widget connection
// identifies itself as, creating the row on first sight.
func (s *ExternalUserService) GetOrCreate(username string, adminID uint) (*model.ExternalUser, error) {
	username = strings.TrimSpace(username)
	if username == "" || adminID == 0 {
		return nil, ErrInvalidInput
	}

	user, err := s.repo.GetByUsernameAndAdmin(username, adminID)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	user = &model.ExternalUser{
		AdminID:  adminID,
		Username: username,
		UserType: "external",
	}
	if err := s.repo.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}
