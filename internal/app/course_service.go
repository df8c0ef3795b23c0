package app

import (
	"errors"
	"strings"

	"chatplatform/internal/model"
	"chatplatform/internal/repository"
)

var ErrCourseNotFound = errors.New("course not found")

type CourseService struct {
	courseRepo *repository.CourseRepository
}

type CourseInput struct {
	AdminID     uint
	Title       string
	Description string
}

func NewCourseService(courseRepo *repository.CourseRepository) *CourseService {
	return &CourseService{courseRepo: courseRepo}
}

func (s *CourseService) Create(input CourseInput) (*model.Course, error) {
	title := strings.TrimSpace(input.Title)
	if input.AdminID == 0 || title == "" {
		return nil, ErrInvalidInput
	}

	course := &model.Course{
		AdminID:     input.AdminID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
	}
	if err := s.courseRepo.Create(course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) List(adminID uint) ([]model.Course, error) {
	if adminID == 0 {
		return nil, ErrInvalidInput
	}
	return s.courseRepo.ListByAdminID(adminID)
}

func (s *CourseService) Get(courseID, adminID uint) (*model.Course, error) {
	if courseID == 0 || adminID == 0 {
		return nil, ErrInvalidInput
	}
	course, err := s.courseRepo.GetByIDAndAdminID(courseID, adminID)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, ErrCourseNotFound
	}
	return course, nil
}

// GetForAdmin returns the course only when it belongs to adminID. Used by
// the gateway to validate the course a widget connection asks for.
func (s *CourseService) GetForAdmin(courseID, adminID uint) (*model.Course, error) {
	return s.Get(courseID, adminID)
}

func (s *CourseService) Update(courseID uint, input CourseInput) (*model.Course, error) {
	course, err := s.Get(courseID, input.AdminID)
	if err != nil {
		return nil, err
	}

	if title := strings.TrimSpace(input.Title); title != "" {
		course.Title = title
	}
	course.Description = strings.TrimSpace(input.Description)
	if err := s.courseRepo.Update(course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) Delete(courseID, adminID uint) error {
	if _, err := s.Get(courseID, adminID); err != nil {
		return err
	}
	return s.courseRepo.DeleteByIDAndAdminID(courseID, adminID)
}

// Join records the external user as a member of the course channel.
// Idempotent per (course, user) pair.
func (s *CourseService) Join(courseID, externalUserID uint) error {
	if courseID == 0 || externalUserID == 0 {
		return ErrInvalidInput
	}
	return s.courseRepo.EnsureMember(courseID, externalUserID)
}

// MemberIDs lists the external users that ever joined the course channel.
func (s *CourseService) MemberIDs(courseID, adminID uint) ([]uint, error) {
	if _, err := s.Get(courseID, adminID); err != nil {
		return nil, err
	}
	return s.courseRepo.ListMemberIDs(courseID)
}
