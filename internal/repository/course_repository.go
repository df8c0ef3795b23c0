package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"chatplatform/internal/model"
)

type CourseRepository struct {
	db *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

func (r *CourseRepository) Create(course *model.Course) error {
	if err := r.db.Create(course).Error; err != nil {
		return fmt.Errorf("create course failed: %w", err)
	}
	return nil
}

func (r *CourseRepository) GetByIDAndAdminID(id, adminID uint) (*model.Course, error) {
	var course model.Course
	err := r.db.Where("id = ? AND admin_id = ?", id, adminID).First(&course).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query course failed: %w", err)
	}
	return &course, nil
}

func (r *CourseRepository) ListByAdminID(adminID uint) ([]model.Course, error) {
	var courses []model.Course
	if err := r.db.Where("admin_id = ?", adminID).Order("id ASC").Find(&courses).Error; err != nil {
		return nil, fmt.Errorf("list courses failed: %w", err)
	}
	return courses, nil
}

func (r *CourseRepository) Update(course *model.Course) error {
	if err := r.db.Save(course).Error; err != nil {
		return fmt.Errorf("update course failed: %w", err)
	}
	return nil
}

func (r *CourseRepository) DeleteByIDAndAdminID(id, adminID uint) error {
	if err := r.db.Where("id = ? AND admin_id = ?", id, adminID).Delete(&model.Course{}).Error; err != nil {
		return fmt.Errorf("delete course failed: %w", err)
	}
	return nil
}

// EnsureMember records the course membership of an external user. Safe to
// call on every channel join; duplicate pairs are ignored.
func (r *CourseRepository) EnsureMember(courseID, externalUserID uint) error {
	member := model.CourseMember{CourseID: courseID, ExternalUserID: externalUserID}
	err := r.db.Where("course_id = ? AND external_user_id = ?", courseID, externalUserID).
		FirstOrCreate(&member).Error
	if err != nil {
		return fmt.Errorf("ensure course member failed: %w", err)
	}
	return nil
}

func (r *CourseRepository) ListMemberIDs(courseID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&model.CourseMember{}).
		Where("course_id = ?", courseID).
		Pluck("external_user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list course members failed: %w", err)
	}
	return ids, nil
}
