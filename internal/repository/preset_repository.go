package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"chatplatform/internal/model"
)

type PresetRepository struct {
	db *gorm.DB
}

func NewPresetRepository(db *gorm.DB) *PresetRepository {
	return &PresetRepository{db: db}
}

func (r *PresetRepository) Create(preset *model.GptPreset) error {
	if err := r.db.Create(preset).Error; err != nil {
		return fmt.Errorf("create preset failed: %w", err)
	}
	return nil
}

func (r *PresetRepository) GetByID(id uint) (*model.GptPreset, error) {
	var preset model.GptPreset
	if err := r.db.First(&preset, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query preset failed: %w", err)
	}
	return &preset, nil
}

// GetByCourseID returns the course's preset. Courses keep one preset; when
// several exist the most recent wins.
func (r *PresetRepository) GetByCourseID(courseID uint) (*model.GptPreset, error) {
	var preset model.GptPreset
	err := r.db.Where("course_id = ?", courseID).Order("id DESC").First(&preset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query preset by course failed: %w", err)
	}
	return &preset, nil
}

func (r *PresetRepository) List() ([]model.GptPreset, error) {
	var presets []model.GptPreset
	if err := r.db.Order("id ASC").Find(&presets).Error; err != nil {
		return nil, fmt.Errorf("list presets failed: %w", err)
	}
	return presets, nil
}

func (r *PresetRepository) Update(preset *model.GptPreset) error {
	if err := r.db.Save(preset).Error; err != nil {
		return fmt.Errorf("update preset failed: %w", err)
	}
	return nil
}

func (r *PresetRepository) DeleteByID(id uint) error {
	if err := r.db.Delete(&model.GptPreset{}, id).Error; err != nil {
		return fmt.Errorf("delete preset failed: %w", err)
	}
	return nil
}
