package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"chatplatform/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(doc *model.Document) error {
	if err := r.db.Create(doc).Error; err != nil {
		return fmt.Errorf("create document failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(id uint) (*model.Document, error) {
	var doc model.Document
	if err := r.db.First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query document failed: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) ListByCourseID(courseID uint) ([]model.Document, error) {
	var docs []model.Document
	if err := r.db.Where("course_id = ?", courseID).Order("id ASC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return docs, nil
}

// ListTextByCourseID returns only the extracted text of a course's
// documents, in upload order.
func (r *DocumentRepository) ListTextByCourseID(courseID uint) ([]string, error) {
	var texts []string
	err := r.db.Model(&model.Document{}).
		Where("course_id = ?", courseID).
		Order("id ASC").
		Pluck("text", &texts).Error
	if err != nil {
		return nil, fmt.Errorf("list document texts failed: %w", err)
	}
	return texts, nil
}

func (r *DocumentRepository) DeleteByID(id uint) error {
	if err := r.db.Delete(&model.Document{}, id).Error; err != nil {
		return fmt.Errorf("delete document failed: %w", err)
	}
	return nil
}
