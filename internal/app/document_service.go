package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"chatplatform/internal/model"
	"chatplatform/internal/pkg/pdfextract"
	"chatplatform/internal/repository"
)

var ErrDocumentNotFound = errors.New("document not found")

// ContentCache caches a course's concatenated document text between turns.
type ContentCache interface {
	GetContent(ctx context.Context, courseID uint) (string, bool, error)
	SetContent(ctx context.Context, courseID uint, content string) error
	DeleteContent(ctx context.Context, courseID uint) error
}

type DocumentService struct {
	docRepo    *repository.DocumentRepository
	courseRepo *repository.CourseRepository
	cache      ContentCache
}

func NewDocumentService(
	docRepo *repository.DocumentRepository,
	courseRepo *repository.CourseRepository,
	cache ContentCache,
) *DocumentService {
	return &DocumentService{
		docRepo:    docRepo,
		courseRepo: courseRepo,
		cache:      cache,
	}
}

type UploadInput struct {
	AdminID     uint
	CourseID    uint
	Name        string
	ContentType string
	Body        io.Reader
}

// Upload extracts the plain text of the uploaded file and stores it under
// the course. PDFs go through the PDF extractor; everything else is treated
// as text.
func (s *DocumentService) Upload(ctx context.Context, input UploadInput) (*model.Document, error) {
	name := strings.TrimSpace(input.Name)
	if input.AdminID == 0 || input.CourseID == 0 || name == "" || input.Body == nil {
		return nil, ErrInvalidInput
	}

	course, err := s.courseRepo.GetByIDAndAdminID(input.CourseID, input.AdminID)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, ErrCourseNotFound
	}

	text, err := s.extractText(name, input.ContentType, input.Body)
	if err != nil {
		return nil, fmt.Errorf("extract document text failed: %w", err)
	}

	doc := &model.Document{
		CourseID:    input.CourseID,
		Name:        name,
		ContentType: input.ContentType,
		Text:        text,
	}
	if err := s.docRepo.Create(doc); err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.DeleteContent(ctx, input.CourseID)
	}
	return doc, nil
}

func (s *DocumentService) List(adminID, courseID uint) ([]model.Document, error) {
	if adminID == 0 || courseID == 0 {
		return nil, ErrInvalidInput
	}
	course, err := s.courseRepo.GetByIDAndAdminID(courseID, adminID)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, ErrCourseNotFound
	}
	return s.docRepo.ListByCourseID(courseID)
}

func (s *DocumentService) Delete(ctx context.Context, adminID, documentID uint) error {
	if adminID == 0 || documentID == 0 {
		return ErrInvalidInput
	}
	doc, err := s.docRepo.GetByID(documentID)
	if err != nil {
		return err
	}
	if doc == nil {
		return ErrDocumentNotFound
	}
	course, err := s.courseRepo.GetByIDAndAdminID(doc.CourseID, adminID)
	if err != nil {
		return err
	}
	if course == nil {
		return ErrDocumentNotFound
	}

	if err := s.docRepo.DeleteByID(documentID); err != nil {
		return err
	}
	if s.cache != nil {
		_ = s.cache.DeleteContent(ctx, doc.CourseID)
	}
	return nil
}

// ContentForCourse returns the concatenated text of all documents uploaded
// to the course, cache-first. An empty string means the course has no
// material; prompts then carry no document block.
func (s *DocumentService) ContentForCourse(ctx context.Context, courseID uint) (string, error) {
	if courseID == 0 {
		return "", ErrInvalidInput
	}

	if s.cache != nil {
		if cached, hit, err := s.cache.GetContent(ctx, courseID); err == nil && hit {
			return cached, nil
		}
	}

	texts, err := s.docRepo.ListTextByCourseID(courseID)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(texts))
	for _, t := range texts {
		if t = strings.TrimSpace(t); t != "" {
			parts = append(parts, t)
		}
	}
	content := strings.Join(parts, "\n\n")

	if s.cache != nil {
		_ = s.cache.SetContent(ctx, courseID, content)
	}
	return content, nil
}

func (s *DocumentService) extractText(name, contentType string, body io.Reader) (string, error) {
	if contentType == "application/pdf" || strings.HasSuffix(strings.ToLower(name), ".pdf") {
		return pdfextract.ExtractText(body)
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
