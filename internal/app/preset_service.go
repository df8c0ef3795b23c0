package app

import (
	"errors"
	"strings"

	"chatplatform/internal/ai"
	"chatplatform/internal/model"
	"chatplatform/internal/repository"
)

var ErrPresetModelUnknown = errors.New("model is not in the supported set")

type PresetService struct {
	presetRepo *repository.PresetRepository
	courseRepo *repository.CourseRepository
}

type PresetInput struct {
	AdminID     uint
	Name        string
	Model       string
	MaxTokens   int
	Temperature float64
	CourseID    uint
}

func NewPresetService(presetRepo *repository.PresetRepository, courseRepo *repository.CourseRepository) *PresetService {
	return &PresetService{
		presetRepo: presetRepo,
		courseRepo: courseRepo,
	}
}

func (s *PresetService) Create(input PresetInput) (*model.GptPreset, error) {
	name := strings.TrimSpace(input.Name)
	if input.AdminID == 0 || input.CourseID == 0 || name == "" {
		return nil, ErrInvalidInput
	}

	spec, ok := ai.LookupModel(input.Model)
	if !ok {
		return nil, ErrPresetModelUnknown
	}
	if input.Temperature < 0 || input.Temperature > 1 {
		return nil, ErrInvalidInput
	}

	course, err := s.courseRepo.GetByIDAndAdminID(input.CourseID, input.AdminID)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, ErrCourseNotFound
	}

	maxTokens := input.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 150
	}
	if maxTokens > spec.MaxTokens {
		maxTokens = spec.MaxTokens
	}

	preset := &model.GptPreset{
		Name:        name,
		Model:       input.Model,
		MaxTokens:   maxTokens,
		Temperature: input.Temperature,
		CourseID:    input.CourseID,
	}
	if err := s.presetRepo.Create(preset); err != nil {
		return nil, err
	}
	return preset, nil
}

func (s *PresetService) List() ([]model.GptPreset, error) {
	return s.presetRepo.List()
}

func (s *PresetService) Get(id uint) (*model.GptPreset, error) {
	if id == 0 {
		return nil, ErrInvalidInput
	}
	preset, err := s.presetRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if preset == nil {
		return nil, ErrPresetNotFound
	}
	return preset, nil
}

func (s *PresetService) Update(id uint, input PresetInput) (*model.GptPreset, error) {
	preset, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	spec, ok := ai.LookupModel(input.Model)
	if !ok {
		return nil, ErrPresetModelUnknown
	}
	if input.Temperature < 0 || input.Temperature > 1 {
		return nil, ErrInvalidInput
	}
	course, err := s.courseRepo.GetByIDAndAdminID(preset.CourseID, input.AdminID)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, ErrCourseNotFound
	}

	if name := strings.TrimSpace(input.Name); name != "" {
		preset.Name = name
	}
	preset.Model = input.Model
	preset.Temperature = input.Temperature
	preset.MaxTokens = input.MaxTokens
	if preset.MaxTokens <= 0 {
		preset.MaxTokens = 150
	}
	if preset.MaxTokens > spec.MaxTokens {
		preset.MaxTokens = spec.MaxTokens
	}

	if err := s.presetRepo.Update(preset); err != nil {
		return nil, err
	}
	return preset, nil
}

func (s *PresetService) Delete(id uint) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	return s.presetRepo.DeleteByID(id)
}

// PresetForCourse resolves the generation preset for a course channel.
// Returns nil when the course has none configured.
func (s *PresetService) PresetForCourse(courseID uint) (*model.GptPreset, error) {
	if courseID == 0 {
		return nil, ErrInvalidInput
	}
	return s.presetRepo.GetByCourseID(courseID)
}

// Models lists the supported model catalog for admin UIs.
func (s *PresetService) Models() []ai.ModelSpec {
	return ai.SupportedModels()
}
