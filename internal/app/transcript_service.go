package app

import (
	"fmt"

	"chatplatform/internal/model"
	"chatplatform/internal/repository"
)

// TranscriptService reads the archived channel traffic the transcript
// worker writes. Admins only see traffic of their own courses.
type TranscriptService struct {
	courseRepo  *repository.CourseRepository
	messageRepo *repository.ChannelMessageRepository
	queuePrefix string
}

func NewTranscriptService(
	courseRepo *repository.CourseRepository,
	messageRepo *repository.ChannelMessageRepository,
	queuePrefix string,
) *TranscriptService {
	return &TranscriptService{
		courseRepo:  courseRepo,
		messageRepo: messageRepo,
		queuePrefix: queuePrefix,
	}
}

// History returns up to limit archived messages of the course channel in
// chronological order.
func (s *TranscriptService) History(adminID, courseID uint, limit int) ([]model.ChannelMessage, error) {
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
	return s.messageRepo.ListByChannel(s.channelName(courseID), limit)
}

// channelName mirrors the routing key the dispatch layer publishes under.
func (s *TranscriptService) channelName(courseID uint) string {
	return fmt.Sprintf("%s%d", s.queuePrefix, courseID)
}
