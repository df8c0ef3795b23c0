package app

import (
	"context"
	"errors"
	"time"

	"chatplatform/internal/ai"
	"chatplatform/internal/model"
)

// assistantPersona is the fixed instruction injected into every prompt,
// after the course material block.
const assistantPersona = "You are an assistant with access to course documents. " +
	"Use these documents to inform your answers, and provide detailed, accurate and informative responses."

var (
	ErrPresetNotFound   = errors.New("no preset configured for course")
	ErrUnsupportedModel = errors.New("preset references an unsupported model")
	ErrModelNoContent   = errors.New("model returned no content")
	ErrCourseRequired   = errors.New("course id is required")
)

// SessionStore is the durable record of chat sessions and their rolling
// history.
type SessionStore interface {
	CurrentByUserID(externalUserID uint) (*model.ChatSession, error)
	Create(session *model.ChatSession) error
	SaveHistory(session *model.ChatSession) error
	End(sessionID uint) error
}

// ModelGateway produces a streamed completion for an ordered message list.
type ModelGateway interface {
	StreamComplete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage, onChunk func(string) error) (string, error)
}

// CourseContentProvider yields the concatenated text content of a course's
// documents.
type CourseContentProvider interface {
	ContentForCourse(ctx context.Context, courseID uint) (string, error)
}

// PresetProvider resolves the generation preset bound to a course.
type PresetProvider interface {
	PresetForCourse(courseID uint) (*model.GptPreset, error)
}

// SessionService coordinates one user turn: it resolves the current chat
// session, assembles the prompt, streams the model response back in order
// and keeps the persisted history consistent along the way.
type SessionService struct {
	sessions SessionStore
	gateway  ModelGateway
	content  CourseContentProvider
	presets  PresetProvider

	llmBaseURL     string
	llmAPIKey      string
	lifetime       time.Duration
	clearThreshold int

	now func() time.Time
}

func NewSessionService(
	sessions SessionStore,
	gateway ModelGateway,
	content CourseContentProvider,
	presets PresetProvider,
	llmBaseURL, llmAPIKey string,
	lifetime time.Duration,
	clearThreshold int,
) *SessionService {
	if lifetime <= 0 {
		lifetime = 24 * time.Hour
	}
	if clearThreshold <= 0 {
		clearThreshold = 20 * 1024
	}
	return &SessionService{
		sessions:       sessions,
		gateway:        gateway,
		content:        content,
		presets:        presets,
		llmBaseURL:     llmBaseURL,
		llmAPIKey:      llmAPIKey,
		lifetime:       lifetime,
		clearThreshold: clearThreshold,
		now:            time.Now,
	}
}

// ResolveSession returns the user's current session, creating a fresh one
// when none exists or the newest active session has outlived the configured
// lifetime. Concurrent calls for one user may race and create two sessions;
// each keeps independent history, so the race is tolerated rather than
// locked away.
func (s *SessionService) ResolveSession(externalUserID uint) (*model.ChatSession, error) {
	if externalUserID == 0 {
		return nil, ErrInvalidInput
	}

	current, err := s.sessions.CurrentByUserID(externalUserID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if current != nil {
		if current.ActiveWithin(s.lifetime, now) {
			return current, nil
		}
		// The session outlived its lifetime; retire it before starting
		// the replacement.
		if err := s.sessions.End(current.ID); err != nil {
			return nil, err
		}
	}

	session := &model.ChatSession{
		ExternalUserID: externalUserID,
		IsActive:       true,
		StartedAt:      now,
	}
	if err := s.sessions.Create(session); err != nil {
		return nil, err
	}
	return session, nil
}

// BuildPrompt assembles the ordered message list for one turn: course
// material system message (when any), the persona instruction, the stored
// history oldest first, and the new user turn last.
//
// When the new message encodes to more than the clear threshold the
// session's history is emptied and persisted before the prompt is built, so
// the oversized turn never rides on top of accumulated context.
func (s *SessionService) BuildPrompt(session *model.ChatSession, newMessage, courseContent string) ([]ai.ChatMessage, error) {
	if len(newMessage) > s.clearThreshold {
		session.ClearHistory()
		if err := s.sessions.SaveHistory(session); err != nil {
			return nil, err
		}
	}

	history := session.History()
	messages := make([]ai.ChatMessage, 0, len(history)+3)
	if courseContent != "" {
		messages = append(messages, ai.ChatMessage{
			Role:    model.RoleSystem,
			Content: "Course materials:\n" + courseContent,
		})
	}
	messages = append(messages, ai.ChatMessage{Role: model.RoleSystem, Content: assistantPersona})
	for _, turn := range history {
		messages = append(messages, ai.ChatMessage{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, ai.ChatMessage{Role: model.RoleUser, Content: newMessage})
	return messages, nil
}

// Converse invokes the model gateway with the prepared prompt and forwards
// each produced chunk to onChunk in generation order. The user's turn is
// appended and persisted before the first chunk; every chunk is appended as
// its own assistant record and persisted before it is forwarded. A stream
// that produces no content yields ErrModelNoContent and leaves no assistant
// record behind.
func (s *SessionService) Converse(
	ctx context.Context,
	session *model.ChatSession,
	userMessage string,
	prompt []ai.ChatMessage,
	preset *model.GptPreset,
	onChunk func(string) error,
) error {
	spec, ok := ai.LookupModel(preset.Model)
	if !ok || !spec.Chat {
		return ErrUnsupportedModel
	}

	session.AppendTurn(model.RoleUser, userMessage)
	if err := s.sessions.SaveHistory(session); err != nil {
		return err
	}

	cfg := ai.ChatConfig{
		BaseURL:     s.llmBaseURL,
		APIKey:      s.llmAPIKey,
		Model:       preset.Model,
		MaxTokens:   preset.MaxTokens,
		Temperature: preset.Temperature,
	}
	if cfg.MaxTokens <= 0 || cfg.MaxTokens > spec.MaxTokens {
		cfg.MaxTokens = spec.MaxTokens
	}

	chunks := 0
	_, err := s.gateway.StreamComplete(ctx, cfg, prompt, func(chunk string) error {
		if chunk == "" {
			return ErrModelNoContent
		}
		session.AppendTurn(model.RoleAssistant, chunk)
		if err := s.sessions.SaveHistory(session); err != nil {
			return err
		}
		chunks++
		return onChunk(chunk)
	})
	if err != nil {
		return err
	}
	if chunks == 0 {
		return ErrModelNoContent
	}
	return nil
}

// Chat runs one full turn for an external user against a course: resolve
// session, gather course content, build the prompt and stream the reply.
// Any failure ends only this turn; the session stays usable.
func (s *SessionService) Chat(ctx context.Context, externalUserID, courseID uint, message string, onChunk func(string) error) error {
	if courseID == 0 {
		return ErrCourseRequired
	}

	session, err := s.ResolveSession(externalUserID)
	if err != nil {
		return err
	}

	preset, err := s.presets.PresetForCourse(courseID)
	if err != nil {
		return err
	}
	if preset == nil {
		return ErrPresetNotFound
	}

	content, err := s.content.ContentForCourse(ctx, courseID)
	if err != nil {
		return err
	}

	prompt, err := s.BuildPrompt(session, message, content)
	if err != nil {
		return err
	}
	return s.Converse(ctx, session, message, prompt, preset, onChunk)
}
