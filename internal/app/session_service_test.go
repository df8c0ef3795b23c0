package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatplatform/internal/ai"
	"chatplatform/internal/model"
)

type fakeSessionStore struct {
	current *model.ChatSession
	created []*model.ChatSession
	ended   []uint
	// histories records the serialized history at each SaveHistory call.
	histories []string
	nextID    uint
}

func (s *fakeSessionStore) CurrentByUserID(externalUserID uint) (*model.ChatSession, error) {
	return s.current, nil
}

func (s *fakeSessionStore) Create(session *model.ChatSession) error {
	s.nextID++
	session.ID = s.nextID
	s.created = append(s.created, session)
	return nil
}

func (s *fakeSessionStore) SaveHistory(session *model.ChatSession) error {
	s.histories = append(s.histories, session.ConversationHistory)
	return nil
}

func (s *fakeSessionStore) End(sessionID uint) error {
	s.ended = append(s.ended, sessionID)
	return nil
}

type fakeGateway struct {
	chunks []string
	calls  int
	// prompts records the message list of each call.
	prompts [][]ai.ChatMessage
	err     error
}

func (g *fakeGateway) StreamComplete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage, onChunk func(string) error) (string, error) {
	g.calls++
	g.prompts = append(g.prompts, messages)
	if g.err != nil {
		return "", g.err
	}
	var full strings.Builder
	for _, chunk := range g.chunks {
		if err := onChunk(chunk); err != nil {
			return "", err
		}
		full.WriteString(chunk)
	}
	return full.String(), nil
}

type fakeContent struct{ content string }

func (f *fakeContent) ContentForCourse(ctx context.Context, courseID uint) (string, error) {
	return f.content, nil
}

type fakePresets struct{ preset *model.GptPreset }

func (f *fakePresets) PresetForCourse(courseID uint) (*model.GptPreset, error) {
	return f.preset, nil
}

func chatPreset() *model.GptPreset {
	return &model.GptPreset{
		Name:      "default",
		Model:     "gpt-3.5-turbo",
		MaxTokens: 150,
		CourseID:  7,
	}
}

func newTestSessionService(store *fakeSessionStore, gw *fakeGateway, content string, preset *model.GptPreset) *SessionService {
	return NewSessionService(
		store,
		gw,
		&fakeContent{content: content},
		&fakePresets{preset: preset},
		"https://llm.example", "key",
		24*time.Hour,
		20*1024,
	)
}

func TestResolveSessionCreatesOnFirstContact(t *testing.T) {
	store := &fakeSessionStore{}
	svc := newTestSessionService(store, &fakeGateway{}, "", chatPreset())

	session, err := svc.ResolveSession(42)
	require.NoError(t, err)
	require.Len(t, store.created, 1)
	assert.True(t, session.IsActive)
	assert.Equal(t, uint(42), session.ExternalUserID)
}

func TestResolveSessionReusesActiveSession(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeSessionStore{current: &model.ChatSession{
		ID:             9,
		ExternalUserID: 42,
		IsActive:       true,
		StartedAt:      now.Add(-24*time.Hour + time.Second),
	}}
	svc := newTestSessionService(store, &fakeGateway{}, "", chatPreset())
	svc.now = func() time.Time { return now }

	session, err := svc.ResolveSession(42)
	require.NoError(t, err)
	assert.Equal(t, uint(9), session.ID)
	assert.Empty(t, store.created)
}

func TestResolveSessionReplacesSessionAtExactLifetime(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeSessionStore{current: &model.ChatSession{
		ID:             9,
		ExternalUserID: 42,
		IsActive:       true,
		StartedAt:      now.Add(-24 * time.Hour),
	}}
	svc := newTestSessionService(store, &fakeGateway{}, "", chatPreset())
	svc.now = func() time.Time { return now }

	session, err := svc.ResolveSession(42)
	require.NoError(t, err)
	assert.NotEqual(t, uint(9), session.ID)
	require.Len(t, store.created, 1)
	assert.Equal(t, now, session.StartedAt)
	assert.Equal(t, []uint{9}, store.ended)
}

func TestResolveSessionReplacesSessionPastLifetime(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeSessionStore{current: &model.ChatSession{
		ID:             9,
		ExternalUserID: 42,
		IsActive:       true,
		StartedAt:      now.Add(-24*time.Hour - time.Second),
	}}
	svc := newTestSessionService(store, &fakeGateway{}, "", chatPreset())
	svc.now = func() time.Time { return now }

	session, err := svc.ResolveSession(42)
	require.NoError(t, err)
	assert.NotEqual(t, uint(9), session.ID)
	require.Len(t, store.created, 1)
	assert.Equal(t, []uint{9}, store.ended)
}

func TestResolveSessionIgnoresEndedSession(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeSessionStore{current: &model.ChatSession{
		ID:             9,
		ExternalUserID: 42,
		IsActive:       false,
		StartedAt:      now.Add(-time.Minute),
	}}
	svc := newTestSessionService(store, &fakeGateway{}, "", chatPreset())
	svc.now = func() time.Time { return now }

	session, err := svc.ResolveSession(42)
	require.NoError(t, err)
	assert.NotEqual(t, uint(9), session.ID)
}

func TestBuildPromptOrdering(t *testing.T) {
	store := &fakeSessionStore{}
	svc := newTestSessionService(store, &fakeGateway{}, "", chatPreset())

	session := &model.ChatSession{ID: 1}
	session.AppendTurn(model.RoleUser, "earlier question")
	session.AppendTurn(model.RoleAssistant, "earlier answer")

	prompt, err := svc.BuildPrompt(session, "new question", "chapter one text")
	require.NoError(t, err)
	require.Len(t, prompt, 5)

	assert.Equal(t, model.RoleSystem, prompt[0].Role)
	assert.Equal(t, "Course materials:\nchapter one text", prompt[0].Content)
	assert.Equal(t, model.RoleSystem, prompt[1].Role)
	assert.Equal(t, "earlier question", prompt[2].Content)
	assert.Equal(t, "earlier answer", prompt[3].Content)
	assert.Equal(t, model.RoleUser, prompt[4].Role)
	assert.Equal(t, "new question", prompt[4].Content)
}

func TestBuildPromptOmitsEmptyCourseContent(t *testing.T) {
	store := &fakeSessionStore{}
	svc := newTestSessionService(store, &fakeGateway{}, "", chatPreset())

	prompt, err := svc.BuildPrompt(&model.ChatSession{ID: 1}, "hi", "")
	require.NoError(t, err)
	require.Len(t, prompt, 2)
	assert.Equal(t, model.RoleSystem, prompt[0].Role)
	assert.Equal(t, model.RoleUser, prompt[1].Role)
}

func TestOversizedMessageClearsHistoryBeforePromptBuild(t *testing.T) {
	store := &fakeSessionStore{}
	svc := newTestSessionService(store, &fakeGateway{}, "", chatPreset())

	session := &model.ChatSession{ID: 1}
	session.AppendTurn(model.RoleUser, "old turn")

	big := strings.Repeat("a", 20*1024+1)
	prompt, err := svc.BuildPrompt(session, big, "")
	require.NoError(t, err)

	// The cleared history is persisted before the prompt is assembled.
	require.Len(t, store.histories, 1)
	assert.Empty(t, store.histories[0])

	require.Len(t, prompt, 2)
	assert.Equal(t, big, prompt[1].Content)
	assert.Empty(t, session.History())
}

func TestThresholdMessageKeepsHistory(t *testing.T) {
	store := &fakeSessionStore{}
	svc := newTestSessionService(store, &fakeGateway{}, "", chatPreset())

	session := &model.ChatSession{ID: 1}
	session.AppendTurn(model.RoleUser, "old turn")

	exact := strings.Repeat("a", 20*1024)
	prompt, err := svc.BuildPrompt(session, exact, "")
	require.NoError(t, err)

	assert.Empty(t, store.histories)
	require.Len(t, prompt, 3)
	assert.Equal(t, "old turn", prompt[1].Content)
}

func TestConverseStreamsChunksInOrderAndRecordsHistory(t *testing.T) {
	store := &fakeSessionStore{}
	gw := &fakeGateway{chunks: []string{"Hel", "lo", "!"}}
	svc := newTestSessionService(store, gw, "", chatPreset())

	session := &model.ChatSession{ID: 1, ExternalUserID: 42, IsActive: true}
	prompt, err := svc.BuildPrompt(session, "greet me", "")
	require.NoError(t, err)

	var received []string
	err = svc.Converse(context.Background(), session, "greet me", prompt, chatPreset(), func(chunk string) error {
		received = append(received, chunk)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Hel", "lo", "!"}, received)

	turns := session.History()
	require.Len(t, turns, 4)
	assert.Equal(t, model.Turn{Role: model.RoleUser, Content: "greet me"}, turns[0])
	assert.Equal(t, model.Turn{Role: model.RoleAssistant, Content: "Hel"}, turns[1])
	assert.Equal(t, model.Turn{Role: model.RoleAssistant, Content: "lo"}, turns[2])
	assert.Equal(t, model.Turn{Role: model.RoleAssistant, Content: "!"}, turns[3])

	// One save for the user turn, one per chunk.
	assert.Len(t, store.histories, 4)
}

func TestConverseChunkPersistedBeforeForwarding(t *testing.T) {
	store := &fakeSessionStore{}
	gw := &fakeGateway{chunks: []string{"only"}}
	svc := newTestSessionService(store, gw, "", chatPreset())

	session := &model.ChatSession{ID: 1, ExternalUserID: 42, IsActive: true}
	prompt, err := svc.BuildPrompt(session, "q", "")
	require.NoError(t, err)

	err = svc.Converse(context.Background(), session, "q", prompt, chatPreset(), func(chunk string) error {
		// By the time the chunk arrives its record must already be saved.
		require.Len(t, store.histories, 2)
		assert.Contains(t, store.histories[1], "only")
		return nil
	})
	require.NoError(t, err)
}

func TestConverseEmptyStreamFails(t *testing.T) {
	store := &fakeSessionStore{}
	gw := &fakeGateway{chunks: nil}
	svc := newTestSessionService(store, gw, "", chatPreset())

	session := &model.ChatSession{ID: 1, ExternalUserID: 42, IsActive: true}
	prompt, err := svc.BuildPrompt(session, "q", "")
	require.NoError(t, err)

	err = svc.Converse(context.Background(), session, "q", prompt, chatPreset(), func(string) error {
		t.Fatal("no chunk expected")
		return nil
	})
	require.ErrorIs(t, err, ErrModelNoContent)

	// The user turn is recorded; no assistant record exists.
	turns := session.History()
	require.Len(t, turns, 1)
	assert.Equal(t, model.RoleUser, turns[0].Role)
}

func TestConverseRejectsNonChatModel(t *testing.T) {
	store := &fakeSessionStore{}
	gw := &fakeGateway{chunks: []string{"x"}}
	svc := newTestSessionService(store, gw, "", chatPreset())

	preset := chatPreset()
	preset.Model = "gpt-3.5-turbo-instruct"

	session := &model.ChatSession{ID: 1, ExternalUserID: 42, IsActive: true}
	err := svc.Converse(context.Background(), session, "q", nil, preset, func(string) error { return nil })
	require.ErrorIs(t, err, ErrUnsupportedModel)
	assert.Zero(t, gw.calls)
	assert.Empty(t, session.History())
}

func TestConverseRejectsUnknownModel(t *testing.T) {
	store := &fakeSessionStore{}
	svc := newTestSessionService(store, &fakeGateway{}, "", chatPreset())

	preset := chatPreset()
	preset.Model = "gpt-99"

	err := svc.Converse(context.Background(), &model.ChatSession{ID: 1}, "q", nil, preset, func(string) error { return nil })
	require.ErrorIs(t, err, ErrUnsupportedModel)
}

func TestConverseCapsMaxTokensAtModelLimit(t *testing.T) {
	store := &fakeSessionStore{}
	gw := &fakeGateway{chunks: []string{"ok"}}
	svc := newTestSessionService(store, gw, "", chatPreset())

	preset := chatPreset()
	preset.Model = "gpt-4"
	preset.MaxTokens = 100000

	session := &model.ChatSession{ID: 1, ExternalUserID: 42, IsActive: true}
	prompt, err := svc.BuildPrompt(session, "q", "")
	require.NoError(t, err)
	require.NoError(t, svc.Converse(context.Background(), session, "q", prompt, preset, func(string) error { return nil }))
	assert.Equal(t, 1, gw.calls)
}

func TestChatRunsFullTurn(t *testing.T) {
	store := &fakeSessionStore{}
	gw := &fakeGateway{chunks: []string{"answer"}}
	svc := newTestSessionService(store, gw, "course text", chatPreset())

	var received []string
	err := svc.Chat(context.Background(), 42, 7, "question", func(chunk string) error {
		received = append(received, chunk)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"answer"}, received)
	require.Len(t, store.created, 1)
	require.Len(t, gw.prompts, 1)
	assert.Equal(t, "Course materials:\ncourse text", gw.prompts[0][0].Content)
}

func TestChatFailsWithoutCourse(t *testing.T) {
	store := &fakeSessionStore{}
	svc := newTestSessionService(store, &fakeGateway{}, "", chatPreset())

	err := svc.Chat(context.Background(), 42, 0, "question", func(string) error { return nil })
	require.ErrorIs(t, err, ErrCourseRequired)
}

func TestChatFailsWithoutPreset(t *testing.T) {
	store := &fakeSessionStore{}
	svc := newTestSessionService(store, &fakeGateway{}, "", nil)

	err := svc.Chat(context.Background(), 42, 7, "question", func(string) error { return nil })
	require.ErrorIs(t, err, ErrPresetNotFound)
}

func TestChatGatewayFailureKeepsSessionUsable(t *testing.T) {
	store := &fakeSessionStore{}
	gw := &fakeGateway{err: errors.New("upstream 500")}
	svc := newTestSessionService(store, gw, "", chatPreset())

	err := svc.Chat(context.Background(), 42, 7, "question", func(string) error { return nil })
	require.Error(t, err)

	// The next turn still resolves the same session.
	store.current = store.created[0]
	gw.err = nil
	gw.chunks = []string{"recovered"}
	require.NoError(t, svc.Chat(context.Background(), 42, 7, "again", func(string) error { return nil }))
	assert.Len(t, store.created, 1)
}
