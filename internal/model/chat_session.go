package model

import (
	"encoding/json"
	"time"
)

// Turn is one role-tagged record of a session's conversation history.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ChatSession is a bounded-lifetime conversation context for one external
// user. ConversationHistory is an opaque serialized list of Turn records;
// use the accessors rather than touching the column directly.
type ChatSession struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	ExternalUserID      uint       `gorm:"not null;index" json:"external_user_id"`
	IsActive            bool       `gorm:"not null;default:true;index" json:"is_active"`
	StartedAt           time.Time  `gorm:"not null" json:"started_at"`
	EndedAt             *time.Time `json:"ended_at,omitempty"`
	ConversationHistory string     `gorm:"type:text" json:"-"`
}

// History returns the parsed conversation history, oldest first. An empty
// or unparsable column yields nil.
func (s *ChatSession) History() []Turn {
	if s.ConversationHistory == "" {
		return nil
	}
	var turns []Turn
	if err := json.Unmarshal([]byte(s.ConversationHistory), &turns); err != nil {
		return nil
	}
	return turns
}

// SetHistory replaces the stored conversation history.
func (s *ChatSession) SetHistory(turns []Turn) {
	if len(turns) == 0 {
		s.ConversationHistory = ""
		return
	}
	b, _ := json.Marshal(turns)
	s.ConversationHistory = string(b)
}

// AppendTurn adds one record to the end of the history.
func (s *ChatSession) AppendTurn(role, content string) {
	s.SetHistory(append(s.History(), Turn{Role: role, Content: content}))
}

// ClearHistory empties the history without ending the session.
func (s *ChatSession) ClearHistory() {
	s.ConversationHistory = ""
}

// ActiveWithin reports whether the session still counts as current: the
// active flag is set and less than lifetime has elapsed since StartedAt.
// A session aged exactly lifetime is stale.
func (s *ChatSession) ActiveWithin(lifetime time.Duration, now time.Time) bool {
	return s.IsActive && now.Sub(s.StartedAt) < lifetime
}
