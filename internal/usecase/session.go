package usecase

import (
	"sync"

	"github.com/YichunLL/gGPT/internal/domain"
)

// Session is one conversation: its history and its turn lock. The history
// always starts with the system prompt and only grows for the lifetime of
// the process. The lock serializes turns, so at most one turn mutates the
// session at a time.
type Session struct {
	id string

	mu      sync.Mutex
	history []domain.ChatMessage
}

// NewSession creates a session whose history is seeded with the system
// prompt.
func NewSession(id string) *Session {
	return &Session{
		id: id,
		history: []domain.ChatMessage{
			{Role: domain.RoleSystem, Content: SystemPrompt},
		},
	}
}

func (s *Session) ID() string { return s.id }

// History returns a copy of the conversation history. It blocks while a
// turn is in flight.
func (s *Session) History() []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// snapshot copies the history. Callers must hold mu.
func (s *Session) snapshot() []domain.ChatMessage {
	out := make([]domain.ChatMessage, len(s.history))
	copy(out, s.history)
	return out
}

// append extends the history. Callers must hold mu.
func (s *Session) append(msgs ...domain.ChatMessage) {
	s.history = append(s.history, msgs...)
}
