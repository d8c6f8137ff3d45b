package repl

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/soypete/calchat/pkg/conversation"
)

// Session represents a REPL session state. The conversation history lives
// here, on the client side.
type Session struct {
	mu sync.RWMutex

	ID        string
	UserEmail string
	History   conversation.History
	Turns     int
	StartTime time.Time
}

// NewSession creates a new REPL session
func NewSession(userEmail string) *Session {
	return &Session{
		ID:        uuid.New().String(),
		UserEmail: userEmail,
		History:   conversation.History{},
		StartTime: time.Now(),
	}
}

// Email returns the session email
func (s *Session) Email() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.UserEmail
}

// SetEmail replaces the session email
func (s *Session) SetEmail(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UserEmail = email
}

// Snapshot returns a copy of the conversation history
func (s *Session) Snapshot() conversation.History {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.History.Clone()
}

// Update stores the history returned by a chat call
func (s *Session) Update(history conversation.History) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.History = history
	s.Turns++
}

// Reset forgets the conversation
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.History = conversation.History{}
	s.Turns = 0
}
