package memory

import (
	"sync"

	"timed-quiz-service/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
// It never calls into the engines it holds, so engines may remove themselves
// while locked.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.Engine
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.Engine),
	}
}

func (s *SessionStore) Save(session *app.Engine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID()] = session
}

func (s *SessionStore) Get(sessionID string) (*app.Engine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// Len reports how many sessions are live.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
