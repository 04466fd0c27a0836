package redis

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"timed-quiz-service/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Engines stay in process; Redis only carries a liveness marker per session
// so operators can count live sessions across instances.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*app.Engine
}

func NewSessionStore(client *redis.Client, ttl time.Duration, logger *slog.Logger) *SessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		logger:   logger,
		sessions: make(map[string]*app.Engine),
	}
}

func (s *SessionStore) Save(session *app.Engine) {
	s.mu.Lock()
	s.sessions[session.ID()] = session
	s.mu.Unlock()

	// best-effort liveness marker
	value := session.Kind() + ":" + session.Category()
	if err := s.client.Set(context.Background(), s.key(session.ID()), value, s.ttl).Err(); err != nil {
		s.logger.Warn("session marker write failed", "session", session.ID(), "error", err)
	}
}

func (s *SessionStore) Get(sessionID string) (*app.Engine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if err := s.client.Del(context.Background(), s.key(sessionID)).Err(); err != nil {
		s.logger.Warn("session marker delete failed", "session", sessionID, "error", err)
	}
}

// Live counts session markers across all instances sharing the Redis.
func (s *SessionStore) Live(ctx context.Context) (int, error) {
	iter := s.client.Scan(ctx, 0, "quiz:session:*", 100).Iterator()
	n := 0
	for iter.Next(ctx) {
		n++
	}
	return n, iter.Err()
}

func (s *SessionStore) key(sessionID string) string {
	return "quiz:session:" + sessionID
}
