package app

import (
	"context"
	"time"

	"timed-quiz-service/internal/domain"
)

// ContentGateway loads questions and categories from a content source.
type ContentGateway interface {
	ListCategories(ctx context.Context) ([]string, error)
	ListQuestions(ctx context.Context, category string) ([]domain.Question, error)
}

// ProfileStore persists users, their per-category accuracy and review sets.
type ProfileStore interface {
	GetUser(ctx context.Context, userID string) (domain.User, error)
	SaveUser(ctx context.Context, userID, nickname string) error
	TouchLastLogin(ctx context.Context, userID string, at time.Time) error
	IsNicknameTaken(ctx context.Context, nickname string) (bool, error)

	GetAccuracy(ctx context.Context, userID string) (domain.AccuracyByCategory, error)
	// SetAccuracy overwrites the record for category; it never accumulates.
	SetAccuracy(ctx context.Context, userID, category string, correct, total int) error
	ListRankings(ctx context.Context) ([]domain.Ranking, error)

	GetReviewSet(ctx context.Context, userID string) ([]domain.AnswerRecord, error)
	// SetReviewSet replaces the stored review set; an empty slice clears it.
	SetReviewSet(ctx context.Context, userID string, records []domain.AnswerRecord) error

	SaveQuizResult(ctx context.Context, userID, category string, records []domain.AnswerRecord) error
	GetQuizResult(ctx context.Context, userID, category string) ([]domain.AnswerRecord, error)
}

// SessionRepository abstracts where live sessions are kept (in-memory, Redis-marked, etc).
type SessionRepository interface {
	Save(session *Engine)
	Get(sessionID string) (*Engine, bool)
	Delete(sessionID string)
}

// TransferStore hands a payload from one view to the next exactly once.
type TransferStore interface {
	Put(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	// Take returns and removes the payload, or domain.ErrTransferNotFound.
	Take(ctx context.Context, key string) ([]byte, error)
}

// Dispatcher runs persistence jobs without blocking the caller. Jobs with
// the same key run in dispatch order.
type Dispatcher interface {
	Dispatch(key, name string, job func(ctx context.Context) error)
}
