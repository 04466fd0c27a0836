package memory

import (
	"context"
	"sync"
	"time"

	"timed-quiz-service/internal/domain"
)

// ProfileStore keeps users, accuracy, review sets and result history in process memory.
type ProfileStore struct {
	mu       sync.RWMutex
	users    map[string]domain.User
	accuracy map[string]domain.AccuracyByCategory
	review   map[string][]domain.AnswerRecord
	results  map[string]map[string][]domain.AnswerRecord
}

func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		users:    make(map[string]domain.User),
		accuracy: make(map[string]domain.AccuracyByCategory),
		review:   make(map[string][]domain.AnswerRecord),
		results:  make(map[string]map[string][]domain.AnswerRecord),
	}
}

func (s *ProfileStore) GetUser(_ context.Context, userID string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *ProfileStore) SaveUser(_ context.Context, userID, nickname string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, other := range s.users {
		if id != userID && other.Nickname == nickname {
			return domain.ErrNicknameTaken
		}
	}
	user := s.users[userID]
	user.UserID = userID
	user.Nickname = nickname
	s.users[userID] = user
	return nil
}

func (s *ProfileStore) TouchLastLogin(_ context.Context, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	user.LastLogin = &at
	s.users[userID] = user
	return nil
}

func (s *ProfileStore) IsNicknameTaken(_ context.Context, nickname string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Nickname == nickname {
			return true, nil
		}
	}
	return false, nil
}

func (s *ProfileStore) GetAccuracy(_ context.Context, userID string) (domain.AccuracyByCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(domain.AccuracyByCategory, len(s.accuracy[userID]))
	for k, v := range s.accuracy[userID] {
		out[k] = v
	}
	return out, nil
}

func (s *ProfileStore) SetAccuracy(_ context.Context, userID, category string, correct, total int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byCategory, ok := s.accuracy[userID]
	if !ok {
		byCategory = make(domain.AccuracyByCategory)
		s.accuracy[userID] = byCategory
	}
	byCategory[category] = domain.Accuracy{TotalAttempts: total, CorrectAnswers: correct}
	return nil
}

func (s *ProfileStore) ListRankings(_ context.Context) ([]domain.Ranking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	nicknames := make(map[string]string, len(s.users))
	for id, u := range s.users {
		nicknames[id] = u.Nickname
	}
	return domain.BuildRankings(s.accuracy, nicknames), nil
}

func (s *ProfileStore) GetReviewSet(_ context.Context, userID string) ([]domain.AnswerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.AnswerRecord(nil), s.review[userID]...), nil
}

func (s *ProfileStore) SetReviewSet(_ context.Context, userID string, records []domain.AnswerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(records) == 0 {
		delete(s.review, userID)
		return nil
	}
	s.review[userID] = append([]domain.AnswerRecord(nil), records...)
	return nil
}

func (s *ProfileStore) SaveQuizResult(_ context.Context, userID, category string, records []domain.AnswerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byCategory, ok := s.results[userID]
	if !ok {
		byCategory = make(map[string][]domain.AnswerRecord)
		s.results[userID] = byCategory
	}
	byCategory[category] = append([]domain.AnswerRecord(nil), records...)
	return nil
}

func (s *ProfileStore) GetQuizResult(_ context.Context, userID, category string) ([]domain.AnswerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.AnswerRecord(nil), s.results[userID][category]...), nil
}
