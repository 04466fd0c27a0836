package app

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"timed-quiz-service/internal/clock"
	"timed-quiz-service/internal/domain"
)

// QuizDeps wires the quiz use cases.
type QuizDeps struct {
	Content     ContentGateway
	Sessions    SessionRepository
	Transfers   TransferStore
	Profiles    ProfileStore
	Aggregator  *Aggregator
	Clock       clock.Clock
	Timing      Timing
	TransferTTL time.Duration
	Logger      *slog.Logger
	// NewID and NewRand are overridable for deterministic tests.
	NewID   func() string
	NewRand func() *rand.Rand
}

// QuizService contains the quiz and review use cases.
type QuizService struct {
	content     ContentGateway
	sessions    SessionRepository
	transfers   TransferStore
	profiles    ProfileStore
	aggregator  *Aggregator
	clock       clock.Clock
	timing      Timing
	transferTTL time.Duration
	logger      *slog.Logger
	newID       func() string
	newRand     func() *rand.Rand
}

func NewQuizService(deps QuizDeps) *QuizService {
	s := &QuizService{
		content:     deps.Content,
		sessions:    deps.Sessions,
		transfers:   deps.Transfers,
		profiles:    deps.Profiles,
		aggregator:  deps.Aggregator,
		clock:       deps.Clock,
		timing:      deps.Timing,
		transferTTL: deps.TransferTTL,
		logger:      deps.Logger,
		newID:       deps.NewID,
		newRand:     deps.NewRand,
	}
	if s.clock == nil {
		s.clock = clock.Real()
	}
	if s.timing.Unit <= 0 {
		s.timing = DefaultTiming()
	}
	if s.transferTTL <= 0 {
		s.transferTTL = 30 * time.Minute
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.newRand == nil {
		s.newRand = func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		}
	}
	return s
}

// transferPayload is what the summary view reads once after a quiz.
type transferPayload struct {
	UserID        string                `json:"userId,omitempty"`
	Category      string                `json:"category"`
	Records       []domain.AnswerRecord `json:"records"`
	Score         int                   `json:"score"`
	Total         int                   `json:"total"`
	ReviewOffered bool                  `json:"reviewOffered"`
}

// Categories lists the categories offered on the home view. A failing content
// source yields an empty list.
func (s *QuizService) Categories(ctx context.Context) []string {
	categories, err := s.content.ListCategories(ctx)
	if err != nil {
		s.logger.Warn("fetch categories failed", "error", err)
		return []string{}
	}
	if categories == nil {
		return []string{}
	}
	return categories
}

// StartQuiz creates and starts a scored session for category. userID may be
// empty; such sessions are scored but never persisted. When the category has
// no questions the session is reported unavailable.
func (s *QuizService) StartQuiz(ctx context.Context, userID, category string) (View, error) {
	questions, err := s.content.ListQuestions(ctx, category)
	if err != nil {
		s.logger.Warn("fetch questions failed", "category", category, "error", err)
		questions = nil
	}

	engine := NewEngine(EngineConfig{
		ID:         s.newID(),
		Mode:       QuizMode(s.timing),
		Timing:     s.timing,
		Clock:      s.clock,
		Rand:       s.newRand(),
		Questions:  questions,
		Category:   category,
		UserID:     userID,
		OnComplete: s.completeQuiz,
		OnClose:    s.sessions.Delete,
	})
	s.sessions.Save(engine)
	engine.Start()

	view := engine.Snapshot()
	if view.State == StateUnavailable {
		s.logger.Info("no questions for category", "category", category, "session", engine.ID())
	}
	return view, nil
}

// StartReview replays the user's stored review set. The set is cleared only
// when the review runs to completion.
func (s *QuizService) StartReview(ctx context.Context, userID string) (View, error) {
	if userID == "" {
		return View{}, domain.ErrNoReviewSet
	}
	records, err := s.profiles.GetReviewSet(ctx, userID)
	if err != nil {
		s.logger.Warn("fetch review set failed", "user", userID, "error", err)
		return View{}, domain.ErrNoReviewSet
	}
	if len(records) == 0 {
		return View{}, domain.ErrNoReviewSet
	}

	engine := NewEngine(EngineConfig{
		ID:         s.newID(),
		Mode:       ReviewMode(s.timing),
		Timing:     s.timing,
		Clock:      s.clock,
		Questions:  domain.QuestionsFromRecords(records),
		UserID:     userID,
		OnComplete: s.completeReview,
		OnClose:    s.sessions.Delete,
	})
	s.sessions.Save(engine)
	engine.Start()
	return engine.Snapshot(), nil
}

// Answer submits a choice for the current question.
func (s *QuizService) Answer(_ context.Context, sessionID, userID, choice string) (View, error) {
	engine, err := s.lookup(sessionID, userID)
	if err != nil {
		return View{}, err
	}
	if !engine.Submit(choice) {
		return engine.Snapshot(), domain.ErrNotAccepting
	}
	return engine.Snapshot(), nil
}

// Next confirms the revealed answer of a review card.
func (s *QuizService) Next(_ context.Context, sessionID, userID string) (View, error) {
	engine, err := s.lookup(sessionID, userID)
	if err != nil {
		return View{}, err
	}
	if !engine.Next() {
		return engine.Snapshot(), domain.ErrNotAccepting
	}
	return engine.Snapshot(), nil
}

// Snapshot returns the current view of a session.
func (s *QuizService) Snapshot(_ context.Context, sessionID, userID string) (View, error) {
	engine, err := s.lookup(sessionID, userID)
	if err != nil {
		return View{}, err
	}
	return engine.Snapshot(), nil
}

// Subscribe returns a channel that receives session views.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(_ context.Context, sessionID, userID string) (<-chan View, func(), error) {
	engine, err := s.lookup(sessionID, userID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := engine.Subscribe()
	return ch, cancel, nil
}

// Result reads the summary of a completed quiz. It can be read once, and only
// by the user the quiz was started for; the session is retired afterwards.
func (s *QuizService) Result(ctx context.Context, sessionID, userID string) (domain.Result, error) {
	if engine, ok := s.sessions.Get(sessionID); ok {
		if engine.Owner() != "" && engine.Owner() != userID {
			return domain.Result{}, domain.ErrForbidden
		}
	}

	raw, err := s.transfers.Take(ctx, transferKey(sessionID))
	if err != nil {
		if !errors.Is(err, domain.ErrTransferNotFound) {
			s.logger.Warn("read transfer failed", "session", sessionID, "error", err)
		}
		return domain.Result{}, domain.ErrTransferNotFound
	}

	var payload transferPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		s.logger.Warn("transfer payload invalid", "session", sessionID, "error", err)
		return domain.Result{}, domain.ErrTransferInvalid
	}
	// the session may already be retired, so the payload carries the owner
	if payload.UserID != "" && payload.UserID != userID {
		if err := s.transfers.Put(ctx, transferKey(sessionID), raw, s.transferTTL); err != nil {
			s.logger.Warn("restore transfer failed", "session", sessionID, "error", err)
		}
		return domain.Result{}, domain.ErrForbidden
	}

	if engine, ok := s.sessions.Get(sessionID); ok {
		engine.Close()
	}
	return domain.Result{
		Category:      payload.Category,
		Records:       payload.Records,
		Score:         payload.Score,
		Total:         payload.Total,
		Review:        domain.ReviewSet(payload.Records),
		ReviewOffered: payload.ReviewOffered,
	}, nil
}

// Leave is called when a live client goes away. Finished and unavailable
// sessions are retired; running ones are left to finish on their own clock.
func (s *QuizService) Leave(_ context.Context, sessionID string) {
	engine, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	switch engine.Snapshot().State {
	case StateUnavailable:
		engine.Close()
	case StateComplete:
		if engine.Kind() == KindReview {
			engine.Close()
		}
	}
}

func (s *QuizService) lookup(sessionID, userID string) (*Engine, error) {
	engine, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if engine.Owner() != "" && engine.Owner() != userID {
		return nil, domain.ErrForbidden
	}
	return engine, nil
}

func (s *QuizService) completeQuiz(o Outcome) {
	result := s.aggregator.Aggregate(Completion{
		SessionID: o.SessionID,
		Category:  o.Category,
		UserID:    o.UserID,
		Records:   o.Records,
	})
	if result.Score != o.Tally {
		s.logger.Warn("running tally disagrees with records", "session", o.SessionID, "tally", o.Tally, "score", result.Score)
	}

	raw, err := json.Marshal(transferPayload{
		UserID:        o.UserID,
		Category:      result.Category,
		Records:       result.Records,
		Score:         result.Score,
		Total:         result.Total,
		ReviewOffered: result.ReviewOffered,
	})
	if err != nil {
		s.logger.Error("encode transfer payload", "session", o.SessionID, "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.transfers.Put(ctx, transferKey(o.SessionID), raw, s.transferTTL); err != nil {
		s.logger.Warn("write transfer failed", "session", o.SessionID, "error", err)
	}
}

func (s *QuizService) completeReview(o Outcome) {
	s.aggregator.ConsumeReview(o.UserID)
}

func transferKey(sessionID string) string {
	return "result:" + sessionID
}
