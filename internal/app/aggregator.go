package app

import (
	"context"
	"log/slog"

	"timed-quiz-service/internal/domain"
)

// Completion is what a finished quiz hands over for scoring.
type Completion struct {
	SessionID string
	Category  string
	UserID    string
	Records   []domain.AnswerRecord
}

// Aggregator scores completed sessions and records the outcome for the user.
type Aggregator struct {
	profiles ProfileStore
	dispatch Dispatcher
	logger   *slog.Logger
}

func NewAggregator(profiles ProfileStore, dispatch Dispatcher, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{profiles: profiles, dispatch: dispatch, logger: logger}
}

// Aggregate derives the score and review set from the records alone, then
// queues the accuracy overwrite, the review-set replacement and the result
// history for the user. Sessions without a user are scored but not saved.
func (a *Aggregator) Aggregate(c Completion) domain.Result {
	records := append([]domain.AnswerRecord(nil), c.Records...)
	review := domain.ReviewSet(records)
	result := domain.Result{
		Category:      c.Category,
		Records:       records,
		Score:         domain.CountCorrect(records),
		Total:         len(records),
		Review:        review,
		ReviewOffered: len(review) > 0 && c.UserID != "",
	}

	if c.UserID == "" {
		a.logger.Debug("anonymous session, skipping persistence", "session", c.SessionID, "category", c.Category)
		return result
	}

	userID, category := c.UserID, c.Category
	score, total := result.Score, result.Total
	a.dispatch.Dispatch(userID, "accuracy", func(ctx context.Context) error {
		return a.profiles.SetAccuracy(ctx, userID, category, score, total)
	})
	a.dispatch.Dispatch(userID, "review-set", func(ctx context.Context) error {
		return a.profiles.SetReviewSet(ctx, userID, review)
	})
	a.dispatch.Dispatch(userID, "quiz-result", func(ctx context.Context) error {
		return a.profiles.SaveQuizResult(ctx, userID, category, records)
	})
	return result
}

// ConsumeReview clears the user's review set after a finished review pass.
func (a *Aggregator) ConsumeReview(userID string) {
	if userID == "" {
		return
	}
	a.dispatch.Dispatch(userID, "review-clear", func(ctx context.Context) error {
		return a.profiles.SetReviewSet(ctx, userID, nil)
	})
}
