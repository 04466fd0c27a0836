package app_test

import (
	"context"
	"testing"

	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/domain"
	"timed-quiz-service/internal/infra/memory"
	"timed-quiz-service/internal/worker"
)

func recordsWithScore(correct, total int) []domain.AnswerRecord {
	records := make([]domain.AnswerRecord, total)
	for i := range records {
		records[i] = domain.AnswerRecord{Question: "q", CorrectAnswer: "x", Choices: []string{"x", "y"}, Selected: "y"}
		if i < correct {
			records[i].Selected = "x"
		}
	}
	return records
}

func TestAggregateOverwritesAccuracy(t *testing.T) {
	ctx := context.Background()
	profiles := memory.NewProfileStore()
	agg := app.NewAggregator(profiles, worker.Inline{}, nil)

	agg.Aggregate(app.Completion{SessionID: "s1", Category: "C", UserID: "7", Records: recordsWithScore(3, 5)})
	agg.Aggregate(app.Completion{SessionID: "s2", Category: "C", UserID: "7", Records: recordsWithScore(4, 5)})

	accuracy, _ := profiles.GetAccuracy(ctx, "7")
	if got := accuracy["C"]; got != (domain.Accuracy{TotalAttempts: 5, CorrectAnswers: 4}) {
		t.Fatalf("expected {5 4}, got %+v", got)
	}
	review, _ := profiles.GetReviewSet(ctx, "7")
	if len(review) != 1 {
		t.Fatalf("expected latest review set of 1, got %d", len(review))
	}
	history, _ := profiles.GetQuizResult(ctx, "7", "C")
	if len(history) != 5 {
		t.Fatalf("expected result history of 5, got %d", len(history))
	}
}

func TestAggregateRecomputesScore(t *testing.T) {
	agg := app.NewAggregator(memory.NewProfileStore(), worker.Inline{}, nil)

	result := agg.Aggregate(app.Completion{Category: "C", UserID: "7", Records: recordsWithScore(2, 3)})
	if result.Score != 2 || result.Total != 3 {
		t.Fatalf("expected 2/3, got %d/%d", result.Score, result.Total)
	}
	if len(result.Review) != 1 || result.Review[0].Selected != "y" || !result.ReviewOffered {
		t.Fatalf("unexpected review %+v", result)
	}
}

func TestAggregatePerfectScoreClearsReviewSet(t *testing.T) {
	ctx := context.Background()
	profiles := memory.NewProfileStore()
	_ = profiles.SetReviewSet(ctx, "7", recordsWithScore(0, 2))
	agg := app.NewAggregator(profiles, worker.Inline{}, nil)

	result := agg.Aggregate(app.Completion{Category: "C", UserID: "7", Records: recordsWithScore(2, 2)})
	if result.ReviewOffered || len(result.Review) != 0 {
		t.Fatalf("expected no review offered, got %+v", result)
	}
	if review, _ := profiles.GetReviewSet(ctx, "7"); len(review) != 0 {
		t.Fatalf("expected stale review set cleared, got %d", len(review))
	}
}

func TestAggregateAnonymousSkipsPersistence(t *testing.T) {
	ctx := context.Background()
	profiles := memory.NewProfileStore()
	agg := app.NewAggregator(profiles, worker.Inline{}, nil)

	result := agg.Aggregate(app.Completion{Category: "C", Records: recordsWithScore(0, 1)})
	if result.Score != 0 || result.Total != 1 || len(result.Review) != 1 {
		t.Fatalf("expected in-memory result, got %+v", result)
	}
	if result.ReviewOffered {
		t.Fatalf("expected no review offered without a user")
	}
	rankings, _ := profiles.ListRankings(ctx)
	if len(rankings) != 0 {
		t.Fatalf("expected no stored accuracy, got %+v", rankings)
	}
}
