package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"timed-quiz-service/internal/domain"
)

func TestProfileStoreUsers(t *testing.T) {
	ctx := context.Background()
	store := NewProfileStore()

	if _, err := store.GetUser(ctx, "1"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := store.TouchLastLogin(ctx, "1", time.Now()); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected not found on touch, got %v", err)
	}

	_ = store.SaveUser(ctx, "1", "alice")
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := store.TouchLastLogin(ctx, "1", at); err != nil {
		t.Fatalf("touch: %v", err)
	}
	user, err := store.GetUser(ctx, "1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if user.Nickname != "alice" || user.LastLogin == nil || !user.LastLogin.Equal(at) {
		t.Fatalf("unexpected user %+v", user)
	}

	taken, _ := store.IsNicknameTaken(ctx, "alice")
	free, _ := store.IsNicknameTaken(ctx, "bob")
	if !taken || free {
		t.Fatalf("expected alice taken and bob free, got %v %v", taken, free)
	}
}

func TestProfileStoreAccuracyOverwrites(t *testing.T) {
	ctx := context.Background()
	store := NewProfileStore()

	_ = store.SetAccuracy(ctx, "1", "Milk", 3, 5)
	_ = store.SetAccuracy(ctx, "1", "Milk", 4, 5)
	_ = store.SetAccuracy(ctx, "1", "Beans", 2, 2)

	accuracy, _ := store.GetAccuracy(ctx, "1")
	if got := accuracy["Milk"]; got != (domain.Accuracy{TotalAttempts: 5, CorrectAnswers: 4}) {
		t.Fatalf("expected {5 4}, got %+v", got)
	}
	if !accuracy["Beans"].Cleared() {
		t.Fatalf("expected Beans cleared")
	}
}

func TestProfileStoreRankings(t *testing.T) {
	ctx := context.Background()
	store := NewProfileStore()
	_ = store.SaveUser(ctx, "1", "A")
	_ = store.SaveUser(ctx, "2", "B")
	for _, c := range []string{"x", "y"} {
		_ = store.SetAccuracy(ctx, "1", c, 3, 3)
	}
	for _, c := range []string{"x", "y", "z"} {
		_ = store.SetAccuracy(ctx, "2", c, 4, 4)
	}

	rankings, _ := store.ListRankings(ctx)
	if len(rankings) != 2 || rankings[0].Nickname != "B" || rankings[0].ClearCount != 3 || rankings[1].ClearCount != 2 {
		t.Fatalf("expected B before A, got %+v", rankings)
	}
}

func TestProfileStoreReviewSetAndResults(t *testing.T) {
	ctx := context.Background()
	store := NewProfileStore()
	records := []domain.AnswerRecord{{Question: "A?", CorrectAnswer: "x", Choices: []string{"x", "y"}, Selected: "y"}}

	_ = store.SetReviewSet(ctx, "1", records)
	got, _ := store.GetReviewSet(ctx, "1")
	if len(got) != 1 || got[0].Selected != "y" {
		t.Fatalf("unexpected review set %+v", got)
	}
	_ = store.SetReviewSet(ctx, "1", nil)
	if got, _ = store.GetReviewSet(ctx, "1"); len(got) != 0 {
		t.Fatalf("expected review set cleared, got %+v", got)
	}

	_ = store.SaveQuizResult(ctx, "1", "Milk", records)
	result, _ := store.GetQuizResult(ctx, "1", "Milk")
	if len(result) != 1 {
		t.Fatalf("expected stored result, got %+v", result)
	}
	if other, _ := store.GetQuizResult(ctx, "1", "Tea"); len(other) != 0 {
		t.Fatalf("expected no result for Tea, got %+v", other)
	}
}

func TestProfileStoreSaveUserNicknameConflict(t *testing.T) {
	ctx := context.Background()
	store := NewProfileStore()

	if err := store.SaveUser(ctx, "1", "alice"); err != nil {
		t.Fatalf("save user: %v", err)
	}
	if err := store.SaveUser(ctx, "2", "alice"); !errors.Is(err, domain.ErrNicknameTaken) {
		t.Fatalf("expected nickname taken, got %v", err)
	}
	if err := store.SaveUser(ctx, "1", "alice"); err != nil {
		t.Fatalf("re-saving own nickname: %v", err)
	}
}
