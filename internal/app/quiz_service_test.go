package app_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/clock"
	"timed-quiz-service/internal/domain"
	"timed-quiz-service/internal/infra/memory"
	"timed-quiz-service/internal/worker"
)

type testHarness struct {
	service   *app.QuizService
	clock     *clock.Manual
	profiles  *memory.ProfileStore
	sessions  *memory.SessionStore
	transfers *memory.TransferStore
}

func newHarness(content app.ContentGateway) *testHarness {
	return newHarnessWithTiming(content, testTiming())
}

func newHarnessWithTiming(content app.ContentGateway, timing app.Timing) *testHarness {
	clk := clock.NewManual(time.Unix(0, 0))
	profiles := memory.NewProfileStore()
	sessions := memory.NewSessionStore()
	transfers := memory.NewTransferStore()
	seq := 0
	service := app.NewQuizService(app.QuizDeps{
		Content:    content,
		Sessions:   sessions,
		Transfers:  transfers,
		Profiles:   profiles,
		Aggregator: app.NewAggregator(profiles, worker.Inline{}, nil),
		Clock:      clk,
		Timing:     timing,
		NewID: func() string {
			seq++
			return fmt.Sprintf("s%d", seq)
		},
		NewRand: func() *rand.Rand { return rand.New(rand.NewSource(1)) },
	})
	return &testHarness{service: service, clock: clk, profiles: profiles, sessions: sessions, transfers: transfers}
}

func milkContent() *memory.StaticContent {
	return memory.NewStaticContent([]domain.Question{
		{ID: "q1", Prompt: "A?", Choices: []string{"x", "y"}, Answer: "x", Category: "Milk"},
	})
}

func TestQuizWrongAnswerFlow(t *testing.T) {
	ctx := context.Background()
	h := newHarness(milkContent())

	view, err := h.service.StartQuiz(ctx, "1", "Milk")
	if err != nil {
		t.Fatalf("start quiz: %v", err)
	}
	if view.State != app.StateCounting || view.Total != 1 {
		t.Fatalf("unexpected start view %+v", view)
	}

	h.clock.Advance(throughCountdown)
	if _, err := h.service.Answer(ctx, view.SessionID, "1", "y"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	h.clock.Advance(time.Second)

	result, err := h.service.Result(ctx, view.SessionID, "1")
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if result.Score != 0 || result.Total != 1 || result.Category != "Milk" {
		t.Fatalf("expected 0/1 in Milk, got %+v", result)
	}
	if len(result.Review) != 1 || result.Review[0].Selected != "y" || result.Review[0].CorrectAnswer != "x" {
		t.Fatalf("unexpected review set %+v", result.Review)
	}
	if !result.ReviewOffered {
		t.Fatalf("expected review to be offered")
	}

	accuracy, _ := h.profiles.GetAccuracy(ctx, "1")
	if accuracy["Milk"] != (domain.Accuracy{TotalAttempts: 1, CorrectAnswers: 0}) {
		t.Fatalf("unexpected accuracy %+v", accuracy)
	}
	if stored, _ := h.profiles.GetReviewSet(ctx, "1"); len(stored) != 1 {
		t.Fatalf("expected persisted review set, got %d", len(stored))
	}

	if _, err := h.service.Result(ctx, view.SessionID, "1"); !errors.Is(err, domain.ErrTransferNotFound) {
		t.Fatalf("expected result to be read once, got %v", err)
	}
	if _, ok := h.sessions.Get(view.SessionID); ok {
		t.Fatalf("expected session retired after result")
	}
}

func TestQuizTimeoutFlow(t *testing.T) {
	ctx := context.Background()
	h := newHarness(milkContent())

	view, _ := h.service.StartQuiz(ctx, "1", "Milk")
	h.clock.Advance(throughCountdown + 12*time.Second + time.Second)

	result, err := h.service.Result(ctx, view.SessionID, "1")
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if result.Score != 0 || len(result.Records) != 1 || result.Records[0].Selected != domain.TimeoutSentinel {
		t.Fatalf("expected timed-out record, got %+v", result.Records)
	}
}

func TestQuizEmptyCategoryIsUnavailable(t *testing.T) {
	ctx := context.Background()
	h := newHarness(milkContent())

	view, err := h.service.StartQuiz(ctx, "1", "Tea")
	if err != nil {
		t.Fatalf("start quiz: %v", err)
	}
	if view.State != app.StateUnavailable {
		t.Fatalf("expected unavailable, got %s", view.State)
	}
	h.clock.Advance(time.Hour)

	if _, err := h.service.Result(ctx, view.SessionID, "1"); !errors.Is(err, domain.ErrTransferNotFound) {
		t.Fatalf("expected no result, got %v", err)
	}
	if accuracy, _ := h.profiles.GetAccuracy(ctx, "1"); len(accuracy) != 0 {
		t.Fatalf("expected no persistence, got %+v", accuracy)
	}

	h.service.Leave(ctx, view.SessionID)
	if _, ok := h.sessions.Get(view.SessionID); ok {
		t.Fatalf("expected unavailable session retired on leave")
	}
}

func TestQuizContentFailureDegrades(t *testing.T) {
	ctx := context.Background()
	h := newHarness(failingContent{})

	if categories := h.service.Categories(ctx); categories == nil || len(categories) != 0 {
		t.Fatalf("expected empty categories, got %v", categories)
	}
	view, err := h.service.StartQuiz(ctx, "1", "Milk")
	if err != nil {
		t.Fatalf("expected degraded start, got %v", err)
	}
	if view.State != app.StateUnavailable {
		t.Fatalf("expected unavailable, got %s", view.State)
	}
}

func TestQuizAnonymousIsNotPersisted(t *testing.T) {
	ctx := context.Background()
	h := newHarness(milkContent())

	view, _ := h.service.StartQuiz(ctx, "", "Milk")
	h.clock.Advance(throughCountdown)
	_, _ = h.service.Answer(ctx, view.SessionID, "", "y")
	h.clock.Advance(time.Second)

	result, err := h.service.Result(ctx, view.SessionID, "")
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if result.ReviewOffered {
		t.Fatalf("expected no review for anonymous session")
	}
	if rankings, _ := h.profiles.ListRankings(ctx); len(rankings) != 0 {
		t.Fatalf("expected nothing stored, got %+v", rankings)
	}
}

func TestQuizRejectsOtherUsersAndLateInput(t *testing.T) {
	ctx := context.Background()
	h := newHarness(milkContent())

	view, _ := h.service.StartQuiz(ctx, "1", "Milk")
	if _, err := h.service.Answer(ctx, view.SessionID, "2", "x"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := h.service.Answer(ctx, view.SessionID, "1", "x"); !errors.Is(err, domain.ErrNotAccepting) {
		t.Fatalf("expected not accepting during countdown, got %v", err)
	}
	if _, err := h.service.Answer(ctx, "missing", "1", "x"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session not found, got %v", err)
	}
	if _, err := h.service.Result(ctx, view.SessionID, "2"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden result, got %v", err)
	}
}

func TestQuizInvalidTransferPayload(t *testing.T) {
	ctx := context.Background()
	h := newHarness(milkContent())

	_ = h.transfers.Put(ctx, "result:broken", []byte("{not json"), time.Minute)
	if _, err := h.service.Result(ctx, "broken", ""); !errors.Is(err, domain.ErrTransferInvalid) {
		t.Fatalf("expected invalid transfer, got %v", err)
	}
}

func TestReviewClearsSetOnlyWhenFinished(t *testing.T) {
	ctx := context.Background()
	h := newHarness(milkContent())
	missed := []domain.AnswerRecord{
		{Question: "A?", CorrectAnswer: "x", Choices: []string{"x", "y"}, Selected: "y"},
		{Question: "B?", CorrectAnswer: "y", Choices: []string{"x", "y"}, Selected: domain.TimeoutSentinel},
	}
	_ = h.profiles.SetReviewSet(ctx, "1", missed)

	// abandoned pass keeps the set
	partial, err := h.service.StartReview(ctx, "1")
	if err != nil {
		t.Fatalf("start review: %v", err)
	}
	h.clock.Advance(throughCountdown + 5*time.Second)
	h.service.Leave(ctx, partial.SessionID)
	if stored, _ := h.profiles.GetReviewSet(ctx, "1"); len(stored) != 2 {
		t.Fatalf("expected review set kept, got %d", len(stored))
	}

	view, err := h.service.StartReview(ctx, "1")
	if err != nil {
		t.Fatalf("start review: %v", err)
	}
	if _, err := h.service.Answer(ctx, view.SessionID, "1", "x"); !errors.Is(err, domain.ErrNotAccepting) {
		t.Fatalf("expected review to reject answers, got %v", err)
	}
	for i := 0; i < len(missed); i++ {
		h.clock.Advance(throughCountdown + 5*time.Second)
		if _, err := h.service.Next(ctx, view.SessionID, "1"); err != nil {
			t.Fatalf("next %d: %v", i, err)
		}
	}
	snapshot, _ := h.service.Snapshot(ctx, view.SessionID, "1")
	if snapshot.State != app.StateComplete {
		t.Fatalf("expected review complete, got %s", snapshot.State)
	}
	if stored, _ := h.profiles.GetReviewSet(ctx, "1"); len(stored) != 0 {
		t.Fatalf("expected review set consumed, got %d", len(stored))
	}

	if _, err := h.service.StartReview(ctx, "1"); !errors.Is(err, domain.ErrNoReviewSet) {
		t.Fatalf("expected no review set, got %v", err)
	}
	if _, err := h.service.StartReview(ctx, ""); !errors.Is(err, domain.ErrNoReviewSet) {
		t.Fatalf("expected anonymous review to be refused, got %v", err)
	}
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	ctx := context.Background()
	h := newHarness(milkContent())

	view, _ := h.service.StartQuiz(ctx, "1", "Milk")
	ch, cancel, err := h.service.Subscribe(ctx, view.SessionID, "1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	<-ch // initial snapshot

	h.clock.Advance(time.Second)
	update := <-ch
	if update.Countdown != 2 {
		t.Fatalf("expected countdown 2, got %+v", update)
	}
}

type failingContent struct{}

func (failingContent) ListCategories(context.Context) ([]string, error) {
	return nil, errors.New("content unavailable")
}

func (failingContent) ListQuestions(context.Context, string) ([]domain.Question, error) {
	return nil, errors.New("content unavailable")
}

func TestResultOfRetiredSessionStaysWithOwner(t *testing.T) {
	ctx := context.Background()
	timing := testTiming()
	timing.Retain = 30
	h := newHarnessWithTiming(milkContent(), timing)

	view, err := h.service.StartQuiz(ctx, "1", "Milk")
	if err != nil {
		t.Fatalf("start quiz: %v", err)
	}
	h.clock.Advance(throughCountdown)
	if _, err := h.service.Answer(ctx, view.SessionID, "1", "y"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	h.clock.Advance(time.Second)
	h.clock.Advance(31 * time.Second)
	if h.sessions.Len() != 0 {
		t.Fatalf("expected session retired after retain window")
	}

	if _, err := h.service.Result(ctx, view.SessionID, "2"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for another user, got %v", err)
	}
	if _, err := h.service.Result(ctx, view.SessionID, ""); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for anonymous caller, got %v", err)
	}

	result, err := h.service.Result(ctx, view.SessionID, "1")
	if err != nil {
		t.Fatalf("owner result: %v", err)
	}
	if result.Score != 0 || len(result.Records) != 1 || result.Records[0].Selected != "y" {
		t.Fatalf("unexpected result %+v", result)
	}
}
