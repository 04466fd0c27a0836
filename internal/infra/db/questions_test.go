package db

import (
	"context"
	"testing"

	"timed-quiz-service/internal/domain"
)

func TestImportAndReadQuestions(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	questions := []domain.Question{
		{ID: "q1", Prompt: "A?", Choices: []string{"x", "y"}, Answer: "x", Category: "Milk", Order: 2, Image: &domain.Image{URL: "https://example.com/a.png"}},
		{ID: "q2", Prompt: "B?", Choices: []string{"x", "y"}, Answer: "y", Category: "Beans", Order: 1},
	}
	n, err := ImportQuestions(ctx, db, questions)
	if err != nil || n != 2 {
		t.Fatalf("import: %d %v", n, err)
	}

	questions[0].Prompt = "A, revised?"
	if _, err := ImportQuestions(ctx, db, questions[:1]); err != nil {
		t.Fatalf("reimport: %v", err)
	}

	source := NewQuestionSource(db)
	categories, err := source.ListCategories(ctx)
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	if len(categories) != 2 || categories[0] != "Beans" || categories[1] != "Milk" {
		t.Fatalf("expected [Beans Milk], got %v", categories)
	}

	milk, err := source.ListQuestions(ctx, "Milk")
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	if len(milk) != 1 || milk[0].Prompt != "A, revised?" || milk[0].Image == nil || len(milk[0].Choices) != 2 {
		t.Fatalf("unexpected questions %+v", milk)
	}
}

func TestImportRequiresIDs(t *testing.T) {
	db := openTestDB(t)
	if _, err := ImportQuestions(context.Background(), db, []domain.Question{{Prompt: "no id"}}); err == nil {
		t.Fatalf("expected missing id to be rejected")
	}
}
