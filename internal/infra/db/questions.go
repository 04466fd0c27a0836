package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/uptrace/bun"

	"timed-quiz-service/internal/domain"
)

// ImportQuestions upserts questions by id inside one transaction and returns
// how many rows were written.
func ImportQuestions(ctx context.Context, db *bun.DB, questions []domain.Question) (int, error) {
	if len(questions) == 0 {
		return 0, nil
	}
	rows := make([]questionModel, 0, len(questions))
	for _, q := range questions {
		if q.ID == "" {
			return 0, fmt.Errorf("question %q has no id", q.Prompt)
		}
		choices, err := json.Marshal(q.Choices)
		if err != nil {
			return 0, err
		}
		row := questionModel{
			ID:        q.ID,
			Question:  q.Prompt,
			Choices:   string(choices),
			Answer:    q.Answer,
			Category:  q.Category,
			SortOrder: q.Order,
		}
		if q.Image != nil {
			url := q.Image.URL
			row.ImageURL = &url
		}
		rows = append(rows, row)
	}

	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().
			Model(&rows).
			On("CONFLICT (id) DO UPDATE").
			Set("question = EXCLUDED.question").
			Set("choices = EXCLUDED.choices").
			Set("answer = EXCLUDED.answer").
			Set("category = EXCLUDED.category").
			Set("image_url = EXCLUDED.image_url").
			Set("sort_order = EXCLUDED.sort_order").
			Exec(ctx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("import questions: %w", err)
	}
	return len(rows), nil
}

// QuestionSource reads the questions table through bun. It serves SQLite
// deployments; Postgres deployments may use the pgx source instead.
type QuestionSource struct {
	db *bun.DB
}

func NewQuestionSource(db *bun.DB) *QuestionSource {
	return &QuestionSource{db: db}
}

func (s *QuestionSource) ListCategories(ctx context.Context) ([]string, error) {
	var rows []questionModel
	err := s.db.NewSelect().
		Model(&rows).
		Column("category", "sort_order").
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select categories: %w", err)
	}
	questions := make([]domain.Question, len(rows))
	for i, r := range rows {
		questions[i] = domain.Question{Category: r.Category, Order: r.SortOrder}
	}
	return domain.OrderCategories(questions), nil
}

func (s *QuestionSource) ListQuestions(ctx context.Context, category string) ([]domain.Question, error) {
	var rows []questionModel
	err := s.db.NewSelect().
		Model(&rows).
		Where("category = ?", category).
		OrderExpr("sort_order ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select questions: %w", err)
	}
	out := make([]domain.Question, 0, len(rows))
	for _, r := range rows {
		q, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		if domain.ValidQuestion(q) {
			out = append(out, q)
		}
	}
	return out, nil
}

func (r questionModel) toDomain() (domain.Question, error) {
	var choices []string
	if err := json.Unmarshal([]byte(r.Choices), &choices); err != nil {
		return domain.Question{}, fmt.Errorf("decode choices of %s: %w", r.ID, err)
	}
	q := domain.Question{
		ID:       r.ID,
		Prompt:   r.Question,
		Choices:  choices,
		Answer:   r.Answer,
		Category: r.Category,
		Order:    r.SortOrder,
	}
	if r.ImageURL != nil && *r.ImageURL != "" {
		q.Image = &domain.Image{URL: *r.ImageURL}
	}
	return q, nil
}
