package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"timed-quiz-service/internal/domain"
)

// ContentSource reads the questions table straight from Postgres with pgx.
type ContentSource struct {
	pool *pgxpool.Pool
}

func NewContentSource(pool *pgxpool.Pool) *ContentSource {
	return &ContentSource{pool: pool}
}

func (s *ContentSource) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT category, sort_order FROM questions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	defer rows.Close()

	var seen []domain.Question
	for rows.Next() {
		var q domain.Question
		if err := rows.Scan(&q.Category, &q.Order); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		seen = append(seen, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	return domain.OrderCategories(seen), nil
}

func (s *ContentSource) ListQuestions(ctx context.Context, category string) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, question, choices, answer, category, image_url, sort_order
		   FROM questions WHERE category=$1 ORDER BY sort_order, id`, category)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Question, 0)
	for rows.Next() {
		var (
			q        domain.Question
			choices  string
			imageURL *string
		)
		if err := rows.Scan(&q.ID, &q.Prompt, &choices, &q.Answer, &q.Category, &imageURL, &q.Order); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal([]byte(choices), &q.Choices); err != nil {
			return nil, fmt.Errorf("unmarshal choices of %s: %w", q.ID, err)
		}
		if imageURL != nil && *imageURL != "" {
			q.Image = &domain.Image{URL: *imageURL}
		}
		if domain.ValidQuestion(q) {
			out = append(out, q)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return out, nil
}
