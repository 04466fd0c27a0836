package memory

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"timed-quiz-service/internal/domain"
)

// QuestionBank is the YAML seed format: a flat list of raw questions.
type QuestionBank struct {
	Questions []domain.RawQuestion `yaml:"questions"`
}

// LoadQuestionBank reads a YAML bank from disk and returns the usable questions.
func LoadQuestionBank(path string) ([]domain.Question, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question bank: %w", err)
	}
	return ParseQuestionBank(raw)
}

// ParseQuestionBank decodes a YAML bank and normalizes its questions.
func ParseQuestionBank(raw []byte) ([]domain.Question, error) {
	var bank QuestionBank
	if err := yaml.Unmarshal(raw, &bank); err != nil {
		return nil, fmt.Errorf("parse question bank: %w", err)
	}
	return domain.NormalizeAll(bank.Questions), nil
}

// StaticContent serves a fixed question set (seed file, tests, demos).
type StaticContent struct {
	questions []domain.Question
}

func NewStaticContent(questions []domain.Question) *StaticContent {
	return &StaticContent{questions: append([]domain.Question(nil), questions...)}
}

func (c *StaticContent) ListCategories(_ context.Context) ([]string, error) {
	return domain.OrderCategories(c.questions), nil
}

func (c *StaticContent) ListQuestions(_ context.Context, category string) ([]domain.Question, error) {
	out := make([]domain.Question, 0)
	for _, q := range c.questions {
		if q.Category == category {
			out = append(out, q)
		}
	}
	return out, nil
}
