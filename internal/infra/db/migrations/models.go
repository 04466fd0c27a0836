package migrations

import (
	"time"

	"github.com/uptrace/bun"
)

// Table shapes as of the migration that creates them. The live models in
// package db may grow columns through later migrations.

type userTable struct {
	bun.BaseModel `bun:"table:users"`

	UserID    string     `bun:"user_id,pk"`
	Nickname  string     `bun:"nickname,notnull,unique"`
	LastLogin *time.Time `bun:"last_login,nullzero"`
	CreatedAt time.Time  `bun:"created_at,notnull"`
}

type accuracyTable struct {
	bun.BaseModel `bun:"table:user_accuracy"`

	UserID         string    `bun:"user_id,pk"`
	Category       string    `bun:"category,pk"`
	TotalAttempts  int       `bun:"total_attempts,notnull"`
	CorrectAnswers int       `bun:"correct_answers,notnull"`
	UpdatedAt      time.Time `bun:"updated_at,notnull"`
}

type reviewSetTable struct {
	bun.BaseModel `bun:"table:review_sets"`

	UserID    string    `bun:"user_id,pk"`
	Records   string    `bun:"records,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

type quizResultTable struct {
	bun.BaseModel `bun:"table:quiz_results"`

	UserID    string    `bun:"user_id,pk"`
	Category  string    `bun:"category,pk"`
	Records   string    `bun:"records,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

type questionTable struct {
	bun.BaseModel `bun:"table:questions"`

	ID        string  `bun:"id,pk"`
	Question  string  `bun:"question,notnull"`
	Choices   string  `bun:"choices,notnull"`
	Answer    string  `bun:"answer,notnull"`
	Category  string  `bun:"category,notnull"`
	ImageURL  *string `bun:"image_url"`
	SortOrder int     `bun:"sort_order,notnull"`
}
