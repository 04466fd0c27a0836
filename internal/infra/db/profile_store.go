package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"timed-quiz-service/internal/domain"
)

// ProfileStore persists users, accuracy, review sets and result history with bun.
type ProfileStore struct {
	db  *bun.DB
	now func() time.Time
}

func NewProfileStore(db *bun.DB) *ProfileStore {
	return &ProfileStore{db: db, now: time.Now}
}

func (s *ProfileStore) GetUser(ctx context.Context, userID string) (domain.User, error) {
	var row userModel
	err := s.db.NewSelect().Model(&row).Where("user_id = ?", userID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("select user: %w", err)
	}
	return domain.User{UserID: row.UserID, Nickname: row.Nickname, LastLogin: row.LastLogin}, nil
}

func (s *ProfileStore) SaveUser(ctx context.Context, userID, nickname string) error {
	row := &userModel{UserID: userID, Nickname: nickname, CreatedAt: s.now().UTC()}
	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (user_id) DO UPDATE").
		Set("nickname = EXCLUDED.nickname").
		Exec(ctx)
	if isUniqueViolation(err) {
		// users.nickname is unique; a concurrent registration won the name
		return domain.ErrNicknameTaken
	}
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (s *ProfileStore) TouchLastLogin(ctx context.Context, userID string, at time.Time) error {
	res, err := s.db.NewUpdate().
		Model((*userModel)(nil)).
		Set("last_login = ?", at.UTC()).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (s *ProfileStore) IsNicknameTaken(ctx context.Context, nickname string) (bool, error) {
	exists, err := s.db.NewSelect().Model((*userModel)(nil)).Where("nickname = ?", nickname).Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check nickname: %w", err)
	}
	return exists, nil
}

func (s *ProfileStore) GetAccuracy(ctx context.Context, userID string) (domain.AccuracyByCategory, error) {
	var rows []accuracyModel
	if err := s.db.NewSelect().Model(&rows).Where("user_id = ?", userID).Scan(ctx); err != nil {
		return nil, fmt.Errorf("select accuracy: %w", err)
	}
	out := make(domain.AccuracyByCategory, len(rows))
	for _, r := range rows {
		out[r.Category] = domain.Accuracy{TotalAttempts: r.TotalAttempts, CorrectAnswers: r.CorrectAnswers}
	}
	return out, nil
}

// SetAccuracy overwrites the (user, category) row; last writer wins.
func (s *ProfileStore) SetAccuracy(ctx context.Context, userID, category string, correct, total int) error {
	row := &accuracyModel{
		UserID:         userID,
		Category:       category,
		TotalAttempts:  total,
		CorrectAnswers: correct,
		UpdatedAt:      s.now().UTC(),
	}
	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (user_id, category) DO UPDATE").
		Set("total_attempts = EXCLUDED.total_attempts").
		Set("correct_answers = EXCLUDED.correct_answers").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert accuracy: %w", err)
	}
	return nil
}

func (s *ProfileStore) ListRankings(ctx context.Context) ([]domain.Ranking, error) {
	var rows []accuracyModel
	if err := s.db.NewSelect().Model(&rows).Scan(ctx); err != nil {
		return nil, fmt.Errorf("select accuracy: %w", err)
	}
	var users []userModel
	if err := s.db.NewSelect().Model(&users).Column("user_id", "nickname").Scan(ctx); err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}

	accuracy := make(map[string]domain.AccuracyByCategory)
	for _, r := range rows {
		byCategory, ok := accuracy[r.UserID]
		if !ok {
			byCategory = make(domain.AccuracyByCategory)
			accuracy[r.UserID] = byCategory
		}
		byCategory[r.Category] = domain.Accuracy{TotalAttempts: r.TotalAttempts, CorrectAnswers: r.CorrectAnswers}
	}
	nicknames := make(map[string]string, len(users))
	for _, u := range users {
		nicknames[u.UserID] = u.Nickname
	}
	return domain.BuildRankings(accuracy, nicknames), nil
}

func (s *ProfileStore) GetReviewSet(ctx context.Context, userID string) ([]domain.AnswerRecord, error) {
	var row reviewSetModel
	err := s.db.NewSelect().Model(&row).Where("user_id = ?", userID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return []domain.AnswerRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select review set: %w", err)
	}
	return decodeRecords(row.Records)
}

func (s *ProfileStore) SetReviewSet(ctx context.Context, userID string, records []domain.AnswerRecord) error {
	if len(records) == 0 {
		_, err := s.db.NewDelete().Model((*reviewSetModel)(nil)).Where("user_id = ?", userID).Exec(ctx)
		if err != nil {
			return fmt.Errorf("delete review set: %w", err)
		}
		return nil
	}
	encoded, err := json.Marshal(records)
	if err != nil {
		return err
	}
	row := &reviewSetModel{UserID: userID, Records: string(encoded), UpdatedAt: s.now().UTC()}
	_, err = s.db.NewInsert().
		Model(row).
		On("CONFLICT (user_id) DO UPDATE").
		Set("records = EXCLUDED.records").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert review set: %w", err)
	}
	return nil
}

func (s *ProfileStore) SaveQuizResult(ctx context.Context, userID, category string, records []domain.AnswerRecord) error {
	encoded, err := json.Marshal(records)
	if err != nil {
		return err
	}
	row := &quizResultModel{UserID: userID, Category: category, Records: string(encoded), UpdatedAt: s.now().UTC()}
	_, err = s.db.NewInsert().
		Model(row).
		On("CONFLICT (user_id, category) DO UPDATE").
		Set("records = EXCLUDED.records").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert quiz result: %w", err)
	}
	return nil
}

func (s *ProfileStore) GetQuizResult(ctx context.Context, userID, category string) ([]domain.AnswerRecord, error) {
	var row quizResultModel
	err := s.db.NewSelect().
		Model(&row).
		Where("user_id = ?", userID).
		Where("category = ?", category).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return []domain.AnswerRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select quiz result: %w", err)
	}
	return decodeRecords(row.Records)
}

func decodeRecords(raw string) ([]domain.AnswerRecord, error) {
	records := []domain.AnswerRecord{}
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return records, nil
}

// isUniqueViolation recognizes unique-constraint failures from both drivers.
func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	return false
}
