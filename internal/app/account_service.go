package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"timed-quiz-service/internal/clock"
	"timed-quiz-service/internal/domain"
)

// PassphraseChecker verifies the shared passphrase.
type PassphraseChecker interface {
	Check(passphrase string) bool
}

// TokenIssuer mints session tokens for logged-in users.
type TokenIssuer interface {
	Issue(userID, nickname string) (string, error)
}

// LoginResult is returned on a successful login.
type LoginResult struct {
	Token         string     `json:"token"`
	UserID        string     `json:"userId"`
	Nickname      string     `json:"nickname"`
	PreviousLogin *time.Time `json:"previousLogin,omitempty"`
}

// CategoryProgress is one row of the home view: a category and the user's last score in it.
type CategoryProgress struct {
	Category  string          `json:"category"`
	Accuracy  domain.Accuracy `json:"accuracy"`
	Cleared   bool            `json:"cleared"`
	Attempted bool            `json:"attempted"`
}

// AccountService covers registration, login and the per-user read models.
type AccountService struct {
	profiles   ProfileStore
	content    ContentGateway
	passphrase PassphraseChecker
	tokens     TokenIssuer
	clock      clock.Clock
	logger     *slog.Logger
}

func NewAccountService(profiles ProfileStore, content ContentGateway, passphrase PassphraseChecker, tokens TokenIssuer, clk clock.Clock, logger *slog.Logger) *AccountService {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountService{
		profiles:   profiles,
		content:    content,
		passphrase: passphrase,
		tokens:     tokens,
		clock:      clk,
		logger:     logger,
	}
}

// Register creates a user with a numeric id and a unique, non-blank nickname.
func (s *AccountService) Register(ctx context.Context, userID, nickname string) (domain.User, error) {
	if !domain.ValidUserID(userID) {
		return domain.User{}, domain.ErrInvalidUserID
	}
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return domain.User{}, domain.ErrInvalidNickname
	}

	if _, err := s.profiles.GetUser(ctx, userID); err == nil {
		return domain.User{}, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return domain.User{}, fmt.Errorf("lookup user: %w", err)
	}

	taken, err := s.profiles.IsNicknameTaken(ctx, nickname)
	if err != nil {
		return domain.User{}, fmt.Errorf("check nickname: %w", err)
	}
	if taken {
		return domain.User{}, domain.ErrNicknameTaken
	}

	if err := s.profiles.SaveUser(ctx, userID, nickname); err != nil {
		if errors.Is(err, domain.ErrNicknameTaken) {
			return domain.User{}, err
		}
		return domain.User{}, fmt.Errorf("save user: %w", err)
	}
	s.logger.Info("user registered", "user", userID)
	return domain.User{UserID: userID, Nickname: nickname}, nil
}

// NicknameAvailable reports whether nickname can still be registered.
func (s *AccountService) NicknameAvailable(ctx context.Context, nickname string) (bool, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return false, domain.ErrInvalidNickname
	}
	taken, err := s.profiles.IsNicknameTaken(ctx, nickname)
	if err != nil {
		return false, fmt.Errorf("check nickname: %w", err)
	}
	return !taken, nil
}

// Login checks the user id and the shared passphrase, stamps the login time
// and issues a token.
func (s *AccountService) Login(ctx context.Context, userID, passphrase string) (LoginResult, error) {
	if !domain.ValidUserID(userID) {
		return LoginResult{}, domain.ErrInvalidUserID
	}
	user, err := s.profiles.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return LoginResult{}, err
		}
		return LoginResult{}, fmt.Errorf("lookup user: %w", err)
	}
	if !s.passphrase.Check(passphrase) {
		return LoginResult{}, domain.ErrInvalidPassphrase
	}

	if err := s.profiles.TouchLastLogin(ctx, userID, s.clock.Now().UTC()); err != nil {
		s.logger.Warn("update last login failed", "user", userID, "error", err)
	}

	token, err := s.tokens.Issue(user.UserID, user.Nickname)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}
	return LoginResult{
		Token:         token,
		UserID:        user.UserID,
		Nickname:      user.Nickname,
		PreviousLogin: user.LastLogin,
	}, nil
}

// Profile returns the stored user.
func (s *AccountService) Profile(ctx context.Context, userID string) (domain.User, error) {
	return s.profiles.GetUser(ctx, userID)
}

// Accuracy returns the user's per-category accuracy; read failures yield an empty map.
func (s *AccountService) Accuracy(ctx context.Context, userID string) domain.AccuracyByCategory {
	accuracy, err := s.profiles.GetAccuracy(ctx, userID)
	if err != nil {
		s.logger.Warn("fetch accuracy failed", "user", userID, "error", err)
		return domain.AccuracyByCategory{}
	}
	if accuracy == nil {
		return domain.AccuracyByCategory{}
	}
	return accuracy
}

// Progress joins the category list with the user's accuracy, in category order.
func (s *AccountService) Progress(ctx context.Context, userID string) []CategoryProgress {
	var (
		categories []string
		accuracy   domain.AccuracyByCategory
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := s.content.ListCategories(gctx)
		if err != nil {
			s.logger.Warn("fetch categories failed", "error", err)
			return nil
		}
		categories = list
		return nil
	})
	g.Go(func() error {
		accuracy = s.Accuracy(gctx, userID)
		return nil
	})
	_ = g.Wait()

	rows := make([]CategoryProgress, 0, len(categories))
	for _, c := range categories {
		a, ok := accuracy[c]
		rows = append(rows, CategoryProgress{
			Category:  c,
			Accuracy:  a,
			Cleared:   a.Cleared(),
			Attempted: ok,
		})
	}
	return rows
}

// Rankings returns the clear-count leaderboard; read failures yield an empty list.
func (s *AccountService) Rankings(ctx context.Context) []domain.Ranking {
	rankings, err := s.profiles.ListRankings(ctx)
	if err != nil {
		s.logger.Warn("fetch rankings failed", "error", err)
		return []domain.Ranking{}
	}
	if rankings == nil {
		return []domain.Ranking{}
	}
	return rankings
}

// LastResult returns the records of the user's latest attempt in category.
func (s *AccountService) LastResult(ctx context.Context, userID, category string) []domain.AnswerRecord {
	records, err := s.profiles.GetQuizResult(ctx, userID, category)
	if err != nil {
		s.logger.Warn("fetch quiz result failed", "user", userID, "category", category, "error", err)
		return []domain.AnswerRecord{}
	}
	if records == nil {
		return []domain.AnswerRecord{}
	}
	return records
}
