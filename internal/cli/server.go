package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"golang.org/x/sync/errgroup"

	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/auth"
	"timed-quiz-service/internal/clock"
	"timed-quiz-service/internal/config"
	"timed-quiz-service/internal/infra/db"
	"timed-quiz-service/internal/infra/memory"
	"timed-quiz-service/internal/infra/microcms"
	"timed-quiz-service/internal/infra/postgres"
	redisinfra "timed-quiz-service/internal/infra/redis"
	transport "timed-quiz-service/internal/transport/http"
	"timed-quiz-service/internal/worker"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// contentInvalidator is implemented by both content caches.
type contentInvalidator interface {
	Invalidate(ctx context.Context) error
}

type memoryInvalidator struct{ cache *memory.CachedContent }

func (m memoryInvalidator) Invalidate(context.Context) error {
	m.cache.Invalidate()
	return nil
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	var bunDB *bun.DB
	var profiles app.ProfileStore
	if cfg.Profile.Driver == "memory" {
		logger.Warn("profiles are kept in memory and lost on restart")
		profiles = memory.NewProfileStore()
	} else {
		bunDB, err = openDatabase(ctx, cfg)
		if err != nil {
			return err
		}
		defer bunDB.Close()
		if err := migrateDatabase(ctx, bunDB, logger); err != nil {
			return err
		}
		profiles = db.NewProfileStore(bunDB)
	}

	source, cleanup, err := buildContentSource(ctx, cfg, bunDB)
	if err != nil {
		return err
	}
	defer cleanup()

	contentTTL := config.TTLDuration(cfg.Content.TTL, 5*time.Minute)
	var content app.ContentGateway
	var invalidator contentInvalidator
	if redisClient != nil {
		cache := redisinfra.NewContentCache(redisClient, source, contentTTL, logger)
		content, invalidator = cache, cache
	} else {
		cache := memory.NewCachedContent(source, contentTTL)
		content, invalidator = cache, memoryInvalidator{cache: cache}
	}

	var sessions app.SessionRepository
	var transfers app.TransferStore
	var redisSessions *redisinfra.SessionStore
	if redisClient != nil {
		redisSessions = redisinfra.NewSessionStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 30*time.Minute), logger)
		sessions = redisSessions
		transfers = redisinfra.NewTransferStore(redisClient)
	} else {
		sessions = memory.NewSessionStore()
		transfers = memory.NewTransferStore()
	}

	pool := worker.NewPool(
		config.IntOr(cfg.Worker.Size, 4),
		config.IntOr(cfg.Worker.Buffer, 64),
		config.TTLDuration(cfg.Worker.Timeout, 5*time.Second),
		logger,
	)
	defer pool.Close()

	passphrase, err := auth.NewPassphrase(cfg.Auth.Passphrase, cfg.Auth.PassphraseHash)
	if err != nil {
		return err
	}
	if cfg.Auth.JWTSecret == "" {
		return errors.New("jwt secret not configured; set auth.jwt_secret or JWT_SECRET")
	}
	tokens := auth.NewTokens(cfg.Auth.JWTSecret, config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour))

	clk := clock.Real()
	quiz := app.NewQuizService(app.QuizDeps{
		Content:     content,
		Sessions:    sessions,
		Transfers:   transfers,
		Profiles:    profiles,
		Aggregator:  app.NewAggregator(profiles, pool, logger),
		Clock:       clk,
		Timing:      quizTiming(cfg),
		TransferTTL: config.TTLDuration(cfg.Transfer.TTL, 30*time.Minute),
		Logger:      logger,
	})
	accounts := app.NewAccountService(profiles, content, passphrase, tokens, clk, logger)

	server := &http.Server{
		Addr: ":" + finalPort,
		Handler: transport.NewRouter(transport.RouterDeps{
			Quiz:           quiz,
			Accounts:       accounts,
			Tokens:         tokens,
			Logger:         logger,
			AllowedOrigins: cfg.Server.CORSOrigins,
			RequestTimeout: config.TTLDuration(cfg.Server.Timeout, 15*time.Second),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting quiz service", "port", finalPort, "profile", cfg.Profile.Driver, "content", cfg.Content.Source)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		reloadOnHangup(gctx, invalidator, logger)
		return nil
	})
	if redisSessions != nil {
		g.Go(func() error {
			reportLiveSessions(gctx, redisSessions, logger)
			return nil
		})
	}
	return g.Wait()
}

// buildContentSource picks the backing store named by content.source.
func buildContentSource(ctx context.Context, cfg config.Config, bunDB *bun.DB) (app.ContentGateway, func(), error) {
	noop := func() {}
	switch cfg.Content.Source {
	case "", "static":
		if cfg.Content.SeedPath == "" {
			return nil, noop, errors.New("content.seed_path is required for the static source")
		}
		questions, err := memory.LoadQuestionBank(cfg.Content.SeedPath)
		if err != nil {
			return nil, noop, err
		}
		return memory.NewStaticContent(questions), noop, nil
	case "microcms":
		client, err := microcms.NewClient(microcms.Config{
			ServiceDomain: cfg.Content.MicroCMS.ServiceDomain,
			APIKey:        cfg.Content.MicroCMS.APIKey,
			Endpoint:      cfg.Content.MicroCMS.Endpoint,
			Timeout:       config.TTLDuration(cfg.Content.MicroCMS.Timeout, 10*time.Second),
		})
		if err != nil {
			return nil, noop, err
		}
		return client, noop, nil
	case "postgres":
		if cfg.Postgres.URL == "" {
			return nil, noop, errors.New("postgres url not configured")
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, noop, err
		}
		return postgres.NewContentSource(pool), pool.Close, nil
	case "database":
		if bunDB == nil {
			return nil, noop, errors.New("content source \"database\" needs a sqlite or postgres profile driver")
		}
		return db.NewQuestionSource(bunDB), noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown content source %q", cfg.Content.Source)
	}
}

func quizTiming(cfg config.Config) app.Timing {
	t := app.DefaultTiming()
	t.Unit = config.TTLDuration(cfg.Quiz.TimeUnit, t.Unit)
	t.Countdown = config.IntOr(cfg.Quiz.Countdown, t.Countdown)
	t.StartDelay = config.IntOr(cfg.Quiz.StartDelay, t.StartDelay)
	t.QuestionBudget = config.IntOr(cfg.Quiz.QuestionBudget, t.QuestionBudget)
	t.RevealDelay = config.IntOr(cfg.Quiz.RevealDelay, t.RevealDelay)
	t.ReviewBudget = config.IntOr(cfg.Quiz.ReviewBudget, t.ReviewBudget)
	t.Retain = config.IntOr(cfg.Quiz.Retain, t.Retain)
	t.Idle = config.IntOr(cfg.Quiz.Idle, t.Idle)
	return t
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// reloadOnHangup drops cached content on SIGHUP.
func reloadOnHangup(ctx context.Context, cache contentInvalidator, logger *slog.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := cache.Invalidate(ctx); err != nil {
				logger.Warn("content cache invalidation failed", "error", err)
				continue
			}
			logger.Info("content cache invalidated")
		}
	}
}

func reportLiveSessions(ctx context.Context, store *redisinfra.SessionStore, logger *slog.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.Live(ctx)
			if err != nil {
				logger.Warn("count live sessions failed", "error", err)
				continue
			}
			logger.Info("live sessions", "count", n)
		}
	}
}
