package cli

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"timed-quiz-service/internal/config"
	"timed-quiz-service/internal/infra/db"
	"timed-quiz-service/internal/infra/memory"
	redisinfra "timed-quiz-service/internal/infra/redis"
)

// NewContentCmd groups content maintenance commands.
func NewContentCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "content",
		Short: "Manage the question bank",
	}
	cmd.AddCommand(newContentImportCmd(configPath))
	return cmd
}

func newContentImportCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load a YAML question bank into the questions table",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Server.LogLevel)
			if file == "" {
				file = cfg.Content.SeedPath
			}
			if file == "" {
				return fmt.Errorf("no question bank given; pass --file or set content.seed_path")
			}

			questions, err := memory.LoadQuestionBank(file)
			if err != nil {
				return err
			}
			bunDB, err := openDatabase(ctx, cfg)
			if err != nil {
				return err
			}
			defer bunDB.Close()
			if err := migrateDatabase(ctx, bunDB, logger); err != nil {
				return err
			}

			n, err := db.ImportQuestions(ctx, bunDB, questions)
			if err != nil {
				return fmt.Errorf("import questions: %w", err)
			}
			logger.Info("questions imported", "file", file, "count", n)

			// running instances would otherwise serve the old bank until the cache expires
			if cfg.Redis.Addr != "" {
				client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
				defer client.Close()
				cache := redisinfra.NewContentCache(client, nil, 0, logger)
				if err := cache.Invalidate(ctx); err != nil {
					logger.Warn("content cache invalidation failed", "error", err)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "path to the YAML question bank (defaults to content.seed_path)")
	return cmd
}
