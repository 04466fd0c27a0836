package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"timed-quiz-service/internal/domain"
)

// ContentSource fetches categories and questions from a backing store (CMS, database).
type ContentSource interface {
	ListCategories(ctx context.Context) ([]string, error)
	ListQuestions(ctx context.Context, category string) ([]domain.Question, error)
}

// ContentCache keeps normalized content in Redis as JSON and falls back to the
// source on a miss. Keys:
//
//	content:categories          ["Milk","Beans",...]
//	content:questions:{category} [{question},...]
//
// Redis errors degrade to reading the source directly.
type ContentCache struct {
	client *redis.Client
	source ContentSource
	ttl    time.Duration
	logger *slog.Logger
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewContentCache(client *redis.Client, source ContentSource, ttl time.Duration, logger *slog.Logger) *ContentCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContentCache{
		client: client,
		source: source,
		ttl:    ttl,
		logger: logger,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *ContentCache) ListCategories(ctx context.Context) ([]string, error) {
	var categories []string
	err := c.load(ctx, c.categoriesKey(), &categories, func(ctx context.Context) (interface{}, error) {
		return c.source.ListCategories(ctx)
	})
	return categories, err
}

func (c *ContentCache) ListQuestions(ctx context.Context, category string) ([]domain.Question, error) {
	var questions []domain.Question
	err := c.load(ctx, c.questionsKey(category), &questions, func(ctx context.Context) (interface{}, error) {
		return c.source.ListQuestions(ctx, category)
	})
	return questions, err
}

// Invalidate removes every cached content key.
func (c *ContentCache) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, "content:*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *ContentCache) load(ctx context.Context, key string, dst interface{}, fetch func(context.Context) (interface{}, error)) error {
	if c.readCached(ctx, key, dst) {
		return nil
	}

	raw, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// re-check cache in case another goroutine filled it
		if cached, err := c.client.Get(ctx, key).Bytes(); err == nil {
			return cached, nil
		}

		value, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		if err := c.client.Set(ctx, key, encoded, c.ttlWithJitter()).Err(); err != nil {
			c.logger.Warn("content cache write failed", "key", key, "error", err)
		}
		return encoded, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(raw.([]byte), dst)
}

func (c *ContentCache) readCached(ctx context.Context, key string, dst interface{}) bool {
	cached, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("content cache read failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(cached, dst); err != nil {
		c.logger.Warn("content cache entry invalid", "key", key, "error", err)
		return false
	}
	return true
}

func (c *ContentCache) categoriesKey() string {
	return "content:categories"
}

func (c *ContentCache) questionsKey(category string) string {
	return "content:questions:" + category
}

func (c *ContentCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
