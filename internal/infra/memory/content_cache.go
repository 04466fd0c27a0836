package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"timed-quiz-service/internal/domain"
)

// ContentSource fetches categories and questions from a backing store (CMS, database).
type ContentSource interface {
	ListCategories(ctx context.Context) ([]string, error)
	ListQuestions(ctx context.Context, category string) ([]domain.Question, error)
}

// CachedContent caches a ContentSource with TTL to avoid repeated fetches.
// Failed fetches are not cached.
type CachedContent struct {
	source ContentSource
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedContent
}

type cachedContent struct {
	categories []string
	questions  []domain.Question
	expiresAt  time.Time
}

const categoriesKey = "\x00categories"

func NewCachedContent(source ContentSource, ttl time.Duration) *CachedContent {
	return &CachedContent{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedContent),
	}
}

func (c *CachedContent) ListCategories(ctx context.Context) ([]string, error) {
	entry, err := c.get(ctx, categoriesKey, func(ctx context.Context) (cachedContent, error) {
		categories, err := c.source.ListCategories(ctx)
		return cachedContent{categories: categories}, err
	})
	if err != nil {
		return nil, err
	}
	return entry.categories, nil
}

func (c *CachedContent) ListQuestions(ctx context.Context, category string) ([]domain.Question, error) {
	entry, err := c.get(ctx, "questions:"+category, func(ctx context.Context) (cachedContent, error) {
		questions, err := c.source.ListQuestions(ctx, category)
		return cachedContent{questions: questions}, err
	})
	if err != nil {
		return nil, err
	}
	return entry.questions, nil
}

func (c *CachedContent) get(ctx context.Context, key string, load func(context.Context) (cachedContent, error)) (cachedContent, error) {
	if entry, ok := c.lookup(key); ok {
		return entry, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// re-check in case another caller filled it
		if entry, ok := c.lookup(key); ok {
			return entry, nil
		}
		entry, err := load(ctx)
		if err != nil {
			return cachedContent{}, err
		}
		entry.expiresAt = c.clock().Add(c.ttlWithJitter())

		c.mu.Lock()
		c.cache[key] = entry
		c.mu.Unlock()
		return entry, nil
	})
	if err != nil {
		return cachedContent{}, err
	}
	return result.(cachedContent), nil
}

func (c *CachedContent) lookup(key string) (cachedContent, bool) {
	now := c.clock()
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[key]
	if !ok || !entry.expiresAt.After(now) {
		return cachedContent{}, false
	}
	return entry, true
}

// Invalidate drops every cached entry, e.g. after a content import.
func (c *CachedContent) Invalidate() {
	c.mu.Lock()
	c.cache = make(map[string]cachedContent)
	c.mu.Unlock()
}

func (c *CachedContent) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
