// Package microcms reads quiz content from a microCMS "quiz" list API.
package microcms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"timed-quiz-service/internal/domain"
)

// pageSize is the largest page the list API serves.
const pageSize = 100

type Config struct {
	ServiceDomain string
	APIKey        string
	Endpoint      string
	// BaseURL overrides https://{ServiceDomain}.microcms.io, mainly for tests.
	BaseURL string
	Timeout time.Duration
}

// Client fetches and normalizes questions. Questions are filtered by category
// on the server side.
type Client struct {
	baseURL  string
	endpoint string
	apiKey   string
	http     *http.Client
}

// Compile-time check: *Client satisfies the content source shape used by the caches.
var _ interface {
	ListCategories(context.Context) ([]string, error)
	ListQuestions(context.Context, string) ([]domain.Question, error)
} = (*Client)(nil)

func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		if cfg.ServiceDomain == "" {
			return nil, fmt.Errorf("microcms service domain not configured")
		}
		base = "https://" + cfg.ServiceDomain + ".microcms.io"
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "quiz"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:  base,
		endpoint: endpoint,
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: timeout},
	}, nil
}

type listResponse struct {
	Contents   []domain.RawQuestion `json:"contents"`
	TotalCount int                  `json:"totalCount"`
	Offset     int                  `json:"offset"`
	Limit      int                  `json:"limit"`
}

// ListCategories lists distinct categories across every question, ordered by
// display order.
func (c *Client) ListCategories(ctx context.Context) ([]string, error) {
	raws, err := c.fetchAll(ctx, url.Values{"fields": {"id,category,order"}})
	if err != nil {
		return nil, err
	}
	questions := make([]domain.Question, len(raws))
	for i, raw := range raws {
		questions[i] = raw.Normalize()
	}
	return domain.OrderCategories(questions), nil
}

// ListQuestions returns the usable questions of one category.
func (c *Client) ListQuestions(ctx context.Context, category string) ([]domain.Question, error) {
	raws, err := c.fetchAll(ctx, url.Values{"filters": {"category[equals]" + category}})
	if err != nil {
		return nil, err
	}
	return domain.NormalizeAll(raws), nil
}

func (c *Client) fetchAll(ctx context.Context, query url.Values) ([]domain.RawQuestion, error) {
	var all []domain.RawQuestion
	for offset := 0; ; {
		page, err := c.fetchPage(ctx, query, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Contents...)
		offset += len(page.Contents)
		if len(page.Contents) == 0 || offset >= page.TotalCount {
			return all, nil
		}
	}
}

func (c *Client) fetchPage(ctx context.Context, query url.Values, offset int) (listResponse, error) {
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	q.Set("limit", strconv.Itoa(pageSize))
	q.Set("offset", strconv.Itoa(offset))

	u := c.baseURL + "/api/v1/" + c.endpoint + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return listResponse{}, err
	}
	req.Header.Set("X-MICROCMS-API-KEY", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return listResponse{}, fmt.Errorf("microcms request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return listResponse{}, fmt.Errorf("microcms %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var page listResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return listResponse{}, fmt.Errorf("decode microcms response: %w", err)
	}
	return page, nil
}
