package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/oakfit/coursecast/internal/cache"
	"github.com/oakfit/coursecast/internal/log"
)

// CompletionWrite is the outbound completion record. Callers only branch on
// success vs. failure, so MarkCompleted returns a plain error.
type CompletionWrite struct {
	PurchaseID             PurchaseID `json:"-"`
	LessonID               LessonID   `json:"lesson_id"`
	CourseID               CourseID   `json:"course_id"`
	DurationWatchedMinutes int        `json:"duration_watched_minutes"`
}

// ClientConfig configures the hosted data store client.
type ClientConfig struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64 // outbound requests per second, 0 disables throttling
	RateBurst int
	CacheTTL  time.Duration
}

// Client reads purchase and course records from the hosted store and performs
// the completion write. Reads go through the configured cache.
type Client struct {
	base     *url.URL
	http     *http.Client
	cache    cache.Cache
	cacheTTL time.Duration
	limiter  *rate.Limiter
	logger   zerolog.Logger
}

// NewClient builds a Client. The underlying transport is instrumented for
// distributed tracing.
func NewClient(cfg ClientConfig, store cache.Cache) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("catalog: invalid base URL %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("catalog: base URL %q must be absolute", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = int(cfg.RateLimit)
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		base: base,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		cache:    store,
		cacheTTL: cfg.CacheTTL,
		limiter:  limiter,
		logger:   log.WithComponent("catalog"),
	}, nil
}

// PurchasesByUser fetches all purchases for a user. Never cached: the
// completed-lesson set on the purchase is the remote source of truth and
// reconciliation depends on reading it fresh.
func (c *Client) PurchasesByUser(ctx context.Context, userID UserID) ([]Purchase, error) {
	var purchases []Purchase
	if err := c.getJSON(ctx, fmt.Sprintf("/users/%s/purchases", userID), &purchases); err != nil {
		return nil, err
	}
	return purchases, nil
}

// Course fetches a course and its ordered lesson list. Courses change rarely,
// so reads are served from cache within the TTL.
func (c *Client) Course(ctx context.Context, courseID CourseID) (Course, error) {
	key := "course:" + string(courseID)
	if c.cache != nil {
		if raw, ok := c.cache.Get(key); ok {
			var course Course
			if err := json.Unmarshal(raw, &course); err == nil {
				return course, nil
			}
			c.cache.Delete(key)
		}
	}

	var course Course
	if err := c.getJSON(ctx, fmt.Sprintf("/courses/%s", courseID), &course); err != nil {
		return Course{}, err
	}
	course.SortLessons()

	if c.cache != nil {
		if raw, err := json.Marshal(course); err == nil {
			c.cache.Set(key, raw, c.cacheTTL)
		}
	}
	return course, nil
}

// MarkCompleted performs the durable completion write.
func (c *Client) MarkCompleted(ctx context.Context, write CompletionWrite) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(write)
	if err != nil {
		return fmt.Errorf("catalog: encode completion: %w", err)
	}

	endpoint := c.base.JoinPath("purchases", string(write.PurchaseID), "completions")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), strings.NewReader(string(body)))
	if err != nil {
		return fmt.Errorf("catalog: build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("catalog: completion write: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("catalog: completion write: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	endpoint := c.base.JoinPath(strings.TrimPrefix(path, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("catalog: build request %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("catalog: get %s: %w", path, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("catalog: get %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("catalog: decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("catalog: rate limiter: %w", err)
	}
	return nil
}
