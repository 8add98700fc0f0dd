package seo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/louisbranch/folio/internal/platform/id"
	"github.com/louisbranch/folio/internal/platform/timeouts"
	"github.com/louisbranch/folio/internal/services/site/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultIndexNowEndpoint is the shared IndexNow API.
const DefaultIndexNowEndpoint = "https://api.indexnow.org/indexnow"

// BatchSize is the most URLs one IndexNow request may carry.
const BatchSize = 10000

// MaxAttempts bounds tries per batch for retryable failures.
const MaxAttempts = 3

var keyPattern = regexp.MustCompile(`^[a-zA-Z0-9-]{8,128}$`)

// ValidKey reports whether key is a valid IndexNow key.
func ValidKey(key string) bool {
	return keyPattern.MatchString(key)
}

// IndexNow submits URLs to an IndexNow endpoint and logs each request.
type IndexNow struct {
	site     Site
	key      string
	endpoint string
	client   *http.Client
	store    storage.SubmissionStore
	logger   *zap.Logger
	now      func() time.Time
	backoff  func() backoff.BackOff
}

// IndexNowOption configures an IndexNow client.
type IndexNowOption func(*IndexNow)

// WithEndpoint overrides the API endpoint.
func WithEndpoint(endpoint string) IndexNowOption {
	return func(c *IndexNow) {
		if endpoint = strings.TrimSpace(endpoint); endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) IndexNowOption {
	return func(c *IndexNow) {
		if client != nil {
			c.client = client
		}
	}
}

// WithSubmissionLog records every request.
func WithSubmissionLog(store storage.SubmissionStore) IndexNowOption {
	return func(c *IndexNow) { c.store = store }
}

// WithIndexNowLogger sets the client logger.
func WithIndexNowLogger(logger *zap.Logger) IndexNowOption {
	return func(c *IndexNow) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRetryBackOff overrides the retry schedule.
func WithRetryBackOff(fn func() backoff.BackOff) IndexNowOption {
	return func(c *IndexNow) {
		if fn != nil {
			c.backoff = fn
		}
	}
}

// NewIndexNow builds a client for site. It returns nil when key is blank
// so callers can treat IndexNow as switched off.
func NewIndexNow(site Site, key string, opts ...IndexNowOption) (*IndexNow, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	if !ValidKey(key) {
		return nil, fmt.Errorf("indexnow key must be 8-128 letters, digits or dashes")
	}
	c := &IndexNow{
		site:     site,
		key:      key,
		endpoint: DefaultIndexNowEndpoint,
		client:   &http.Client{Timeout: timeouts.OutboundHTTP},
		logger:   zap.NewNop(),
		now:      time.Now,
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			return b
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Key returns the verification key.
func (c *IndexNow) Key() string { return c.key }

// KeyPath is the site path serving the verification key.
func (c *IndexNow) KeyPath() string { return "/" + c.key + ".txt" }

// KeyHandler serves the verification key file.
func (c *IndexNow) KeyHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, c.key)
	})
}

type payload struct {
	Host        string   `json:"host"`
	Key         string   `json:"key"`
	KeyLocation string   `json:"keyLocation"`
	URLList     []string `json:"urlList"`
}

// StatusError is a non-success IndexNow response.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("indexnow responded %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Submit sends urls in batches of at most BatchSize. Duplicates are
// dropped. Every batch is attempted and the first failure is returned.
func (c *IndexNow) Submit(ctx context.Context, urls []string) error {
	if c == nil {
		return nil
	}
	urls = dedupe(urls)
	if len(urls) == 0 {
		return nil
	}
	var g errgroup.Group
	g.SetLimit(2)
	for start := 0; start < len(urls); start += BatchSize {
		batch := urls[start:min(start+BatchSize, len(urls))]
		g.Go(func() error { return c.submitBatch(ctx, batch) })
	}
	return g.Wait()
}

func (c *IndexNow) submitBatch(ctx context.Context, urls []string) error {
	body, err := json.Marshal(payload{
		Host:        c.site.Host(),
		Key:         c.key,
		KeyLocation: c.site.Absolute(c.KeyPath()),
		URLList:     urls,
	})
	if err != nil {
		return fmt.Errorf("marshal indexnow payload: %w", err)
	}

	attempts := 0
	status, err := backoff.Retry(ctx, func() (int, error) {
		attempts++
		return c.post(ctx, body)
	}, backoff.WithBackOff(c.backoff()), backoff.WithMaxTries(MaxAttempts))

	record := storage.Submission{
		Host:       c.site.Host(),
		URLCount:   len(urls),
		StatusCode: status,
		Attempts:   attempts,
		CreatedAt:  c.now().UTC(),
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		record.StatusCode = statusErr.StatusCode
	}
	if err != nil {
		record.Error = err.Error()
		c.logger.Warn("indexnow submission failed",
			zap.Int("urls", len(urls)),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
	} else {
		c.logger.Info("indexnow submission accepted",
			zap.Int("urls", len(urls)),
			zap.Int("status", status),
			zap.Int("attempts", attempts),
		)
	}
	if c.store != nil {
		if record.ID, err = id.NewID(); err == nil {
			if logErr := c.store.PutSubmission(context.WithoutCancel(ctx), record); logErr != nil {
				c.logger.Warn("record indexnow submission", zap.Error(logErr))
			}
		}
	}
	if record.Error != "" {
		return errors.New(record.Error)
	}
	return nil
}

// post sends one request. 4xx answers are permanent; 5xx answers and
// transport failures are retried.
func (c *IndexNow) post(ctx context.Context, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, backoff.Permanent(fmt.Errorf("build indexnow request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, backoff.Permanent(err)
		}
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusAccepted:
		return resp.StatusCode, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return resp.StatusCode, backoff.Permanent(&StatusError{StatusCode: resp.StatusCode})
	default:
		return resp.StatusCode, &StatusError{StatusCode: resp.StatusCode}
	}
}

func dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}
