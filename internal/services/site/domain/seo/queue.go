package seo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/louisbranch/folio/internal/platform/timeouts"
	"go.uber.org/zap"
)

// FlushInterval is how often queued URLs are submitted.
const FlushInterval = 30 * time.Second

// Submitter sends absolute URLs to a search engine.
type Submitter interface {
	Submit(ctx context.Context, urls []string) error
}

// Queue collects changed site paths and submits them in deduplicated
// batches on a timer.
type Queue struct {
	site      Site
	submitter Submitter
	interval  time.Duration
	logger    *zap.Logger

	mu      sync.Mutex
	pending map[string]struct{}
}

// NewQueue builds a queue. A nil submitter makes Enqueue a no-op.
func NewQueue(site Site, submitter Submitter, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		site:      site,
		submitter: submitter,
		interval:  FlushInterval,
		logger:    logger,
		pending:   map[string]struct{}{},
	}
}

// Enqueue records site paths for the next flush.
func (q *Queue) Enqueue(paths ...string) {
	if q == nil || q.submitter == nil {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, p := range paths {
		if p == "" {
			continue
		}
		q.pending[q.site.Absolute(p)] = struct{}{}
	}
}

// Pending returns the queued URLs in order.
func (q *Queue) Pending() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, 0, len(q.pending))
	for u := range q.pending {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// Flush submits everything queued. Failed URLs are not requeued; the
// submission log keeps the failure.
func (q *Queue) Flush(ctx context.Context) error {
	if q == nil || q.submitter == nil {
		return nil
	}
	q.mu.Lock()
	if len(q.pending) == 0 {
		q.mu.Unlock()
		return nil
	}
	urls := make([]string, 0, len(q.pending))
	for u := range q.pending {
		urls = append(urls, u)
	}
	q.pending = map[string]struct{}{}
	q.mu.Unlock()

	sort.Strings(urls)
	return q.submitter.Submit(ctx, urls)
}

// Run flushes every interval until ctx is done, then flushes once more.
func (q *Queue) Run(ctx context.Context) error {
	if q == nil || q.submitter == nil {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.OutboundHTTP)
			if err := q.Flush(final); err != nil {
				q.logger.Warn("final indexnow flush", zap.Error(err))
			}
			cancel()
			return nil
		case <-ticker.C:
			if err := q.Flush(ctx); err != nil {
				q.logger.Warn("indexnow flush", zap.Error(err))
			}
		}
	}
}
