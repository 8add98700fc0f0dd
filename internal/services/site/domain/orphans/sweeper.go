package orphans

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SessionPurger drops expired sign-in sessions.
type SessionPurger interface {
	PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// Sweeper periodically cleans orphans and expired sessions.
type Sweeper struct {
	orphans  *Service
	sessions SessionPurger
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewSweeper builds a sweeper. A non-positive interval disables it.
func NewSweeper(orphans *Service, sessions SessionPurger, interval time.Duration, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{orphans: orphans, sessions: sessions, interval: interval, logger: logger, now: time.Now}
}

// Run sweeps every interval until ctx is done.
func (w *Sweeper) Run(ctx context.Context) error {
	if w == nil || w.interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs one pass. Failures are logged so the next tick retries.
func (w *Sweeper) Sweep(ctx context.Context) {
	now := w.now()
	if w.sessions != nil {
		purged, err := w.sessions.PurgeExpiredSessions(ctx, now)
		if err != nil {
			w.logger.Warn("purge sessions", zap.Error(err))
		} else if purged > 0 {
			w.logger.Info("expired sessions purged", zap.Int64("count", purged))
		}
	}
	if w.orphans == nil {
		return
	}
	report, err := w.orphans.Scan(ctx, now)
	if err != nil {
		w.logger.Warn("orphan scan", zap.Error(err))
		return
	}
	if len(report.Orphans) == 0 && len(report.MissingRows) == 0 {
		return
	}
	if _, err := w.orphans.Clean(ctx, report, false); err != nil {
		w.logger.Warn("orphan clean", zap.Error(err))
	}
}
