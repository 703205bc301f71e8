package scrape

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"

	"go.uber.org/zap"
)

// RetryConfig bounds the per-athlete retry loop.
type RetryConfig struct {
	// MaxTries is the fetch attempt budget per athlete per cycle.
	MaxTries int
	// MinAge/MaxAge bound the accepted value domain, inclusive.
	MinAge int
	MaxAge int
	// SettleBase is waited after navigation so the page finishes rendering;
	// a random jitter in [SettleJitterMin, SettleJitterMax] is added on top.
	SettleBase      time.Duration
	SettleJitterMin time.Duration
	SettleJitterMax time.Duration
	// DeletedPenalty is waited once when the deleted indicator fires, before
	// the short-circuit return. The sites throttle aggressively around the
	// error page.
	DeletedPenalty time.Duration
}

// DefaultRetryConfig mirrors the production scrape cadence.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxTries:        3,
		MinAge:          3,
		MaxAge:          200,
		SettleBase:      1500 * time.Millisecond,
		SettleJitterMin: 200 * time.Millisecond,
		SettleJitterMax: 500 * time.Millisecond,
		DeletedPenalty:  5 * time.Second,
	}
}

// Retryer wraps a session with the bounded fetch-retry loop and the
// deleted-profile short-circuit, producing one tri-state Outcome per athlete.
type Retryer struct {
	cfg       RetryConfig
	extractor *AgeExtractor
	detector  *DeletedDetector
	sleeper   Sleeper
	logger    *zap.Logger
}

// NewRetryer wires the loop. A nil sleeper gets the real clock; a nil logger
// is replaced with a nop.
func NewRetryer(cfg RetryConfig, extractor *AgeExtractor, detector *DeletedDetector, sleeper Sleeper, logger *zap.Logger) *Retryer {
	if cfg.MaxTries <= 0 {
		cfg.MaxTries = 1
	}
	if sleeper == nil {
		sleeper = StdSleeper()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retryer{
		cfg:       cfg,
		extractor: extractor,
		detector:  detector,
		sleeper:   sleeper,
		logger:    logger,
	}
}

// Fetch runs up to MaxTries attempts against the session. Transient failures
// (navigation errors, missing or out-of-range values) are logged at debug
// level and consume a try; they never surface to the caller. The deleted
// check runs before extraction: a deleted profile can never yield a value,
// so burning the remaining tries on it only starves the rest of the backlog.
func (r *Retryer) Fetch(ctx context.Context, sess Session, url string) Outcome {
	for attempt := 1; attempt <= r.cfg.MaxTries; attempt++ {
		if ctx.Err() != nil {
			return Unresolved()
		}

		if err := sess.Load(ctx, url); err != nil {
			r.logger.Debug("profile navigation failed",
				zap.String("url", url), zap.Int("attempt", attempt), zap.Error(err))
			continue
		}

		if r.detector.Wait(ctx, sess) {
			r.logger.Info("deleted profile detected", zap.String("url", url))
			r.sleeper.Sleep(ctx, r.cfg.DeletedPenalty)
			return Deleted()
		}

		r.sleeper.Sleep(ctx, r.settleWait())

		page, err := sess.Snapshot(ctx)
		if err != nil {
			r.logger.Debug("snapshot failed",
				zap.String("url", url), zap.Int("attempt", attempt), zap.Error(err))
			continue
		}

		age, ok := r.extractor.Extract(page.HTML)
		if !ok {
			r.logger.Debug("no age field in document",
				zap.String("url", url), zap.Int("attempt", attempt))
			continue
		}
		if age < r.cfg.MinAge || age > r.cfg.MaxAge {
			r.logger.Debug("age outside accepted range",
				zap.String("url", url), zap.Int("attempt", attempt), zap.Int("age", age))
			continue
		}
		return Found(age)
	}
	return Unresolved()
}

func (r *Retryer) settleWait() time.Duration {
	return r.cfg.SettleBase + r.cfg.SettleJitterMin +
		randomJitter(r.cfg.SettleJitterMax-r.cfg.SettleJitterMin)
}

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	bound := big.NewInt(int64(limit))
	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}
