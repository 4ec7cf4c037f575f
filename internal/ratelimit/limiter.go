package ratelimit

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"go-cvlibrary-scraper/internal/config"

	"golang.org/x/time/rate"
)

const maxMultiplier = 8.0

// Limiter paces portal navigation: a per-minute token bucket followed by a
// random human-like pause that stretches after errors.
type Limiter struct {
	mu         sync.Mutex
	bucket     *rate.Limiter
	minDelay   time.Duration
	maxDelay   time.Duration
	backoff    bool
	multiplier float64

	sleep func(ctx context.Context, d time.Duration) error
}

func New(cfg config.RateLimitConfig) *Limiter {
	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}
	return &Limiter{
		bucket:     rate.NewLimiter(limit, 1),
		minDelay:   seconds(cfg.DelayMinSeconds),
		maxDelay:   seconds(cfg.DelayMaxSeconds),
		backoff:    cfg.ExponentialBackoff,
		multiplier: 1,
		sleep:      sleepCtx,
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Wait blocks until the next navigation is allowed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.bucket.Wait(ctx); err != nil {
		return err
	}
	return l.sleep(ctx, l.NextDelay())
}

// NextDelay draws the pause that the next Wait will apply.
func (l *Limiter) NextDelay() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	d := l.minDelay
	if span := l.maxDelay - l.minDelay; span > 0 {
		d += time.Duration(rand.Int64N(int64(span) + 1))
	}
	return time.Duration(float64(d) * l.multiplier)
}

func (l *Limiter) OnSuccess() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.multiplier = 1
}

func (l *Limiter) OnError() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.backoff {
		return
	}
	l.multiplier = min(l.multiplier*2, maxMultiplier)
}

func (l *Limiter) Multiplier() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.multiplier
}

// Pause sleeps for d unless ctx ends first.
func Pause(ctx context.Context, d time.Duration) error {
	return sleepCtx(ctx, d)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
