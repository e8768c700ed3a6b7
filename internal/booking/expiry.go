package booking

import (
	"context"
	"fmt"
	"log"
	"time"
)

// DefaultSweepInterval is how often the scheduler looks for elapsed holds.
const DefaultSweepInterval = 5 * time.Second

// Sweeper releases holds that elapsed at now.  *Arbiter implements it.
type Sweeper interface {
	ExpireHolds(ctx context.Context, now time.Time) (int, error)
}

// ExpiryScheduler periodically releases elapsed holds.  It is the only
// guaranteed cleanup for clients that disappear without releasing.
type ExpiryScheduler struct {
	sweeper  Sweeper
	interval time.Duration
	now      func() time.Time
	logger   *log.Logger
}

// NewExpiryScheduler returns a scheduler that sweeps every interval.
func NewExpiryScheduler(s Sweeper, interval time.Duration) *ExpiryScheduler {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &ExpiryScheduler{
		sweeper:  s,
		interval: interval,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   log.Default(),
	}
}

// Run sweeps on every tick until ctx is cancelled.  A failed sweep is
// logged and retried on the next tick.
func (s *ExpiryScheduler) Run(ctx context.Context) error {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	s.logger.Printf("expiry: scheduler started (interval=%s)", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Printf("expiry: scheduler stopped")
			return ctx.Err()
		case <-t.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs a single expiry pass and returns the number of released
// seats.  Panics inside the sweeper are recovered and reported as errors.
func (s *ExpiryScheduler) Sweep(ctx context.Context) (released int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sweep panic: %v", r)
		}
		if err != nil && ctx.Err() == nil {
			s.logger.Printf("expiry: sweep failed: %v; retrying in %s", err, s.interval)
		}
	}()
	released, err = s.sweeper.ExpireHolds(ctx, s.now())
	if err == nil && released > 0 {
		s.logger.Printf("expiry: released %d seat(s)", released)
	}
	return released, err
}
