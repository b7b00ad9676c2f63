package service

import (
	"context"
	"math/rand"
	"time"

	"github.com/rl1809/storefront/internal/core/domain"
)

// RetryPolicy retries an operation that failed with contention, backing off
// exponentially with jitter. Any other error is returned at once.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := max(p.Attempts, 1)

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		err = fn(ctx)
		if err == nil || !domain.IsRetryable(err) || attempt == attempts-1 {
			return err
		}

		timer := time.NewTimer(p.backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
	return err
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	exp := p.BaseDelay << min(attempt, 20)
	if p.MaxDelay > 0 && exp > p.MaxDelay {
		exp = p.MaxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(exp/2) + 1))
	return exp + jitter
}
