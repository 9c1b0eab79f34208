package transport

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/goliatone/go-article-sync/articlesync"
)

// retryPolicy retries transport-level failures with exponential backoff.
// Only idempotent requests go through it; a write is never replayed because
// the outcome of the first attempt is unknown.
type retryPolicy struct {
	max      uint
	interval time.Duration
}

func (p retryPolicy) run(ctx context.Context, op func() error) error {
	if p.max == 0 {
		return op()
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.interval

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		// HTTP-level failures already carry a server answer; retrying would
		// not change it.
		if articlesync.KindOf(err) != articlesync.KindNetwork {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.max)), ctx))
}
