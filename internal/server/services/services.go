// Package services contains the server-side business logic: the credential
// store, the relation ledger and the fetch gateway, plus the file and clique
// registries built on top of them. Services own transactions; repositories
// only run statements on whatever dbx.DBTX they are handed.
package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/cliquefs/internal/dbx"
	"github.com/dmitrijs2005/cliquefs/internal/logging"
	"github.com/dmitrijs2005/cliquefs/internal/server/config"
	"github.com/sethvargo/go-retry"
)

const maxRetryDelay = time.Second

// withTimeout bounds ctx by d. A non-positive d only adds cancellation.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// retrier reruns operations that failed with ErrConflict or
// ErrStorageUnavailable, backing off exponentially. Other errors return
// immediately.
type retrier struct {
	attempts  uint64
	baseDelay time.Duration
	logger    logging.Logger
}

func newRetrier(cfg *config.Config, logger logging.Logger) retrier {
	r := retrier{baseDelay: cfg.RetryBaseDelay, logger: logger}
	if cfg.RetryAttempts > 0 {
		r.attempts = uint64(cfg.RetryAttempts)
	}
	if r.baseDelay <= 0 {
		r.baseDelay = time.Millisecond
	}
	return r
}

func withRetry[T any](ctx context.Context, r retrier, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	b := retry.WithMaxRetries(r.attempts, retry.WithCappedDuration(maxRetryDelay, retry.NewExponential(r.baseDelay)))

	return retry.DoValue(ctx, b, func(ctx context.Context) (T, error) {
		v, err := fn(ctx)
		if err != nil && dbx.IsRetryable(err) {
			r.logger.Debug(ctx, "retrying", "op", op, "error", err)
			return v, retry.RetryableError(err)
		}
		return v, err
	})
}
