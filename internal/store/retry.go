package store

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const retryMaxElapsed = 30 * time.Second

// WithRetry runs op with exponential backoff on transient failure, so a
// briefly unavailable database does not fail a check completion. Logical
// errors (not found, duplicates, invalid transitions) are permanent and
// returned immediately; the at-least-once completion path handles
// duplicates itself.
func WithRetry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = retryMaxElapsed

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if isPermanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(b, ctx))
}

func isPermanent(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrDuplicateKey) ||
		errors.Is(err, ErrInvalidTransition)
}
