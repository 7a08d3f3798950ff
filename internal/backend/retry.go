package backend

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/diffsec/parsentry/internal/apperrors"
)

// RetryWithBackoff runs op up to maxRetries+1 times using an exponential
// backoff schedule (1s base, doubling, capped growth), the retry policy
// shared by every backend's ExecuteWithRetry. BinaryNotFound and SpawnError
// are returned at once without retrying.
func RetryWithBackoff(ctx context.Context, maxRetries int, op func() (string, error)) (string, error) {
	policy := backoff.NewExponentialBackOff()
	// 1s · 2^min(attempt,5): doubling from 1s, capped at 32s, no jitter.
	policy.InitialInterval = time.Second
	policy.Multiplier = 2
	policy.RandomizationFactor = 0
	policy.MaxInterval = 32 * time.Second
	policy.MaxElapsedTime = 0 // bounded by maxRetries, not wall-clock
	bctx := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(maxRetries)), ctx)

	var result string
	err := backoff.Retry(func() error {
		r, opErr := op()
		if opErr != nil {
			var notFound *apperrors.BinaryNotFound
			var spawnErr *apperrors.SpawnError
			if errors.As(opErr, &notFound) || errors.As(opErr, &spawnErr) {
				return backoff.Permanent(opErr)
			}
			return opErr
		}
		result = r
		return nil
	}, bctx)
	if err != nil {
		return "", err
	}
	return result, nil
}
