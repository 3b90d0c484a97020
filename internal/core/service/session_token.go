package service

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/99minutos/accounts-service/internal/core/domain"
	"github.com/99minutos/accounts-service/internal/core/ports"
	"github.com/99minutos/accounts-service/internal/pkg/metrics"
)

// untilSuccess retries immediately and never gives up on its own; the loop
// ends on success, on a non-retryable error or when ctx is done.
var untilSuccess = retry.BackoffFunc(func() (time.Duration, bool) {
	return 0, false
})

// createUserSession mints tokens until the store accepts one. A duplicate
// token is the only condition that is retried; any other store error aborts.
func createUserSession(
	ctx context.Context,
	store ports.SessionStore,
	username domain.Username,
	expiresAt time.Time,
	mint func() domain.SessionToken,
) (domain.SessionToken, error) {
	var created domain.SessionToken
	err := retry.Do(ctx, untilSuccess, func(ctx context.Context) error {
		candidate := mint()
		err := store.CreateUserSession(ctx, candidate, username, expiresAt)
		switch {
		case err == nil:
			created = candidate
			return nil
		case store.IsUniqueConstraintViolated(err):
			metrics.SessionTokenCollisionsTotal.Inc()
			return retry.RetryableError(err)
		default:
			return err
		}
	})
	if err != nil {
		return domain.SessionToken{}, err
	}
	return created, nil
}
