// Package worker runs background maintenance for the accounts service.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/accounts-service/internal/pkg/metrics"
)

// ExpiredSessionDeleter is the store capability the sweeper needs.
type ExpiredSessionDeleter interface {
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// SessionSweeper periodically deletes sessions whose expiry has passed.
// Expired rows are already ignored by every lookup; sweeping only keeps the
// table from growing without bound.
type SessionSweeper struct {
	store    ExpiredSessionDeleter
	interval time.Duration
	log      zerolog.Logger
	wg       sync.WaitGroup
}

// NewSessionSweeper creates a sweeper that runs every interval.
func NewSessionSweeper(store ExpiredSessionDeleter, interval time.Duration, log zerolog.Logger) *SessionSweeper {
	return &SessionSweeper{store: store, interval: interval, log: log}
}

// Start launches the sweep loop. It stops when ctx is cancelled. A
// non-positive interval disables sweeping.
func (s *SessionSweeper) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.log.Info().Msg("session sweeper disabled")
		return
	}
	s.wg.Add(1)
	go s.run(ctx)
}

// Wait blocks until the loop started by Start has returned.
func (s *SessionSweeper) Wait() {
	s.wg.Wait()
}

func (s *SessionSweeper) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep performs one deletion pass.
func (s *SessionSweeper) Sweep(ctx context.Context) {
	n, err := s.store.DeleteExpiredSessions(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Error().Err(err).Msg("expired session sweep failed")
		}
		return
	}
	if n > 0 {
		metrics.SessionsSweptTotal.Add(float64(n))
		s.log.Debug().Int64("deleted", n).Msg("expired sessions swept")
	}
}
