package authkit

import (
	"context"
	"time"
)

// DefaultSweepInterval is how often the sweeper reclaims dead rows.
const DefaultSweepInterval = time.Hour

// Sweeper reclaims rows whose absence changes nothing: blacklist entries
// past their token's expiry, expired single-use tokens, and expired
// sessions. Missing a run is harmless; expiry checks already reject
// everything the sweeper would delete.
type Sweeper struct {
	repos    RepositoryManager
	interval time.Duration
	logger   Logger
	now      func() time.Time
}

// NewSweeper builds a sweeper over the manager's repositories.
func NewSweeper(repos RepositoryManager, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		repos:    repos,
		interval: DefaultSweepInterval,
		logger:   defLogger{},
		now:      time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// SweeperOption customizes sweeper construction.
type SweeperOption func(*Sweeper)

// WithSweepInterval overrides the tick interval.
func WithSweepInterval(interval time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithSweeperLogger sets the logger.
func WithSweeperLogger(logger Logger) SweeperOption {
	return func(s *Sweeper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSweeperClock injects a custom clock (useful for tests).
func WithSweeperClock(clock func() time.Time) SweeperOption {
	return func(s *Sweeper) {
		if clock != nil {
			s.now = clock
		}
	}
}

// Run sweeps once immediately, then on every tick until ctx is cancelled.
// Intended to be started in its own goroutine.
func (s *Sweeper) Run(ctx context.Context) {
	s.Sweep(ctx)

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

// Sweep runs one reclamation pass. Errors are logged, never returned: a
// failed sweep retries on the next tick.
func (s *Sweeper) Sweep(ctx context.Context) {
	cutoff := s.now()

	if n, err := s.repos.RevokedTokens().DeleteExpired(ctx, cutoff); err != nil {
		s.logger.Error("failed to sweep revoked tokens", "error", err)
	} else if n > 0 {
		s.logger.Debug("swept revoked tokens", "count", n)
	}

	if n, err := s.repos.SingleUseTokens().DeleteExpired(ctx, cutoff); err != nil {
		s.logger.Error("failed to sweep single-use tokens", "error", err)
	} else if n > 0 {
		s.logger.Debug("swept single-use tokens", "count", n)
	}

	if n, err := s.repos.Sessions().DeleteExpired(ctx, cutoff); err != nil {
		s.logger.Error("failed to sweep sessions", "error", err)
	} else if n > 0 {
		s.logger.Debug("swept sessions", "count", n)
	}
}
