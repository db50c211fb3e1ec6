// Package health holds the explicit readiness state the request layer gates
// on. Dependency checks update it; nothing reads an ambient global.
package health

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tavolo/reservations/pkg/logger"
)

// State tracks whether the backing store is reachable. When not ready, the
// API degrades uniformly to 503 instead of failing piecemeal per request.
type State struct {
	ready atomic.Bool
}

func NewState() *State {
	s := &State{}
	return s
}

func (s *State) Ready() bool { return s.ready.Load() }

func (s *State) Set(ready bool) { s.ready.Store(ready) }

// Watch pings the pool on an interval and keeps the state current. Blocks
// until ctx is done; run it in its own goroutine.
func (s *State) Watch(ctx context.Context, pool *pgxpool.Pool, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}

	check := func() {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()

		err := pool.Ping(pingCtx)
		was := s.ready.Swap(err == nil)
		if err != nil && was {
			logger.Error("database unreachable, gating requests", "error", err)
		} else if err == nil && !was {
			logger.Info("database reachable, accepting requests")
		}
	}

	check()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}
