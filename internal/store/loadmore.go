package store

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

// DefaultThrottle is the minimum spacing between accepted load-more triggers.
const DefaultThrottle = time.Second

// Loader is the part of the store the coordinator drives.
type Loader interface {
	LoadMore(ctx context.Context) error
	HasMore() bool
	Loading() bool
}

// LoadMoreCoordinator turns "end of list is in view" signals into page loads.
// Triggers arriving while a load runs are dropped, and accepted triggers are throttled.
type LoadMoreCoordinator struct {
	loader   Loader
	clock    clockwork.Clock
	limiter  *rate.Limiter
	inFlight atomic.Bool
}

// NewLoadMoreCoordinator creates a coordinator. A throttle of 0 disables throttling.
func NewLoadMoreCoordinator(loader Loader, clock clockwork.Clock, throttle time.Duration) *LoadMoreCoordinator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	limit := rate.Inf
	if throttle > 0 {
		limit = rate.Every(throttle)
	}
	return &LoadMoreCoordinator{
		loader:  loader,
		clock:   clock,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Trigger loads the next page when inView is set and a load is due.
// It reports whether a load was started.
func (c *LoadMoreCoordinator) Trigger(ctx context.Context, inView bool) (bool, error) {
	if !inView {
		return false, nil
	}
	if !c.inFlight.CompareAndSwap(false, true) {
		return false, nil
	}
	defer c.inFlight.Store(false)

	if !c.loader.HasMore() || c.loader.Loading() {
		return false, nil
	}
	if !c.limiter.AllowN(c.clock.Now(), 1) {
		return false, nil
	}
	return true, c.loader.LoadMore(ctx)
}
