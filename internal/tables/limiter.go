package tables

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrBusy is returned by Limiter.Acquire when no seed slot frees up within
// the wait time.
var ErrBusy = errors.New("too many concurrent seeds")

// Limiter defaults.
const (
	DefaultMaxConcurrentSeeds = 2
	DefaultSeedWait           = 30 * time.Second
)

// Limiter bounds the number of seeds running at once. Each seed holds a
// pool connection for the whole COPY, so unbounded seeding starves queries.
type Limiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int64
}

// NewLimiter returns a limiter admitting maxConcurrent seeds. Callers that
// cannot get a slot within maxWait receive ErrBusy. Non-positive arguments
// select the defaults.
func NewLimiter(maxConcurrent int, maxWait time.Duration) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentSeeds
	}
	if maxWait <= 0 {
		maxWait = DefaultSeedWait
	}
	return &Limiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire waits for a free slot. Every successful Acquire must be paired
// with a Release.
func (l *Limiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrBusy
	}
}

// Release frees a slot taken by Acquire.
func (l *Limiter) Release() {
	l.active.Add(-1)
	<-l.slots
}

// Active returns the number of seeds holding a slot.
func (l *Limiter) Active() int {
	return int(l.active.Load())
}

// Capacity returns the maximum number of concurrent seeds.
func (l *Limiter) Capacity() int {
	return cap(l.slots)
}

// Drain blocks until no seed holds a slot or ctx is done.
func (l *Limiter) Drain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for l.Active() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
