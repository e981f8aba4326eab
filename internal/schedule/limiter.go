// Package schedule provides the policies that bound concurrent solver use.
// The engine receives a Limiter from its caller and never sizes one itself.
package schedule

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Limiter bounds the number of solver requests in flight.
type Limiter interface {
	// Acquire blocks until a slot is free or ctx is done.
	Acquire(ctx context.Context) error
	Release()
}

type weighted struct {
	sem *semaphore.Weighted
}

// NewSemaphore returns a Limiter admitting at most n concurrent requests.
// n below one is treated as one.
func NewSemaphore(n int) Limiter {
	if n < 1 {
		n = 1
	}
	return &weighted{sem: semaphore.NewWeighted(int64(n))}
}

func (w *weighted) Acquire(ctx context.Context) error {
	return w.sem.Acquire(ctx, 1)
}

func (w *weighted) Release() {
	w.sem.Release(1)
}

type unlimited struct{}

// Unlimited returns a Limiter that never blocks.
func Unlimited() Limiter {
	return unlimited{}
}

func (unlimited) Acquire(ctx context.Context) error { return ctx.Err() }
func (unlimited) Release() {}
