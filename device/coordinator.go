package device

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Coordinator is the single lock serializing all access to a Device.
// Unlike sync.Mutex, waiting for it can be interrupted with a context.
type Coordinator struct {
	sem *semaphore.Weighted
}

// NewCoordinator returns an unlocked Coordinator
func NewCoordinator() *Coordinator {
	return &Coordinator{
		sem: semaphore.NewWeighted(1),
	}
}

// Lock blocks until the lock is acquired or ctx is done.
// On success it returns a function releasing the lock, safe to call more
// than once. If ctx is done first, the error wraps ErrInterrupted and the
// lock is not held.
func (c *Coordinator) Lock(ctx context.Context) (func(), error) {
	// Acquire may succeed on a done context if the lock is free
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInterrupted, err)
	}
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInterrupted, err)
	}
	var once sync.Once
	unlock := func() {
		once.Do(func() {
			c.sem.Release(1)
		})
	}
	return unlock, nil
}

// Do runs fn while holding the lock
func (c *Coordinator) Do(ctx context.Context, fn func() error) error {
	unlock, err := c.Lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	return fn()
}
