package server

import (
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Tracker keeps track of goroutines serving the device so that they can
// be joined before the device is torn down
type Tracker struct {
	g       errgroup.Group
	running atomic.Int64
}

// Go runs fn in a new goroutine
func (t *Tracker) Go(fn func() error) {
	t.running.Add(1)
	t.g.Go(func() error {
		defer t.running.Add(-1)
		return fn()
	})
}

// Running returns number of goroutines that haven't finished yet
func (t *Tracker) Running() int {
	return int(t.running.Load())
}

// Wait blocks until all goroutines finished and returns the first
// non-nil error
func (t *Tracker) Wait() error {
	return t.g.Wait()
}
