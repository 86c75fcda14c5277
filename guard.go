package mvnclite

import (
	"context"
	"errors"

	"golang.org/x/sync/semaphore"
)

// ErrGuardClosed is returned by Guard.Do after the Guard has been closed
var ErrGuardClosed = errors.New("mvnclite: session guard closed")

// Guard serialises access to a single Session so several goroutines can share
// one device.  Waiting for the Session honours the context, a call that has
// started on the device always runs to completion.
type Guard struct {
	sess   *Session
	sem    *semaphore.Weighted
	closed bool
}

// NewGuard wraps an opened Session
func NewGuard(s *Session) *Guard {
	return &Guard{
		sess: s,
		sem:  semaphore.NewWeighted(1),
	}
}

// Do runs fn with exclusive use of the Session
func (g *Guard) Do(ctx context.Context, fn func(*Session) error) error {

	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}

	defer g.sem.Release(1)

	if g.closed {
		return ErrGuardClosed
	}

	return fn(g.sess)
}

// Close waits for the running call to finish then closes the Session.  Later
// calls to Do fail with ErrGuardClosed.
func (g *Guard) Close(deallocGraphFirst bool) error {

	if err := g.sem.Acquire(context.Background(), 1); err != nil {
		return err
	}

	defer g.sem.Release(1)

	if g.closed {
		return nil
	}

	g.closed = true

	return g.sess.Close(deallocGraphFirst)
}
