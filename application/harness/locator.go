package harness

import (
	"context"
	"errors"
	"time"

	"e2e_harness/domain/entities"
	"e2e_harness/domain/interfaces"
)

// Locator resolves element references against the live page
type Locator struct {
	driver interfaces.Driver
	waiter *Waiter
}

// NewLocator - creates new locator
func NewLocator(driver interfaces.Driver, waiter *Waiter) *Locator {
	return &Locator{driver: driver, waiter: waiter}
}

// Resolve waits until ref matches exactly one element and returns it. When the
// timeout elapses the last observation decides the error: zero matches is
// ErrNotFound, several is ErrAmbiguous.
func (l *Locator) Resolve(ctx context.Context, ref entities.ElementReference, timeout time.Duration) (interfaces.Handle, error) {
	var (
		handle  interfaces.Handle
		matches int
	)

	err := l.waiter.Until(ctx, func(ctx context.Context) (bool, error) {
		handles, err := l.driver.Find(ctx, ref)
		if err != nil {
			return false, err
		}
		matches = len(handles)
		if matches == 1 {
			handle = handles[0]
			return true, nil
		}
		return false, nil
	}, timeout)

	switch {
	case err == nil:
		return handle, nil
	case errors.Is(err, entities.ErrTimeout):
		cause := entities.ErrNotFound
		if matches > 1 {
			cause = entities.ErrAmbiguous
		}
		return nil, &entities.LocateError{Ref: ref, Matches: matches, Err: cause}
	default:
		return nil, err
	}
}

// FindNow returns the elements matching ref right now, without waiting
func (l *Locator) FindNow(ctx context.Context, ref entities.ElementReference) ([]interfaces.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, aborted(err)
	}
	return l.driver.Find(ctx, ref)
}
