package harness

import (
	"context"
	"fmt"
	"time"

	"e2e_harness/domain/entities"
)

const (
	DefaultPollInterval = 50 * time.Millisecond
	minPollInterval     = 10 * time.Millisecond
	maxPollInterval     = 100 * time.Millisecond
)

// Predicate reports whether a condition over page state currently holds. A
// returned error stops polling.
type Predicate func(ctx context.Context) (bool, error)

// Waiter polls predicates at a bounded interval
type Waiter struct {
	interval time.Duration
}

// NewWaiter - creates a waiter polling every interval, clamped to 10-100ms
func NewWaiter(interval time.Duration) *Waiter {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if interval < minPollInterval {
		interval = minPollInterval
	}
	if interval > maxPollInterval {
		interval = maxPollInterval
	}
	return &Waiter{interval: interval}
}

// Interval returns the effective poll interval
func (w *Waiter) Interval() time.Duration {
	return w.interval
}

// Until blocks until p holds, the timeout elapses (ErrTimeout) or ctx is
// cancelled (ErrAborted). p is evaluated once immediately and is never
// evaluated after the deadline has passed.
func (w *Waiter) Until(ctx context.Context, p Predicate, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return aborted(err)
	}

	deadline := time.Now().Add(timeout)
	pctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		ok, err := p(pctx)
		if ctx.Err() != nil {
			return aborted(ctx.Err())
		}
		if err != nil {
			if pctx.Err() != nil {
				return fmt.Errorf("%w after %s", entities.ErrTimeout, timeout)
			}
			return err
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return aborted(ctx.Err())
		case <-pctx.Done():
			if ctx.Err() != nil {
				return aborted(ctx.Err())
			}
			return fmt.Errorf("%w after %s", entities.ErrTimeout, timeout)
		case <-ticker.C:
			if !time.Now().Before(deadline) {
				return fmt.Errorf("%w after %s", entities.ErrTimeout, timeout)
			}
		}
	}
}

// Never polls p for the whole window and reports violated as soon as p holds.
// It returns violated=false once the window passes without p holding.
func (w *Waiter) Never(ctx context.Context, p Predicate, window time.Duration) (violated bool, err error) {
	if err := ctx.Err(); err != nil {
		return false, aborted(err)
	}

	end := time.Now().Add(window)
	timer := time.NewTimer(window)
	defer timer.Stop()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		ok, err := p(ctx)
		if ctx.Err() != nil {
			return false, aborted(ctx.Err())
		}
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}

		select {
		case <-ctx.Done():
			return false, aborted(ctx.Err())
		case <-timer.C:
			return false, nil
		case <-ticker.C:
			if !time.Now().Before(end) {
				return false, nil
			}
		}
	}
}

func aborted(cause error) error {
	return fmt.Errorf("%w: %v", entities.ErrAborted, cause)
}
