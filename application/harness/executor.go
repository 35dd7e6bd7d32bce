package harness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"e2e_harness/domain/entities"
	"e2e_harness/domain/interfaces"

	"github.com/sirupsen/logrus"
)

const DefaultActionTimeout = 10 * time.Second

// Executor issues primitive interactions against located handles. Each call
// blocks until the driver acknowledges completion or the action times out.
type Executor struct {
	driver        interfaces.Driver
	waiter        *Waiter
	guard         interfaces.NavigationGuard
	baseURL       string
	actionTimeout time.Duration
	logger        *logrus.Entry
}

// NewExecutor - creates new action executor. guard may be nil.
func NewExecutor(driver interfaces.Driver, waiter *Waiter, guard interfaces.NavigationGuard, baseURL string, actionTimeout time.Duration, logger *logrus.Entry) *Executor {
	if actionTimeout <= 0 {
		actionTimeout = DefaultActionTimeout
	}
	return &Executor{
		driver:        driver,
		waiter:        waiter,
		guard:         guard,
		baseURL:       baseURL,
		actionTimeout: actionTimeout,
		logger:        logger,
	}
}

// Navigate - loads target, resolving relative targets against the base URL
func (e *Executor) Navigate(ctx context.Context, target entities.PageTarget) error {
	url, err := target.Resolve(e.baseURL)
	if err != nil {
		return fmt.Errorf("%w: %w", entities.ErrNavigation, err)
	}
	if e.guard != nil {
		if err := e.guard.Allow(url); err != nil {
			return err
		}
	}

	e.logger.Debugf("Navigating to: %s", url)
	err = e.do(ctx, func(ctx context.Context) error {
		return e.driver.Navigate(ctx, url)
	})
	if err == nil || errors.Is(err, entities.ErrAborted) || errors.Is(err, entities.ErrSessionLost) ||
		errors.Is(err, entities.ErrNavigation) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", entities.ErrNavigation, url, err)
}

// Click - clicks the element; hidden or disabled elements are not interactable
func (e *Executor) Click(ctx context.Context, h interfaces.Handle) error {
	if err := e.ensureInteractable(ctx, h); err != nil {
		return err
	}
	e.logger.Debugf("Clicking on: %s", h.Describe())
	return e.do(ctx, func(ctx context.Context) error {
		return e.driver.Click(ctx, h)
	})
}

// TypeText - appends text as sequential key events
func (e *Executor) TypeText(ctx context.Context, h interfaces.Handle, text string) error {
	if err := e.ensureInteractable(ctx, h); err != nil {
		return err
	}
	e.logger.Debugf("Typing text into: %s", h.Describe())
	return e.do(ctx, func(ctx context.Context) error {
		return e.driver.SendKeys(ctx, h, text)
	})
}

// SendSpecialKey - sends a non-character key. For keys that move focus it
// also waits until the element has actually lost focus, so the next step
// reads settled state.
func (e *Executor) SendSpecialKey(ctx context.Context, h interfaces.Handle, key entities.KeySymbol) error {
	if !key.Known() {
		return fmt.Errorf("unknown key %q", key)
	}
	e.logger.Debugf("Pressing %s on: %s", key, h.Describe())
	err := e.do(ctx, func(ctx context.Context) error {
		return e.driver.PressKey(ctx, h, key)
	})
	if err != nil || !key.MovesFocus() {
		return err
	}

	err = e.waiter.Until(ctx, func(ctx context.Context) (bool, error) {
		focused, err := e.driver.Focused(ctx, h)
		if err != nil {
			return false, err
		}
		return !focused, nil
	}, e.actionTimeout)
	if errors.Is(err, entities.ErrTimeout) {
		return fmt.Errorf("%s still focused after %s: %w", h.Describe(), key, err)
	}
	return err
}

func (e *Executor) ensureInteractable(ctx context.Context, h interfaces.Handle) error {
	var displayed, enabled bool
	err := e.do(ctx, func(ctx context.Context) error {
		var err error
		if displayed, err = e.driver.Displayed(ctx, h); err != nil {
			return err
		}
		enabled, err = e.driver.Enabled(ctx, h)
		return err
	})
	if err != nil {
		return err
	}
	switch {
	case !displayed:
		return fmt.Errorf("%w: %s is hidden", entities.ErrNotInteractable, h.Describe())
	case !enabled:
		return fmt.Errorf("%w: %s is disabled", entities.ErrNotInteractable, h.Describe())
	}
	return nil
}

// do runs one driver call under the action timeout and normalizes the
// resulting error
func (e *Executor) do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return aborted(err)
	}
	actx, cancel := context.WithTimeout(ctx, e.actionTimeout)
	defer cancel()

	err := fn(actx)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return aborted(ctx.Err())
	case errors.Is(err, entities.ErrSessionLost), errors.Is(err, entities.ErrTimeout):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: driver did not respond within %s", entities.ErrTimeout, e.actionTimeout)
	default:
		return err
	}
}
