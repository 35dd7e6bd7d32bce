package harness

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"e2e_harness/domain/entities"
	"e2e_harness/domain/interfaces"
)

// Asserter compares observed page state with expectations. Every check reads
// the live page at call time.
type Asserter struct {
	driver         interfaces.Driver
	locator        *Locator
	waiter         *Waiter
	resolveTimeout time.Duration
}

// NewAsserter - creates new assertion engine
func NewAsserter(driver interfaces.Driver, locator *Locator, waiter *Waiter, resolveTimeout time.Duration) *Asserter {
	return &Asserter{
		driver:         driver,
		locator:        locator,
		waiter:         waiter,
		resolveTimeout: resolveTimeout,
	}
}

// AssertEqual fails with an AssertionError when observed differs from expected
func AssertEqual(subject, observed, expected string) error {
	if observed != expected {
		return &entities.AssertionError{Subject: subject, Observed: observed, Expected: expected}
	}
	return nil
}

// AssertVisible fails unless the element is displayed
func (a *Asserter) AssertVisible(ctx context.Context, h interfaces.Handle) error {
	displayed, err := a.driver.Displayed(ctx, h)
	if err != nil {
		return err
	}
	return AssertEqual(h.Describe()+" visibility", visibility(displayed), visibility(true))
}

// Check evaluates cond against the current page
func (a *Asserter) Check(ctx context.Context, cond entities.Condition) error {
	switch cond.Kind {
	case entities.CondAbsent:
		handles, err := a.locator.FindNow(ctx, cond.Element)
		if err != nil {
			return err
		}
		return AssertEqual(cond.Element.String()+" matches", strconv.Itoa(len(handles)), "0")

	case entities.CondHidden:
		handles, err := a.locator.FindNow(ctx, cond.Element)
		switch {
		case err != nil:
			return err
		case len(handles) == 0:
			return nil
		case len(handles) > 1:
			return &entities.LocateError{Ref: cond.Element, Matches: len(handles), Err: entities.ErrAmbiguous}
		}
		ok, observed, err := a.read(ctx, cond, handles[0])
		if err != nil {
			return err
		}
		if !ok {
			return AssertEqual(cond.String(), observed, "hidden")
		}
		return nil

	case entities.CondNeverVisible:
		violated, err := a.waiter.Never(ctx, func(ctx context.Context) (bool, error) {
			return a.anyVisible(ctx, cond.Element)
		}, cond.Within)
		if err != nil {
			return err
		}
		if violated {
			return &entities.AssertionError{
				Subject:  cond.String(),
				Observed: "visible",
				Expected: "hidden",
			}
		}
		return nil
	}

	h, err := a.locator.Resolve(ctx, cond.Element, a.resolveTimeout)
	if err != nil {
		return err
	}
	if cond.Kind == entities.CondPresent {
		return nil
	}
	ok, observed, err := a.read(ctx, cond, h)
	if err != nil {
		return err
	}
	if !ok {
		return &entities.AssertionError{Subject: cond.String(), Observed: observed, Expected: expectation(cond)}
	}
	return nil
}

// Holds evaluates cond once without waiting for the element to appear. It is
// the predicate behind wait steps; observed describes what was seen.
func (a *Asserter) Holds(ctx context.Context, cond entities.Condition) (ok bool, observed string, err error) {
	handles, err := a.locator.FindNow(ctx, cond.Element)
	if err != nil {
		return false, "", err
	}

	switch cond.Kind {
	case entities.CondAbsent:
		return len(handles) == 0, matches(len(handles)), nil
	case entities.CondPresent:
		return len(handles) == 1, matches(len(handles)), nil
	case entities.CondHidden, entities.CondNeverVisible:
		if len(handles) == 0 {
			return true, matches(0), nil
		}
	}

	if len(handles) != 1 {
		return false, matches(len(handles)), nil
	}
	return a.read(ctx, cond, handles[0])
}

func (a *Asserter) read(ctx context.Context, cond entities.Condition, h interfaces.Handle) (bool, string, error) {
	switch cond.Kind {
	case entities.CondPresent:
		return true, matches(1), nil
	case entities.CondVisible:
		displayed, err := a.driver.Displayed(ctx, h)
		return displayed, visibility(displayed), err
	case entities.CondHidden, entities.CondNeverVisible:
		displayed, err := a.driver.Displayed(ctx, h)
		return !displayed, visibility(displayed), err
	case entities.CondFocused:
		focused, err := a.driver.Focused(ctx, h)
		return focused, strconv.FormatBool(focused), err
	case entities.CondTextEquals:
		text, err := a.driver.Text(ctx, h)
		return text == cond.Expected, text, err
	case entities.CondValueEquals:
		value, err := a.driver.Value(ctx, h)
		return value == cond.Expected, value, err
	case entities.CondAttributeEquals:
		value, set, err := a.driver.Attribute(ctx, h, cond.Attribute)
		if !set {
			return false, "<unset>", err
		}
		return value == cond.Expected, value, err
	default:
		return false, "", fmt.Errorf("unsupported condition %q", cond.Kind)
	}
}

func (a *Asserter) anyVisible(ctx context.Context, ref entities.ElementReference) (bool, error) {
	handles, err := a.locator.FindNow(ctx, ref)
	if err != nil {
		return false, err
	}
	for _, h := range handles {
		displayed, err := a.driver.Displayed(ctx, h)
		if err != nil {
			// the element may be detached between Find and Displayed
			if errors.Is(err, entities.ErrNotFound) {
				continue
			}
			return false, err
		}
		if displayed {
			return true, nil
		}
	}
	return false, nil
}

func expectation(cond entities.Condition) string {
	switch cond.Kind {
	case entities.CondVisible:
		return visibility(true)
	case entities.CondFocused:
		return "true"
	default:
		return cond.Expected
	}
}

func visibility(displayed bool) string {
	if displayed {
		return "visible"
	}
	return "hidden"
}

func matches(n int) string {
	return fmt.Sprintf("%d matches", n)
}
