package entities

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("element not found")
	ErrAmbiguous       = errors.New("element reference is ambiguous")
	ErrNotInteractable = errors.New("element not interactable")
	ErrTimeout         = errors.New("timed out")
	ErrNavigation      = errors.New("navigation failed")
	ErrAssertionFailed = errors.New("assertion failed")
	ErrAborted         = errors.New("aborted")

	// ErrSessionLost is fatal to the whole run
	ErrSessionLost = errors.New("browser session lost")

	ErrNavigationBlocked = fmt.Errorf("%w: target host not allowed", ErrNavigation)
)

// LocateError reports a reference that did not resolve to exactly one element
type LocateError struct {
	Ref     ElementReference
	Matches int
	Err     error
}

func (e *LocateError) Error() string {
	if errors.Is(e.Err, ErrAmbiguous) {
		return fmt.Sprintf("%s matched %d elements: %v", e.Ref, e.Matches, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Ref, e.Err)
}

func (e *LocateError) Unwrap() error { return e.Err }

// AssertionError carries the observed and expected values of a failed check
type AssertionError struct {
	Subject  string
	Observed string
	Expected string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("%v: %s: observed %q, expected %q", ErrAssertionFailed, e.Subject, e.Observed, e.Expected)
}

func (e *AssertionError) Unwrap() error { return ErrAssertionFailed }

// StepError ties a failure to the step that produced it
type StepError struct {
	Index int
	Step  Step
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Index, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// IsInfrastructure reports whether err means the harness itself broke rather
// than the page under test misbehaving
func IsInfrastructure(err error) bool {
	return errors.Is(err, ErrSessionLost)
}
