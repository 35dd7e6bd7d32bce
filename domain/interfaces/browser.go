package interfaces

import (
	"context"

	"e2e_harness/domain/entities"
)

// Handle is a driver-specific reference to one live element. It is only
// valid until the next navigation and must not be cached across steps.
type Handle interface {
	// Describe returns a short human-readable label used in errors
	Describe() string
}

// Driver defines the browser automation capability the harness consumes.
// One Driver is one browser session; it must not be shared by scenarios.
type Driver interface {
	// Navigate loads url and returns once a new document has loaded
	Navigate(ctx context.Context, url string) error

	// Find returns every element currently matching ref, possibly none
	Find(ctx context.Context, ref entities.ElementReference) ([]Handle, error)

	// Click clicks the element
	Click(ctx context.Context, h Handle) error

	// SendKeys types text as a sequence of individual key events
	SendKeys(ctx context.Context, h Handle, text string) error

	// PressKey sends a single non-character key to the element
	PressKey(ctx context.Context, h Handle, key entities.KeySymbol) error

	// Text returns the rendered text of the element
	Text(ctx context.Context, h Handle) (string, error)

	// Value returns the current value property of a form field
	Value(ctx context.Context, h Handle) (string, error)

	// Attribute returns the attribute value and whether it is set
	Attribute(ctx context.Context, h Handle, name string) (string, bool, error)

	Displayed(ctx context.Context, h Handle) (bool, error)
	Enabled(ctx context.Context, h Handle) (bool, error)
	Focused(ctx context.Context, h Handle) (bool, error)

	CurrentURL(ctx context.Context) (string, error)

	// Screenshot takes a screenshot of the current page
	Screenshot(ctx context.Context) ([]byte, error)

	// Close ends the session
	Close() error
}

// SessionFactory opens a fresh, isolated browser session
type SessionFactory func(ctx context.Context) (Driver, error)
