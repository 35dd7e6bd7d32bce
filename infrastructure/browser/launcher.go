package browser

import (
	"context"
	"fmt"
	"strings"

	"e2e_harness/domain/interfaces"
)

// Supported driver names
const (
	DriverPlaywright = "playwright"
	DriverSelenium   = "selenium"
	DriverChromeDP   = "chromedp"
)

// Launcher opens isolated browser sessions. Open satisfies interfaces.SessionFactory.
type Launcher interface {
	Open(ctx context.Context) (interfaces.Driver, error)
	Close() error
}

// DriverNames lists the accepted values for NewLauncher
func DriverNames() []string {
	return []string{DriverPlaywright, DriverSelenium, DriverChromeDP}
}

// NewLauncher - creates the launcher for the named driver
func NewLauncher(name string, opts Options) (Launcher, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case DriverPlaywright, "":
		return NewPlaywrightLauncher(opts)
	case DriverSelenium:
		return NewSeleniumLauncher(opts)
	case DriverChromeDP:
		return NewChromeDPLauncher(opts), nil
	default:
		return nil, fmt.Errorf("unknown driver %q, expected one of %s", name, strings.Join(DriverNames(), ", "))
	}
}
