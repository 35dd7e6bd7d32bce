package entities

import (
	"fmt"
	"net/url"
	"strings"
)

// PageTarget is a URL identifying a page to navigate to
type PageTarget string

// Resolve - joins a relative target onto base. Absolute targets are returned as is.
func (t PageTarget) Resolve(base string) (string, error) {
	target, err := url.Parse(string(t))
	if err != nil {
		return "", fmt.Errorf("invalid page target %q: %w", t, err)
	}
	if target.IsAbs() {
		return target.String(), nil
	}
	if base == "" {
		return "", fmt.Errorf("relative page target %q requires a base URL", t)
	}
	baseURL, err := url.Parse(strings.TrimRight(base, "/") + "/")
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", base, err)
	}
	return baseURL.ResolveReference(target).String(), nil
}
