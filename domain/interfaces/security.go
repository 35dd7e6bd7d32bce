package interfaces

// NavigationGuard decides whether the browser may be sent to a URL
type NavigationGuard interface {
	// Allow returns an error wrapping entities.ErrNavigationBlocked when url
	// must not be loaded
	Allow(url string) error
}
