package security

import (
	"fmt"
	"net/url"
	"strings"

	"e2e_harness/domain/entities"
	"e2e_harness/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// NavigationGuard keeps scenarios on the application under test
type NavigationGuard struct {
	hosts  map[string]struct{}
	logger *logrus.Logger
}

// NewNavigationGuard - allows the host of baseURL plus extraHosts. Entries may
// carry a port ("localhost:8080"); a bare hostname allows every port.
func NewNavigationGuard(baseURL string, extraHosts []string, logger *logrus.Logger) (*NavigationGuard, error) {
	if logger == nil {
		logger = logrus.New()
	}
	g := &NavigationGuard{hosts: make(map[string]struct{}), logger: logger}

	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}
	g.hosts[strings.ToLower(base.Host)] = struct{}{}

	for _, host := range extraHosts {
		host = strings.ToLower(strings.TrimSpace(host))
		if host != "" {
			g.hosts[host] = struct{}{}
		}
	}
	return g, nil
}

// Allow - rejects non-http(s) schemes and hosts outside the allow list
func (g *NavigationGuard) Allow(target string) error {
	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", entities.ErrNavigationBlocked, target, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	case "about":
		if u.Opaque == "blank" {
			return nil
		}
		fallthrough
	default:
		g.logger.Warnf("Blocked navigation to %s: scheme %q", target, u.Scheme)
		return fmt.Errorf("%w: scheme %q in %s", entities.ErrNavigationBlocked, u.Scheme, target)
	}

	host := strings.ToLower(u.Host)
	if _, ok := g.hosts[host]; ok {
		return nil
	}
	if _, ok := g.hosts[strings.ToLower(u.Hostname())]; ok {
		return nil
	}

	g.logger.Warnf("Blocked navigation to %s: host %s is not allowed", target, host)
	return fmt.Errorf("%w: host %s in %s", entities.ErrNavigationBlocked, host, target)
}

// Hosts returns the allowed hosts, for logging at startup
func (g *NavigationGuard) Hosts() []string {
	hosts := make([]string, 0, len(g.hosts))
	for h := range g.hosts {
		hosts = append(hosts, h)
	}
	return hosts
}

var _ interfaces.NavigationGuard = (*NavigationGuard)(nil)
