package security

import (
	"io"
	"testing"

	"e2e_harness/domain/entities"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestNavigationGuard(t *testing.T) {
	guard, err := NewNavigationGuard("http://localhost:8080", []string{"static.example.com", " "}, quietLogger())
	require.NoError(t, err)

	tests := []struct {
		target  string
		allowed bool
	}{
		{"http://localhost:8080/views/test/autocomplete_on.html", true},
		{"http://LOCALHOST:8080/", true},
		{"http://localhost:9090/", false},
		{"https://static.example.com/app.js", true},
		{"https://static.example.com:8443/app.js", true},
		{"https://evil.example.com/", false},
		{"about:blank", true},
		{"javascript:alert(1)", false},
		{"file:///etc/passwd", false},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			err := guard.Allow(tt.target)
			if tt.allowed {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, entities.ErrNavigationBlocked)
			assert.ErrorIs(t, err, entities.ErrNavigation)
		})
	}

	assert.ElementsMatch(t, []string{"localhost:8080", "static.example.com"}, guard.Hosts())
}

func TestNavigationGuardRejectsBadBaseURL(t *testing.T) {
	_, err := NewNavigationGuard("not a url", nil, nil)
	require.Error(t, err)
}
