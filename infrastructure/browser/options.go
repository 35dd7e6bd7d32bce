package browser

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/sirupsen/logrus"
)

// Options configures how browser sessions are launched
type Options struct {
	Headless bool
	// SlowMo delays every playwright operation, for watching a run
	SlowMo time.Duration
	// ChromeBinary overrides the Chrome/Chromium executable
	ChromeBinary string
	// DriverPath is the chromedriver executable for the selenium driver
	DriverPath string
	DriverPort int
	// RemoteURL points the selenium driver at an existing WebDriver endpoint
	// instead of starting chromedriver
	RemoteURL string
	// ProfileRoot is where per-session profiles are created; os.TempDir by default
	ProfileRoot    string
	ViewportWidth  int
	ViewportHeight int
	Logger         *logrus.Logger
}

func (o Options) withDefaults() Options {
	if o.DriverPort == 0 {
		o.DriverPort = 9515
	}
	if o.ViewportWidth == 0 {
		o.ViewportWidth = 1280
	}
	if o.ViewportHeight == 0 {
		o.ViewportHeight = 720
	}
	if o.Logger == nil {
		o.Logger = logrus.New()
	}
	return o
}

// chromeArgs are passed to every Chrome we start
var chromeArgs = []string{
	"--disable-dev-shm-usage",
	"--disable-popup-blocking",
	"--disable-notifications",
	"--disable-infobars",
	"--no-first-run",
	"--no-default-browser-check",
}

// executable is a browser component looked up on the local machine
type executable struct {
	name string
	// env is the variable that pins the path, named in errors
	env string
	// paths are install locations tried in order; $VARS are expanded
	paths []string
	// commands are looked up on PATH after paths
	commands []string
}

var (
	chromeDriverExecutable = executable{
		name: "chromedriver",
		env:  "BROWSER_DRIVER_PATH",
		paths: []string{
			"/usr/local/bin/chromedriver",
			"/usr/bin/chromedriver",
			"/opt/homebrew/bin/chromedriver",
			"$HOME/bin/chromedriver",
		},
		commands: []string{"chromedriver"},
	}
	chromeExecutable = executable{
		name: "Chrome",
		env:  "CHROME_BINARY_PATH",
		paths: []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
			"/usr/bin/google-chrome",
			"/usr/bin/chromium",
			"/usr/bin/chromium-browser",
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
		},
		commands: []string{"google-chrome", "chromium", "chromium-browser"},
	}
)

// locate returns configured when it names an existing file, and fails when it
// does not. Without a configured path the install locations are searched,
// then PATH.
func (e executable) locate(configured string) (string, error) {
	if configured != "" {
		if isFile(configured) {
			return configured, nil
		}
		return "", fmt.Errorf("%s not found at %s", e.name, configured)
	}
	if path := firstExisting(e.paths); path != "" {
		return path, nil
	}
	for _, cmd := range e.commands {
		if path, err := exec.LookPath(cmd); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%s not found, install it or set %s", e.name, e.env)
}

func firstExisting(paths []string) string {
	for _, path := range paths {
		if path = os.ExpandEnv(path); isFile(path) {
			return path
		}
	}
	return ""
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// newProfileDir - creates an empty user data directory for one session.
// A persistent profile is needed because browsers do not keep form history
// in incognito-style contexts; a fresh one per session keeps runs isolated.
func newProfileDir(root string) (string, error) {
	dir, err := os.MkdirTemp(root, "e2e-profile-*")
	if err != nil {
		return "", fmt.Errorf("failed to create user data directory: %w", err)
	}
	return dir, nil
}

// remainingMillis converts what is left of ctx's deadline to milliseconds,
// falling back when ctx has no deadline
func remainingMillis(deadline time.Time, ok bool, fallback time.Duration) float64 {
	if !ok {
		return float64(fallback.Milliseconds())
	}
	left := time.Until(deadline)
	if left < time.Millisecond {
		left = time.Millisecond
	}
	return float64(left.Milliseconds())
}
