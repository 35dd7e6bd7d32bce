package browser

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"

	"e2e_harness/domain/entities"
	"e2e_harness/domain/interfaces"

	"github.com/sirupsen/logrus"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
)

// SeleniumLauncher opens WebDriver sessions, either against RemoteURL or
// against a chromedriver it starts and owns
type SeleniumLauncher struct {
	service   *selenium.Service
	urlPrefix string
	opts      Options
	logger    *logrus.Logger
}

// NewSeleniumLauncher - connects to a WebDriver endpoint, starting chromedriver
// when no remote endpoint is configured
func NewSeleniumLauncher(opts Options) (*SeleniumLauncher, error) {
	opts = opts.withDefaults()
	l := &SeleniumLauncher{opts: opts, logger: opts.Logger}

	if opts.RemoteURL != "" {
		l.urlPrefix = strings.TrimSuffix(opts.RemoteURL, "/")
		l.logger.Infof("Using remote WebDriver at: %s", l.urlPrefix)
		return l, nil
	}

	driverPath, err := chromeDriverExecutable.locate(opts.DriverPath)
	if err != nil {
		return nil, fmt.Errorf("failed to find chromedriver: %w", err)
	}
	l.logger.Infof("Using ChromeDriver at: %s", driverPath)

	service, err := selenium.NewChromeDriverService(driverPath, opts.DriverPort)
	if err != nil {
		return nil, fmt.Errorf("failed to start chromedriver: %w", err)
	}
	l.service = service
	l.urlPrefix = fmt.Sprintf("http://localhost:%d/wd/hub", opts.DriverPort)
	return l, nil
}

// Open - starts a new WebDriver session with its own profile
func (l *SeleniumLauncher) Open(ctx context.Context) (interfaces.Driver, error) {
	// a remote endpoint brings its own Chrome; a local chromedriver falls
	// back to its default when none is found here
	var binary string
	if l.service != nil {
		path, err := chromeExecutable.locate(l.opts.ChromeBinary)
		if err != nil && l.opts.ChromeBinary != "" {
			return nil, err
		}
		binary = path
	}

	profile, err := newProfileDir(l.opts.ProfileRoot)
	if err != nil {
		return nil, err
	}

	args := append([]string{
		"--no-sandbox",
		fmt.Sprintf("--user-data-dir=%s", profile),
		fmt.Sprintf("--window-size=%d,%d", l.opts.ViewportWidth, l.opts.ViewportHeight),
	}, chromeArgs...)
	if l.opts.Headless {
		args = append(args, "--headless=new")
	}
	chromeCaps := chrome.Capabilities{Args: args}
	if binary != "" {
		chromeCaps.Path = binary
	}

	caps := selenium.Capabilities{"browserName": "chrome"}
	caps.AddChrome(chromeCaps)

	wd, err := call(ctx, func() (selenium.WebDriver, error) {
		return selenium.NewRemote(caps, l.urlPrefix)
	})
	if err != nil {
		os.RemoveAll(profile)
		if strings.Contains(err.Error(), "cannot find Chrome binary") {
			return nil, fmt.Errorf("%w: Chrome browser not found, install it or set CHROME_BINARY_PATH: %w", entities.ErrSessionLost, err)
		}
		return nil, fmt.Errorf("%w: failed to create webdriver session: %w", entities.ErrSessionLost, err)
	}

	return &SeleniumDriver{wd: wd, profile: profile, logger: l.logger}, nil
}

// Close - stops chromedriver if this launcher started it
func (l *SeleniumLauncher) Close() error {
	if l.service == nil {
		return nil
	}
	err := l.service.Stop()
	l.service = nil
	if err != nil {
		return fmt.Errorf("failed to stop chromedriver: %w", err)
	}
	return nil
}

// SeleniumDriver drives one WebDriver session
type SeleniumDriver struct {
	wd      selenium.WebDriver
	profile string
	logger  *logrus.Logger
	once    sync.Once
}

type seleniumHandle struct {
	elem  selenium.WebElement
	label string
}

func (h *seleniumHandle) Describe() string { return h.label }

var seleniumBy = map[entities.LocatorStrategy]string{
	entities.ByID:    selenium.ByID,
	entities.ByCSS:   selenium.ByCSSSelector,
	entities.ByXPath: selenium.ByXPATH,
	entities.ByName:  selenium.ByName,
}

// Navigate - WebDriver's Get returns once the new document has loaded
func (s *SeleniumDriver) Navigate(ctx context.Context, target string) error {
	s.logger.Debugf("Navigating to: %s", target)
	_, err := call(ctx, func() (struct{}, error) {
		return struct{}{}, s.wd.Get(target)
	})
	return translateSelenium(err)
}

func (s *SeleniumDriver) Find(ctx context.Context, ref entities.ElementReference) ([]interfaces.Handle, error) {
	by, ok := seleniumBy[ref.Strategy]
	if !ok {
		return nil, fmt.Errorf("unsupported locator strategy %q", ref.Strategy)
	}
	elems, err := call(ctx, func() ([]selenium.WebElement, error) {
		return s.wd.FindElements(by, ref.Value)
	})
	if err != nil {
		var serr *selenium.Error
		if errors.As(err, &serr) && serr.Err == "no such element" {
			return nil, nil
		}
		return nil, translateSelenium(err)
	}
	handles := make([]interfaces.Handle, 0, len(elems))
	for i, elem := range elems {
		handles = append(handles, &seleniumHandle{elem: elem, label: fmt.Sprintf("%s[%d]", ref, i)})
	}
	return handles, nil
}

func (s *SeleniumDriver) Click(ctx context.Context, h interfaces.Handle) error {
	elem, err := element(h)
	if err != nil {
		return err
	}
	_, err = call(ctx, func() (struct{}, error) {
		return struct{}{}, elem.Click()
	})
	return translateSelenium(err)
}

// SendKeys - sends one key event per character
func (s *SeleniumDriver) SendKeys(ctx context.Context, h interfaces.Handle, text string) error {
	elem, err := element(h)
	if err != nil {
		return err
	}
	for _, char := range text {
		if _, err := call(ctx, func() (struct{}, error) {
			return struct{}{}, elem.SendKeys(string(char))
		}); err != nil {
			return translateSelenium(err)
		}
	}
	return nil
}

func (s *SeleniumDriver) PressKey(ctx context.Context, h interfaces.Handle, key entities.KeySymbol) error {
	elem, err := element(h)
	if err != nil {
		return err
	}
	k, err := lookupKey(seleniumKeys, key)
	if err != nil {
		return err
	}
	_, err = call(ctx, func() (struct{}, error) {
		return struct{}{}, elem.SendKeys(k)
	})
	return translateSelenium(err)
}

func (s *SeleniumDriver) Text(ctx context.Context, h interfaces.Handle) (string, error) {
	elem, err := element(h)
	if err != nil {
		return "", err
	}
	text, err := call(ctx, elem.Text)
	return text, translateSelenium(err)
}

func (s *SeleniumDriver) Value(ctx context.Context, h interfaces.Handle) (string, error) {
	value, _, err := s.script(ctx, h, `return arguments[0].value;`)
	return value, err
}

func (s *SeleniumDriver) Attribute(ctx context.Context, h interfaces.Handle, name string) (string, bool, error) {
	return s.script(ctx, h, `return arguments[0].getAttribute(arguments[1]);`, name)
}

func (s *SeleniumDriver) Displayed(ctx context.Context, h interfaces.Handle) (bool, error) {
	elem, err := element(h)
	if err != nil {
		return false, err
	}
	displayed, err := call(ctx, elem.IsDisplayed)
	return displayed, translateSelenium(err)
}

func (s *SeleniumDriver) Enabled(ctx context.Context, h interfaces.Handle) (bool, error) {
	elem, err := element(h)
	if err != nil {
		return false, err
	}
	enabled, err := call(ctx, elem.IsEnabled)
	return enabled, translateSelenium(err)
}

func (s *SeleniumDriver) Focused(ctx context.Context, h interfaces.Handle) (bool, error) {
	elem, err := element(h)
	if err != nil {
		return false, err
	}
	result, err := call(ctx, func() (interface{}, error) {
		return s.wd.ExecuteScript(`return arguments[0] === document.activeElement;`, []interface{}{elem})
	})
	if err != nil {
		return false, translateSelenium(err)
	}
	focused, _ := result.(bool)
	return focused, nil
}

func (s *SeleniumDriver) CurrentURL(ctx context.Context) (string, error) {
	current, err := call(ctx, s.wd.CurrentURL)
	return current, translateSelenium(err)
}

func (s *SeleniumDriver) Screenshot(ctx context.Context) ([]byte, error) {
	shot, err := call(ctx, s.wd.Screenshot)
	return shot, translateSelenium(err)
}

// Close - quits the session and removes its profile
func (s *SeleniumDriver) Close() error {
	var closeErr error
	s.once.Do(func() {
		if err := s.wd.Quit(); err != nil && !errors.Is(translateSelenium(err), entities.ErrSessionLost) {
			closeErr = fmt.Errorf("failed to quit webdriver: %w", err)
		}
		if err := os.RemoveAll(s.profile); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("failed to remove profile: %w", err))
		}
	})
	return closeErr
}

// script runs a snippet against the element and returns its string result,
// reporting false when the snippet returned null
func (s *SeleniumDriver) script(ctx context.Context, h interfaces.Handle, js string, extra ...interface{}) (string, bool, error) {
	elem, err := element(h)
	if err != nil {
		return "", false, err
	}
	args := append([]interface{}{elem}, extra...)
	result, err := call(ctx, func() (interface{}, error) {
		return s.wd.ExecuteScript(js, args)
	})
	if err != nil {
		return "", false, translateSelenium(err)
	}
	if result == nil {
		return "", false, nil
	}
	return fmt.Sprint(result), true, nil
}

func element(h interfaces.Handle) (selenium.WebElement, error) {
	sh, ok := h.(*seleniumHandle)
	if !ok {
		return nil, fmt.Errorf("foreign handle %T", h)
	}
	return sh.elem, nil
}

// call runs a blocking WebDriver command, giving up when ctx ends. The
// command itself keeps running on the WebDriver side.
func call[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v, err}
	}()
	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// translateSelenium maps WebDriver error codes onto the harness error kinds
func translateSelenium(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var serr *selenium.Error
	if errors.As(err, &serr) {
		switch serr.Err {
		case "invalid session id", "no such window", "session not created":
			return fmt.Errorf("%w: %w", entities.ErrSessionLost, err)
		case "element click intercepted", "element not interactable":
			return fmt.Errorf("%w: %w", entities.ErrNotInteractable, err)
		case "stale element reference", "no such element":
			return fmt.Errorf("%w: %w", entities.ErrNotFound, err)
		case "timeout", "script timeout":
			return fmt.Errorf("%w: %w", entities.ErrTimeout, err)
		}
		return err
	}

	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("%w: %w", entities.ErrSessionLost, err)
	}
	return err
}

var _ interfaces.Driver = (*SeleniumDriver)(nil)
