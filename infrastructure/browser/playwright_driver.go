package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"e2e_harness/domain/entities"
	"e2e_harness/domain/interfaces"

	"github.com/playwright-community/playwright-go"
	"github.com/sirupsen/logrus"
)

const defaultPlaywrightTimeout = 30 * time.Second

// PlaywrightLauncher owns the playwright server and opens one persistent
// Chromium context per session
type PlaywrightLauncher struct {
	pw     *playwright.Playwright
	opts   Options
	logger *logrus.Logger
}

// NewPlaywrightLauncher - starts playwright
func NewPlaywrightLauncher(opts Options) (*PlaywrightLauncher, error) {
	opts = opts.withDefaults()
	pw, err := playwright.Run(&playwright.RunOptions{Verbose: false})
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}
	return &PlaywrightLauncher{pw: pw, opts: opts, logger: opts.Logger}, nil
}

// Open - launches a fresh browser session
func (l *PlaywrightLauncher) Open(ctx context.Context) (interfaces.Driver, error) {
	var binary string
	if l.opts.ChromeBinary != "" {
		path, err := chromeExecutable.locate(l.opts.ChromeBinary)
		if err != nil {
			return nil, err
		}
		binary = path
	}

	profile, err := newProfileDir(l.opts.ProfileRoot)
	if err != nil {
		return nil, err
	}

	launchOpts := playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(l.opts.Headless),
		Args:     chromeArgs,
		Viewport: &playwright.Size{
			Width:  l.opts.ViewportWidth,
			Height: l.opts.ViewportHeight,
		},
		JavaScriptEnabled: playwright.Bool(true),
		IgnoreHttpsErrors: playwright.Bool(true),
	}
	if l.opts.SlowMo > 0 {
		launchOpts.SlowMo = playwright.Float(float64(l.opts.SlowMo.Milliseconds()))
	}
	if binary != "" {
		launchOpts.ExecutablePath = playwright.String(binary)
	}

	bctx, err := l.pw.Chromium.LaunchPersistentContext(profile, launchOpts)
	if err != nil {
		os.RemoveAll(profile)
		return nil, fmt.Errorf("%w: failed to launch browser: %w", entities.ErrSessionLost, err)
	}

	var page playwright.Page
	if pages := bctx.Pages(); len(pages) > 0 {
		page = pages[0]
	} else if page, err = bctx.NewPage(); err != nil {
		bctx.Close()
		os.RemoveAll(profile)
		return nil, fmt.Errorf("%w: failed to create page: %w", entities.ErrSessionLost, err)
	}

	d := &PlaywrightDriver{
		context: bctx,
		page:    page,
		profile: profile,
		logger:  l.logger,
	}

	page.OnDialog(func(dialog playwright.Dialog) {
		l.logger.Debugf("Accepting %s dialog: %s", dialog.Type(), dialog.Message())
		dialog.Accept()
	})
	page.OnClose(func(playwright.Page) {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.pageClosed = true
	})

	return d, nil
}

// Close - stops playwright
func (l *PlaywrightLauncher) Close() error {
	if l.pw == nil {
		return nil
	}
	err := l.pw.Stop()
	l.pw = nil
	return err
}

// PlaywrightDriver drives one persistent Chromium context through playwright
type PlaywrightDriver struct {
	context    playwright.BrowserContext
	page       playwright.Page
	profile    string
	logger     *logrus.Logger
	mu         sync.Mutex
	pageClosed bool
}

type playwrightHandle struct {
	locator playwright.Locator
	label   string
}

func (h *playwrightHandle) Describe() string { return h.label }

func (d *PlaywrightDriver) timeout(ctx context.Context) *float64 {
	deadline, ok := ctx.Deadline()
	return playwright.Float(remainingMillis(deadline, ok, defaultPlaywrightTimeout))
}

// Navigate - navigates to url and waits for the load event of the new document
func (d *PlaywrightDriver) Navigate(ctx context.Context, url string) error {
	if err := d.ready(ctx); err != nil {
		return err
	}
	_, err := d.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   d.timeout(ctx),
	})
	return translatePlaywright(err)
}

// Find - returns every element matching ref
func (d *PlaywrightDriver) Find(ctx context.Context, ref entities.ElementReference) ([]interfaces.Handle, error) {
	if err := d.ready(ctx); err != nil {
		return nil, err
	}
	selector, ok := ref.CSSSelector()
	if !ok {
		selector = "xpath=" + ref.Value
	}

	locators, err := d.page.Locator(selector).All()
	if err != nil {
		return nil, translatePlaywright(err)
	}
	handles := make([]interfaces.Handle, 0, len(locators))
	for i, loc := range locators {
		handles = append(handles, &playwrightHandle{
			locator: loc,
			label:   fmt.Sprintf("%s[%d]", ref, i),
		})
	}
	return handles, nil
}

func (d *PlaywrightDriver) Click(ctx context.Context, h interfaces.Handle) error {
	loc, err := d.locator(ctx, h)
	if err != nil {
		return err
	}
	return translatePlaywright(loc.Click(playwright.LocatorClickOptions{Timeout: d.timeout(ctx)}))
}

// SendKeys - types text key by key so that keydown/keypress/input fire per character
func (d *PlaywrightDriver) SendKeys(ctx context.Context, h interfaces.Handle, text string) error {
	loc, err := d.locator(ctx, h)
	if err != nil {
		return err
	}
	return translatePlaywright(loc.PressSequentially(text, playwright.LocatorPressSequentiallyOptions{Timeout: d.timeout(ctx)}))
}

func (d *PlaywrightDriver) PressKey(ctx context.Context, h interfaces.Handle, key entities.KeySymbol) error {
	loc, err := d.locator(ctx, h)
	if err != nil {
		return err
	}
	name, err := lookupKey(playwrightKeys, key)
	if err != nil {
		return err
	}
	return translatePlaywright(loc.Press(name, playwright.LocatorPressOptions{Timeout: d.timeout(ctx)}))
}

func (d *PlaywrightDriver) Text(ctx context.Context, h interfaces.Handle) (string, error) {
	loc, err := d.locator(ctx, h)
	if err != nil {
		return "", err
	}
	text, err := loc.InnerText(playwright.LocatorInnerTextOptions{Timeout: d.timeout(ctx)})
	return text, translatePlaywright(err)
}

func (d *PlaywrightDriver) Value(ctx context.Context, h interfaces.Handle) (string, error) {
	loc, err := d.locator(ctx, h)
	if err != nil {
		return "", err
	}
	value, err := loc.InputValue(playwright.LocatorInputValueOptions{Timeout: d.timeout(ctx)})
	return value, translatePlaywright(err)
}

func (d *PlaywrightDriver) Attribute(ctx context.Context, h interfaces.Handle, name string) (string, bool, error) {
	loc, err := d.locator(ctx, h)
	if err != nil {
		return "", false, err
	}
	result, err := loc.Evaluate(`(el, name) => el.getAttribute(name)`, name,
		playwright.LocatorEvaluateOptions{Timeout: d.timeout(ctx)})
	if err != nil {
		return "", false, translatePlaywright(err)
	}
	value, ok := result.(string)
	return value, ok, nil
}

func (d *PlaywrightDriver) Displayed(ctx context.Context, h interfaces.Handle) (bool, error) {
	loc, err := d.locator(ctx, h)
	if err != nil {
		return false, err
	}
	visible, err := loc.IsVisible()
	return visible, translatePlaywright(err)
}

func (d *PlaywrightDriver) Enabled(ctx context.Context, h interfaces.Handle) (bool, error) {
	loc, err := d.locator(ctx, h)
	if err != nil {
		return false, err
	}
	enabled, err := loc.IsEnabled(playwright.LocatorIsEnabledOptions{Timeout: d.timeout(ctx)})
	return enabled, translatePlaywright(err)
}

func (d *PlaywrightDriver) Focused(ctx context.Context, h interfaces.Handle) (bool, error) {
	loc, err := d.locator(ctx, h)
	if err != nil {
		return false, err
	}
	result, err := loc.Evaluate(`el => el === document.activeElement`, nil,
		playwright.LocatorEvaluateOptions{Timeout: d.timeout(ctx)})
	if err != nil {
		return false, translatePlaywright(err)
	}
	focused, _ := result.(bool)
	return focused, nil
}

func (d *PlaywrightDriver) CurrentURL(ctx context.Context) (string, error) {
	if err := d.ready(ctx); err != nil {
		return "", err
	}
	return d.page.URL(), nil
}

// Screenshot - takes a full page screenshot
func (d *PlaywrightDriver) Screenshot(ctx context.Context) ([]byte, error) {
	if err := d.ready(ctx); err != nil {
		return nil, err
	}
	shot, err := d.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(true),
		Timeout:  d.timeout(ctx),
	})
	return shot, translatePlaywright(err)
}

// Close - closes the browser context and removes its profile
func (d *PlaywrightDriver) Close() error {
	var closeErr error
	if d.context != nil {
		if err := d.context.Close(); err != nil && !isClosedError(err) {
			closeErr = fmt.Errorf("failed to close context: %w", err)
		}
		d.context = nil
	}
	if d.profile != "" {
		if err := os.RemoveAll(d.profile); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("failed to remove profile: %w", err))
		}
		d.profile = ""
	}
	return closeErr
}

func (d *PlaywrightDriver) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pageClosed || d.context == nil {
		return fmt.Errorf("%w: page closed", entities.ErrSessionLost)
	}
	return nil
}

func (d *PlaywrightDriver) locator(ctx context.Context, h interfaces.Handle) (playwright.Locator, error) {
	if err := d.ready(ctx); err != nil {
		return nil, err
	}
	ph, ok := h.(*playwrightHandle)
	if !ok {
		return nil, fmt.Errorf("foreign handle %T", h)
	}
	return ph.locator, nil
}

// translatePlaywright maps playwright errors onto the harness error kinds
func translatePlaywright(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, playwright.ErrTargetClosed), isClosedError(err):
		return fmt.Errorf("%w: %w", entities.ErrSessionLost, err)
	case strings.Contains(err.Error(), "intercepts pointer events"),
		strings.Contains(err.Error(), "element is not visible"),
		strings.Contains(err.Error(), "element is not enabled"):
		return fmt.Errorf("%w: %w", entities.ErrNotInteractable, err)
	case errors.Is(err, playwright.ErrTimeout):
		return fmt.Errorf("%w: %w", entities.ErrTimeout, err)
	default:
		return err
	}
}

func isClosedError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "Target closed") || strings.Contains(msg, "target closed") ||
		strings.Contains(msg, "Browser has been closed")
}

var _ interfaces.Driver = (*PlaywrightDriver)(nil)
