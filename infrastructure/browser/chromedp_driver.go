package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"

	"e2e_harness/domain/entities"
	"e2e_harness/domain/interfaces"

	"github.com/chromedp/cdproto/cdp"
	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

// ChromeDPLauncher starts one Chrome process per session over the DevTools protocol
type ChromeDPLauncher struct {
	opts   Options
	logger *logrus.Logger
}

// NewChromeDPLauncher - creates a chromedp launcher
func NewChromeDPLauncher(opts Options) *ChromeDPLauncher {
	opts = opts.withDefaults()
	return &ChromeDPLauncher{opts: opts, logger: opts.Logger}
}

// Open - starts Chrome with a fresh profile and waits until it is ready
func (l *ChromeDPLauncher) Open(ctx context.Context) (interfaces.Driver, error) {
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

	options := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.IgnoreCertErrors,
		chromedp.UserDataDir(profile),
		chromedp.WindowSize(l.opts.ViewportWidth, l.opts.ViewportHeight),
		chromedp.Flag("headless", l.opts.Headless),
	)
	for _, arg := range chromeArgs {
		options = append(options, chromedp.Flag(strings.TrimPrefix(arg, "--"), true))
	}
	if runtime.GOOS != "darwin" && runtime.GOOS != "windows" {
		options = append(options, chromedp.NoSandbox)
	}
	if binary != "" {
		options = append(options, chromedp.ExecPath(binary))
	}

	// The browser outlives ctx, which only bounds startup.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), options...)
	chromeCtx, chromeCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(l.logger.Debugf),
		chromedp.WithErrorf(l.logger.Debugf),
	)

	d := &ChromeDPDriver{
		chromeCtx:   chromeCtx,
		cancel:      chromeCancel,
		allocCancel: allocCancel,
		profile:     profile,
		logger:      l.logger,
	}

	chromedp.ListenTarget(chromeCtx, func(ev any) {
		switch ev := ev.(type) {
		case *cdpruntime.EventConsoleAPICalled:
			args := make([]string, len(ev.Args))
			for i, arg := range ev.Args {
				args[i] = string(arg.Value)
			}
			d.logger.Debugf("console.%s: %s", ev.Type, strings.Join(args, " "))
		case *cdpruntime.EventExceptionThrown:
			d.logger.Warnf("page exception: %s", ev.ExceptionDetails.Error())
		}
	})

	started := make(chan error, 1)
	go func() { started <- chromedp.Run(chromeCtx) }()
	select {
	case err = <-started:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("%w: failed to start chrome: %w", entities.ErrSessionLost, err)
	}
	return d, nil
}

// Close - nothing to release; every session owns its own process
func (l *ChromeDPLauncher) Close() error { return nil }

// ChromeDPDriver drives one Chrome tab through chromedp
type ChromeDPDriver struct {
	chromeCtx   context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	profile     string
	logger      *logrus.Logger
	once        sync.Once
}

type chromeHandle struct {
	node  *cdp.Node
	label string
}

func (h *chromeHandle) Describe() string { return h.label }

// Navigate - chromedp.Navigate waits for the load event of the new frame
func (d *ChromeDPDriver) Navigate(ctx context.Context, url string) error {
	return d.run(ctx, chromedp.Navigate(url))
}

func (d *ChromeDPDriver) Find(ctx context.Context, ref entities.ElementReference) ([]interfaces.Handle, error) {
	var nodes []*cdp.Node
	selector, ok := ref.CSSSelector()
	by := chromedp.ByQueryAll
	if !ok {
		selector, by = ref.Value, chromedp.BySearch
	}
	if err := d.run(ctx, chromedp.Nodes(selector, &nodes, by, chromedp.AtLeast(0))); err != nil {
		return nil, err
	}
	handles := make([]interfaces.Handle, 0, len(nodes))
	for i, node := range nodes {
		handles = append(handles, &chromeHandle{node: node, label: fmt.Sprintf("%s[%d]", ref, i)})
	}
	return handles, nil
}

func (d *ChromeDPDriver) Click(ctx context.Context, h interfaces.Handle) error {
	node, err := chromeNode(h)
	if err != nil {
		return err
	}
	return d.run(ctx, chromedp.MouseClickNode(node))
}

// SendKeys - KeyEventNode focuses the node and dispatches one key event per rune
func (d *ChromeDPDriver) SendKeys(ctx context.Context, h interfaces.Handle, text string) error {
	node, err := chromeNode(h)
	if err != nil {
		return err
	}
	return d.run(ctx, chromedp.KeyEventNode(node, text))
}

func (d *ChromeDPDriver) PressKey(ctx context.Context, h interfaces.Handle, key entities.KeySymbol) error {
	node, err := chromeNode(h)
	if err != nil {
		return err
	}
	k, err := lookupKey(chromedpKeys, key)
	if err != nil {
		return err
	}
	return d.run(ctx, chromedp.KeyEventNode(node, k))
}

func (d *ChromeDPDriver) Text(ctx context.Context, h interfaces.Handle) (string, error) {
	var text string
	err := d.callOn(ctx, h, `function() { return this.innerText; }`, &text)
	return text, err
}

func (d *ChromeDPDriver) Value(ctx context.Context, h interfaces.Handle) (string, error) {
	var value string
	err := d.callOn(ctx, h, `function() { return this.value === undefined ? "" : String(this.value); }`, &value)
	return value, err
}

func (d *ChromeDPDriver) Attribute(ctx context.Context, h interfaces.Handle, name string) (string, bool, error) {
	var res struct {
		OK    bool   `json:"ok"`
		Value string `json:"value"`
	}
	err := d.callOn(ctx, h,
		`function(name) { return {ok: this.hasAttribute(name), value: this.getAttribute(name) || ""}; }`,
		&res, name)
	return res.Value, res.OK, err
}

func (d *ChromeDPDriver) Displayed(ctx context.Context, h interfaces.Handle) (bool, error) {
	var displayed bool
	err := d.callOn(ctx, h, `function() {
		const s = window.getComputedStyle(this);
		const r = this.getBoundingClientRect();
		return s.display !== "none" && s.visibility !== "hidden" && r.width > 0 && r.height > 0;
	}`, &displayed)
	return displayed, err
}

func (d *ChromeDPDriver) Enabled(ctx context.Context, h interfaces.Handle) (bool, error) {
	var enabled bool
	err := d.callOn(ctx, h, `function() { return !this.disabled; }`, &enabled)
	return enabled, err
}

func (d *ChromeDPDriver) Focused(ctx context.Context, h interfaces.Handle) (bool, error) {
	var focused bool
	err := d.callOn(ctx, h, `function() { return this === document.activeElement; }`, &focused)
	return focused, err
}

func (d *ChromeDPDriver) CurrentURL(ctx context.Context) (string, error) {
	var url string
	err := d.run(ctx, chromedp.Location(&url))
	return url, err
}

func (d *ChromeDPDriver) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := d.run(ctx, chromedp.FullScreenshot(&buf, 90))
	return buf, err
}

// Close - shuts the browser down and removes its profile
func (d *ChromeDPDriver) Close() error {
	var closeErr error
	d.once.Do(func() {
		if err := chromedp.Cancel(d.chromeCtx); err != nil && !errors.Is(err, context.Canceled) {
			closeErr = fmt.Errorf("failed to close chrome: %w", err)
		}
		d.cancel()
		d.allocCancel()
		if err := os.RemoveAll(d.profile); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("failed to remove profile: %w", err))
		}
	})
	return closeErr
}

func (d *ChromeDPDriver) callOn(ctx context.Context, h interfaces.Handle, fn string, res any, args ...any) error {
	node, err := chromeNode(h)
	if err != nil {
		return err
	}
	return d.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return chromedp.CallFunctionOnNode(ctx, node, fn, res, args...)
	}))
}

// run executes actions on the tab, bounded by the caller's ctx
func (d *ChromeDPDriver) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.chromeCtx.Err() != nil {
		return fmt.Errorf("%w: browser closed", entities.ErrSessionLost)
	}

	runCtx, cancel := context.WithCancel(d.chromeCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return translateChromeDP(ctx, d.chromeCtx, chromedp.Run(runCtx, actions...))
}

// translateChromeDP maps an error of an action run on the tab of chromeCtx on
// behalf of ctx. A dead tab wins over the caller's cancellation.
func translateChromeDP(ctx, chromeCtx context.Context, err error) error {
	switch {
	case err == nil:
		return nil
	case chromeCtx.Err() != nil:
		return fmt.Errorf("%w: %w", entities.ErrSessionLost, err)
	case ctx.Err() != nil:
		return ctx.Err()
	case strings.Contains(err.Error(), "Could not find node"),
		strings.Contains(err.Error(), "No node with given id"),
		strings.Contains(err.Error(), "Node is detached"):
		return fmt.Errorf("%w: %w", entities.ErrNotFound, err)
	case strings.Contains(err.Error(), "not visible"), strings.Contains(err.Error(), "has no box model"):
		return fmt.Errorf("%w: %w", entities.ErrNotInteractable, err)
	default:
		return err
	}
}

func chromeNode(h interfaces.Handle) (*cdp.Node, error) {
	ch, ok := h.(*chromeHandle)
	if !ok {
		return nil, fmt.Errorf("foreign handle %T", h)
	}
	return ch.node, nil
}

var _ interfaces.Driver = (*ChromeDPDriver)(nil)
