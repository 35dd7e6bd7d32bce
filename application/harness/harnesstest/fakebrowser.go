// Package harnesstest provides an in-memory browser for exercising the
// harness without a real browser. It models form history the way browsers do:
// submitted field values are remembered per field name and offered as
// suggestions on pages that allow autocomplete.
package harnesstest

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"e2e_harness/domain/entities"
	"e2e_harness/domain/interfaces"
)

// Element is one node of a fake page
type Element struct {
	ID       string
	Name     string
	Tag      string
	Type     string
	Role     string
	Text     string
	Value    string
	Hidden   bool
	Disabled bool
	// Obstructed makes clicks fail as if another element covered this one
	Obstructed bool
}

// PageSpec builds a fresh copy of a page on every navigation
type PageSpec struct {
	Elements     func() []*Element
	Autocomplete bool
	// RenderDelay delays element availability after navigation
	RenderDelay time.Duration
}

type page struct {
	url          string
	elements     []*Element
	autocomplete bool
	readyAt      time.Time
	generation   int
}

type handle struct {
	el         *Element
	generation int
}

func (h *handle) Describe() string {
	if h.el.ID != "" {
		return "#" + h.el.ID
	}
	return h.el.Tag
}

// Browser is a fake interfaces.Driver. The zero value is not usable; create
// one with NewBrowser.
type Browser struct {
	mu    sync.Mutex
	pages map[string]PageSpec

	current    *page
	generation int
	focused    *Element
	history    map[string][]string

	// suggestion dropdown of the focused field
	suggestOpen  bool
	suggestAt    time.Time
	suggestIndex int
	// suggestReadyAt is when the remembered values of the current page have
	// loaded; zero until the dropdown is first opened after a navigation
	suggestReadyAt time.Time

	// SuggestionDelay is how long the dropdown takes to populate the first
	// time it is opened on a page
	SuggestionDelay time.Duration
	// NavigateDelay blocks Navigate for this long
	NavigateDelay time.Duration
	// LoseSessionAfter makes every call fail with ErrSessionLost once this
	// many calls were served; zero disables it
	LoseSessionAfter int

	calls  []string
	closed bool
}

// NewBrowser - creates a fake browser serving pages keyed by URL path
func NewBrowser(pages map[string]PageSpec) *Browser {
	return &Browser{
		pages:        pages,
		history:      make(map[string][]string),
		suggestIndex: -1,
	}
}

// Calls returns the driver calls served so far, in order
func (b *Browser) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

// Closed reports whether Close was called
func (b *Browser) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// History returns the remembered values for a field name
func (b *Browser) History(field string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.history[field]...)
}

// SuggestionsVisible reports whether the dropdown is currently shown
func (b *Browser) SuggestionsVisible() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.suggestionsShown()
}

func (b *Browser) record(call string) error {
	b.calls = append(b.calls, call)
	if b.closed {
		return fmt.Errorf("%w: session closed", entities.ErrSessionLost)
	}
	if b.LoseSessionAfter > 0 && len(b.calls) > b.LoseSessionAfter {
		return fmt.Errorf("%w: connection reset", entities.ErrSessionLost)
	}
	return nil
}

func (b *Browser) Navigate(ctx context.Context, rawURL string) error {
	if b.NavigateDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.NavigateDelay):
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("navigate " + rawURL); err != nil {
		return err
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	spec, ok := b.pages[u.Path]
	if !ok {
		return fmt.Errorf("404 %s", u.Path)
	}

	b.generation++
	b.current = &page{
		url:          rawURL,
		elements:     spec.Elements(),
		autocomplete: spec.Autocomplete,
		readyAt:      time.Now().Add(spec.RenderDelay),
		generation:   b.generation,
	}
	b.focused = nil
	b.suggestReadyAt = time.Time{}
	b.closeSuggestions()
	return nil
}

func (b *Browser) Find(ctx context.Context, ref entities.ElementReference) ([]interfaces.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("find " + ref.String()); err != nil {
		return nil, err
	}
	if b.current == nil || time.Now().Before(b.current.readyAt) {
		return nil, nil
	}

	var found []interfaces.Handle
	for _, el := range b.current.elements {
		match, err := matchElement(el, ref)
		if err != nil {
			return nil, err
		}
		if match {
			found = append(found, &handle{el: el, generation: b.current.generation})
		}
	}
	if ref == suggestionList && b.suggestionsShown() {
		found = append(found, &handle{el: suggestionElement, generation: b.current.generation})
	}
	return found, nil
}

// suggestionList is how the fake exposes the native dropdown to locators
var suggestionList = entities.CSS(`[role="listbox"]`)

var suggestionElement = &Element{Tag: "datalist", Role: "listbox"}

func matchElement(el *Element, ref entities.ElementReference) (bool, error) {
	switch ref.Strategy {
	case entities.ByID:
		return el.ID == ref.Value, nil
	case entities.ByName:
		return el.Name == ref.Value, nil
	case entities.ByCSS:
		sel := ref.Value
		switch {
		case strings.HasPrefix(sel, "#"):
			return el.ID == sel[1:], nil
		case strings.HasPrefix(sel, `[role="`):
			return el.Role != "" && sel == fmt.Sprintf(`[role=%q]`, el.Role), nil
		case strings.HasPrefix(sel, "["):
			return sel == fmt.Sprintf(`[id=%q]`, el.ID) || sel == fmt.Sprintf(`[name=%q]`, el.Name), nil
		default:
			return el.Tag == sel, nil
		}
	default:
		return false, fmt.Errorf("fake browser does not support %s locators", ref.Strategy)
	}
}

func (b *Browser) element(h interfaces.Handle) (*Element, error) {
	fh, ok := h.(*handle)
	if !ok {
		return nil, fmt.Errorf("foreign handle %T", h)
	}
	if b.current == nil || fh.generation != b.current.generation {
		return nil, fmt.Errorf("stale element %s: %w", fh.Describe(), entities.ErrNotFound)
	}
	return fh.el, nil
}

func (b *Browser) Click(ctx context.Context, h interfaces.Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("click " + h.Describe()); err != nil {
		return err
	}
	el, err := b.element(h)
	if err != nil {
		return err
	}
	if el.Obstructed {
		return fmt.Errorf("%w: click intercepted on %s", entities.ErrNotInteractable, h.Describe())
	}

	if el.Type == "submit" {
		b.submit()
		return nil
	}

	if b.focused == el {
		// a click on an already focused field opens its suggestions
		b.openSuggestions()
		return nil
	}
	b.focus(el)
	return nil
}

func (b *Browser) SendKeys(ctx context.Context, h interfaces.Handle, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("keys " + h.Describe()); err != nil {
		return err
	}
	el, err := b.element(h)
	if err != nil {
		return err
	}
	b.focus(el)
	for _, r := range text {
		el.Value += string(r)
	}
	b.closeSuggestions()
	return nil
}

func (b *Browser) PressKey(ctx context.Context, h interfaces.Handle, key entities.KeySymbol) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("press " + string(key) + " " + h.Describe()); err != nil {
		return err
	}
	el, err := b.element(h)
	if err != nil {
		return err
	}
	b.focus(el)

	switch key {
	case entities.KeyArrowDown:
		if !b.suggestionsShown() {
			b.openSuggestions()
			return nil
		}
		if b.suggestIndex < len(b.candidates())-1 {
			b.suggestIndex++
		}
	case entities.KeyArrowUp:
		if b.suggestionsShown() && b.suggestIndex > 0 {
			b.suggestIndex--
		}
	case entities.KeyTab, entities.KeyEnter:
		b.commitSuggestion()
		if key == entities.KeyTab {
			b.focused = nil
		}
	case entities.KeyEscape:
		b.closeSuggestions()
	case entities.KeyBackspace:
		if n := len(el.Value); n > 0 {
			el.Value = el.Value[:n-1]
		}
	}
	return nil
}

func (b *Browser) Text(ctx context.Context, h interfaces.Handle) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("text " + h.Describe()); err != nil {
		return "", err
	}
	el, err := b.element(h)
	if err != nil {
		return "", err
	}
	return el.Text, nil
}

func (b *Browser) Value(ctx context.Context, h interfaces.Handle) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("value " + h.Describe()); err != nil {
		return "", err
	}
	el, err := b.element(h)
	if err != nil {
		return "", err
	}
	return el.Value, nil
}

func (b *Browser) Attribute(ctx context.Context, h interfaces.Handle, name string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("attribute " + name + " " + h.Describe()); err != nil {
		return "", false, err
	}
	el, err := b.element(h)
	if err != nil {
		return "", false, err
	}
	switch name {
	case "id":
		return el.ID, el.ID != "", nil
	case "name":
		return el.Name, el.Name != "", nil
	case "type":
		return el.Type, el.Type != "", nil
	case "role":
		return el.Role, el.Role != "", nil
	case "autocomplete":
		if b.current.autocomplete {
			return "", false, nil
		}
		return "off", true, nil
	}
	return "", false, nil
}

func (b *Browser) Displayed(ctx context.Context, h interfaces.Handle) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("displayed " + h.Describe()); err != nil {
		return false, err
	}
	el, err := b.element(h)
	if err != nil {
		return false, err
	}
	if el == suggestionElement {
		return b.suggestionsShown(), nil
	}
	return !el.Hidden, nil
}

func (b *Browser) Enabled(ctx context.Context, h interfaces.Handle) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("enabled " + h.Describe()); err != nil {
		return false, err
	}
	el, err := b.element(h)
	if err != nil {
		return false, err
	}
	return !el.Disabled, nil
}

func (b *Browser) Focused(ctx context.Context, h interfaces.Handle) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("focused " + h.Describe()); err != nil {
		return false, err
	}
	el, err := b.element(h)
	if err != nil {
		return false, err
	}
	return b.focused == el, nil
}

func (b *Browser) CurrentURL(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("url"); err != nil {
		return "", err
	}
	if b.current == nil {
		return "about:blank", nil
	}
	return b.current.url, nil
}

func (b *Browser) Screenshot(ctx context.Context) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("screenshot"); err != nil {
		return nil, err
	}
	return []byte("\x89PNG fake"), nil
}

func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *Browser) focus(el *Element) {
	if b.focused != el {
		b.focused = el
		b.closeSuggestions()
	}
}

func (b *Browser) submit() {
	if !b.current.autocomplete {
		return
	}
	for _, el := range b.current.elements {
		if el.Tag != "input" || el.Type == "submit" || el.Name == "" || el.Value == "" {
			continue
		}
		if !contains(b.history[el.Name], el.Value) {
			b.history[el.Name] = append(b.history[el.Name], el.Value)
		}
	}
}

// candidates returns remembered values matching the focused field's prefix
func (b *Browser) candidates() []string {
	if b.focused == nil || b.current == nil || !b.current.autocomplete {
		return nil
	}
	var out []string
	for _, v := range b.history[b.focused.Name] {
		if strings.HasPrefix(v, b.focused.Value) {
			out = append(out, v)
		}
	}
	return out
}

func (b *Browser) openSuggestions() {
	if len(b.candidates()) == 0 {
		return
	}
	if b.suggestReadyAt.IsZero() {
		b.suggestReadyAt = time.Now().Add(b.SuggestionDelay)
	}
	if !b.suggestOpen {
		b.suggestOpen = true
		b.suggestAt = b.suggestReadyAt
		b.suggestIndex = -1
	}
}

func (b *Browser) suggestionsShown() bool {
	return b.suggestOpen && !time.Now().Before(b.suggestAt)
}

func (b *Browser) commitSuggestion() {
	if b.suggestionsShown() && b.suggestIndex >= 0 {
		if c := b.candidates(); b.suggestIndex < len(c) {
			b.focused.Value = c[b.suggestIndex]
		}
	}
	b.closeSuggestions()
}

func (b *Browser) closeSuggestions() {
	b.suggestOpen = false
	b.suggestIndex = -1
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

var _ interfaces.Driver = (*Browser)(nil)
