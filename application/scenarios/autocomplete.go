// Package scenarios holds the built-in browser scenarios
package scenarios

import (
	"time"

	"e2e_harness/domain/entities"
)

const (
	AutocompleteOnPage  entities.PageTarget = "/views/test/autocomplete_on.html"
	AutocompleteOffPage entities.PageTarget = "/views/test/autocomplete_off.html"

	// ReceiptValue is the value submitted before the reload
	ReceiptValue = "0101011010111010102"

	DefaultSuggestionTimeout = 3 * time.Second
)

var (
	NameInput    = entities.ID("nameInput")
	SubmitButton = entities.ID("submitBtn")
	// SuggestionList is the default locator for a suggestion dropdown the
	// page renders itself
	SuggestionList = entities.CSS(`[role="listbox"]`)
)

// Options tunes the autocomplete scenarios
type Options struct {
	// SuggestionTimeout bounds how long the dropdown may take to populate,
	// and how long it must stay closed when autocomplete is off
	SuggestionTimeout time.Duration
	// Exclusive marks the accept scenario as "run only this"
	Exclusive bool
	// SuggestionList overrides the dropdown locator
	SuggestionList entities.ElementReference
	// NativeSuggestions replaces the dropdown steps with a replayed
	// accept sequence. A browser's own form history popup is outside the
	// DOM; only the field value can be observed.
	NativeSuggestions bool
}

func (o Options) list() entities.ElementReference {
	if o.SuggestionList.IsZero() {
		return SuggestionList
	}
	return o.SuggestionList
}

func (o Options) timeout() time.Duration {
	if o.SuggestionTimeout > 0 {
		return o.SuggestionTimeout
	}
	return DefaultSuggestionTimeout
}

// submitAndReload - types the receipt, submits the form and loads the page again
func submitAndReload(page entities.PageTarget) []entities.Step {
	return []entities.Step{
		entities.Navigate(page),
		entities.TypeText(NameInput, ReceiptValue),
		entities.Click(SubmitButton),
		entities.Navigate(page),
		entities.WaitUntil(entities.Visible(NameInput), 0),
	}
}

// AutocompleteAccepted submits a value on a page with autocomplete enabled,
// reloads, and accepts the remembered suggestion with ARROW_DOWN then TAB.
// Loaded -> Focused -> SuggestionsOpen -> Selected -> Committed -> FieldValueObserved.
func AutocompleteAccepted(opts Options) entities.Scenario {
	steps := submitAndReload(AutocompleteOnPage)
	if opts.NativeSuggestions {
		steps = append(steps,
			entities.RepeatUntil(acceptSuggestion(), entities.ValueEquals(NameInput, ReceiptValue), opts.timeout()),
		)
	} else {
		steps = append(steps,
			entities.Click(NameInput),
			entities.Click(NameInput),
			entities.WaitUntil(entities.Visible(opts.list()), opts.timeout()),
			entities.SendSpecialKey(NameInput, entities.KeyArrowDown),
			entities.SendSpecialKey(NameInput, entities.KeyTab),
		)
	}
	steps = append(steps, entities.Assert(entities.ValueEquals(NameInput, ReceiptValue)))
	return entities.Scenario{
		Name:      "autocomplete on: remembered value is accepted from the keyboard",
		Exclusive: opts.Exclusive,
		Tags:      []string{"autocomplete", "autocomplete-on"},
		Steps:     steps,
	}
}

// AutocompleteSuppressed repeats the submit-and-reload sequence on a page
// with autocomplete disabled and expects no suggestions and an empty field.
func AutocompleteSuppressed(opts Options) entities.Scenario {
	steps := submitAndReload(AutocompleteOffPage)
	if opts.NativeSuggestions {
		steps = append(steps,
			entities.RepeatWhile(acceptSuggestion(), entities.ValueEquals(NameInput, ""), opts.timeout()),
		)
	} else {
		steps = append(steps,
			entities.Click(NameInput),
			entities.Click(NameInput),
			entities.SendSpecialKey(NameInput, entities.KeyArrowDown),
			entities.Assert(entities.NeverVisible(opts.list(), opts.timeout())),
			entities.SendSpecialKey(NameInput, entities.KeyTab),
		)
	}
	steps = append(steps, entities.Assert(entities.ValueEquals(NameInput, "")))
	return entities.Scenario{
		Name:  "autocomplete off: browser does not offer the receipt",
		Tags:  []string{"autocomplete", "autocomplete-off"},
		Steps: steps,
	}
}

// acceptSuggestion opens the field's suggestions and commits the first one.
// With native suggestions the dropdown cannot be observed, so the whole
// sequence is replayed and judged by the field value it leaves behind.
func acceptSuggestion() []entities.Step {
	return []entities.Step{
		entities.Click(NameInput),
		entities.Click(NameInput),
		entities.SendSpecialKey(NameInput, entities.KeyArrowDown),
		entities.SendSpecialKey(NameInput, entities.KeyTab),
	}
}

// AutocompleteSuite returns both autocomplete scenarios
func AutocompleteSuite(opts Options) entities.Suite {
	return entities.Suite{
		Name: "forms with autocomplete",
		Scenarios: []entities.Scenario{
			AutocompleteAccepted(opts),
			AutocompleteSuppressed(opts),
		},
	}
}
