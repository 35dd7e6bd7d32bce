package harnesstest

import "time"

const (
	AutocompleteOnPath  = "/views/test/autocomplete_on.html"
	AutocompleteOffPath = "/views/test/autocomplete_off.html"
	BaseURL             = "http://localhost:8080"
)

func formElements() []*Element {
	return []*Element{
		{ID: "nameInput", Name: "name", Tag: "input", Type: "text"},
		{ID: "submitBtn", Tag: "input", Type: "submit"},
	}
}

// AutocompletePages returns the form page with autocomplete allowed and
// with autocomplete turned off
func AutocompletePages() map[string]PageSpec {
	return map[string]PageSpec{
		AutocompleteOnPath:  {Elements: formElements, Autocomplete: true},
		AutocompleteOffPath: {Elements: formElements, Autocomplete: false},
	}
}

// NewAutocompleteBrowser - creates a fake browser serving the autocomplete
// pages with a dropdown that populates after suggestionDelay
func NewAutocompleteBrowser(suggestionDelay time.Duration) *Browser {
	b := NewBrowser(AutocompletePages())
	b.SuggestionDelay = suggestionDelay
	return b
}
