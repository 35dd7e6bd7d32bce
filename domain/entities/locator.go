package entities

import "fmt"

// LocatorStrategy represents how an element reference is looked up
type LocatorStrategy string

const (
	ByID    LocatorStrategy = "id"
	ByCSS   LocatorStrategy = "css"
	ByXPath LocatorStrategy = "xpath"
	ByName  LocatorStrategy = "name"
)

// ElementReference is a recipe for finding an element in the current page.
// It never holds the DOM node itself and is re-resolved on every use.
type ElementReference struct {
	Strategy LocatorStrategy `json:"by" yaml:"by"`
	Value    string          `json:"value" yaml:"value"`
}

// ID - reference by element identifier
func ID(id string) ElementReference {
	return ElementReference{Strategy: ByID, Value: id}
}

// CSS - reference by CSS selector
func CSS(selector string) ElementReference {
	return ElementReference{Strategy: ByCSS, Value: selector}
}

// XPath - reference by XPath expression
func XPath(expr string) ElementReference {
	return ElementReference{Strategy: ByXPath, Value: expr}
}

// Name - reference by the name attribute
func Name(name string) ElementReference {
	return ElementReference{Strategy: ByName, Value: name}
}

// IsZero reports whether the reference was never set
func (r ElementReference) IsZero() bool {
	return r.Strategy == "" && r.Value == ""
}

// Validate checks that the strategy is known and the value is not empty
func (r ElementReference) Validate() error {
	switch r.Strategy {
	case ByID, ByCSS, ByXPath, ByName:
	default:
		return fmt.Errorf("unknown locator strategy %q", r.Strategy)
	}
	if r.Value == "" {
		return fmt.Errorf("empty %s locator", r.Strategy)
	}
	return nil
}

// CSSSelector returns an equivalent CSS selector for the id, css and name
// strategies. XPath references have no CSS form.
func (r ElementReference) CSSSelector() (string, bool) {
	switch r.Strategy {
	case ByID:
		return fmt.Sprintf("[id=%q]", r.Value), true
	case ByName:
		return fmt.Sprintf("[name=%q]", r.Value), true
	case ByCSS:
		return r.Value, true
	default:
		return "", false
	}
}

func (r ElementReference) String() string {
	return fmt.Sprintf("%s=%s", r.Strategy, r.Value)
}
