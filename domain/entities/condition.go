package entities

import (
	"fmt"
	"time"
)

// ConditionKind represents what a condition observes
type ConditionKind string

const (
	CondPresent         ConditionKind = "present"
	CondAbsent          ConditionKind = "absent"
	CondVisible         ConditionKind = "visible"
	CondHidden          ConditionKind = "hidden"
	CondFocused         ConditionKind = "focused"
	CondTextEquals      ConditionKind = "text_equals"
	CondValueEquals     ConditionKind = "value_equals"
	CondAttributeEquals ConditionKind = "attribute_equals"
	// CondNeverVisible holds only if the element stays invisible (or absent)
	// for the whole Within window.
	CondNeverVisible ConditionKind = "never_visible"
)

// Condition is a declarative predicate over page or element state. It is
// evaluated against the live page each time, never against cached values.
type Condition struct {
	Kind      ConditionKind    `json:"kind" yaml:"kind"`
	Element   ElementReference `json:"element" yaml:"element"`
	Attribute string           `json:"attribute,omitempty" yaml:"attribute,omitempty"`
	Expected  string           `json:"expected,omitempty" yaml:"expected,omitempty"`
	Within    time.Duration    `json:"within,omitempty" yaml:"within,omitempty"`
}

func Present(ref ElementReference) Condition {
	return Condition{Kind: CondPresent, Element: ref}
}

func Absent(ref ElementReference) Condition {
	return Condition{Kind: CondAbsent, Element: ref}
}

func Visible(ref ElementReference) Condition {
	return Condition{Kind: CondVisible, Element: ref}
}

func Hidden(ref ElementReference) Condition {
	return Condition{Kind: CondHidden, Element: ref}
}

func Focused(ref ElementReference) Condition {
	return Condition{Kind: CondFocused, Element: ref}
}

func TextEquals(ref ElementReference, expected string) Condition {
	return Condition{Kind: CondTextEquals, Element: ref, Expected: expected}
}

func ValueEquals(ref ElementReference, expected string) Condition {
	return Condition{Kind: CondValueEquals, Element: ref, Expected: expected}
}

func AttributeEquals(ref ElementReference, attribute, expected string) Condition {
	return Condition{Kind: CondAttributeEquals, Element: ref, Attribute: attribute, Expected: expected}
}

func NeverVisible(ref ElementReference, within time.Duration) Condition {
	return Condition{Kind: CondNeverVisible, Element: ref, Within: within}
}

// Validate checks the condition is complete for its kind
func (c Condition) Validate() error {
	switch c.Kind {
	case CondPresent, CondAbsent, CondVisible, CondHidden, CondFocused,
		CondTextEquals, CondValueEquals:
	case CondAttributeEquals:
		if c.Attribute == "" {
			return fmt.Errorf("attribute_equals condition requires an attribute name")
		}
	case CondNeverVisible:
		if c.Within <= 0 {
			return fmt.Errorf("never_visible condition requires a positive window")
		}
	default:
		return fmt.Errorf("unknown condition kind %q", c.Kind)
	}
	return c.Element.Validate()
}

func (c Condition) String() string {
	switch c.Kind {
	case CondTextEquals, CondValueEquals:
		return fmt.Sprintf("%s %s %q", c.Element, c.Kind, c.Expected)
	case CondAttributeEquals:
		return fmt.Sprintf("%s[%s] == %q", c.Element, c.Attribute, c.Expected)
	case CondNeverVisible:
		return fmt.Sprintf("%s never visible within %s", c.Element, c.Within)
	default:
		return fmt.Sprintf("%s %s", c.Element, c.Kind)
	}
}
