package entities

import (
	"fmt"
	"time"
)

// StepKind represents the type of step a scenario can perform
type StepKind string

const (
	StepNavigate StepKind = "navigate"
	StepClick    StepKind = "click"
	StepTypeText StepKind = "type"
	StepKey      StepKind = "key"
	StepWait     StepKind = "wait"
	StepAssert   StepKind = "assert"

	// StepRepeatUntil replays Body until Condition holds or Timeout elapses
	StepRepeatUntil StepKind = "repeat_until"
	// StepRepeatWhile replays Body for the whole Timeout window and fails as
	// soon as Condition stops holding
	StepRepeatWhile StepKind = "repeat_while"
)

// Step is a single ordered instruction of a scenario. Kind selects which of
// the remaining fields are meaningful.
type Step struct {
	Kind      StepKind         `json:"kind" yaml:"kind"`
	Target    PageTarget       `json:"target,omitempty" yaml:"target,omitempty"`
	Element   ElementReference `json:"element,omitempty" yaml:"element,omitempty"`
	Text      string           `json:"text,omitempty" yaml:"text,omitempty"`
	Key       KeySymbol        `json:"key,omitempty" yaml:"key,omitempty"`
	Condition *Condition       `json:"condition,omitempty" yaml:"condition,omitempty"`
	Timeout   time.Duration    `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Body      []Step           `json:"body,omitempty" yaml:"body,omitempty"`
}

// Navigate - builds a navigation step
func Navigate(target PageTarget) Step {
	return Step{Kind: StepNavigate, Target: target}
}

// Click - builds a click step
func Click(ref ElementReference) Step {
	return Step{Kind: StepClick, Element: ref}
}

// TypeText - builds a step typing text as individual key events
func TypeText(ref ElementReference, text string) Step {
	return Step{Kind: StepTypeText, Element: ref, Text: text}
}

// SendSpecialKey - builds a step sending a non-character key
func SendSpecialKey(ref ElementReference, key KeySymbol) Step {
	return Step{Kind: StepKey, Element: ref, Key: key}
}

// WaitUntil - builds a step blocking until cond holds or timeout elapses
func WaitUntil(cond Condition, timeout time.Duration) Step {
	return Step{Kind: StepWait, Condition: &cond, Timeout: timeout}
}

// Assert - builds an assertion step
func Assert(cond Condition) Step {
	return Step{Kind: StepAssert, Condition: &cond}
}

// RepeatUntil - builds a step replaying body until cond holds or timeout
// elapses. Used where only the outcome of an interaction can be observed.
func RepeatUntil(body []Step, cond Condition, timeout time.Duration) Step {
	return Step{Kind: StepRepeatUntil, Body: body, Condition: &cond, Timeout: timeout}
}

// RepeatWhile - builds a step replaying body for the whole timeout window,
// checking after every pass that cond still holds
func RepeatWhile(body []Step, cond Condition, timeout time.Duration) Step {
	return Step{Kind: StepRepeatWhile, Body: body, Condition: &cond, Timeout: timeout}
}

// Validate checks that the fields required by Kind are present
func (s Step) Validate() error {
	switch s.Kind {
	case StepNavigate:
		if s.Target == "" {
			return fmt.Errorf("navigate step requires a target")
		}
	case StepClick, StepTypeText, StepKey:
		if err := s.Element.Validate(); err != nil {
			return fmt.Errorf("%s step: %w", s.Kind, err)
		}
		if s.Kind == StepKey {
			if !s.Key.Known() {
				return fmt.Errorf("key step: unknown key %q", s.Key)
			}
		}
	case StepWait, StepAssert:
		if s.Condition == nil {
			return fmt.Errorf("%s step requires a condition", s.Kind)
		}
		if err := s.Condition.Validate(); err != nil {
			return fmt.Errorf("%s step: %w", s.Kind, err)
		}
		if s.Kind == StepWait {
			if s.Timeout < 0 {
				return fmt.Errorf("wait step has negative timeout")
			}
			if s.Condition.Kind == CondNeverVisible {
				return fmt.Errorf("never_visible is an assertion, not a wait condition")
			}
		}
	case StepRepeatUntil, StepRepeatWhile:
		if len(s.Body) == 0 {
			return fmt.Errorf("%s step requires a body", s.Kind)
		}
		for i, inner := range s.Body {
			switch inner.Kind {
			case StepNavigate, StepClick, StepTypeText, StepKey:
			default:
				return fmt.Errorf("%s step: body step %d: only actions can be repeated, got %q", s.Kind, i, inner.Kind)
			}
			if err := inner.Validate(); err != nil {
				return fmt.Errorf("%s step: body step %d: %w", s.Kind, i, err)
			}
		}
		if s.Condition == nil {
			return fmt.Errorf("%s step requires a condition", s.Kind)
		}
		if err := s.Condition.Validate(); err != nil {
			return fmt.Errorf("%s step: %w", s.Kind, err)
		}
		if s.Condition.Kind == CondNeverVisible {
			return fmt.Errorf("%s step: never_visible cannot be checked per pass", s.Kind)
		}
		if s.Timeout < 0 {
			return fmt.Errorf("%s step has negative timeout", s.Kind)
		}
	default:
		return fmt.Errorf("unknown step kind %q", s.Kind)
	}
	return nil
}

// String describes the step for reports and logs
func (s Step) String() string {
	switch s.Kind {
	case StepNavigate:
		return fmt.Sprintf("navigate %s", s.Target)
	case StepClick:
		return fmt.Sprintf("click %s", s.Element)
	case StepTypeText:
		return fmt.Sprintf("type %q into %s", s.Text, s.Element)
	case StepKey:
		return fmt.Sprintf("press %s on %s", s.Key, s.Element)
	case StepWait:
		return fmt.Sprintf("wait until %s", s.Condition)
	case StepAssert:
		return fmt.Sprintf("assert %s", s.Condition)
	case StepRepeatUntil:
		return fmt.Sprintf("repeat %d steps until %s", len(s.Body), s.Condition)
	case StepRepeatWhile:
		return fmt.Sprintf("repeat %d steps while %s", len(s.Body), s.Condition)
	default:
		return string(s.Kind)
	}
}
