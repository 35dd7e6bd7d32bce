package entities

import "fmt"

// Scenario is a named, ordered list of steps forming one test case
type Scenario struct {
	Name      string   `json:"name" yaml:"name"`
	Exclusive bool     `json:"exclusive,omitempty" yaml:"exclusive,omitempty"`
	Tags      []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Steps     []Step   `json:"steps" yaml:"steps"`
}

// Validate checks the scenario and each of its steps
func (s Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario has no name")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("scenario %q has no steps", s.Name)
	}
	for i, step := range s.Steps {
		if err := step.Validate(); err != nil {
			return fmt.Errorf("scenario %q step %d: %w", s.Name, i, err)
		}
	}
	return nil
}

// HasTag reports whether the scenario carries tag
func (s Scenario) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Suite groups scenarios declared together
type Suite struct {
	Name      string     `json:"name" yaml:"name"`
	Scenarios []Scenario `json:"scenarios" yaml:"scenarios"`
}

// Validate checks every scenario and rejects duplicate names
func (s Suite) Validate() error {
	seen := make(map[string]struct{}, len(s.Scenarios))
	for _, sc := range s.Scenarios {
		if err := sc.Validate(); err != nil {
			return err
		}
		if _, dup := seen[sc.Name]; dup {
			return fmt.Errorf("duplicate scenario name %q", sc.Name)
		}
		seen[sc.Name] = struct{}{}
	}
	return nil
}

// ExclusiveNames returns names of scenarios marked exclusive
func (s Suite) ExclusiveNames() []string {
	var names []string
	for _, sc := range s.Scenarios {
		if sc.Exclusive {
			names = append(names, sc.Name)
		}
	}
	return names
}
