package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"e2e_harness/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const autocompleteYAML = `
name: autocomplete
scenarios:
  - name: remembers submitted value
    exclusive: true
    tags: [autocomplete, smoke]
    steps:
      - kind: navigate
        target: /views/test/autocomplete_on.html
      - kind: type
        element: {by: id, value: nameInput}
        text: "0101011010111010102"
      - kind: key
        element: {by: id, value: nameInput}
        key: ARROW_DOWN
      - kind: wait
        timeout: 3s
        condition:
          kind: visible
          element: {by: css, value: '[role="listbox"]'}
      - kind: assert
        condition:
          kind: never_visible
          within: 1500ms
          element: {by: css, value: '[role="listbox"]'}
`

func TestDecodeSuite(t *testing.T) {
	suite, err := DecodeSuite(strings.NewReader(autocompleteYAML))
	require.NoError(t, err)

	assert.Equal(t, "autocomplete", suite.Name)
	require.Len(t, suite.Scenarios, 1)
	sc := suite.Scenarios[0]
	assert.True(t, sc.Exclusive)
	assert.True(t, sc.HasTag("smoke"))
	require.Len(t, sc.Steps, 5)

	assert.Equal(t, entities.Navigate("/views/test/autocomplete_on.html"), sc.Steps[0])
	assert.Equal(t, entities.TypeText(entities.ID("nameInput"), "0101011010111010102"), sc.Steps[1])
	assert.Equal(t, entities.KeyArrowDown, sc.Steps[2].Key)
	assert.Equal(t, 3*time.Second, sc.Steps[3].Timeout)
	assert.Equal(t, entities.CSS(`[role="listbox"]`), sc.Steps[3].Condition.Element)
	assert.Equal(t, entities.CondNeverVisible, sc.Steps[4].Condition.Kind)
	assert.Equal(t, 1500*time.Millisecond, sc.Steps[4].Condition.Within)
}

const nativeYAML = `
scenarios:
  - name: accept remembered value
    steps:
      - kind: navigate
        target: /views/test/autocomplete_on.html
      - kind: repeat_until
        timeout: 2s
        condition:
          kind: value_equals
          element: {by: id, value: nameInput}
          expected: "0101011010111010102"
        body:
          - {kind: click, element: {by: id, value: nameInput}}
          - {kind: key, element: {by: id, value: nameInput}, key: ARROW_DOWN}
          - {kind: key, element: {by: id, value: nameInput}, key: TAB}
`

func TestDecodeSuiteRepeatStep(t *testing.T) {
	suite, err := DecodeSuite(strings.NewReader(nativeYAML))
	require.NoError(t, err)

	require.Len(t, suite.Scenarios[0].Steps, 2)
	step := suite.Scenarios[0].Steps[1]
	field := entities.ID("nameInput")
	assert.Equal(t, entities.RepeatUntil([]entities.Step{
		entities.Click(field),
		entities.SendSpecialKey(field, entities.KeyArrowDown),
		entities.SendSpecialKey(field, entities.KeyTab),
	}, entities.ValueEquals(field, "0101011010111010102"), 2*time.Second), step)
}

func TestDecodeSuiteRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"empty", "", "empty suite file"},
		{"no scenarios", "name: x\n", "no scenarios"},
		{"unknown field", "name: x\nscenarios:\n  - name: a\n    focus: true\n", "focus"},
		{"unknown key", "scenarios:\n  - name: a\n    steps:\n      - kind: key\n        element: {by: id, value: f}\n        key: F13\n", "unknown key"},
		{"repeat without body", "scenarios:\n  - name: a\n    steps:\n      - kind: repeat_while\n        condition: {kind: visible, element: {by: id, value: f}}\n", "requires a body"},
		{"duplicate", "scenarios:\n  - name: a\n    steps: [{kind: navigate, target: /}]\n  - name: a\n    steps: [{kind: navigate, target: /}]\n", "duplicate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeSuite(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadSuiteDefaultsNameToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smoke.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scenarios:\n  - name: home\n    steps: [{kind: navigate, target: /}]\n"), 0644))

	suite, err := NewSuiteFile().LoadSuite(path)
	require.NoError(t, err)
	assert.Equal(t, "smoke", suite.Name)

	_, err = NewSuiteFile().LoadSuite(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestMergeSuites(t *testing.T) {
	a := entities.Suite{Name: "a", Scenarios: []entities.Scenario{{Name: "one", Steps: []entities.Step{entities.Navigate("/")}}}}
	b := entities.Suite{Name: "b", Scenarios: []entities.Scenario{{Name: "two", Steps: []entities.Step{entities.Navigate("/")}}}}

	merged, err := MergeSuites("all", a, b)
	require.NoError(t, err)
	assert.Equal(t, "all", merged.Name)
	require.Len(t, merged.Scenarios, 2)
	assert.Equal(t, "one", merged.Scenarios[0].Name)

	single, err := MergeSuites("", a)
	require.NoError(t, err)
	assert.Equal(t, "a", single.Name)

	_, err = MergeSuites("dup", a, a)
	require.Error(t, err)
}

func TestFileStoreReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.json")
	store := NewFileStore(path, "")

	report := entities.SuiteReport{
		RunID: "run-1",
		Suite: "autocomplete",
		Results: []entities.ExecutionResult{
			{Scenario: "a", Status: entities.StatusPassed, StepIndex: -1, StepsExecuted: 9},
			{Scenario: "b", Status: entities.StatusFailed, StepIndex: 6, Reason: "boom"},
		},
		Suppressed: []string{"c"},
	}
	require.NoError(t, store.SaveReport(report))

	loaded, err := LoadReport(path)
	require.NoError(t, err)
	assert.Equal(t, report.RunID, loaded.RunID)
	assert.Equal(t, report.Results, loaded.Results)
	assert.Equal(t, []string{"c"}, loaded.Suppressed)

	assert.NoError(t, NewFileStore("", "").SaveReport(report))
}

func TestFileStoreArtifacts(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore("", dir)

	path, err := store.SaveArtifact("run-1", "autocomplete on/remembers", "failure.png", []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "run-1", "autocomplete_on_remembers-failure.png"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)

	_, err = NewFileStore("", "").SaveArtifact("run", "s", "n", nil)
	require.Error(t, err)
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "a_b", safeName("a/b"))
	assert.Equal(t, "_", safeName(".."))
	assert.Equal(t, "_", safeName(""))
}
