package scenarios

import (
	"context"
	"io"
	"testing"
	"time"

	"e2e_harness/application/harness"
	"e2e_harness/application/harness/harnesstest"
	"e2e_harness/domain/entities"
	"e2e_harness/domain/interfaces"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runnerOptions() harness.Options {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return harness.Options{
		BaseURL:        harnesstest.BaseURL,
		DefaultTimeout: time.Second,
		ActionTimeout:  time.Second,
		PollInterval:   10 * time.Millisecond,
		Logger:         logger,
	}
}

func fastOptions() Options {
	return Options{SuggestionTimeout: 300 * time.Millisecond}
}

func TestScenariosAreValid(t *testing.T) {
	require.NoError(t, AutocompleteSuite(Options{}).Validate())
}

func TestAutocompleteAccepted(t *testing.T) {
	b := harnesstest.NewAutocompleteBrowser(40 * time.Millisecond)

	res := harness.NewRunner(b, runnerOptions()).Run(context.Background(), AutocompleteAccepted(fastOptions()))
	require.True(t, res.Passed(), res.Reason)
	assert.Equal(t, []string{ReceiptValue}, b.History("name"))
}

func TestAutocompleteAcceptedTimesOutWhenDropdownIsSlow(t *testing.T) {
	// the dropdown settles after 500ms but the scenario only waits 50ms
	for i := 0; i < 3; i++ {
		b := harnesstest.NewAutocompleteBrowser(500 * time.Millisecond)
		res := harness.NewRunner(b, runnerOptions()).Run(context.Background(),
			AutocompleteAccepted(Options{SuggestionTimeout: 50 * time.Millisecond}))

		require.Equal(t, entities.StatusFailed, res.Status)
		assert.ErrorIs(t, res.Err, entities.ErrTimeout)
		assert.Equal(t, entities.StepWait, AutocompleteAccepted(Options{}).Steps[res.StepIndex].Kind)
	}
}

func TestAutocompleteSuppressed(t *testing.T) {
	b := harnesstest.NewAutocompleteBrowser(0)

	res := harness.NewRunner(b, runnerOptions()).Run(context.Background(), AutocompleteSuppressed(fastOptions()))
	require.True(t, res.Passed(), res.Reason)
	assert.Empty(t, b.History("name"))
	assert.False(t, b.SuggestionsVisible())
}

func TestAutocompleteSuppressedDetectsSuggestions(t *testing.T) {
	// serve the "off" page with autocomplete allowed; the scenario must catch it
	pages := harnesstest.AutocompletePages()
	leaky := pages[harnesstest.AutocompleteOnPath]
	pages[harnesstest.AutocompleteOffPath] = leaky
	b := harnesstest.NewBrowser(pages)

	res := harness.NewRunner(b, runnerOptions()).Run(context.Background(), AutocompleteSuppressed(fastOptions()))
	require.Equal(t, entities.StatusFailed, res.Status)
	assert.ErrorIs(t, res.Err, entities.ErrAssertionFailed)
}

func TestAutocompleteIdempotent(t *testing.T) {
	var results []entities.ExecutionResult
	for i := 0; i < 2; i++ {
		b := harnesstest.NewAutocompleteBrowser(20 * time.Millisecond)
		res := harness.NewRunner(b, runnerOptions()).Run(context.Background(), AutocompleteAccepted(fastOptions()))
		res.Duration = 0
		results = append(results, res)
	}
	assert.Equal(t, results[0], results[1])
}

func TestAutocompleteSuite(t *testing.T) {
	factory := func(ctx context.Context) (interfaces.Driver, error) {
		return harnesstest.NewAutocompleteBrowser(20 * time.Millisecond), nil
	}
	suite := AutocompleteSuite(fastOptions())

	report, err := harness.NewSuiteRunner(factory, harness.SuiteOptions{
		Runner:  runnerOptions(),
		Workers: 2,
	}).Run(context.Background(), suite)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Count(entities.StatusPassed))
	assert.Zero(t, report.ExitCode())
}

func nativeOptions() Options {
	return Options{NativeSuggestions: true, SuggestionTimeout: time.Second}
}

func TestNativeSuggestionsDropListboxSteps(t *testing.T) {
	for _, sc := range AutocompleteSuite(nativeOptions()).Scenarios {
		for _, step := range sc.Steps {
			if step.Condition != nil {
				assert.NotEqual(t, SuggestionList, step.Condition.Element, sc.Name)
			}
		}
	}
}

func TestNativeAutocompleteAcceptedWaitsForSlowSuggestions(t *testing.T) {
	for _, delay := range []time.Duration{0, 40 * time.Millisecond, 150 * time.Millisecond} {
		b := harnesstest.NewAutocompleteBrowser(delay)

		res := harness.NewRunner(b, runnerOptions()).Run(context.Background(), AutocompleteAccepted(nativeOptions()))
		require.True(t, res.Passed(), "delay %s: %s", delay, res.Reason)
		assert.Equal(t, []string{ReceiptValue}, b.History("name"))
	}
}

func TestNativeAutocompleteAcceptedTimesOut(t *testing.T) {
	b := harnesstest.NewAutocompleteBrowser(500 * time.Millisecond)
	opts := Options{NativeSuggestions: true, SuggestionTimeout: 100 * time.Millisecond}

	res := harness.NewRunner(b, runnerOptions()).Run(context.Background(), AutocompleteAccepted(opts))
	require.Equal(t, entities.StatusFailed, res.Status)
	assert.ErrorIs(t, res.Err, entities.ErrTimeout)
	assert.Equal(t, entities.StepRepeatUntil, AutocompleteAccepted(opts).Steps[res.StepIndex].Kind)
	assert.Contains(t, res.Reason, `last observed ""`)
}

func TestNativeAutocompleteSuppressed(t *testing.T) {
	b := harnesstest.NewAutocompleteBrowser(40 * time.Millisecond)
	opts := Options{NativeSuggestions: true, SuggestionTimeout: 200 * time.Millisecond}

	res := harness.NewRunner(b, runnerOptions()).Run(context.Background(), AutocompleteSuppressed(opts))
	require.True(t, res.Passed(), res.Reason)
	assert.Empty(t, b.History("name"))
}

func TestNativeAutocompleteSuppressedDetectsLateSuggestions(t *testing.T) {
	// the "off" page remembers the receipt and offers it after 40ms
	pages := harnesstest.AutocompletePages()
	pages[harnesstest.AutocompleteOffPath] = pages[harnesstest.AutocompleteOnPath]
	b := harnesstest.NewBrowser(pages)
	b.SuggestionDelay = 40 * time.Millisecond

	sc := AutocompleteSuppressed(nativeOptions())
	res := harness.NewRunner(b, runnerOptions()).Run(context.Background(), sc)
	require.Equal(t, entities.StatusFailed, res.Status)
	assert.ErrorIs(t, res.Err, entities.ErrAssertionFailed)
	assert.Equal(t, entities.StepRepeatWhile, sc.Steps[res.StepIndex].Kind)

	var assertErr *entities.AssertionError
	require.ErrorAs(t, res.Err, &assertErr)
	assert.Equal(t, ReceiptValue, assertErr.Observed)
}

func TestCustomSuggestionList(t *testing.T) {
	custom := entities.ID("suggestions")
	sc := AutocompleteSuppressed(Options{SuggestionList: custom})

	var found bool
	for _, step := range sc.Steps {
		if step.Condition != nil && step.Condition.Kind == entities.CondNeverVisible {
			assert.Equal(t, custom, step.Condition.Element)
			found = true
		}
	}
	assert.True(t, found)
}
