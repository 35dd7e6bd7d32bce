package harness

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"e2e_harness/application/harness/harnesstest"
	"e2e_harness/domain/entities"
	"e2e_harness/domain/interfaces"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	mu       sync.Mutex
	finished []string
	report   *entities.SuiteReport
}

func (r *recordingReporter) ScenarioFinished(res entities.ExecutionResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, res.Scenario)
}

func (r *recordingReporter) SuiteFinished(report entities.SuiteReport) {
	r.report = &report
}

// sessions hands out a fresh fake browser per scenario and remembers them
type sessions struct {
	mu       sync.Mutex
	browsers []*harnesstest.Browser
	opened   int32
	fail     error
	lose     bool
}

func (s *sessions) factory(ctx context.Context) (interfaces.Driver, error) {
	atomic.AddInt32(&s.opened, 1)
	if s.fail != nil {
		return nil, s.fail
	}
	b := harnesstest.NewAutocompleteBrowser(0)
	if s.lose {
		b.LoseSessionAfter = 1
	}
	s.mu.Lock()
	s.browsers = append(s.browsers, b)
	s.mu.Unlock()
	return b, nil
}

func simpleScenario(name string, exclusive bool) entities.Scenario {
	return entities.Scenario{
		Name:      name,
		Exclusive: exclusive,
		Steps: []entities.Step{
			entities.Navigate(harnesstest.AutocompleteOnPath),
			entities.Assert(entities.ValueEquals(nameInput, "")),
		},
	}
}

func failingScenario(name string) entities.Scenario {
	return entities.Scenario{
		Name: name,
		Steps: []entities.Step{
			entities.Navigate(harnesstest.AutocompleteOnPath),
			entities.Assert(entities.ValueEquals(nameInput, "not there")),
		},
	}
}

func suiteOptions(t *testing.T, focus FocusMode, reporter interfaces.Reporter) SuiteOptions {
	return SuiteOptions{
		Runner:   testOptions(t),
		Workers:  2,
		Focus:    focus,
		Reporter: reporter,
	}
}

func TestParseFocusMode(t *testing.T) {
	for in, want := range map[string]FocusMode{"": FocusIgnore, "IGNORE": FocusIgnore, "honor": FocusHonor, " forbid ": FocusForbid} {
		got, err := ParseFocusMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFocusMode("only")
	assert.Error(t, err)
}

func TestPlan(t *testing.T) {
	scenarios := []entities.Scenario{
		simpleScenario("a", false),
		simpleScenario("b", true),
		simpleScenario("c", false),
	}

	t.Run("ignore warns and runs everything", func(t *testing.T) {
		run, suppressed, warnings, err := Plan(scenarios, FocusIgnore)
		require.NoError(t, err)
		assert.Len(t, run, 3)
		assert.Empty(t, suppressed)
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0], "b")
	})

	t.Run("honor runs only exclusive", func(t *testing.T) {
		run, suppressed, warnings, err := Plan(scenarios, FocusHonor)
		require.NoError(t, err)
		require.Len(t, run, 1)
		assert.Equal(t, "b", run[0].Name)
		assert.Equal(t, []string{"a", "c"}, suppressed)
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0], "a, c")
	})

	t.Run("forbid rejects", func(t *testing.T) {
		_, _, _, err := Plan(scenarios, FocusForbid)
		assert.ErrorIs(t, err, ErrExclusiveForbidden)
	})

	t.Run("no markers", func(t *testing.T) {
		run, suppressed, warnings, err := Plan(scenarios[:1], FocusForbid)
		require.NoError(t, err)
		assert.Len(t, run, 1)
		assert.Empty(t, suppressed)
		assert.Empty(t, warnings)
	})
}

func TestSuiteExclusiveFocusCount(t *testing.T) {
	suite := entities.Suite{Name: "focus", Scenarios: []entities.Scenario{
		simpleScenario("a", true),
		simpleScenario("b", false),
		simpleScenario("c", true),
		simpleScenario("d", false),
	}}
	s := &sessions{}
	reporter := &recordingReporter{}

	report, err := NewSuiteRunner(s.factory, suiteOptions(t, FocusHonor, reporter)).Run(context.Background(), suite)
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&s.opened))
	assert.ElementsMatch(t, []string{"a", "c"}, reporter.finished)
	assert.Equal(t, 2, report.Count(entities.StatusPassed))
	assert.Equal(t, 2, report.Count(entities.StatusSkipped))
	assert.Equal(t, []string{"b", "d"}, report.Suppressed)
	assert.NotNil(t, reporter.report)
}

func TestSuiteFailureDoesNotStopOthers(t *testing.T) {
	suite := entities.Suite{Name: "mixed", Scenarios: []entities.Scenario{
		failingScenario("broken"),
		simpleScenario("fine", false),
		simpleScenario("also fine", false),
	}}
	s := &sessions{}

	report, err := NewSuiteRunner(s.factory, suiteOptions(t, FocusIgnore, nil)).Run(context.Background(), suite)
	require.NoError(t, err)
	require.Len(t, report.Results, 3)
	assert.Equal(t, "broken", report.Results[0].Scenario)
	assert.Equal(t, entities.StatusFailed, report.Results[0].Status)
	assert.Equal(t, 2, report.Count(entities.StatusPassed))
	assert.Equal(t, 1, report.ExitCode())

	for _, b := range s.browsers {
		assert.True(t, b.Closed(), "every session is closed")
	}
}

func TestSuiteSessionFactoryFailureIsInfrastructure(t *testing.T) {
	suite := entities.Suite{Name: "infra", Scenarios: []entities.Scenario{simpleScenario("a", false)}}
	s := &sessions{fail: errors.New("chromedriver not running")}

	report, err := NewSuiteRunner(s.factory, suiteOptions(t, FocusIgnore, nil)).Run(context.Background(), suite)
	require.ErrorIs(t, err, entities.ErrSessionLost)
	assert.Equal(t, entities.StatusErrored, report.Results[0].Status)
	assert.Equal(t, 2, report.ExitCode())
}

func TestSuiteSessionLossAbortsRemaining(t *testing.T) {
	scenarios := make([]entities.Scenario, 0, 6)
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		scenarios = append(scenarios, simpleScenario(name, false))
	}
	s := &sessions{lose: true}
	opts := suiteOptions(t, FocusIgnore, nil)
	opts.Workers = 1

	report, err := NewSuiteRunner(s.factory, opts).Run(context.Background(), entities.Suite{Name: "lost", Scenarios: scenarios})
	require.ErrorIs(t, err, entities.ErrSessionLost)
	assert.Equal(t, entities.StatusErrored, report.Results[0].Status)
	assert.Equal(t, 2, report.ExitCode())
	assert.Less(t, int(atomic.LoadInt32(&s.opened)), len(scenarios))
}

func TestSuiteForbidRunsNothing(t *testing.T) {
	s := &sessions{}
	suite := entities.Suite{Name: "forbid", Scenarios: []entities.Scenario{simpleScenario("a", true)}}

	_, err := NewSuiteRunner(s.factory, suiteOptions(t, FocusForbid, nil)).Run(context.Background(), suite)
	require.ErrorIs(t, err, ErrExclusiveForbidden)
	assert.Zero(t, atomic.LoadInt32(&s.opened))
}

func TestSuiteTagFilter(t *testing.T) {
	tagged := simpleScenario("tagged", false)
	tagged.Tags = []string{"smoke"}
	suite := entities.Suite{Name: "tags", Scenarios: []entities.Scenario{tagged, simpleScenario("untagged", false)}}
	s := &sessions{}
	opts := suiteOptions(t, FocusIgnore, nil)
	opts.Tags = []string{"smoke"}

	report, err := NewSuiteRunner(s.factory, opts).Run(context.Background(), suite)
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "tagged", report.Results[0].Scenario)
}

func TestSuiteRejectsInvalidSuite(t *testing.T) {
	s := &sessions{}
	suite := entities.Suite{Name: "dups", Scenarios: []entities.Scenario{simpleScenario("a", false), simpleScenario("a", false)}}

	_, err := NewSuiteRunner(s.factory, suiteOptions(t, FocusIgnore, nil)).Run(context.Background(), suite)
	assert.Error(t, err)
}

func TestSuiteCancelledRunIsAborted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := &sessions{}
	suite := entities.Suite{Name: "cancelled", Scenarios: []entities.Scenario{simpleScenario("a", false)}}

	started := time.Now()
	report, err := NewSuiteRunner(s.factory, suiteOptions(t, FocusIgnore, nil)).Run(ctx, suite)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusAborted, report.Results[0].Status)
	assert.Less(t, time.Since(started), time.Second)
}
