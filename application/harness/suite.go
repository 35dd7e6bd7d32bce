package harness

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"e2e_harness/domain/entities"
	"e2e_harness/domain/interfaces"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// FocusMode controls what exclusive ("run only this") markers do
type FocusMode string

const (
	// FocusIgnore runs every scenario and warns about exclusive markers
	FocusIgnore FocusMode = "ignore"
	// FocusHonor runs only exclusive scenarios when any exist
	FocusHonor FocusMode = "honor"
	// FocusForbid rejects suites containing exclusive markers
	FocusForbid FocusMode = "forbid"
)

// ParseFocusMode - parses a focus mode name; empty means FocusIgnore
func ParseFocusMode(s string) (FocusMode, error) {
	switch FocusMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", FocusIgnore:
		return FocusIgnore, nil
	case FocusHonor:
		return FocusHonor, nil
	case FocusForbid:
		return FocusForbid, nil
	default:
		return "", fmt.Errorf("unknown focus mode %q (want ignore, honor or forbid)", s)
	}
}

// ErrExclusiveForbidden is returned in FocusForbid mode when a suite carries
// exclusive markers
var ErrExclusiveForbidden = errors.New("exclusive scenarios are not allowed")

// SuiteOptions configures a suite run
type SuiteOptions struct {
	Runner Options
	// Workers bounds how many scenarios run in parallel, each on its own session
	Workers int
	Focus   FocusMode
	// Tags keeps only scenarios carrying at least one of the tags
	Tags     []string
	Reporter interfaces.Reporter
	Store    interfaces.ReportStore
}

// SuiteRunner runs the scenarios of a suite, each on a fresh browser session
type SuiteRunner struct {
	sessions interfaces.SessionFactory
	opts     SuiteOptions
	logger   *logrus.Logger
}

// NewSuiteRunner - creates new suite runner
func NewSuiteRunner(sessions interfaces.SessionFactory, opts SuiteOptions) *SuiteRunner {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Focus == "" {
		opts.Focus = FocusIgnore
	}
	opts.Runner = opts.Runner.withDefaults()
	if opts.Runner.RunID == "" {
		opts.Runner.RunID = uuid.NewString()
	}
	return &SuiteRunner{
		sessions: sessions,
		opts:     opts,
		logger:   opts.Runner.Logger,
	}
}

// Plan decides which scenarios execute. suppressed lists scenarios skipped
// because exclusive focus was honored.
func Plan(scenarios []entities.Scenario, mode FocusMode) (run []entities.Scenario, suppressed []string, warnings []string, err error) {
	var exclusive []string
	for _, sc := range scenarios {
		if sc.Exclusive {
			exclusive = append(exclusive, sc.Name)
		}
	}
	if len(exclusive) == 0 {
		return scenarios, nil, nil, nil
	}

	switch mode {
	case FocusForbid:
		return nil, nil, nil, fmt.Errorf("%w: %s", ErrExclusiveForbidden, strings.Join(exclusive, ", "))

	case FocusHonor:
		for _, sc := range scenarios {
			if sc.Exclusive {
				run = append(run, sc)
			} else {
				suppressed = append(suppressed, sc.Name)
			}
		}
		if len(suppressed) > 0 {
			warnings = append(warnings, fmt.Sprintf("exclusive focus suppressed %d scenario(s): %s",
				len(suppressed), strings.Join(suppressed, ", ")))
		}
		return run, suppressed, warnings, nil

	default:
		warnings = append(warnings, fmt.Sprintf("exclusive markers ignored (focus mode %q): %s",
			FocusIgnore, strings.Join(exclusive, ", ")))
		return scenarios, nil, warnings, nil
	}
}

// Run executes the suite. A non-nil error means the run itself broke
// (invalid suite, forbidden focus markers, lost session); scenario failures
// are only reported in the returned report.
func (s *SuiteRunner) Run(ctx context.Context, suite entities.Suite) (entities.SuiteReport, error) {
	report := entities.SuiteReport{
		RunID:     s.opts.Runner.RunID,
		Suite:     suite.Name,
		StartedAt: time.Now(),
	}
	log := s.logger.WithFields(logrus.Fields{"run_id": report.RunID, "suite": suite.Name})

	if err := suite.Validate(); err != nil {
		return report, fmt.Errorf("invalid suite: %w", err)
	}

	selected := filterTags(suite.Scenarios, s.opts.Tags)
	planned, suppressed, warnings, err := Plan(selected, s.opts.Focus)
	if err != nil {
		return report, err
	}
	report.Suppressed = suppressed
	report.Warnings = warnings
	for _, w := range warnings {
		log.Warn(w)
	}

	results := make([]entities.ExecutionResult, len(planned))
	var reportMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, sc := range planned {
		i, sc := i, sc
		g.Go(func() error {
			res := s.runOne(gctx, sc)
			results[i] = res

			reportMu.Lock()
			if s.opts.Reporter != nil {
				s.opts.Reporter.ScenarioFinished(res)
			}
			reportMu.Unlock()

			if res.Status == entities.StatusErrored {
				return fmt.Errorf("scenario %q: %w", sc.Name, res.Err)
			}
			return nil
		})
	}
	runErr := g.Wait()

	report.Results = results
	for _, name := range suppressed {
		report.Results = append(report.Results, entities.ExecutionResult{
			Scenario:  name,
			Status:    entities.StatusSkipped,
			StepIndex: -1,
			Reason:    "suppressed by exclusive focus",
		})
	}
	report.FinishedAt = time.Now()

	if s.opts.Reporter != nil {
		s.opts.Reporter.SuiteFinished(report)
	}
	if s.opts.Store != nil {
		if err := s.opts.Store.SaveReport(report); err != nil {
			log.WithError(err).Warn("Failed to save report")
		}
	}
	return report, runErr
}

func (s *SuiteRunner) runOne(ctx context.Context, sc entities.Scenario) entities.ExecutionResult {
	if err := ctx.Err(); err != nil {
		err = aborted(err)
		return entities.ExecutionResult{
			Scenario:  sc.Name,
			Status:    entities.StatusAborted,
			StepIndex: 0,
			Reason:    err.Error(),
			Err:       err,
		}
	}

	driver, err := s.sessions(ctx)
	if err != nil {
		err = fmt.Errorf("%w: open session: %w", entities.ErrSessionLost, err)
		return entities.ExecutionResult{
			Scenario:  sc.Name,
			Status:    entities.StatusErrored,
			StepIndex: 0,
			Reason:    err.Error(),
			Err:       err,
		}
	}
	defer func() {
		if err := driver.Close(); err != nil {
			s.logger.WithError(err).WithField("scenario", sc.Name).Warn("Failed to close browser session")
		}
	}()

	return NewRunner(driver, s.opts.Runner).Run(ctx, sc)
}

func filterTags(scenarios []entities.Scenario, tags []string) []entities.Scenario {
	if len(tags) == 0 {
		return scenarios
	}
	var out []entities.Scenario
	for _, sc := range scenarios {
		for _, tag := range tags {
			if sc.HasTag(tag) {
				out = append(out, sc)
				break
			}
		}
	}
	return out
}
