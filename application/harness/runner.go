package harness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"e2e_harness/domain/entities"
	"e2e_harness/domain/interfaces"

	"github.com/sirupsen/logrus"
)

const DefaultTimeout = 5 * time.Second

// Options configures how a single scenario is executed
type Options struct {
	BaseURL string
	// DefaultTimeout bounds element resolution and wait steps without an
	// explicit timeout
	DefaultTimeout time.Duration
	ActionTimeout  time.Duration
	PollInterval   time.Duration
	Guard          interfaces.NavigationGuard
	// Artifacts receives a screenshot when a scenario fails; optional
	Artifacts interfaces.ReportStore
	RunID     string
	Logger    *logrus.Logger
}

func (o Options) withDefaults() Options {
	if o.DefaultTimeout <= 0 {
		o.DefaultTimeout = DefaultTimeout
	}
	if o.ActionTimeout <= 0 {
		o.ActionTimeout = DefaultActionTimeout
	}
	if o.Logger == nil {
		o.Logger = logrus.New()
	}
	return o
}

// Runner executes scenarios against one browser session
type Runner struct {
	driver   interfaces.Driver
	opts     Options
	waiter   *Waiter
	locator  *Locator
	asserter *Asserter
	logger   *logrus.Entry
}

// NewRunner - creates new scenario runner bound to driver
func NewRunner(driver interfaces.Driver, opts Options) *Runner {
	opts = opts.withDefaults()
	waiter := NewWaiter(opts.PollInterval)
	locator := NewLocator(driver, waiter)
	return &Runner{
		driver:   driver,
		opts:     opts,
		waiter:   waiter,
		locator:  locator,
		asserter: NewAsserter(driver, locator, waiter, opts.DefaultTimeout),
		logger:   opts.Logger.WithField("run_id", opts.RunID),
	}
}

// Run executes the steps of sc in order and stops at the first failure.
// Steps after a failed one are never started.
func (r *Runner) Run(ctx context.Context, sc entities.Scenario) entities.ExecutionResult {
	started := time.Now()
	log := r.logger.WithField("scenario", sc.Name)
	executor := NewExecutor(r.driver, r.waiter, r.opts.Guard, r.opts.BaseURL, r.opts.ActionTimeout, log)

	result := entities.ExecutionResult{
		Scenario:  sc.Name,
		Status:    entities.StatusPassed,
		StepIndex: -1,
	}

	log.Info("Scenario started")
	for i, step := range sc.Steps {
		stepLog := log.WithFields(logrus.Fields{"step": i, "kind": step.Kind})

		var err error
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = aborted(ctxErr)
		} else {
			result.StepsExecuted++
			stepLog.Debug(step.String())
			err = r.runStep(ctx, executor, step)
		}
		if err != nil {
			stepErr := &entities.StepError{Index: i, Step: step, Err: err}
			result.Status = classify(err)
			result.StepIndex = i
			result.Step = step.String()
			result.Reason = err.Error()
			result.Err = stepErr
			stepLog.WithError(err).Warn("Step failed")
			break
		}
	}
	result.Duration = time.Since(started)

	if result.Status == entities.StatusFailed || result.Status == entities.StatusErrored {
		result.Artifacts = r.captureFailure(sc.Name, log)
	}

	log.WithFields(logrus.Fields{
		"status":   result.Status,
		"duration": result.Duration,
	}).Info("Scenario finished")
	return result
}

func (r *Runner) runStep(ctx context.Context, executor *Executor, step entities.Step) error {
	switch step.Kind {
	case entities.StepNavigate:
		return executor.Navigate(ctx, step.Target)

	case entities.StepClick:
		h, err := r.locator.Resolve(ctx, step.Element, r.timeout(step))
		if err != nil {
			return err
		}
		return executor.Click(ctx, h)

	case entities.StepTypeText:
		h, err := r.locator.Resolve(ctx, step.Element, r.timeout(step))
		if err != nil {
			return err
		}
		return executor.TypeText(ctx, h, step.Text)

	case entities.StepKey:
		h, err := r.locator.Resolve(ctx, step.Element, r.timeout(step))
		if err != nil {
			return err
		}
		return executor.SendSpecialKey(ctx, h, step.Key)

	case entities.StepWait:
		if step.Condition == nil {
			return fmt.Errorf("wait step without condition")
		}
		cond := *step.Condition
		var observed string
		err := r.waiter.Until(ctx, func(ctx context.Context) (bool, error) {
			ok, seen, err := r.asserter.Holds(ctx, cond)
			observed = seen
			return ok, err
		}, r.timeout(step))
		if errors.Is(err, entities.ErrTimeout) {
			return fmt.Errorf("%s (last observed %q): %w", cond, observed, err)
		}
		return err

	case entities.StepAssert:
		if step.Condition == nil {
			return fmt.Errorf("assert step without condition")
		}
		return r.asserter.Check(ctx, *step.Condition)

	case entities.StepRepeatUntil:
		if step.Condition == nil {
			return fmt.Errorf("repeat step without condition")
		}
		cond := *step.Condition
		var observed string
		err := r.waiter.Until(ctx, func(ctx context.Context) (bool, error) {
			ok, seen, err := r.replay(ctx, executor, step.Body, cond)
			observed = seen
			return ok, err
		}, r.timeout(step))
		if errors.Is(err, entities.ErrTimeout) {
			return fmt.Errorf("%s (last observed %q): %w", cond, observed, err)
		}
		return err

	case entities.StepRepeatWhile:
		if step.Condition == nil {
			return fmt.Errorf("repeat step without condition")
		}
		cond := *step.Condition
		var observed string
		violated, err := r.waiter.Never(ctx, func(ctx context.Context) (bool, error) {
			ok, seen, err := r.replay(ctx, executor, step.Body, cond)
			observed = seen
			return !ok, err
		}, r.timeout(step))
		if err != nil {
			return err
		}
		if violated {
			return &entities.AssertionError{Subject: cond.String(), Observed: observed, Expected: expectation(cond)}
		}
		return nil

	default:
		return fmt.Errorf("unknown step kind %q", step.Kind)
	}
}

// replay runs body once, then evaluates cond against the resulting page
func (r *Runner) replay(ctx context.Context, executor *Executor, body []entities.Step, cond entities.Condition) (bool, string, error) {
	for _, step := range body {
		if err := r.runStep(ctx, executor, step); err != nil {
			return false, "", err
		}
	}
	return r.asserter.Holds(ctx, cond)
}

func (r *Runner) timeout(step entities.Step) time.Duration {
	if step.Timeout > 0 {
		return step.Timeout
	}
	return r.opts.DefaultTimeout
}

// captureFailure stores a screenshot of the page the scenario failed on.
// Errors are logged only; artifacts never change the result.
func (r *Runner) captureFailure(scenario string, log *logrus.Entry) []string {
	if r.opts.Artifacts == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.opts.ActionTimeout)
	defer cancel()

	if url, err := r.driver.CurrentURL(ctx); err == nil {
		log.WithField("url", url).Info("Page at failure")
	}

	shot, err := r.driver.Screenshot(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to take screenshot")
		return nil
	}
	path, err := r.opts.Artifacts.SaveArtifact(r.opts.RunID, scenario, "failure.png", shot)
	if err != nil {
		log.WithError(err).Warn("Failed to save screenshot")
		return nil
	}
	return []string{path}
}

func classify(err error) entities.ResultStatus {
	switch {
	case entities.IsInfrastructure(err):
		return entities.StatusErrored
	case errors.Is(err, entities.ErrAborted):
		return entities.StatusAborted
	default:
		return entities.StatusFailed
	}
}
