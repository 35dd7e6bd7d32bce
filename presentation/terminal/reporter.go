package terminal

import (
	"fmt"
	"io"
	"strings"
	"time"

	"e2e_harness/domain/entities"
	"e2e_harness/domain/interfaces"
)

// TextReporter prints one line per scenario and a summary
type TextReporter struct {
	out io.Writer
}

// NewTextReporter - creates a reporter writing to out
func NewTextReporter(out io.Writer) *TextReporter {
	return &TextReporter{out: out}
}

// ScenarioFinished - prints the outcome of one scenario
func (r *TextReporter) ScenarioFinished(res entities.ExecutionResult) {
	fmt.Fprintln(r.out, formatResult(res))
}

// SuiteFinished - prints skipped scenarios, warnings and the totals
func (r *TextReporter) SuiteFinished(report entities.SuiteReport) {
	for _, res := range report.Results {
		if res.Status == entities.StatusSkipped {
			fmt.Fprintln(r.out, formatResult(res))
		}
	}
	for _, w := range report.Warnings {
		fmt.Fprintf(r.out, "warning: %s\n", w)
	}
	fmt.Fprintln(r.out, summary(report))
}

// PrintReport - prints a whole report, as read back from a report file
func (r *TextReporter) PrintReport(report entities.SuiteReport) {
	fmt.Fprintf(r.out, "Suite %q, run %s, started %s\n", report.Suite, report.RunID, report.StartedAt.Format(time.RFC3339))
	for _, res := range report.Results {
		if res.Status != entities.StatusSkipped {
			r.ScenarioFinished(res)
		}
	}
	r.SuiteFinished(report)
}

func formatResult(res entities.ExecutionResult) string {
	label := map[entities.ResultStatus]string{
		entities.StatusPassed:  "PASS ",
		entities.StatusFailed:  "FAIL ",
		entities.StatusAborted: "ABORT",
		entities.StatusErrored: "ERROR",
		entities.StatusSkipped: "SKIP ",
	}[res.Status]

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", label, res.Scenario)
	switch res.Status {
	case entities.StatusPassed:
		fmt.Fprintf(&b, " (%d steps, %s)", res.StepsExecuted, res.Duration.Round(time.Millisecond))
	case entities.StatusSkipped:
		fmt.Fprintf(&b, ": %s", res.Reason)
	default:
		if res.StepIndex >= 0 {
			fmt.Fprintf(&b, " at step %d", res.StepIndex)
			if res.Step != "" {
				fmt.Fprintf(&b, " (%s)", res.Step)
			}
		}
		fmt.Fprintf(&b, ": %s", res.Reason)
		for _, a := range res.Artifacts {
			fmt.Fprintf(&b, "\n      artifact: %s", a)
		}
	}
	return b.String()
}

func summary(report entities.SuiteReport) string {
	return fmt.Sprintf("%d passed, %d failed, %d aborted, %d errored, %d skipped (run %s)",
		report.Count(entities.StatusPassed),
		report.Count(entities.StatusFailed),
		report.Count(entities.StatusAborted),
		report.Count(entities.StatusErrored),
		report.Count(entities.StatusSkipped),
		report.RunID,
	)
}

var _ interfaces.Reporter = (*TextReporter)(nil)
