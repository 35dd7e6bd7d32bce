package entities

import "time"

// ResultStatus represents the outcome of one scenario run
type ResultStatus string

const (
	StatusPassed  ResultStatus = "passed"
	StatusFailed  ResultStatus = "failed"
	StatusAborted ResultStatus = "aborted"
	// StatusErrored means the infrastructure broke, not that the page misbehaved
	StatusErrored ResultStatus = "errored"
	StatusSkipped ResultStatus = "skipped"
)

// ExecutionResult is the outcome of running a scenario. StepIndex is only
// meaningful when the status is failed, aborted or errored; -1 otherwise.
type ExecutionResult struct {
	Scenario      string        `json:"scenario"`
	Status        ResultStatus  `json:"status"`
	StepIndex     int           `json:"step_index"`
	Step          string        `json:"step,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	Err           error         `json:"-"`
	StepsExecuted int           `json:"steps_executed"`
	Duration      time.Duration `json:"duration"`
	Artifacts     []string      `json:"artifacts,omitempty"`
}

// Passed - reports whether the scenario passed
func (r ExecutionResult) Passed() bool {
	return r.Status == StatusPassed
}

// SuiteReport collects the results of one run
type SuiteReport struct {
	RunID      string            `json:"run_id"`
	Suite      string            `json:"suite"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Results    []ExecutionResult `json:"results"`
	// Suppressed lists scenarios not executed because exclusive focus was honored
	Suppressed []string          `json:"suppressed,omitempty"`
	Warnings   []string          `json:"warnings,omitempty"`
}

// Count - counts results with the given status
func (r SuiteReport) Count(status ResultStatus) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == status {
			n++
		}
	}
	return n
}

// ExitCode returns 2 on infrastructure errors, 1 when any scenario failed or
// was aborted, 0 otherwise.
func (r SuiteReport) ExitCode() int {
	if r.Count(StatusErrored) > 0 {
		return 2
	}
	if r.Count(StatusFailed) > 0 || r.Count(StatusAborted) > 0 {
		return 1
	}
	return 0
}
