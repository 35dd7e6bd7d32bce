package interfaces

import "e2e_harness/domain/entities"

// SuiteSource loads scenario declarations
type SuiteSource interface {
	LoadSuite(path string) (entities.Suite, error)
}

// ReportStore persists run reports and failure artifacts
type ReportStore interface {
	SaveReport(report entities.SuiteReport) error
	SaveArtifact(runID, scenario, name string, data []byte) (string, error)
}

// Reporter presents results as they are produced
type Reporter interface {
	ScenarioFinished(result entities.ExecutionResult)
	SuiteFinished(report entities.SuiteReport)
}
