package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"e2e_harness/domain/entities"
	"e2e_harness/domain/interfaces"
)

type fileStore struct {
	reportPath  string
	artifactDir string
}

// NewFileStore - creates report storage. An empty reportPath disables the
// JSON report; an empty artifactDir disables artifacts.
func NewFileStore(reportPath, artifactDir string) interfaces.ReportStore {
	return &fileStore{
		reportPath:  reportPath,
		artifactDir: artifactDir,
	}
}

// SaveReport - writes the run report as indented JSON
func (s *fileStore) SaveReport(report entities.SuiteReport) error {
	if s.reportPath == "" {
		return nil
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.reportPath), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	return os.WriteFile(s.reportPath, data, 0644)
}

// SaveArtifact - stores data under <artifact dir>/<run id>/<scenario>-<name>
func (s *fileStore) SaveArtifact(runID, scenario, name string, data []byte) (string, error) {
	if s.artifactDir == "" {
		return "", fmt.Errorf("no artifact directory configured")
	}
	dir := filepath.Join(s.artifactDir, safeName(runID))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create artifact directory: %w", err)
	}
	path := filepath.Join(dir, safeName(scenario)+"-"+safeName(name))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}

// LoadReport - reads a report written by SaveReport
func LoadReport(path string) (entities.SuiteReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return entities.SuiteReport{}, err
	}
	var report entities.SuiteReport
	if err := json.Unmarshal(data, &report); err != nil {
		return entities.SuiteReport{}, err
	}
	return report, nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func safeName(s string) string {
	s = unsafeChars.ReplaceAllString(s, "_")
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return s
}
