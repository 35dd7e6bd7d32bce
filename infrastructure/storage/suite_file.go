package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"e2e_harness/domain/entities"
	"e2e_harness/domain/interfaces"

	"gopkg.in/yaml.v3"
)

type suiteFile struct{}

// NewSuiteFile - creates a loader for YAML scenario files
func NewSuiteFile() interfaces.SuiteSource {
	return suiteFile{}
}

// LoadSuite - reads and validates one YAML suite. A file without a name
// takes its base name.
func (suiteFile) LoadSuite(path string) (entities.Suite, error) {
	f, err := os.Open(path)
	if err != nil {
		return entities.Suite{}, fmt.Errorf("failed to open suite file: %w", err)
	}
	defer f.Close()

	suite, err := DecodeSuite(f)
	if err != nil {
		return entities.Suite{}, fmt.Errorf("%s: %w", path, err)
	}
	if suite.Name == "" {
		suite.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return suite, nil
}

// DecodeSuite - decodes a suite document, rejecting unknown fields
func DecodeSuite(r io.Reader) (entities.Suite, error) {
	var suite entities.Suite
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&suite); err != nil {
		if errors.Is(err, io.EOF) {
			return entities.Suite{}, fmt.Errorf("empty suite file")
		}
		return entities.Suite{}, fmt.Errorf("failed to parse suite: %w", err)
	}
	if len(suite.Scenarios) == 0 {
		return entities.Suite{}, fmt.Errorf("suite declares no scenarios")
	}
	if err := suite.Validate(); err != nil {
		return entities.Suite{}, err
	}
	return suite, nil
}

// MergeSuites - combines several suites into one run, keeping declaration order
func MergeSuites(name string, suites ...entities.Suite) (entities.Suite, error) {
	merged := entities.Suite{Name: name}
	for _, s := range suites {
		merged.Scenarios = append(merged.Scenarios, s.Scenarios...)
	}
	if len(suites) == 1 && name == "" {
		merged.Name = suites[0].Name
	}
	if err := merged.Validate(); err != nil {
		return entities.Suite{}, err
	}
	return merged, nil
}
