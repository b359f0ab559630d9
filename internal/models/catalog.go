package models

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TestDefinition describes one known assessment.
type TestDefinition struct {
	ID            string `yaml:"id"`
	Title         string `yaml:"title"`
	QuestionCount int    `yaml:"question_count"`
	PassingScore  int    `yaml:"passing_score,omitempty"`
}

// TestCatalog holds all assessments this deployment knows about. Sessions
// with unlisted test types are still stored; the catalog only drives
// validation warnings and display titles.
type TestCatalog struct {
	Tests []TestDefinition `yaml:"tests"`
}

// LoadCatalog reads and parses the tests.yaml file.
func LoadCatalog(path string) (*TestCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read test catalog: %w", err)
	}

	var catalog TestCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to unmarshal test catalog YAML: %w", err)
	}

	return &catalog, nil
}

// Find returns the definition for a test type, or nil if unlisted.
func (c *TestCatalog) Find(id string) *TestDefinition {
	for i := range c.Tests {
		if c.Tests[i].ID == id {
			return &c.Tests[i]
		}
	}
	return nil
}

// Title returns the display title for a test type, falling back to the id.
func (c *TestCatalog) Title(id string) string {
	if def := c.Find(id); def != nil && def.Title != "" {
		return def.Title
	}
	return id
}
