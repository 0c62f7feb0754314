package tools

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SpecFixture is an externally authored tool schema, loaded from a YAML
// file rather than hand-written as Go structs — useful for operators who
// want to advertise a tool's schema without recompiling the binary (the
// fixture still has to be backed by a registered Tool implementation to be
// invocable; this only supplies the model-facing description).
type SpecFixture struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Parameters  map[string]any `yaml:"parameters"`
}

// LoadFixtures reads a YAML file containing a list of tool spec fixtures.
func LoadFixtures(path string) ([]SpecFixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tools: read fixture file: %w", err)
	}

	var fixtures []SpecFixture
	if err := yaml.Unmarshal(data, &fixtures); err != nil {
		return nil, fmt.Errorf("tools: parse fixture file: %w", err)
	}
	return fixtures, nil
}
