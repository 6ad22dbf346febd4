package simulation

import (
	"bytes"
	"embed"
	"fmt"
)

//go:embed scenarios/*.yaml
var scenarioFS embed.FS

// ExampleScenario returns the source of a bundled scenario.
func ExampleScenario(name string) ([]byte, error) {
	bz, err := scenarioFS.ReadFile("scenarios/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("unknown scenario %q: %w", name, err)
	}
	return bz, nil
}

// LoadExampleScenario parses a bundled scenario.
func LoadExampleScenario(name string) (*Scenario, error) {
	bz, err := ExampleScenario(name)
	if err != nil {
		return nil, err
	}
	return ParseScenario(bytes.NewReader(bz))
}
