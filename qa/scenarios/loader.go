package scenarios

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/ecodispatch/config"
	"github.com/kilianp07/ecodispatch/core/model"
)

// Expected is what a scenario run must produce. Columns are compared step by
// step against the dispatch table.
type Expected struct {
	Status    string               `yaml:"status"`
	Objective *float64             `yaml:"objective,omitempty"`
	Columns   map[string][]float64 `yaml:"columns,omitempty"`
}

// Scenario pairs a system file with its expected outcome.
type Scenario struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	System      string   `yaml:"system"`
	Expected    Expected `yaml:"expected"`

	dir string
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	sc.dir = filepath.Dir(path)
	return &sc, nil
}

// LoadSystem reads the system file, relative to the scenario file.
func (sc *Scenario) LoadSystem() (*model.System, error) {
	path := sc.System
	if !filepath.IsAbs(path) {
		path = filepath.Join(sc.dir, path)
	}
	return config.LoadScenario(path)
}
