package scenario

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario files are recognized by suffix so results and expected
// artifacts can live next to them without being picked up.
var scenarioSuffixes = []string{".sim.json", ".sim.yaml", ".sim.yml"}

// Load reads and validates a scenario file, parsing JSON or YAML by
// extension.
func Load(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var sc Scenario
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &sc); err != nil {
			return nil, fmt.Errorf("parse scenario %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(raw, &sc); err != nil {
			return nil, fmt.Errorf("parse scenario %s: %w", path, err)
		}
	}

	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("validate scenario %s: %w", path, err)
	}
	return &sc, nil
}

// Collect gathers scenario file paths from an explicit file and/or a
// directory of *.sim.* files. Either argument may be empty.
func Collect(scenarioPath, dir string) ([]string, error) {
	targets := make([]string, 0)

	if scenarioPath != "" {
		abs, err := filepath.Abs(scenarioPath)
		if err != nil {
			return nil, err
		}
		targets = append(targets, abs)
	}

	if dir != "" {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("read scenario directory: %w", err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if isScenarioFile(entry.Name()) {
				targets = append(targets, filepath.Join(dir, entry.Name()))
			}
		}
	}

	return targets, nil
}

// Name derives the scenario name from its file path by stripping the
// scenario suffix.
func Name(path string) string {
	base := filepath.Base(path)
	for _, suffix := range scenarioSuffixes {
		if strings.HasSuffix(base, suffix) {
			return strings.TrimSuffix(base, suffix)
		}
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ExpectedPath is the location of the recorded expected artifact for a
// scenario file, next to the scenario itself.
func ExpectedPath(scenarioPath string) string {
	return filepath.Join(filepath.Dir(scenarioPath), Name(scenarioPath)+".expected.json")
}

func isScenarioFile(name string) bool {
	for _, suffix := range scenarioSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}
