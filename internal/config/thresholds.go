package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Threshold is one warning/critical percentage pair.
type Threshold struct {
	Warning  float64 `yaml:"warning"`
	Critical float64 `yaml:"critical"`
}

// Thresholds is the alert threshold matrix: percentages at which cpu,
// memory, and per-mount disk usage escalate to Warning and Critical.
type Thresholds struct {
	CPU  Threshold `yaml:"cpu"`
	Mem  Threshold `yaml:"mem"`
	Disk Threshold `yaml:"disk"`
}

// DefaultThresholds returns the built-in threshold matrix.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CPU:  Threshold{Warning: 90, Critical: 99},
		Mem:  Threshold{Warning: 80, Critical: 95},
		Disk: Threshold{Warning: 75, Critical: 90},
	}
}

// LoadThresholds reads a threshold matrix from a YAML file. Omitted
// fields keep their defaults.
func LoadThresholds(path string) (Thresholds, error) {
	t := DefaultThresholds()
	data, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("parse %s: %w", path, err)
	}
	return t, nil
}

// Validate checks that each pair orders warning strictly below critical.
func (t Thresholds) Validate() error {
	for _, pair := range []struct {
		name string
		t    Threshold
	}{{"cpu", t.CPU}, {"mem", t.Mem}, {"disk", t.Disk}} {
		if pair.t.Warning <= 0 || pair.t.Critical > 100 || pair.t.Warning >= pair.t.Critical {
			return fmt.Errorf("%s thresholds must satisfy 0 < warning < critical <= 100, got %.1f/%.1f",
				pair.name, pair.t.Warning, pair.t.Critical)
		}
	}
	return nil
}
