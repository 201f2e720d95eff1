package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario describes one backtest batch, loaded from a YAML file.
type Scenario struct {
	Name     string `yaml:"name"`
	Symbol   string `yaml:"symbol"`
	Category string `yaml:"category"`
	Interval string `yaml:"interval"`

	Start time.Time `yaml:"start"`
	End   time.Time `yaml:"end"`

	Trials  int   `yaml:"trials"`
	Workers int   `yaml:"workers"`
	Seed    int64 `yaml:"seed"`

	ContextDays int `yaml:"context_days"`
	HorizonDays int `yaml:"horizon_days"`

	// Provider is "bybit" or "synthetic".
	Provider    string `yaml:"provider"`
	CacheKlines bool   `yaml:"cache_klines"`
}

// LoadScenario reads and validates a scenario file, filling defaults.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	sc := &Scenario{
		Category:    "linear",
		Interval:    "5",
		Workers:     4,
		ContextDays: 1,
		HorizonDays: 4,
		Provider:    "bybit",
	}
	if err := yaml.Unmarshal(data, sc); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}

	if sc.Name == "" {
		return nil, fmt.Errorf("scenario %s: name is required", path)
	}
	if sc.Symbol == "" {
		return nil, fmt.Errorf("scenario %s: symbol is required", path)
	}
	if sc.Trials <= 0 {
		return nil, fmt.Errorf("scenario %s: trials must be positive", path)
	}
	if !sc.End.After(sc.Start) {
		return nil, fmt.Errorf("scenario %s: end must follow start", path)
	}
	switch sc.Provider {
	case "bybit", "synthetic":
	default:
		return nil, fmt.Errorf("scenario %s: unknown provider %q", path, sc.Provider)
	}
	return sc, nil
}
