package city

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/talgya/citybuilder/internal/world"
)

// Config holds the parameters a city is created with.
type Config struct {
	GridSize          int     `json:"grid_size"`
	InitialTreasury   int     `json:"initial_treasury"`
	InitialHappiness  int     `json:"initial_happiness"`
	LowFundsThreshold int     `json:"low_funds_threshold"`
	Catalog           Catalog `json:"catalog"`
}

// DefaultConfig returns the standard starting configuration.
func DefaultConfig() Config {
	return Config{
		GridSize:          world.DefaultSize,
		InitialTreasury:   10000,
		InitialHappiness:  50,
		LowFundsThreshold: 100,
		Catalog:           DefaultCatalog(),
	}
}

// Grid returns the grid described by the config.
func (c Config) Grid() world.Grid {
	return world.NewGrid(c.GridSize)
}

// Validate reports every problem with the config at once.
func (c Config) Validate() error {
	var errs []error
	if c.GridSize <= 0 {
		errs = append(errs, fmt.Errorf("grid size must be positive, got %d", c.GridSize))
	}
	if c.InitialTreasury < 0 {
		errs = append(errs, fmt.Errorf("initial treasury must be non-negative, got %d", c.InitialTreasury))
	}
	if c.InitialHappiness < MinHappiness || c.InitialHappiness > MaxHappiness {
		errs = append(errs, fmt.Errorf("initial happiness must be in [%d, %d], got %d", MinHappiness, MaxHappiness, c.InitialHappiness))
	}
	if c.LowFundsThreshold < 0 {
		errs = append(errs, fmt.Errorf("low funds threshold must be non-negative, got %d", c.LowFundsThreshold))
	}
	if err := c.Catalog.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c Config) clone() Config {
	c.Catalog = c.Catalog.Clone()
	return c
}

// LoadConfig reads a JSON file and overlays it onto DefaultConfig.
// Catalog entries in the file replace the default entry for that kind as a
// whole, so each listed kind must carry all three values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}
