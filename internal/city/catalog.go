package city

import (
	"errors"
	"fmt"
)

// Spec holds the static properties of one building kind.
type Spec struct {
	Cost            int `json:"cost"`
	PopulationDelta int `json:"population_delta"`
	HappinessDelta  int `json:"happiness_delta"`
}

// MaxPopulationDelta bounds the residents a single building may add.
const MaxPopulationDelta = 1_000_000

// Catalog maps each kind to its properties.
type Catalog map[Kind]Spec

// DefaultCatalog returns the standard building prices and effects.
func DefaultCatalog() Catalog {
	return Catalog{
		KindResidential: {Cost: 100, PopulationDelta: 10},
		KindCommercial:  {Cost: 200, HappinessDelta: 2},
		KindIndustrial:  {Cost: 300},
		KindRoad:        {Cost: 50},
	}
}

// Validate checks that every kind is present with a positive cost and
// bounded non-negative deltas, and that nothing else is listed.
func (c Catalog) Validate() error {
	var errs []error
	for _, k := range Kinds {
		spec, ok := c[k]
		if !ok {
			errs = append(errs, fmt.Errorf("catalog: missing %s", k))
			continue
		}
		if spec.Cost <= 0 {
			errs = append(errs, fmt.Errorf("catalog: %s cost must be positive, got %d", k, spec.Cost))
		}
		if spec.PopulationDelta < 0 || spec.PopulationDelta > MaxPopulationDelta {
			errs = append(errs, fmt.Errorf("catalog: %s population delta must be in [0, %d], got %d", k, MaxPopulationDelta, spec.PopulationDelta))
		}
		if spec.HappinessDelta < 0 || spec.HappinessDelta > MaxHappiness {
			errs = append(errs, fmt.Errorf("catalog: %s happiness delta must be in [0, %d], got %d", k, MaxHappiness, spec.HappinessDelta))
		}
	}
	for k := range c {
		if !k.Valid() {
			errs = append(errs, fmt.Errorf("catalog: unexpected entry %s", k))
		}
	}
	return errors.Join(errs...)
}

// Clone returns an independent copy of the catalog.
func (c Catalog) Clone() Catalog {
	out := make(Catalog, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
