package city

import (
	"errors"
	"fmt"
)

// Verify checks the state invariants and reports every violation.
func (s State) Verify() error {
	var errs []error
	if s.treasury < 0 {
		errs = append(errs, fmt.Errorf("treasury %d is negative", s.treasury))
	}
	if s.happiness < MinHappiness || s.happiness > MaxHappiness {
		errs = append(errs, fmt.Errorf("happiness %d outside [%d, %d]", s.happiness, MinHappiness, MaxHappiness))
	}
	if len(s.index) != len(s.buildings) {
		errs = append(errs, fmt.Errorf("index holds %d cells for %d buildings", len(s.index), len(s.buildings)))
	}

	g := s.cfg.Grid()
	pop := 0
	ids := make(map[string]bool, len(s.buildings))
	for i, b := range s.buildings {
		if !b.Kind.Valid() {
			errs = append(errs, fmt.Errorf("building %s has invalid kind %d", b.ID, uint8(b.Kind)))
		}
		if !g.InBounds(b.Coord) {
			errs = append(errs, fmt.Errorf("building %s at %v is out of bounds", b.ID, b.Coord))
		}
		if j, ok := s.index[b.Coord]; !ok || j != i {
			errs = append(errs, fmt.Errorf("building %s at %v shares or misses its cell", b.ID, b.Coord))
		}
		if ids[b.ID] {
			errs = append(errs, fmt.Errorf("duplicate building id %s", b.ID))
		}
		ids[b.ID] = true
		pop += s.cfg.Catalog[b.Kind].PopulationDelta
	}
	if pop != s.population {
		errs = append(errs, fmt.Errorf("population %d does not match buildings (%d)", s.population, pop))
	}
	return errors.Join(errs...)
}
