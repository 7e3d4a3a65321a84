package city

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/talgya/citybuilder/internal/world"
)

// Happiness bounds.
const (
	MinHappiness = 0
	MaxHappiness = 100
)

// Building is a placed instance. It is never modified after placement.
type Building struct {
	ID       string      `json:"id"`
	Kind     Kind        `json:"kind"`
	Coord    world.Coord `json:"coord"`
	CostPaid int         `json:"cost_paid"` // Price at time of purchase
}

// State is an immutable snapshot of the whole city. Transitions return a
// new State and leave the receiver untouched, so a holder of an old
// snapshot never observes a later one. The zero State is not usable; start
// from Initial.
type State struct {
	cfg *Config

	treasury   int
	population int
	happiness  int
	selected   Kind

	buildings []Building          // Insertion order
	index     map[world.Coord]int // Coord → position in buildings
}

// Initial returns the starting state for cfg. The config is copied, so later
// changes to the caller's catalog do not leak in.
func Initial(cfg Config) State {
	c := cfg.clone()
	return fresh(&c)
}

func fresh(cfg *Config) State {
	return State{
		cfg:       cfg,
		treasury:  cfg.InitialTreasury,
		happiness: cfg.InitialHappiness,
		selected:  KindNone,
		index:     map[world.Coord]int{},
	}
}

// Treasury returns the currency balance.
func (s State) Treasury() int { return s.treasury }

// Population returns the city population.
func (s State) Population() int { return s.population }

// Happiness returns the happiness score in [0, 100].
func (s State) Happiness() int { return s.happiness }

// Selected returns the armed tool, if any.
func (s State) Selected() (Kind, bool) {
	return s.selected, s.selected.Valid()
}

// Grid returns the grid the city occupies.
func (s State) Grid() world.Grid { return s.cfg.Grid() }

// Config returns a copy of the configuration the state was created with.
func (s State) Config() Config { return s.cfg.clone() }

// Spec returns the catalog entry for k.
func (s State) Spec(k Kind) (Spec, bool) {
	spec, ok := s.cfg.Catalog[k]
	return spec, ok
}

// Buildings returns the placed buildings in insertion order.
func (s State) Buildings() []Building {
	out := make([]Building, len(s.buildings))
	copy(out, s.buildings)
	return out
}

// BuildingAt returns the building occupying c, if any.
func (s State) BuildingAt(c world.Coord) (Building, bool) {
	i, ok := s.index[c]
	if !ok {
		return Building{}, false
	}
	return s.buildings[i], true
}

// SelectTool arms k, or disarms if k is already armed. KindNone and values
// outside the enumeration disarm.
func (s State) SelectTool(k Kind) State {
	next := s
	if !k.Valid() || k == s.selected {
		next.selected = KindNone
	} else {
		next.selected = k
	}
	return next
}

// Check reports why placing the armed tool at c would be rejected, or nil
// if it would succeed. Preconditions are tested in a fixed order and the
// first failure wins.
func (s State) Check(c world.Coord) error {
	if !s.selected.Valid() {
		return ErrNoToolSelected
	}
	g := s.cfg.Grid()
	if !g.InBounds(c) {
		return fmt.Errorf("%w: %v outside [%d, %d]", ErrOutOfBounds, c, g.Min(), g.Max())
	}
	spec := s.cfg.Catalog[s.selected]
	if s.treasury < spec.Cost {
		return fmt.Errorf("%w: %s costs %d, treasury is %d", ErrInsufficientFunds, s.selected, spec.Cost, s.treasury)
	}
	if b, ok := s.BuildingAt(c); ok {
		return fmt.Errorf("%w: %v holds %s", ErrCellOccupied, c, b.ID)
	}
	return nil
}

// Place builds the armed tool at c. newID is called once, only on success,
// and must return an identifier not used before in this session. On
// rejection the receiver is returned unchanged along with the reason.
func (s State) Place(c world.Coord, newID func(Kind) string) (State, error) {
	if err := s.Check(c); err != nil {
		return s, err
	}
	spec := s.cfg.Catalog[s.selected]
	b := Building{
		ID:       newID(s.selected),
		Kind:     s.selected,
		Coord:    c,
		CostPaid: spec.Cost,
	}

	next := s
	next.treasury -= spec.Cost
	next.population = addPopulation(s.population, spec.PopulationDelta)
	next.happiness = addHappiness(s.happiness, spec.HappinessDelta)

	next.buildings = make([]Building, len(s.buildings), len(s.buildings)+1)
	copy(next.buildings, s.buildings)
	next.buildings = append(next.buildings, b)

	next.index = make(map[world.Coord]int, len(s.index)+1)
	for k, v := range s.index {
		next.index[k] = v
	}
	next.index[c] = len(next.buildings) - 1

	return next, nil
}

// Reset returns the initial state for the same configuration.
func (s State) Reset() State {
	return fresh(s.cfg)
}

// Equal compares two states by value. Building order is not compared.
func (s State) Equal(o State) bool {
	if s.treasury != o.treasury || s.population != o.population ||
		s.happiness != o.happiness || s.selected != o.selected ||
		len(s.buildings) != len(o.buildings) {
		return false
	}
	for _, b := range s.buildings {
		ob, ok := o.BuildingAt(b.Coord)
		if !ok || ob != b {
			return false
		}
	}
	return true
}

// addHappiness raises happiness by a non-negative delta, saturating at
// MaxHappiness. Deltas above the range cannot overflow the sum.
func addHappiness(h, delta int) int {
	return clampHappiness(h + min(max(delta, 0), MaxHappiness))
}

// addPopulation saturates instead of wrapping. Validated catalogs never
// get near the limit.
func addPopulation(p, delta int) int {
	if delta > math.MaxInt-p {
		return math.MaxInt
	}
	return p + delta
}

func clampHappiness(v int) int {
	if v < MinHappiness {
		return MinHappiness
	}
	if v > MaxHappiness {
		return MaxHappiness
	}
	return v
}

type stateJSON struct {
	Treasury     int        `json:"treasury"`
	Population   int        `json:"population"`
	Happiness    int        `json:"happiness"`
	SelectedKind *Kind      `json:"selected_kind"`
	GridSize     int        `json:"grid_size"`
	Buildings    []Building `json:"buildings"`
	Stats        Stats      `json:"stats"`
}

// MarshalJSON renders the snapshot for presentation clients.
func (s State) MarshalJSON() ([]byte, error) {
	v := stateJSON{
		Treasury:   s.treasury,
		Population: s.population,
		Happiness:  s.happiness,
		GridSize:   s.cfg.GridSize,
		Buildings:  s.Buildings(),
		Stats:      s.Stats(),
	}
	if k, ok := s.Selected(); ok {
		v.SelectedKind = &k
	}
	return json.Marshal(v)
}
