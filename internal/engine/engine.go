// Package engine runs one city session. It owns the authoritative
// snapshot, issues building identifiers, and journals every operation.
// Operations run to completion without blocking; callers serialize them.
package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/talgya/citybuilder/internal/city"
	"github.com/talgya/citybuilder/internal/world"
)

// Engine holds the current city state and the only operations that change it.
// It is not safe for concurrent use.
type Engine struct {
	state   city.State
	ids     *IDSource
	journal *Journal
	now     func() time.Time
}

// New creates an engine for a validated configuration.
func New(cfg city.Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Engine{
		state:   city.Initial(cfg),
		ids:     NewIDSource(),
		journal: NewJournal(DefaultJournalSize),
		now:     time.Now,
	}, nil
}

// State returns the current snapshot.
func (e *Engine) State() city.State {
	return e.state
}

// SelectTool arms k, or disarms it if already armed.
func (e *Engine) SelectTool(k city.Kind) city.State {
	e.state = e.state.SelectTool(k)
	selected, _ := e.state.Selected()
	e.record(Event{Type: EventToolSelected, Kind: selected})
	slog.Debug("tool selected", "kind", selected)
	return e.state
}

// PlaceBuilding places the armed tool at c. A rejection returns the
// unchanged state and an error carrying the reason; it is not a fault.
func (e *Engine) PlaceBuilding(c world.Coord) (city.State, error) {
	kind, _ := e.state.Selected()
	next, err := e.state.Place(c, e.ids.Next)
	if err != nil {
		coord := c
		e.record(Event{Type: EventRejected, Kind: kind, Coord: &coord, Reason: city.ReasonOf(err)})
		slog.Debug("placement rejected", "kind", kind, "coord", c.String(), "reason", city.ReasonOf(err))
		return e.state, err
	}
	e.state = next

	b, _ := next.BuildingAt(c)
	e.record(Event{Type: EventPlaced, Kind: b.Kind, Coord: &b.Coord, BuildingID: b.ID, CostPaid: b.CostPaid})
	slog.Info("building placed",
		"id", b.ID,
		"coord", c.String(),
		"cost", b.CostPaid,
		"treasury", next.Treasury(),
		"population", next.Population(),
		"happiness", next.Happiness(),
	)
	return e.state, nil
}

// Check previews a placement at c without changing anything.
func (e *Engine) Check(c world.Coord) error {
	return e.state.Check(c)
}

// Reset discards the city and starts over with the initial configuration.
// Identifiers keep counting so none is ever reused within the session.
func (e *Engine) Reset() city.State {
	cleared := e.state.BuildingCount()
	e.state = e.state.Reset()
	e.record(Event{Type: EventReset})
	slog.Info("city reset", "buildings_cleared", cleared)
	return e.state
}

// Events returns up to limit of the most recent journal entries, oldest first.
func (e *Engine) Events(limit int) []Event {
	return e.journal.Recent(limit)
}

// Drain hands over journal entries not yet drained.
func (e *Engine) Drain() []Event {
	return e.journal.Drain()
}

func (e *Engine) record(ev Event) {
	ev.Treasury = e.state.Treasury()
	ev.Population = e.state.Population()
	ev.Happiness = e.state.Happiness()
	ev.Time = e.now()
	e.journal.Append(ev)
}
