package engine

import (
	"log/slog"
	"time"

	"github.com/talgya/citybuilder/internal/city"
	"github.com/talgya/citybuilder/internal/world"
)

// DefaultJournalSize bounds both the recent history and the undrained queue.
const DefaultJournalSize = 1000

// EventType names an engine operation outcome.
type EventType string

const (
	EventToolSelected EventType = "tool_selected"
	EventPlaced       EventType = "building_placed"
	EventRejected     EventType = "placement_rejected"
	EventReset        EventType = "reset"
)

// Event records one engine operation and the resulting resources.
type Event struct {
	Seq        uint64       `json:"seq"`
	Type       EventType    `json:"type"`
	Kind       city.Kind    `json:"kind"`
	Coord      *world.Coord `json:"coord,omitempty"`
	BuildingID string       `json:"building_id,omitempty"`
	CostPaid   int          `json:"cost_paid,omitempty"`
	Reason     city.Reason  `json:"reason,omitempty"`
	Treasury   int          `json:"treasury"`
	Population int          `json:"population"`
	Happiness  int          `json:"happiness"`
	Time       time.Time    `json:"time"`
}

// Journal keeps the most recent events plus a queue of events not yet
// handed to storage. Both are trimmed to the same bound.
type Journal struct {
	max     int
	seq     uint64
	recent  []Event
	pending []Event
	dropped int
}

// NewJournal creates a journal holding at most max events per list.
func NewJournal(max int) *Journal {
	if max <= 0 {
		max = DefaultJournalSize
	}
	return &Journal{max: max}
}

// Append assigns the next sequence number and stores the event.
func (j *Journal) Append(ev Event) {
	j.seq++
	ev.Seq = j.seq

	j.recent = append(j.recent, ev)
	if len(j.recent) > j.max {
		j.recent = j.recent[len(j.recent)-j.max:]
	}

	j.pending = append(j.pending, ev)
	if len(j.pending) > j.max {
		over := len(j.pending) - j.max
		j.dropped += over
		j.pending = j.pending[over:]
		slog.Warn("journal queue full, dropping oldest undrained events", "dropped_total", j.dropped)
	}
}

// Recent returns up to limit of the newest events, oldest first.
// A non-positive limit returns everything retained.
func (j *Journal) Recent(limit int) []Event {
	start := 0
	if limit > 0 && len(j.recent) > limit {
		start = len(j.recent) - limit
	}
	out := make([]Event, len(j.recent)-start)
	copy(out, j.recent[start:])
	return out
}

// Drain returns and clears the undrained queue.
func (j *Journal) Drain() []Event {
	out := j.pending
	j.pending = nil
	return out
}

// Dropped returns how many undrained events were discarded for space.
func (j *Journal) Dropped() int {
	return j.dropped
}
