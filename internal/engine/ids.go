package engine

import (
	"fmt"
	"sync/atomic"

	"github.com/talgya/citybuilder/internal/city"
)

// IDSource issues building identifiers of the form "<kind>-<n>". The counter
// only moves forward, so two placements in the same instant still differ.
type IDSource struct {
	next atomic.Uint64
}

// NewIDSource creates a source whose first identifier ends in 1.
func NewIDSource() *IDSource {
	return &IDSource{}
}

// Next returns a fresh identifier for a building of kind k.
func (s *IDSource) Next(k city.Kind) string {
	return fmt.Sprintf("%s-%d", k, s.next.Add(1))
}
