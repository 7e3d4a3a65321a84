package city

// Stats holds the derived figures shown in the statistics panel.
type Stats struct {
	Buildings int          `json:"buildings"`
	ByKind    map[Kind]int `json:"by_kind"`
	LowFunds  bool         `json:"low_funds"`
}

// BuildingCount returns the number of placed buildings.
func (s State) BuildingCount() int {
	return len(s.buildings)
}

// CountByKind returns how many buildings of kind k exist.
func (s State) CountByKind(k Kind) int {
	n := 0
	for _, b := range s.buildings {
		if b.Kind == k {
			n++
		}
	}
	return n
}

// CanAfford reports whether the treasury covers the cost of k.
func (s State) CanAfford(k Kind) bool {
	spec, ok := s.cfg.Catalog[k]
	return ok && s.treasury >= spec.Cost
}

// LowFunds reports whether the treasury has dropped below the warning
// threshold after at least one building was placed. An empty city never
// warns, however poor.
func (s State) LowFunds() bool {
	return s.treasury < s.cfg.LowFundsThreshold && len(s.buildings) > 0
}

// Stats collects the derived queries in one value.
func (s State) Stats() Stats {
	byKind := make(map[Kind]int, len(Kinds))
	for _, k := range Kinds {
		byKind[k] = 0
	}
	for _, b := range s.buildings {
		byKind[b.Kind]++
	}
	return Stats{
		Buildings: len(s.buildings),
		ByKind:    byKind,
		LowFunds:  s.LowFunds(),
	}
}
