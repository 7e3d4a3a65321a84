package city

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/talgya/citybuilder/internal/world"
)

// counterIDs mimics the engine's id scheme for tests that drive State directly.
func counterIDs() func(Kind) string {
	n := 0
	return func(k Kind) string {
		n++
		return fmt.Sprintf("%s-%d", k, n)
	}
}

func mustPlace(t *testing.T, s State, c world.Coord, ids func(Kind) string) State {
	t.Helper()
	next, err := s.Place(c, ids)
	if err != nil {
		t.Fatalf("Place(%v) error = %v", c, err)
	}
	return next
}

func TestInitial(t *testing.T) {
	s := Initial(DefaultConfig())
	if s.Treasury() != 10000 || s.Population() != 0 || s.Happiness() != 50 {
		t.Errorf("Initial = treasury %d, population %d, happiness %d; want 10000, 0, 50",
			s.Treasury(), s.Population(), s.Happiness())
	}
	if _, ok := s.Selected(); ok {
		t.Error("Initial has a tool selected")
	}
	if s.BuildingCount() != 0 {
		t.Errorf("Initial has %d buildings", s.BuildingCount())
	}
	if err := s.Verify(); err != nil {
		t.Errorf("Verify() = %v", err)
	}
}

func TestScenarioPlaceResidential(t *testing.T) {
	ids := counterIDs()
	s := Initial(DefaultConfig()).SelectTool(KindResidential)
	s = mustPlace(t, s, world.Coord{X: 0, Z: 0}, ids)

	if s.Treasury() != 9900 {
		t.Errorf("treasury = %d, want 9900", s.Treasury())
	}
	if s.Population() != 10 {
		t.Errorf("population = %d, want 10", s.Population())
	}
	b, ok := s.BuildingAt(world.Coord{})
	if !ok {
		t.Fatal("no building at (0,0)")
	}
	if b.Kind != KindResidential || b.CostPaid != 100 || b.ID != "residential-1" {
		t.Errorf("building = %+v", b)
	}
	if k, ok := s.Selected(); !ok || k != KindResidential {
		t.Errorf("selection changed to %v after placement", k)
	}
}

func TestScenarioCellOccupied(t *testing.T) {
	ids := counterIDs()
	s := Initial(DefaultConfig()).SelectTool(KindResidential)
	s = mustPlace(t, s, world.Coord{}, ids)

	next, err := s.Place(world.Coord{}, ids)
	if !errors.Is(err, ErrCellOccupied) {
		t.Fatalf("err = %v, want ErrCellOccupied", err)
	}
	if ReasonOf(err) != ReasonCellOccupied {
		t.Errorf("ReasonOf = %q", ReasonOf(err))
	}
	if !next.Equal(s) {
		t.Error("rejected placement changed the state")
	}
}

func TestScenarioInsufficientFunds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialTreasury = 40
	s := Initial(cfg).SelectTool(KindRoad)

	next, err := s.Place(world.Coord{X: 1, Z: 1}, counterIDs())
	if ReasonOf(err) != ReasonInsufficientFunds {
		t.Fatalf("reason = %q, want %q (err %v)", ReasonOf(err), ReasonInsufficientFunds, err)
	}
	if next.Treasury() != 40 {
		t.Errorf("treasury = %d, want 40", next.Treasury())
	}
}

func TestScenarioOutOfBounds(t *testing.T) {
	for _, k := range Kinds {
		s := Initial(DefaultConfig()).SelectTool(k)
		_, err := s.Place(world.Coord{X: 100, Z: 100}, counterIDs())
		if ReasonOf(err) != ReasonOutOfBounds {
			t.Errorf("%s: reason = %q, want %q", k, ReasonOf(err), ReasonOutOfBounds)
		}
	}
}

func TestScenarioHappinessSaturates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialHappiness = 96
	ids := counterIDs()
	s := Initial(cfg).SelectTool(KindCommercial)

	want := []int{98, 100, 100, 100, 100}
	for i, w := range want {
		s = mustPlace(t, s, world.Coord{X: i, Z: 0}, ids)
		if s.Happiness() != w {
			t.Errorf("after placement %d happiness = %d, want %d", i+1, s.Happiness(), w)
		}
	}
}

func TestPreconditionOrder(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialTreasury = 150
	ids := counterIDs()
	base := Initial(cfg).SelectTool(KindResidential)
	base = mustPlace(t, base, world.Coord{}, ids) // treasury now 50

	tests := []struct {
		name  string
		state State
		coord world.Coord
		want  Reason
	}{
		{"no tool beats bounds", base.SelectTool(KindResidential), world.Coord{X: 99}, ReasonNoToolSelected},
		{"bounds beats funds", base, world.Coord{X: 99}, ReasonOutOfBounds},
		{"funds beats occupancy", base, world.Coord{}, ReasonInsufficientFunds},
		{"occupancy", base.SelectTool(KindRoad), world.Coord{}, ReasonCellOccupied},
		{"success", base.SelectTool(KindRoad), world.Coord{X: 1}, ReasonNone},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ReasonOf(tc.state.Check(tc.coord)); got != tc.want {
				t.Errorf("Check(%v) reason = %q, want %q", tc.coord, got, tc.want)
			}
		})
	}
}

func TestRejectionIsIdempotent(t *testing.T) {
	s := Initial(DefaultConfig())
	first, err1 := s.Place(world.Coord{}, counterIDs())
	second, err2 := first.Place(world.Coord{}, counterIDs())
	if !errors.Is(err1, ErrNoToolSelected) || !errors.Is(err2, ErrNoToolSelected) {
		t.Fatalf("errors = %v, %v; want ErrNoToolSelected twice", err1, err2)
	}
	if !first.Equal(s) || !second.Equal(s) {
		t.Error("repeated rejection changed the state")
	}
}

func TestSelectToolToggle(t *testing.T) {
	s := Initial(DefaultConfig())
	for _, k := range Kinds {
		armed := s.SelectTool(k)
		if got, ok := armed.Selected(); !ok || got != k {
			t.Errorf("SelectTool(%s) selected %v", k, got)
		}
		if _, ok := armed.SelectTool(k).Selected(); ok {
			t.Errorf("SelectTool(%s) twice did not deselect", k)
		}
	}

	switched := s.SelectTool(KindRoad).SelectTool(KindIndustrial)
	if got, _ := switched.Selected(); got != KindIndustrial {
		t.Errorf("switching tools selected %v, want industrial", got)
	}
	if _, ok := s.SelectTool(KindRoad).SelectTool(KindNone).Selected(); ok {
		t.Error("SelectTool(KindNone) did not deselect")
	}
	if _, ok := s.SelectTool(Kind(42)).Selected(); ok {
		t.Error("out-of-range kind armed a tool")
	}
}

func TestResetRestoresInitial(t *testing.T) {
	cfg := DefaultConfig()
	ids := counterIDs()
	s := Initial(cfg).SelectTool(KindCommercial)
	for x := 0; x < 4; x++ {
		s = mustPlace(t, s, world.Coord{X: x}, ids)
	}
	r := s.Reset()
	if !r.Equal(Initial(cfg)) {
		t.Error("Reset() differs from Initial()")
	}
	if s.BuildingCount() != 4 {
		t.Error("Reset() mutated the previous snapshot")
	}
}

func TestSnapshotsAreIndependent(t *testing.T) {
	ids := counterIDs()
	s0 := Initial(DefaultConfig()).SelectTool(KindResidential)
	s1 := mustPlace(t, s0, world.Coord{X: 1}, ids)
	s2 := mustPlace(t, s1, world.Coord{X: 2}, ids)

	if s0.BuildingCount() != 0 || s1.BuildingCount() != 1 || s2.BuildingCount() != 2 {
		t.Errorf("counts = %d, %d, %d; want 0, 1, 2", s0.BuildingCount(), s1.BuildingCount(), s2.BuildingCount())
	}
	if _, ok := s1.BuildingAt(world.Coord{X: 2}); ok {
		t.Error("older snapshot sees a later building")
	}

	list := s2.Buildings()
	list[0].Kind = KindRoad
	if b, _ := s2.BuildingAt(world.Coord{X: 1}); b.Kind != KindResidential {
		t.Error("mutating Buildings() result leaked into the snapshot")
	}
}

func TestConfigIsCopied(t *testing.T) {
	cfg := DefaultConfig()
	s := Initial(cfg).SelectTool(KindRoad)
	cfg.Catalog[KindRoad] = Spec{Cost: 9999}
	if spec, _ := s.Spec(KindRoad); spec.Cost != 50 {
		t.Errorf("road cost = %d after caller mutation, want 50", spec.Cost)
	}
}

func TestRandomOperationsKeepInvariants(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialTreasury = 3000
	rng := rand.New(rand.NewSource(7))
	ids := counterIDs()
	s := Initial(cfg)

	for i := 0; i < 5000; i++ {
		switch op := rng.Intn(20); {
		case op < 4:
			s = s.SelectTool(Kind(rng.Intn(len(Kinds) + 1)))
		case op == 19 && rng.Intn(10) == 0:
			s = s.Reset()
		default:
			c := world.Coord{X: rng.Intn(26) - 13, Z: rng.Intn(26) - 13}
			next, err := s.Place(c, ids)
			if err != nil {
				if !IsRejection(err) {
					t.Fatalf("step %d: unexpected error %v", i, err)
				}
				if !next.Equal(s) {
					t.Fatalf("step %d: rejection changed state", i)
				}
			}
			s = next
		}
		if err := s.Verify(); err != nil {
			t.Fatalf("step %d: invariant violated: %v", i, err)
		}
	}
}
