package persistence

import (
	"testing"

	"github.com/talgya/citybuilder/internal/city"
	"github.com/talgya/citybuilder/internal/engine"
	"github.com/talgya/citybuilder/internal/world"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(MemoryPath)
	if err != nil {
		t.Fatalf("Open() = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func playSession(t *testing.T) *engine.Engine {
	t.Helper()
	e, err := engine.New(city.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	e.SelectTool(city.KindResidential)
	e.PlaceBuilding(world.Coord{X: 0, Z: 0})
	e.PlaceBuilding(world.Coord{X: 0, Z: 0}) // rejected
	e.SelectTool(city.KindRoad)
	e.PlaceBuilding(world.Coord{X: 1, Z: 0})
	e.PlaceBuilding(world.Coord{X: 2, Z: 0})
	return e
}

func TestSessionConfigRoundTrip(t *testing.T) {
	db := openTestDB(t)
	cfg := city.DefaultConfig()
	cfg.GridSize = 12
	if err := db.StartSession("s1", cfg); err != nil {
		t.Fatalf("StartSession() = %v", err)
	}
	got, err := db.SessionConfig("s1")
	if err != nil {
		t.Fatalf("SessionConfig() = %v", err)
	}
	if got.GridSize != 12 || got.Catalog[city.KindRoad].Cost != 50 {
		t.Errorf("config = %+v", got)
	}
	if err := db.StartSession("s1", cfg); err == nil {
		t.Error("duplicate session id accepted")
	}
	if _, err := db.SessionConfig("nope"); err == nil {
		t.Error("SessionConfig found an unknown session")
	}
}

func TestSaveAndReadEvents(t *testing.T) {
	db := openTestDB(t)
	if err := db.StartSession("s1", city.DefaultConfig()); err != nil {
		t.Fatal(err)
	}
	e := playSession(t)
	if err := db.SaveEvents("s1", e.Drain()); err != nil {
		t.Fatalf("SaveEvents() = %v", err)
	}

	entries, err := db.RecentEntries("s1", 100)
	if err != nil {
		t.Fatalf("RecentEntries() = %v", err)
	}
	if len(entries) != 6 {
		t.Fatalf("got %d entries, want 6", len(entries))
	}
	if entries[0].Type != string(engine.EventToolSelected) || entries[0].X != nil {
		t.Errorf("first entry = %+v", entries[0])
	}
	placed := entries[1]
	if placed.BuildingID != "residential-1" || placed.CostPaid != 100 || placed.Kind != "residential" {
		t.Errorf("placed entry = %+v", placed)
	}
	if placed.X == nil || *placed.X != 0 || placed.Z == nil || *placed.Z != 0 {
		t.Errorf("placed coords = %v, %v", placed.X, placed.Z)
	}
	if entries[2].Reason != string(city.ReasonCellOccupied) {
		t.Errorf("rejected entry = %+v", entries[2])
	}

	last2, err := db.RecentEntries("s1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(last2) != 2 || last2[0].Seq != 5 || last2[1].Seq != 6 {
		t.Errorf("RecentEntries(2) = %+v", last2)
	}

	if other, _ := db.RecentEntries("s2", 10); len(other) != 0 {
		t.Errorf("other session has %d entries", len(other))
	}
}

func TestSpendByKindSinceReset(t *testing.T) {
	db := openTestDB(t)
	if err := db.StartSession("s1", city.DefaultConfig()); err != nil {
		t.Fatal(err)
	}
	e := playSession(t)
	if err := db.SaveEvents("s1", e.Drain()); err != nil {
		t.Fatal(err)
	}

	spend, err := db.SpendByKind("s1")
	if err != nil {
		t.Fatalf("SpendByKind() = %v", err)
	}
	if spend["residential"] != 100 || spend["road"] != 100 {
		t.Errorf("spend = %v, want residential 100, road 100", spend)
	}

	e.Reset()
	e.SelectTool(city.KindIndustrial)
	e.PlaceBuilding(world.Coord{X: 5, Z: 5})
	if err := db.SaveEvents("s1", e.Drain()); err != nil {
		t.Fatal(err)
	}
	spend, err = db.SpendByKind("s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(spend) != 1 || spend["industrial"] != 300 {
		t.Errorf("spend after reset = %v, want only industrial 300", spend)
	}
}

func TestSaveEventsEmpty(t *testing.T) {
	db := openTestDB(t)
	if err := db.SaveEvents("s1", nil); err != nil {
		t.Errorf("SaveEvents(nil) = %v", err)
	}
}
