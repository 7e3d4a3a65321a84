package main

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/talgya/citybuilder/internal/api"
	"github.com/talgya/citybuilder/internal/city"
	"github.com/talgya/citybuilder/internal/client"
	"github.com/talgya/citybuilder/internal/engine"
	"github.com/talgya/citybuilder/internal/persistence"
)

func newTestClient(t *testing.T) *client.Client {
	t.Helper()
	eng, err := engine.New(city.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	db, err := persistence.Open(persistence.MemoryPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.StartSession("sh", city.DefaultConfig()); err != nil {
		t.Fatal(err)
	}
	s := &api.Server{Engine: eng, DB: db, SessionID: "sh"}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.Shutdown(context.Background())
		ts.Close()
		db.Close()
	})
	return client.New(ts.URL)
}

func TestRunScript(t *testing.T) {
	c := newTestClient(t)
	script := strings.Join([]string{
		"place 0 0",
		"tool residential",
		"place 0 0",
		"place 0 0",
		"preview 1 0",
		"show",
		"catalog",
		"ledger 5",
		"bogus",
		"place a b",
		"quit",
		"reset",
	}, "\n")

	var out bytes.Buffer
	if err := run(strings.NewReader(script), &out, c, false); err != nil {
		t.Fatalf("run() = %v", err)
	}
	got := out.String()

	for _, want := range []string{
		"rejected: no-tool-selected",
		"tool: residential",
		"placed residential-1 at (0,0) for $100, treasury $9,900",
		"rejected: cell-occupied",
		"(1,0) is free",
		"Money:      $9,900",
		"* R residential",
		"spent on residential: $100",
		`unknown command "bogus"`,
		"x and z must be integers",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "city reset") {
		t.Error("commands after quit were executed")
	}
	if strings.Contains(got, "> ") {
		t.Error("prompt written in non-interactive mode")
	}
}

func TestLedgerSpendOrder(t *testing.T) {
	c := newTestClient(t)
	setup := "tool road\nplace 1 1\ntool industrial\nplace 2 2\ntool commercial\nplace 3 3\ntool residential\nplace 4 4\n"
	if err := run(strings.NewReader(setup), io.Discard, c, false); err != nil {
		t.Fatal(err)
	}

	want := []string{
		"spent on residential: $100",
		"spent on commercial: $200",
		"spent on industrial: $300",
		"spent on road: $50",
	}
	for i := 0; i < 5; i++ {
		var out bytes.Buffer
		if err := run(strings.NewReader("ledger 20\n"), &out, c, false); err != nil {
			t.Fatal(err)
		}
		var spent []string
		for _, line := range strings.Split(out.String(), "\n") {
			if strings.HasPrefix(line, "spent on ") {
				spent = append(spent, line)
			}
		}
		if strings.Join(spent, "|") != strings.Join(want, "|") {
			t.Errorf("run %d spend lines = %q, want %q", i, spent, want)
		}
	}
}

func TestRunInteractivePrompt(t *testing.T) {
	c := newTestClient(t)
	var out bytes.Buffer
	if err := run(strings.NewReader("tool road\ntool road\n"), &out, c, true); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "> tool: road") || !strings.Contains(out.String(), "tool: none") {
		t.Errorf("output:\n%s", out.String())
	}
}
