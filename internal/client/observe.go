// Package client talks to a citysim server over its HTTP API.
// Types here mirror the server's JSON so callers need not import the
// engine packages.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Building mirrors an entry of the state's building list.
type Building struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	Coord    Coord  `json:"coord"`
	CostPaid int    `json:"cost_paid"`
}

// Coord is a grid cell.
type Coord struct {
	X int `json:"x"`
	Z int `json:"z"`
}

// Stats mirrors the derived figures in the state.
type Stats struct {
	Buildings int            `json:"buildings"`
	ByKind    map[string]int `json:"by_kind"`
	LowFunds  bool           `json:"low_funds"`
}

// StateView mirrors GET /api/v1/state.
type StateView struct {
	Treasury     int        `json:"treasury"`
	Population   int        `json:"population"`
	Happiness    int        `json:"happiness"`
	SelectedKind *string    `json:"selected_kind"`
	GridSize     int        `json:"grid_size"`
	Buildings    []Building `json:"buildings"`
	Stats        Stats      `json:"stats"`
}

// Selected returns the armed kind, or "" when no tool is selected.
func (v StateView) Selected() string {
	if v.SelectedKind == nil {
		return ""
	}
	return *v.SelectedKind
}

// Status mirrors GET /api/v1/status.
type Status struct {
	Name       string `json:"name"`
	Session    string `json:"session"`
	Uptime     string `json:"uptime"`
	GridSize   int    `json:"grid_size"`
	Treasury   int    `json:"treasury"`
	Population int    `json:"population"`
	Happiness  int    `json:"happiness"`
	Buildings  int    `json:"buildings"`
	LowFunds   bool   `json:"low_funds"`
	Ledger     bool   `json:"ledger"`
	Sockets    int    `json:"sockets"`
}

// CatalogEntry mirrors items from GET /api/v1/catalog.
type CatalogEntry struct {
	Kind       string `json:"kind"`
	Cost       int    `json:"cost"`
	Population int    `json:"population_delta"`
	Happiness  int    `json:"happiness_delta"`
	Affordable bool   `json:"affordable"`
	Selected   bool   `json:"selected"`
}

// Preview mirrors GET /api/v1/preview.
type Preview struct {
	Coord  Coord   `json:"coord"`
	Kind   *string `json:"kind"`
	OK     bool    `json:"ok"`
	Reason string  `json:"reason"`
}

// LedgerEntry mirrors one row of GET /api/v1/ledger.
type LedgerEntry struct {
	Seq        uint64    `json:"seq"`
	Type       string    `json:"type"`
	Kind       string    `json:"kind"`
	X          *int      `json:"x"`
	Z          *int      `json:"z"`
	BuildingID string    `json:"building_id"`
	CostPaid   int       `json:"cost_paid"`
	Reason     string    `json:"reason"`
	Treasury   int       `json:"treasury"`
	CreatedAt  time.Time `json:"created_at"`
}

// Ledger mirrors GET /api/v1/ledger.
type Ledger struct {
	Session     string         `json:"session"`
	Entries     []LedgerEntry  `json:"entries"`
	SpendByKind map[string]int `json:"spend_by_kind"`
}

// Client reads and changes a city through the API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New creates a Client targeting the given API base URL.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Status fetches the server status.
func (c *Client) Status() (*Status, error) {
	var st Status
	if err := c.fetchJSON("/api/v1/status", &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// State fetches the current city snapshot.
func (c *Client) State() (*StateView, error) {
	var v StateView
	if err := c.fetchJSON("/api/v1/state", &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Catalog fetches the toolbar entries in display order.
func (c *Client) Catalog() ([]CatalogEntry, error) {
	var entries []CatalogEntry
	if err := c.fetchJSON("/api/v1/catalog", &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Preview asks whether the selected tool could be placed at (x, z).
func (c *Client) Preview(x, z int) (*Preview, error) {
	q := url.Values{}
	q.Set("x", fmt.Sprint(x))
	q.Set("z", fmt.Sprint(z))
	var p Preview
	if err := c.fetchJSON("/api/v1/preview?"+q.Encode(), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Ledger fetches the newest audit entries of the session.
func (c *Client) Ledger(limit int) (*Ledger, error) {
	var l Ledger
	if err := c.fetchJSON(fmt.Sprintf("/api/v1/ledger?limit=%d", limit), &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// WaitForAPI polls the status endpoint with exponential backoff until it
// responds or ctx is done.
func (c *Client) WaitForAPI(ctx context.Context) error {
	backoff := 500 * time.Millisecond
	maxBackoff := 10 * time.Second

	for {
		if _, err := c.Status(); err == nil {
			slog.Info("citysim API is ready", "url", c.BaseURL)
			return nil
		}
		slog.Info("citysim not ready, retrying...", "backoff", backoff)
		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for %s: %w", c.BaseURL, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// fetchJSON GETs a path and decodes the JSON response into target.
func (c *Client) fetchJSON(path string, target any) error {
	resp, err := c.HTTPClient.Get(c.BaseURL + path)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s returned %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
