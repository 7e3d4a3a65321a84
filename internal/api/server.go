// Package api serves a city session over HTTP and WebSocket.
// GET endpoints are read-only observation; POST endpoints and socket
// messages change the city and are rate limited per IP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/talgya/citybuilder/internal/city"
	"github.com/talgya/citybuilder/internal/engine"
	"github.com/talgya/citybuilder/internal/persistence"
	"github.com/talgya/citybuilder/internal/world"
)

// DefaultRateLimit is the default number of mutations allowed per IP per minute.
const DefaultRateLimit = 600

// Server serves one engine. All engine calls go through mu.
type Server struct {
	Engine    *engine.Engine
	DB        *persistence.DB // Audit ledger. Nil disables /ledger.
	SessionID string
	Port      int
	RateLimit int // Mutations per IP per minute. Zero or less disables limiting.

	mu       sync.Mutex
	initOnce sync.Once
	limiter  *RateLimiter
	origins  map[string]bool
	started  time.Time
	sockets  *socketSet
	httpSrv  *http.Server
}

// Result is the outcome of a change to the city, returned by POST
// endpoints and in socket replies.
type Result struct {
	OK       bool           `json:"ok"`
	Reason   city.Reason    `json:"reason,omitempty"`
	Error    string         `json:"error,omitempty"`
	Building *city.Building `json:"building,omitempty"`
	State    city.State     `json:"state"`
}

// CatalogEntry is one toolbar item.
type CatalogEntry struct {
	Kind       city.Kind `json:"kind"`
	Cost       int       `json:"cost"`
	Population int       `json:"population_delta"`
	Happiness  int       `json:"happiness_delta"`
	Affordable bool      `json:"affordable"`
	Selected   bool      `json:"selected"`
}

// Preview reports whether the selected tool could be placed at a cell.
type Preview struct {
	Coord  world.Coord `json:"coord"`
	Kind   *city.Kind  `json:"kind"`
	OK     bool        `json:"ok"`
	Reason city.Reason `json:"reason,omitempty"`
}

func (s *Server) init() {
	s.initOnce.Do(func() {
		if s.RateLimit > 0 {
			s.limiter = NewRateLimiter(s.RateLimit, time.Minute)
		}
		s.origins = allowedOrigins()
		s.started = time.Now()
		s.sockets = newSocketSet()
	})
}

// Handler returns the HTTP handler with all routes and middleware.
func (s *Server) Handler() http.Handler {
	s.init()
	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", only(http.MethodGet, s.handleStatus))
	mux.HandleFunc("/api/v1/state", only(http.MethodGet, s.handleState))
	mux.HandleFunc("/api/v1/catalog", only(http.MethodGet, s.handleCatalog))
	mux.HandleFunc("/api/v1/events", only(http.MethodGet, s.handleEvents))
	mux.HandleFunc("/api/v1/ledger", only(http.MethodGet, s.handleLedger))
	mux.HandleFunc("/api/v1/preview", only(http.MethodGet, s.handlePreview))

	// Mutations (POST, rate limited).
	mux.HandleFunc("/api/v1/tool", only(http.MethodPost, RateLimitMiddleware(s.limiter, s.handleTool)))
	mux.HandleFunc("/api/v1/place", only(http.MethodPost, RateLimitMiddleware(s.limiter, s.handlePlace)))
	mux.HandleFunc("/api/v1/reset", only(http.MethodPost, RateLimitMiddleware(s.limiter, s.handleReset)))

	mux.HandleFunc("/ws", s.handleSocket)

	return s.corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "session", s.SessionID, "ledger", s.DB != nil)

	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// Shutdown stops accepting requests, closes open sockets and waits for
// in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.init()
	s.sockets.closeAll()
	s.limiter.Close()
	if s.httpSrv == nil {
		return nil
	}
	slog.Info("HTTP API stopping")
	return s.httpSrv.Shutdown(ctx)
}

// only rejects requests whose method is not m.
func only(m string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != m {
			w.Header().Set("Allow", m)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

// allowedOrigins reads CITYSIM_CORS_ORIGINS, a comma-separated list of
// frontend origins. Localhost dev servers are always allowed.
func allowedOrigins() map[string]bool {
	origins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CITYSIM_CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				origins[origin] = true
			}
		}
	}
	return origins
}

// corsMiddleware adds CORS headers for allowed frontend origins.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if s.origins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	st := s.Engine.State()
	s.mu.Unlock()

	status := map[string]any{
		"name":       "citysim",
		"session":    s.SessionID,
		"uptime":     time.Since(s.started).Round(time.Second).String(),
		"grid_size":  st.Grid().Size,
		"treasury":   st.Treasury(),
		"population": st.Population(),
		"happiness":  st.Happiness(),
		"buildings":  st.BuildingCount(),
		"low_funds":  st.LowFunds(),
		"ledger":     s.DB != nil,
		"sockets":    s.sockets.count(),
	}
	writeJSON(w, status)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	st := s.Engine.State()
	s.mu.Unlock()
	writeJSON(w, st)
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	st := s.Engine.State()
	s.mu.Unlock()
	writeJSON(w, catalogView(st))
}

func catalogView(st city.State) []CatalogEntry {
	selected, _ := st.Selected()
	entries := make([]CatalogEntry, 0, len(city.Kinds))
	for _, k := range city.Kinds {
		spec, _ := st.Spec(k)
		entries = append(entries, CatalogEntry{
			Kind:       k,
			Cost:       spec.Cost,
			Population: spec.PopulationDelta,
			Happiness:  spec.HappinessDelta,
			Affordable: st.CanAfford(k),
			Selected:   k == selected,
		})
	}
	return entries
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 50, engine.DefaultJournalSize)
	s.mu.Lock()
	events := s.Engine.Events(limit)
	s.mu.Unlock()
	writeJSON(w, events)
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "ledger disabled", http.StatusServiceUnavailable)
		return
	}
	limit := queryLimit(r, 50, 500)

	entries, err := s.DB.RecentEntries(s.SessionID, limit)
	if err != nil {
		slog.Error("ledger query failed", "error", err)
		http.Error(w, "ledger query failed", http.StatusInternalServerError)
		return
	}
	spend, err := s.DB.SpendByKind(s.SessionID)
	if err != nil {
		slog.Error("ledger spend query failed", "error", err)
		http.Error(w, "ledger query failed", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []persistence.Entry{}
	}

	writeJSON(w, map[string]any{
		"session":       s.SessionID,
		"entries":       entries,
		"spend_by_kind": spend,
	})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	x, errX := strconv.Atoi(q.Get("x"))
	z, errZ := strconv.Atoi(q.Get("z"))
	if errX != nil || errZ != nil {
		http.Error(w, "x and z must be integers", http.StatusBadRequest)
		return
	}
	c := world.Coord{X: x, Z: z}

	s.mu.Lock()
	err := s.Engine.Check(c)
	k, armed := s.Engine.State().Selected()
	s.mu.Unlock()

	p := Preview{Coord: c, OK: err == nil, Reason: city.ReasonOf(err)}
	if armed {
		p.Kind = &k
	}
	writeJSON(w, p)
}

func (s *Server) handleTool(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind string `json:"kind"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	writeJSON(w, s.selectTool(req.Kind))
}

func (s *Server) handlePlace(w http.ResponseWriter, r *http.Request) {
	var req struct {
		X *int `json:"x"`
		Z *int `json:"z"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.X == nil || req.Z == nil {
		http.Error(w, "x and z are required", http.StatusBadRequest)
		return
	}
	writeJSON(w, s.place(world.Coord{X: *req.X, Z: *req.Z}))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.reset())
}

// selectTool arms the named kind. Names outside the catalog disarm the tool.
func (s *Server) selectTool(name string) Result {
	k, ok := city.ParseKind(name)
	if !ok {
		slog.Debug("unknown tool name treated as none", "name", name)
		k = city.KindNone
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.Engine.SelectTool(k)
	s.persist()
	return Result{OK: true, State: st}
}

func (s *Server) place(c world.Coord) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.Engine.PlaceBuilding(c)
	s.persist()
	if err != nil {
		return Result{Reason: city.ReasonOf(err), Error: err.Error(), State: st}
	}
	b, _ := st.BuildingAt(c)
	return Result{OK: true, Building: &b, State: st}
}

func (s *Server) reset() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.Engine.Reset()
	s.persist()
	return Result{OK: true, State: st}
}

func (s *Server) currentState() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Result{OK: true, State: s.Engine.State()}
}

// persist hands journaled events to the ledger. Must hold s.mu.
// Ledger failures are logged and never fail the request.
func (s *Server) persist() {
	events := s.Engine.Drain()
	if s.DB == nil || len(events) == 0 {
		return
	}
	if err := s.DB.SaveEvents(s.SessionID, events); err != nil {
		slog.Error("ledger write failed", "error", err, "events", len(events))
	}
}

func queryLimit(r *http.Request, def, max int) int {
	limit := def
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= max {
			limit = n
		}
	}
	return limit
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		slog.Warn("write response failed", "error", err)
	}
}
