// Package persistence keeps the SQLite audit ledger of a city session.
// The ledger is written as the session runs and queried for history; city
// state is never restored from it.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/citybuilder/internal/city"
	"github.com/talgya/citybuilder/internal/engine"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// DB wraps a SQLite connection for the audit ledger.
type DB struct {
	conn *sqlx.DB
}

// Entry is one ledger row.
type Entry struct {
	ID         int64     `db:"id" json:"id"`
	SessionID  string    `db:"session_id" json:"session_id"`
	Seq        uint64    `db:"seq" json:"seq"`
	Type       string    `db:"type" json:"type"`
	Kind       string    `db:"kind" json:"kind"`
	X          *int      `db:"x" json:"x,omitempty"`
	Z          *int      `db:"z" json:"z,omitempty"`
	BuildingID string    `db:"building_id" json:"building_id,omitempty"`
	CostPaid   int       `db:"cost_paid" json:"cost_paid,omitempty"`
	Reason     string    `db:"reason" json:"reason,omitempty"`
	Treasury   int       `db:"treasury" json:"treasury"`
	Population int       `db:"population" json:"population"`
	Happiness  int       `db:"happiness" json:"happiness"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	dsn := path
	if path != MemoryPath {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if path == MemoryPath {
		// Each connection to :memory: is its own database.
		conn.SetMaxOpenConns(1)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		config_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS ledger (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		type TEXT NOT NULL,
		kind TEXT NOT NULL,
		x INTEGER,
		z INTEGER,
		building_id TEXT NOT NULL DEFAULT '',
		cost_paid INTEGER NOT NULL DEFAULT 0,
		reason TEXT NOT NULL DEFAULT '',
		treasury INTEGER NOT NULL,
		population INTEGER NOT NULL,
		happiness INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id)
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_session_seq ON ledger(session_id, seq);
	CREATE INDEX IF NOT EXISTS idx_ledger_type ON ledger(type);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// StartSession records a new session and the configuration it runs with.
func (db *DB) StartSession(id string, cfg city.Config) error {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	_, err = db.conn.Exec(
		"INSERT INTO sessions (id, started_at, config_json) VALUES (?, ?, ?)",
		id, time.Now().UTC(), string(cfgJSON),
	)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", id, err)
	}
	slog.Info("ledger session started", "session", id)
	return nil
}

// SessionConfig returns the configuration a session was started with.
func (db *DB) SessionConfig(id string) (city.Config, error) {
	var raw string
	if err := db.conn.Get(&raw, "SELECT config_json FROM sessions WHERE id = ?", id); err != nil {
		return city.Config{}, fmt.Errorf("load session %s: %w", id, err)
	}
	var cfg city.Config
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return city.Config{}, fmt.Errorf("decode session %s config: %w", id, err)
	}
	return cfg, nil
}

// SaveEvents appends drained engine events to the ledger.
func (db *DB) SaveEvents(sessionID string, events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT INTO ledger
		(session_id, seq, type, kind, x, z, building_id, cost_paid, reason,
		 treasury, population, happiness, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range events {
		var x, z *int
		if e.Coord != nil {
			cx, cz := e.Coord.X, e.Coord.Z
			x, z = &cx, &cz
		}
		_, err := stmt.Exec(
			sessionID, e.Seq, string(e.Type), e.Kind.String(), x, z,
			e.BuildingID, e.CostPaid, string(e.Reason),
			e.Treasury, e.Population, e.Happiness, e.Time.UTC(),
		)
		if err != nil {
			return fmt.Errorf("insert event %d: %w", e.Seq, err)
		}
	}

	return tx.Commit()
}

// RecentEntries returns the newest ledger rows of a session, oldest first.
func (db *DB) RecentEntries(sessionID string, limit int) ([]Entry, error) {
	var entries []Entry
	err := db.conn.Select(&entries, `
		SELECT id, session_id, seq, type, kind, x, z, building_id, cost_paid, reason,
		       treasury, population, happiness, created_at
		FROM ledger WHERE session_id = ? ORDER BY seq DESC LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	slices.Reverse(entries)
	return entries, nil
}

// SpendByKind sums the price paid per building kind since the session's
// last reset.
func (db *DB) SpendByKind(sessionID string) (map[string]int, error) {
	var rows []struct {
		Kind  string `db:"kind"`
		Total int    `db:"total"`
	}
	err := db.conn.Select(&rows, `
		SELECT kind, SUM(cost_paid) AS total FROM ledger
		WHERE session_id = ? AND type = ?
		  AND seq > COALESCE((SELECT MAX(seq) FROM ledger WHERE session_id = ? AND type = ?), 0)
		GROUP BY kind`,
		sessionID, string(engine.EventPlaced), sessionID, string(engine.EventReset),
	)
	if err != nil {
		return nil, err
	}
	spend := make(map[string]int, len(rows))
	for _, r := range rows {
		spend[r.Kind] = r.Total
	}
	return spend, nil
}
