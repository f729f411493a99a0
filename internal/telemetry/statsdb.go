package telemetry

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/Garsondee/Territory-Sense/internal/sim"
)

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// StatsDB indexes runs and their per-team samples in SQLite.
type StatsDB struct {
	conn *sqlx.DB
}

// TeamSample is one stored row of team_samples.
type TeamSample struct {
	Tick        int     `db:"tick"`
	Alive       int     `db:"alive"`
	AvgHealth   float64 `db:"avg_health"`
	AvgSupply   float64 `db:"avg_supply"`
	Territory   float64 `db:"territory"`
	OwnedChunks int     `db:"owned_chunks"`
}

// RunRow is one stored row of runs.
type RunRow struct {
	ID        string `db:"id"`
	Seed      int64  `db:"seed"`
	StartedAt string `db:"started_at"`
	Settings  string `db:"settings_json"`
}

// OpenStatsDB opens or creates the database at path.
func OpenStatsDB(path string) (*StatsDB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open stats db: %w", err)
	}
	db := &StatsDB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *StatsDB) Close() error {
	return db.conn.Close()
}

func (db *StatsDB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		started_at TEXT NOT NULL,
		settings_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS team_samples (
		run_id TEXT NOT NULL REFERENCES runs(id),
		tick INTEGER NOT NULL,
		team INTEGER NOT NULL,
		alive INTEGER NOT NULL,
		avg_health REAL NOT NULL,
		avg_supply REAL NOT NULL,
		territory REAL NOT NULL,
		owned_chunks INTEGER NOT NULL,
		PRIMARY KEY (run_id, tick, team)
	);

	CREATE INDEX IF NOT EXISTS idx_samples_run_team ON team_samples(run_id, team);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// BeginRun records a new run.
func (db *StatsDB) BeginRun(runID string, seed int64, settings sim.Settings) error {
	js, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	_, err = db.conn.Exec(
		"INSERT INTO runs (id, seed, started_at, settings_json) VALUES (?, ?, ?, ?)",
		runID, seed, time.Now().UTC().Format(time.RFC3339), string(js),
	)
	return err
}

// RecordReport stores one row per team of rpt.
func (db *StatsDB) RecordReport(runID string, rpt TickReport) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT OR REPLACE INTO team_samples
		(run_id, tick, team, alive, avg_health, avg_supply, territory, owned_chunks)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, tr := range rpt.Teams {
		if _, err := stmt.Exec(runID, rpt.Tick, tr.Team, tr.Alive,
			tr.AvgHealth, tr.AvgSupply, tr.Territory, tr.OwnedChunks); err != nil {
			return fmt.Errorf("team %d: %w", tr.Team, err)
		}
	}
	return tx.Commit()
}

// TeamHistory returns a team's samples for a run, oldest first.
func (db *StatsDB) TeamHistory(runID string, team int) ([]TeamSample, error) {
	var out []TeamSample
	err := db.conn.Select(&out,
		`SELECT tick, alive, avg_health, avg_supply, territory, owned_chunks
		 FROM team_samples WHERE run_id = ? AND team = ? ORDER BY tick`,
		runID, team,
	)
	return out, err
}

// Runs lists stored runs, newest first.
func (db *StatsDB) Runs() ([]RunRow, error) {
	var out []RunRow
	err := db.conn.Select(&out,
		"SELECT id, seed, started_at, settings_json FROM runs ORDER BY started_at DESC, id")
	return out, err
}
