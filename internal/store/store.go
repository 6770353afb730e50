// Package store persists evaluated statistic tables in SQLite so runs can
// be listed and compared later.
package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/tracestats/internal/monitoring"
	"github.com/banshee-data/tracestats/internal/table"
	"github.com/banshee-data/tracestats/internal/timeutil"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")

// DB wraps the SQLite connection.
type DB struct {
	*sql.DB
	// Clock stamps new runs.
	Clock timeutil.Clock
}

// Open opens (or creates) the database at path and applies pending
// migrations. Use ":memory:" for a throwaway database.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps :memory: databases alive across calls
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	db := &DB{DB: sqlDB, Clock: timeutil.RealClock{}}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// MigrateUp runs all pending migrations up to the latest version.
func (db *DB) MigrateUp() error {
	m, err := db.newMigrate()
	if err != nil {
		return err
	}
	// m is not closed: that would close the shared connection.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// MigrateVersion returns the current schema version and dirty state.
// Returns 0, false, nil if no migrations have been applied yet.
func (db *DB) MigrateVersion() (version uint, dirty bool, err error) {
	m, err := db.newMigrate()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (db *DB) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db.DB, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = &migrateLogger{}
	return m, nil
}

// migrateLogger implements migrate.Logger.
type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	monitoring.Debugf("[migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool { return false }

// Run is one stored evaluation.
type Run struct {
	RunID           string      `json:"run_id"`
	SamplesFile     string      `json:"samples_file"`
	LaneChangesFile string      `json:"lane_changes_file,omitempty"`
	Filters         string      `json:"filters,omitempty"`
	DroppedRows     int         `json:"dropped_rows"`
	CreatedAtNs     int64       `json:"created_at_ns"`
	Rows            []table.Row `json:"rows,omitempty"`
}

// CreatedAt returns CreatedAtNs as a time.
func (r *Run) CreatedAt() time.Time { return time.Unix(0, r.CreatedAtNs) }

// Table rebuilds the stored table.
func (r *Run) Table() *table.Table { return table.FromRows(r.Rows) }

// SaveRun stores run and its rows in one transaction. An empty RunID is
// filled with a new UUID and a zero CreatedAtNs with the current time.
func (db *DB) SaveRun(run *Run) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAtNs == 0 {
		run.CreatedAtNs = db.Clock.Now().UnixNano()
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin save run: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (
			run_id, samples_file, lane_changes_file, filters, dropped_rows, created_at_ns
		) VALUES (?, ?, ?, ?, ?, ?)`,
		run.RunID,
		run.SamplesFile,
		nullString(run.LaneChangesFile),
		nullString(run.Filters),
		run.DroppedRows,
		run.CreatedAtNs,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, row := range run.Rows {
		_, err := tx.Exec(
			`INSERT INTO run_rows (run_id, position, label, value, unit) VALUES (?, ?, ?, ?, ?)`,
			run.RunID, i, row.Label, nullFloat64(row.Value), row.Unit,
		)
		if err != nil {
			return fmt.Errorf("insert run row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// GetRun loads a run with its rows.
func (db *DB) GetRun(runID string) (*Run, error) {
	run, err := scanRun(db.QueryRow(`
		SELECT run_id, samples_file, lane_changes_file, filters, dropped_rows, created_at_ns
		FROM runs
		WHERE run_id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	rows, err := db.Query(`
		SELECT label, value, unit
		FROM run_rows
		WHERE run_id = ?
		ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("get run rows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row table.Row
		var value sql.NullFloat64
		if err := rows.Scan(&row.Label, &value, &row.Unit); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		row.Value = math.NaN()
		if value.Valid {
			row.Value = value.Float64
		}
		run.Rows = append(run.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first, without their rows. A limit
// of zero or less returns every run.
func (db *DB) ListRuns(limit int) ([]*Run, error) {
	query := `
		SELECT run_id, samples_file, lane_changes_file, filters, dropped_rows, created_at_ns
		FROM runs
		ORDER BY created_at_ns DESC, run_id`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run and its rows.
func (db *DB) DeleteRun(runID string) error {
	res, err := db.Exec(`DELETE FROM runs WHERE run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s rowScanner) (*Run, error) {
	var run Run
	var laneChanges, filters sql.NullString
	err := s.Scan(
		&run.RunID,
		&run.SamplesFile,
		&laneChanges,
		&filters,
		&run.DroppedRows,
		&run.CreatedAtNs,
	)
	if err != nil {
		return nil, err
	}
	run.LaneChangesFile = laneChanges.String
	run.Filters = filters.String
	return &run, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// nullFloat64 stores NaN as NULL; SQLite has no NaN.
func nullFloat64(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: !math.IsNaN(v)}
}
