// Package store persists the controller's runtime state in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/clambin/thermostat-control/internal/controller"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps the displayed and calculated global setpoint and the power state,
// so a manual setpoint survives a restart.
type SQLiteStore struct {
	db *sql.DB
}

var _ controller.StateStore = &SQLiteStore{}

// New opens (or creates) the database at path. Use ":memory:" for a database that is not persisted.
func New(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// a single connection, so ":memory:" databases are shared by all queries
	db.SetMaxOpenConns(1)

	s := SQLiteStore{db: db}
	if err = s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &s, nil
}

func (s *SQLiteStore) initSchema() error {
	const schema = `
		CREATE TABLE IF NOT EXISTS runtime_state (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			level REAL,
			calculated REAL,
			power INTEGER NOT NULL,
			updated_at TEXT NOT NULL
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Load returns the stored state. If no state has been stored, the heating is switched on and has no setpoint.
func (s *SQLiteStore) Load(ctx context.Context) (controller.State, error) {
	var level, calculated sql.NullFloat64
	var power bool
	err := s.db.QueryRowContext(ctx, `SELECT level, calculated, power FROM runtime_state WHERE id = 1`).Scan(&level, &calculated, &power)
	if errors.Is(err, sql.ErrNoRows) {
		return controller.State{Power: true}, nil
	}
	if err != nil {
		return controller.State{}, fmt.Errorf("query state: %w", err)
	}
	return controller.State{
		Level:      fromNull(level),
		Calculated: fromNull(calculated),
		Power:      power,
	}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, state controller.State) error {
	const query = `
		INSERT INTO runtime_state (id, level, calculated, power, updated_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			level = excluded.level,
			calculated = excluded.calculated,
			power = excluded.power,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query, toNull(state.Level), toNull(state.Calculated), state.Power, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func fromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func toNull(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
