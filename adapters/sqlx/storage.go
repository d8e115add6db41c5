package sqlx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/ryandem1/minesweeper-async/core"
)

// Driver names a supported database/sql driver.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
)

// Config holds SQL connection configuration.
type Config struct {
	Driver          Driver        `json:"driver" env:"DRIVER"`
	DSN             string        `json:"dsn" env:"DSN"`
	Scope           string        `json:"scope" env:"SCOPE"`
	MaxOpenConns    int           `json:"max_open_conns" env:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `json:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
	ConnectTimeout  time.Duration `json:"connect_timeout" env:"CONNECT_TIMEOUT"`
}

// DefaultConfig returns defaults for the given driver. The DSN is left empty.
func DefaultConfig(driver Driver) Config {
	return Config{
		Driver:          driver,
		Scope:           "default",
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
		ConnectTimeout:  5 * time.Second,
	}
}

// Store keeps the running score in a single score_ledger row per scope, so
// several servers pointed at one database share a total.
type Store struct {
	db     *sqlx.DB
	driver Driver
	scope  string
}

// New opens the database, checks connectivity and creates the ledger table.
func New(ctx context.Context, cfg Config) (*Store, error) {
	switch cfg.Driver {
	case DriverPostgres, DriverMySQL:
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", cfg.Driver)
	}
	if cfg.DSN == "" {
		return nil, errors.New("sql dsn is required")
	}

	db, err := sqlx.Open(string(cfg.Driver), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", cfg.Driver, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}

	s := NewWithDB(db, cfg.Driver).WithScope(cfg.Scope)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an existing handle (useful for testing).
func NewWithDB(db *sqlx.DB, driver Driver) *Store {
	return &Store{db: db, driver: driver, scope: "default"}
}

// WithScope selects the ledger row. Empty keeps the current scope.
func (s *Store) WithScope(scope string) *Store {
	if scope != "" {
		s.scope = scope
	}
	return s
}

const createLedger = `CREATE TABLE IF NOT EXISTS score_ledger (
	scope VARCHAR(64) PRIMARY KEY,
	total DOUBLE PRECISION NOT NULL,
	checks BIGINT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

// Migrate creates the ledger table if it is missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createLedger); err != nil {
		return fmt.Errorf("failed to create score_ledger: %w", err)
	}
	return nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Add credits delta to the scope's total inside a transaction and returns
// the new total.
func (s *Store) Add(ctx context.Context, delta float64) (float64, error) {
	if _, err := core.AddScore(0, delta); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var row struct {
		Total  float64 `db:"total"`
		Checks int64   `db:"checks"`
	}
	now := time.Now().UTC()
	err = tx.GetContext(ctx, &row, s.db.Rebind(`SELECT total, checks FROM score_ledger WHERE scope = ? FOR UPDATE`), s.scope)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		row.Total, row.Checks = delta, 1
		_, err = tx.ExecContext(ctx,
			s.db.Rebind(`INSERT INTO score_ledger (scope, total, checks, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`),
			s.scope, row.Total, row.Checks, now, now)
	case err == nil:
		row.Total, err = core.AddScore(row.Total, delta)
		if err != nil {
			return 0, err
		}
		row.Checks++
		_, err = tx.ExecContext(ctx,
			s.db.Rebind(`UPDATE score_ledger SET total = ?, checks = ?, updated_at = ? WHERE scope = ?`),
			row.Total, row.Checks, now, s.scope)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to add score: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit score: %w", err)
	}
	return row.Total, nil
}

// Total returns the running total, 0 when nothing was credited yet.
func (s *Store) Total(ctx context.Context) (float64, error) {
	var total float64
	err := s.db.GetContext(ctx, &total, s.db.Rebind(`SELECT total FROM score_ledger WHERE scope = ?`), s.scope)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get score: %w", err)
	}
	return total, nil
}

// Checks returns the number of credited boards.
func (s *Store) Checks(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.GetContext(ctx, &n, s.db.Rebind(`SELECT checks FROM score_ledger WHERE scope = ?`), s.scope)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get check count: %w", err)
	}
	return n, nil
}

// Ping verifies connectivity for health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
