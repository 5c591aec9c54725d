package sqlx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"scorekeeper/core"
	"scorekeeper/engine"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	libsqlx "github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Driver names a database/sql driver supported by the store.
type Driver string

const (
	DriverPostgres Driver = "postgres" // lib/pq
	DriverPgx      Driver = "pgx"      // jackc/pgx stdlib
	DriverMySQL    Driver = "mysql"
	DriverSQLite   Driver = "sqlite3"
)

// Config holds SQL connection configuration
type Config struct {
	Driver          Driver        `json:"driver" yaml:"driver" env:"SCOREKEEPER_SQL_DRIVER"`
	DSN             string        `json:"dsn" yaml:"dsn" env:"SCOREKEEPER_SQL_DSN"`
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	// AutoMigrate creates the kv_store table on startup.
	AutoMigrate bool `json:"auto_migrate" yaml:"auto_migrate"`
}

// DefaultConfig returns sensible defaults for the given driver
func DefaultConfig(driver Driver) Config {
	cfg := Config{
		Driver:          driver,
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
		AutoMigrate:     true,
	}
	switch driver {
	case DriverPostgres, DriverPgx:
		cfg.DSN = "postgres://localhost:5432/scorekeeper?sslmode=disable"
	case DriverMySQL:
		cfg.DSN = "root@tcp(localhost:3306)/scorekeeper?parseTime=true"
	case DriverSQLite:
		cfg.DSN = "file:scorekeeper.db?_busy_timeout=5000"
	}
	return cfg
}

// Store implements engine.Storage on a single key/value table:
//
//	kv_store(storage_key PRIMARY KEY, storage_value, updated_at)
type Store struct {
	db     *libsqlx.DB
	driver Driver
	now    func() time.Time
}

// New opens a connection pool and optionally creates the schema.
func New(ctx context.Context, cfg Config) (*Store, error) {
	db, err := libsqlx.ConnectContext(ctx, string(cfg.Driver), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	s := NewWithDB(db, cfg.Driver)
	if cfg.AutoMigrate {
		if err := s.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

// NewWithDB wraps an existing handle (useful for testing)
func NewWithDB(db *libsqlx.DB, driver Driver) *Store {
	return &Store{db: db, driver: driver, now: time.Now}
}

// Close closes the underlying pool
func (s *Store) Close() error { return s.db.Close() }

// EnsureSchema creates the key/value table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	var ddl string
	switch s.driver {
	case DriverMySQL:
		ddl = `CREATE TABLE IF NOT EXISTS kv_store (
	storage_key VARCHAR(255) NOT NULL PRIMARY KEY,
	storage_value LONGTEXT NOT NULL,
	updated_at DATETIME(3) NOT NULL
)`
	case DriverSQLite:
		ddl = `CREATE TABLE IF NOT EXISTS kv_store (
	storage_key TEXT NOT NULL PRIMARY KEY,
	storage_value TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`
	default:
		ddl = `CREATE TABLE IF NOT EXISTS kv_store (
	storage_key TEXT NOT NULL PRIMARY KEY,
	storage_value TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`
	}
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create kv_store: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	q := s.db.Rebind(`SELECT storage_value FROM kv_store WHERE storage_key = ?`)
	err := s.db.GetContext(ctx, &v, q, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return v, true, nil
}

// Set upserts inside a transaction; the exists/update/insert sequence works on every driver.
func (s *Store) Set(ctx context.Context, key, value string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	if err := tx.GetContext(ctx, &exists, tx.Rebind(`SELECT EXISTS (SELECT 1 FROM kv_store WHERE storage_key = ?)`), key); err != nil {
		return fmt.Errorf("failed to check %s: %w", key, err)
	}
	now := s.now().UTC()
	if exists {
		_, err = tx.ExecContext(ctx, tx.Rebind(`UPDATE kv_store SET storage_value = ?, updated_at = ? WHERE storage_key = ?`), value, now, key)
	} else {
		_, err = tx.ExecContext(ctx, tx.Rebind(`INSERT INTO kv_store (storage_key, storage_value, updated_at) VALUES (?, ?, ?)`), key, value, now)
	}
	if err != nil {
		return s.wrapWrite(key, err)
	}
	if err := tx.Commit(); err != nil {
		return s.wrapWrite(key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM kv_store WHERE storage_key = ?`), key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys := []string{}
	q := s.db.Rebind(`SELECT storage_key FROM kv_store WHERE storage_key LIKE ? ESCAPE '!' ORDER BY storage_key`)
	if err := s.db.SelectContext(ctx, &keys, q, likePrefix(prefix)); err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	return keys, nil
}

func likePrefix(p string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return r.Replace(p) + "%"
}

func (s *Store) wrapWrite(key string, err error) error {
	if isStorageFull(err) {
		return fmt.Errorf("failed to write %s: %w", key, core.ErrStorageFull)
	}
	return fmt.Errorf("failed to write %s: %w", key, err)
}

// isStorageFull recognizes out-of-space errors from each supported driver.
func isStorageFull(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "53100"
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "53100"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1114 // ER_RECORD_FILE_FULL
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrFull
	}
	return false
}

var _ engine.Storage = (*Store)(nil)
