package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// DB wraps the database connection and provides health checks
type DB struct {
	conn *sqlx.DB
}

// DBConfig holds database configuration
type DBConfig struct {
	DSN string

	// Pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultDBConfig returns default database configuration
func DefaultDBConfig() DBConfig {
	return DBConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 1 * time.Minute,
	}
}

// NewDB creates a new database connection
func NewDB(cfg DBConfig) (*DB, error) {
	conn, err := sqlx.Connect("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	conn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return &DB{conn: conn}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS menus (
	id UUID PRIMARY KEY,
	group_id UUID NOT NULL,
	title TEXT NOT NULL,
	meal_date DATE NOT NULL,
	generating BOOLEAN NOT NULL DEFAULT FALSE,
	image_url TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_menus_group_id ON menus (group_id);

CREATE TABLE IF NOT EXISTS image_cache_entries (
	cache_key TEXT PRIMARY KEY,
	image_url TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS spend_ledger (
	singleton BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (singleton),
	units_generated BIGINT NOT NULL DEFAULT 0,
	total_spent_usd DOUBLE PRECISION NOT NULL DEFAULT 0,
	last_updated TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Migrate creates the tables this service owns if they do not exist yet.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks if the database is reachable
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Health returns the health status of the database
func (db *DB) Health(ctx context.Context) error {
	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	var result int
	err := db.conn.GetContext(ctx, &result, "SELECT 1")
	if err != nil {
		return fmt.Errorf("health check query failed: %w", err)
	}

	return nil
}

// Conn returns the underlying sqlx connection
// Use this for custom queries not covered by repositories
func (db *DB) Conn() *sqlx.DB {
	return db.conn
}

// Repository factory methods

// NewMenuRepository creates a new menu repository
func (db *DB) NewMenuRepository() *MenuRepository {
	return NewMenuRepository(db)
}

// NewImageCacheRepository creates a new image cache repository
func (db *DB) NewImageCacheRepository() *ImageCacheRepository {
	return NewImageCacheRepository(db)
}

// NewLedgerRepository creates a new spend ledger repository
func (db *DB) NewLedgerRepository() *LedgerRepository {
	return NewLedgerRepository(db)
}
