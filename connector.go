package sqlbridge

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// PoolConfig is forwarded verbatim to database/sql. Zero values keep the
// driver defaults.
type PoolConfig struct {
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
}

// Config describes how a Connector reaches its database. Exactly one of
// URL or Components must be set: URL is a raw DSN paired with an explicit
// Driver name, Components is the assembled form.
type Config struct {
	URL        string                `json:"url,omitempty"`
	Driver     string                `json:"driver,omitempty"`
	Components *ConnectionComponents `json:"components,omitempty"`
	Pool       PoolConfig            `json:"pool"`
}

func (cfg Config) resolve() (driverName, dsn, redacted string, err error) {
	switch {
	case cfg.URL != "" && cfg.Components != nil:
		return "", "", "", fmt.Errorf("config: url and components are mutually exclusive")
	case cfg.URL != "":
		if cfg.Driver == "" {
			return "", "", "", fmt.Errorf("config: driver name is required with a raw url")
		}
		return cfg.Driver, cfg.URL, cfg.URL, nil
	case cfg.Components != nil:
		if err := cfg.Components.Validate(); err != nil {
			return "", "", "", fmt.Errorf("config: %w", err)
		}
		return cfg.Components.Dialect.DriverName(), cfg.Components.DSN(), cfg.Components.Redacted(), nil
	default:
		return "", "", "", fmt.Errorf("config: either url or components must be set")
	}
}

// Connector wraps a lazily opened *sql.DB and remembers the last-executed
// statement per fingerprint so repeated fetch calls page through an open
// cursor instead of re-executing. It is safe for concurrent use.
type Connector struct {
	driverName string
	dsn        string
	redacted   string
	pool       PoolConfig

	mu      sync.Mutex
	db      *sql.DB
	results map[uint64]*cursor
}

// NewConnector validates cfg and returns an unopened connector. The
// underlying engine is opened on first use.
func NewConnector(cfg Config) (*Connector, error) {
	driverName, dsn, redacted, err := cfg.resolve()
	if err != nil {
		return nil, err
	}
	return &Connector{
		driverName: driverName,
		dsn:        dsn,
		redacted:   redacted,
		pool:       cfg.Pool,
		results:    make(map[uint64]*cursor),
	}, nil
}

// Redacted returns the connection string with the password hidden.
func (c *Connector) Redacted() string {
	return c.redacted
}

// DriverName returns the database/sql driver name the connector opens with.
func (c *Connector) DriverName() string {
	return c.driverName
}

// engine opens the database on first use. Callers must hold c.mu.
func (c *Connector) engine(ctx context.Context) (*sql.DB, error) {
	if c.db != nil {
		return c.db, nil
	}

	db, err := sql.Open(c.driverName, c.dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if c.pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(c.pool.MaxOpenConns)
	}
	if c.pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(c.pool.MaxIdleConns)
	}
	if c.pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(c.pool.ConnMaxLifetime)
	}
	if c.pool.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(c.pool.ConnMaxIdleTime)
	}

	log.Debug().Str("driver", c.driverName).Str("dsn", c.redacted).Msg("Database engine opened")

	c.db = db
	return db, nil
}

// Ping opens the engine if needed and verifies the connection.
func (c *Connector) Ping(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	db, err := c.engine(ctx)
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

// Execute runs a statement that returns no rows (DDL, inserts, updates).
// The cursor cache is bypassed.
func (c *Connector) Execute(ctx context.Context, statement string, args ...any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	db, err := c.engine(ctx)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, statement, args...); err != nil {
		return fmt.Errorf("failed to execute statement: %w", err)
	}
	return nil
}

// ExecuteMany prepares the statement once and applies it to each arg set
// inside a single transaction.
func (c *Connector) ExecuteMany(ctx context.Context, statement string, argSets [][]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	db, err := c.engine(ctx)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, statement)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("Failed to rollback transaction")
		}
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, args := range argSets {
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error().Err(rbErr).Msg("Failed to rollback transaction")
			}
			return fmt.Errorf("failed to execute statement: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// FetchOne returns the next row for the statement, executing it only if no
// cursor is already open for the same statement and args. When the cursor
// is exhausted it is closed, forgotten, and sql.ErrNoRows is returned.
func (c *Connector) FetchOne(ctx context.Context, statement string, args ...any) (Row, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key, cur, err := c.cursorFor(ctx, statement, args)
	if err != nil {
		return nil, err
	}

	row, err := cur.next()
	if err != nil {
		c.evict(key)
		return nil, err
	}
	if row == nil {
		c.evict(key)
		return nil, sql.ErrNoRows
	}
	return row, nil
}

// FetchMany returns up to n further rows for the statement, paging the
// same cursor across calls. A short (possibly empty) result means the
// cursor was exhausted and has been forgotten.
func (c *Connector) FetchMany(ctx context.Context, statement string, n int, args ...any) ([]Row, error) {
	if n < 1 {
		return nil, fmt.Errorf("fetch size must be positive, got %d", n)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key, cur, err := c.cursorFor(ctx, statement, args)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, n)
	for len(rows) < n {
		row, err := cur.next()
		if err != nil {
			c.evict(key)
			return nil, err
		}
		if row == nil {
			c.evict(key)
			break
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// FetchAll drains the cursor for the statement and forgets it. Rows
// already consumed by earlier FetchOne/FetchMany calls are not repeated.
func (c *Connector) FetchAll(ctx context.Context, statement string, args ...any) ([]Row, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key, cur, err := c.cursorFor(ctx, statement, args)
	if err != nil {
		return nil, err
	}
	defer c.evict(key)

	var rows []Row
	for {
		row, err := cur.next()
		if err != nil {
			return nil, err
		}
		if row == nil {
			return rows, nil
		}
		rows = append(rows, row)
	}
}

// cursorFor returns the open cursor for (statement, args), executing the
// statement if none is cached. Callers must hold c.mu.
func (c *Connector) cursorFor(ctx context.Context, statement string, args []any) (uint64, *cursor, error) {
	key := fingerprint(statement, args)
	if cur, ok := c.results[key]; ok {
		return key, cur, nil
	}

	db, err := c.engine(ctx)
	if err != nil {
		return 0, nil, err
	}
	rows, err := db.QueryContext(ctx, statement, args...)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to execute query: %w", err)
	}
	cur, err := newCursor(rows)
	if err != nil {
		rows.Close()
		return 0, nil, err
	}
	c.results[key] = cur
	return key, cur, nil
}

// evict closes and forgets a cached cursor. Callers must hold c.mu.
func (c *Connector) evict(key uint64) {
	if cur, ok := c.results[key]; ok {
		cur.close()
		delete(c.results, key)
	}
}

// Reset closes every cached cursor without touching the engine.
func (c *Connector) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for key, cur := range c.results {
		if err := cur.close(); err != nil {
			errs = append(errs, err)
		}
		delete(c.results, key)
	}
	return errors.Join(errs...)
}

// Close resets all cursors and disposes the engine. The connector cannot
// be reused afterwards.
func (c *Connector) Close() error {
	err := c.Reset()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil {
		if closeErr := c.db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close database: %w", closeErr))
		}
		c.db = nil
	}
	return err
}

// Stats reports pool statistics for an open engine; the zero value is
// returned before first use.
func (c *Connector) Stats() sql.DBStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return sql.DBStats{}
	}
	return c.db.Stats()
}
