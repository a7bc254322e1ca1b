package sqlbridge

// One-shot helpers for callers that do not want to manage a connector:
// each opens an engine, runs a single statement, and disposes everything
// before returning.

import "context"

// Execute runs a statement that returns no rows against a fresh engine.
// Useful for DDL and inserts from short-lived units of work.
func Execute(ctx context.Context, cfg Config, statement string, args ...any) error {
	conn, err := NewConnector(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()
	return conn.Execute(ctx, statement, args...)
}

// Query runs a statement against a fresh engine and returns every row.
func Query(ctx context.Context, cfg Config, statement string, args ...any) ([]Row, error) {
	conn, err := NewConnector(cfg)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return conn.FetchAll(ctx, statement, args...)
}

// QueryN runs a statement against a fresh engine and returns at most n
// rows.
func QueryN(ctx context.Context, cfg Config, statement string, n int, args ...any) ([]Row, error) {
	conn, err := NewConnector(cfg)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return conn.FetchMany(ctx, statement, n, args...)
}
