package sqlbridge

import (
	"database/sql"
	"fmt"
	"hash/fnv"
)

// Row is a single result row keyed by column name. []byte values are
// normalized to string so rows serialize cleanly.
type Row map[string]any

// cursor pairs an open *sql.Rows with its column names. It is the cached
// handle that lets fetch calls page instead of re-execute.
type cursor struct {
	rows    *sql.Rows
	columns []string
}

func newCursor(rows *sql.Rows) (*cursor, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}
	return &cursor{rows: rows, columns: columns}, nil
}

// next returns the following row, or nil once the cursor is exhausted.
func (c *cursor) next() (Row, error) {
	if !c.rows.Next() {
		if err := c.rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to advance cursor: %w", err)
		}
		return nil, nil
	}

	values := make([]any, len(c.columns))
	ptrs := make([]any, len(c.columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := c.rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	row := make(Row, len(c.columns))
	for i, name := range c.columns {
		if b, ok := values[i].([]byte); ok {
			row[name] = string(b)
		} else {
			row[name] = values[i]
		}
	}
	return row, nil
}

func (c *cursor) close() error {
	return c.rows.Close()
}

// fingerprint keys the cursor cache. Identical statement and args always
// map to the same key, so a repeated fetch finds its open cursor.
func fingerprint(statement string, args []any) uint64 {
	h := fnv.New64a()
	h.Write([]byte(statement))
	for _, arg := range args {
		fmt.Fprintf(h, "\x00%T=%v", arg, arg)
	}
	return h.Sum64()
}
