package sqlbridge

import (
	"errors"
	"fmt"
	"strings"
)

// Dialect identifies a database family the adapter knows how to address.
// It selects the registered database/sql driver and the DSN convention;
// everything beyond that (pooling, transactions, wire protocol) belongs to
// the driver.
type Dialect string

const (
	DialectPostgres  Dialect = "postgres"
	DialectMySQL     Dialect = "mysql"
	DialectSQLite    Dialect = "sqlite"
	DialectSQLServer Dialect = "sqlserver"
	DialectOracle    Dialect = "oracle"
)

// ErrUnknownDialect is returned by ParseDialect for names outside the
// supported set.
var ErrUnknownDialect = errors.New("unknown dialect")

// ParseDialect maps a user-supplied name to a Dialect. Common aliases
// (postgresql, mariadb, mssql, sqlite3) are accepted.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pgx":
		return DialectPostgres, nil
	case "mysql", "mariadb":
		return DialectMySQL, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "sqlserver", "mssql":
		return DialectSQLServer, nil
	case "oracle":
		return DialectOracle, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDialect, name)
	}
}

// DriverName returns the database/sql driver name the dialect opens with.
// The driver itself must be linked into the binary by the caller; the
// library never imports one.
func (d Dialect) DriverName() string {
	switch d {
	case DialectPostgres:
		return "pgx"
	case DialectMySQL:
		return "mysql"
	case DialectSQLite:
		return "sqlite"
	case DialectSQLServer:
		return "sqlserver"
	case DialectOracle:
		return "oracle"
	default:
		return string(d)
	}
}

// DefaultPort returns the dialect's conventional port, or 0 when the
// dialect has no network listener (sqlite).
func (d Dialect) DefaultPort() int {
	switch d {
	case DialectPostgres:
		return 5432
	case DialectMySQL:
		return 3306
	case DialectSQLServer:
		return 1433
	case DialectOracle:
		return 1521
	default:
		return 0
	}
}

func (d Dialect) String() string {
	return string(d)
}
