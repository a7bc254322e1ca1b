package sqlbridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDialect(t *testing.T) {
	cases := map[string]Dialect{
		"postgres":   DialectPostgres,
		"postgresql": DialectPostgres,
		"pgx":        DialectPostgres,
		"MySQL":      DialectMySQL,
		"mariadb":    DialectMySQL,
		"sqlite":     DialectSQLite,
		"sqlite3":    DialectSQLite,
		"mssql":      DialectSQLServer,
		"sqlserver":  DialectSQLServer,
		"oracle":     DialectOracle,
		" postgres ": DialectPostgres,
	}
	for name, want := range cases {
		got, err := ParseDialect(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}

func TestParseDialectUnknown(t *testing.T) {
	_, err := ParseDialect("cockroach")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownDialect)
}

func TestDriverName(t *testing.T) {
	assert.Equal(t, "pgx", DialectPostgres.DriverName())
	assert.Equal(t, "mysql", DialectMySQL.DriverName())
	assert.Equal(t, "sqlite", DialectSQLite.DriverName())
	assert.Equal(t, "sqlserver", DialectSQLServer.DriverName())
	assert.Equal(t, "oracle", DialectOracle.DriverName())
}

func TestDefaultPort(t *testing.T) {
	assert.Equal(t, 5432, DialectPostgres.DefaultPort())
	assert.Equal(t, 3306, DialectMySQL.DefaultPort())
	assert.Equal(t, 1433, DialectSQLServer.DefaultPort())
	assert.Equal(t, 1521, DialectOracle.DefaultPort())
	assert.Equal(t, 0, DialectSQLite.DefaultPort())
}
