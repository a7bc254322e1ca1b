// Package profiles loads named connection definitions from a TOML file.
// Profiles are the stored-configuration side of the adapter: flow authors
// and the serve mode refer to connections by name instead of carrying
// credentials around.
package profiles

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/driftworks/sqlbridge"
)

// File is the parsed profiles file.
type File struct {
	Server      Server                `toml:"server"`
	Connections map[string]Connection `toml:"connections"`
}

// Server configures the optional HTTP serve mode.
type Server struct {
	Listen            string `toml:"listen"`
	TokenHash         string `toml:"token_hash"`
	KeepaliveInterval string `toml:"keepalive_interval"`
}

// Keepalive parses the keepalive interval; zero disables keepalive.
func (s Server) Keepalive() (time.Duration, error) {
	if s.KeepaliveInterval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.KeepaliveInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid keepalive_interval %q: %w", s.KeepaliveInterval, err)
	}
	return d, nil
}

// Pool mirrors sqlbridge.PoolConfig with TOML-friendly duration strings.
type Pool struct {
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	ConnMaxLifetime string `toml:"conn_max_lifetime"`
	ConnMaxIdleTime string `toml:"conn_max_idle_time"`
}

// Connection is one named connection. Either a raw URL with a driver name,
// or assembled components.
type Connection struct {
	URL      string            `toml:"url"`
	Driver   string            `toml:"driver"`
	Dialect  string            `toml:"dialect"`
	Username string            `toml:"username"`
	Password string            `toml:"password"`
	Host     string            `toml:"host"`
	Port     int               `toml:"port"`
	Database string            `toml:"database"`
	Query    map[string]string `toml:"query"`
	Pool     Pool              `toml:"pool"`
}

// Config assembles the sqlbridge configuration for the connection.
func (c Connection) Config() (sqlbridge.Config, error) {
	pool, err := c.poolConfig()
	if err != nil {
		return sqlbridge.Config{}, err
	}

	if c.URL != "" {
		return sqlbridge.Config{URL: c.URL, Driver: c.Driver, Pool: pool}, nil
	}

	dialect, err := sqlbridge.ParseDialect(c.Dialect)
	if err != nil {
		return sqlbridge.Config{}, err
	}
	return sqlbridge.Config{
		Components: &sqlbridge.ConnectionComponents{
			Dialect:  dialect,
			Username: c.Username,
			Password: sqlbridge.Secret(c.Password),
			Host:     c.Host,
			Port:     c.Port,
			Database: c.Database,
			Query:    c.Query,
		},
		Pool: pool,
	}, nil
}

func (c Connection) poolConfig() (sqlbridge.PoolConfig, error) {
	pool := sqlbridge.PoolConfig{
		MaxOpenConns: c.Pool.MaxOpenConns,
		MaxIdleConns: c.Pool.MaxIdleConns,
	}
	var err error
	if c.Pool.ConnMaxLifetime != "" {
		if pool.ConnMaxLifetime, err = time.ParseDuration(c.Pool.ConnMaxLifetime); err != nil {
			return pool, fmt.Errorf("invalid conn_max_lifetime %q: %w", c.Pool.ConnMaxLifetime, err)
		}
	}
	if c.Pool.ConnMaxIdleTime != "" {
		if pool.ConnMaxIdleTime, err = time.ParseDuration(c.Pool.ConnMaxIdleTime); err != nil {
			return pool, fmt.Errorf("invalid conn_max_idle_time %q: %w", c.Pool.ConnMaxIdleTime, err)
		}
	}
	return pool, nil
}

// Load reads and validates a profiles file. Passwords can be supplied or
// overridden through SQLBRIDGE_<NAME>_PASSWORD environment variables.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles file: %w", err)
	}

	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse profiles file: %w", err)
	}

	for name, conn := range f.Connections {
		if env := os.Getenv(passwordEnv(name)); env != "" {
			conn.Password = env
			f.Connections[name] = conn
		}
		cfg, err := conn.Config()
		if err != nil {
			return nil, fmt.Errorf("connection %q: %w", name, err)
		}
		if _, err := sqlbridge.NewConnector(cfg); err != nil {
			return nil, fmt.Errorf("connection %q: %w", name, err)
		}
	}
	if _, err := f.Server.Keepalive(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Names returns the connection names in sorted order.
func (f *File) Names() []string {
	names := make([]string, 0, len(f.Connections))
	for name := range f.Connections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func passwordEnv(name string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)
	return "SQLBRIDGE_" + strings.ToUpper(mapped) + "_PASSWORD"
}
