package keepalive

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/driftworks/sqlbridge/internal/pool"
	"github.com/driftworks/sqlbridge/internal/profiles"
)

func testManager(t *testing.T) *pool.Manager {
	t.Helper()

	contents := fmt.Sprintf("[connections.main]\ndialect = \"sqlite\"\ndatabase = %q\n",
		filepath.Join(t.TempDir(), "main.db"))
	path := filepath.Join(t.TempDir(), "sqlbridge.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	f, err := profiles.Load(path)
	require.NoError(t, err)

	mgr := pool.NewManager(f)
	t.Cleanup(mgr.Close)
	return mgr
}

func TestNewRejectsBadInterval(t *testing.T) {
	mgr := testManager(t)

	_, err := New(mgr, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be positive")

	_, err = New(mgr, -time.Second)
	require.Error(t, err)
}

func TestRunOpensConnections(t *testing.T) {
	mgr := testManager(t)

	r, err := New(mgr, time.Minute)
	require.NoError(t, err)

	// A sweep should open the pooled connector and leave it healthy.
	r.run()

	conn, err := mgr.Get("main")
	require.NoError(t, err)
	assert.Positive(t, conn.Stats().OpenConnections)
}

func TestStartStop(t *testing.T) {
	mgr := testManager(t)

	r, err := New(mgr, time.Minute)
	require.NoError(t, err)

	r.Start()
	r.Stop()
}
