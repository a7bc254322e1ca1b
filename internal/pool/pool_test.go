package pool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/driftworks/sqlbridge/internal/profiles"
)

func loadTestProfiles(t *testing.T, names ...string) *profiles.File {
	t.Helper()

	contents := ""
	for _, name := range names {
		contents += fmt.Sprintf("[connections.%s]\ndialect = \"sqlite\"\ndatabase = %q\n\n",
			name, filepath.Join(t.TempDir(), name+".db"))
	}
	path := filepath.Join(t.TempDir(), "sqlbridge.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	f, err := profiles.Load(path)
	require.NoError(t, err)
	return f
}

func TestGetReturnsSameConnector(t *testing.T) {
	mgr := NewManager(loadTestProfiles(t, "main"))
	defer mgr.Close()

	first, err := mgr.Get("main")
	require.NoError(t, err)
	second, err := mgr.Get("main")
	require.NoError(t, err)
	assert.Same(t, first, second)

	require.NoError(t, first.Ping(context.Background()))
}

func TestGetUnknownConnection(t *testing.T) {
	mgr := NewManager(loadTestProfiles(t, "main"))
	defer mgr.Close()

	_, err := mgr.Get("other")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownConnection)
	assert.Contains(t, err.Error(), `unknown connection "other"`)
}

func TestReloadSwapsConnections(t *testing.T) {
	mgr := NewManager(loadTestProfiles(t, "old"))
	defer mgr.Close()

	conn, err := mgr.Get("old")
	require.NoError(t, err)
	require.NoError(t, conn.Ping(context.Background()))

	mgr.Reload(loadTestProfiles(t, "new"))

	assert.Equal(t, []string{"new"}, mgr.Names())
	_, err = mgr.Get("old")
	require.Error(t, err)

	fresh, err := mgr.Get("new")
	require.NoError(t, err)
	assert.NotSame(t, conn, fresh)
}
