package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"github.com/driftworks/sqlbridge/internal/pool"
	"github.com/driftworks/sqlbridge/internal/profiles"
)

func newTestServer(t *testing.T, tokenHash string) *Server {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	path := filepath.Join(t.TempDir(), "sqlbridge.toml")
	contents := fmt.Sprintf(`
[connections.main]
dialect = "sqlite"
database = %q
`, dbPath)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	f, err := profiles.Load(path)
	require.NoError(t, err)

	mgr := pool.NewManager(f)
	t.Cleanup(mgr.Close)
	return NewServer(mgr, "127.0.0.1:0", tokenHash)
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, "")
	rec := doJSON(t, s.Handler(), http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListConnections(t *testing.T) {
	s := newTestServer(t, "")
	rec := doJSON(t, s.Handler(), http.MethodGet, "/api/connections", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Connections []string `json:"connections"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"main"}, resp.Connections)
}

func TestExecuteAndQuery(t *testing.T) {
	s := newTestServer(t, "")
	h := s.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/connections/main/execute", executeRequest{
		Statement: "CREATE TABLE customers (id INTEGER PRIMARY KEY, name TEXT)",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, h, http.MethodPost, "/api/connections/main/execute", executeRequest{
		Statement: "INSERT INTO customers (id, name) VALUES (?, ?)",
		ArgSets:   [][]any{{1, "Alice"}, {2, "Bob"}, {3, "Carol"}},
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, h, http.MethodPost, "/api/connections/main/query", queryRequest{
		Statement: "SELECT name FROM customers ORDER BY id",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Rows  []map[string]any `json:"rows"`
		Count int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Count)
	assert.Equal(t, "Alice", resp.Rows[0]["name"])
}

func TestQueryWithLimitPagesCursor(t *testing.T) {
	s := newTestServer(t, "")
	h := s.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/connections/main/execute", executeRequest{
		Statement: "CREATE TABLE items (id INTEGER PRIMARY KEY)",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/connections/main/execute", executeRequest{
		Statement: "INSERT INTO items (id) VALUES (?)",
		ArgSets:   [][]any{{1}, {2}, {3}},
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	page := func() []map[string]any {
		rec := doJSON(t, h, http.MethodPost, "/api/connections/main/query", queryRequest{
			Statement: "SELECT id FROM items ORDER BY id",
			Limit:     2,
		}, "")
		require.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Rows []map[string]any `json:"rows"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp.Rows
	}

	first := page()
	require.Len(t, first, 2)
	assert.EqualValues(t, 1, first[0]["id"])

	// Identical request continues the open cursor.
	second := page()
	require.Len(t, second, 1)
	assert.EqualValues(t, 3, second[0]["id"])
}

func TestQueryValidation(t *testing.T) {
	s := newTestServer(t, "")
	h := s.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/connections/main/query", queryRequest{}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "statement is required")

	rec = doJSON(t, h, http.MethodPost, "/api/connections/nope/query", queryRequest{
		Statement: "SELECT 1",
	}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBearerAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("letmein"), bcrypt.MinCost)
	require.NoError(t, err)

	s := newTestServer(t, string(hash))
	h := s.Handler()

	rec := doJSON(t, h, http.MethodGet, "/api/connections", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/connections", nil, "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/connections", nil, "letmein")
	assert.Equal(t, http.StatusOK, rec.Code)

	// healthz stays open
	rec = doJSON(t, h, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
