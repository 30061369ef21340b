package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

const testToken = "p.test-token"

func newTinybird(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testToken {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":"invalid token"}`))
			return
		}
		switch r.URL.Path {
		case "/v0/sql":
			if strings.Contains(r.URL.Query().Get("q"), "pipe_stats") {
				_, _ = w.Write([]byte(`{"meta":[{"name":"count()","type":"UInt64"}],"data":[{"count()":"1"}]}`))
				return
			}
			_, _ = w.Write([]byte(`{"meta":[{"name":"country","type":"String"},{"name":"hits","type":"UInt64"}],"data":[{"country":"es","hits":"10"}],"rows":1}`))
		case "/v0/datasources":
			_, _ = w.Write([]byte(`{"datasources":[{"name":"events","columns":[{"name":"id"},{"name":"ts"}],"statistics":{"row_count":1234}}]}`))
		case "/v0/pipes":
			_, _ = w.Write([]byte(`{"pipes":[{"name":"top_pages","endpoint":"t_abc"},{"name":"draft","endpoint":null}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// run executes the command tree against an isolated config dir.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("TB_TOKEN", "")
	t.Setenv("TB_HOST", "")

	var out, errOut bytes.Buffer
	cmd := NewRootCommand(&out, &errOut)
	cmd.SetArgs(append([]string{"--config", dir}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestQueryTable(t *testing.T) {
	srv := newTinybird(t)
	out, err := run(t, t.TempDir(), "--url", srv.URL, "--token", testToken, "query", "SELECT", "country, hits", "FROM", "events")
	require.NoError(t, err)
	assert.Contains(t, out, "country")
	assert.Contains(t, out, "es")
	assert.Contains(t, out, "10")
	assert.Contains(t, out, "1 row(s)")
}

func TestQueryJSON(t *testing.T) {
	srv := newTinybird(t)
	out, err := run(t, t.TempDir(), "--url", srv.URL, "--token", testToken, "query", "--json", "SELECT 1")
	require.NoError(t, err)

	var got struct {
		ID      string           `json:"id"`
		Columns []map[string]any `json:"columns"`
		Rows    []map[string]any `json:"rows"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.NotEmpty(t, got.ID)
	require.Len(t, got.Columns, 2)
	assert.Equal(t, "integer", got.Columns[1]["type"])
	require.Len(t, got.Rows, 1)
	assert.Equal(t, float64(10), got.Rows[0]["hits"])
}

func TestQueryRaw(t *testing.T) {
	srv := newTinybird(t)
	out, err := run(t, t.TempDir(), "--url", srv.URL, "--token", testToken, "query", "--raw", "SELECT 1 FORMAT JSON")
	require.NoError(t, err)
	assert.Contains(t, out, `"hits":"10"`)
}

func TestQueryFlagsExclusive(t *testing.T) {
	_, err := run(t, t.TempDir(), "--token", testToken, "query", "--raw", "--json", "SELECT 1")
	require.Error(t, err)
}

func TestQueryReportsBackendError(t *testing.T) {
	srv := newTinybird(t)
	for _, args := range [][]string{
		{"query", "SELECT 1"},
		{"query", "--raw", "SELECT 1"},
		{"tables"},
	} {
		_, err := run(t, t.TempDir(), append([]string{"--url", srv.URL, "--token", "wrong"}, args...)...)
		require.Error(t, err, args)
		assert.Contains(t, err.Error(), `{"error":"invalid token"}`, args)
	}
}

func TestQueryWithoutStatsAccess(t *testing.T) {
	var statsCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Query().Get("q"), "pipe_stats") {
			statsCalls++
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":"not enough permissions"}`))
			return
		}
		_, _ = w.Write([]byte(`{"meta":[{"name":"n","type":"UInt8"}],"data":[{"n":1}],"rows":1}`))
	}))
	t.Cleanup(srv.Close)

	out, err := run(t, t.TempDir(), "--url", srv.URL, "--token", testToken, "query", "SELECT 1 AS n")
	require.NoError(t, err)
	assert.Contains(t, out, "1 row(s)")
	assert.Zero(t, statsCalls)

	_, err = run(t, t.TempDir(), "--url", srv.URL, "--token", testToken, "ping")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not enough permissions")
	assert.Equal(t, 1, statsCalls)
}

func TestTables(t *testing.T) {
	srv := newTinybird(t)
	out, err := run(t, t.TempDir(), "--url", srv.URL, "--token", testToken, "tables")
	require.NoError(t, err)
	assert.Contains(t, out, "events")
	assert.Contains(t, out, "1,234")
	assert.Contains(t, out, "id, ts")
	assert.Contains(t, out, "top_pages")
	assert.Contains(t, out, "no_schema")
	assert.NotContains(t, out, "draft")
}

func TestTablesJSON(t *testing.T) {
	srv := newTinybird(t)
	out, err := run(t, t.TempDir(), "--url", srv.URL, "--token", testToken, "tables", "--json")
	require.NoError(t, err)

	var entries []struct {
		Name    string   `json:"name"`
		Columns []string `json:"columns"`
		Size    *int64   `json:"size"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "events", entries[0].Name)
	require.NotNil(t, entries[0].Size)
	assert.Equal(t, int64(1234), *entries[0].Size)
	assert.Equal(t, []string{"no_schema"}, entries[1].Columns)
}

func TestPing(t *testing.T) {
	srv := newTinybird(t)
	out, err := run(t, t.TempDir(), "--url", srv.URL, "--token", testToken, "ping")
	require.NoError(t, err)
	assert.Equal(t, "ok: tinybird-127.0.0.1 (Tinybird)\n", out)

	_, err = run(t, t.TempDir(), "--url", srv.URL, "--token", "wrong", "ping")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `{"error":"invalid token"}`)
}

func TestNoConnection(t *testing.T) {
	_, err := run(t, t.TempDir(), "ping")
	require.ErrorIs(t, err, errNoConnection)

	_, err = run(t, t.TempDir(), "-c", "missing", "ping")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `connection "missing" not found`)
}

func TestSchema(t *testing.T) {
	out, err := run(t, t.TempDir(), "schema")
	require.NoError(t, err)
	assert.Equal(t, "pg\ntinybird\n", out)

	out, err = run(t, t.TempDir(), "schema", "tinybird")
	require.NoError(t, err)
	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &schema))
	assert.Equal(t, []any{"token"}, schema["secret"])
	assert.Contains(t, out, "Auth Token")

	_, err = run(t, t.TempDir(), "schema", "mysql")
	require.Error(t, err)
}

func TestConnectionsLifecycle(t *testing.T) {
	keyring.MockInit()
	srv := newTinybird(t)
	dir := t.TempDir()

	out, err := run(t, dir, "connections", "list")
	require.NoError(t, err)
	assert.Equal(t, "no saved connections\n", out)

	out, err = run(t, dir, "--url", srv.URL, "--token", testToken, "connections", "add", "prod", "-o", "timeout=5", "--default")
	require.NoError(t, err)
	assert.Contains(t, out, "saved connection prod")

	raw, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), testToken)
	assert.Contains(t, string(raw), "prod")

	_, err = run(t, dir, "--token", testToken, "connections", "add", "prod")
	require.Error(t, err)

	out, err = run(t, dir, "connections", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "prod")
	assert.Contains(t, out, "*")

	// The token comes back from the keyring.
	out, err = run(t, dir, "-c", "prod", "ping")
	require.NoError(t, err)
	assert.Equal(t, "ok: prod (Tinybird)\n", out)

	// Default connection without flags.
	_, err = run(t, dir, "ping")
	require.NoError(t, err)

	out, err = run(t, dir, "connections", "remove", "prod")
	require.NoError(t, err)
	assert.Equal(t, "removed connection prod\n", out)

	out, err = run(t, dir, "connections", "list")
	require.NoError(t, err)
	assert.Equal(t, "no saved connections\n", out)
}

func TestConnectionsAddValidates(t *testing.T) {
	keyring.MockInit()
	dir := t.TempDir()

	_, err := run(t, dir, "connections", "add", "prod")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing required setting "token"`)

	_, err = run(t, dir, "--token", testToken, "connections", "add", "prod", "-o", "timeout=0")
	require.Error(t, err)

	_, err = run(t, dir, "connections", "add", "db", "--type", "mysql")
	require.Error(t, err)

	_, err = run(t, dir, "connections", "remove", "ghost")
	require.Error(t, err)
}
