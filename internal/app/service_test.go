package app

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joacominatel/birdq/internal/config"
	"github.com/joacominatel/birdq/internal/runner"
)

type fakeRunner struct {
	healthy  bool
	settings runner.Settings
	closed   bool
	calls    int
	queryErr error
}

func (f *fakeRunner) Name() string { return "Fake" }
func (f *fakeRunner) Type() string { return "fake" }
func (f *fakeRunner) ConfigurationSchema() runner.ConfigurationSchema {
	return fakeSchema
}
func (f *fakeRunner) TestConnection(context.Context) bool { return f.healthy }
func (f *fakeRunner) SendQuery(context.Context, string) (json.RawMessage, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return json.RawMessage(`{"meta":[],"data":[]}`), nil
}
func (f *fakeRunner) RunQuery(_ context.Context, q string) (*runner.QueryResult, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return &runner.QueryResult{
		Columns: []runner.Column{{Name: "q", FriendlyName: "q", Type: runner.TypeString}},
		Rows:    []map[string]any{{"q": q}},
	}, nil
}
func (f *fakeRunner) GetTables(_ context.Context, schema runner.Schema) ([]runner.SchemaEntry, error) {
	f.calls++
	schema.Put(runner.SchemaEntry{Name: "events", Columns: []string{"id"}})
	if f.calls > 1 {
		schema.Put(runner.SchemaEntry{Name: "late_pipe", Columns: []string{"no_schema"}})
	}
	return schema.Entries(), nil
}
func (f *fakeRunner) Close() error {
	f.closed = true
	return nil
}

var fakeSchema = runner.ConfigurationSchema{
	Type:     "object",
	Required: []string{"token"},
	Secret:   []string{"token"},
}

type staticSecrets map[string]string

func (s staticSecrets) Resolve(conn config.Connection, _ runner.ConfigurationSchema) (runner.Settings, error) {
	settings := conn.Settings()
	if tok, ok := s[conn.Name]; ok {
		settings["token"] = tok
	}
	return settings, nil
}

func newTestService(t *testing.T, healthy bool) (*Service, *[]*fakeRunner) {
	t.Helper()
	var built []*fakeRunner
	reg := runner.NewRegistry()
	require.NoError(t, reg.RegisterFactory("fake", fakeSchema, func(s runner.Settings) (runner.Runner, error) {
		f := &fakeRunner{healthy: healthy, settings: s}
		built = append(built, f)
		return f, nil
	}))
	return NewService(reg, staticSecrets{"prod": "p.abc"}, nil), &built
}

func TestConnect(t *testing.T) {
	svc, built := newTestService(t, true)

	require.NoError(t, svc.Connect(context.Background(), config.Connection{Name: "prod", Type: "fake"}))
	assert.True(t, svc.Connected())
	assert.Equal(t, "prod", svc.ConnectionName())
	assert.Equal(t, "Fake", svc.RunnerName())
	require.Len(t, *built, 1)
	assert.Equal(t, "p.abc", (*built)[0].settings["token"])

	// Reconnecting closes the previous runner.
	require.NoError(t, svc.Connect(context.Background(), config.Connection{Name: "prod", Type: "fake"}))
	assert.True(t, (*built)[0].closed)

	require.NoError(t, svc.Disconnect())
	assert.True(t, (*built)[1].closed)
	assert.False(t, svc.Connected())
	assert.NoError(t, svc.Disconnect())
}

func TestConnectErrors(t *testing.T) {
	svc, built := newTestService(t, false)

	err := svc.Connect(context.Background(), config.Connection{Name: "prod", Type: "fake"})
	var connErr *ErrConnection
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "prod", connErr.Name)
	assert.True(t, (*built)[0].closed)
	assert.False(t, svc.Connected())

	err = svc.Connect(context.Background(), config.Connection{Name: "other", Type: "fake"})
	var cfgErr *ErrConfig
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "token")

	err = svc.Connect(context.Background(), config.Connection{Name: "x", Type: "mysql"})
	require.ErrorAs(t, err, &cfgErr)
	err = svc.Open(config.Connection{Name: "x", Type: "mysql"})
	require.ErrorAs(t, err, &cfgErr)
}

func TestOpenSkipsConnectionTest(t *testing.T) {
	svc, built := newTestService(t, false)

	require.NoError(t, svc.Open(config.Connection{Name: "prod", Type: "fake"}))
	assert.True(t, svc.Connected())
	assert.False(t, svc.Ping(context.Background()))

	// A failed Connect keeps the open runner.
	err := svc.Connect(context.Background(), config.Connection{Name: "prod", Type: "fake"})
	var connErr *ErrConnection
	require.ErrorAs(t, err, &connErr)
	require.Len(t, *built, 2)
	assert.False(t, (*built)[0].closed)
	assert.True(t, (*built)[1].closed)
	assert.True(t, svc.Connected())
}

// checkingRunner explains its failed connection test.
type checkingRunner struct {
	fakeRunner
	checkErr error
}

func (c *checkingRunner) Check(context.Context) error { return c.checkErr }

func TestConnectKeepsCheckCause(t *testing.T) {
	denied := &runner.Error{URL: "http://tb/v0/sql", StatusCode: 403, Message: `{"error":"invalid token"}`}
	reg := runner.NewRegistry()
	require.NoError(t, reg.RegisterFactory("checking", fakeSchema, func(runner.Settings) (runner.Runner, error) {
		return &checkingRunner{checkErr: denied}, nil
	}))
	svc := NewService(reg, nil, nil)

	err := svc.Connect(context.Background(), config.Connection{
		Name:    "prod",
		Type:    "checking",
		Options: map[string]any{"token": "wrong"},
	})
	var connErr *ErrConnection
	require.ErrorAs(t, err, &connErr)
	assert.ErrorIs(t, err, denied)
	assert.Contains(t, err.Error(), `{"error":"invalid token"}`)
	assert.False(t, svc.Connected())
}

func TestNotConnected(t *testing.T) {
	svc, _ := newTestService(t, true)

	_, err := svc.LoadSchema(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)
	_, err = svc.ExecuteQuery(context.Background(), "SELECT 1")
	assert.ErrorIs(t, err, ErrNotConnected)
	_, err = svc.SendQuery(context.Background(), "SELECT 1")
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.False(t, svc.Ping(context.Background()))
}

func TestLoadSchemaMerges(t *testing.T) {
	svc, _ := newTestService(t, true)
	require.NoError(t, svc.Connect(context.Background(), config.Connection{Name: "prod", Type: "fake"}))

	first, err := svc.LoadSchema(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, "events", first[0].Name)

	second, err := svc.LoadSchema(context.Background())
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Equal(t, "events", second[0].Name)
	assert.Equal(t, "late_pipe", second[1].Name)
}

// gatedRunner blocks schema discovery until release is closed.
type gatedRunner struct {
	fakeRunner
	table   string
	started chan struct{}
	release chan struct{}
}

func (g *gatedRunner) GetTables(_ context.Context, schema runner.Schema) ([]runner.SchemaEntry, error) {
	if g.release != nil {
		close(g.started)
		<-g.release
	}
	schema.Put(runner.SchemaEntry{Name: g.table})
	return schema.Entries(), nil
}

func TestLoadSchemaAcrossReconnect(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	reg := runner.NewRegistry()
	require.NoError(t, reg.RegisterFactory("gated", fakeSchema, func(s runner.Settings) (runner.Runner, error) {
		g := &gatedRunner{fakeRunner: fakeRunner{healthy: true}, table: s.String("table", "")}
		if g.table == "old_events" {
			g.started, g.release = started, release
		}
		return g, nil
	}))
	svc := NewService(reg, nil, nil)
	conn := func(table string) config.Connection {
		return config.Connection{Name: table, Type: "gated", Options: map[string]any{"token": "t", "table": table}}
	}

	require.NoError(t, svc.Open(conn("old_events")))
	loaded := make(chan []runner.SchemaEntry, 1)
	go func() {
		entries, _ := svc.LoadSchema(context.Background())
		loaded <- entries
	}()
	<-started

	// Discovery in flight must not block switching connections.
	switched := make(chan error, 1)
	go func() { switched <- svc.Open(conn("new_events")) }()
	select {
	case err := <-switched:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		close(release)
		t.Fatal("connect blocked on schema discovery")
	}

	close(release)
	old := <-loaded
	require.Len(t, old, 1)
	assert.Equal(t, "old_events", old[0].Name)

	entries, err := svc.LoadSchema(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "new_events", entries[0].Name)
}

func TestExecuteQuery(t *testing.T) {
	svc, built := newTestService(t, true)
	require.NoError(t, svc.Connect(context.Background(), config.Connection{Name: "prod", Type: "fake"}))
	assert.True(t, svc.Ping(context.Background()))

	exec, err := svc.ExecuteQuery(context.Background(), "SELECT 1")
	require.NoError(t, err)
	assert.NotEmpty(t, exec.ID)
	assert.Equal(t, "SELECT 1", exec.Result.Rows[0]["q"])

	raw, err := svc.SendQuery(context.Background(), "SELECT 1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"meta":[],"data":[]}`, string(raw))

	boom := errors.New("boom")
	(*built)[0].queryErr = boom
	_, err = svc.ExecuteQuery(context.Background(), "SELECT 2")
	var qErr *ErrQuery
	require.ErrorAs(t, err, &qErr)
	assert.Equal(t, "SELECT 2", qErr.Query)
	assert.NotEmpty(t, qErr.ID)
	assert.ErrorIs(t, err, boom)

	_, err = svc.SendQuery(context.Background(), "SELECT 3")
	assert.ErrorIs(t, err, boom)
}

func TestTinybirdConnection(t *testing.T) {
	conn := TinybirdConnection("", "p.secret")
	assert.Equal(t, "tinybird-api.tinybird.co", conn.Name)
	assert.Equal(t, "tinybird", conn.Type)
	assert.Equal(t, "https://api.tinybird.co", conn.Options["url"])
	assert.Equal(t, "p.secret", conn.Options["token"])

	conn = TinybirdConnection("https://api.us-east.tinybird.co", "tok")
	assert.Equal(t, "tinybird-api.us-east.tinybird.co", conn.Name)
}
