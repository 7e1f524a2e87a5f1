package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/meikuraledutech/nodegraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeFile(t, "nodegraph.yml", `
listen: ":9000"
store: postgres
database_url: postgres://localhost/graphs
log_level: debug
log_format: json
acyclic: false
history_size: 20
`)
	t.Setenv("NODEGRAPH_LISTEN", ":9100")
	t.Setenv("NODEGRAPH_ACYCLIC", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Listen)
	assert.Equal(t, DriverPostgres, cfg.Store)
	assert.Equal(t, "postgres://localhost/graphs", cfg.DatabaseURL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.True(t, cfg.Acyclic)
	assert.Equal(t, 20, cfg.HistorySize)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "bad.yml", "listen: [oops"))
	assert.Error(t, err)

	t.Setenv("NODEGRAPH_STORE", DriverSQLite)
	t.Setenv("NODEGRAPH_ACYCLIC", "maybe")
	_, err = Load("")
	assert.ErrorContains(t, err, "NODEGRAPH_ACYCLIC")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"postgres without url", func(c *Config) { c.Store = DriverPostgres }, "database_url"},
		{"sqlite without path", func(c *Config) { c.SQLitePath = "" }, "sqlite_path"},
		{"unknown store", func(c *Config) { c.Store = "mongo" }, `unknown store "mongo"`},
		{"unknown format", func(c *Config) { c.LogFormat = "xml" }, "log format"},
		{"negative history", func(c *Config) { c.HistorySize = -1 }, "history_size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestCatalog_Registry(t *testing.T) {
	path := writeFile(t, "types.yml", `
types:
  - name: add
    caption: Add
    resizable: true
    in:
      - data_type: {id: number, name: Number}
        caption: a
        caption_visible: true
      - data_type: {id: number, name: Number}
    out:
      - data_type: {id: number, name: Number}
  - name: display
    caption: Display
    caption_visible: false
    in:
      - data_type: {id: number}
        policy: many
`)
	cat, err := LoadCatalog(path)
	require.NoError(t, err)
	r, err := cat.Registry()
	require.NoError(t, err)
	assert.Equal(t, []string{"add", "display"}, r.Types())

	add, ok := r.Lookup("add")
	require.True(t, ok)
	assert.Equal(t, "Add", add.Caption)
	assert.True(t, add.CaptionVisible)
	assert.True(t, add.Flags.Has(nodegraph.FlagResizable))
	require.Len(t, add.In, 2)
	assert.Equal(t, nodegraph.PortSpec{
		DataType:       nodegraph.DataType{ID: "number", Name: "Number"},
		Policy:         nodegraph.PolicyOne,
		Caption:        "a",
		CaptionVisible: true,
	}, add.In[0])
	require.Len(t, add.Out, 1)
	assert.Equal(t, nodegraph.PolicyMany, add.Out[0].Policy)

	display, ok := r.Lookup("display")
	require.True(t, ok)
	assert.False(t, display.CaptionVisible)
	assert.Equal(t, nodegraph.PolicyMany, display.In[0].Policy)
	assert.Empty(t, display.Out)
}

func TestCatalog_Errors(t *testing.T) {
	dup := &Catalog{Types: []NodeType{{Name: "a"}, {Name: "a"}}}
	_, err := dup.Registry()
	assert.ErrorIs(t, err, nodegraph.ErrDuplicateNodeType)

	unnamed := &Catalog{Types: []NodeType{{Caption: "no name"}}}
	_, err = unnamed.Registry()
	assert.ErrorContains(t, err, "name is required")

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}
