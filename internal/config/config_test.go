package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/plotconfig/internal/types"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "catalog.cue", cfg.Catalog.Seed)
	assert.Equal(t, 30*time.Minute, cfg.Session.IdleTimeout)
	assert.Equal(t, types.AxisSingle, cfg.Editor.DefaultAxisMode)
	assert.True(t, cfg.DiscardStale())
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"valid default config", func(c *Config) {}, false},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, true},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, true},
		{"missing seed", func(c *Config) { c.Catalog.Seed = "" }, true},
		{"aggregate axis mode", func(c *Config) { c.Editor.DefaultAxisMode = types.AxisAggregate }, false},
		{"unknown axis mode", func(c *Config) { c.Editor.DefaultAxisMode = "both" }, true},
		{"negative idle timeout", func(c *Config) { c.Session.IdleTimeout = -time.Second }, true},
		{"zero cleanup interval", func(c *Config) { c.Session.CleanupInterval = 0 }, true},
		{"debug level", func(c *Config) { c.Log.Level = "DEBUG" }, false},
		{"unknown level", func(c *Config) { c.Log.Level = "loud" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plotd.yaml")
	content := `
server:
  port: 9090
catalog:
  seed: /srv/catalog.cue
  dsn: "file:catalog.db"
session:
  idle_timeout: 5m
editor:
  default_axis_mode: aggregate
  discard_stale: false
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/srv/catalog.cue", cfg.Catalog.Seed)
	assert.Equal(t, "file:catalog.db", cfg.Catalog.DSN)
	assert.Equal(t, 5*time.Minute, cfg.Session.IdleTimeout)
	assert.Equal(t, 24*time.Hour, cfg.Session.MaxAge, "unset fields keep defaults")
	assert.Equal(t, types.AxisAggregate, cfg.Editor.DefaultAxisMode)
	assert.False(t, cfg.DiscardStale())
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
}

func TestLoadFromFile_Errors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o644))
	_, err = LoadFromFile(path)
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()
	base.Merge(&Config{
		Server:   ServerConfig{Port: 7000},
		Session:  SessionConfig{MaxAge: time.Hour},
		Editor:   EditorConfig{DiscardStale: types.Bool(false)},
		Snapshot: SnapshotConfig{DSN: "file:snap.db"},
	})

	assert.Equal(t, 7000, base.Server.Port)
	assert.Equal(t, time.Hour, base.Session.MaxAge)
	assert.Equal(t, 30*time.Minute, base.Session.IdleTimeout)
	assert.Equal(t, "catalog.cue", base.Catalog.Seed)
	assert.False(t, base.DiscardStale())
	assert.Equal(t, "file:snap.db", base.Snapshot.DSN)

	base.Merge(nil)
	assert.Equal(t, 7000, base.Server.Port)
}

func testLoader(t *testing.T, home, dir string, env map[string]string) *Loader {
	t.Helper()
	l := NewLoader(nil)
	l.home = home
	l.dir = dir
	l.getenv = func(k string) string { return env[k] }
	return l
}

func TestLoader_Layers(t *testing.T) {
	home := t.TempDir()
	userDir := filepath.Join(home, UserConfigDir)
	require.NoError(t, os.MkdirAll(userDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(userDir, UserConfigFile), []byte("server:\n  port: 9000\nlog:\n  level: warn\n"), 0o644))

	project := t.TempDir()
	nested := filepath.Join(project, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(project, ProjectConfigFile), []byte("catalog:\n  seed: seeds/catalog.cue\nlog:\n  level: debug\n"), 0o644))

	cfg, err := testLoader(t, home, nested, nil).Load("")
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port, "user value survives a project file that does not set it")
	assert.Equal(t, "debug", cfg.Log.Level, "project overrides user")
	assert.Equal(t, filepath.Join(project, "seeds", "catalog.cue"), cfg.Catalog.Seed)
}

func TestLoader_Env(t *testing.T) {
	env := map[string]string{EnvPort: "8181", EnvCatalogSeed: "/tmp/seed.cue"}
	cfg, err := testLoader(t, t.TempDir(), t.TempDir(), env).Load("")
	require.NoError(t, err)
	assert.Equal(t, 8181, cfg.Server.Port)
	assert.Equal(t, "/tmp/seed.cue", cfg.Catalog.Seed)

	_, err = testLoader(t, "", "", map[string]string{EnvPort: "eighty"}).Load("")
	assert.ErrorContains(t, err, EnvPort)
}

func TestLoader_ExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 0\neditor:\n  default_axis_mode: sideways\n"), 0o644))

	_, err := testLoader(t, "", "", nil).Load(path)
	assert.ErrorContains(t, err, "default_axis_mode")

	_, err = testLoader(t, "", "", nil).Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
