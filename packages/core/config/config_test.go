package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "hostline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 50.0, cfg.RateLimit)
	assert.Equal(t, 1, cfg.Burst)
	assert.Equal(t, 60*time.Second, cfg.Timeout())
	assert.Equal(t, DefaultWorkers, cfg.Workers)
	assert.Empty(t, cfg.Journal)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
rateLimit: 20
burst: 2
defaultTimeout: 5000
workers: 8
journal: sqlite://hostline.db
log:
  level: debug
  format: json
  noColor: true
`))
	require.NoError(t, err)

	assert.Equal(t, 20.0, cfg.RateLimit)
	assert.Equal(t, 2, cfg.Burst)
	assert.Equal(t, 5*time.Second, cfg.Timeout())
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, "sqlite://hostline.db", cfg.Journal)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.Log.NoColor)

	hq := cfg.Hostq()
	assert.Equal(t, 20.0, hq.Rate)
	assert.Equal(t, 2, hq.Burst)
}

func TestParse_PartialKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte("rateLimit: 5\n"))
	require.NoError(t, err)

	assert.Equal(t, 5.0, cfg.RateLimit)
	assert.Equal(t, 1, cfg.Burst)
	assert.Equal(t, DefaultTimeoutMs, cfg.DefaultTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_ZeroTimeoutIsUnbounded(t *testing.T) {
	cfg, err := Parse([]byte("defaultTimeout: 0\n"))
	require.NoError(t, err)
	assert.Equal(t, time.Duration(2147483647)*time.Millisecond, cfg.Timeout())
}

func TestParse_SchemaErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"zero rate", "rateLimit: 0"},
		{"negative burst", "burst: -1"},
		{"fractional timeout", "defaultTimeout: 1.5"},
		{"unknown key", "retries: 3"},
		{"bad level", "log:\n  level: loud"},
		{"bad format", "log:\n  format: xml"},
		{"not a map", "- a\n- b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("rateLimit: [1"))
	assert.Error(t, err)
}

func TestFindAndLoad(t *testing.T) {
	dir := t.TempDir()

	cfg, err := FindAndLoad(dir)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	writeConfig(t, dir, "rateLimit: 7\n")
	cfg, err = FindAndLoad(dir)
	require.NoError(t, err)
	assert.Equal(t, 7.0, cfg.RateLimit)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "rateLimit: 7\n")
	t.Setenv(EnvRateLimit, "12.5")
	t.Setenv(EnvLogLevel, "WARN")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 12.5, cfg.RateLimit)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_InvalidEnv(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "")

	t.Setenv(EnvRateLimit, "fast")
	_, err := Load(path)
	assert.Error(t, err)

	t.Setenv(EnvRateLimit, "-1")
	_, err = Load(path)
	assert.Error(t, err)
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "rateLimit: 5\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 16)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(cfg *Config, err error) {
			if err == nil {
				reloaded <- cfg
			}
		})
	}()

	// The watcher starts asynchronously; keep rewriting until a reload lands.
	var got *Config
	require.Eventually(t, func() bool {
		select {
		case got = <-reloaded:
			return true
		default:
		}
		_ = os.WriteFile(path, []byte("rateLimit: 9\n"), 0o644)
		return false
	}, 5*time.Second, 500*time.Millisecond)
	assert.Equal(t, 9.0, got.RateLimit)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestWatch_NoPath(t *testing.T) {
	assert.Error(t, Watch(context.Background(), "", func(*Config, error) {}))
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "rateLimit: 7\n")
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("# node limits\nHOSTLINE_RATE_LIMIT=33\n"), 0o644))

	require.NoError(t, os.Unsetenv(EnvRateLimit))
	t.Cleanup(func() { _ = os.Unsetenv(EnvRateLimit) })

	require.NoError(t, LoadEnvFile(envFile))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 33.0, cfg.RateLimit)
}

func TestLoadEnvFile_KeepsExistingValues(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("HOSTLINE_RATE_LIMIT=33\n"), 0o644))
	t.Setenv(EnvRateLimit, "8")

	require.NoError(t, LoadEnvFile(envFile))
	assert.Equal(t, "8", os.Getenv(EnvRateLimit))
}

func TestLoadEnvFile_Missing(t *testing.T) {
	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), ".env")))
}
