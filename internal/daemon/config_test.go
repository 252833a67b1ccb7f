package daemon

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "127.0.0.1", cfg.API.Host)
	assert.Equal(t, 8420, cfg.API.Port)
	assert.Equal(t, int64(10), cfg.Engagement.XPPerCompletion)
	assert.Equal(t, 366, cfg.Engagement.LookbackDays)
	assert.Equal(t, 3, cfg.Notifications.MaxPerDay)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HABITLOOP_HOME", home)
	chdir(t, t.TempDir())

	require.NoError(t, os.WriteFile(filepath.Join(home, "config.toml"), []byte(`
[api]
port = 9000

[engagement]
xp_per_completion = 25

[notifications]
quiet_start = "23:00"
`), 0600))

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.API.Port)
	assert.Equal(t, int64(25), cfg.Engagement.XPPerCompletion)
	assert.Equal(t, "23:00", cfg.Notifications.QuietStart)
	assert.Equal(t, "08:00", cfg.Notifications.QuietEnd, "unset keys keep defaults")

	t.Setenv("HABITLOOP_API_PORT", "9100")
	t.Setenv("HABITLOOP_LOG_LEVEL", "DEBUG")
	cfg, err = LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.API.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	home := t.TempDir()
	wd := t.TempDir()
	chdir(t, wd)
	require.NoError(t, os.WriteFile(filepath.Join(wd, ".env"), []byte("HABITLOOP_HOME="+home+"\nHABITLOOP_API_PORT=9200\n"), 0600))
	t.Setenv("HABITLOOP_HOME", "")
	t.Setenv("HABITLOOP_API_PORT", "")
	os.Unsetenv("HABITLOOP_HOME")
	os.Unsetenv("HABITLOOP_API_PORT")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 9200, cfg.API.Port)
	assert.Equal(t, filepath.Join(home, "config.toml"), ConfigPath())
}

func TestLoadConfig_BadEnvPort(t *testing.T) {
	t.Setenv("HABITLOOP_HOME", t.TempDir())
	chdir(t, t.TempDir())
	t.Setenv("HABITLOOP_API_PORT", "eighty")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.API.Port = 0 }},
		{"port too high", func(c *Config) { c.API.Port = 70000 }},
		{"negative xp", func(c *Config) { c.Engagement.XPPerCompletion = -1 }},
		{"lookback too long", func(c *Config) { c.Engagement.LookbackDays = 400 }},
		{"stats window", func(c *Config) { c.Engagement.StatsWindowDays = 0 }},
		{"bad quiet start", func(c *Config) { c.Notifications.QuietStart = "10pm" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	t.Setenv("HABITLOOP_HOME", t.TempDir())
	chdir(t, t.TempDir())

	cfg := DefaultConfig()
	cfg.API.Port = 9300
	require.NoError(t, SaveConfig(cfg))

	loaded, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 9300, loaded.API.Port)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(LoggingConfig{Level: "warn", Format: "json"}, &buf)
	log.Info("hidden")
	log.Warn("shown", "k", "v")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
}

func TestDaemon_WiresAndServes(t *testing.T) {
	home := t.TempDir()
	cfg := DefaultConfig()
	cfg.API.Port = 18420 + int(time.Now().UnixNano()%1000)

	d, err := NewWithConfig(cfg, home)
	require.NoError(t, err)
	defer d.Close()

	u, err := d.Habits.CreateUser(context.Background(), "Ada")
	require.NoError(t, err)
	_, err = d.Tracker.Refresh(context.Background(), u.ID)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Serve(ctx) }()
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestDaemon_BadCatalog(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engagement.CatalogFile = filepath.Join(t.TempDir(), "missing.toml")
	_, err := NewWithConfig(cfg, t.TempDir())
	assert.Error(t, err)
}

// chdir changes the working directory for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(old) })
}
