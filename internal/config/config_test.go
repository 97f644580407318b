package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetDefaults(t *testing.T) {
	cfg := &Config{HomeDir: "/home/deck"}
	cfg.SetDefaults()

	assert.Equal(t, defaultSubsDir, cfg.SubsDir)
	assert.Equal(t, LogLevelInfo, cfg.LogLevel)
	assert.Equal(t, 10*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, defaultUpdateWorkers, cfg.Update.Workers)
	assert.Equal(t, []string{"-f", ConfigPathPlaceholder}, cfg.Engine.Args)
	assert.Equal(t, "clash", cfg.Engine.ProcessName)
	assert.Equal(t, "/home/deck/.config/tomoon/tomoon.yaml", cfg.SettingsPath())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")

	content := `home_dir: /opt/deck
listen: 0.0.0.0:9000
log_level: debug
fetch:
  timeout: 3s
engine:
  binary: /usr/bin/mihomo
  args: ["-d", "/tmp", "-f", "{config}"]
network:
  reset_commands:
    - ["ip", "route", "flush", "cache"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/opt/deck", cfg.HomeDir)
	assert.Equal(t, "0.0.0.0:9000", cfg.Listen)
	assert.Equal(t, LogLevelDebug, cfg.LogLevel)
	assert.Equal(t, 3*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, "mihomo", cfg.Engine.ProcessName)
	assert.Len(t, cfg.Network.ResetCommands, 1)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv(EnvHome, "/srv/home")
	t.Setenv(EnvLogLevel, LogLevelWarn)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)

	assert.Equal(t, "/srv/home", cfg.HomeDir)
	assert.Equal(t, LogLevelWarn, cfg.LogLevel)
}

func TestLoadDotEnv(t *testing.T) {
	t.Run("applied", func(t *testing.T) {
		t.Chdir(t.TempDir())
		// restored on cleanup; godotenv only fills variables that are unset
		t.Setenv(EnvHome, "")
		require.NoError(t, os.Unsetenv(EnvHome))
		require.NoError(t, os.WriteFile(".env", []byte(EnvHome+"=/from/dotenv\n"), 0o644))

		cfg, err := Load("missing.yml")
		require.NoError(t, err)
		assert.Equal(t, "/from/dotenv", cfg.HomeDir)
	})

	t.Run("malformed", func(t *testing.T) {
		t.Chdir(t.TempDir())
		require.NoError(t, os.WriteFile(".env", []byte("FOO=\"unterminated\n"), 0o644))

		_, err := Load("missing.yml")
		require.ErrorContains(t, err, "cannot load .env")
	})
}

func TestLoadErrors(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{name: "bad yaml", content: "listen: [\n"},
		{name: "bad log level", content: "home_dir: /h\nlog_level: trace\n"},
		{name: "absolute subs dir", content: "home_dir: /h\nsubs_dir: /abs\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yml")
			require.NoError(t, os.WriteFile(path, []byte(tc.content), 0o644))

			_, err := Load(path)
			require.Error(t, err)
		})
	}
}
