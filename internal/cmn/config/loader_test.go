package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaneliaSciComp/aitch/internal/cmn/config"
)

// isolate points the XDG config home at an empty directory and clears the
// AITCH_* variables for the duration of the test.
func isolate(t *testing.T) {
	t.Helper()
	// registered first so that it runs after the environment is restored
	t.Cleanup(xdg.Reload)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	xdg.Reload()
	for _, env := range []string{"AITCH_ROOT", "AITCH_DEBUG", "AITCH_QUIET", "AITCH_LOG_FORMAT", "AITCH_LOCK_RETRY_INTERVAL"} {
		t.Setenv(env, "")
		require.NoError(t, os.Unsetenv(env))
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := config.NewConfigLoader(viper.New()).Load()
	require.NoError(t, err)

	assert.Equal(t, config.DefaultRoot(), cfg.Root)
	assert.False(t, cfg.Debug)
	assert.False(t, cfg.Quiet)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, config.DefaultLockRetryInterval, cfg.LockRetryInterval)
	assert.Empty(t, cfg.ConfigFileUsed)
	assert.Empty(t, cfg.Warnings)
}

func TestLoad_ConfigFile(t *testing.T) {
	isolate(t)

	root := t.TempDir()
	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(
		"root: "+root+"\n"+
			"debug: true\n"+
			"logFormat: json\n"+
			"lockRetryInterval: 10ms\n",
	), 0o600))

	cfg, err := config.NewConfigLoader(viper.New(), config.WithConfigFile(file)).Load()
	require.NoError(t, err)

	assert.Equal(t, root, cfg.Root)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Millisecond, cfg.LockRetryInterval)
	assert.Equal(t, file, cfg.ConfigFileUsed)
}

func TestLoad_MissingNamedConfigFile(t *testing.T) {
	isolate(t)

	_, err := config.NewConfigLoader(viper.New(), config.WithConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))).Load()
	require.Error(t, err)
}

func TestLoad_Environment(t *testing.T) {
	isolate(t)

	root := t.TempDir()
	t.Setenv("AITCH_ROOT", root)
	t.Setenv("AITCH_DEBUG", "true")
	t.Setenv("AITCH_LOG_FORMAT", "JSON")
	t.Setenv("AITCH_LOCK_RETRY_INTERVAL", "bogus")

	cfg, err := config.NewConfigLoader(viper.New()).Load()
	require.NoError(t, err)

	assert.Equal(t, root, cfg.Root)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, config.DefaultLockRetryInterval, cfg.LockRetryInterval)
	require.Len(t, cfg.Warnings, 1)
	assert.Contains(t, cfg.Warnings[0], "lockRetryInterval")
}

func TestLoad_XDGConfigFile(t *testing.T) {
	isolate(t)

	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	xdg.Reload()

	dir := filepath.Join(home, config.AppSlug)
	require.NoError(t, os.MkdirAll(dir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("quiet: true\n"), 0o600))

	cfg, err := config.NewConfigLoader(viper.New()).Load()
	require.NoError(t, err)
	assert.True(t, cfg.Quiet)
	assert.Equal(t, filepath.Join(dir, "config.yaml"), cfg.ConfigFileUsed)
}

func TestConfig_Validate(t *testing.T) {
	valid := config.Config{Root: "/tmp/aitch", LogFormat: "text", LockRetryInterval: time.Millisecond}
	require.NoError(t, valid.Validate())

	bad := valid
	bad.LogFormat = "xml"
	require.Error(t, bad.Validate())

	bad = valid
	bad.Root = ""
	require.Error(t, bad.Validate())
}
