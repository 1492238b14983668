package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/copycat/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	configDir := filepath.Join(dir, "copycat")
	require.NoError(t, os.MkdirAll(configDir, 0o755))
	path := filepath.Join(configDir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Nil(t, cfg.Defaults.Verify)
	assert.Nil(t, cfg.Defaults.Threads)
	assert.Nil(t, cfg.Defaults.Comparison)
}

func TestLoad_FullConfig(t *testing.T) {
	writeConfig(t, `
[defaults]
threads = 16
comparison = "exists"
follow_symlinks = true
preserve_metadata = false
size_aware = true
mtime_window = "2s"
level = "debug"
bwlimit = "100MB"
verify = true
`)

	cfg, err := config.Load()
	require.NoError(t, err)
	d := cfg.Defaults

	require.NotNil(t, d.Threads)
	assert.Equal(t, 16, *d.Threads)
	require.NotNil(t, d.Comparison)
	assert.Equal(t, "exists", *d.Comparison)
	require.NotNil(t, d.FollowSymlinks)
	assert.True(t, *d.FollowSymlinks)
	require.NotNil(t, d.PreserveMetadata)
	assert.False(t, *d.PreserveMetadata)
	require.NotNil(t, d.SizeAware)
	assert.True(t, *d.SizeAware)
	require.NotNil(t, d.MtimeWindow)
	assert.Equal(t, "2s", *d.MtimeWindow)
	require.NotNil(t, d.Level)
	assert.Equal(t, "debug", *d.Level)
	require.NotNil(t, d.BWLimit)
	assert.Equal(t, "100MB", *d.BWLimit)
	require.NotNil(t, d.Verify)
	assert.True(t, *d.Verify)
}

func TestLoad_PartialConfig(t *testing.T) {
	writeConfig(t, `
[defaults]
verify = true
`)

	cfg, err := config.Load()
	require.NoError(t, err)
	require.NotNil(t, cfg.Defaults.Verify)
	assert.True(t, *cfg.Defaults.Verify)
	assert.Nil(t, cfg.Defaults.Threads)
	assert.Nil(t, cfg.Defaults.BWLimit)
}

func TestLoad_InvalidTOML(t *testing.T) {
	writeConfig(t, "this is not valid toml [[[")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_UnknownKey(t *testing.T) {
	writeConfig(t, `
[defaults]
thread = 4
`)

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "defaults.thread")
}

func TestLoad_WrongType(t *testing.T) {
	writeConfig(t, `
[defaults]
threads = "many"
`)

	_, err := config.Load()
	assert.Error(t, err)
}

func TestPath_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	assert.Equal(t, "/custom/config/copycat/config.toml", config.Path())
}

func TestPath_Home(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "/home/cat")
	assert.Equal(t, "/home/cat/.config/copycat/config.toml", config.Path())
}

func TestWrite_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	threads := 8
	comparison := "date"
	verify := true

	require.NoError(t, config.Write(path, config.Config{Defaults: config.DefaultsConfig{
		Threads:    &threads,
		Comparison: &comparison,
		Verify:     &verify,
	}}))

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Defaults.Threads)
	assert.Equal(t, 8, *cfg.Defaults.Threads)
	require.NotNil(t, cfg.Defaults.Comparison)
	assert.Equal(t, "date", *cfg.Defaults.Comparison)
	assert.Nil(t, cfg.Defaults.BWLimit)

	// Never clobbers an existing file.
	assert.ErrorIs(t, config.Write(path, config.Config{}), os.ErrExist)
}
