package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_MissingFileReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.False(t, cfg.FirstLaunchCompleted)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Destination)
	assert.Empty(t, cfg.SynthDefinitions)
	assert.NotNil(t, cfg.Preferences)
	assert.Equal(t, path, cfg.Path())

	d, err := cfg.OpenTimeout()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, d)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	cfg.FirstLaunchCompleted = true
	cfg.Logging.Level = "debug"
	cfg.DeviceOpenTimeout = "750ms"
	assert.True(t, cfg.AddSynthDefinition("/defs/sc88.yaml"))
	assert.False(t, cfg.AddSynthDefinition("/defs/sc88.yaml"))
	assert.True(t, cfg.AddSynthDefinition("/defs/ms2000.json"))
	require.NoError(t, cfg.Save())

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	assert.True(t, loaded.FirstLaunchCompleted)
	assert.Equal(t, "debug", loaded.Logging.Level)
	assert.Equal(t, "console", loaded.Logging.Encoding)
	assert.Equal(t, []string{"/defs/sc88.yaml", "/defs/ms2000.json"}, loaded.SynthDefinitions)
	d, err := loaded.OpenTimeout()
	require.NoError(t, err)
	assert.Equal(t, 750*time.Millisecond, d)

	assert.True(t, loaded.RemoveSynthDefinition("/defs/sc88.yaml"))
	assert.False(t, loaded.RemoveSynthDefinition("/defs/sc88.yaml"))
	assert.Equal(t, []string{"/defs/ms2000.json"}, loaded.SynthDefinitions)
}

func TestLoadFrom_Errors(t *testing.T) {
	dir := t.TempDir()

	garbage := filepath.Join(dir, "garbage.json")
	require.NoError(t, os.WriteFile(garbage, []byte("{not json"), 0644))
	_, err := LoadFrom(garbage)
	assert.Error(t, err)

	badTimeout := filepath.Join(dir, "timeout.json")
	require.NoError(t, os.WriteFile(badTimeout, []byte(`{"device_open_timeout": "soon"}`), 0644))
	_, err = LoadFrom(badTimeout)
	assert.ErrorContains(t, err, "device_open_timeout")
}

func TestLoadFrom_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"first_launch_completed": true}`), 0644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.True(t, cfg.FirstLaunchCompleted)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "5s", cfg.DeviceOpenTimeout)
	assert.NotNil(t, cfg.Preferences)
}

func TestStore_SetSavesImmediately(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	store := NewStore(cfg)

	_, ok := store.Get("session.thru")
	assert.False(t, ok)
	require.NoError(t, store.Set("session.thru", "true"))
	require.NoError(t, store.Set("session.out_device", "Out A"))

	v, ok := store.Get("session.thru")
	require.True(t, ok)
	assert.Equal(t, "true", v)

	reloaded, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"session.thru":       "true",
		"session.out_device": "Out A",
	}, reloaded.Preferences)
}
