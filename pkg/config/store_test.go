package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(StoreConfig{Path: filepath.Join(t.TempDir(), "DroidView", "config.toml")})
	require.NoError(t, err)
	return s
}

func TestStoreStartsWithDefaults(t *testing.T) {
	s := newTestStore(t)
	assert.Equal(t, Default(), s.Get())
	assert.Equal(t, filepath.Dir(s.Path()), s.Dir())
}

func TestStoreUpdatePersists(t *testing.T) {
	s := newTestStore(t)

	cfg, err := s.Update(func(c *Config) {
		c.Theme = "light"
		c.Dimension = 1280
	})
	require.NoError(t, err)
	assert.Equal(t, "light", cfg.Theme)

	onDisk, err := Load(s.Path())
	require.NoError(t, err)
	assert.Equal(t, cfg, onDisk)
}

func TestStoreUpdateRejectsInvalid(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Update(func(c *Config) { c.Orientation = "sideways" })
	require.Error(t, err)
	assert.Equal(t, "", s.Get().Orientation)

	_, statErr := os.Stat(s.Path())
	assert.True(t, os.IsNotExist(statErr), "invalid update must not write the file")
}

func TestStoreSetAndReset(t *testing.T) {
	s := newTestStore(t)

	cfg := Default()
	cfg.Bitrate = "2M"
	require.NoError(t, s.Set(cfg))
	assert.Equal(t, "2M", s.Get().Bitrate)

	def, err := s.Reset()
	require.NoError(t, err)
	assert.Equal(t, Default(), def)
	assert.Equal(t, Default(), s.Get())
}

func TestStoreReload(t *testing.T) {
	s := newTestStore(t)

	_, changed, err := s.Reload()
	require.NoError(t, err)
	assert.False(t, changed, "missing file keeps memory state")

	external := Default()
	external.Fullscreen = true
	require.NoError(t, external.Save(s.Path()))

	cfg, changed, err := s.Reload()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, cfg.Fullscreen)

	_, changed, err = s.Reload()
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestStoreReloadKeepsStateOnBrokenFile(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Update(func(c *Config) { c.Theme = "dark" })
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(s.Path(), []byte("theme = "), 0644))

	_, changed, err := s.Reload()
	assert.Error(t, err)
	assert.False(t, changed)
	assert.Equal(t, "dark", s.Get().Theme)
}

func TestNewStoreReset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := Default()
	cfg.Theme = "light"
	require.NoError(t, cfg.Save(path))

	s, err := NewStore(StoreConfig{Path: path, Reset: true})
	require.NoError(t, err)
	assert.Equal(t, "default", s.Get().Theme)

	onDisk, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), onDisk)
}
