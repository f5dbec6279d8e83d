package config

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	m, err := NewManager(path, log.New(io.Discard, "", 0))
	require.NoError(t, err)
	return m
}

func TestLoadFromMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, 2000, cfg.EventsAPI.MaxRequestsPerMinute)
	assert.Equal(t, "spotify", cfg.Music.Source)
	assert.Equal(t, 8777, cfg.Web.Port)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := Default()
	cfg.General.SongCost = 27
	cfg.General.SkipSongCost = 51
	cfg.OpenAI.APIKey = "sk-test"
	require.NoError(t, Save(path, cfg))

	got, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, 27, got.General.SongCost)
	assert.Equal(t, 51, got.General.SkipSongCost)
	assert.Equal(t, "sk-test", got.OpenAI.APIKey)
}

func TestForUIMasksSecrets(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Update(map[string]map[string]string{
		"events_api": {"url": "https://feed.example/events/abc123/"},
		"openai":     {"api_key": "sk-secret"},
		"obs":        {"password": "hunter2"},
	}))

	ui := m.ForUI()
	assert.Empty(t, ui["events_api"]["url"])
	assert.Empty(t, ui["openai"]["api_key"])
	assert.Empty(t, ui["obs"]["password"])
	assert.Equal(t, "2000", ui["events_api"]["max_requests_per_minute"])
}

func TestUpdateIgnoresBlankSecretsAndUnknownKeys(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Update(map[string]map[string]string{
		"openai": {"api_key": "sk-secret"},
	}))

	// A masked form round-trip posts empty secret fields back.
	require.NoError(t, m.Update(map[string]map[string]string{
		"openai":  {"api_key": "   ", "model": "gpt-4o", "no_such_key": "x"},
		"bogus":   {"key": "value"},
		"general": {"song_cost": "27", "multi_request_tips": "on"},
	}))

	cfg := m.Current()
	assert.Equal(t, "sk-secret", cfg.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.Model)
	assert.Equal(t, 27, cfg.General.SongCost)
	assert.True(t, cfg.General.MultiRequestTips)
}

func TestUpdatePersistsToDisk(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Update(map[string]map[string]string{
		"web": {"port": "9200"},
	}))

	reloaded, err := LoadFrom(m.Path())
	require.NoError(t, err)
	assert.Equal(t, 9200, reloaded.Web.Port)
}

func TestReloadPicksUpExternalEdits(t *testing.T) {
	m := newTestManager(t)
	cfg := m.Current()
	cfg.Music.Source = "youtube"
	require.NoError(t, Save(m.Path(), &cfg))

	require.NoError(t, m.Reload())
	assert.Equal(t, "youtube", m.Current().Music.Source)
}

func TestReloadKeepsOldConfigOnError(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Update(map[string]map[string]string{
		"music": {"source": "youtube"},
	}))
	require.NoError(t, os.WriteFile(m.Path(), []byte("not [valid toml"), 0o644))

	assert.Error(t, m.Reload())
	assert.Equal(t, "youtube", m.Current().Music.Source)
}
