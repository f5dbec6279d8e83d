package databaseconn

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/azuridayo/tiptune/internal/spotifyauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SettingsStore {
	t.Helper()
	db, err := sql.Open("sqlite3", "file:"+filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec("CREATE TABLE settings (key TEXT NOT NULL PRIMARY KEY, value TEXT NOT NULL)")
	require.NoError(t, err)
	return NewSettingsStore(db)
}

func TestTokenRoundTrip(t *testing.T) {
	s := newTestStore(t)

	loaded, err := s.LoadToken()
	require.NoError(t, err)
	assert.Nil(t, loaded)

	token := &spotifyauth.Token{
		AccessToken:  "at-1",
		TokenType:    "Bearer",
		RefreshToken: "rt-1",
		ExpiresAt:    time.Now().Add(time.Hour).Truncate(time.Second),
	}
	require.NoError(t, s.SaveToken(token))

	loaded, err = s.LoadToken()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, token.AccessToken, loaded.AccessToken)
	assert.Equal(t, token.RefreshToken, loaded.RefreshToken)
	assert.True(t, token.ExpiresAt.Equal(loaded.ExpiresAt))
}

func TestSaveTokenOverwrites(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SaveToken(&spotifyauth.Token{AccessToken: "at-1"}))
	require.NoError(t, s.SaveToken(&spotifyauth.Token{AccessToken: "at-2"}))

	loaded, err := s.LoadToken()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "at-2", loaded.AccessToken)
}

func TestSaveNilTokenClears(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SaveToken(&spotifyauth.Token{AccessToken: "at-1"}))
	require.NoError(t, s.SaveToken(nil))

	loaded, err := s.LoadToken()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestPlaybackDeviceIDRoundTrip(t *testing.T) {
	s := newTestStore(t)

	id, err := s.LoadPlaybackDeviceID()
	require.NoError(t, err)
	assert.Empty(t, id)

	require.NoError(t, s.SavePlaybackDeviceID("device-1"))
	id, err = s.LoadPlaybackDeviceID()
	require.NoError(t, err)
	assert.Equal(t, "device-1", id)

	require.NoError(t, s.SavePlaybackDeviceID(""))
	id, err = s.LoadPlaybackDeviceID()
	require.NoError(t, err)
	assert.Empty(t, id)
}
