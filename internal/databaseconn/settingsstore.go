package databaseconn

//lint:file-ignore ST1001 Dot imports by jet
import (
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/azuridayo/tiptune/gen/model"
	"github.com/azuridayo/tiptune/internal/data"
	"github.com/azuridayo/tiptune/internal/spotifyauth"

	. "github.com/azuridayo/tiptune/gen/table"
	"github.com/go-jet/jet/v2/qrm"
	. "github.com/go-jet/jet/v2/sqlite"
)

// SettingsStore reads and writes key/value settings in the settings
// table. It backs the Spotify token persistence and remembers the
// selected playback device across restarts.
type SettingsStore struct {
	db *sql.DB
}

var _ spotifyauth.TokenStore = (*SettingsStore)(nil)

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) get(key string) (string, error) {
	results := []model.Settings{}
	stmt := SELECT(Settings.AllColumns).FROM(Settings).WHERE(Settings.Key.EQ(String(key))).LIMIT(1)
	err := stmt.Query(s.db, &results)
	if err != nil && !errors.Is(err, qrm.ErrNoRows) {
		return "", err
	}
	if len(results) == 0 {
		return "", nil
	}
	return results[0].Value, nil
}

func (s *SettingsStore) set(key, value string) error {
	newSetting := model.Settings{
		Key:   key,
		Value: value,
	}
	stmt := Settings.INSERT(Settings.AllColumns).MODEL(newSetting).ON_CONFLICT(Settings.Key).DO_UPDATE(SET(
		Settings.Value.SET(String(value)),
	))
	_, err := stmt.Exec(s.db)
	return err
}

func (s *SettingsStore) delete(key string) error {
	stmt := Settings.DELETE().WHERE(Settings.Key.EQ(String(key)))
	_, err := stmt.Exec(s.db)
	return err
}

// SaveToken persists the Spotify token as JSON. A nil token clears the
// stored value, which is how a disconnect is recorded.
func (s *SettingsStore) SaveToken(token *spotifyauth.Token) error {
	if token == nil {
		return s.delete(data.DB_KEY_SPOTIFY_TOKEN)
	}
	b, err := json.Marshal(token)
	if err != nil {
		return err
	}
	return s.set(data.DB_KEY_SPOTIFY_TOKEN, string(b))
}

// LoadToken returns the stored Spotify token, or (nil, nil) when none
// has been saved yet.
func (s *SettingsStore) LoadToken() (*spotifyauth.Token, error) {
	raw, err := s.get(data.DB_KEY_SPOTIFY_TOKEN)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	token := &spotifyauth.Token{}
	if err := json.Unmarshal([]byte(raw), token); err != nil {
		return nil, err
	}
	return token, nil
}

func (s *SettingsStore) SavePlaybackDeviceID(id string) error {
	if id == "" {
		return s.delete(data.DB_KEY_PLAYBACK_DEVICE_ID)
	}
	return s.set(data.DB_KEY_PLAYBACK_DEVICE_ID, id)
}

func (s *SettingsStore) LoadPlaybackDeviceID() (string, error) {
	return s.get(data.DB_KEY_PLAYBACK_DEVICE_ID)
}
