// Package config loads, persists and live-reloads the TOML configuration
// file that drives the app.
package config

// Config is the root configuration structure.
type Config struct {
	EventsAPI EventsAPIConfig `toml:"events_api"`
	OpenAI    OpenAIConfig    `toml:"openai"`
	Spotify   SpotifyConfig   `toml:"spotify"`
	Search    SearchConfig    `toml:"search"`
	Music     MusicConfig     `toml:"music"`
	General   GeneralConfig   `toml:"general"`
	OBS       OBSConfig       `toml:"obs"`
	Web       WebConfig       `toml:"web"`
}

// EventsAPIConfig holds the tip-events feed settings. The URL embeds the
// feed token, so it is treated as a secret.
type EventsAPIConfig struct {
	URL                  string `toml:"url"`
	MaxRequestsPerMinute int    `toml:"max_requests_per_minute"`
}

// OpenAIConfig holds title-extraction settings.
type OpenAIConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// SpotifyConfig holds Spotify API settings.
type SpotifyConfig struct {
	ClientID         string `toml:"client_id"`
	RedirectURL      string `toml:"redirect_url"`
	PlaybackDeviceID string `toml:"playback_device_id"`
}

// SearchConfig holds web-search fallback settings.
type SearchConfig struct {
	GoogleAPIKey string `toml:"google_api_key"`
	GoogleCX     string `toml:"google_cx"`
}

// MusicConfig picks the default request source.
type MusicConfig struct {
	Source string `toml:"source"`
}

// GeneralConfig holds tip pricing and app behavior settings.
type GeneralConfig struct {
	SongCost               int    `toml:"song_cost"`
	SkipSongCost           int    `toml:"skip_song_cost"`
	MultiRequestTips       bool   `toml:"multi_request_tips"`
	AllowSourceOverride    bool   `toml:"allow_source_override_in_request_message"`
	RequestOverlayDuration int    `toml:"request_overlay_duration"`
	SetupComplete          bool   `toml:"setup_complete"`
	AutoCheckUpdates       bool   `toml:"auto_check_updates"`
	DebugLogToFile         bool   `toml:"debug_log_to_file"`
	DebugLogPath           string `toml:"debug_log_path"`
}

// OBSConfig holds the overlay websocket settings.
type OBSConfig struct {
	Enabled   bool   `toml:"enabled"`
	Host      string `toml:"host"`
	Port      int    `toml:"port"`
	Password  string `toml:"password"`
	SceneName string `toml:"scene_name"`
}

// WebConfig holds the dashboard bind address.
type WebConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}
