package config

import (
	"context"
	"log"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Manager holds the current config and keeps it in sync with the file on
// disk, both for edits made through the dashboard and edits made directly to
// the file.
type Manager struct {
	mu   sync.RWMutex
	cfg  *Config
	path string
	log  *log.Logger
}

func NewManager(path string, logger *log.Logger) (*Manager, error) {
	cfg, err := LoadFrom(path)
	if err != nil {
		return nil, err
	}
	return &Manager{cfg: cfg, path: path, log: logger}, nil
}

// Current returns a copy of the live config.
func (m *Manager) Current() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return *m.cfg
}

func (m *Manager) Path() string {
	return m.path
}

// Reload re-reads the file, keeping the old config on error.
func (m *Manager) Reload() error {
	cfg, err := LoadFrom(m.path)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
	return nil
}

// Watch reloads the config whenever the file changes on disk, until ctx is
// cancelled.
func (m *Manager) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	// Watch the directory so tmp-then-rename saves are seen.
	if err := w.Add(filepath.Dir(m.path)); err != nil {
		return err
	}
	name := filepath.Base(m.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if err := m.Reload(); err != nil {
				m.log.Printf("config reload: %v", err)
			} else {
				m.log.Printf("config reloaded from %s", m.path)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			m.log.Printf("config watch: %v", err)
		}
	}
}

// ForUI renders the config as section/key string maps for the dashboard.
// Secret values are blanked out.
func (m *Manager) ForUI() map[string]map[string]string {
	c := m.Current()
	return map[string]map[string]string{
		"events_api": {
			// The feed URL embeds the access token.
			"url":                     "",
			"max_requests_per_minute": strconv.Itoa(c.EventsAPI.MaxRequestsPerMinute),
		},
		"openai": {
			"api_key": "",
			"model":   c.OpenAI.Model,
		},
		"spotify": {
			"client_id":          c.Spotify.ClientID,
			"redirect_url":       c.Spotify.RedirectURL,
			"playback_device_id": c.Spotify.PlaybackDeviceID,
		},
		"search": {
			"google_api_key": "",
			"google_cx":      c.Search.GoogleCX,
		},
		"music": {
			"source": c.Music.Source,
		},
		"general": {
			"song_cost":                                strconv.Itoa(c.General.SongCost),
			"skip_song_cost":                           strconv.Itoa(c.General.SkipSongCost),
			"multi_request_tips":                       strconv.FormatBool(c.General.MultiRequestTips),
			"allow_source_override_in_request_message": strconv.FormatBool(c.General.AllowSourceOverride),
			"request_overlay_duration":                 strconv.Itoa(c.General.RequestOverlayDuration),
			"setup_complete":                           strconv.FormatBool(c.General.SetupComplete),
			"auto_check_updates":                       strconv.FormatBool(c.General.AutoCheckUpdates),
			"debug_log_to_file":                        strconv.FormatBool(c.General.DebugLogToFile),
			"debug_log_path":                           c.General.DebugLogPath,
		},
		"obs": {
			"enabled":    strconv.FormatBool(c.OBS.Enabled),
			"host":       c.OBS.Host,
			"port":       strconv.Itoa(c.OBS.Port),
			"password":   "",
			"scene_name": c.OBS.SceneName,
		},
		"web": {
			"host": c.Web.Host,
			"port": strconv.Itoa(c.Web.Port),
		},
	}
}

// Update applies whitelisted section/key updates from the dashboard, saves
// the file and swaps in the new config. Unknown sections and keys are
// ignored. Blank values for secret fields are ignored so a masked form
// round-trip does not wipe stored secrets.
func (m *Manager) Update(updates map[string]map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg := *m.cfg
	for section, options := range updates {
		for key, value := range options {
			applyUpdate(&cfg, strings.ToLower(section), strings.ToLower(key), value)
		}
	}
	if err := Save(m.path, &cfg); err != nil {
		return err
	}
	m.cfg = &cfg
	return nil
}

func applyUpdate(c *Config, section, key, value string) {
	secret := isSecretField(section, key)
	if secret && strings.TrimSpace(value) == "" {
		return
	}
	switch section {
	case "events_api":
		switch key {
		case "url":
			c.EventsAPI.URL = value
		case "max_requests_per_minute":
			setInt(&c.EventsAPI.MaxRequestsPerMinute, value)
		}
	case "openai":
		switch key {
		case "api_key":
			c.OpenAI.APIKey = value
		case "model":
			c.OpenAI.Model = value
		}
	case "spotify":
		switch key {
		case "client_id":
			c.Spotify.ClientID = value
		case "redirect_url":
			c.Spotify.RedirectURL = value
		case "playback_device_id":
			c.Spotify.PlaybackDeviceID = value
		}
	case "search":
		switch key {
		case "google_api_key":
			c.Search.GoogleAPIKey = value
		case "google_cx":
			c.Search.GoogleCX = value
		}
	case "music":
		if key == "source" {
			c.Music.Source = value
		}
	case "general":
		switch key {
		case "song_cost":
			setInt(&c.General.SongCost, value)
		case "skip_song_cost":
			setInt(&c.General.SkipSongCost, value)
		case "multi_request_tips":
			setBool(&c.General.MultiRequestTips, value)
		case "allow_source_override_in_request_message":
			setBool(&c.General.AllowSourceOverride, value)
		case "request_overlay_duration":
			setInt(&c.General.RequestOverlayDuration, value)
		case "setup_complete":
			setBool(&c.General.SetupComplete, value)
		case "auto_check_updates":
			setBool(&c.General.AutoCheckUpdates, value)
		case "debug_log_to_file":
			setBool(&c.General.DebugLogToFile, value)
		case "debug_log_path":
			c.General.DebugLogPath = value
		}
	case "obs":
		switch key {
		case "enabled":
			setBool(&c.OBS.Enabled, value)
		case "host":
			c.OBS.Host = value
		case "port":
			setInt(&c.OBS.Port, value)
		case "password":
			c.OBS.Password = value
		case "scene_name":
			c.OBS.SceneName = value
		}
	case "web":
		switch key {
		case "host":
			c.Web.Host = value
		case "port":
			setInt(&c.Web.Port, value)
		}
	}
}

func isSecretField(section, key string) bool {
	switch key {
	case "api_key", "client_secret", "google_api_key", "password":
		return true
	}
	if section == "events_api" && key == "url" {
		return true
	}
	return strings.Contains(key, "secret") || strings.Contains(key, "token")
}

func setInt(dst *int, value string) {
	if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		*dst = n
	}
}

func setBool(dst *bool, value string) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "y", "on":
		*dst = true
	case "0", "false", "no", "n", "off":
		*dst = false
	}
}
