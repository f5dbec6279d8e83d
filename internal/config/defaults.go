package config

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	return &Config{
		EventsAPI: EventsAPIConfig{
			MaxRequestsPerMinute: 2000,
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4o-mini",
		},
		Spotify: SpotifyConfig{
			RedirectURL: "http://127.0.0.1:8777/callback",
		},
		Music: MusicConfig{
			Source: "spotify",
		},
		General: GeneralConfig{
			SongCost:               50,
			SkipSongCost:           100,
			RequestOverlayDuration: 10,
		},
		OBS: OBSConfig{
			Host: "localhost",
			Port: 4455,
		},
		Web: WebConfig{
			Host: "127.0.0.1",
			Port: 8777,
		},
	}
}

// ApplyDefaults fills in zero values with sensible defaults.
func (c *Config) ApplyDefaults() {
	d := Default()

	if c.EventsAPI.MaxRequestsPerMinute == 0 {
		c.EventsAPI.MaxRequestsPerMinute = d.EventsAPI.MaxRequestsPerMinute
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = d.OpenAI.Model
	}
	if c.Spotify.RedirectURL == "" {
		c.Spotify.RedirectURL = d.Spotify.RedirectURL
	}
	if c.Music.Source == "" {
		c.Music.Source = d.Music.Source
	}
	if c.General.SongCost == 0 {
		c.General.SongCost = d.General.SongCost
	}
	if c.General.SkipSongCost == 0 {
		c.General.SkipSongCost = d.General.SkipSongCost
	}
	if c.General.RequestOverlayDuration == 0 {
		c.General.RequestOverlayDuration = d.General.RequestOverlayDuration
	}
	if c.OBS.Host == "" {
		c.OBS.Host = d.OBS.Host
	}
	if c.OBS.Port == 0 {
		c.OBS.Port = d.OBS.Port
	}
	if c.Web.Host == "" {
		c.Web.Host = d.Web.Host
	}
	if c.Web.Port == 0 {
		c.Web.Port = d.Web.Port
	}
}
