package data

const (
	DB_KEY_SPOTIFY_TOKEN      = "spotify_token"
	DB_KEY_PLAYBACK_DEVICE_ID = "playback_device_id"
)
