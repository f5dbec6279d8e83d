package queue

import (
	"errors"
	"net/url"
	"strings"
)

// Source identifies the playback backend a queue item belongs to.
type Source string

const (
	SourceSpotify Source = "spotify"
	SourceYouTube Source = "youtube"
)

var (
	// ErrInvalidReference is returned when raw input cannot be normalized
	// into a playable track reference.
	ErrInvalidReference = errors.New("invalid track reference")

	// ErrIndexOutOfRange is returned by positional queue operations when an
	// index falls outside the pending list.
	ErrIndexOutOfRange = errors.New("queue index out of range")
)

// Item is one playable request. URI is the canonical reference and is the only
// required field; the metadata fields are optional display attachments filled
// in lazily by the media cache.
type Item struct {
	Source Source `json:"source"`
	URI    string `json:"uri"`

	TrackID     string   `json:"track_id,omitempty"`
	Name        string   `json:"name,omitempty"`
	Artists     []string `json:"artists,omitempty"`
	Album       string   `json:"album,omitempty"`
	DurationMS  int      `json:"duration_ms,omitempty"`
	Explicit    bool     `json:"explicit,omitempty"`
	ImageURL    string   `json:"album_image_url,omitempty"`
	ExternalURL string   `json:"external_url,omitempty"`
	RequestedBy string   `json:"requested_by,omitempty"`
}

// NormalizeSource maps loose user input onto a known Source, falling back to
// def when the input names nothing we recognize.
func NormalizeSource(raw string, def Source) Source {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "spotify", "sp":
		return SourceSpotify
	case "youtube", "yt", "ytdlp":
		return SourceYouTube
	}
	return def
}

// Normalize validates raw and returns it with a canonical URI, or
// ErrInvalidReference. It is a pure function and the single gatekeeper for
// what may enter the store.
func Normalize(raw Item, def Source) (Item, error) {
	item := raw
	item.Source = NormalizeSource(string(raw.Source), def)
	uri := strings.TrimSpace(item.URI)
	if uri == "" {
		return Item{}, ErrInvalidReference
	}

	switch item.Source {
	case SourceYouTube:
		if !IsAllowedYouTubeURL(uri) {
			return Item{}, ErrInvalidReference
		}
		item.URI = uri
		if item.ExternalURL == "" {
			item.ExternalURL = uri
		}
	default:
		item.URI = NormalizeSpotifyTrackURI(uri)
	}
	return item, nil
}

// ParseSpotifyTrackID extracts the bare track id from a spotify:track: URI or
// an open.spotify.com/track/ URL. Returns "" when neither form matches.
func ParseSpotifyTrackID(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if rest, ok := strings.CutPrefix(s, "spotify:track:"); ok {
		return strings.TrimSpace(rest)
	}
	const marker = "open.spotify.com/track/"
	pos := strings.Index(s, marker)
	if pos < 0 {
		return ""
	}
	rest := s[pos+len(marker):]
	for _, sep := range []string{"?", "#", "/"} {
		rest, _, _ = strings.Cut(rest, sep)
	}
	return strings.TrimSpace(rest)
}

// NormalizeSpotifyTrackURI canonicalizes the accepted Spotify forms to
// spotify:track:<id>. A bare alphanumeric string of plausible id length is
// accepted heuristically; anything else is passed through unchanged and
// treated as already canonical.
func NormalizeSpotifyTrackURI(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "spotify:track:") {
		return s
	}
	if tid := ParseSpotifyTrackID(s); tid != "" {
		return "spotify:track:" + tid
	}
	if isAlnum(s) && len(s) >= 10 && len(s) <= 64 {
		return "spotify:track:" + s
	}
	return s
}

// IsAllowedYouTubeURL reports whether url points at YouTube itself. This is a
// deliberate allow-list so the playback pipeline cannot be pointed at
// arbitrary third-party streaming endpoints.
func IsAllowedYouTubeURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	switch host {
	case "youtu.be", "youtube.com", "www.youtube.com", "m.youtube.com", "music.youtube.com":
		return true
	}
	return strings.HasSuffix(host, ".youtube.com")
}

func isAlnum(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		default:
			return false
		}
	}
	return true
}
