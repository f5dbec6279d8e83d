package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSpotifyTrackURI(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already canonical", "spotify:track:4uLU6hMCjMI75M1A2tKUQC", "spotify:track:4uLU6hMCjMI75M1A2tKUQC"},
		{"open url", "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC", "spotify:track:4uLU6hMCjMI75M1A2tKUQC"},
		{"open url with query", "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC?si=abc123", "spotify:track:4uLU6hMCjMI75M1A2tKUQC"},
		{"open url with fragment", "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC#frag", "spotify:track:4uLU6hMCjMI75M1A2tKUQC"},
		{"open url with trailing path", "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC/extra", "spotify:track:4uLU6hMCjMI75M1A2tKUQC"},
		{"bare id", "4uLU6hMCjMI75M1A2tKUQC", "spotify:track:4uLU6hMCjMI75M1A2tKUQC"},
		{"bare id too short", "abc123", "abc123"},
		{"free text passthrough", "never gonna give you up", "never gonna give you up"},
		{"surrounding whitespace", "  spotify:track:abc1234567  ", "spotify:track:abc1234567"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeSpotifyTrackURI(tt.in))
		})
	}
}

func TestIsAllowedYouTubeURL(t *testing.T) {
	allowed := []string{
		"https://youtu.be/dQw4w9WgXcQ",
		"https://youtube.com/watch?v=dQw4w9WgXcQ",
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://m.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://music.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://gaming.youtube.com/watch?v=dQw4w9WgXcQ",
	}
	for _, u := range allowed {
		assert.True(t, IsAllowedYouTubeURL(u), u)
	}

	rejected := []string{
		"https://example.com/watch?v=dQw4w9WgXcQ",
		"https://notyoutube.com/watch?v=abc",
		"https://youtube.com.evil.com/watch?v=abc",
		"not a url at all",
		"",
	}
	for _, u := range rejected {
		assert.False(t, IsAllowedYouTubeURL(u), u)
	}
}

func TestNormalize(t *testing.T) {
	item, err := Normalize(Item{Source: SourceSpotify, URI: "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC"}, SourceSpotify)
	require.NoError(t, err)
	assert.Equal(t, "spotify:track:4uLU6hMCjMI75M1A2tKUQC", item.URI)
	assert.Equal(t, SourceSpotify, item.Source)

	item, err = Normalize(Item{Source: SourceYouTube, URI: "https://youtu.be/dQw4w9WgXcQ"}, SourceSpotify)
	require.NoError(t, err)
	assert.Equal(t, "https://youtu.be/dQw4w9WgXcQ", item.URI)
	assert.Equal(t, "https://youtu.be/dQw4w9WgXcQ", item.ExternalURL)

	_, err = Normalize(Item{Source: SourceYouTube, URI: "https://vimeo.com/12345"}, SourceSpotify)
	assert.ErrorIs(t, err, ErrInvalidReference)

	_, err = Normalize(Item{Source: SourceSpotify, URI: "   "}, SourceSpotify)
	assert.ErrorIs(t, err, ErrInvalidReference)

	// Unknown source string falls back to the default.
	item, err = Normalize(Item{Source: "plex", URI: "spotify:track:abc1234567"}, SourceSpotify)
	require.NoError(t, err)
	assert.Equal(t, SourceSpotify, item.Source)
}

func TestNormalizeSource(t *testing.T) {
	assert.Equal(t, SourceSpotify, NormalizeSource("sp", SourceYouTube))
	assert.Equal(t, SourceYouTube, NormalizeSource("YT", SourceSpotify))
	assert.Equal(t, SourceYouTube, NormalizeSource("ytdlp", SourceSpotify))
	assert.Equal(t, SourceSpotify, NormalizeSource("", SourceSpotify))
	assert.Equal(t, SourceYouTube, NormalizeSource("whatever", SourceYouTube))
}
