package staticservices

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azuridayo/tiptune/internal/config"
)

func newTestExtractor(t *testing.T, output string) (*TitleExtractor, *string) {
	t.Helper()
	var gotInput string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Input string `json:"input"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		gotInput = body.Input
		json.NewEncoder(w).Encode(map[string]any{
			"output": []map[string]any{{
				"content": []map[string]any{{"type": "output_text", "text": output}},
			}},
		})
	}))
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.OpenAI.APIKey = "sk-test"
	e := NewTitleExtractor(func() config.Config { return *cfg }, log.New(io.Discard, "", 0))
	e.baseURL = srv.URL
	return e, &gotInput
}

func TestExtractTitlesParsesModelOutput(t *testing.T) {
	e, _ := newTestExtractor(t, `[{"song": "Mucka Blucka", "artist": "The Chickens"}]`)

	titles, err := e.ExtractTitles(context.Background(), "play mucka blucka by the chickens", 1)
	require.NoError(t, err)
	require.Len(t, titles, 1)
	assert.Equal(t, "Mucka Blucka", titles[0].Song)
	assert.Equal(t, "The Chickens", titles[0].Artist)
}

func TestExtractTitlesStripsCodeFences(t *testing.T) {
	e, _ := newTestExtractor(t, "```json\n[{\"song\": \"Wonderwall\", \"artist\": \"Oasis\"}]\n```")

	titles, err := e.ExtractTitles(context.Background(), "wonderwall", 1)
	require.NoError(t, err)
	require.Len(t, titles, 1)
	assert.Equal(t, "Wonderwall", titles[0].Song)
}

func TestExtractTitlesSpacesOutCompactDashes(t *testing.T) {
	e, gotInput := newTestExtractor(t, `[{"song": "B", "artist": "A"}]`)

	_, err := e.ExtractTitles(context.Background(), "artist-song", 1)
	require.NoError(t, err)
	assert.Contains(t, *gotInput, "artist - song")
}

func TestSpotifyURIsShortCircuitTheModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("model must not be called when the note has track URIs")
	}))
	defer srv.Close()
	cfg := config.Default()
	cfg.OpenAI.APIKey = "sk-test"
	e := NewTitleExtractor(func() config.Config { return *cfg }, log.New(io.Discard, "", 0))
	e.baseURL = srv.URL

	msg := "spotify:track:AAAAAAAAAA and https://open.spotify.com/track/BBBBBBBBBB and spotify:track:AAAAAAAAAA again"
	titles, err := e.ExtractTitles(context.Background(), msg, 2)
	require.NoError(t, err)
	require.Len(t, titles, 2, "duplicates are dropped and the count caps results")
	assert.Equal(t, "spotify:track:AAAAAAAAAA", titles[0].SpotifyURI)
	assert.Equal(t, "https://open.spotify.com/track/BBBBBBBBBB", titles[1].SpotifyURI)
}

func TestMissingAPIKeyReturnsNothing(t *testing.T) {
	cfg := config.Default()
	e := NewTitleExtractor(func() config.Config { return *cfg }, log.New(io.Discard, "", 0))

	titles, err := e.ExtractTitles(context.Background(), "some song", 1)
	require.NoError(t, err)
	assert.Empty(t, titles)
}

func TestMalformedModelOutputIsAnError(t *testing.T) {
	e, _ := newTestExtractor(t, "sorry, I can't help with that")

	_, err := e.ExtractTitles(context.Background(), "some song", 1)
	assert.Error(t, err)
}
