package staticservices

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/azuridayo/tiptune/internal/config"
	"github.com/azuridayo/tiptune/internal/pipeline"
)

const openAIResponsesURL = "https://api.openai.com/v1/responses"

var (
	spotifyURIPattern = regexp.MustCompile(`(spotify:track:[a-zA-Z0-9]+|https?://open\.spotify\.com/track/[a-zA-Z0-9]+)`)
	dashPattern       = regexp.MustCompile(`(\S)-(\S)`)
)

// TitleExtractor pulls song titles out of tip notes with a responses-API
// model. Spotify track URIs in the note short-circuit the model entirely.
type TitleExtractor struct {
	baseURL    string
	httpClient *http.Client
	cfg        func() config.Config
	log        Logger
}

func NewTitleExtractor(cfg func() config.Config, logger Logger) *TitleExtractor {
	return &TitleExtractor{
		baseURL:    openAIResponsesURL,
		httpClient: &http.Client{Timeout: 12 * time.Second},
		cfg:        cfg,
		log:        logger,
	}
}

func (e *TitleExtractor) ExtractTitles(ctx context.Context, message string, count int) ([]pipeline.Title, error) {
	if uris := spotifyURIPattern.FindAllString(message, -1); len(uris) > 0 {
		seen := map[string]bool{}
		var titles []pipeline.Title
		for _, uri := range uris {
			if seen[uri] || len(titles) >= count {
				continue
			}
			seen[uri] = true
			titles = append(titles, pipeline.Title{SpotifyURI: uri})
		}
		return titles, nil
	}

	cfg := e.cfg()
	if strings.TrimSpace(cfg.OpenAI.APIKey) == "" {
		return nil, nil
	}

	// Compact "artist-song" notes parse better with the dash spaced out.
	message = dashPattern.ReplaceAllString(message, "$1 - $2")

	prompt := fmt.Sprintf(
		"You are a music bot that processes song requests. "+
			"Extract exactly %d song request(s) from the following message. "+
			"Return a JSON array of objects with exactly two keys: 'song' and 'artist'. "+
			"If you can identify a song name but no artist is specified, include the song "+
			"with an empty artist field. Treat single terms or phrases as potential song "+
			"titles if they could be song names. For example, 'mucka blucka' would be "+
			"extracted as {'song': 'Mucka Blucka', 'artist': ''}. If you cannot identify "+
			"a song name, return the original message as the song name and an empty artist field. "+
			"If the message starts with 'The song name might be', remove that phrase and only return "+
			"the song name.\n\n"+
			"Message: '%s'\n\n"+
			"Return ONLY the JSON array with no extra text.",
		count, message)

	content, err := e.complete(ctx, cfg, prompt)
	if err != nil {
		return nil, err
	}
	content = stripCodeFences(content)

	var parsed []struct {
		Song   string `json:"song"`
		Artist string `json:"artist"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse model output: %w", err)
	}
	titles := make([]pipeline.Title, 0, len(parsed))
	for _, p := range parsed {
		titles = append(titles, pipeline.Title{Song: p.Song, Artist: p.Artist})
	}
	return titles, nil
}

func (e *TitleExtractor) complete(ctx context.Context, cfg config.Config, prompt string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"model": cfg.OpenAI.Model,
		"input": prompt,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+cfg.OpenAI.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("responses api failed with status: %d", resp.StatusCode)
	}

	var raw struct {
		Output []struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"output"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", fmt.Errorf("failed to decode responses api reply: %w", err)
	}
	for _, out := range raw.Output {
		for _, c := range out.Content {
			if c.Type == "output_text" && strings.TrimSpace(c.Text) != "" {
				return strings.TrimSpace(c.Text), nil
			}
		}
	}
	return "", fmt.Errorf("responses api reply had no output text")
}

func stripCodeFences(content string) string {
	if !strings.HasPrefix(content, "```") {
		return content
	}
	var kept []string
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
