package staticservices

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/azuridayo/tiptune/internal/mediacache"
	"github.com/azuridayo/tiptune/internal/queue"
)

const (
	ytSearchTimeout = 10 * time.Second
	ytProbeTimeout  = 12 * time.Second
	ytSearchMax     = 25
)

// YouTubeTrack is one search or probe result.
type YouTubeTrack struct {
	VideoID   string `json:"video_id,omitempty"`
	Title     string `json:"name,omitempty"`
	Channel   string `json:"channel,omitempty"`
	DurationS int    `json:"duration_s,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
	URL       string `json:"uri"`
}

// YTDLPService resolves and enriches youtube references by shelling out to
// yt-dlp.
type YTDLPService struct {
	binary string
	log    Logger
	run    func(ctx context.Context, args ...string) ([]byte, error)
}

func NewYTDLPService(logger Logger) *YTDLPService {
	s := &YTDLPService{binary: "yt-dlp", log: logger}
	s.run = func(ctx context.Context, args ...string) ([]byte, error) {
		return exec.CommandContext(ctx, s.binary, args...).Output()
	}
	return s
}

// Search runs a flat ytsearch. Queries shorter than 2 characters return
// nothing; limit is clamped to 25.
func (s *YTDLPService) Search(ctx context.Context, query string, limit int) ([]YouTubeTrack, error) {
	q := strings.TrimSpace(query)
	if len(q) < 2 {
		return nil, nil
	}
	if limit < 1 {
		limit = 10
	}
	if limit > ytSearchMax {
		limit = ytSearchMax
	}

	ctx, cancel := context.WithTimeout(ctx, ytSearchTimeout)
	defer cancel()
	out, err := s.run(ctx,
		"-J", "--no-warnings", "--no-playlist", "--skip-download", "--extract-flat",
		fmt.Sprintf("ytsearch%d:%s", limit, q))
	if err != nil {
		return nil, fmt.Errorf("yt-dlp search failed: %w", err)
	}

	var payload struct {
		Entries []ytEntry `json:"entries"`
	}
	if err := json.Unmarshal(out, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse yt-dlp output: %w", err)
	}
	tracks := make([]YouTubeTrack, 0, len(payload.Entries))
	for _, e := range payload.Entries {
		if t, ok := e.toTrack(); ok {
			tracks = append(tracks, t)
		}
	}
	return tracks, nil
}

// Probe fetches metadata for a single allowed youtube URL.
func (s *YTDLPService) Probe(ctx context.Context, url string) (*YouTubeTrack, error) {
	if !queue.IsAllowedYouTubeURL(url) {
		return nil, queue.ErrInvalidReference
	}
	ctx, cancel := context.WithTimeout(ctx, ytProbeTimeout)
	defer cancel()
	out, err := s.run(ctx, "-J", "--no-warnings", "--no-playlist", "--skip-download", url)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp probe failed: %w", err)
	}
	var e ytEntry
	if err := json.Unmarshal(out, &e); err != nil {
		return nil, fmt.Errorf("failed to parse yt-dlp output: %w", err)
	}
	t, ok := e.toTrack()
	if !ok {
		return nil, fmt.Errorf("yt-dlp returned no usable metadata for %s", url)
	}
	return &t, nil
}

// SearchYouTube implements the pipeline's search boundary, returning watch
// URLs only.
func (s *YTDLPService) SearchYouTube(ctx context.Context, query string, limit int) ([]string, error) {
	tracks, err := s.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(tracks))
	for _, t := range tracks {
		urls = append(urls, t.URL)
	}
	return urls, nil
}

// TrackMetadata implements the cache's provider boundary for youtube items.
func (s *YTDLPService) TrackMetadata(ctx context.Context, item queue.Item) (mediacache.Metadata, error) {
	t, err := s.Probe(ctx, item.URI)
	if err != nil {
		return mediacache.Metadata{}, err
	}
	meta := mediacache.Metadata{
		Name:        t.Title,
		DurationMS:  t.DurationS * 1000,
		ImageURL:    t.Thumbnail,
		ExternalURL: t.URL,
	}
	if t.Channel != "" {
		meta.Artists = []string{t.Channel}
	}
	return meta, nil
}

type ytEntry struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Duration   float64 `json:"duration"`
	Thumbnail  string  `json:"thumbnail"`
	Uploader   string  `json:"uploader"`
	Channel    string  `json:"channel"`
	UploaderID string  `json:"uploader_id"`
	URL        string  `json:"url"`
	WebpageURL string  `json:"webpage_url"`
}

func (e ytEntry) toTrack() (YouTubeTrack, bool) {
	t := YouTubeTrack{
		VideoID:   e.ID,
		Title:     e.Title,
		DurationS: int(e.Duration),
		Thumbnail: e.Thumbnail,
	}
	for _, c := range []string{e.Uploader, e.Channel, e.UploaderID} {
		if strings.TrimSpace(c) != "" {
			t.Channel = strings.TrimSpace(c)
			break
		}
	}
	switch {
	case e.ID != "":
		t.URL = "https://www.youtube.com/watch?v=" + e.ID
	case strings.TrimSpace(e.WebpageURL) != "":
		t.URL = strings.TrimSpace(e.WebpageURL)
	case strings.TrimSpace(e.URL) != "":
		t.URL = strings.TrimSpace(e.URL)
	default:
		return YouTubeTrack{}, false
	}
	return t, true
}
