package staticservices

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/azuridayo/tiptune/internal/mediacache"
	"github.com/azuridayo/tiptune/internal/pipeline"
	"github.com/azuridayo/tiptune/internal/queue"
)

const spotifyAPIBase = "https://api.spotify.com/v1"

// TokenSource supplies a valid Spotify access token, refreshing as needed.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// SpotifyTrack is the track shape returned by search and lookup.
type SpotifyTrack struct {
	ID               string   `json:"id"`
	URI              string   `json:"uri"`
	Name             string   `json:"name"`
	Artists          []string `json:"artists"`
	Album            string   `json:"album"`
	DurationMS       int      `json:"duration_ms"`
	Explicit         bool     `json:"explicit"`
	ImageURL         string   `json:"image_url"`
	ExternalURL      string   `json:"external_url"`
	AvailableMarkets []string `json:"-"`
}

// SpotifyDevice is one playback device from /me/player/devices.
type SpotifyDevice struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	IsActive bool   `json:"is_active"`
}

// PlaybackState is the live player state for the dashboard and the
// reconciler.
type PlaybackState struct {
	IsPlaying  bool   `json:"is_playing"`
	ProgressMS int    `json:"progress_ms"`
	TrackID    string `json:"track_id,omitempty"`
	TrackURI   string `json:"track_uri,omitempty"`
	DeviceID   string `json:"device_id,omitempty"`
}

// SpotifyService talks to the Spotify Web API. It drives playback for the
// queue and resolves and enriches spotify track references.
type SpotifyService struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	log        Logger

	mu         sync.Mutex
	deviceID   string
	userMarket string
}

// Logger is the subset of *log.Logger the services need.
type Logger interface {
	Printf(format string, v ...any)
}

// NewSpotifyService creates a Spotify client. deviceID may be empty; a
// device is auto-selected on first use.
func NewSpotifyService(tokens TokenSource, deviceID string, logger Logger) *SpotifyService {
	return &SpotifyService{
		baseURL:    spotifyAPIBase,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		tokens:     tokens,
		log:        logger,
		deviceID:   deviceID,
	}
}

// SetDeviceID pins playback to a device, typically from the dashboard.
func (s *SpotifyService) SetDeviceID(id string) {
	s.mu.Lock()
	s.deviceID = id
	s.mu.Unlock()
}

func (s *SpotifyService) DeviceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deviceID
}

func (s *SpotifyService) makeRequest(ctx context.Context, method, endpoint string, query url.Values, body any) (*http.Request, error) {
	u := s.baseURL + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, u, reqBody)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, u, nil)
	}
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.AccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (s *SpotifyService) do(req *http.Request, out any) error {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("spotify %s %s failed with status: %d", req.Method, req.URL.Path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode spotify response: %w", err)
	}
	return nil
}

// StartPlayback plays the given track URIs on the selected device.
func (s *SpotifyService) StartPlayback(ctx context.Context, uris []string) error {
	deviceID, err := s.EnsureDevice(ctx)
	if err != nil {
		return err
	}
	q := url.Values{}
	if deviceID != "" {
		q.Set("device_id", deviceID)
	}
	req, err := s.makeRequest(ctx, http.MethodPut, "/me/player/play", q, map[string]any{"uris": uris})
	if err != nil {
		return err
	}
	return s.do(req, nil)
}

// Next skips the live playback to the next track.
func (s *SpotifyService) Next(ctx context.Context) error {
	req, err := s.makeRequest(ctx, http.MethodPost, "/me/player/next", nil, nil)
	if err != nil {
		return err
	}
	return s.do(req, nil)
}

// Player returns the live playback state, or nil when no device is active.
func (s *SpotifyService) Player(ctx context.Context) (*PlaybackState, error) {
	req, err := s.makeRequest(ctx, http.MethodGet, "/me/player", nil, nil)
	if err != nil {
		return nil, err
	}
	var raw struct {
		IsPlaying  bool `json:"is_playing"`
		ProgressMS int  `json:"progress_ms"`
		Item       *struct {
			ID  string `json:"id"`
			URI string `json:"uri"`
		} `json:"item"`
		Device *struct {
			ID string `json:"id"`
		} `json:"device"`
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("spotify player state failed with status: %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode player state: %w", err)
	}

	state := &PlaybackState{IsPlaying: raw.IsPlaying, ProgressMS: raw.ProgressMS}
	if raw.Item != nil {
		state.TrackID = raw.Item.ID
		state.TrackURI = raw.Item.URI
	}
	if raw.Device != nil {
		state.DeviceID = raw.Device.ID
	}
	return state, nil
}

// Devices lists the user's playback devices.
func (s *SpotifyService) Devices(ctx context.Context) ([]SpotifyDevice, error) {
	req, err := s.makeRequest(ctx, http.MethodGet, "/me/player/devices", nil, nil)
	if err != nil {
		return nil, err
	}
	var raw struct {
		Devices []SpotifyDevice `json:"devices"`
	}
	if err := s.do(req, &raw); err != nil {
		return nil, err
	}
	return raw.Devices, nil
}

// TransferPlayback moves playback to a device.
func (s *SpotifyService) TransferPlayback(ctx context.Context, deviceID string, play bool) error {
	req, err := s.makeRequest(ctx, http.MethodPut, "/me/player", nil, map[string]any{
		"device_ids": []string{deviceID},
		"play":       play,
	})
	if err != nil {
		return err
	}
	if err := s.do(req, nil); err != nil {
		return err
	}
	s.SetDeviceID(deviceID)
	return nil
}

// EnsureDevice returns the pinned device id, auto-selecting one when none is
// pinned or the pinned one disappeared: the active device first, else the
// first listed.
func (s *SpotifyService) EnsureDevice(ctx context.Context) (string, error) {
	devices, err := s.Devices(ctx)
	if err != nil {
		return "", err
	}
	current := s.DeviceID()
	for _, d := range devices {
		if d.ID == current {
			return current, nil
		}
	}
	var pick string
	for _, d := range devices {
		if d.IsActive {
			pick = d.ID
			break
		}
	}
	if pick == "" && len(devices) > 0 {
		pick = devices[0].ID
	}
	if pick == "" {
		return "", fmt.Errorf("no spotify playback devices available")
	}
	if pick != current {
		s.log.Printf("Selected spotify playback device %s", pick)
		s.SetDeviceID(pick)
	}
	return pick, nil
}

// SearchTracks searches the US-market catalog.
func (s *SpotifyService) SearchTracks(ctx context.Context, query string, limit int) ([]SpotifyTrack, error) {
	if limit < 1 {
		limit = 1
	}
	q := url.Values{}
	q.Set("q", query)
	q.Set("type", "track")
	q.Set("market", "US")
	q.Set("limit", strconv.Itoa(limit))
	req, err := s.makeRequest(ctx, http.MethodGet, "/search", q, nil)
	if err != nil {
		return nil, err
	}
	var raw struct {
		Tracks struct {
			Items []rawTrack `json:"items"`
		} `json:"tracks"`
	}
	if err := s.do(req, &raw); err != nil {
		return nil, err
	}
	tracks := make([]SpotifyTrack, 0, len(raw.Tracks.Items))
	for _, t := range raw.Tracks.Items {
		tracks = append(tracks, t.toTrack())
	}
	return tracks, nil
}

// Track looks up a single track, including its available markets.
func (s *SpotifyService) Track(ctx context.Context, id string) (*SpotifyTrack, error) {
	req, err := s.makeRequest(ctx, http.MethodGet, "/tracks/"+id, nil, nil)
	if err != nil {
		return nil, err
	}
	var raw rawTrack
	if err := s.do(req, &raw); err != nil {
		return nil, err
	}
	track := raw.toTrack()
	return &track, nil
}

// UserMarket returns the account's country code, cached after the first
// call.
func (s *SpotifyService) UserMarket(ctx context.Context) (string, error) {
	s.mu.Lock()
	cached := s.userMarket
	s.mu.Unlock()
	if cached != "" {
		return cached, nil
	}
	req, err := s.makeRequest(ctx, http.MethodGet, "/me", nil, nil)
	if err != nil {
		return "", err
	}
	var raw struct {
		Country string `json:"country"`
	}
	if err := s.do(req, &raw); err != nil {
		return "", err
	}
	s.mu.Lock()
	s.userMarket = raw.Country
	s.mu.Unlock()
	return raw.Country, nil
}

// Start implements the queue device boundary.
func (s *SpotifyService) Start(ctx context.Context, item queue.Item) error {
	return s.StartPlayback(ctx, []string{item.URI})
}

// Skip implements the queue device boundary.
func (s *SpotifyService) Skip(ctx context.Context, _ queue.Item) error {
	return s.Next(ctx)
}

// Active reports whether the device is currently playing.
func (s *SpotifyService) Active(ctx context.Context) (bool, error) {
	state, err := s.Player(ctx)
	if err != nil {
		return false, err
	}
	return state != nil && state.IsPlaying, nil
}

// Reconcile re-validates the pinned playback device so the next start lands
// on a device that still exists.
func (s *SpotifyService) Reconcile(ctx context.Context) {
	if _, err := s.EnsureDevice(ctx); err != nil {
		s.log.Printf("Device reconcile: %v", err)
	}
}

// ResolveTrack finds a track URI for an extracted title: a field-scoped
// search first, then a free-text fallback.
func (s *SpotifyService) ResolveTrack(ctx context.Context, t pipeline.Title) (string, error) {
	query := fmt.Sprintf("track:%q", t.Song)
	if t.Artist != "" {
		query += fmt.Sprintf(" artist:%q", t.Artist)
	}
	tracks, err := s.SearchTracks(ctx, query, 1)
	if err != nil {
		return "", err
	}
	if len(tracks) == 0 {
		free := t.Song
		if t.Artist != "" {
			free = t.Artist + " " + t.Song
		}
		tracks, err = s.SearchTracks(ctx, free, 1)
		if err != nil {
			return "", err
		}
	}
	if len(tracks) == 0 {
		return "", nil
	}
	return tracks[0].URI, nil
}

// AvailableInMarket reports whether the user's market carries the track. An
// empty market list means the track is available everywhere.
func (s *SpotifyService) AvailableInMarket(ctx context.Context, uri string) (bool, error) {
	id := queue.ParseSpotifyTrackID(uri)
	if id == "" {
		return false, fmt.Errorf("not a spotify track uri: %s", uri)
	}
	track, err := s.Track(ctx, id)
	if err != nil {
		return false, err
	}
	if len(track.AvailableMarkets) == 0 {
		return true, nil
	}
	market, err := s.UserMarket(ctx)
	if err != nil {
		return false, err
	}
	for _, m := range track.AvailableMarkets {
		if m == market {
			return true, nil
		}
	}
	return false, nil
}

// TrackMetadata implements the cache's provider boundary.
func (s *SpotifyService) TrackMetadata(ctx context.Context, item queue.Item) (mediacache.Metadata, error) {
	id := queue.ParseSpotifyTrackID(item.URI)
	if id == "" {
		return mediacache.Metadata{}, fmt.Errorf("not a spotify track uri: %s", item.URI)
	}
	track, err := s.Track(ctx, id)
	if err != nil {
		return mediacache.Metadata{}, err
	}
	return mediacache.Metadata{
		TrackID:     track.ID,
		Name:        track.Name,
		Artists:     track.Artists,
		Album:       track.Album,
		DurationMS:  track.DurationMS,
		Explicit:    track.Explicit,
		ImageURL:    track.ImageURL,
		ExternalURL: track.ExternalURL,
	}, nil
}

// rawTrack is the wire shape of a track object.
type rawTrack struct {
	ID      string `json:"id"`
	URI     string `json:"uri"`
	Name    string `json:"name"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Name   string `json:"name"`
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
	} `json:"album"`
	DurationMS       int      `json:"duration_ms"`
	Explicit         bool     `json:"explicit"`
	AvailableMarkets []string `json:"available_markets"`
	ExternalURLs     struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`
}

func (t rawTrack) toTrack() SpotifyTrack {
	out := SpotifyTrack{
		ID:               t.ID,
		URI:              t.URI,
		Name:             t.Name,
		Album:            t.Album.Name,
		DurationMS:       t.DurationMS,
		Explicit:         t.Explicit,
		AvailableMarkets: t.AvailableMarkets,
		ExternalURL:      t.ExternalURLs.Spotify,
	}
	for _, a := range t.Artists {
		out.Artists = append(out.Artists, a.Name)
	}
	if len(t.Album.Images) > 0 {
		out.ImageURL = t.Album.Images[0].URL
	}
	return out
}
