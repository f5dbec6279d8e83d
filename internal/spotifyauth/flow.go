package spotifyauth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	// SpotifyAuthURL is the Spotify authorization endpoint.
	SpotifyAuthURL = "https://accounts.spotify.com/authorize"

	// SpotifyTokenURL is the Spotify token endpoint.
	SpotifyTokenURL = "https://accounts.spotify.com/api/token"
)

// Scopes are the Spotify scopes the app needs: driving playback, reading
// player state and reading the account market.
var Scopes = []string{
	"user-read-playback-state",
	"user-modify-playback-state",
	"user-read-currently-playing",
	"user-read-private",
}

// ErrNotAuthenticated is returned when no token has been obtained yet.
var ErrNotAuthenticated = errors.New("spotify account not connected")

// TokenStore persists the OAuth token across restarts.
type TokenStore interface {
	SaveToken(token *Token) error
	LoadToken() (*Token, error)
}

// Credentials supplies the current client id and redirect URL, read fresh
// for every attempt so config edits apply without a restart.
type Credentials func() (clientID, redirectURL string)

// Flow drives the PKCE authorization flow and serves fresh access tokens.
type Flow struct {
	creds      Credentials
	store      TokenStore
	tokenURL   string
	httpClient *http.Client
	log        *log.Logger

	mu      sync.Mutex
	token   *Token
	pending *PKCE
}

func NewFlow(creds Credentials, store TokenStore, logger *log.Logger) *Flow {
	f := &Flow{
		creds:      creds,
		store:      store,
		tokenURL:   SpotifyTokenURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        logger,
	}
	if token, err := store.LoadToken(); err != nil {
		logger.Printf("Failed to load stored spotify token: %v", err)
	} else if token != nil {
		f.token = token
	}
	return f
}

// Begin starts a new authorization attempt and returns the URL the user
// must visit. Any earlier unfinished attempt is discarded.
func (f *Flow) Begin() (string, error) {
	clientID, redirectURL := f.creds()
	if strings.TrimSpace(clientID) == "" {
		return "", errors.New("spotify client id not configured")
	}
	pkce, err := NewPKCE()
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	f.pending = pkce
	f.mu.Unlock()

	u, _ := url.Parse(SpotifyAuthURL)
	q := u.Query()
	q.Set("client_id", clientID)
	q.Set("response_type", "code")
	q.Set("redirect_uri", redirectURL)
	q.Set("code_challenge_method", "S256")
	q.Set("code_challenge", pkce.Challenge)
	q.Set("state", pkce.State)
	q.Set("scope", strings.Join(Scopes, " "))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Complete finishes the flow with the code and state from the callback.
func (f *Flow) Complete(ctx context.Context, code, state string) error {
	f.mu.Lock()
	pending := f.pending
	f.mu.Unlock()
	if pending == nil {
		return errors.New("no authorization attempt in progress")
	}
	if state != pending.State {
		return errors.New("state mismatch in spotify callback")
	}

	clientID, redirectURL := f.creds()
	token, err := f.exchangeCode(ctx, clientID, code, redirectURL, pending.Verifier)
	if err != nil {
		return fmt.Errorf("code exchange failed: %w", err)
	}

	f.mu.Lock()
	f.token = token
	f.pending = nil
	f.mu.Unlock()

	if err := f.store.SaveToken(token); err != nil {
		f.log.Printf("Failed to persist spotify token: %v", err)
	}
	return nil
}

// Authenticated reports whether a token is on hand. It does not validate
// the token upstream.
func (f *Flow) Authenticated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token != nil
}

// AccessToken returns a valid access token, refreshing first when the
// current one is expired. Implements the API client's token source.
func (f *Flow) AccessToken(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.token == nil {
		return "", ErrNotAuthenticated
	}
	if !f.token.IsExpired() {
		return f.token.AccessToken, nil
	}

	clientID, _ := f.creds()
	refreshed, err := f.refreshToken(ctx, clientID, f.token.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("token refresh failed: %w", err)
	}
	// Spotify may omit the refresh token on refresh; keep the old one.
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = f.token.RefreshToken
	}
	f.token = refreshed
	if err := f.store.SaveToken(refreshed); err != nil {
		f.log.Printf("Failed to persist refreshed spotify token: %v", err)
	}
	return refreshed.AccessToken, nil
}

// Disconnect drops the token, locally and from the store.
func (f *Flow) Disconnect() error {
	f.mu.Lock()
	f.token = nil
	f.pending = nil
	f.mu.Unlock()
	return f.store.SaveToken(nil)
}
