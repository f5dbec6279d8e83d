// Package spotifyauth implements the Spotify authorization-code flow with
// PKCE and keeps the resulting token fresh and persisted.
package spotifyauth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
)

const (
	// codeVerifierLength is the PKCE code verifier length. Spotify accepts
	// 43-128 characters.
	codeVerifierLength = 64

	// stateLength is the length of the CSRF state parameter.
	stateLength = 32
)

// PKCE holds the code verifier, challenge and state for one authorization
// attempt.
type PKCE struct {
	Verifier  string
	Challenge string
	State     string
}

// NewPKCE generates a fresh verifier, S256 challenge and state.
func NewPKCE() (*PKCE, error) {
	verifier, err := randomString(codeVerifierLength)
	if err != nil {
		return nil, err
	}
	state, err := randomString(stateLength)
	if err != nil {
		return nil, err
	}
	hash := sha256.Sum256([]byte(verifier))
	return &PKCE{
		Verifier:  verifier,
		Challenge: base64.RawURLEncoding.EncodeToString(hash[:]),
		State:     state,
	}, nil
}

func randomString(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	encoded := base64.RawURLEncoding.EncodeToString(bytes)
	if len(encoded) > length {
		encoded = encoded[:length]
	}
	return encoded, nil
}
