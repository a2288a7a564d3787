// ABOUTME: OAuth2 user credential loading for the assistant channel.
// ABOUTME: Reads the google-oauthlib-tool credentials file and yields a refreshing token source.

package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/oauth2"
)

// credentialsFile mirrors the JSON written by google-oauthlib-tool.
type credentialsFile struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	RefreshToken string   `json:"refresh_token"`
	TokenURI     string   `json:"token_uri"`
	Scopes       []string `json:"scopes"`
}

// LoadCredentials reads OAuth2 user credentials from path and returns a
// token source that refreshes access tokens as they expire. The file is
// the one produced by google-oauthlib-tool during device registration.
func LoadCredentials(ctx context.Context, path string) (oauth2.TokenSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}

	var creds credentialsFile
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parsing credentials file: %w", err)
	}
	if creds.RefreshToken == "" {
		return nil, fmt.Errorf("credentials file %s has no refresh_token (run google-oauthlib-tool to initialize)", path)
	}
	if creds.TokenURI == "" {
		return nil, fmt.Errorf("credentials file %s has no token_uri", path)
	}

	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Scopes:       creds.Scopes,
		Endpoint: oauth2.Endpoint{
			TokenURL: creds.TokenURI,
		},
	}

	ts := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken})

	// Refresh eagerly so a bad refresh token fails at startup, not on
	// the first turn.
	if _, err := ts.Token(); err != nil {
		return nil, fmt.Errorf("refreshing credentials: %w", err)
	}

	return oauth2.ReuseTokenSource(nil, ts), nil
}
