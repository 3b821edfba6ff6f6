// Package googleauth builds authenticated HTTP clients for the Google
// APIs from OAuth client credentials plus a token minted by oauth-init.
package googleauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Credentials locates the OAuth client definition and the user token.
// The JSON fields take precedence over the file fields when both are set.
type Credentials struct {
	ClientFile string
	ClientJSON string
	TokenFile  string
	TokenJSON  string
}

// OAuthConfig parses the OAuth client definition into a config carrying
// the given scopes. Used by HTTPClient and by oauth-init before a token
// exists.
func OAuthConfig(creds Credentials, scopes ...string) (*oauth2.Config, error) {
	clientBytes, err := read(creds.ClientJSON, creds.ClientFile)
	if err != nil {
		return nil, fmt.Errorf("oauth client credentials: %w", err)
	}
	cfg, err := google.ConfigFromJSON(clientBytes, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse oauth client credentials: %w", err)
	}
	return cfg, nil
}

// HTTPClient returns an http.Client that attaches and refreshes the OAuth
// token on every request.
func HTTPClient(ctx context.Context, creds Credentials, scopes ...string) (*http.Client, error) {
	cfg, err := OAuthConfig(creds, scopes...)
	if err != nil {
		return nil, err
	}

	tokenBytes, err := read(creds.TokenJSON, creds.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("oauth token: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(tokenBytes, &token); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}

	return cfg.Client(ctx, &token), nil
}

func read(inline, file string) ([]byte, error) {
	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		return b, nil
	}
	return nil, errors.New("neither inline JSON nor file path provided")
}
