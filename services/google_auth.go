package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
)

// ServiceAccountCredentials is the subset of a Google service account key
// file needed for the JWT bearer flow.
type ServiceAccountCredentials struct {
	Type        string `json:"type"`
	ProjectID   string `json:"project_id"`
	PrivateKey  string `json:"private_key"`
	ClientEmail string `json:"client_email"`
	TokenURI    string `json:"token_uri"`
}

// GoogleTokenSource builds a token source for the Sheets and Drive APIs.
// raw may be the key JSON itself or a path to it.
func GoogleTokenSource(ctx context.Context, raw string, scopes ...string) (oauth2.TokenSource, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("google service account credentials are not set")
	}
	data := []byte(raw)
	if !strings.HasPrefix(raw, "{") {
		b, err := os.ReadFile(raw)
		if err != nil {
			return nil, fmt.Errorf("reading service account file: %w", err)
		}
		data = b
	}

	var creds ServiceAccountCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parsing service account credentials: %w", err)
	}
	if creds.ClientEmail == "" || creds.PrivateKey == "" {
		return nil, fmt.Errorf("service account credentials missing client_email or private_key")
	}
	tokenURL := creds.TokenURI
	if tokenURL == "" {
		tokenURL = google.Endpoint.TokenURL
	}

	cfg := &jwt.Config{
		Email:      creds.ClientEmail,
		PrivateKey: []byte(strings.ReplaceAll(creds.PrivateKey, `\n`, "\n")),
		Scopes:     scopes,
		TokenURL:   tokenURL,
	}
	return cfg.TokenSource(ctx), nil
}
