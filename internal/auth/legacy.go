package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/bluelinky/bluelink-command/internal/env"
	"github.com/bluelinky/bluelink-command/pkg/bluelink"
)

// LegacyStrategy posts credentials straight to the CCSP signin endpoint and extracts the
// authorization code from the redirectUrl the server returns in its JSON body. Kept as the
// fallback for accounts not yet migrated to the brand identity provider.
type LegacyStrategy struct {
	Env    env.CCSP
	Client *http.Client
}

func (s *LegacyStrategy) Name() string { return "LegacyStrategy" }

func (s *LegacyStrategy) Login(ctx context.Context, username, password string) (*Result, error) {
	client := s.client()
	jar, err := initSession(ctx, client, s.Env)
	if err != nil {
		return nil, bluelink.WrapCommand(err, "LegacyStrategy.login")
	}

	payload, err := json.Marshal(map[string]string{
		"email":    username,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Env.Endpoints.Login, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, bluelink.WrapCommand(err, "LegacyStrategy.login")
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	code, err := codeFromRedirectBody(resp.StatusCode, body)
	if err != nil {
		return nil, bluelink.WrapCommand(err, "LegacyStrategy.login")
	}
	return &Result{Code: code, Cookies: jar}, nil
}

func (s *LegacyStrategy) client() *http.Client {
	if s.Client != nil {
		return s.Client
	}
	return &http.Client{}
}

// codeFromRedirectBody pulls the code query parameter out of a signin response's redirectUrl. A
// missing redirect or code usually means the account must be migrated to the brand signin flow.
func codeFromRedirectBody(status int, body []byte) (string, error) {
	var parsed struct {
		RedirectURL string `json:"redirectUrl"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.RedirectURL == "" {
		return "", fmt.Errorf(
			"signin did not return an auth code (status %d, body %s); the account may need migration",
			status, string(body))
	}
	redirect, err := url.Parse(parsed.RedirectURL)
	if err != nil {
		return "", fmt.Errorf("malformed redirectUrl %q: %w", parsed.RedirectURL, err)
	}
	code := redirect.Query().Get("code")
	if code == "" {
		return "", fmt.Errorf("no auth code in redirectUrl %q; the account probably needs migration", parsed.RedirectURL)
	}
	return code, nil
}
