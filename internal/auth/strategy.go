// Package auth implements the cookie/redirect login procedures that turn account credentials into
// an authorization code ahead of the token exchange.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"

	"github.com/bluelinky/bluelink-command/internal/env"
)

// Browser-like agent expected by the signin frontends.
const userAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 11_1 like Mac OS X) AppleWebKit/604.3.5 (KHTML, like Gecko) Version/11.0 Mobile/15B92 Safari/604.1"

// Result carries the authorization code and the cookie jar it was obtained with. Some deployments
// require session continuity during the subsequent token exchange, so the jar travels with the
// code.
type Result struct {
	Code    string
	Cookies http.CookieJar
}

// Strategy is a single-pass login procedure. Strategies never retry internally; a controller
// attempts the brand strategy first and falls back to the legacy strategy on error.
type Strategy interface {
	Name() string
	Login(ctx context.Context, username, password string) (*Result, error)
}

// initSession builds a cookie jar and seeds it by visiting the authorize endpoint.
func initSession(ctx context.Context, client *http.Client, e env.CCSP) (http.CookieJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.Jar = jar

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.Endpoints.Session, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("seeding session cookies: %w", err)
	}
	resp.Body.Close()
	return jar, nil
}
