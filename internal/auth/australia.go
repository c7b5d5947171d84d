package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/bluelinky/bluelink-command/internal/env"
	"github.com/bluelinky/bluelink-command/pkg/bluelink"
)

// AustraliaStrategy logs in against the AU gateway. The flow matches the legacy CCSP signin
// except the gateway insists on a text/plain content type and a mobileNum field.
type AustraliaStrategy struct {
	Env    env.CCSP
	Client *http.Client
}

func (s *AustraliaStrategy) Name() string { return "AustraliaStrategy" }

func (s *AustraliaStrategy) Login(ctx context.Context, username, password string) (*Result, error) {
	client := s.client()
	jar, err := initSession(ctx, client, s.Env)
	if err != nil {
		return nil, bluelink.WrapCommand(err, "AustraliaStrategy.login")
	}

	payload, err := json.Marshal(map[string]string{
		"email":     username,
		"password":  password,
		"mobileNum": "",
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Env.Endpoints.Login, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, bluelink.WrapCommand(err, "AustraliaStrategy.login")
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	code, err := codeFromRedirectBody(resp.StatusCode, body)
	if err != nil {
		return nil, bluelink.WrapCommand(err, "AustraliaStrategy.login")
	}
	return &Result{Code: code, Cookies: jar}, nil
}

func (s *AustraliaStrategy) client() *http.Client {
	if s.Client != nil {
		return s.Client
	}
	return &http.Client{}
}
