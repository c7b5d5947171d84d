// Package ccapi wraps the CCSP API gateway shared by the EU and AU deployments: every call
// carries an Authorization header, the registered device id, the application id, and a fresh
// stamp, and every response arrives in the retCode/resMsg envelope.
package ccapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bluelinky/bluelink-command/internal/log"
	"github.com/bluelinky/bluelink-command/pkg/bluelink"
)

// Service issues authenticated calls against one CCSP gateway. The token and device-id callbacks
// read live session state so the service never holds stale credentials.
type Service struct {
	BaseURL string
	AppID   string
	Client  *http.Client

	// Authorization returns the bearer value for the call: the access token for account-level
	// calls, the control token for privileged vehicle commands.
	Authorization func() string
	DeviceID      func() string
	Stamp         func() (string, error)
}

// Response is a decoded gateway reply.
type Response struct {
	StatusCode int         `json:"-"`
	Header     http.Header `json:"-"`
	Body       []byte      `json:"-"`

	RetCode string          `json:"retCode"`
	ResCode string          `json:"resCode"`
	ResMsg  json.RawMessage `json:"resMsg"`
}

// DecodeResMsg unmarshals the envelope's resMsg payload into v.
func (r *Response) DecodeResMsg(v interface{}) error {
	if len(r.ResMsg) == 0 {
		return fmt.Errorf("response has no resMsg payload")
	}
	return json.Unmarshal(r.ResMsg, v)
}

// UpdateRates folds the response's X-RateLimit headers into state. Missing headers leave state
// untouched.
func (r *Response) UpdateRates(state *bluelink.RateState) {
	limit := r.Header.Get("X-RateLimit-Limit")
	if limit == "" {
		return
	}
	if max, err := strconv.Atoi(limit); err == nil {
		state.Max = max
	}
	if remaining, err := strconv.Atoi(r.Header.Get("X-RateLimit-Remaining")); err == nil {
		state.Current = remaining
	}
	if reset, err := strconv.ParseInt(r.Header.Get("X-RateLimit-Reset"), 10, 64); err == nil {
		state.Reset = time.Unix(reset, 0)
	}
	state.UpdatedAt = time.Now()
}

// Get issues an authenticated GET against a gateway path.
func (s *Service) Get(ctx context.Context, path string) (*Response, error) {
	return s.do(ctx, http.MethodGet, path, nil)
}

// Post issues an authenticated POST with a JSON body against a gateway path.
func (s *Service) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	return s.do(ctx, http.MethodPost, path, body)
}

func (s *Service) do(ctx context.Context, method, path string, body interface{}) (*Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	url := s.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", s.Authorization())
	req.Header.Set("ccsp-device-id", s.DeviceID())
	req.Header.Set("ccsp-application-id", s.AppID)
	req.Header.Set("Content-Type", "application/json;charset=UTF-8")
	stamp, err := s.Stamp()
	if err != nil {
		return nil, fmt.Errorf("generating stamp: %w", err)
	}
	req.Header.Set("Stamp", stamp)

	resp, err := s.client().Do(req)
	if err != nil {
		return nil, &bluelink.HTTPError{Method: method, URL: url, Err: err}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &bluelink.HTTPError{Method: method, URL: url, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &bluelink.HTTPError{
			Method: method,
			URL:    url,
			Code:   resp.StatusCode,
			Status: resp.Status,
			Body:   string(raw),
		}
	}

	out := &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: raw}
	if err := json.Unmarshal(raw, out); err != nil {
		// Some command endpoints reply with non-envelope bodies; keep the raw payload.
		log.Debug("ccapi: non-envelope response from %s", path)
		return out, nil
	}
	if out.RetCode != "" && out.RetCode != "S" {
		return nil, &bluelink.HTTPError{
			Method: method,
			URL:    url,
			Code:   resp.StatusCode,
			Status: fmt.Sprintf("application error %s", out.ResCode),
			Body:   string(raw),
		}
	}
	return out, nil
}

func (s *Service) client() *http.Client {
	if s.Client != nil {
		return s.Client
	}
	return http.DefaultClient
}
