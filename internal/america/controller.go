// Package america implements the US deployment: direct token-endpoint authentication and the
// header-bag command dispatcher.
package america

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/bluelinky/bluelink-command/internal/env"
	"github.com/bluelinky/bluelink-command/internal/log"
	"github.com/bluelinky/bluelink-command/pkg/bluelink"
)

// Controller is the US session controller. Login posts credentials straight to the token
// endpoint; no cookie dance is involved.
type Controller struct {
	cfg     bluelink.AccountConfig
	environ env.America
	client  *http.Client
	session bluelink.Session

	// vehicles keyed by VIN so repeated discovery returns the same dispatcher identities.
	vehicles map[string]*Vehicle
	now      func() time.Time
}

// NewController builds a US controller for a normalized account config. A nil client selects
// http.DefaultClient.
func NewController(cfg bluelink.AccountConfig, client *http.Client) *Controller {
	if client == nil {
		client = http.DefaultClient
	}
	log.Debug("US controller created for brand %s", cfg.Brand)
	return &Controller{
		cfg:      cfg,
		environ:  env.AmericaFor(cfg.Brand),
		client:   client,
		vehicles: make(map[string]*Vehicle),
		now:      time.Now,
	}
}

func (c *Controller) Config() bluelink.AccountConfig { return c.cfg }
func (c *Controller) Session() *bluelink.Session     { return &c.session }

type tokenResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    json.Number `json:"expires_in"`
}

// Login authenticates with up to three attempts, backing off linearly on gateway errors
// (502/503/504). A response without an access token is a hard failure.
func (c *Controller) Login(ctx context.Context) error {
	log.Debug("logging in to the US API")
	err := retry.Do(
		func() error { return c.requestTokens(ctx) },
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			return time.Duration(n+1) * time.Second
		}),
		retry.RetryIf(func(err error) bool {
			var httpErr *bluelink.HTTPError
			return errors.As(err, &httpErr) && httpErr.Temporary()
		}),
		retry.LastErrorOnly(true),
	)
	return bluelink.WrapCommand(err, "AmericanController.login")
}

func (c *Controller) requestTokens(ctx context.Context) error {
	body, err := json.Marshal(map[string]string{
		"username": c.cfg.Username,
		"password": c.cfg.Password,
	})
	if err != nil {
		return err
	}
	url := c.environ.BaseURL + "/v2/ac/oauth/token"
	data, err := c.post(ctx, url, body)
	if err != nil {
		return err
	}

	var token tokenResponse
	if err := json.Unmarshal(data, &token); err != nil {
		return fmt.Errorf("decoding token response: %w", err)
	}
	if token.AccessToken == "" {
		return fmt.Errorf("token endpoint returned no access token: %s", string(data))
	}
	c.storeTokens(token)
	return nil
}

// RefreshAccessToken refreshes when the token is within the refresh window. Failures are returned
// as advisory results so the caller's main operation can proceed and surface the real error.
func (c *Controller) RefreshAccessToken(ctx context.Context) bluelink.RefreshResult {
	if !c.session.TokenShouldRefresh(c.now()) {
		log.Debug("token not expired, no need to refresh")
		return bluelink.RefreshResult{Outcome: bluelink.RefreshNotNeeded}
	}
	if c.session.RefreshToken == "" {
		return bluelink.RefreshResult{Outcome: bluelink.RefreshFailed, Reason: bluelink.ErrNeedsLogin.Error()}
	}

	body, err := json.Marshal(map[string]string{"refresh_token": c.session.RefreshToken})
	if err != nil {
		return bluelink.RefreshResult{Outcome: bluelink.RefreshFailed, Reason: err.Error()}
	}
	url := c.environ.BaseURL + "/v2/ac/oauth/token/refresh"
	data, err := c.post(ctx, url, body)
	if err != nil {
		return bluelink.RefreshResult{Outcome: bluelink.RefreshFailed, Reason: err.Error()}
	}

	var token tokenResponse
	if err := json.Unmarshal(data, &token); err != nil || token.AccessToken == "" {
		return bluelink.RefreshResult{
			Outcome: bluelink.RefreshFailed,
			Reason:  fmt.Sprintf("refresh endpoint returned no access token: %s", string(data)),
		}
	}
	c.storeTokens(token)
	log.Debug("token refreshed")
	return bluelink.RefreshResult{Outcome: bluelink.RefreshPerformed}
}

func (c *Controller) storeTokens(token tokenResponse) {
	expiresIn, _ := token.ExpiresIn.Int64()
	c.session.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		c.session.RefreshToken = token.RefreshToken
	}
	c.session.TokenExpiresAt = bluelink.TokenExpiry(c.now(), expiresIn, token.AccessToken)
}

func (c *Controller) post(ctx context.Context, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "PostmanRuntime/7.26.10")
	req.Header.Set("client_id", c.environ.ClientID)
	req.Header.Set("client_secret", c.environ.ClientSecret)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &bluelink.HTTPError{Method: http.MethodPost, URL: url, Err: err}
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &bluelink.HTTPError{Method: http.MethodPost, URL: url, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &bluelink.HTTPError{
			Method: http.MethodPost, URL: url,
			Code: resp.StatusCode, Status: resp.Status, Body: string(data),
		}
	}
	return data, nil
}

type enrollmentDetails struct {
	EnrolledVehicleDetails []struct {
		VehicleDetails vehicleDetails `json:"vehicleDetails"`
	} `json:"enrolledVehicleDetails"`
}

type vehicleDetails struct {
	NickName          string      `json:"nickName"`
	VIN               string      `json:"vin"`
	EnrollmentDate    string      `json:"enrollmentDate"`
	BrandIndicator    string      `json:"brandIndicator"`
	RegID             string      `json:"regid"`
	VehicleGeneration json.Number `json:"vehicleGeneration"`
	EVStatus          string      `json:"evStatus"`
	Odometer          json.Number `json:"odometer"`
}

// GetVehicles lists the account's enrolled vehicles. Dispatchers are reused across calls so the
// identity set stays stable, and an empty enrollment yields an empty slice.
func (c *Controller) GetVehicles(ctx context.Context) ([]bluelink.Vehicle, error) {
	details, err := c.enrollmentDetails(ctx)
	if err != nil {
		return nil, bluelink.WrapCommand(err, "AmericanController.getVehicles")
	}

	vehicles := make([]bluelink.Vehicle, 0, len(details.EnrolledVehicleDetails))
	for _, entry := range details.EnrolledVehicleDetails {
		info := entry.VehicleDetails
		reg := bluelink.RegisterOptions{
			Name:           info.NickName,
			Nickname:       info.NickName,
			VIN:            info.VIN,
			RegDate:        info.EnrollmentDate,
			BrandIndicator: info.BrandIndicator,
			RegID:          info.RegID,
			Generation:     info.VehicleGeneration.String(),
		}
		switch info.EVStatus {
		case "E":
			reg.EngineType = bluelink.EngineEV
		case "N":
			reg.EngineType = bluelink.EngineICE
		}

		vehicle, ok := c.vehicles[info.VIN]
		if !ok {
			vehicle = newVehicle(reg, c)
			c.vehicles[info.VIN] = vehicle
		}
		vehicles = append(vehicles, vehicle)
	}
	log.Debug("found %d enrolled vehicle(s)", len(vehicles))
	return vehicles, nil
}

func (c *Controller) enrollmentDetails(ctx context.Context) (*enrollmentDetails, error) {
	url := fmt.Sprintf("%s/ac/v2/enrollment/details/%s", c.environ.BaseURL, c.cfg.Username)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("access_token", c.session.AccessToken)
	req.Header.Set("client_id", c.environ.ClientID)
	req.Header.Set("Host", c.environ.Host)
	req.Header.Set("User-Agent", "okhttp/3.12.0")
	req.Header.Set("payloadGenerated", "20200226171938")
	req.Header.Set("includeNonConnectedVehicles", "Y")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &bluelink.HTTPError{Method: http.MethodGet, URL: url, Err: err}
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &bluelink.HTTPError{Method: http.MethodGet, URL: url, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &bluelink.HTTPError{
			Method: http.MethodGet, URL: url,
			Code: resp.StatusCode, Status: resp.Status, Body: string(data),
		}
	}

	var details enrollmentDetails
	if err := json.Unmarshal(data, &details); err != nil {
		return nil, fmt.Errorf("decoding enrollment details: %w", err)
	}
	return &details, nil
}

// Logout drops the local session. The US API has no server-side logout call.
func (c *Controller) Logout(ctx context.Context) error {
	c.session = bluelink.Session{}
	return nil
}
