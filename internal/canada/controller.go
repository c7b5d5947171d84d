// Package canada implements the Canadian deployment: a plain credential login, an
// accessToken-header API, and per-command PIN verification through the pAuth token.
package canada

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bluelinky/bluelink-command/internal/env"
	"github.com/bluelinky/bluelink-command/internal/log"
	"github.com/bluelinky/bluelink-command/pkg/bluelink"
)

// pAuthLifetime is how long a verified pin stays usable before it must be presented again.
const pAuthLifetime = 10 * time.Minute

// Controller is the Canadian session controller. The deployment has no refresh grant; a stale
// token is renewed by logging in again.
type Controller struct {
	cfg     bluelink.AccountConfig
	environ env.Canada
	client  *http.Client
	session bluelink.Session

	vehicles map[string]*Vehicle
	now      func() time.Time
}

// NewController builds a Canadian controller. The default transport permits TLS renegotiation,
// which the mybluelink.ca frontends still require.
func NewController(cfg bluelink.AccountConfig, client *http.Client) *Controller {
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					MinVersion:    tls.VersionTLS12,
					Renegotiation: tls.RenegotiateOnceAsClient,
				},
			},
		}
	}
	return &Controller{
		cfg:      cfg,
		environ:  env.CanadaFor(cfg.Brand),
		client:   client,
		vehicles: make(map[string]*Vehicle),
		now:      time.Now,
	}
}

func (c *Controller) Config() bluelink.AccountConfig { return c.cfg }
func (c *Controller) Session() *bluelink.Session     { return &c.session }

// apiResponse is the responseHeader/result envelope every tods/api endpoint replies with.
type apiResponse struct {
	ResponseHeader struct {
		ResponseCode int    `json:"responseCode"`
		ResponseDesc string `json:"responseDesc"`
	} `json:"responseHeader"`
	Result json.RawMessage `json:"result"`
}

func (r *apiResponse) decodeResult(v interface{}) error {
	if len(r.Result) == 0 {
		return fmt.Errorf("response has no result payload")
	}
	return json.Unmarshal(r.Result, v)
}

// request posts a JSON body with the standard header set. A non-zero responseCode is surfaced as
// an application-level HTTPError.
func (c *Controller) request(ctx context.Context, url string, body interface{}, extra map[string]string) (*apiResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("from", c.environ.Origin)
	req.Header.Set("language", "1")
	req.Header.Set("offset", "-5")
	if c.session.AccessToken != "" {
		req.Header.Set("accessToken", c.session.AccessToken)
	}
	for key, value := range extra {
		req.Header.Set(key, value)
	}

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

	var decoded apiResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if decoded.ResponseHeader.ResponseCode != 0 {
		return nil, &bluelink.HTTPError{
			Method: http.MethodPost, URL: url,
			Code:   resp.StatusCode,
			Status: fmt.Sprintf("application error %d: %s", decoded.ResponseHeader.ResponseCode, decoded.ResponseHeader.ResponseDesc),
			Body:   string(data),
		}
	}
	return &decoded, nil
}

// Login trades credentials for an access token.
func (c *Controller) Login(ctx context.Context) error {
	resp, err := c.request(ctx, c.environ.Endpoints.Login, map[string]string{
		"loginId":  c.cfg.Username,
		"password": c.cfg.Password,
	}, nil)
	if err != nil {
		return bluelink.WrapCommand(err, "CanadianController.login")
	}
	var result struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
		ExpireIn     int64  `json:"expireIn"`
	}
	if err := resp.decodeResult(&result); err != nil {
		return bluelink.WrapCommand(err, "CanadianController.login")
	}
	if result.AccessToken == "" {
		return bluelink.WrapCommand(fmt.Errorf("login returned no access token"), "CanadianController.login")
	}
	c.session.AccessToken = result.AccessToken
	c.session.RefreshToken = result.RefreshToken
	c.session.TokenExpiresAt = bluelink.TokenExpiry(c.now(), result.ExpireIn, result.AccessToken)
	log.Debug("logged in to the Canadian API")
	return nil
}

// RefreshAccessToken renews a stale token by logging in again; the deployment exposes no refresh
// grant.
func (c *Controller) RefreshAccessToken(ctx context.Context) bluelink.RefreshResult {
	if !c.session.TokenShouldRefresh(c.now()) {
		return bluelink.RefreshResult{Outcome: bluelink.RefreshNotNeeded}
	}
	if err := c.Login(ctx); err != nil {
		return bluelink.RefreshResult{Outcome: bluelink.RefreshFailed, Reason: err.Error()}
	}
	log.Debug("token refreshed via re-login")
	return bluelink.RefreshResult{Outcome: bluelink.RefreshPerformed}
}

// pinAuth verifies the account PIN and returns the pAuth token privileged commands carry. A
// verified pin is reused until it lapses.
func (c *Controller) pinAuth(ctx context.Context) (string, error) {
	if c.session.ControlTokenValid(c.now()) {
		return c.session.ControlToken, nil
	}
	if c.cfg.PIN == "" {
		return "", bluelink.Validationf("a pin is required for control commands")
	}
	resp, err := c.request(ctx, c.environ.Endpoints.VerifyPin, map[string]string{"pin": c.cfg.PIN}, nil)
	if err != nil {
		return "", err
	}
	var result struct {
		PAuth string `json:"pAuth"`
	}
	if err := resp.decodeResult(&result); err != nil {
		return "", err
	}
	if result.PAuth == "" {
		return "", fmt.Errorf("pin verification returned no pAuth token")
	}
	c.session.ControlToken = result.PAuth
	c.session.ControlTokenExpiresAt = c.now().Add(pAuthLifetime)
	return result.PAuth, nil
}

type canadianVehicleEntry struct {
	VehicleID        string `json:"vehicleId"`
	NickName         string `json:"nickName"`
	ModelName        string `json:"modelName"`
	ModelYear        string `json:"modelYear"`
	VIN              string `json:"vin"`
	FuelKindCode     string `json:"fuelKindCode"`
	EnrollmentStatus string `json:"enrollmentStatus"`
}

// GetVehicles lists the account's vehicles. Fuel kind E marks an EV.
func (c *Controller) GetVehicles(ctx context.Context) ([]bluelink.Vehicle, error) {
	resp, err := c.request(ctx, c.environ.Endpoints.VehicleList, map[string]string{}, nil)
	if err != nil {
		return nil, bluelink.WrapCommand(err, "CanadianController.getVehicles")
	}
	var result struct {
		Vehicles []canadianVehicleEntry `json:"vehicles"`
	}
	if err := resp.decodeResult(&result); err != nil {
		return nil, bluelink.WrapCommand(err, "CanadianController.getVehicles")
	}

	vehicles := make([]bluelink.Vehicle, 0, len(result.Vehicles))
	for _, entry := range result.Vehicles {
		reg := bluelink.RegisterOptions{
			ID:         entry.VehicleID,
			Name:       entry.ModelName,
			Nickname:   entry.NickName,
			VIN:        entry.VIN,
			Generation: entry.ModelYear,
		}
		if entry.FuelKindCode == "E" {
			reg.EngineType = bluelink.EngineEV
		} else {
			reg.EngineType = bluelink.EngineICE
		}
		vehicle, ok := c.vehicles[entry.VIN]
		if !ok {
			vehicle = newVehicle(reg, c)
			c.vehicles[entry.VIN] = vehicle
		}
		vehicles = append(vehicles, vehicle)
	}
	log.Debug("found %d vehicle(s)", len(vehicles))
	return vehicles, nil
}

// Logout invalidates the token server-side and drops the session.
func (c *Controller) Logout(ctx context.Context) error {
	if c.session.AccessToken != "" {
		if _, err := c.request(ctx, c.environ.Endpoints.Logout, map[string]string{}, nil); err != nil {
			log.Warning("server-side logout failed: %v", err)
		}
	}
	c.session = bluelink.Session{}
	return nil
}
