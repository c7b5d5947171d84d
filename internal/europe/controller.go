// Package europe implements the CCSP-gateway deployment used in Europe: interactive cookie login,
// device registration, OAuth token exchange, and PIN-elevated control tokens. Australia reuses the
// same machinery with its own environment, login strategy, and stamp mode.
package europe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bluelinky/bluelink-command/internal/auth"
	"github.com/bluelinky/bluelink-command/internal/ccapi"
	"github.com/bluelinky/bluelink-command/internal/env"
	"github.com/bluelinky/bluelink-command/internal/log"
	"github.com/bluelinky/bluelink-command/pkg/bluelink"
	"github.com/bluelinky/bluelink-command/pkg/stamp"
)

// Controller drives one CCSP gateway session. Privileged vehicle commands run under a short-lived
// control token obtained by presenting the account PIN; CheckControlToken renews it on demand.
type Controller struct {
	// label and vehicleLabel name the error sites, so the Australian deployment reports under
	// its own component names.
	label        string
	vehicleLabel string

	cfg        bluelink.AccountConfig
	environ    env.CCSP
	client     *http.Client
	session    bluelink.Session
	strategies []auth.Strategy
	stamps     *stamp.Generator

	// api authenticates with the access token; control with the PIN-elevated control token.
	api     *ccapi.Service
	control *ccapi.Service

	vehicles map[string]*Vehicle
	now      func() time.Time
}

// NewController builds the EU controller. Login tries the current brand signin flow first and
// falls back to the legacy credential post for accounts that predate it.
func NewController(cfg bluelink.AccountConfig, client *http.Client) *Controller {
	environ := env.EuropeFor(cfg.Brand)
	if client == nil {
		client = &http.Client{}
	}
	stamps := stamp.New(stamp.Config{
		AppID:      environ.AppID,
		Brand:      cfg.Brand,
		Region:     cfg.Region,
		Mode:       cfg.StampMode,
		StampsFile: cfg.StampsFile,
		Client:     client,
	})
	strategies := []auth.Strategy{
		&auth.BrandStrategy{Env: environ, Language: cfg.Language, Client: client},
		&auth.LegacyStrategy{Env: environ, Client: client},
	}
	return NewCCSPController("EuropeanController", cfg, environ, strategies, stamps, client)
}

// NewCCSPController assembles a controller from explicit parts. Deployments that share the CCSP
// gateway shape but differ in environment or login flow build on this.
func NewCCSPController(label string, cfg bluelink.AccountConfig, environ env.CCSP, strategies []auth.Strategy, stamps *stamp.Generator, client *http.Client) *Controller {
	if client == nil {
		client = &http.Client{}
	}
	c := &Controller{
		label:        label,
		vehicleLabel: strings.Replace(label, "Controller", "Vehicle", 1),

		cfg:        cfg,
		environ:    environ,
		client:     client,
		strategies: strategies,
		stamps:     stamps,
		vehicles:   make(map[string]*Vehicle),
		now:        time.Now,
	}
	c.api = &ccapi.Service{
		BaseURL:       environ.BaseURL,
		AppID:         environ.AppID,
		Client:        client,
		Authorization: func() string { return "Bearer " + c.session.AccessToken },
		DeviceID:      func() string { return c.session.DeviceID },
		Stamp:         c.stamps.Stamp,
	}
	c.control = &ccapi.Service{
		BaseURL:       environ.BaseURL,
		AppID:         environ.AppID,
		Client:        client,
		Authorization: func() string { return c.session.ControlToken },
		DeviceID:      func() string { return c.session.DeviceID },
		Stamp:         c.stamps.Stamp,
	}
	return c
}

func (c *Controller) Config() bluelink.AccountConfig { return c.cfg }
func (c *Controller) Session() *bluelink.Session     { return &c.session }

// Login obtains an authorization code through the first strategy that succeeds, registers this
// client as a notification device, and exchanges the code for tokens.
func (c *Controller) Login(ctx context.Context) error {
	var result *auth.Result
	var lastErr error
	for _, s := range c.strategies {
		r, err := s.Login(ctx, c.cfg.Username, c.cfg.Password)
		if err == nil {
			result = r
			break
		}
		lastErr = err
		log.Warning("%s login failed, trying next strategy: %v", s.Name(), err)
	}
	if result == nil {
		return bluelink.WrapCommand(lastErr, c.label+".login")
	}

	if err := c.registerDevice(ctx); err != nil {
		return bluelink.WrapCommand(err, c.label+".login")
	}
	if err := c.exchangeCode(ctx, result.Code); err != nil {
		return bluelink.WrapCommand(err, c.label+".login")
	}
	log.Debug("logged in to the %s gateway", c.environ.Region)
	return nil
}

// registerDevice announces a fresh device identity to the notification endpoint and keeps the
// returned device id for the session. Every subsequent gateway call carries it.
func (c *Controller) registerDevice(ctx context.Context) error {
	pushRegID := strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
	body := map[string]string{
		"pushRegId": pushRegID,
		"pushType":  "GCM",
		"uuid":      uuid.NewString(),
	}
	svc := &ccapi.Service{
		BaseURL:       c.environ.BaseURL,
		AppID:         c.environ.AppID,
		Client:        c.client,
		Authorization: func() string { return "" },
		DeviceID:      func() string { return "" },
		Stamp:         c.stamps.Stamp,
	}
	resp, err := svc.Post(ctx, "/api/v1/spa/notifications/register", body)
	if err != nil {
		return fmt.Errorf("registering device: %w", err)
	}
	var msg struct {
		DeviceID string `json:"deviceId"`
	}
	if err := resp.DecodeResMsg(&msg); err != nil {
		return fmt.Errorf("registering device: %w", err)
	}
	if msg.DeviceID == "" {
		return fmt.Errorf("device registration returned no device id")
	}
	c.session.DeviceID = msg.DeviceID
	log.Debug("registered device %s", msg.DeviceID)
	return nil
}

type ccspToken struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

func (c *Controller) exchangeCode(ctx context.Context, code string) error {
	form := url.Values{
		"grant_type":   {"authorization_code"},
		"redirect_uri": {c.environ.Endpoints.RedirectURI},
		"code":         {code},
	}
	token, err := c.tokenRequest(ctx, form)
	if err != nil {
		return err
	}
	if token.RefreshToken == "" {
		return fmt.Errorf("token exchange returned no refresh token")
	}
	c.storeTokens(token)
	return nil
}

// RefreshAccessToken renews the access token when it is inside the refresh window. The refresh
// grant does not rotate the refresh token.
func (c *Controller) RefreshAccessToken(ctx context.Context) bluelink.RefreshResult {
	if !c.session.TokenShouldRefresh(c.now()) {
		return bluelink.RefreshResult{Outcome: bluelink.RefreshNotNeeded}
	}
	if c.session.RefreshToken == "" {
		return bluelink.RefreshResult{Outcome: bluelink.RefreshFailed, Reason: bluelink.ErrNeedsLogin.Error()}
	}
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"redirect_uri":  {c.environ.Endpoints.RedirectURI},
		"refresh_token": {c.session.RefreshToken},
	}
	token, err := c.tokenRequest(ctx, form)
	if err != nil {
		return bluelink.RefreshResult{Outcome: bluelink.RefreshFailed, Reason: err.Error()}
	}
	c.storeTokens(token)
	log.Debug("token refreshed")
	return bluelink.RefreshResult{Outcome: bluelink.RefreshPerformed}
}

func (c *Controller) tokenRequest(ctx context.Context, form url.Values) (*ccspToken, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.environ.Endpoints.Token,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.environ.BasicToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	stampValue, err := c.stamps.Stamp()
	if err != nil {
		return nil, fmt.Errorf("generating stamp: %w", err)
	}
	req.Header.Set("Stamp", stampValue)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &bluelink.HTTPError{Method: http.MethodPost, URL: c.environ.Endpoints.Token, Err: err}
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &bluelink.HTTPError{Method: http.MethodPost, URL: c.environ.Endpoints.Token, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &bluelink.HTTPError{
			Method: http.MethodPost, URL: c.environ.Endpoints.Token,
			Code: resp.StatusCode, Status: resp.Status, Body: string(data),
		}
	}
	var token ccspToken
	if err := unmarshalToken(data, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

func (c *Controller) storeTokens(token *ccspToken) {
	c.session.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		c.session.RefreshToken = token.RefreshToken
	}
	c.session.TokenExpiresAt = bluelink.TokenExpiry(c.now(), token.ExpiresIn, token.AccessToken)
}

// EnterPin trades the account PIN for a control token scoped to this device.
func (c *Controller) EnterPin(ctx context.Context) error {
	if c.cfg.PIN == "" {
		return bluelink.Validationf("a pin is required for control commands")
	}
	resp, err := c.api.Post(ctx, "/api/v1/user/pin", map[string]string{
		"deviceId": c.session.DeviceID,
		"pin":      c.cfg.PIN,
	})
	if err != nil {
		return bluelink.WrapCommand(err, c.label+".pin")
	}

	var msg struct {
		ControlToken string `json:"controlToken"`
		ExpiresTime  int64  `json:"expiresTime"`
	}
	// The pin endpoint replies with a bare object rather than the envelope.
	if decodeErr := resp.DecodeResMsg(&msg); decodeErr != nil || msg.ControlToken == "" {
		if err := unmarshalToken(resp.Body, &msg); err != nil {
			return bluelink.WrapCommand(err, c.label+".pin")
		}
	}
	if msg.ControlToken == "" {
		return bluelink.WrapCommand(fmt.Errorf("pin endpoint returned no control token"), c.label+".pin")
	}
	if msg.ExpiresTime <= 0 {
		msg.ExpiresTime = 600
	}
	c.session.ControlToken = "Bearer " + msg.ControlToken
	c.session.ControlTokenExpiresAt = c.now().Add(time.Duration(msg.ExpiresTime) * time.Second)
	return nil
}

// CheckControlToken ensures a usable control token ahead of a privileged command: the access token
// is refreshed if stale, then the PIN is presented again if the control token has lapsed.
func (c *Controller) CheckControlToken(ctx context.Context) error {
	if result := c.RefreshAccessToken(ctx); result.Outcome == bluelink.RefreshFailed {
		return fmt.Errorf("refreshing access token: %s", result.Reason)
	}
	if c.session.ControlTokenValid(c.now()) {
		return nil
	}
	log.Debug("control token missing or expired, presenting pin")
	return c.EnterPin(ctx)
}

func unmarshalToken(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding token response: %w", err)
	}
	return nil
}

type vehicleEntry struct {
	VIN         string `json:"vin"`
	VehicleID   string `json:"vehicleId"`
	VehicleName string `json:"vehicleName"`
	Nickname    string `json:"nickname"`
	Type        string `json:"type"`
}

// GetVehicles lists the account's vehicles and loads each one's profile for the model-year
// generation. Dispatchers are reused across calls.
func (c *Controller) GetVehicles(ctx context.Context) ([]bluelink.Vehicle, error) {
	resp, err := c.api.Get(ctx, "/api/v1/spa/vehicles")
	if err != nil {
		return nil, bluelink.WrapCommand(err, c.label+".getVehicles")
	}
	var msg struct {
		Vehicles []vehicleEntry `json:"vehicles"`
	}
	if err := resp.DecodeResMsg(&msg); err != nil {
		return nil, bluelink.WrapCommand(err, c.label+".getVehicles")
	}

	vehicles := make([]bluelink.Vehicle, 0, len(msg.Vehicles))
	for _, entry := range msg.Vehicles {
		reg := bluelink.RegisterOptions{
			ID:       entry.VehicleID,
			Name:     entry.VehicleName,
			Nickname: entry.Nickname,
			VIN:      entry.VIN,
		}
		switch entry.Type {
		case "EV", "PE":
			reg.EngineType = bluelink.EngineEV
		default:
			reg.EngineType = bluelink.EngineICE
		}
		if generation, err := c.vehicleGeneration(ctx, entry.VehicleID); err == nil {
			reg.Generation = generation
		} else {
			log.Warning("loading profile for %s: %v", entry.VIN, err)
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

func (c *Controller) vehicleGeneration(ctx context.Context, vehicleID string) (string, error) {
	resp, err := c.api.Get(ctx, "/api/v1/spa/vehicles/"+vehicleID+"/profile")
	if err != nil {
		return "", err
	}
	var msg struct {
		VinInfo struct {
			Basic struct {
				ModelYear string `json:"modelYear"`
			} `json:"basic"`
		} `json:"vinInfo"`
	}
	if err := resp.DecodeResMsg(&msg); err != nil {
		return "", err
	}
	return msg.VinInfo.Basic.ModelYear, nil
}

// Logout drops the session state, including the registered device identity.
func (c *Controller) Logout(ctx context.Context) error {
	c.session = bluelink.Session{}
	return nil
}
