// Package client is the package most programs use: it picks the right regional controller for an
// account, optionally logs in at construction, and hands out vehicle dispatchers by VIN.
package client

import (
	"context"
	"net/http"
	"strings"

	"github.com/bluelinky/bluelink-command/internal/america"
	"github.com/bluelinky/bluelink-command/internal/australia"
	"github.com/bluelinky/bluelink-command/internal/canada"
	"github.com/bluelinky/bluelink-command/internal/china"
	"github.com/bluelinky/bluelink-command/internal/europe"
	"github.com/bluelinky/bluelink-command/internal/log"
	"github.com/bluelinky/bluelink-command/pkg/bluelink"
)

// Client owns one account session and its discovered vehicles.
type Client struct {
	cfg        bluelink.AccountConfig
	controller bluelink.SessionController
	vehicles   []bluelink.Vehicle
}

// New validates the account configuration and builds the regional controller. With AutoLogin set
// it also performs the login and initial vehicle discovery. httpClient may be nil; regions that
// need a tuned transport then build their own.
func New(ctx context.Context, cfg bluelink.AccountConfig, httpClient *http.Client) (*Client, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}

	var controller bluelink.SessionController
	switch cfg.Region {
	case bluelink.RegionUS:
		controller = america.NewController(cfg, httpClient)
	case bluelink.RegionCA:
		controller = canada.NewController(cfg, httpClient)
	case bluelink.RegionEU:
		controller = europe.NewController(cfg, httpClient)
	case bluelink.RegionAU:
		controller = australia.NewController(cfg, httpClient)
	case bluelink.RegionCN:
		controller = china.NewController(cfg, httpClient)
	default:
		return nil, bluelink.Validationf("unsupported region %q", cfg.Region)
	}

	c := &Client{cfg: cfg, controller: controller}
	if cfg.AutoLogin {
		if err := c.Login(ctx); err != nil {
			return nil, err
		}
		if _, err := c.GetVehicles(ctx); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Controller exposes the underlying session controller.
func (c *Client) Controller() bluelink.SessionController { return c.controller }

// Login authenticates the account.
func (c *Client) Login(ctx context.Context) error {
	return c.controller.Login(ctx)
}

// Logout drops the session.
func (c *Client) Logout(ctx context.Context) error {
	c.vehicles = nil
	return c.controller.Logout(ctx)
}

// RefreshAccessToken renews the session token if it is due.
func (c *Client) RefreshAccessToken(ctx context.Context) bluelink.RefreshResult {
	return c.controller.RefreshAccessToken(ctx)
}

// GetVehicles discovers the account's vehicles and caches the list.
func (c *Client) GetVehicles(ctx context.Context) ([]bluelink.Vehicle, error) {
	vehicles, err := c.controller.GetVehicles(ctx)
	if err != nil {
		return nil, err
	}
	c.vehicles = vehicles
	log.Debug("client holds %d vehicle(s)", len(vehicles))
	return vehicles, nil
}

// Vehicles returns the cached vehicle list from the last discovery.
func (c *Client) Vehicles() []bluelink.Vehicle { return c.vehicles }

// GetVehicle finds a cached vehicle by VIN, case-insensitively. With an empty VIN and exactly one
// vehicle on the account, that vehicle is returned.
func (c *Client) GetVehicle(vin string) (bluelink.Vehicle, error) {
	if vin == "" {
		if len(c.vehicles) == 1 {
			return c.vehicles[0], nil
		}
		return nil, bluelink.Validationf("a vin is required when the account has %d vehicles", len(c.vehicles))
	}
	for _, vehicle := range c.vehicles {
		if strings.EqualFold(vehicle.VIN(), vin) {
			return vehicle, nil
		}
	}
	return nil, bluelink.Validationf("no vehicle with vin %s on this account", vin)
}
