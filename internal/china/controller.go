// Package china carries the CN environment and a placeholder controller. The CN login flow needs
// in-country network access and remains unimplemented; the controller exists so region selection,
// configuration, and diagnostics behave uniformly.
package china

import (
	"context"
	"net/http"

	"github.com/bluelinky/bluelink-command/internal/env"
	"github.com/bluelinky/bluelink-command/pkg/bluelink"
)

type Controller struct {
	cfg     bluelink.AccountConfig
	environ env.CCSP
	session bluelink.Session
}

func NewController(cfg bluelink.AccountConfig, client *http.Client) *Controller {
	return &Controller{cfg: cfg, environ: env.ChinaFor(cfg.Brand)}
}

func (c *Controller) Config() bluelink.AccountConfig { return c.cfg }
func (c *Controller) Session() *bluelink.Session     { return &c.session }

func (c *Controller) Login(ctx context.Context) error {
	return bluelink.WrapCommand(bluelink.ErrNotImplemented, "ChineseController.login")
}

func (c *Controller) Logout(ctx context.Context) error {
	c.session = bluelink.Session{}
	return nil
}

func (c *Controller) RefreshAccessToken(ctx context.Context) bluelink.RefreshResult {
	return bluelink.RefreshResult{
		Outcome: bluelink.RefreshFailed,
		Reason:  bluelink.ErrNotImplemented.Error(),
	}
}

// GetVehicles reports no vehicles rather than failing, so account-level tooling can still run.
func (c *Controller) GetVehicles(ctx context.Context) ([]bluelink.Vehicle, error) {
	return []bluelink.Vehicle{}, nil
}
