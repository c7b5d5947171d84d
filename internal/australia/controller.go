// Package australia implements the AU deployment. The gateway is the same CCSP shape as Europe;
// what differs is the environment, the text/plain credential login, and stamps generated locally
// instead of fetched from the published tables.
package australia

import (
	"net/http"

	"github.com/bluelinky/bluelink-command/internal/auth"
	"github.com/bluelinky/bluelink-command/internal/env"
	"github.com/bluelinky/bluelink-command/internal/europe"
	"github.com/bluelinky/bluelink-command/pkg/bluelink"
	"github.com/bluelinky/bluelink-command/pkg/stamp"
)

// NewController builds the AU controller on the shared CCSP machinery.
func NewController(cfg bluelink.AccountConfig, client *http.Client) *europe.Controller {
	environ := env.AustraliaFor(cfg.Brand)
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
		&auth.AustraliaStrategy{Env: environ, Client: client},
	}
	return europe.NewCCSPController("AustralianController", cfg, environ, strategies, stamps, client)
}
