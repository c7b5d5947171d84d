// Package env holds the static per-brand/region environments: hosts, client credentials, endpoint
// paths, and the small pure lookup tables (temperature codes, seat-climate validation) the
// dispatchers share. Everything here is data; no I/O happens in this package.
package env

import "github.com/bluelinky/bluelink-command/pkg/bluelink"

// America describes one brand's US deployment.
type America struct {
	Brand        bluelink.Brand
	Host         string
	BaseURL      string
	ClientID     string
	ClientSecret string
}

// AmericaFor returns the US environment for a brand.
func AmericaFor(brand bluelink.Brand) America {
	if brand == bluelink.BrandKia {
		return America{
			Brand:        bluelink.BrandKia,
			Host:         "api.owners.kia.com",
			BaseURL:      "https://api.owners.kia.com/apigw/v1",
			ClientID:     "MWAMOBILE",
			ClientSecret: "98er-w34rf-ibf3-3f6h",
		}
	}
	return America{
		Brand:        bluelink.BrandHyundai,
		Host:         "api.telematics.hyundaiusa.com",
		BaseURL:      "https://api.telematics.hyundaiusa.com",
		ClientID:     "m66129Bb-em93-SPAHYN-bZ91-am4540zp19920",
		ClientSecret: "v558o935-6nne-423i-baa8",
	}
}
