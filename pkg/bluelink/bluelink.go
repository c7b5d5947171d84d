// Package bluelink defines the shared contracts of the Bluelink client: regions, brands, account
// configuration, session state, the canonical vehicle status model, and the controller and vehicle
// interfaces implemented per region.
package bluelink

import (
	"fmt"
	"strings"
)

// Region identifies a vendor deployment. Each region has its own hosts, authentication flow, and
// status payload shape.
type Region string

const (
	RegionUS Region = "US"
	RegionCA Region = "CA"
	RegionEU Region = "EU"
	RegionCN Region = "CN"
	RegionAU Region = "AU"
)

// Brand selects the per-brand environment constants within a region.
type Brand string

const (
	BrandHyundai Brand = "hyundai"
	BrandKia     Brand = "kia"
)

// StampMode selects how request stamps are produced for regions that require them.
type StampMode string

const (
	// StampModeDistant fetches rotating stamp tables from a published host.
	StampModeDistant StampMode = "DISTANT"
	// StampModeLocal derives stamps from a fixed per-brand key without network access.
	StampModeLocal StampMode = "LOCAL"
)

// ParseRegion maps a region name (case-insensitive) to a Region.
func ParseRegion(name string) (Region, error) {
	switch Region(strings.ToUpper(name)) {
	case RegionUS:
		return RegionUS, nil
	case RegionCA:
		return RegionCA, nil
	case RegionEU:
		return RegionEU, nil
	case RegionCN:
		return RegionCN, nil
	case RegionAU:
		return RegionAU, nil
	}
	return "", fmt.Errorf("unsupported region %q", name)
}

// ParseBrand maps a brand name (case-insensitive) to a Brand.
func ParseBrand(name string) (Brand, error) {
	switch Brand(strings.ToLower(name)) {
	case BrandHyundai:
		return BrandHyundai, nil
	case BrandKia:
		return BrandKia, nil
	}
	return "", fmt.Errorf("unsupported brand %q", name)
}

// AccountConfig carries everything a regional controller needs to authenticate one account. It is
// expected to be fully populated (via Normalize) before controller construction and is not mutated
// afterwards.
type AccountConfig struct {
	Username string
	Password string
	Region   Region
	Brand    Brand
	PIN      string

	// VIN optionally restricts the client facade's default vehicle selection.
	VIN string
	// VehicleID optionally pins the vendor-internal vehicle id.
	VehicleID string

	AutoLogin bool

	// Language applies to regions with a language-aware login flow (EU). Defaults to "en".
	Language string

	// StampMode and StampsFile configure stamp generation for EU/AU/CN. An empty StampMode
	// selects the regional default. StampsFile may be a file:// URL overriding the stamp host.
	StampMode  StampMode
	StampsFile string
}

// Normalize fills defaults and validates enum membership. Controllers must only ever see a
// normalized config; invalid regions or brands fail here rather than at first use.
func (c *AccountConfig) Normalize() error {
	if c.Username == "" {
		return fmt.Errorf("account config: username is required")
	}
	if c.Password == "" {
		return fmt.Errorf("account config: password is required")
	}
	region, err := ParseRegion(string(c.Region))
	if err != nil {
		return fmt.Errorf("account config: %w", err)
	}
	c.Region = region
	brand, err := ParseBrand(string(c.Brand))
	if err != nil {
		return fmt.Errorf("account config: %w", err)
	}
	c.Brand = brand
	if c.Language == "" {
		c.Language = "en"
	}
	switch c.StampMode {
	case "":
		if c.Region == RegionAU {
			c.StampMode = StampModeLocal
		} else {
			c.StampMode = StampModeDistant
		}
	case StampModeDistant, StampModeLocal:
	default:
		return fmt.Errorf("account config: unsupported stamp mode %q", c.StampMode)
	}
	return nil
}
