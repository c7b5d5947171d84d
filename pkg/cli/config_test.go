package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluelinky/bluelink-command/pkg/bluelink"
)

func TestReadFromEnvironmentFillsMissingFields(t *testing.T) {
	t.Setenv(EnvBluelinkUsername, "env-user@example.com")
	t.Setenv(EnvBluelinkPassword, "env-password")
	t.Setenv(EnvBluelinkRegion, "eu")
	t.Setenv(EnvBluelinkBrand, "kia")
	t.Setenv(EnvBluelinkVIN, "KNACC1234")

	c := NewConfig()
	// Flag-style assignments made before the environment read must win.
	c.Username = "flag-user@example.com"
	require.NoError(t, c.ReadFromEnvironment())

	assert.Equal(t, "flag-user@example.com", c.Username)
	assert.Equal(t, "env-password", c.Password)
	assert.Equal(t, "eu", c.Region)
	assert.Equal(t, "kia", c.Brand)
	assert.Equal(t, "KNACC1234", c.VIN)
}

func TestAccountConfig(t *testing.T) {
	c := NewConfig()
	c.Username = "user@example.com"
	c.Password = "hunter2"
	c.Region = "AU"
	c.Brand = "Hyundai"

	cfg, err := c.AccountConfig()
	require.NoError(t, err)
	assert.Equal(t, bluelink.RegionAU, cfg.Region)
	assert.Equal(t, bluelink.BrandHyundai, cfg.Brand)
	assert.True(t, cfg.AutoLogin)
	// AU accounts default to locally generated stamps.
	assert.Equal(t, bluelink.StampModeLocal, cfg.StampMode)
}

func TestAccountConfigRejectsUnknownRegion(t *testing.T) {
	c := NewConfig()
	c.Username = "user@example.com"
	c.Password = "hunter2"
	c.Region = "mars"
	c.Brand = "hyundai"

	_, err := c.AccountConfig()
	require.Error(t, err)
}
