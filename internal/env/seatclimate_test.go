package env

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bluelinky/bluelink-command/pkg/bluelink"
)

func TestSeatClimateRulesFor(t *testing.T) {
	rules := SeatClimateRulesFor(bluelink.BrandHyundai, bluelink.RegionUS)
	assert.Equal(t, "drvSeatHeatState", rules.SeatField("driverSeat"))
	assert.Equal(t, "rrSeatHeatState", rules.SeatField("rearRightSeat"))
	assert.Empty(t, rules.SeatField("trunkSeat"))
	assert.True(t, rules.AllowsStatus(8))
	assert.False(t, rules.AllowsStatus(9))
	assert.True(t, rules.AllowsHeat(3))
	assert.False(t, rules.AllowsHeat(4))

	// Every other brand/region combination rejects everything.
	for _, tc := range []struct {
		brand  bluelink.Brand
		region bluelink.Region
	}{
		{bluelink.BrandKia, bluelink.RegionUS},
		{bluelink.BrandHyundai, bluelink.RegionEU},
		{bluelink.BrandKia, bluelink.RegionCA},
	} {
		rules := SeatClimateRulesFor(tc.brand, tc.region)
		assert.Empty(t, rules.ValidSeats)
		assert.False(t, rules.AllowsStatus(1))
		assert.False(t, rules.AllowsHeat(0))
	}
}

func TestEnvironmentLookups(t *testing.T) {
	us := AmericaFor(bluelink.BrandHyundai)
	assert.Equal(t, "api.telematics.hyundaiusa.com", us.Host)

	eu := EuropeFor(bluelink.BrandKia)
	assert.Contains(t, eu.BaseURL, "prd.eu-ccapi.kia.com")
	assert.Contains(t, eu.Endpoints.Token, "/api/v1/user/oauth2/token")
	assert.Equal(t, "idpconnect-eu.kia.com", eu.AuthHost)

	au := AustraliaFor(bluelink.BrandHyundai)
	assert.Contains(t, au.Endpoints.Session, "redirect_uri=https%3A%2F%2F")

	ca := CanadaFor(bluelink.BrandKia)
	assert.Equal(t, "https://kiaconnect.ca/tods/api/lgn", ca.Endpoints.Login)

	cn := ChinaFor(bluelink.BrandHyundai)
	assert.Contains(t, cn.BaseURL, "prd.cn-ccapi.hyundai.com")
}
