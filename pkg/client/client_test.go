package client

import (
	"context"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluelinky/bluelink-command/pkg/bluelink"
)

func usConfig() bluelink.AccountConfig {
	return bluelink.AccountConfig{
		Username: "user@example.com",
		Password: "hunter2",
		Region:   bluelink.RegionUS,
		Brand:    bluelink.BrandHyundai,
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(context.Background(), bluelink.AccountConfig{}, nil)
	require.Error(t, err)
}

func TestAutoLoginDiscoversVehicles(t *testing.T) {
	httpClient := &http.Client{}
	httpmock.ActivateNonDefault(httpClient)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("POST", "https://api.telematics.hyundaiusa.com/v2/ac/oauth/token",
		httpmock.NewStringResponder(200,
			`{"access_token":"access-1","refresh_token":"refresh-1","expires_in":3600}`))
	httpmock.RegisterResponder("GET",
		"https://api.telematics.hyundaiusa.com/ac/v2/enrollment/details/user@example.com",
		httpmock.NewStringResponder(200, `{"enrolledVehicleDetails":[
			{"vehicleDetails":{"nickName":"Ioniq","vin":"KMHL14JA5MA123456","evStatus":"E","vehicleGeneration":"2","regid":"REG-1","brandIndicator":"H","odometer":"100"}}
		]}`))

	cfg := usConfig()
	cfg.AutoLogin = true
	c, err := New(context.Background(), cfg, httpClient)
	require.NoError(t, err)
	require.Len(t, c.Vehicles(), 1)

	vehicle, err := c.GetVehicle("kmhl14ja5ma123456")
	require.NoError(t, err)
	assert.Equal(t, "KMHL14JA5MA123456", vehicle.VIN())

	// Single-vehicle accounts resolve an empty vin.
	vehicle, err = c.GetVehicle("")
	require.NoError(t, err)
	assert.Equal(t, "KMHL14JA5MA123456", vehicle.VIN())

	_, err = c.GetVehicle("UNKNOWNVIN")
	require.Error(t, err)
}

func TestGetVehicleWithoutDiscovery(t *testing.T) {
	c, err := New(context.Background(), usConfig(), &http.Client{})
	require.NoError(t, err)
	_, err = c.GetVehicle("")
	require.Error(t, err)
}
