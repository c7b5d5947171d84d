package america

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluelinky/bluelink-command/pkg/bluelink"
)

const baseURL = "https://api.telematics.hyundaiusa.com"

func newTestController(t *testing.T) (*Controller, *http.Client) {
	t.Helper()
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	t.Cleanup(httpmock.DeactivateAndReset)

	cfg := bluelink.AccountConfig{
		Username: "user@example.com",
		Password: "hunter2",
		Region:   bluelink.RegionUS,
		Brand:    bluelink.BrandHyundai,
		PIN:      "1234",
	}
	require.NoError(t, cfg.Normalize())
	return NewController(cfg, client), client
}

func registerLogin(t *testing.T) {
	t.Helper()
	httpmock.RegisterResponder("POST", baseURL+"/v2/ac/oauth/token",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "m66129Bb-em93-SPAHYN-bZ91-am4540zp19920", req.Header.Get("client_id"))
			assert.Equal(t, "v558o935-6nne-423i-baa8", req.Header.Get("client_secret"))
			var creds map[string]string
			require.NoError(t, json.NewDecoder(req.Body).Decode(&creds))
			assert.Equal(t, "user@example.com", creds["username"])
			return httpmock.NewJsonResponse(200, map[string]interface{}{
				"access_token":  "access-1",
				"refresh_token": "refresh-1",
				"expires_in":    3600,
			})
		})
}

const enrollmentBody = `{
	"enrolledVehicleDetails": [
		{"vehicleDetails": {
			"nickName": "Ioniq",
			"vin": "KMHL14JA5MA123456",
			"enrollmentDate": "20210101",
			"brandIndicator": "H",
			"regid": "REG-1",
			"vehicleGeneration": "2",
			"evStatus": "E",
			"odometer": "12345.6"
		}},
		{"vehicleDetails": {
			"nickName": "Sonata",
			"vin": "KMHL14JA5MA654321",
			"enrollmentDate": "20200101",
			"brandIndicator": "H",
			"regid": "REG-2",
			"vehicleGeneration": "1",
			"evStatus": "N",
			"odometer": "54321"
		}}
	]
}`

func TestLoginAndGetVehicles(t *testing.T) {
	ctrl, _ := newTestController(t)
	registerLogin(t)
	httpmock.RegisterResponder("GET", baseURL+"/ac/v2/enrollment/details/user@example.com",
		httpmock.NewStringResponder(200, enrollmentBody))

	require.NoError(t, ctrl.Login(context.Background()))
	assert.Equal(t, "access-1", ctrl.Session().AccessToken)
	assert.False(t, ctrl.Session().TokenShouldRefresh(time.Now()))

	vehicles, err := ctrl.GetVehicles(context.Background())
	require.NoError(t, err)
	require.Len(t, vehicles, 2)
	assert.Equal(t, "KMHL14JA5MA123456", vehicles[0].VIN())
	assert.Equal(t, bluelink.EngineEV, vehicles[0].RegisterOptions().EngineType)
	assert.Equal(t, bluelink.EngineICE, vehicles[1].RegisterOptions().EngineType)

	// Repeated discovery hands back the same dispatcher identities.
	again, err := ctrl.GetVehicles(context.Background())
	require.NoError(t, err)
	assert.Same(t, vehicles[0], again[0])
}

func TestLoginRetriesGatewayErrors(t *testing.T) {
	ctrl, _ := newTestController(t)
	calls := 0
	httpmock.RegisterResponder("POST", baseURL+"/v2/ac/oauth/token",
		func(req *http.Request) (*http.Response, error) {
			calls++
			if calls < 3 {
				return httpmock.NewStringResponse(503, "gateway busy"), nil
			}
			return httpmock.NewJsonResponse(200, map[string]interface{}{
				"access_token": "access-1", "refresh_token": "refresh-1", "expires_in": 3600,
			})
		})

	require.NoError(t, ctrl.Login(context.Background()))
	assert.Equal(t, 3, calls)
}

func TestLoginDoesNotRetryBadCredentials(t *testing.T) {
	ctrl, _ := newTestController(t)
	calls := 0
	httpmock.RegisterResponder("POST", baseURL+"/v2/ac/oauth/token",
		func(req *http.Request) (*http.Response, error) {
			calls++
			return httpmock.NewStringResponse(401, "bad credentials"), nil
		})

	err := ctrl.Login(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Contains(t, err.Error(), "@AmericanController.login")
}

func TestRefreshAccessToken(t *testing.T) {
	ctrl, _ := newTestController(t)
	ctrl.session = bluelink.Session{
		AccessToken:    "stale",
		RefreshToken:   "refresh-1",
		TokenExpiresAt: time.Now().Add(-time.Minute),
	}
	httpmock.RegisterResponder("POST", baseURL+"/v2/ac/oauth/token/refresh",
		func(req *http.Request) (*http.Response, error) {
			var body map[string]string
			require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			assert.Equal(t, "refresh-1", body["refresh_token"])
			return httpmock.NewJsonResponse(200, map[string]interface{}{
				"access_token": "access-2", "expires_in": 3600,
			})
		})

	result := ctrl.RefreshAccessToken(context.Background())
	assert.Equal(t, bluelink.RefreshPerformed, result.Outcome)
	assert.Equal(t, "access-2", ctrl.Session().AccessToken)
	// A refresh response without a rotated refresh token keeps the old one.
	assert.Equal(t, "refresh-1", ctrl.Session().RefreshToken)
}

func TestRefreshWithoutRefreshToken(t *testing.T) {
	ctrl, _ := newTestController(t)
	result := ctrl.RefreshAccessToken(context.Background())
	assert.Equal(t, bluelink.RefreshFailed, result.Outcome)
	assert.Contains(t, result.Reason, "login")
}

func loggedInVehicle(t *testing.T, ctrl *Controller) bluelink.Vehicle {
	t.Helper()
	registerLogin(t)
	httpmock.RegisterResponder("GET", baseURL+"/ac/v2/enrollment/details/user@example.com",
		httpmock.NewStringResponder(200, enrollmentBody))
	require.NoError(t, ctrl.Login(context.Background()))
	vehicles, err := ctrl.GetVehicles(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, vehicles)
	return vehicles[0]
}

func TestStatusNormalization(t *testing.T) {
	ctrl, _ := newTestController(t)
	vehicle := loggedInVehicle(t, ctrl)

	httpmock.RegisterResponder("GET", baseURL+"/ac/v2/rcs/rvs/vehicleStatus",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "true", req.Header.Get("REFRESH"))
			assert.Equal(t, "access-1", req.Header.Get("access_token"))
			assert.Equal(t, "KMHL14JA5MA123456", req.Header.Get("vin"))
			return httpmock.NewStringResponse(200, `{
				"vehicleStatus": {
					"doorLock": true,
					"doorOpen": {"frontRight": 0, "frontLeft": 0, "backLeft": 0, "backRight": 0},
					"hoodOpen": false,
					"trunkOpen": false,
					"airCtrlOn": true,
					"airTemp": {"value": "72", "unit": 1},
					"engine": false,
					"evStatus": {
						"batteryCharge": true,
						"batteryStatus": 84,
						"drvDistance": [{"rangeByFuel": {
							"evModeRange": {"value": 320, "unit": 1},
							"totalAvailableRange": {"value": 320, "unit": 1}
						}}]
					},
					"battery": {"batSoc": 91},
					"dateTime": "1700000000000"
				}
			}`), nil
		})

	status, err := vehicle.Status(context.Background(), bluelink.StatusOptions{Refresh: true, Parsed: true})
	require.NoError(t, err)
	assert.True(t, status.Chassis.Locked)
	assert.False(t, status.Chassis.OpenDoors.FrontLeft)
	assert.True(t, status.Climate.Active)
	assert.Equal(t, 72.0, status.Climate.TemperatureSetpoint)
	assert.True(t, status.Engine.Charging)
	assert.Equal(t, 84.0, status.Engine.BatteryChargeHV)
	assert.Equal(t, 91.0, status.Engine.BatteryCharge12v)
	assert.Equal(t, 320.0, status.Engine.Range)
	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), status.LastUpdate)
}

func TestLockSendsForm(t *testing.T) {
	ctrl, _ := newTestController(t)
	vehicle := loggedInVehicle(t, ctrl)

	httpmock.RegisterResponder("POST", baseURL+"/ac/v2/rcs/rdo/off",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "application/x-www-form-urlencoded", req.Header.Get("Content-Type"))
			require.NoError(t, req.ParseForm())
			assert.Equal(t, "user@example.com", req.PostForm.Get("userName"))
			assert.Equal(t, "KMHL14JA5MA123456", req.PostForm.Get("vin"))
			return httpmock.NewStringResponse(200, "{}"), nil
		})

	require.NoError(t, vehicle.Lock(context.Background()))
}

func TestStartFiltersSeatClimate(t *testing.T) {
	ctrl, _ := newTestController(t)
	vehicle := loggedInVehicle(t, ctrl)
	// The Sonata is the gen-1 ICE vehicle; it takes the rsc path with the full body.
	vehicles, err := ctrl.GetVehicles(context.Background())
	require.NoError(t, err)
	sonata := vehicles[1]

	httpmock.RegisterResponder("POST", baseURL+"/ac/v2/rcs/rsc/start",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "-4", req.Header.Get("offset"))
			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			assert.Equal(t, float64(1), body["airCtrl"])
			assert.Equal(t, float64(10), body["igniOnDuration"])
			seats, ok := body["seatHeaterVentInfo"].(map[string]interface{})
			require.True(t, ok)
			// driverSeat:9 is out of range and must be dropped; passengerSeat:6 survives.
			assert.NotContains(t, seats, "drvSeatHeatState")
			assert.Equal(t, float64(6), seats["astSeatHeatState"])
			return httpmock.NewStringResponse(200, "{}"), nil
		})

	err = sonata.Start(context.Background(), bluelink.StartOptions{
		HVAC:        true,
		Temperature: 72,
		SeatClimate: bluelink.SeatClimate{"driverSeat": 9, "passengerSeat": 6},
	})
	require.NoError(t, err)
	_ = vehicle
}

func TestStartGen2EVOmitsSeatOptions(t *testing.T) {
	ctrl, _ := newTestController(t)
	ioniq := loggedInVehicle(t, ctrl)

	httpmock.RegisterResponder("POST", baseURL+"/ac/v2/evc/fatc/start",
		func(req *http.Request) (*http.Response, error) {
			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			assert.NotContains(t, body, "igniOnDuration")
			assert.NotContains(t, body, "seatHeaterVentInfo")
			return httpmock.NewStringResponse(200, "{}"), nil
		})

	err := ioniq.Start(context.Background(), bluelink.StartOptions{
		HVAC:        true,
		SeatClimate: bluelink.SeatClimate{"driverSeat": 6},
	})
	require.NoError(t, err)
}

func TestLocation(t *testing.T) {
	ctrl, _ := newTestController(t)
	vehicle := loggedInVehicle(t, ctrl)

	httpmock.RegisterResponder("GET", baseURL+"/ac/v2/rcs/rfc/findMyCar",
		httpmock.NewStringResponder(200, `{
			"coord": {"lat": 37.1, "lon": -122.2, "alt": 12},
			"speed": {"value": 0, "unit": 1},
			"head": 270
		}`))

	loc, err := vehicle.Location(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 37.1, loc.Latitude)
	assert.Equal(t, -122.2, loc.Longitude)
	assert.Equal(t, 270.0, loc.Heading)
}

func TestOdometerFromEnrollment(t *testing.T) {
	ctrl, _ := newTestController(t)
	vehicle := loggedInVehicle(t, ctrl)

	odo, err := vehicle.Odometer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12345.6, odo.Value)
}

func TestUnsupportedOperations(t *testing.T) {
	ctrl, _ := newTestController(t)
	vehicle := loggedInVehicle(t, ctrl)
	ctx := context.Background()

	_, err := vehicle.GetChargeTargets(ctx)
	assert.ErrorIs(t, err, bluelink.ErrNotImplemented)
	_, err = vehicle.MonthlyReport(ctx, 2024, 1)
	assert.ErrorIs(t, err, bluelink.ErrNotImplemented)
	_, _, err = vehicle.TripInfo(ctx, bluelink.TripPeriod{Year: 2024, Month: 1})
	assert.ErrorIs(t, err, bluelink.ErrNotImplemented)
	_, err = vehicle.DriveHistory(ctx, bluelink.HistoryDaily)
	assert.ErrorIs(t, err, bluelink.ErrNotImplemented)

	// Invalid targets fail validation before reporting the unsupported operation.
	err = vehicle.SetChargeTargets(ctx, bluelink.ChargeTargets{Fast: 55, Slow: 80})
	require.Error(t, err)
	assert.NotErrorIs(t, err, bluelink.ErrNotImplemented)
}

func TestChargeCommandsRequireEV(t *testing.T) {
	ctrl, _ := newTestController(t)
	_ = loggedInVehicle(t, ctrl)
	vehicles, err := ctrl.GetVehicles(context.Background())
	require.NoError(t, err)
	sonata := vehicles[1]

	err = sonata.StartCharge(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EV")
}
