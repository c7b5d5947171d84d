package canada

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

const baseURL = "https://mybluelink.ca"

func newTestController(t *testing.T) *Controller {
	t.Helper()
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	t.Cleanup(httpmock.DeactivateAndReset)

	cfg := bluelink.AccountConfig{
		Username: "user@example.com",
		Password: "hunter2",
		Region:   bluelink.RegionCA,
		Brand:    bluelink.BrandHyundai,
		PIN:      "1234",
	}
	require.NoError(t, cfg.Normalize())
	return NewController(cfg, client)
}

func envelope(result string) string {
	return `{"responseHeader":{"responseCode":0,"responseDesc":"Success"},"result":` + result + `}`
}

func registerLogin(t *testing.T) {
	t.Helper()
	httpmock.RegisterResponder("POST", baseURL+"/tods/api/lgn",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "SPA", req.Header.Get("from"))
			assert.Equal(t, "1", req.Header.Get("language"))
			var body map[string]string
			require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			assert.Equal(t, "user@example.com", body["loginId"])
			return httpmock.NewStringResponse(200,
				envelope(`{"accessToken":"access-ca","refreshToken":"refresh-ca","expireIn":3600}`)), nil
		})
}

func registerVehicleList(t *testing.T) {
	t.Helper()
	httpmock.RegisterResponder("POST", baseURL+"/tods/api/vhcllst",
		httpmock.NewStringResponder(200, envelope(`{"vehicles":[
			{"vehicleId":"veh-ca-1","nickName":"Kona","modelName":"KONA ELECTRIC","modelYear":"2021","vin":"KMHCA1234","fuelKindCode":"E"}
		]}`)))
}

func TestLoginAndVehicleList(t *testing.T) {
	ctrl := newTestController(t)
	registerLogin(t)
	registerVehicleList(t)

	require.NoError(t, ctrl.Login(context.Background()))
	assert.Equal(t, "access-ca", ctrl.Session().AccessToken)

	vehicles, err := ctrl.GetVehicles(context.Background())
	require.NoError(t, err)
	require.Len(t, vehicles, 1)
	assert.Equal(t, "KMHCA1234", vehicles[0].VIN())
	assert.Equal(t, bluelink.EngineEV, vehicles[0].RegisterOptions().EngineType)
}

func TestLoginApplicationError(t *testing.T) {
	ctrl := newTestController(t)
	httpmock.RegisterResponder("POST", baseURL+"/tods/api/lgn",
		httpmock.NewStringResponder(200,
			`{"responseHeader":{"responseCode":1,"responseDesc":"invalid credentials"},"result":{}}`))

	err := ctrl.Login(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid credentials")
	assert.Contains(t, err.Error(), "@CanadianController.login")
}

func loggedInVehicle(t *testing.T, ctrl *Controller) bluelink.Vehicle {
	t.Helper()
	registerLogin(t)
	registerVehicleList(t)
	require.NoError(t, ctrl.Login(context.Background()))
	vehicles, err := ctrl.GetVehicles(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, vehicles)
	return vehicles[0]
}

func TestLockVerifiesPinOnce(t *testing.T) {
	ctrl := newTestController(t)
	vehicle := loggedInVehicle(t, ctrl)

	httpmock.RegisterResponder("POST", baseURL+"/tods/api/vrfypin",
		func(req *http.Request) (*http.Response, error) {
			var body map[string]string
			require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			assert.Equal(t, "1234", body["pin"])
			return httpmock.NewStringResponse(200, envelope(`{"pAuth":"pauth-1"}`)), nil
		})
	httpmock.RegisterResponder("POST", baseURL+"/tods/api/drlck",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "pauth-1", req.Header.Get("pAuth"))
			assert.Equal(t, "veh-ca-1", req.Header.Get("vehicleId"))
			return httpmock.NewStringResponse(200, envelope(`{}`)), nil
		})

	require.NoError(t, vehicle.Lock(context.Background()))
	require.NoError(t, vehicle.Lock(context.Background()))
	info := httpmock.GetCallCountInfo()
	assert.Equal(t, 1, info["POST "+baseURL+"/tods/api/vrfypin"])
}

func TestStatusNormalization(t *testing.T) {
	ctrl := newTestController(t)
	vehicle := loggedInVehicle(t, ctrl)

	httpmock.RegisterResponder("POST", baseURL+"/tods/api/lstvhclsts",
		httpmock.NewStringResponder(200, envelope(`{"status":{
			"doorLock":true,
			"airCtrlOn":false,
			"airTemp":{"value":"08H","unit":0},
			"evStatus":{"batteryCharge":false,"batteryStatus":65,"batteryPlugin":0,
				"drvDistance":[{"rangeByFuel":{"totalAvailableRange":{"value":210}}}]},
			"battery":{"batSoc":79},
			"lastStatusDate":"20240112133700"
		}}`)))

	status, err := vehicle.Status(context.Background(), bluelink.StatusOptions{Parsed: true})
	require.NoError(t, err)
	assert.True(t, status.Chassis.Locked)
	// 08H is index 8 in the 16-32 half-degree table: 20°C.
	assert.Equal(t, 20.0, status.Climate.TemperatureSetpoint)
	assert.Equal(t, 65.0, status.Engine.BatteryChargeHV)
	assert.Equal(t, 210.0, status.Engine.Range)
	assert.Equal(t, time.Date(2024, 1, 12, 13, 37, 0, 0, time.UTC), status.LastUpdate)
}

func TestStatusRefreshUsesRemoteEndpoint(t *testing.T) {
	ctrl := newTestController(t)
	vehicle := loggedInVehicle(t, ctrl)

	httpmock.RegisterResponder("POST", baseURL+"/tods/api/rltmvhclsts",
		httpmock.NewStringResponder(200, envelope(`{"status":{"doorLock":false}}`)))

	status, err := vehicle.Status(context.Background(), bluelink.StatusOptions{Refresh: true})
	require.NoError(t, err)
	assert.False(t, status.Chassis.Locked)
}

func TestStartEncodesCanadianTempCode(t *testing.T) {
	ctrl := newTestController(t)
	vehicle := loggedInVehicle(t, ctrl)

	httpmock.RegisterResponder("POST", baseURL+"/tods/api/vrfypin",
		httpmock.NewStringResponder(200, envelope(`{"pAuth":"pauth-1"}`)))
	httpmock.RegisterResponder("POST", baseURL+"/tods/api/evc/rfon",
		func(req *http.Request) (*http.Response, error) {
			var body struct {
				HvacInfo struct {
					AirCtrl int `json:"airCtrl"`
					AirTemp struct {
						Value string `json:"value"`
					} `json:"airTemp"`
				} `json:"hvacInfo"`
			}
			require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			assert.Equal(t, 1, body.HvacInfo.AirCtrl)
			// 70°F rounds to 21°C, index 10 in the 16-32 table.
			assert.Equal(t, "0AH", body.HvacInfo.AirTemp.Value)
			return httpmock.NewStringResponse(200, envelope(`{}`)), nil
		})

	require.NoError(t, vehicle.Start(context.Background(), bluelink.StartOptions{HVAC: true}))
}

func TestOdometer(t *testing.T) {
	ctrl := newTestController(t)
	vehicle := loggedInVehicle(t, ctrl)

	httpmock.RegisterResponder("POST", baseURL+"/tods/api/sltvhcl",
		httpmock.NewStringResponder(200, envelope(`{"vehicle":{"odometer":32100.5,"odometerUnit":1}}`)))

	odo, err := vehicle.Odometer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 32100.5, odo.Value)
}

func TestUnsupportedAnalytics(t *testing.T) {
	ctrl := newTestController(t)
	vehicle := loggedInVehicle(t, ctrl)

	_, err := vehicle.MonthlyReport(context.Background(), 2024, 1)
	assert.ErrorIs(t, err, bluelink.ErrNotImplemented)
	_, err = vehicle.GetChargeTargets(context.Background())
	assert.ErrorIs(t, err, bluelink.ErrNotImplemented)
}
