package america

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bluelinky/bluelink-command/internal/env"
	"github.com/bluelinky/bluelink-command/internal/log"
	"github.com/bluelinky/bluelink-command/pkg/bluelink"
)

// Vehicle dispatches commands against the US API using its static header-bag scheme.
type Vehicle struct {
	reg   bluelink.RegisterOptions
	ctrl  *Controller
	rates bluelink.RateState
}

func newVehicle(reg bluelink.RegisterOptions, ctrl *Controller) *Vehicle {
	log.Debug("US vehicle %s created", reg.VIN)
	return &Vehicle{reg: reg, ctrl: ctrl}
}

func (v *Vehicle) VIN() string                               { return v.reg.VIN }
func (v *Vehicle) Name() string                              { return v.reg.Name }
func (v *Vehicle) RegisterOptions() bluelink.RegisterOptions { return v.reg }
func (v *Vehicle) RateState() bluelink.RateState             { return v.rates }

// defaultHeaders is the header bag every US call carries.
func (v *Vehicle) defaultHeaders() map[string]string {
	return map[string]string{
		"access_token":      v.ctrl.session.AccessToken,
		"client_id":         v.ctrl.environ.ClientID,
		"Host":              v.ctrl.environ.Host,
		"User-Agent":        "okhttp/3.12.0",
		"registrationId":    v.reg.RegID,
		"gen":               v.reg.Generation,
		"username":          v.ctrl.cfg.Username,
		"vin":               v.reg.VIN,
		"APPCLOUD-VIN":      v.reg.VIN,
		"Language":          "0",
		"to":                "ISS",
		"encryptFlag":       "false",
		"from":              "SPA",
		"brandIndicator":    v.reg.BrandIndicator,
		"bluelinkservicepin": v.ctrl.cfg.PIN,
		"offset":            "-5",
	}
}

// request ensures the access token is fresh (advisory; a failed refresh does not block the call),
// then performs the request with the header bag plus any extras.
func (v *Vehicle) request(ctx context.Context, method, path string, body io.Reader, extra map[string]string) ([]byte, error) {
	if result := v.ctrl.RefreshAccessToken(ctx); result.Outcome == bluelink.RefreshFailed {
		log.Warning("proceeding with stale token: %s", result.Reason)
	}

	callURL := v.ctrl.environ.BaseURL + "/" + strings.TrimPrefix(path, "/")
	req, err := http.NewRequestWithContext(ctx, method, callURL, body)
	if err != nil {
		return nil, err
	}
	for key, value := range v.defaultHeaders() {
		req.Header.Set(key, value)
	}
	for key, value := range extra {
		req.Header.Set(key, value)
	}

	resp, err := v.ctrl.client.Do(req)
	if err != nil {
		return nil, &bluelink.HTTPError{Method: method, URL: callURL, Err: err}
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &bluelink.HTTPError{Method: method, URL: callURL, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &bluelink.HTTPError{
			Method: method, URL: callURL,
			Code: resp.StatusCode, Status: resp.Status, Body: string(data),
		}
	}
	return data, nil
}

type usStatusEnvelope struct {
	VehicleStatus *usRawStatus `json:"vehicleStatus"`
}

type usRawStatus struct {
	HoodOpen  bool `json:"hoodOpen"`
	TrunkOpen bool `json:"trunkOpen"`
	DoorLock  bool `json:"doorLock"`
	DoorOpen  *struct {
		FrontRight int `json:"frontRight"`
		FrontLeft  int `json:"frontLeft"`
		BackLeft   int `json:"backLeft"`
		BackRight  int `json:"backRight"`
	} `json:"doorOpen"`
	TirePressureLamp *struct {
		All        int `json:"tirePressureWarningLampAll"`
		FrontLeft  int `json:"tirePressureWarningLampFrontLeft"`
		FrontRight int `json:"tirePressureWarningLampFrontRight"`
		RearLeft   int `json:"tirePressureWarningLampRearLeft"`
		RearRight  int `json:"tirePressureWarningLampRearRight"`
	} `json:"tirePressureLamp"`
	AirCtrlOn          bool `json:"airCtrlOn"`
	SteerWheelHeat     int  `json:"steerWheelHeat"`
	SideBackWindowHeat int  `json:"sideBackWindowHeat"`
	Defrost            bool `json:"defrost"`
	AirTemp            *struct {
		Value string `json:"value"`
		Unit  int    `json:"unit"`
	} `json:"airTemp"`
	Engine   bool `json:"engine"`
	Acc      bool `json:"acc"`
	EVStatus *struct {
		BatteryCharge bool    `json:"batteryCharge"`
		BatteryStatus float64 `json:"batteryStatus"`
		DrvDistance   []struct {
			RangeByFuel struct {
				GasModeRange        *valueUnit `json:"gasModeRange"`
				EVModeRange         *valueUnit `json:"evModeRange"`
				TotalAvailableRange *valueUnit `json:"totalAvailableRange"`
			} `json:"rangeByFuel"`
		} `json:"drvDistance"`
	} `json:"evStatus"`
	DTE     *valueUnit `json:"dte"`
	Battery *struct {
		BatSoc float64 `json:"batSoc"`
	} `json:"battery"`
	DateTime string `json:"dateTime"`
}

type valueUnit struct {
	Value float64 `json:"value"`
	Unit  int     `json:"unit"`
}

// Status fetches and normalizes the vehicle status. Refresh selects the live (non-cached) reading
// via the REFRESH header.
func (v *Vehicle) Status(ctx context.Context, opts bluelink.StatusOptions) (*bluelink.VehicleStatus, error) {
	raw, err := v.fetchStatus(ctx, opts)
	if err != nil {
		return nil, bluelink.WrapCommand(err, "AmericanVehicle.status")
	}
	return parseStatus(raw), nil
}

// RawStatus returns the unnormalized vendor payload.
func (v *Vehicle) RawStatus(ctx context.Context, opts bluelink.StatusOptions) (map[string]interface{}, error) {
	data, err := v.request(ctx, http.MethodGet, "/ac/v2/rcs/rvs/vehicleStatus", nil,
		map[string]string{"REFRESH": strconv.FormatBool(opts.Refresh)})
	if err != nil {
		return nil, bluelink.WrapCommand(err, "AmericanVehicle.status")
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, bluelink.WrapCommand(err, "AmericanVehicle.status")
	}
	return payload, nil
}

func (v *Vehicle) FullStatus(ctx context.Context, opts bluelink.StatusOptions) (map[string]interface{}, error) {
	return nil, bluelink.WrapCommand(bluelink.ErrNotImplemented, "AmericanVehicle.fullStatus")
}

func (v *Vehicle) fetchStatus(ctx context.Context, opts bluelink.StatusOptions) (*usRawStatus, error) {
	data, err := v.request(ctx, http.MethodGet, "/ac/v2/rcs/rvs/vehicleStatus", nil,
		map[string]string{"REFRESH": strconv.FormatBool(opts.Refresh)})
	if err != nil {
		return nil, err
	}
	var envelope usStatusEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decoding vehicle status: %w", err)
	}
	if envelope.VehicleStatus == nil {
		return nil, fmt.Errorf("vehicle status response has no vehicleStatus payload")
	}
	return envelope.VehicleStatus, nil
}

// parseStatus maps the vendor payload into the canonical shape. Optional sub-objects are null-
// propagated, never dereferenced blindly.
func parseStatus(raw *usRawStatus) *bluelink.VehicleStatus {
	status := &bluelink.VehicleStatus{
		Chassis: bluelink.ChassisStatus{
			HoodOpen:  raw.HoodOpen,
			TrunkOpen: raw.TrunkOpen,
			Locked:    raw.DoorLock,
		},
		Climate: bluelink.ClimateStatus{
			Active:            raw.AirCtrlOn,
			SteeringwheelHeat: raw.SteerWheelHeat != 0,
			RearWindowHeat:    raw.SideBackWindowHeat != 0,
			Defrost:           raw.Defrost,
		},
		Engine: bluelink.EngineStatus{
			Ignition:  raw.Engine,
			Accessory: raw.Acc,
		},
	}
	if raw.DoorOpen != nil {
		status.Chassis.OpenDoors = bluelink.DoorFlags{
			FrontLeft:  raw.DoorOpen.FrontLeft != 0,
			FrontRight: raw.DoorOpen.FrontRight != 0,
			BackLeft:   raw.DoorOpen.BackLeft != 0,
			BackRight:  raw.DoorOpen.BackRight != 0,
		}
	}
	if raw.TirePressureLamp != nil {
		status.Chassis.TirePressureWarningLamp = bluelink.TireWarnings{
			FrontLeft:  raw.TirePressureLamp.FrontLeft != 0,
			FrontRight: raw.TirePressureLamp.FrontRight != 0,
			RearLeft:   raw.TirePressureLamp.RearLeft != 0,
			RearRight:  raw.TirePressureLamp.RearRight != 0,
			All:        raw.TirePressureLamp.All != 0,
		}
	}
	if raw.AirTemp != nil {
		if setpoint, err := strconv.ParseFloat(raw.AirTemp.Value, 64); err == nil {
			status.Climate.TemperatureSetpoint = setpoint
		}
		status.Climate.TemperatureUnit = raw.AirTemp.Unit
	}
	if raw.EVStatus != nil {
		status.Engine.Charging = raw.EVStatus.BatteryCharge
		status.Engine.BatteryChargeHV = raw.EVStatus.BatteryStatus
		if len(raw.EVStatus.DrvDistance) > 0 {
			byFuel := raw.EVStatus.DrvDistance[0].RangeByFuel
			if byFuel.TotalAvailableRange != nil {
				status.Engine.Range = byFuel.TotalAvailableRange.Value
			}
			if byFuel.GasModeRange != nil {
				status.Engine.RangeGas = byFuel.GasModeRange.Value
			}
			if byFuel.EVModeRange != nil {
				status.Engine.RangeEV = byFuel.EVModeRange.Value
			}
		}
	}
	if status.Engine.Range == 0 && raw.DTE != nil {
		status.Engine.Range = raw.DTE.Value
	}
	if raw.Battery != nil {
		status.Engine.BatteryCharge12v = raw.Battery.BatSoc
	}
	status.LastUpdate = parseTimestamp(raw.DateTime)
	return status
}

func parseTimestamp(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if millis, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.UnixMilli(millis).UTC()
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts
	}
	return time.Time{}
}

// Lock closes the doors. The rdo endpoints take a form-encoded body.
func (v *Vehicle) Lock(ctx context.Context) error {
	return bluelink.WrapCommand(v.doorCommand(ctx, "/ac/v2/rcs/rdo/off"), "AmericanVehicle.lock")
}

// Unlock opens the doors.
func (v *Vehicle) Unlock(ctx context.Context) error {
	return bluelink.WrapCommand(v.doorCommand(ctx, "/ac/v2/rcs/rdo/on"), "AmericanVehicle.unlock")
}

func (v *Vehicle) doorCommand(ctx context.Context, path string) error {
	form := url.Values{
		"userName": {v.ctrl.cfg.Username},
		"vin":      {v.reg.VIN},
	}
	_, err := v.request(ctx, http.MethodPost, path, strings.NewReader(form.Encode()),
		map[string]string{"Content-Type": "application/x-www-form-urlencoded"})
	return err
}

// Start issues a remote climate start. EVs route to the fatc endpoint; generation-2 EVs do not
// accept the ignition-duration or seat-heater fields at all.
func (v *Vehicle) Start(ctx context.Context, opts bluelink.StartOptions) error {
	merged := opts.WithDefaults()
	rules := env.SeatClimateRulesFor(v.ctrl.cfg.Brand, bluelink.RegionUS)

	path := "/ac/v2/rcs/rsc/start"
	gen2EV := false
	if v.reg.EngineType == bluelink.EngineEV {
		path = "/ac/v2/evc/fatc/start"
		if v.reg.Generation == "2" {
			gen2EV = true
			log.Debug("gen 2 EV: seat and duration options not supported")
		}
	}

	heated := merged.HeatedFeatures
	if !rules.AllowsHeat(heated) {
		if heated != 0 {
			log.Warning("heatedFeatures %d is not a valid value, defaulting to 0", heated)
		}
		heated = 0
	}

	body := map[string]interface{}{
		"Ims":     0,
		"airCtrl": boolToInt(merged.HVAC),
		"airTemp": map[string]interface{}{
			"unit":  1,
			"value": strconv.FormatFloat(merged.Temperature, 'f', -1, 64),
		},
		"defrost":  merged.Defrost,
		"heating1": heated,
		"username": v.ctrl.cfg.Username,
		"vin":      v.reg.VIN,
	}
	if !gen2EV {
		body["igniOnDuration"] = merged.Duration
		if seats := filterSeatClimate(merged.SeatClimate, rules); len(seats) > 0 {
			body["seatHeaterVentInfo"] = seats
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return bluelink.WrapCommand(err, "AmericanVehicle.start")
	}
	_, err = v.request(ctx, http.MethodPost, path, bytes.NewReader(payload),
		map[string]string{"offset": "-4", "Content-Type": "application/json"})
	return bluelink.WrapCommand(err, "AmericanVehicle.start")
}

// filterSeatClimate drops unknown seats and invalid status values with a warning instead of
// failing the whole call.
func filterSeatClimate(settings bluelink.SeatClimate, rules env.SeatClimateRules) map[string]int {
	if len(settings) == 0 {
		return nil
	}
	out := make(map[string]int)
	for seat, value := range settings {
		field := rules.SeatField(seat)
		if field == "" || !rules.AllowsStatus(value) {
			log.Warning("invalid seat / seat climate option for %s", seat)
			continue
		}
		out[field] = value
	}
	return out
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Stop ends a remote start.
func (v *Vehicle) Stop(ctx context.Context) error {
	_, err := v.request(ctx, http.MethodPost, "/ac/v2/rcs/rsc/stop", nil,
		map[string]string{"offset": "-4"})
	return bluelink.WrapCommand(err, "AmericanVehicle.stop")
}

// Location reads the last reported position.
func (v *Vehicle) Location(ctx context.Context) (*bluelink.Location, error) {
	data, err := v.request(ctx, http.MethodGet, "/ac/v2/rcs/rfc/findMyCar", nil, nil)
	if err != nil {
		return nil, bluelink.WrapCommand(err, "AmericanVehicle.location")
	}
	var raw struct {
		Coord struct {
			Lat float64 `json:"lat"`
			Lon float64 `json:"lon"`
			Alt float64 `json:"alt"`
		} `json:"coord"`
		Speed struct {
			Value float64 `json:"value"`
			Unit  int     `json:"unit"`
		} `json:"speed"`
		Head float64 `json:"head"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, bluelink.WrapCommand(err, "AmericanVehicle.location")
	}
	return &bluelink.Location{
		Latitude:  raw.Coord.Lat,
		Longitude: raw.Coord.Lon,
		Altitude:  raw.Coord.Alt,
		Speed:     bluelink.Speed{Value: raw.Speed.Value, Unit: raw.Speed.Unit},
		Heading:   raw.Head,
	}, nil
}

// Odometer reads the mileage off the enrollment details, which is where the US API reports it.
func (v *Vehicle) Odometer(ctx context.Context) (*bluelink.Odometer, error) {
	details, err := v.ctrl.enrollmentDetails(ctx)
	if err != nil {
		return nil, bluelink.WrapCommand(err, "AmericanVehicle.odometer")
	}
	for _, entry := range details.EnrolledVehicleDetails {
		if entry.VehicleDetails.VIN != v.reg.VIN {
			continue
		}
		value, err := entry.VehicleDetails.Odometer.Float64()
		if err != nil {
			return nil, bluelink.WrapCommand(
				fmt.Errorf("malformed odometer value %q", entry.VehicleDetails.Odometer),
				"AmericanVehicle.odometer")
		}
		return &bluelink.Odometer{Value: value, Unit: 0}, nil
	}
	return nil, bluelink.WrapCommand(
		fmt.Errorf("vehicle %s not present in enrollment details", v.reg.VIN),
		"AmericanVehicle.odometer")
}

// StartCharge begins charging an EV.
func (v *Vehicle) StartCharge(ctx context.Context) error {
	if v.reg.EngineType != bluelink.EngineEV {
		return bluelink.WrapCommand(
			bluelink.Validationf("charge commands require an EV"), "AmericanVehicle.startCharge")
	}
	_, err := v.request(ctx, http.MethodPost, "/ac/v2/evc/charge/start", nil, nil)
	return bluelink.WrapCommand(err, "AmericanVehicle.startCharge")
}

// StopCharge halts charging.
func (v *Vehicle) StopCharge(ctx context.Context) error {
	if v.reg.EngineType != bluelink.EngineEV {
		return bluelink.WrapCommand(
			bluelink.Validationf("charge commands require an EV"), "AmericanVehicle.stopCharge")
	}
	_, err := v.request(ctx, http.MethodPost, "/ac/v2/evc/charge/stop", nil, nil)
	return bluelink.WrapCommand(err, "AmericanVehicle.stopCharge")
}

func (v *Vehicle) GetChargeTargets(ctx context.Context) ([]bluelink.ChargeTarget, error) {
	return nil, bluelink.WrapCommand(bluelink.ErrNotImplemented, "AmericanVehicle.getChargeTargets")
}

func (v *Vehicle) SetChargeTargets(ctx context.Context, targets bluelink.ChargeTargets) error {
	if err := targets.Validate(); err != nil {
		return bluelink.WrapCommand(err, "AmericanVehicle.setChargeTargets")
	}
	return bluelink.WrapCommand(bluelink.ErrNotImplemented, "AmericanVehicle.setChargeTargets")
}

func (v *Vehicle) MonthlyReport(ctx context.Context, year, month int) (*bluelink.MonthlyReport, error) {
	return nil, bluelink.WrapCommand(bluelink.ErrNotImplemented, "AmericanVehicle.monthlyReport")
}

func (v *Vehicle) TripInfo(ctx context.Context, period bluelink.TripPeriod) (*bluelink.MonthTrip, []bluelink.DayTrip, error) {
	return nil, nil, bluelink.WrapCommand(bluelink.ErrNotImplemented, "AmericanVehicle.tripInfo")
}

func (v *Vehicle) DriveHistory(ctx context.Context, period bluelink.HistoryPeriod) (*bluelink.DriveHistory, error) {
	return nil, bluelink.WrapCommand(bluelink.ErrNotImplemented, "AmericanVehicle.driveHistory")
}
