package canada

import (
	"context"
	"fmt"
	"time"

	"github.com/bluelinky/bluelink-command/internal/env"
	"github.com/bluelinky/bluelink-command/internal/log"
	"github.com/bluelinky/bluelink-command/pkg/bluelink"
)

// Vehicle dispatches commands against the Canadian tods/api endpoints. Every call carries the
// vehicleId header; privileged commands additionally carry the pAuth token.
type Vehicle struct {
	reg   bluelink.RegisterOptions
	ctrl  *Controller
	rates bluelink.RateState
}

func newVehicle(reg bluelink.RegisterOptions, ctrl *Controller) *Vehicle {
	return &Vehicle{reg: reg, ctrl: ctrl}
}

func (v *Vehicle) VIN() string                               { return v.reg.VIN }
func (v *Vehicle) Name() string                              { return v.reg.Name }
func (v *Vehicle) RegisterOptions() bluelink.RegisterOptions { return v.reg }
func (v *Vehicle) RateState() bluelink.RateState             { return v.rates }

func (v *Vehicle) request(ctx context.Context, url string, body interface{}) (*apiResponse, error) {
	if result := v.ctrl.RefreshAccessToken(ctx); result.Outcome == bluelink.RefreshFailed {
		log.Warning("proceeding with stale token: %s", result.Reason)
	}
	return v.ctrl.request(ctx, url, body, map[string]string{"vehicleId": v.reg.ID})
}

// privileged verifies the pin first and sends the pAuth header with the call.
func (v *Vehicle) privileged(ctx context.Context, url string, body interface{}) (*apiResponse, error) {
	if result := v.ctrl.RefreshAccessToken(ctx); result.Outcome == bluelink.RefreshFailed {
		return nil, fmt.Errorf("refreshing access token: %s", result.Reason)
	}
	pAuth, err := v.ctrl.pinAuth(ctx)
	if err != nil {
		return nil, err
	}
	return v.ctrl.request(ctx, url, body, map[string]string{
		"vehicleId": v.reg.ID,
		"pAuth":     pAuth,
	})
}

type canadianStatus struct {
	AirCtrlOn bool `json:"airCtrlOn"`
	Engine    bool `json:"engine"`
	DoorLock  bool `json:"doorLock"`
	DoorOpen  struct {
		FrontLeft  int `json:"frontLeft"`
		FrontRight int `json:"frontRight"`
		BackLeft   int `json:"backLeft"`
		BackRight  int `json:"backRight"`
	} `json:"doorOpen"`
	TrunkOpen bool `json:"trunkOpen"`
	HoodOpen  bool `json:"hoodOpen"`
	AirTemp   struct {
		Value string `json:"value"`
		Unit  int    `json:"unit"`
	} `json:"airTemp"`
	Defrost            bool `json:"defrost"`
	Acc                bool `json:"acc"`
	SteerWheelHeat     int  `json:"steerWheelHeat"`
	SideBackWindowHeat int  `json:"sideBackWindowHeat"`
	EVStatus           *struct {
		BatteryCharge bool    `json:"batteryCharge"`
		BatteryStatus float64 `json:"batteryStatus"`
		BatteryPlugin int     `json:"batteryPlugin"`
		DrvDistance   []struct {
			RangeByFuel struct {
				TotalAvailableRange *struct {
					Value float64 `json:"value"`
				} `json:"totalAvailableRange"`
			} `json:"rangeByFuel"`
		} `json:"drvDistance"`
	} `json:"evStatus"`
	Battery *struct {
		BatSoc float64 `json:"batSoc"`
	} `json:"battery"`
	LastStatusDate string `json:"lastStatusDate"`
}

// Status returns the canonical status. Refresh polls the vehicle; the default reads the cached
// record.
func (v *Vehicle) Status(ctx context.Context, opts bluelink.StatusOptions) (*bluelink.VehicleStatus, error) {
	url := v.ctrl.environ.Endpoints.Status
	if opts.Refresh {
		url = v.ctrl.environ.Endpoints.RemoteStatus
	}
	resp, err := v.request(ctx, url, map[string]string{})
	if err != nil {
		return nil, bluelink.WrapCommand(err, "CanadianVehicle.status")
	}
	var result struct {
		Status canadianStatus `json:"status"`
	}
	if err := resp.decodeResult(&result); err != nil {
		return nil, bluelink.WrapCommand(err, "CanadianVehicle.status")
	}
	return v.parseStatus(&result.Status), nil
}

func (v *Vehicle) parseStatus(raw *canadianStatus) *bluelink.VehicleStatus {
	status := &bluelink.VehicleStatus{
		Chassis: bluelink.ChassisStatus{
			HoodOpen:  raw.HoodOpen,
			TrunkOpen: raw.TrunkOpen,
			Locked:    raw.DoorLock,
			OpenDoors: bluelink.DoorFlags{
				FrontLeft:  raw.DoorOpen.FrontLeft != 0,
				FrontRight: raw.DoorOpen.FrontRight != 0,
				BackLeft:   raw.DoorOpen.BackLeft != 0,
				BackRight:  raw.DoorOpen.BackRight != 0,
			},
		},
		Climate: bluelink.ClimateStatus{
			Active:            raw.AirCtrlOn,
			SteeringwheelHeat: raw.SteerWheelHeat != 0,
			RearWindowHeat:    raw.SideBackWindowHeat != 0,
			Defrost:           raw.Defrost,
			TemperatureUnit:   raw.AirTemp.Unit,
		},
		Engine: bluelink.EngineStatus{
			Ignition:  raw.Engine,
			Accessory: raw.Acc,
		},
	}
	if raw.AirTemp.Value != "" {
		if celsius, err := env.TempCodeToCelsius(bluelink.RegionCA, raw.AirTemp.Value); err == nil {
			status.Climate.TemperatureSetpoint = celsius
		}
	}
	if raw.EVStatus != nil {
		status.Engine.Charging = raw.EVStatus.BatteryCharge
		status.Engine.BatteryChargeHV = raw.EVStatus.BatteryStatus
		status.Engine.PluggedTo = bluelink.EVPlugType(raw.EVStatus.BatteryPlugin)
		if len(raw.EVStatus.DrvDistance) > 0 {
			if r := raw.EVStatus.DrvDistance[0].RangeByFuel.TotalAvailableRange; r != nil {
				status.Engine.Range = r.Value
			}
		}
	}
	if raw.Battery != nil {
		status.Engine.BatteryCharge12v = raw.Battery.BatSoc
	}
	if ts, err := time.Parse("20060102150405", raw.LastStatusDate); err == nil {
		status.LastUpdate = ts
	}
	return status
}

// RawStatus returns the unnormalized cached (or refreshed) status payload.
func (v *Vehicle) RawStatus(ctx context.Context, opts bluelink.StatusOptions) (map[string]interface{}, error) {
	url := v.ctrl.environ.Endpoints.Status
	if opts.Refresh {
		url = v.ctrl.environ.Endpoints.RemoteStatus
	}
	resp, err := v.request(ctx, url, map[string]string{})
	if err != nil {
		return nil, bluelink.WrapCommand(err, "CanadianVehicle.status")
	}
	var result map[string]interface{}
	if err := resp.decodeResult(&result); err != nil {
		return nil, bluelink.WrapCommand(err, "CanadianVehicle.status")
	}
	return result, nil
}

// FullStatus returns the vehicle-info record: static details plus the cached status.
func (v *Vehicle) FullStatus(ctx context.Context, opts bluelink.StatusOptions) (map[string]interface{}, error) {
	resp, err := v.request(ctx, v.ctrl.environ.Endpoints.VehicleInfo, map[string]string{})
	if err != nil {
		return nil, bluelink.WrapCommand(err, "CanadianVehicle.fullStatus")
	}
	var result map[string]interface{}
	if err := resp.decodeResult(&result); err != nil {
		return nil, bluelink.WrapCommand(err, "CanadianVehicle.fullStatus")
	}
	return result, nil
}

// Lock closes the doors.
func (v *Vehicle) Lock(ctx context.Context) error {
	_, err := v.privileged(ctx, v.ctrl.environ.Endpoints.Lock, map[string]string{})
	return bluelink.WrapCommand(err, "CanadianVehicle.lock")
}

// Unlock opens the doors.
func (v *Vehicle) Unlock(ctx context.Context) error {
	_, err := v.privileged(ctx, v.ctrl.environ.Endpoints.Unlock, map[string]string{})
	return bluelink.WrapCommand(err, "CanadianVehicle.unlock")
}

// Start begins remote climate. The setpoint is encoded with the Canadian temperature table.
func (v *Vehicle) Start(ctx context.Context, opts bluelink.StartOptions) error {
	merged := opts.WithDefaults()
	celsius := merged.Temperature
	if merged.Unit == "F" {
		celsius = roundHalf((merged.Temperature - 32) * 5 / 9)
	}
	tempCode, err := env.CelsiusToTempCode(bluelink.RegionCA, celsius)
	if err != nil {
		return bluelink.WrapCommand(err, "CanadianVehicle.start")
	}
	heating := 0
	if merged.HeatedFeatures != 0 {
		heating = 1
	}
	_, err = v.privileged(ctx, v.ctrl.environ.Endpoints.Start, map[string]interface{}{
		"hvacInfo": map[string]interface{}{
			"airCtrl": boolToInt(merged.HVAC),
			"airTemp": map[string]interface{}{
				"value": tempCode,
				"unit":  0,
			},
			"defrost":  merged.Defrost,
			"heating1": heating,
		},
	})
	return bluelink.WrapCommand(err, "CanadianVehicle.start")
}

func roundHalf(value float64) float64 {
	return float64(int(value*2+0.5)) / 2
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Stop ends remote climate.
func (v *Vehicle) Stop(ctx context.Context) error {
	_, err := v.privileged(ctx, v.ctrl.environ.Endpoints.Stop, map[string]string{})
	return bluelink.WrapCommand(err, "CanadianVehicle.stop")
}

// Location locates the vehicle.
func (v *Vehicle) Location(ctx context.Context) (*bluelink.Location, error) {
	resp, err := v.privileged(ctx, v.ctrl.environ.Endpoints.Locate, map[string]string{})
	if err != nil {
		return nil, bluelink.WrapCommand(err, "CanadianVehicle.location")
	}
	var result struct {
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
	if err := resp.decodeResult(&result); err != nil {
		return nil, bluelink.WrapCommand(err, "CanadianVehicle.location")
	}
	return &bluelink.Location{
		Latitude:  result.Coord.Lat,
		Longitude: result.Coord.Lon,
		Altitude:  result.Coord.Alt,
		Speed:     bluelink.Speed{Value: result.Speed.Value, Unit: result.Speed.Unit},
		Heading:   result.Head,
	}, nil
}

// Odometer reads the mileage from the vehicle-info record.
func (v *Vehicle) Odometer(ctx context.Context) (*bluelink.Odometer, error) {
	resp, err := v.request(ctx, v.ctrl.environ.Endpoints.VehicleInfo, map[string]string{})
	if err != nil {
		return nil, bluelink.WrapCommand(err, "CanadianVehicle.odometer")
	}
	var result struct {
		Vehicle struct {
			Odometer     float64 `json:"odometer"`
			OdometerUnit int     `json:"odometerUnit"`
		} `json:"vehicle"`
	}
	if err := resp.decodeResult(&result); err != nil {
		return nil, bluelink.WrapCommand(err, "CanadianVehicle.odometer")
	}
	return &bluelink.Odometer{Value: result.Vehicle.Odometer, Unit: result.Vehicle.OdometerUnit}, nil
}

// StartCharge begins charging.
func (v *Vehicle) StartCharge(ctx context.Context) error {
	if v.reg.EngineType != bluelink.EngineEV {
		return bluelink.WrapCommand(bluelink.Validationf("charge commands require an EV"), "CanadianVehicle.startCharge")
	}
	_, err := v.privileged(ctx, v.ctrl.environ.Endpoints.StartCharge, map[string]string{})
	return bluelink.WrapCommand(err, "CanadianVehicle.startCharge")
}

// StopCharge halts charging.
func (v *Vehicle) StopCharge(ctx context.Context) error {
	if v.reg.EngineType != bluelink.EngineEV {
		return bluelink.WrapCommand(bluelink.Validationf("charge commands require an EV"), "CanadianVehicle.stopCharge")
	}
	_, err := v.privileged(ctx, v.ctrl.environ.Endpoints.StopCharge, map[string]string{})
	return bluelink.WrapCommand(err, "CanadianVehicle.stopCharge")
}

// GetChargeTargets is not offered by the Canadian API; only setting limits is possible.
func (v *Vehicle) GetChargeTargets(ctx context.Context) ([]bluelink.ChargeTarget, error) {
	return nil, bluelink.WrapCommand(bluelink.ErrNotImplemented, "CanadianVehicle.getChargeTargets")
}

// SetChargeTargets sets both charge limits through the setsoc endpoint.
func (v *Vehicle) SetChargeTargets(ctx context.Context, targets bluelink.ChargeTargets) error {
	if err := targets.Validate(); err != nil {
		return bluelink.WrapCommand(err, "CanadianVehicle.setChargeTargets")
	}
	if v.reg.EngineType != bluelink.EngineEV {
		return bluelink.WrapCommand(bluelink.Validationf("charge commands require an EV"), "CanadianVehicle.setChargeTargets")
	}
	_, err := v.privileged(ctx, v.ctrl.environ.Endpoints.SetChargeTarget, map[string]interface{}{
		"tsoc": []map[string]int{
			{"plugType": int(bluelink.ChargeModeFast), "level": targets.Fast},
			{"plugType": int(bluelink.ChargeModeSlow), "level": targets.Slow},
		},
	})
	return bluelink.WrapCommand(err, "CanadianVehicle.setChargeTargets")
}

func (v *Vehicle) MonthlyReport(ctx context.Context, year, month int) (*bluelink.MonthlyReport, error) {
	return nil, bluelink.WrapCommand(bluelink.ErrNotImplemented, "CanadianVehicle.monthlyReport")
}

func (v *Vehicle) TripInfo(ctx context.Context, period bluelink.TripPeriod) (*bluelink.MonthTrip, []bluelink.DayTrip, error) {
	return nil, nil, bluelink.WrapCommand(bluelink.ErrNotImplemented, "CanadianVehicle.tripInfo")
}

func (v *Vehicle) DriveHistory(ctx context.Context, period bluelink.HistoryPeriod) (*bluelink.DriveHistory, error) {
	return nil, bluelink.WrapCommand(bluelink.ErrNotImplemented, "CanadianVehicle.driveHistory")
}
