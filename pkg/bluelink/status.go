package bluelink

import "time"

// EVPlugType reports what, if anything, an EV is plugged into.
type EVPlugType int

const (
	PlugUnplugged EVPlugType = 0
	PlugFast      EVPlugType = 1
	PlugPortable  EVPlugType = 2
	PlugStation   EVPlugType = 3
)

// EVChargeMode distinguishes the two charge-target slots a vehicle tracks.
type EVChargeMode int

const (
	ChargeModeFast EVChargeMode = 0
	ChargeModeSlow EVChargeMode = 1
)

// DoorFlags holds per-door open indicators.
type DoorFlags struct {
	FrontLeft  bool `json:"frontLeft"`
	FrontRight bool `json:"frontRight"`
	BackLeft   bool `json:"backLeft"`
	BackRight  bool `json:"backRight"`
}

// TireWarnings holds per-wheel tire-pressure warning lamps.
type TireWarnings struct {
	FrontLeft  bool `json:"frontLeft"`
	FrontRight bool `json:"frontRight"`
	RearLeft   bool `json:"rearLeft"`
	RearRight  bool `json:"rearRight"`
	All        bool `json:"all"`
}

// ChassisStatus is the chassis sub-group of the canonical status.
type ChassisStatus struct {
	HoodOpen                bool         `json:"hoodOpen"`
	TrunkOpen               bool         `json:"trunkOpen"`
	Locked                  bool         `json:"locked"`
	OpenDoors               DoorFlags    `json:"openDoors"`
	TirePressureWarningLamp TireWarnings `json:"tirePressureWarningLamp"`
}

// ClimateStatus is the climate sub-group of the canonical status.
type ClimateStatus struct {
	Active              bool    `json:"active"`
	SteeringwheelHeat   bool    `json:"steeringwheelHeat"`
	SideMirrorHeat      bool    `json:"sideMirrorHeat"`
	RearWindowHeat      bool    `json:"rearWindowHeat"`
	Defrost             bool    `json:"defrost"`
	TemperatureSetpoint float64 `json:"temperatureSetpoint"`
	TemperatureUnit     int     `json:"temperatureUnit"`
}

// EngineStatus is the engine sub-group of the canonical status. Range fields are zero when the
// vendor payload does not report them.
type EngineStatus struct {
	Ignition  bool `json:"ignition"`
	Accessory bool `json:"accessory"`

	Range    float64 `json:"range"`
	RangeGas float64 `json:"rangeGas"`
	RangeEV  float64 `json:"rangeEV"`

	PluggedTo EVPlugType `json:"pluggedTo"`
	Charging  bool       `json:"charging"`

	EstimatedCurrentChargeDuration  int `json:"estimatedCurrentChargeDuration"`
	EstimatedFastChargeDuration     int `json:"estimatedFastChargeDuration"`
	EstimatedPortableChargeDuration int `json:"estimatedPortableChargeDuration"`
	EstimatedStationChargeDuration  int `json:"estimatedStationChargeDuration"`

	BatteryCharge12v float64 `json:"batteryCharge12v"`
	BatteryChargeHV  float64 `json:"batteryChargeHV"`
}

// VehicleStatus is the canonical, region-independent status shape produced by a dispatcher's
// normalization step.
type VehicleStatus struct {
	Chassis    ChassisStatus `json:"chassis"`
	Climate    ClimateStatus `json:"climate"`
	Engine     EngineStatus  `json:"engine"`
	LastUpdate time.Time     `json:"lastupdate"`
}

// Speed pairs a speed value with its vendor unit code.
type Speed struct {
	Value float64 `json:"value"`
	Unit  int     `json:"unit"`
}

// Location is a vehicle's last reported position.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float64 `json:"altitude"`
	Speed     Speed   `json:"speed"`
	Heading   float64 `json:"heading"`
}

// Odometer pairs an odometer reading with its vendor unit code.
type Odometer struct {
	Value float64 `json:"value"`
	Unit  int     `json:"unit"`
}

// ChargeTarget is one charge-limit entry reported by the vehicle.
type ChargeTarget struct {
	Distance float64      `json:"distance"`
	Level    int          `json:"targetLevel"`
	Mode     EVChargeMode `json:"type"`
}

// ChargeTargets carries the two settable charge limits. Valid levels are enumerated by
// ValidChargeLevels.
type ChargeTargets struct {
	Fast int
	Slow int
}

// ValidChargeLevels is the set of charge-limit percentages the vendor accepts.
var ValidChargeLevels = []int{50, 60, 70, 80, 90, 100}

// Validate rejects charge levels outside ValidChargeLevels before any network call.
func (t ChargeTargets) Validate() error {
	for _, level := range []int{t.Fast, t.Slow} {
		ok := false
		for _, v := range ValidChargeLevels {
			if level == v {
				ok = true
				break
			}
		}
		if !ok {
			return Validationf("charge target %d is invalid, allowed values are 50, 60, 70, 80, 90, 100", level)
		}
	}
	return nil
}

// MonthlyReport summarizes one month of driving as reported by the vendor.
type MonthlyReport struct {
	Start     string              `json:"start"`
	End       string              `json:"end"`
	Driving   MonthlyDriving      `json:"driving"`
	Breakdown []MonthlyBreakdown  `json:"breakdown"`
	Vehicle   MonthlyVehicleState `json:"vehicleStatus"`
}

type MonthlyDriving struct {
	Distance      float64 `json:"distance"`
	StartCount    int     `json:"startCount"`
	IdleDuration  int     `json:"idleDuration"`
	DriveDuration int     `json:"driveDuration"`
}

type MonthlyBreakdown struct {
	Raw map[string]interface{} `json:"raw"`
}

type MonthlyVehicleState struct {
	TPMSSupported   bool `json:"tpms"`
	TirePressureAll bool `json:"tirePressureAll"`
}

// Trip is one recorded journey within a day.
type Trip struct {
	TimeRaw       string    `json:"timeRaw"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	DriveDuration int       `json:"driveDuration"`
	IdleDuration  int       `json:"idleDuration"`
	AvgSpeed      float64   `json:"avgSpeed"`
	MaxSpeed      float64   `json:"maxSpeed"`
	Distance      float64   `json:"distance"`
}

// DayTrip aggregates the trips of a single day.
type DayTrip struct {
	DayRaw        string  `json:"dayRaw"`
	TripsCount    int     `json:"tripsCount"`
	Distance      float64 `json:"distance"`
	DriveDuration int     `json:"driveDuration"`
	IdleDuration  int     `json:"idleDuration"`
	AvgSpeed      float64 `json:"avgSpeed"`
	MaxSpeed      float64 `json:"maxSpeed"`
	Trips         []Trip  `json:"trips"`
}

// MonthTrip aggregates one month of trips with per-day counters.
type MonthTrip struct {
	Days          []MonthTripDay `json:"days"`
	Distance      float64        `json:"distance"`
	DriveDuration int            `json:"driveDuration"`
	IdleDuration  int            `json:"idleDuration"`
	AvgSpeed      float64        `json:"avgSpeed"`
	MaxSpeed      float64        `json:"maxSpeed"`
}

type MonthTripDay struct {
	DayRaw     string    `json:"dayRaw"`
	Date       time.Time `json:"date"`
	TripsCount int       `json:"tripsCount"`
}

// RateState mirrors the vendor's X-RateLimit headers. Observational only; calls are never blocked
// on it.
type RateState struct {
	Max       int
	Current   int
	Reset     time.Time
	UpdatedAt time.Time
}
