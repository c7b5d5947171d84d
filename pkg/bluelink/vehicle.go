package bluelink

import (
	"context"
	"time"
)

// EngineType tags a vehicle as combustion or electric, derived from the vendor's evStatus code
// during discovery.
type EngineType string

const (
	EngineICE EngineType = "ICE"
	EngineEV  EngineType = "EV"
)

// RegisterOptions describes one discovered vehicle. Built once during GetVehicles and immutable
// afterwards; owned by the vehicle dispatcher it was created for.
type RegisterOptions struct {
	ID             string
	Name           string
	Nickname       string
	VIN            string
	RegDate        string
	BrandIndicator string
	RegID          string
	Generation     string
	EngineType     EngineType
}

// StatusOptions controls a status call. Refresh bypasses the vendor's cache tier; Parsed selects
// the canonical shape over the raw payload.
type StatusOptions struct {
	Refresh bool
	Parsed  bool
}

// SeatClimate names the per-seat heat/vent settings accepted by Start.
type SeatClimate map[string]int

// StartOptions configures a remote climate start. Zero values are filled by WithDefaults.
type StartOptions struct {
	HVAC           bool
	Duration       int
	Temperature    float64
	Defrost        bool
	HeatedFeatures int
	Unit           string
	SeatClimate    SeatClimate
}

// WithDefaults merges o over the stock start configuration: hvac off, ten minutes, 70°F.
func (o StartOptions) WithDefaults() StartOptions {
	if o.Duration == 0 {
		o.Duration = 10
	}
	if o.Temperature == 0 {
		o.Temperature = 70
	}
	if o.Unit == "" {
		o.Unit = "F"
	}
	return o
}

// HistoryPeriod selects the aggregation window for drive-history calls.
type HistoryPeriod int

const (
	HistoryDaily   HistoryPeriod = 0
	HistoryMonthly HistoryPeriod = 1
	HistoryAll     HistoryPeriod = 2
)

// DriveHistoryEntry is one cumulated or dated power-consumption line.
type DriveHistoryEntry struct {
	Period             int       `json:"period"`
	RawDate            string    `json:"rawDate,omitempty"`
	Date               time.Time `json:"date,omitempty"`
	TotalConsumed      float64   `json:"totalConsumed"`
	EngineConsumption  float64   `json:"engineConsumption"`
	ClimateConsumption float64   `json:"climateConsumption"`
	DeviceConsumption  float64   `json:"deviceConsumption"`
	BatteryCare        float64   `json:"batteryCare"`
	Regenerated        float64   `json:"regenerated"`
	Distance           float64   `json:"distance"`
}

// DriveHistory groups cumulated and per-date consumption lines.
type DriveHistory struct {
	Cumulated []DriveHistoryEntry `json:"cumulated"`
	History   []DriveHistoryEntry `json:"history"`
}

// TripPeriod selects a month or a single day for TripInfo.
type TripPeriod struct {
	Year  int
	Month int
	// Day selects per-day trip detail when non-zero.
	Day int
}

// Vehicle is the per-region command dispatcher. Every call ensures the owning controller's tokens
// are fresh before hitting the vendor and normalizes the response into the canonical shapes.
//
// Operations a region does not support return ErrNotImplemented.
type Vehicle interface {
	VIN() string
	Name() string
	RegisterOptions() RegisterOptions
	RateState() RateState

	Status(ctx context.Context, opts StatusOptions) (*VehicleStatus, error)
	RawStatus(ctx context.Context, opts StatusOptions) (map[string]interface{}, error)
	FullStatus(ctx context.Context, opts StatusOptions) (map[string]interface{}, error)

	Lock(ctx context.Context) error
	Unlock(ctx context.Context) error
	Start(ctx context.Context, opts StartOptions) error
	Stop(ctx context.Context) error

	Location(ctx context.Context) (*Location, error)
	Odometer(ctx context.Context) (*Odometer, error)

	StartCharge(ctx context.Context) error
	StopCharge(ctx context.Context) error
	GetChargeTargets(ctx context.Context) ([]ChargeTarget, error)
	SetChargeTargets(ctx context.Context, targets ChargeTargets) error

	MonthlyReport(ctx context.Context, year, month int) (*MonthlyReport, error)
	TripInfo(ctx context.Context, period TripPeriod) (*MonthTrip, []DayTrip, error)
	DriveHistory(ctx context.Context, period HistoryPeriod) (*DriveHistory, error)
}
