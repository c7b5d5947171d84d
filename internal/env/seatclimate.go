package env

import "github.com/bluelinky/bluelink-command/pkg/bluelink"

// SeatClimateRules enumerates the seat names, seat status values, and heated-feature values a
// brand/region combination accepts. Empty rules reject everything.
type SeatClimateRules struct {
	// ValidSeats maps caller-facing seat names to the vendor payload field names.
	ValidSeats map[string]string
	// ValidStatus are the accepted per-seat heat/vent levels.
	ValidStatus []int
	// ValidHeats are the accepted heatedFeatures enum values.
	ValidHeats []int
}

var seatNameMap = map[string]string{
	"driverSeat":    "drvSeatHeatState",
	"passengerSeat": "astSeatHeatState",
	"rearLeftSeat":  "rlSeatHeatState",
	"rearRightSeat": "rrSeatHeatState",
}

// Seat status levels: 0/2 off, 1 on, 3-5 cool low/med/high, 6-8 heat low/med/high.
var seatStatusValues = []int{0, 1, 2, 3, 4, 5, 6, 7, 8}

// Heated features: 0 off, 1 wheel+rear window, 2 rear window, 3 wheel. EU additionally allows 4.
var heatValues = []int{0, 1, 2, 3}

// SeatClimateRulesFor returns the advanced-climate validation rules for a brand and region. Only
// Hyundai's US deployment accepts seat-climate options today; every other combination returns
// empty rules.
func SeatClimateRulesFor(brand bluelink.Brand, region bluelink.Region) SeatClimateRules {
	if brand != bluelink.BrandHyundai || region != bluelink.RegionUS {
		return SeatClimateRules{ValidSeats: map[string]string{}}
	}
	heats := heatValues
	if region == bluelink.RegionEU {
		heats = append(append([]int{}, heatValues...), 4)
	}
	return SeatClimateRules{
		ValidSeats:  seatNameMap,
		ValidStatus: seatStatusValues,
		ValidHeats:  heats,
	}
}

// AllowsHeat reports whether a heatedFeatures value is in the valid set.
func (r SeatClimateRules) AllowsHeat(value int) bool {
	for _, v := range r.ValidHeats {
		if v == value {
			return true
		}
	}
	return false
}

// AllowsStatus reports whether a per-seat status value is in the valid set.
func (r SeatClimateRules) AllowsStatus(value int) bool {
	for _, v := range r.ValidStatus {
		if v == value {
			return true
		}
	}
	return false
}

// SeatField maps a caller-facing seat name to its payload field, or "" when unknown.
func (r SeatClimateRules) SeatField(name string) string {
	return r.ValidSeats[name]
}
