package env

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bluelinky/bluelink-command/pkg/bluelink"
)

// tempRange bounds a region's valid Celsius setpoints. All regions step by 0.5 degrees.
type tempRange struct {
	start, end float64
}

var tempRanges = map[bluelink.Region]tempRange{
	bluelink.RegionEU: {14, 30},
	bluelink.RegionCA: {16, 32},
	bluelink.RegionCN: {14, 30},
	bluelink.RegionAU: {17, 27},
}

const tempStep = 0.5

func tempValues(region bluelink.Region) ([]float64, error) {
	r, ok := tempRanges[region]
	if !ok {
		return nil, fmt.Errorf("no temperature code table for region %s", region)
	}
	var values []float64
	for t := r.start; t <= r.end; t += tempStep {
		values = append(values, t)
	}
	return values, nil
}

// CelsiusToTempCode encodes a Celsius setpoint as the vendor's indexed code: the value's position
// in the region's ascending table, as two uppercase hex digits suffixed with "H". Temperatures
// outside the table are an error, never clamped.
func CelsiusToTempCode(region bluelink.Region, temperature float64) (string, error) {
	values, err := tempValues(region)
	if err != nil {
		return "", err
	}
	for i, v := range values {
		if v == temperature {
			return fmt.Sprintf("%02XH", i), nil
		}
	}
	return "", fmt.Errorf("temperature %g is not a valid %s setpoint (%g-%g by %g)",
		temperature, region, tempRanges[region].start, tempRanges[region].end, tempStep)
}

// TempCodeToCelsius decodes a vendor temperature code back to Celsius.
func TempCodeToCelsius(region bluelink.Region, code string) (float64, error) {
	values, err := tempValues(region)
	if err != nil {
		return 0, err
	}
	hex := strings.TrimSuffix(strings.ToUpper(code), "H")
	index, err := strconv.ParseInt(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("malformed temperature code %q: %w", code, err)
	}
	if index < 0 || int(index) >= len(values) {
		return 0, fmt.Errorf("temperature code %q is out of range for %s", code, region)
	}
	return values[index], nil
}
