package env

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluelinky/bluelink-command/pkg/bluelink"
)

func TestTempCodeRoundTrip(t *testing.T) {
	regions := []bluelink.Region{
		bluelink.RegionEU, bluelink.RegionCA, bluelink.RegionCN, bluelink.RegionAU,
	}
	for _, region := range regions {
		t.Run(string(region), func(t *testing.T) {
			values, err := tempValues(region)
			require.NoError(t, err)
			for _, temp := range values {
				code, err := CelsiusToTempCode(region, temp)
				require.NoError(t, err)
				back, err := TempCodeToCelsius(region, code)
				require.NoError(t, err)
				assert.Equal(t, temp, back, "round trip for %g", temp)
			}
		})
	}
}

func TestTempCodeKnownValues(t *testing.T) {
	code, err := CelsiusToTempCode(bluelink.RegionEU, 14)
	require.NoError(t, err)
	assert.Equal(t, "00H", code)

	code, err = CelsiusToTempCode(bluelink.RegionEU, 21)
	require.NoError(t, err)
	assert.Equal(t, "0EH", code)

	code, err = CelsiusToTempCode(bluelink.RegionEU, 30)
	require.NoError(t, err)
	assert.Equal(t, "20H", code)
}

func TestTempCodeOutOfRange(t *testing.T) {
	tests := []struct {
		region bluelink.Region
		temp   float64
	}{
		{bluelink.RegionEU, 13.5},
		{bluelink.RegionEU, 30.5},
		{bluelink.RegionEU, 20.3},
		{bluelink.RegionAU, 16},
		{bluelink.RegionCA, 33},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%g", tt.region, tt.temp), func(t *testing.T) {
			_, err := CelsiusToTempCode(tt.region, tt.temp)
			assert.Error(t, err)
		})
	}

	_, err := TempCodeToCelsius(bluelink.RegionEU, "FFH")
	assert.Error(t, err)
	_, err = TempCodeToCelsius(bluelink.RegionEU, "xx")
	assert.Error(t, err)
	_, err = CelsiusToTempCode(bluelink.RegionUS, 21)
	assert.Error(t, err, "US has no temperature code table")
}
