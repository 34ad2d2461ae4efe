package sdk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPowerUnitsBounds(t *testing.T) {
	assert.Equal(t, 0, ToPowerUnits(0))
	assert.Equal(t, 255, ToPowerUnits(100))
	assert.Equal(t, 204, ToPowerUnits(80))
	assert.Equal(t, 127, ToPowerUnits(50))
}

func TestSensitivityUnitsBounds(t *testing.T) {
	assert.Equal(t, 0, ToSensitivityUnits(0))
	assert.Equal(t, 128, ToSensitivityUnits(100))
	assert.Equal(t, 64, ToSensitivityUnits(50))
}

func TestUnitsMonotonic(t *testing.T) {
	prevPower, prevSens := -1, -1
	for p := 0; p <= 100; p++ {
		power, sens := ToPowerUnits(p), ToSensitivityUnits(p)
		assert.GreaterOrEqual(t, power, prevPower, "power at %d%%", p)
		assert.GreaterOrEqual(t, sens, prevSens, "sensitivity at %d%%", p)
		assert.LessOrEqual(t, power, MaxPowerUnits)
		assert.LessOrEqual(t, sens, MaxSensitivityUnits)
		prevPower, prevSens = power, sens
	}
}

// Out-of-range percentages are a caller contract violation and pass through
// unclamped, floored rather than truncated.
func TestUnitsDoNotClamp(t *testing.T) {
	assert.Equal(t, 306, ToPowerUnits(120))
	assert.Equal(t, 256, ToSensitivityUnits(200))
	assert.Equal(t, -3, ToPowerUnits(-1))
	assert.Equal(t, -2, ToSensitivityUnits(-1))
	assert.Equal(t, -255, ToPowerUnits(-100))
}

// The encoded register is uint16, so a negative unit wraps.
func TestNegativePowerWrapsInReaderConfig(t *testing.T) {
	cfg := BuildReaderConfig([]AntennaConfig{{Number: 1, PowerPercent: -1}})
	assert.Equal(t, uint16(65533), cfg.AntennaConfigurations[0].RFTransmitter.TransmitPower)
}
