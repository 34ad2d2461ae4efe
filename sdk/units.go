package sdk

// Device register ranges for RF parameters.
const (
	MaxPowerUnits       = 255
	MaxSensitivityUnits = 128
)

// ToPowerUnits maps a 0-100 percentage onto the transmit power register as
// floor(255*percent/100). Out-of-range input is a caller error and is
// scaled with the same floor, not clamped.
func ToPowerUnits(percent int) int {
	return scaleFloor(MaxPowerUnits, percent)
}

// ToSensitivityUnits maps a 0-100 percentage onto the receiver sensitivity
// register as floor(128*percent/100).
func ToSensitivityUnits(percent int) int {
	return scaleFloor(MaxSensitivityUnits, percent)
}

// scaleFloor rounds toward negative infinity; Go's / truncates toward zero.
func scaleFloor(limit, percent int) int {
	n := limit * percent
	q := n / 100
	if n%100 != 0 && n < 0 {
		q--
	}
	return q
}
