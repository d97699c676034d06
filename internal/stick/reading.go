package stick

import "time"

const (
	// FullScale is the largest code of the 12-bit converter.
	FullScale = 4095
	// RefVolts is the converter reference; a full-scale code reads 3 V.
	RefVolts = 3.0

	codesPerPercent = FullScale / 100.0 // 40.95
)

// Percent rescales a raw 12-bit code to 0..100. Codes above FullScale are not
// clamped and produce values above 100.
func Percent(raw uint16) float64 {
	return float64(raw) / codesPerPercent
}

// Reading is one completed two-channel conversion.
type Reading struct {
	RawX uint16    `json:"raw_x"`
	RawY uint16    `json:"raw_y"`
	X    float64   `json:"x"`
	Y    float64   `json:"y"`
	Seq  uint64    `json:"seq"`
	At   time.Time `json:"at"`
}

// NewReading builds a Reading from raw codes.
func NewReading(rawX, rawY uint16) Reading {
	return Reading{
		RawX: rawX,
		RawY: rawY,
		X:    Percent(rawX),
		Y:    Percent(rawY),
	}
}

// CodeForPercent is the inverse of Percent, rounded to the nearest code and
// clamped to the converter range.
func CodeForPercent(p float64) uint16 {
	c := p*codesPerPercent + 0.5
	if c < 0 {
		return 0
	}
	if c > FullScale {
		return FullScale
	}
	return uint16(c)
}
