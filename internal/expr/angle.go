package expr

import (
	"fmt"
	"strings"
)

// AngleMode selects how trigonometric arguments are interpreted.
type AngleMode int

const (
	Radians AngleMode = iota
	Degrees
)

// String returns the indicator label shown next to the display.
func (m AngleMode) String() string {
	if m == Degrees {
		return "DEG"
	}
	return "RAD"
}

// Toggle returns the other mode.
func (m AngleMode) Toggle() AngleMode {
	if m == Degrees {
		return Radians
	}
	return Degrees
}

// ParseAngleMode accepts "RAD"/"DEG" (case-insensitive) and the long forms.
// An empty string yields Radians.
func ParseAngleMode(s string) (AngleMode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "RAD", "RADIANS":
		return Radians, nil
	case "DEG", "DEGREES":
		return Degrees, nil
	default:
		return Radians, fmt.Errorf("invalid angle mode: %s (must be RAD or DEG)", s)
	}
}
