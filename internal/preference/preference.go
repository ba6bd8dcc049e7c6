// Package preference defines the 3-axis communication preference vector
// extracted from a user profile and the calibrator that turns it into
// human-auditable instruction blocks.
package preference

import (
	"errors"
	"fmt"
)

// Axis bounds and the neutral default substituted for missing axes.
const (
	MinAxisValue = 1
	MaxAxisValue = 5
	NeutralValue = 3
)

// ErrInvalidPreference indicates an axis value that is present in the
// profile but outside [1,5]. Out-of-range values are never clamped;
// clamping would mask a profile-loading bug upstream.
var ErrInvalidPreference = errors.New("preference value out of range")

// Vector holds the three raw preference axes. Each axis is an independent
// integer in [1,5] with anchored semantics; axes are never averaged or
// normalized against each other. A Vector is immutable once parsed.
type Vector struct {
	// InteractionStyle: 1 = step-by-step/methodical, 5 = direct/efficient.
	InteractionStyle int
	// DetailLevel: 1 = maximum/comprehensive, 5 = minimal/essential-only.
	DetailLevel int
	// RapportLevel: 1 = personal/warm, 5 = professional/formal.
	RapportLevel int
}

// Neutral returns the system-default vector with all axes at 3.
func Neutral() Vector {
	return Vector{
		InteractionStyle: NeutralValue,
		DetailLevel:      NeutralValue,
		RapportLevel:     NeutralValue,
	}
}

// RawValues carries the optional axis values as read from a profile.
// A nil field means the profile did not specify that axis.
type RawValues struct {
	InteractionStyle *int `yaml:"interaction_style"`
	DetailLevel      *int `yaml:"detail_level"`
	RapportLevel     *int `yaml:"rapport_level"`
}

// ParseVector validates raw profile values and builds a Vector.
// Missing axes default to the neutral value 3 without failing the whole
// calibration; a present value outside [1,5] returns ErrInvalidPreference.
func ParseVector(raw RawValues) (Vector, error) {
	v := Neutral()

	axes := []struct {
		name string
		src  *int
		dst  *int
	}{
		{"interaction_style", raw.InteractionStyle, &v.InteractionStyle},
		{"detail_level", raw.DetailLevel, &v.DetailLevel},
		{"rapport_level", raw.RapportLevel, &v.RapportLevel},
	}

	for _, a := range axes {
		if a.src == nil {
			continue
		}
		if *a.src < MinAxisValue || *a.src > MaxAxisValue {
			return Vector{}, fmt.Errorf("%w: %s=%d", ErrInvalidPreference, a.name, *a.src)
		}
		*a.dst = *a.src
	}

	return v, nil
}

// validate re-checks a constructed Vector. Used by Calibrate so that a
// hand-built Vector gets the same guarantees as a parsed one.
func (v Vector) validate() error {
	axes := []struct {
		name  string
		value int
	}{
		{"interaction_style", v.InteractionStyle},
		{"detail_level", v.DetailLevel},
		{"rapport_level", v.RapportLevel},
	}
	for _, a := range axes {
		if a.value < MinAxisValue || a.value > MaxAxisValue {
			return fmt.Errorf("%w: %s=%d", ErrInvalidPreference, a.name, a.value)
		}
	}
	return nil
}
