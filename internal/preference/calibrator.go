package preference

import (
	"fmt"
	"strings"
)

// Label classifies a raw axis value. Thresholds are symmetric and
// identical across axes: high for >=4, low for <=2, balanced otherwise.
type Label string

const (
	LabelLow      Label = "low"
	LabelBalanced Label = "balanced"
	LabelHigh     Label = "high"
)

// Classify returns the categorical label for a raw axis value.
func Classify(value int) Label {
	switch {
	case value >= 4:
		return LabelHigh
	case value <= 2:
		return LabelLow
	default:
		return LabelBalanced
	}
}

// Behavioral guidance lines per (axis, label). Balanced axes contribute
// no lines: balanced means no strong directive is needed.
var guidanceTable = map[string]map[Label][]string{
	"Interaction Style": {
		LabelLow: {
			"Provide methodical, step-by-step guidance",
			"Break down complex topics into manageable steps",
		},
		LabelHigh: {
			"Be efficient and direct",
			"Focus on key points without unnecessary elaboration",
		},
	},
	"Detail Level": {
		LabelLow: {
			"Provide comprehensive explanations",
			"Include relevant background information",
		},
		LabelHigh: {
			"Keep details minimal and focused",
			"Include only essential information",
		},
	},
	"Rapport Level": {
		LabelLow: {
			"Maintain a warm, personal tone",
			"Show empathy and acknowledge personal context",
		},
		LabelHigh: {
			"Keep tone strictly professional",
			"Focus on facts and procedures",
		},
	},
}

// axisOrder fixes the emission order of axes in both blocks.
var axisOrder = []string{"Interaction Style", "Detail Level", "Rapport Level"}

// Calibrate maps a preference vector to its preference block (one line per
// axis with the raw integer and its label) and behavioral guidance block
// (fixed lookup lines for high/low axes). Pure: no side effects, no
// blending with defaults, no information loss. Returns ErrInvalidPreference
// if any axis is outside [1,5].
func Calibrate(v Vector) (prefBlock, guidanceBlock string, err error) {
	if err := v.validate(); err != nil {
		return "", "", err
	}

	values := map[string]int{
		"Interaction Style": v.InteractionStyle,
		"Detail Level":      v.DetailLevel,
		"Rapport Level":     v.RapportLevel,
	}

	var pref strings.Builder
	var guidance []string
	for _, axis := range axisOrder {
		value := values[axis]
		label := Classify(value)
		fmt.Fprintf(&pref, "- %s: %d (%s)\n", axis, value, label)
		guidance = append(guidance, guidanceTable[axis][label]...)
	}

	var gb strings.Builder
	for _, line := range guidance {
		fmt.Fprintf(&gb, "- %s\n", line)
	}

	return strings.TrimRight(pref.String(), "\n"), strings.TrimRight(gb.String(), "\n"), nil
}
