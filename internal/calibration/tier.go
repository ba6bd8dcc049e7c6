// Package calibration resolves the operator intensity dial into an
// application tier, composes the full calibration instruction from its
// three blocks, and holds the per-conversation instruction state.
package calibration

import (
	"errors"
	"fmt"
)

// Intensity dial bounds and tier cut points. The 30/70 thresholds are
// hand-picked configuration constants, not derived values.
const (
	MinIntensity = 0
	MaxIntensity = 100

	minimalUpperBound  = 30
	moderateUpperBound = 70
)

// ErrInvalidIntensity indicates an intensity value outside [0,100].
var ErrInvalidIntensity = errors.New("intensity value out of range")

// Tier is the discrete application level resolved from the intensity dial.
type Tier string

const (
	// TierMinimal covers intensity [0,30]: mostly standardized responses.
	TierMinimal Tier = "MINIMAL"
	// TierModerate covers intensity [31,70]: blend preferences with protocol.
	TierModerate Tier = "MODERATE"
	// TierStrict covers intensity [71,100]: strictly adhere to documented preferences.
	TierStrict Tier = "STRICT"
)

// Fixed, versioned application guidance templates per tier. Tier
// classification, not per-user data, governs this block.
var tierGuidance = map[Tier]string{
	TierMinimal: `- Maintain awareness of complete context
- Focus on protocol-based responses
- Use formal, standardized language
- Reference personal details only when directly relevant to procedures
- Prioritize clear procedural guidance`,
	TierModerate: `- Incorporate context naturally in responses
- Balance protocol with personalization
- Adapt language to user preferences
- Include relevant personal details to support understanding
- Maintain professional focus while showing awareness of user situation`,
	TierStrict: `- Fully utilize all relevant context
- Prioritize user's documented preferences
- Match communication style precisely
- Incorporate personal details to enhance relevance
- Maintain professional standards while maximizing personalization`,
}

// Resolve maps an intensity value to its application tier and the tier's
// fixed guidance block. Deterministic and total over [0,100]; boundaries
// are inclusive (30 is MINIMAL, 31 is MODERATE, 70 is MODERATE, 71 is
// STRICT). Values outside [0,100] return ErrInvalidIntensity.
func Resolve(intensity int) (Tier, string, error) {
	if intensity < MinIntensity || intensity > MaxIntensity {
		return "", "", fmt.Errorf("%w: %d", ErrInvalidIntensity, intensity)
	}

	var tier Tier
	switch {
	case intensity <= minimalUpperBound:
		tier = TierMinimal
	case intensity <= moderateUpperBound:
		tier = TierModerate
	default:
		tier = TierStrict
	}

	return tier, tierGuidance[tier], nil
}
