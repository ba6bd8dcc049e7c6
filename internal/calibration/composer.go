package calibration

import (
	"fmt"
	"strings"
)

// Marker tokens wrapping every composed instruction so downstream
// consumers (the model and the audit surface) can identify and extract
// the latest calibration among ordinary conversation text.
const (
	BeginMarker = "[COMMUNICATION UPDATE]"
	EndMarker   = "[/COMMUNICATION UPDATE]"
)

// Section headers, emitted in fixed order.
const (
	preferenceHeader  = "Communication Preferences:"
	behavioralHeader  = "Behavioral Guidance:"
	applicationHeader = "Application Guidance:"
)

// Instruction is the immutable output of one calibration pass: the full
// marker-wrapped text plus the tier it was generated for. Created on every
// intensity change or profile (re)load, superseded wholesale by the next
// one; never merged.
type Instruction struct {
	Text string `json:"text"`
	Tier Tier   `json:"tier"`
}

// Compose assembles the three blocks into one instruction under the fixed
// template. Section order is load-bearing: the preference block comes
// first so the raw numbers are auditable independent of tier, and the
// application guidance comes last so the "how strictly to apply"
// directive is the most recent text seen by the model. Pure; the result
// is a new immutable value.
func Compose(prefBlock, guidanceBlock, appBlock string, tier Tier) Instruction {
	var b strings.Builder

	b.WriteString(BeginMarker)
	b.WriteString("\n")

	b.WriteString(preferenceHeader)
	b.WriteString("\n")
	b.WriteString(prefBlock)
	b.WriteString("\n\n")

	b.WriteString(behavioralHeader)
	b.WriteString("\n")
	if guidanceBlock != "" {
		b.WriteString(guidanceBlock)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(applicationHeader)
	b.WriteString("\n")
	b.WriteString(appBlock)
	b.WriteString("\n")

	b.WriteString(EndMarker)

	return Instruction{Text: b.String(), Tier: tier}
}

// Extract returns the latest marker-wrapped calibration found in text, or
// "" if none is present. Used by the audit surface to pull the current
// calibration out of mixed conversation text.
func Extract(text string) string {
	start := strings.LastIndex(text, BeginMarker)
	if start == -1 {
		return ""
	}
	end := strings.Index(text[start:], EndMarker)
	if end == -1 {
		return ""
	}
	return text[start : start+end+len(EndMarker)]
}

// Validate reports whether an instruction carries both markers and a
// known tier. Defends the session stores against truncated payloads.
func (in Instruction) Validate() error {
	if !strings.HasPrefix(in.Text, BeginMarker) || !strings.HasSuffix(in.Text, EndMarker) {
		return fmt.Errorf("instruction text is missing calibration markers")
	}
	switch in.Tier {
	case TierMinimal, TierModerate, TierStrict:
		return nil
	default:
		return fmt.Errorf("unknown application tier %q", in.Tier)
	}
}
