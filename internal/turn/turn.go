// Package turn builds the ordered, role-tagged message sequence sent to
// the model boundary on every outbound call and implements the
// primary/fallback send contract.
package turn

import (
	"github.com/dgmulei/obi-slv2/internal/calibration"
)

// Kind tags an entry's place in the sequence. The calibration entry is a
// distinct variant rather than a literal assistant message, so its
// special status lives in code instead of a string prefix; the model
// adapter decides how each kind maps onto the wire roles.
type Kind string

const (
	SystemTurn      Kind = "system"
	CalibrationTurn Kind = "calibration"
	ContextTurn     Kind = "context"
	UserTurn        Kind = "user"
)

// Entry is one role-tagged element of an outbound sequence.
type Entry struct {
	Kind    Kind
	Content string
}

// Sequence is the ordered entry list built fresh for every outbound call.
// It is never persisted as a unit; the storage layer records only
// user/assistant message pairs.
type Sequence []Entry

// Assemble produces the exact outbound order: base system instruction,
// current calibration instruction, the retrieved context snippets (if
// any), then the new user message. The order is a correctness contract:
// the base instruction tells the model to treat the most recent
// calibration block as authoritative, so length is always 3 + |snippets|
// and the relative order never varies.
func Assemble(base string, instr calibration.Instruction, snippets []string, userMessage string) Sequence {
	seq := make(Sequence, 0, 3+len(snippets))
	seq = append(seq, Entry{Kind: SystemTurn, Content: base})
	seq = append(seq, Entry{Kind: CalibrationTurn, Content: instr.Text})
	for _, s := range snippets {
		seq = append(seq, Entry{Kind: ContextTurn, Content: s})
	}
	seq = append(seq, Entry{Kind: UserTurn, Content: userMessage})
	return seq
}

// Shape summarizes a sequence for debugging and the audit surface.
type Shape struct {
	Length       int
	ContextCount int
}

// Describe returns the sequence's length and snippet count.
func (s Sequence) Describe() Shape {
	n := 0
	for _, e := range s {
		if e.Kind == ContextTurn {
			n++
		}
	}
	return Shape{Length: len(s), ContextCount: n}
}
