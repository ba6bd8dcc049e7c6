// Package turn_test tests sequence assembly and the primary/fallback
// send contract.
package turn_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dgmulei/obi-slv2/internal/calibration"
	"github.com/dgmulei/obi-slv2/internal/turn"
)

func TestAssemble(t *testing.T) {
	t.Parallel()

	instr := calibration.Default()

	tests := []struct {
		name     string
		snippets []string
	}{
		{"no snippets", nil},
		{"one snippet", []string{"renewal fees are posted online"}},
		{"three snippets", []string{"a", "b", "c"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			seq := turn.Assemble("base instruction", instr, tc.snippets, "hello")

			wantLen := 3 + len(tc.snippets)
			if len(seq) != wantLen {
				t.Fatalf("sequence length = %d, want %d", len(seq), wantLen)
			}

			if seq[0].Kind != turn.SystemTurn || seq[0].Content != "base instruction" {
				t.Errorf("entry 0 = %+v, want system turn with base instruction", seq[0])
			}
			if seq[1].Kind != turn.CalibrationTurn || seq[1].Content != instr.Text {
				t.Errorf("entry 1 = %+v, want calibration turn", seq[1])
			}
			for i, s := range tc.snippets {
				e := seq[2+i]
				if e.Kind != turn.ContextTurn || e.Content != s {
					t.Errorf("entry %d = %+v, want context turn %q", 2+i, e, s)
				}
			}
			last := seq[len(seq)-1]
			if last.Kind != turn.UserTurn || last.Content != "hello" {
				t.Errorf("last entry = %+v, want user turn", last)
			}

			shape := seq.Describe()
			if shape.Length != wantLen || shape.ContextCount != len(tc.snippets) {
				t.Errorf("Describe() = %+v, want length %d and %d contexts", shape, wantLen, len(tc.snippets))
			}
		})
	}
}

// fakeGenerator scripts per-model failures and records calls.
type fakeGenerator struct {
	failures map[string]error
	calls    []generateCall
}

type generateCall struct {
	model string
	seq   turn.Sequence
}

func (f *fakeGenerator) Generate(_ context.Context, model string, seq turn.Sequence) (string, error) {
	f.calls = append(f.calls, generateCall{model: model, seq: seq})
	if err := f.failures[model]; err != nil {
		return "", err
	}
	return "reply from " + model, nil
}

func TestSendPrimarySucceeds(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{}
	a := turn.NewAssembler(gen, "primary-model", "fallback-model", nil)

	seq := turn.Assemble("base", calibration.Default(), nil, "hi")
	reply, err := a.Send(context.Background(), seq)
	if err != nil {
		t.Fatalf("Send() unexpected error: %v", err)
	}
	if reply != "reply from primary-model" {
		t.Errorf("reply = %q", reply)
	}
	if len(gen.calls) != 1 {
		t.Errorf("generator called %d times, want 1", len(gen.calls))
	}
}

func TestSendOverloadFallsBackOnce(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{failures: map[string]error{
		"primary-model": fmt.Errorf("%w: code 503", turn.ErrOverloaded),
	}}
	a := turn.NewAssembler(gen, "primary-model", "fallback-model", nil)

	seq := turn.Assemble("base", calibration.Default(), []string{"snippet"}, "hi")
	reply, err := a.Send(context.Background(), seq)
	if err != nil {
		t.Fatalf("Send() unexpected error: %v", err)
	}
	if reply != "reply from fallback-model" {
		t.Errorf("reply = %q", reply)
	}

	if len(gen.calls) != 2 {
		t.Fatalf("generator called %d times, want 2", len(gen.calls))
	}
	if gen.calls[0].model != "primary-model" || gen.calls[1].model != "fallback-model" {
		t.Errorf("call order = %s then %s", gen.calls[0].model, gen.calls[1].model)
	}

	// The fallback must see the identical sequence, not a reassembled one.
	if len(gen.calls[0].seq) != len(gen.calls[1].seq) {
		t.Fatal("fallback sequence length differs from primary")
	}
	for i := range gen.calls[0].seq {
		if gen.calls[0].seq[i] != gen.calls[1].seq[i] {
			t.Errorf("fallback sequence entry %d differs from primary", i)
		}
	}
}

func TestSendDoubleOverloadFails(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{failures: map[string]error{
		"primary-model":  fmt.Errorf("%w: code 503", turn.ErrOverloaded),
		"fallback-model": fmt.Errorf("%w: code 429", turn.ErrOverloaded),
	}}
	a := turn.NewAssembler(gen, "primary-model", "fallback-model", nil)

	_, err := a.Send(context.Background(), turn.Assemble("base", calibration.Default(), nil, "hi"))
	if !errors.Is(err, turn.ErrGenerationFailed) {
		t.Fatalf("Send() error = %v, want ErrGenerationFailed", err)
	}
	if len(gen.calls) != 2 {
		t.Errorf("generator called %d times, want exactly 2 (no further retries)", len(gen.calls))
	}
}

func TestSendNonOverloadDoesNotRetry(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{failures: map[string]error{
		"primary-model": errors.New("invalid request"),
	}}
	a := turn.NewAssembler(gen, "primary-model", "fallback-model", nil)

	_, err := a.Send(context.Background(), turn.Assemble("base", calibration.Default(), nil, "hi"))
	if !errors.Is(err, turn.ErrGenerationFailed) {
		t.Fatalf("Send() error = %v, want ErrGenerationFailed", err)
	}
	if len(gen.calls) != 1 {
		t.Errorf("generator called %d times, want 1 (no fallback on non-overload)", len(gen.calls))
	}
}
