// Package session_test tests both session backends.
package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/dgmulei/obi-slv2/internal/calibration"
	"github.com/dgmulei/obi-slv2/internal/preference"
	"github.com/dgmulei/obi-slv2/internal/session"
)

func testInstruction(t *testing.T, intensity int) calibration.Instruction {
	t.Helper()

	prefBlock, guidanceBlock, err := preference.Calibrate(preference.Neutral())
	if err != nil {
		t.Fatalf("Calibrate() unexpected error: %v", err)
	}
	tier, appBlock, err := calibration.Resolve(intensity)
	if err != nil {
		t.Fatalf("Resolve() unexpected error: %v", err)
	}
	return calibration.Compose(prefBlock, guidanceBlock, appBlock, tier)
}

func TestMemoryManagerDefaults(t *testing.T) {
	t.Parallel()

	m := session.NewMemoryManager(nil)
	ctx := context.Background()

	got, err := m.Current(ctx, "unknown-conversation")
	if err != nil {
		t.Fatalf("Current() unexpected error: %v", err)
	}
	if got.Text != calibration.Default().Text {
		t.Error("unknown conversation should get the default instruction")
	}
}

func TestMemoryManagerReplaceAndEnd(t *testing.T) {
	t.Parallel()

	m := session.NewMemoryManager(nil)
	ctx := context.Background()

	in := testInstruction(t, 80)
	if err := m.Replace(ctx, "conv-1", in); err != nil {
		t.Fatalf("Replace() unexpected error: %v", err)
	}

	got, err := m.Current(ctx, "conv-1")
	if err != nil {
		t.Fatalf("Current() unexpected error: %v", err)
	}
	if got.Tier != calibration.TierStrict {
		t.Errorf("stored tier = %q, want STRICT", got.Tier)
	}

	// Other conversations are unaffected.
	other, err := m.Current(ctx, "conv-2")
	if err != nil {
		t.Fatalf("Current() unexpected error: %v", err)
	}
	if other.Tier != calibration.TierMinimal {
		t.Errorf("unrelated conversation tier = %q, want default MINIMAL", other.Tier)
	}

	if err := m.End(ctx, "conv-1"); err != nil {
		t.Fatalf("End() unexpected error: %v", err)
	}
	got, err = m.Current(ctx, "conv-1")
	if err != nil {
		t.Fatalf("Current() unexpected error: %v", err)
	}
	if got.Tier != calibration.TierMinimal {
		t.Error("ended conversation should fall back to the default instruction")
	}
}

func TestMemoryManagerRejectsInvalidInstruction(t *testing.T) {
	t.Parallel()

	m := session.NewMemoryManager(nil)
	bad := calibration.Instruction{Text: "not wrapped", Tier: calibration.TierModerate}
	if err := m.Replace(context.Background(), "conv-1", bad); err == nil {
		t.Error("Replace() accepted an instruction without markers")
	}
}

func TestMemoryManagerPruneIdle(t *testing.T) {
	t.Parallel()

	m := session.NewMemoryManager(nil)
	ctx := context.Background()

	if err := m.Replace(ctx, "conv-1", testInstruction(t, 50)); err != nil {
		t.Fatalf("Replace() unexpected error: %v", err)
	}

	// Nothing is older than an hour yet.
	if pruned := m.PruneIdle(ctx, time.Hour); pruned != 0 {
		t.Errorf("PruneIdle(1h) removed %d sessions, want 0", pruned)
	}

	// With a zero max idle everything qualifies.
	if pruned := m.PruneIdle(ctx, 0); pruned != 1 {
		t.Errorf("PruneIdle(0) removed %d sessions, want 1", pruned)
	}

	got, err := m.Current(ctx, "conv-1")
	if err != nil {
		t.Fatalf("Current() unexpected error: %v", err)
	}
	if got.Tier != calibration.TierMinimal {
		t.Error("pruned conversation should fall back to the default instruction")
	}
}
