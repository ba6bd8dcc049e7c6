package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/dgmulei/obi-slv2/internal/calibration"
	"github.com/dgmulei/obi-slv2/internal/session"
)

func newRedisManager(t *testing.T) (session.Manager, *miniredis.Miniredis) {
	t.Helper()

	srv := miniredis.RunT(t)
	m, err := session.NewRedisManager(context.Background(), srv.Addr(), time.Hour, nil)
	if err != nil {
		t.Fatalf("NewRedisManager() unexpected error: %v", err)
	}
	return m, srv
}

func TestRedisManagerDefaults(t *testing.T) {
	t.Parallel()

	m, _ := newRedisManager(t)

	got, err := m.Current(context.Background(), "unknown-conversation")
	if err != nil {
		t.Fatalf("Current() unexpected error: %v", err)
	}
	if got.Text != calibration.Default().Text {
		t.Error("unknown conversation should get the default instruction")
	}
}

func TestRedisManagerRoundTrip(t *testing.T) {
	t.Parallel()

	m, _ := newRedisManager(t)
	ctx := context.Background()

	in := testInstruction(t, 45)
	if err := m.Replace(ctx, "conv-1", in); err != nil {
		t.Fatalf("Replace() unexpected error: %v", err)
	}

	got, err := m.Current(ctx, "conv-1")
	if err != nil {
		t.Fatalf("Current() unexpected error: %v", err)
	}
	if got.Text != in.Text || got.Tier != calibration.TierModerate {
		t.Errorf("round-tripped instruction differs: tier=%q", got.Tier)
	}
}

func TestRedisManagerEnd(t *testing.T) {
	t.Parallel()

	m, _ := newRedisManager(t)
	ctx := context.Background()

	if err := m.Replace(ctx, "conv-1", testInstruction(t, 90)); err != nil {
		t.Fatalf("Replace() unexpected error: %v", err)
	}
	if err := m.End(ctx, "conv-1"); err != nil {
		t.Fatalf("End() unexpected error: %v", err)
	}

	got, err := m.Current(ctx, "conv-1")
	if err != nil {
		t.Fatalf("Current() unexpected error: %v", err)
	}
	if got.Tier != calibration.TierMinimal {
		t.Error("ended conversation should fall back to the default instruction")
	}
}

func TestRedisManagerExpiry(t *testing.T) {
	t.Parallel()

	m, srv := newRedisManager(t)
	ctx := context.Background()

	if err := m.Replace(ctx, "conv-1", testInstruction(t, 90)); err != nil {
		t.Fatalf("Replace() unexpected error: %v", err)
	}

	srv.FastForward(2 * time.Hour)

	got, err := m.Current(ctx, "conv-1")
	if err != nil {
		t.Fatalf("Current() unexpected error: %v", err)
	}
	if got.Tier != calibration.TierMinimal {
		t.Error("expired session should fall back to the default instruction")
	}
}

func TestRedisManagerCorruptPayload(t *testing.T) {
	t.Parallel()

	m, srv := newRedisManager(t)
	ctx := context.Background()

	if err := srv.Set("obi:session:conv-1", "{not json"); err != nil {
		t.Fatalf("seeding corrupt payload failed: %v", err)
	}

	got, err := m.Current(ctx, "conv-1")
	if err != nil {
		t.Fatalf("Current() unexpected error: %v", err)
	}
	if got.Text != calibration.Default().Text {
		t.Error("corrupt session payload should fall back to the default instruction")
	}
}
