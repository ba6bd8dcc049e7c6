// Package session keeps the current calibration instruction for each
// active conversation. Two backends exist: an in-process map for single
// instance deployments, and Redis for shared or restart-surviving
// state. Both return the default instruction for unknown conversations.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dgmulei/obi-slv2/internal/calibration"
)

// Manager stores per-conversation calibration state.
type Manager interface {
	// Current returns the conversation's active instruction, or the
	// default instruction if none has been set.
	Current(ctx context.Context, conversationID string) (calibration.Instruction, error)

	// Replace installs a new instruction, discarding any previous one.
	Replace(ctx context.Context, conversationID string, in calibration.Instruction) error

	// End discards the conversation's state.
	End(ctx context.Context, conversationID string) error
}

// MemoryManager keeps calibration state in process memory.
type MemoryManager struct {
	mu     sync.RWMutex
	states map[string]*calibration.State
	logger *slog.Logger
}

// NewMemoryManager creates an in-process session manager.
func NewMemoryManager(logger *slog.Logger) *MemoryManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryManager{
		states: make(map[string]*calibration.State),
		logger: logger.With("component", "session", "backend", "memory"),
	}
}

func (m *MemoryManager) Current(_ context.Context, conversationID string) (calibration.Instruction, error) {
	m.mu.RLock()
	state, ok := m.states[conversationID]
	m.mu.RUnlock()
	if !ok {
		return calibration.Default(), nil
	}
	return state.Current(), nil
}

func (m *MemoryManager) Replace(ctx context.Context, conversationID string, in calibration.Instruction) error {
	if err := in.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	state, ok := m.states[conversationID]
	if !ok {
		state = calibration.NewState()
		m.states[conversationID] = state
	}
	m.mu.Unlock()

	state.Replace(in)
	m.logger.DebugContext(ctx, "Calibration instruction replaced",
		"conversation_id", conversationID, "tier", in.Tier)
	return nil
}

func (m *MemoryManager) End(ctx context.Context, conversationID string) error {
	m.mu.Lock()
	delete(m.states, conversationID)
	m.mu.Unlock()

	m.logger.DebugContext(ctx, "Session ended", "conversation_id", conversationID)
	return nil
}

// PruneIdle drops sessions not accessed within maxIdle and returns the
// number removed. The scheduler runs this periodically; Redis sessions
// expire via TTL instead.
func (m *MemoryManager) PruneIdle(ctx context.Context, maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	m.mu.Lock()
	pruned := 0
	for id, state := range m.states {
		if state.LastAccess().Before(cutoff) {
			delete(m.states, id)
			pruned++
		}
	}
	m.mu.Unlock()

	if pruned > 0 {
		m.logger.InfoContext(ctx, "Pruned idle sessions", "count", pruned, "max_idle", maxIdle)
	}
	return pruned
}
