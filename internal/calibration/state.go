package calibration

import (
	"sync"
	"time"

	"github.com/dgmulei/obi-slv2/internal/preference"
)

// State holds at most one current instruction for a single conversation.
// It is owned exclusively by that conversation; intensity updates against
// one conversation must be externally serialized, but distinct
// conversations share nothing. The mutex only guarantees read-after-write
// between an update and the next outbound turn that observes it.
type State struct {
	mu         sync.RWMutex
	current    *Instruction
	lastAccess time.Time
}

// NewState creates an empty per-conversation state. Current on a fresh
// state returns the system default instruction, so a conversation is
// never without guidance.
func NewState() *State {
	return &State{lastAccess: time.Now().UTC()}
}

// Replace installs a new instruction, discarding the previous one
// entirely. No archiving, no diffing: most recent wins.
func (s *State) Replace(in Instruction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &in
	s.lastAccess = time.Now().UTC()
}

// Current returns the most recently installed instruction, or the system
// default (MINIMAL tier applied to the neutral vector) if Replace has
// never been called.
func (s *State) Current() Instruction {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccess = time.Now().UTC()
	if s.current == nil {
		return Default()
	}
	return *s.current
}

// LastAccess reports when the state was last read or replaced. Used by
// the idle-session sweeper.
func (s *State) LastAccess() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastAccess
}

// Default builds the system-default instruction: MINIMAL tier applied to
// the neutral preference vector (all axes 3). The neutral vector is valid
// by construction, so the error paths are unreachable here.
func Default() Instruction {
	prefBlock, guidanceBlock, err := preference.Calibrate(preference.Neutral())
	if err != nil {
		panic("calibration: neutral vector failed to calibrate: " + err.Error())
	}
	tier, appBlock, err := Resolve(MinIntensity)
	if err != nil {
		panic("calibration: minimum intensity failed to resolve: " + err.Error())
	}
	return Compose(prefBlock, guidanceBlock, appBlock, tier)
}
