// Package profile loads user profiles from a YAML file. A profile
// carries the user's identity details and their raw preference values;
// the preference package owns parsing and validation of the latter.
package profile

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dgmulei/obi-slv2/internal/preference"
)

// Profile describes one known user.
type Profile struct {
	ID          string               `yaml:"id"`
	FullName    string               `yaml:"full_name"`
	Description string               `yaml:"description"`
	Preferences preference.RawValues `yaml:"preferences"`
}

// Source resolves user IDs to profiles.
type Source interface {
	// Get returns the profile for userID, or false if none is known.
	Get(userID string) (*Profile, bool)
}

// fileSource holds profiles loaded once at startup. Lookups after load
// are read-only, so no locking is needed.
type fileSource struct {
	profiles map[string]*Profile
}

type profileFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// LoadFile reads profiles from a YAML file. A missing file yields an
// empty source: unknown users still get a neutral experience, so this
// is a warning rather than a startup failure.
func LoadFile(path string, logger *slog.Logger) (Source, error) {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "profile")

	src := &fileSource{profiles: make(map[string]*Profile)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn("Profile file not found, starting with no profiles", "path", path)
			return src, nil
		}
		return nil, fmt.Errorf("failed to read profile file %s: %w", path, err)
	}

	var file profileFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse profile file %s: %w", path, err)
	}

	for i := range file.Profiles {
		p := &file.Profiles[i]
		if p.ID == "" {
			return nil, fmt.Errorf("profile at index %d has no id", i)
		}
		if _, exists := src.profiles[p.ID]; exists {
			return nil, fmt.Errorf("duplicate profile id %q", p.ID)
		}
		// Reject bad preference values at load time rather than at the
		// first calibration request.
		if _, err := preference.ParseVector(p.Preferences); err != nil {
			return nil, fmt.Errorf("profile %q: %w", p.ID, err)
		}
		src.profiles[p.ID] = p
	}

	log.Info("Profiles loaded", "path", path, "count", len(src.profiles))
	return src, nil
}

// Get returns the profile for userID, or false if none is known.
func (s *fileSource) Get(userID string) (*Profile, bool) {
	p, ok := s.profiles[userID]
	return p, ok
}
