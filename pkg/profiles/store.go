// Package profiles loads the profile/relevance store and ranks the profiles
// behind the markers found in one image.
package profiles

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/menta2k/marker-annotator/pkg/types"
)

// NoExplanation is stored when a profile carries no relevance explanation.
const NoExplanation = "N/A"

// Store resolves marker IDs to profiles.
type Store interface {
	Lookup(id string) (types.Profile, bool)
}

// FileStore is an in-memory store backed by a JSON array of profiles.
type FileStore struct {
	order []string
	byID  map[string]types.Profile
	// Skipped counts entries dropped on load because they had no id.
	Skipped int
}

// NewFileStore builds a store from profiles, normalising each one. Entries
// without an id are skipped; a later duplicate id replaces an earlier one.
func NewFileStore(list []types.Profile) *FileStore {
	s := &FileStore{byID: make(map[string]types.Profile, len(list))}
	for _, p := range list {
		if p.ID == "" {
			s.Skipped++
			continue
		}
		if _, exists := s.byID[p.ID]; !exists {
			s.order = append(s.order, p.ID)
		}
		s.byID[p.ID] = normalize(p)
	}
	return s
}

// LoadFile reads a JSON array of profiles.
func LoadFile(path string) (*FileStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles: %w", err)
	}
	var list []types.Profile
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse profiles %s: %w", path, err)
	}
	return NewFileStore(list), nil
}

func normalize(p types.Profile) types.Profile {
	if p.Name == "" {
		p.Name = p.ID
	}
	if p.Explanation == "" {
		p.Explanation = NoExplanation
	}
	p.Relevance = min(1, max(0, p.Relevance))
	return p
}

// Lookup implements Store.
func (s *FileStore) Lookup(id string) (types.Profile, bool) {
	p, ok := s.byID[id]
	return p, ok
}

// All returns the profiles in load order.
func (s *FileStore) All() []types.Profile {
	out := make([]types.Profile, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Len returns the number of profiles.
func (s *FileStore) Len() int {
	return len(s.order)
}

// Save writes the profiles to path as an indented JSON array.
func (s *FileStore) Save(path string) error {
	return SaveFile(path, s.All())
}

// SaveFile writes profiles to path as an indented JSON array, creating the
// parent directory if needed.
func SaveFile(path string, list []types.Profile) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal profiles: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write profiles: %w", err)
	}
	return nil
}
