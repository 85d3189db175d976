// Package promptmacro expands the setvar/getvar/random template macros against
// a per-build variable store.
package promptmacro

import (
	"maps"
	"slices"
)

// Store is an insertion-ordered string map holding macro variables.
// A Store belongs to a single build and is not safe for concurrent use.
type Store struct {
	keys   []string
	values map[string]string
}

// NewStore creates a store seeded with a copy of seed. Seed keys are inserted
// in sorted order so iteration is deterministic.
func NewStore(seed map[string]string) *Store {
	s := &Store{values: make(map[string]string, len(seed))}
	for _, key := range slices.Sorted(maps.Keys(seed)) {
		s.Set(key, seed[key])
	}
	return s
}

// Get returns the value stored under name.
func (s *Store) Get(name string) (string, bool) {
	value, ok := s.values[name]
	return value, ok
}

// Set stores value under name, keeping the original position of existing keys.
func (s *Store) Set(name, value string) {
	if _, exists := s.values[name]; !exists {
		s.keys = append(s.keys, name)
	}
	s.values[name] = value
}

// Len returns the number of stored variables.
func (s *Store) Len() int {
	return len(s.keys)
}

// Keys returns the variable names in insertion order.
func (s *Store) Keys() []string {
	return slices.Clone(s.keys)
}

// Map serializes the store back into a plain map for persistence.
func (s *Store) Map() map[string]string {
	out := make(map[string]string, len(s.values))
	maps.Copy(out, s.values)
	return out
}
