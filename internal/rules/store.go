// Package rules holds the operator's ordered watch, label and suspect rules.
package rules

import (
	"fmt"
	"slices"
	"sync"

	"firestige.xyz/bytescope/internal/core"
)

// Kind names one of the three rule lists.
type Kind string

const (
	KindWatch   Kind = "watch"
	KindLabel   Kind = "label"
	KindSuspect Kind = "suspect"
)

// Snapshot is an immutable copy of every rule list at one version.
type Snapshot struct {
	Version  uint64
	Watches  []core.WatchItem
	Labels   []core.LabelRule
	Suspects []core.SuspectRule
}

// Store keeps the rule lists in declaration order. Every edit replaces a
// whole record in place so order survives edits.
type Store struct {
	mu       sync.RWMutex
	version  uint64
	watches  []core.WatchItem
	labels   []core.LabelRule
	suspects []core.SuspectRule
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Snapshot returns copies of the current lists.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Version:  s.version,
		Watches:  slices.Clone(s.watches),
		Labels:   slices.Clone(s.labels),
		Suspects: slices.Clone(s.suspects),
	}
}

// Version increases on every successful mutation.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Counts returns the length of each list.
func (s *Store) Counts() map[Kind]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[Kind]int{
		KindWatch:   len(s.watches),
		KindLabel:   len(s.labels),
		KindSuspect: len(s.suspects),
	}
}

// AddWatch appends a watch and returns its index.
func (s *Store) AddWatch(w core.WatchItem) (int, error) {
	if err := w.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watches = append(s.watches, w)
	s.version++
	return len(s.watches) - 1, nil
}

// UpdateWatch replaces the watch at index.
func (s *Store) UpdateWatch(index int, w core.WatchItem) error {
	if err := w.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := checkIndex(KindWatch, index, len(s.watches)); err != nil {
		return err
	}
	s.watches[index] = w
	s.version++
	return nil
}

// DeleteWatch removes the watch at index.
func (s *Store) DeleteWatch(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := checkIndex(KindWatch, index, len(s.watches)); err != nil {
		return err
	}
	s.watches = slices.Delete(s.watches, index, index+1)
	s.version++
	return nil
}

// AddLabel appends a label rule and returns its index.
func (s *Store) AddLabel(r core.LabelRule) (int, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.labels = append(s.labels, r)
	s.version++
	return len(s.labels) - 1, nil
}

// UpdateLabel replaces the label rule at index, keeping its position.
func (s *Store) UpdateLabel(index int, r core.LabelRule) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := checkIndex(KindLabel, index, len(s.labels)); err != nil {
		return err
	}
	s.labels[index] = r
	s.version++
	return nil
}

// DeleteLabel removes the label rule at index.
func (s *Store) DeleteLabel(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := checkIndex(KindLabel, index, len(s.labels)); err != nil {
		return err
	}
	s.labels = slices.Delete(s.labels, index, index+1)
	s.version++
	return nil
}

// AddSuspect appends a suspect rule and returns its index.
func (s *Store) AddSuspect(r core.SuspectRule) (int, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suspects = append(s.suspects, r)
	s.version++
	return len(s.suspects) - 1, nil
}

// UpdateSuspect replaces the suspect rule at index.
func (s *Store) UpdateSuspect(index int, r core.SuspectRule) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := checkIndex(KindSuspect, index, len(s.suspects)); err != nil {
		return err
	}
	s.suspects[index] = r
	s.version++
	return nil
}

// DeleteSuspect removes the suspect rule at index.
func (s *Store) DeleteSuspect(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := checkIndex(KindSuspect, index, len(s.suspects)); err != nil {
		return err
	}
	s.suspects = slices.Delete(s.suspects, index, index+1)
	s.version++
	return nil
}

func checkIndex(kind Kind, index, n int) error {
	if index < 0 || index >= n {
		return fmt.Errorf("%w: %s #%d (have %d)", core.ErrRuleNotFound, kind, index, n)
	}
	return nil
}
