package store

import (
	"sort"
	"sync"
)

// SortDir is the direction of a sorted view.
type SortDir int

const (
	Asc SortDir = iota
	Desc
)

func (d SortDir) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

// AllGroups is the subscription key that selects every profile.
const AllGroups = "all"

// FilterState is the user's current view of a collection. Reloads never
// touch it.
type FilterState struct {
	SubID   string
	Search  string
	SortKey string
	SortDir SortDir
}

// Selection holds the selected ids and the filter of one list view. Setters
// are independent of each other.
type Selection struct {
	mu     sync.RWMutex
	ids    map[string]struct{}
	filter FilterState

	watchers
}

// NewSelection returns an empty selection showing every group sorted by
// sortKey ascending.
func NewSelection(sortKey string) *Selection {
	return &Selection{
		ids:    make(map[string]struct{}),
		filter: FilterState{SubID: AllGroups, SortKey: sortKey},
	}
}

func (s *Selection) update(fn func()) {
	s.mu.Lock()
	fn()
	s.mu.Unlock()
	s.notify()
}

// Toggle adds id when absent and removes it when present.
func (s *Selection) Toggle(id string) {
	s.update(func() {
		if _, ok := s.ids[id]; ok {
			delete(s.ids, id)
		} else {
			s.ids[id] = struct{}{}
		}
	})
}

func (s *Selection) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

// IDs returns the selected ids in sorted order.
func (s *Selection) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s *Selection) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// SelectAll replaces the selection with visible.
func (s *Selection) SelectAll(visible []string) {
	s.update(func() {
		s.ids = make(map[string]struct{}, len(visible))
		for _, id := range visible {
			s.ids[id] = struct{}{}
		}
	})
}

// ToggleAll clears the selection when every visible id is already selected
// and otherwise selects exactly the visible ids.
func (s *Selection) ToggleAll(visible []string) {
	s.update(func() {
		all := len(visible) > 0
		for _, id := range visible {
			if _, ok := s.ids[id]; !ok {
				all = false
				break
			}
		}
		s.ids = make(map[string]struct{}, len(visible))
		if all {
			return
		}
		for _, id := range visible {
			s.ids[id] = struct{}{}
		}
	})
}

func (s *Selection) Clear() {
	s.update(func() { s.ids = make(map[string]struct{}) })
}

// Remove drops ids from the selection.
func (s *Selection) Remove(ids ...string) {
	s.update(func() {
		for _, id := range ids {
			delete(s.ids, id)
		}
	})
}

// Retain keeps only the selected ids that are in surviving.
func (s *Selection) Retain(surviving []string) {
	keep := make(map[string]struct{}, len(surviving))
	for _, id := range surviving {
		keep[id] = struct{}{}
	}
	s.update(func() {
		for id := range s.ids {
			if _, ok := keep[id]; !ok {
				delete(s.ids, id)
			}
		}
	})
}

func (s *Selection) SetSubID(subID string) {
	s.update(func() { s.filter.SubID = subID })
}

func (s *Selection) SetSearch(q string) {
	s.update(func() { s.filter.Search = q })
}

// SetSort sorts by key. Choosing the current key again flips the direction;
// a new key starts ascending.
func (s *Selection) SetSort(key string) {
	s.update(func() {
		if s.filter.SortKey == key {
			if s.filter.SortDir == Asc {
				s.filter.SortDir = Desc
			} else {
				s.filter.SortDir = Asc
			}
			return
		}
		s.filter.SortKey = key
		s.filter.SortDir = Asc
	})
}

func (s *Selection) SetFilter(f FilterState) {
	s.update(func() { s.filter = f })
}

func (s *Selection) Filter() FilterState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}
