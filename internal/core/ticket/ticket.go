// Package ticket contains the pure data model shared by both trackers:
// records, open-ticket sets and the orphan set difference.
// Nothing in this package performs I/O.
package ticket

import (
	"fmt"
	"strings"
	"time"
)

// UpdateLayouts are the timestamp formats Tracker A uses for lastUpdateDate.
var UpdateLayouts = []string{
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
}

// QueryTimeLayout is the minute-precision layout JQL accepts for updated bounds.
const QueryTimeLayout = "2006-01-02 15:04"

// Record is an open ticket in Tracker A.
type Record struct {
	Number        string `json:"number"`
	ID            string `json:"id"`
	State         string `json:"state"`
	LastUpdateRaw string `json:"lastUpdateDate"`

	// LastUpdate is zero when LastUpdateRaw matches none of UpdateLayouts.
	LastUpdate time.Time `json:"-"`
}

// RemoteRecord is an issue in Tracker B.
type RemoteRecord struct {
	Key   string `json:"key"`
	State string `json:"state"`
}

// ParseUpdate parses a Tracker A timestamp. The bool is false when no
// known layout matches.
func ParseUpdate(raw string) (time.Time, bool) {
	for _, layout := range UpdateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// StateFilter decides whether a workflow state counts as closed.
// Comparison is case-insensitive and ignores surrounding whitespace.
type StateFilter struct {
	excluded map[string]struct{}
}

// NewStateFilter builds a filter from the configured excluded states.
func NewStateFilter(states []string) StateFilter {
	f := StateFilter{excluded: make(map[string]struct{}, len(states))}
	for _, s := range states {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			f.excluded[s] = struct{}{}
		}
	}
	return f
}

// Excluded reports whether state is one of the excluded states.
func (f StateFilter) Excluded(state string) bool {
	_, ok := f.excluded[strings.ToLower(strings.TrimSpace(state))]
	return ok
}

// OpenSet is an insertion-ordered map from business key to record.
// Keys are unique and never empty.
type OpenSet[T any] struct {
	keys   []string
	values map[string]T
}

// NewOpenSet returns an empty set.
func NewOpenSet[T any]() *OpenSet[T] {
	return &OpenSet[T]{values: make(map[string]T)}
}

// Add inserts a record under key. Empty and duplicate keys are rejected;
// on a duplicate the first record stays.
func (s *OpenSet[T]) Add(key string, v T) error {
	if key == "" {
		return fmt.Errorf("empty business key")
	}
	if _, exists := s.values[key]; exists {
		return fmt.Errorf("duplicate business key %q", key)
	}
	s.keys = append(s.keys, key)
	s.values[key] = v
	return nil
}

// Merge copies every record of other that is not already present.
// It returns the number of records added.
func (s *OpenSet[T]) Merge(other *OpenSet[T]) int {
	added := 0
	for _, k := range other.keys {
		if s.Add(k, other.values[k]) == nil {
			added++
		}
	}
	return added
}

// Get returns the record for key.
func (s *OpenSet[T]) Get(key string) (T, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Has reports whether key is present.
func (s *OpenSet[T]) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

// Len returns the number of records.
func (s *OpenSet[T]) Len() int {
	return len(s.keys)
}

// Keys returns the keys in insertion order.
func (s *OpenSet[T]) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Each calls fn for every record in insertion order.
func (s *OpenSet[T]) Each(fn func(key string, v T)) {
	for _, k := range s.keys {
		fn(k, s.values[k])
	}
}

// Open filters raw Tracker A records down to the open set. A record is
// admitted only with a number, an id, a last-update value and a state
// that is not excluded. Duplicate numbers keep the first occurrence.
func Open(records []Record, filter StateFilter) *OpenSet[Record] {
	set := NewOpenSet[Record]()
	for _, r := range records {
		r.State = strings.TrimSpace(r.State)
		if r.Number == "" || r.ID == "" || r.LastUpdateRaw == "" || r.State == "" {
			continue
		}
		if filter.Excluded(r.State) {
			continue
		}
		if t, ok := ParseUpdate(r.LastUpdateRaw); ok {
			r.LastUpdate = t
		}
		_ = set.Add(r.Number, r)
	}
	return set
}

// OpenRemote filters Tracker B issues down to the open set. Issues with
// an empty status are kept: the configured fields may omit status, and
// dropping them would turn live tickets into orphans.
func OpenRemote(records []RemoteRecord, filter StateFilter) *OpenSet[RemoteRecord] {
	set := NewOpenSet[RemoteRecord]()
	for _, r := range records {
		if r.Key == "" || filter.Excluded(r.State) {
			continue
		}
		_ = set.Add(r.Key, r)
	}
	return set
}

// Orphans returns the records of a whose key is absent from b, in the
// order of a. Keys compare case-sensitively.
func Orphans[B any](a *OpenSet[Record], b *OpenSet[B]) *OpenSet[Record] {
	out := NewOpenSet[Record]()
	a.Each(func(k string, v Record) {
		if !b.Has(k) {
			_ = out.Add(k, v)
		}
	})
	return out
}

// OldestUpdate returns the earliest parsed LastUpdate in the set.
// The bool is false when no record carries a parseable timestamp.
func OldestUpdate(set *OpenSet[Record]) (time.Time, bool) {
	var oldest time.Time
	found := false
	set.Each(func(_ string, r Record) {
		if r.LastUpdate.IsZero() {
			return
		}
		if !found || r.LastUpdate.Before(oldest) {
			oldest = r.LastUpdate
			found = true
		}
	})
	return oldest, found
}
