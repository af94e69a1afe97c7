// Package resolve maps free-text facility names, such as those returned by
// the chat backend, onto canonical facility records.
package resolve

import (
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/facility"
)

// Match methods.
const (
	MethodExact     = "exact"
	MethodSubstring = "substring"
)

// Match records how one input name resolved.
type Match struct {
	Input  string `json:"input"`
	ID     string `json:"id"`
	Name   string `json:"name"`
	Method string `json:"method"`
}

// HighlightSet is an insertion-ordered set of facility keys.
type HighlightSet struct {
	ids     []string
	members map[string]struct{}
}

// NewHighlightSet returns a set holding ids in order, without duplicates.
func NewHighlightSet(ids ...string) *HighlightSet {
	h := &HighlightSet{members: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		h.Add(id)
	}
	return h
}

// Add inserts id unless it is empty or already present.
func (h *HighlightSet) Add(id string) {
	if id == "" {
		return
	}
	if _, ok := h.members[id]; ok {
		return
	}
	h.members[id] = struct{}{}
	h.ids = append(h.ids, id)
}

// Has reports whether id is in the set.
func (h *HighlightSet) Has(id string) bool {
	if h == nil {
		return false
	}
	_, ok := h.members[id]
	return ok
}

// Len returns the number of ids.
func (h *HighlightSet) Len() int {
	if h == nil {
		return 0
	}
	return len(h.ids)
}

// IDs returns the ids in the order they were first added.
func (h *HighlightSet) IDs() []string {
	if h == nil {
		return []string{}
	}
	out := make([]string, len(h.ids))
	copy(out, h.ids)
	return out
}

// Set returns a copy of the membership map.
func (h *HighlightSet) Set() map[string]struct{} {
	out := make(map[string]struct{}, h.Len())
	if h == nil {
		return out
	}
	for id := range h.members {
		out[id] = struct{}{}
	}
	return out
}

// MarshalJSON encodes the set as an ordered array.
func (h *HighlightSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.IDs())
}

// Resolve matches each name against records: first an exact match on the
// normalised name, then the first record, in list order, whose normalised
// name contains the input or is contained in it. Names without a match are
// dropped. Records with empty names never match.
func Resolve(names []string, records []facility.Record) []Match {
	canon := make([]string, len(records))
	for i, r := range records {
		canon[i] = Normalize(r.Name)
	}

	var out []Match
	unmatched := 0
	for _, name := range names {
		key := Normalize(name)
		if key == "" {
			continue
		}

		idx, method := -1, ""
		for i, c := range canon {
			if c != "" && c == key {
				idx, method = i, MethodExact
				break
			}
		}
		if idx < 0 {
			for i, c := range canon {
				if c != "" && (strings.Contains(c, key) || strings.Contains(key, c)) {
					idx, method = i, MethodSubstring
					break
				}
			}
		}
		if idx < 0 {
			unmatched++
			zap.L().Debug("resolve: no facility for name", zap.String("name", name))
			continue
		}
		out = append(out, Match{Input: name, ID: records[idx].Key(), Name: records[idx].Name, Method: method})
	}

	zap.L().Debug("resolve: names resolved",
		zap.Int("names", len(names)),
		zap.Int("matched", len(out)),
		zap.Int("unmatched", unmatched),
	)
	return out
}

// ResolveHighlightedFacilities returns the set of facility keys the names
// resolve to, along with the per-name matches behind it. Duplicate keys
// collapse in the set; matches is never nil.
func ResolveHighlightedFacilities(names []string, records []facility.Record) (*HighlightSet, []Match) {
	matches := Resolve(names, records)
	if matches == nil {
		matches = []Match{}
	}
	set := NewHighlightSet()
	for _, m := range matches {
		set.Add(m.ID)
	}
	return set, matches
}
