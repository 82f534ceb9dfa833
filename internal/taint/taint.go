// Package taint tracks concrete sensitive values per session so they can be
// recognized in later outputs even after re-encoding. Each registered value
// carries a set of pre-computed variants (base64, hex, percent-encoded and
// friends) that detection matches alongside the original.
package taint

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agentgate/agentgate/internal/config"
)

// Type identifies what kind of sensitive data an entry holds. Values beyond
// the predefined constants act as custom types.
type Type string

const (
	TypeCreditCard Type = "credit_card"
	TypeSSN        Type = "ssn"
	TypeEmail      Type = "email"
	TypePhone      Type = "phone"
	TypeAPIKey     Type = "api_key"
	TypePassword   Type = "password"
)

// Label is the human-readable form used in block reasons and audit details.
// It never includes the value itself.
func (t Type) Label() string { return strings.ToUpper(string(t)) }

// Entry is one tracked sensitive value. Immutable after registration.
type Entry struct {
	ID           string                  `json:"id"`
	SessionID    string                  `json:"session_id"`
	Original     string                  `json:"-"`
	Type         Type                    `json:"type"`
	Sensitivity  config.SensitivityLevel `json:"sensitivity"`
	Variants     []string                `json:"-"`
	RegisteredAt int64                   `json:"registered_at"` // milliseconds since epoch
}

// Match is one occurrence of a tracked value (or a variant of it) in text.
type Match struct {
	TaintID        string
	Type           Type
	MatchedVariant string
	Start          int
	End            int
}

// Registry holds all tracked values, indexed by taint ID and by session.
// Reads vastly outnumber writes (writes happen only at registration and
// session wipe); entries are fully built before insertion so readers never
// observe a partial entry.
type Registry struct {
	mu       sync.RWMutex
	entries  map[string]*Entry
	sessions map[string][]string
	variants []VariantFunc
}

// NewRegistry creates a registry using the default variant transforms.
func NewRegistry() *Registry {
	return NewRegistryWithVariants(DefaultVariants())
}

// NewRegistryWithVariants creates a registry with a custom transform list.
func NewRegistryWithVariants(fns []VariantFunc) *Registry {
	return &Registry{
		entries:  make(map[string]*Entry),
		sessions: make(map[string][]string),
		variants: fns,
	}
}

// Register tracks a new sensitive value and returns its taint ID. Empty
// values are rejected with an empty ID; there is nothing to track.
func (r *Registry) Register(sessionID, value string, typ Type, sensitivity config.SensitivityLevel) string {
	if value == "" {
		return ""
	}
	entry := &Entry{
		ID:           uuid.NewString(),
		SessionID:    sessionID,
		Original:     value,
		Type:         typ,
		Sensitivity:  sensitivity,
		Variants:     generateVariants(value, r.variants),
		RegisteredAt: time.Now().UnixMilli(),
	}

	r.mu.Lock()
	r.entries[entry.ID] = entry
	r.sessions[sessionID] = append(r.sessions[sessionID], entry.ID)
	r.mu.Unlock()

	return entry.ID
}

// Detect scans text for every occurrence of any tracked value or variant.
// Matches are ordered by position; at equal positions the longer match comes
// first, so callers redacting in order never clip a secret to a substring.
func (r *Registry) Detect(text string) []Match {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []Match
	for _, e := range r.entries {
		for _, v := range e.Variants {
			if v == "" {
				continue
			}
			start := 0
			for {
				i := strings.Index(text[start:], v)
				if i < 0 {
					break
				}
				pos := start + i
				matches = append(matches, Match{
					TaintID:        e.ID,
					Type:           e.Type,
					MatchedVariant: v,
					Start:          pos,
					End:            pos + len(v),
				})
				start = pos + 1
			}
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Start != matches[j].Start {
			return matches[i].Start < matches[j].Start
		}
		return matches[i].End > matches[j].End
	})
	return matches
}

// Contains reports whether text holds any tracked value or variant.
func (r *Registry) Contains(text string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		for _, v := range e.Variants {
			if v != "" && strings.Contains(text, v) {
				return true
			}
		}
	}
	return false
}

// Redact replaces every detected span according to the strategy. Overlapping
// matches are resolved longest-first so a substring variant never splits the
// redaction of a larger secret.
func (r *Registry) Redact(text string, strategy config.RedactionStrategy) string {
	matches := r.Detect(text)
	if len(matches) == 0 {
		return text
	}
	selected := SelectNonOverlapping(matches)

	// Replace right to left so earlier offsets stay valid.
	sort.Slice(selected, func(i, j int) bool { return selected[i].Start > selected[j].Start })
	out := text
	for _, m := range selected {
		out = out[:m.Start] + Replacement(out[m.Start:m.End], strategy) + out[m.End:]
	}
	return out
}

// SelectNonOverlapping keeps the longest match of each overlapping cluster.
// The input slice is re-sorted in place.
func SelectNonOverlapping(matches []Match) []Match {
	sort.Slice(matches, func(i, j int) bool {
		li, lj := matches[i].End-matches[i].Start, matches[j].End-matches[j].Start
		if li != lj {
			return li > lj
		}
		return matches[i].Start < matches[j].Start
	})
	var selected []Match
	for _, m := range matches {
		overlaps := false
		for _, s := range selected {
			if m.Start < s.End && m.End > s.Start {
				overlaps = true
				break
			}
		}
		if !overlaps {
			selected = append(selected, m)
		}
	}
	return selected
}

// Replacement renders the redaction token for one matched span.
func Replacement(matched string, strategy config.RedactionStrategy) string {
	switch strategy {
	case config.RedactMask:
		return strings.Repeat("*", len(matched))
	case config.RedactHash:
		return HashToken(matched)
	default:
		return "[REDACTED]"
	}
}

// HashToken renders the deterministic hash form of a matched span. Same
// input bytes always yield the same token, so repeated leaks of one secret
// correlate in the audit trail without revealing it.
func HashToken(matched string) string {
	h := fnv.New64a()
	h.Write([]byte(matched))
	return fmt.Sprintf("[HASH:%s]", fmt.Sprintf("%016x", h.Sum64())[:8])
}

// Entries returns a snapshot of all tracked entries.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, *e)
	}
	return out
}

// Get returns the entry for a taint ID.
func (r *Registry) Get(id string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Len returns the number of tracked entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// WipeSession removes every entry registered under the session and returns
// how many were removed. Safe to call concurrently with in-flight Detect or
// Redact calls, and safe to repeat.
func (r *Registry) WipeSession(sessionID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := r.sessions[sessionID]
	for _, id := range ids {
		delete(r.entries, id)
	}
	delete(r.sessions, sessionID)
	return len(ids)
}
