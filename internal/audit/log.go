package audit

import (
	"log/slog"
	"sync"
)

// Log is a bounded, thread-safe append log of audit events. When full, the
// oldest entry is evicted (FIFO) so the log never exceeds its capacity and
// retains insertion order.
//
// Recording is best-effort by design: a failure inside Record must never
// propagate to the caller, because the security decision that produced the
// event has already been made and must not be rolled back.
type Log struct {
	mu      sync.RWMutex
	entries []Event
	max     int
	total   uint64
}

// DefaultLogCapacity bounds per-process audit memory when no capacity is
// configured.
const DefaultLogCapacity = 10_000

// NewLog creates an audit log retaining at most max entries.
func NewLog(max int) *Log {
	if max <= 0 {
		max = DefaultLogCapacity
	}
	return &Log{entries: make([]Event, 0, max), max: max}
}

// Record appends an event, evicting the oldest entry at capacity. Any internal
// failure is logged and the entry dropped; the caller is never interrupted.
func (l *Log) Record(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("audit log record failed, entry dropped", "panic", r, "session_id", ev.SessionID)
		}
	}()

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) >= l.max {
		copy(l.entries, l.entries[1:])
		l.entries = l.entries[:len(l.entries)-1]
	}
	l.entries = append(l.entries, ev)
	l.total++
	recordedEvents.inc(ev.Severity)
}

// RecordAll appends events in order.
func (l *Log) RecordAll(evs []Event) {
	for _, ev := range evs {
		l.Record(ev)
	}
}

// Entries returns a copy of all retained entries in insertion order.
func (l *Log) Entries() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Event, len(l.entries))
	copy(out, l.entries)
	return out
}

// Recent returns up to limit entries, newest first.
func (l *Log) Recent(limit int) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if limit <= 0 || limit > len(l.entries) {
		limit = len(l.entries)
	}
	out := make([]Event, 0, limit)
	for i := len(l.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, l.entries[i])
	}
	return out
}

// BySession returns all retained entries for a session, in insertion order.
func (l *Log) BySession(sessionID string) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Event
	for _, e := range l.entries {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out
}

// BySeverity returns all retained entries at exactly the given severity.
func (l *Log) BySeverity(sev Severity) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Event
	for _, e := range l.entries {
		if e.Severity == sev {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of retained entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// TotalCount returns the number of events ever recorded, including evicted.
func (l *Log) TotalCount() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total
}

// Clear removes all retained entries. The total count is preserved.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = l.entries[:0]
}
