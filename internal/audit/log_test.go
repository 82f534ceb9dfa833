package audit

import (
	"fmt"
	"testing"
)

func TestLogFIFOEviction(t *testing.T) {
	l := NewLog(3)
	for i := 0; i < 5; i++ {
		l.Record(NewEvent("s1", EventTaintRegistered, SeverityInfo, ActionLogged, fmt.Sprintf("event %d", i)))
	}
	if got := l.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}
	if got := l.TotalCount(); got != 5 {
		t.Fatalf("TotalCount() = %d, want 5", got)
	}
	entries := l.Entries()
	if entries[0].Details != "event 2" || entries[2].Details != "event 4" {
		t.Fatalf("unexpected retained entries: %q .. %q", entries[0].Details, entries[2].Details)
	}
}

func TestLogRecentNewestFirst(t *testing.T) {
	l := NewLog(10)
	for i := 0; i < 4; i++ {
		l.Record(NewEvent("s1", EventOutputRedacted, SeverityHigh, ActionRedacted, fmt.Sprintf("event %d", i)))
	}
	recent := l.Recent(2)
	if len(recent) != 2 {
		t.Fatalf("Recent(2) returned %d entries", len(recent))
	}
	if recent[0].Details != "event 3" || recent[1].Details != "event 2" {
		t.Fatalf("Recent order wrong: %q, %q", recent[0].Details, recent[1].Details)
	}
}

func TestLogBySessionAndSeverity(t *testing.T) {
	l := NewLog(10)
	l.Record(NewEvent("a", EventToolBlocked, SeverityHigh, ActionBlocked, "blocked bash"))
	l.Record(NewEvent("b", EventTaintRegistered, SeverityInfo, ActionLogged, "registered"))
	l.Record(NewEvent("a", EventInjectionDetected, SeverityCritical, ActionBlocked, "injection"))

	if got := len(l.BySession("a")); got != 2 {
		t.Fatalf("BySession(a) = %d entries, want 2", got)
	}
	if got := len(l.BySession("missing")); got != 0 {
		t.Fatalf("BySession(missing) = %d entries, want 0", got)
	}
	if got := len(l.BySeverity(SeverityCritical)); got != 1 {
		t.Fatalf("BySeverity(critical) = %d entries, want 1", got)
	}
}

func TestLogClearKeepsTotal(t *testing.T) {
	l := NewLog(10)
	l.Record(NewEvent("s1", EventSessionWiped, SeverityInfo, ActionLogged, "wiped"))
	l.Clear()
	if l.Len() != 0 {
		t.Fatalf("Len() = %d after Clear, want 0", l.Len())
	}
	if l.TotalCount() != 1 {
		t.Fatalf("TotalCount() = %d after Clear, want 1", l.TotalCount())
	}
}

func TestLogDefaultCapacity(t *testing.T) {
	l := NewLog(0)
	if l.max != DefaultLogCapacity {
		t.Fatalf("max = %d, want %d", l.max, DefaultLogCapacity)
	}
}
