// Package audit records security decisions made by the leakage-prevention
// pipeline: a bounded in-memory log, a publish-subscribe broker for
// asynchronous consumers, sliding-window anomaly alerting, and an optional
// tamper-evident SQLite sink.
package audit

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Severity ranks audit events for alerting. It is ordered (Info < Warning <
// High < Critical) and is deliberately separate from the sensitivity levels
// used by the classifier; the two scales are compared only within themselves.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// ParseSeverity parses a severity name as used in config files.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "info":
		return SeverityInfo, nil
	case "warning", "warn":
		return SeverityWarning, nil
	case "high":
		return SeverityHigh, nil
	case "critical":
		return SeverityCritical, nil
	default:
		return SeverityInfo, fmt.Errorf("unknown severity %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler for JSON and YAML output.
func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(b []byte) error {
	parsed, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// EventType identifies the kind of security event.
type EventType string

const (
	EventTaintRegistered   EventType = "taint_registered"
	EventOutputRedacted    EventType = "output_redacted"
	EventToolBlocked       EventType = "tool_blocked"
	EventInjectionDetected EventType = "injection_detected"
	EventNetworkBlocked    EventType = "network_blocked"
	EventSessionWiped      EventType = "session_wiped"
)

// Action is what the pipeline did in response to the event.
type Action string

const (
	ActionAllowed  Action = "allowed"
	ActionBlocked  Action = "blocked"
	ActionRedacted Action = "redacted"
	ActionLogged   Action = "logged"
)

// Event is a single audit record. Events are immutable once created; the
// details string never contains the sensitive value itself, only its type.
type Event struct {
	ID          string    `json:"id"`
	Timestamp   int64     `json:"timestamp"` // milliseconds since epoch
	SessionID   string    `json:"session_id"`
	Type        EventType `json:"type"`
	Severity    Severity  `json:"severity"`
	Action      Action    `json:"action"`
	Details     string    `json:"details"`
	ToolName    string    `json:"tool_name,omitempty"`
	TaintLabels []string  `json:"taint_labels,omitempty"`
}

// NewEvent creates an audit event stamped with a fresh ID and the current time.
func NewEvent(sessionID string, typ EventType, sev Severity, action Action, details string) Event {
	return Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UnixMilli(),
		SessionID: sessionID,
		Type:      typ,
		Severity:  sev,
		Action:    action,
		Details:   details,
	}
}

// WithTool returns a copy of the event tagged with the tool that triggered it.
func (e Event) WithTool(name string) Event {
	e.ToolName = name
	return e
}

// WithTaintLabels returns a copy of the event carrying the taint IDs involved,
// for correlating leak attempts of the same secret across the audit trail.
func (e Event) WithTaintLabels(labels []string) Event {
	e.TaintLabels = labels
	return e
}
