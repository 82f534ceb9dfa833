// Package isolation securely forgets a session's security state at
// teardown: taint entries are dropped and the session's alert rate window is
// cleared, so a recycled session ID starts clean.
package isolation

import (
	"fmt"

	"github.com/agentgate/agentgate/internal/audit"
	"github.com/agentgate/agentgate/internal/taint"
)

// WipeResult reports what a wipe removed.
type WipeResult struct {
	SessionID      string
	EntriesRemoved int
	Events         []audit.Event
}

// Wiper removes per-session state. The monitor is optional.
type Wiper struct {
	registry *taint.Registry
	monitor  *audit.Monitor
}

// New creates a wiper. Pass a nil monitor when alerting is disabled.
func New(registry *taint.Registry, monitor *audit.Monitor) *Wiper {
	return &Wiper{registry: registry, monitor: monitor}
}

// Wipe removes all taint entries for the session and clears its alert
// window. Idempotent: wiping an unknown or already-wiped session succeeds
// with zero removals. Always emits a SessionWiped event.
func (w *Wiper) Wipe(sessionID string) WipeResult {
	removed := w.registry.WipeSession(sessionID)
	if w.monitor != nil {
		w.monitor.ClearSession(sessionID)
	}
	ev := audit.NewEvent(sessionID, audit.EventSessionWiped, audit.SeverityInfo, audit.ActionLogged,
		fmt.Sprintf("session wiped: %d taint entries removed", removed))
	return WipeResult{SessionID: sessionID, EntriesRemoved: removed, Events: []audit.Event{ev}}
}
