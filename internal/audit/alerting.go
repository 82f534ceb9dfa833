package audit

import (
	"fmt"
	"sync"
	"time"
)

// AlertConfig controls the alert monitor.
type AlertConfig struct {
	// Enabled turns the monitor on. Nil means enabled, like the security
	// feature toggles; only an explicit false disables it.
	Enabled *bool `yaml:"enabled"`

	// SessionRateLimit is the max events per session within the sliding
	// window before a RateLimitExceeded alert is raised.
	SessionRateLimit int `yaml:"session_rate_limit"`

	// WindowSeconds is the sliding window duration.
	WindowSeconds int `yaml:"window_seconds"`

	// MinSeverity: events below this are ignored entirely. Nil means Warning.
	MinSeverity *Severity `yaml:"min_severity"`
}

// IsEnabled reports whether the monitor runs. Absent means enabled.
func (c AlertConfig) IsEnabled() bool { return c.Enabled == nil || *c.Enabled }

// Threshold resolves the minimum severity, defaulting to Warning.
func (c AlertConfig) Threshold() Severity {
	if c.MinSeverity == nil {
		return SeverityWarning
	}
	return *c.MinSeverity
}

// DefaultAlertConfig returns the monitor defaults: enabled, Warning
// threshold, 10 events per 60-second window.
func DefaultAlertConfig() AlertConfig {
	return AlertConfig{
		SessionRateLimit: 10,
		WindowSeconds:    60,
	}
}

// AlertKind discriminates the alerts the monitor raises.
type AlertKind string

const (
	AlertCriticalEvent     AlertKind = "critical_event"
	AlertRateLimitExceeded AlertKind = "rate_limit_exceeded"
)

// Alert is an anomaly raised by the monitor. Immutable once created.
type Alert struct {
	Kind        AlertKind `json:"kind"`
	SessionID   string    `json:"session_id"`
	Description string    `json:"description"`
	Timestamp   int64     `json:"timestamp"` // milliseconds since epoch
}

// Monitor consumes the audit event stream and raises alerts for critical
// events and per-session rate anomalies. It runs decoupled from the
// synchronous decision path: publishers hand events to a Broker and the
// monitor drains its subscription in a background goroutine, so alerting
// never adds latency to sanitize/intercept/firewall calls.
//
// Rate alerts are deliberately not de-duplicated: every event past the limit
// while the window is still over it raises another alert, so a sustained
// burst escalates rather than being collapsed into a single notification.
type Monitor struct {
	cfg AlertConfig

	mu      sync.Mutex
	windows map[string][]int64 // session -> event timestamps (ms)
	alerts  []Alert

	now func() int64 // injected for tests
}

// NewMonitor creates a monitor with the given configuration.
func NewMonitor(cfg AlertConfig) *Monitor {
	if cfg.SessionRateLimit <= 0 {
		cfg.SessionRateLimit = DefaultAlertConfig().SessionRateLimit
	}
	if cfg.WindowSeconds <= 0 {
		cfg.WindowSeconds = DefaultAlertConfig().WindowSeconds
	}
	return &Monitor{
		cfg:     cfg,
		windows: make(map[string][]int64),
		now:     func() int64 { return time.Now().UnixMilli() },
	}
}

// Run drains the subscription channel until it is closed. Intended to run in
// its own goroutine:
//
//	go monitor.Run(broker.Subscribe(256))
func (m *Monitor) Run(ch <-chan Event) {
	for ev := range ch {
		m.ProcessEvent(ev)
	}
}

// ProcessEvent evaluates one event against the critical and rate policies.
func (m *Monitor) ProcessEvent(ev Event) {
	if !m.cfg.IsEnabled() {
		return
	}
	if ev.Severity < m.cfg.Threshold() {
		return
	}

	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if ev.Severity == SeverityCritical {
		m.appendAlert(Alert{
			Kind:        AlertCriticalEvent,
			SessionID:   ev.SessionID,
			Description: "critical audit event: " + ev.Details,
			Timestamp:   now,
		})
	}

	cutoff := now - int64(m.cfg.WindowSeconds)*1000
	win := m.windows[ev.SessionID]
	pruned := win[:0]
	for _, t := range win {
		if t > cutoff {
			pruned = append(pruned, t)
		}
	}
	pruned = append(pruned, now)
	m.windows[ev.SessionID] = pruned

	if len(pruned) > m.cfg.SessionRateLimit {
		m.appendAlert(Alert{
			Kind:      AlertRateLimitExceeded,
			SessionID: ev.SessionID,
			Description: fmt.Sprintf("session %s exceeded rate limit: %d events in %ds window (limit %d)",
				ev.SessionID, len(pruned), m.cfg.WindowSeconds, m.cfg.SessionRateLimit),
			Timestamp: now,
		})
	}
}

// appendAlert must be called with m.mu held.
func (m *Monitor) appendAlert(a Alert) {
	m.alerts = append(m.alerts, a)
	raisedAlerts.inc(a.Kind)
}

// RecentAlerts returns up to limit alerts, newest first.
func (m *Monitor) RecentAlerts(limit int) []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.alerts) {
		limit = len(m.alerts)
	}
	out := make([]Alert, 0, limit)
	for i := len(m.alerts) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.alerts[i])
	}
	return out
}

// AlertCount returns the total number of alerts raised.
func (m *Monitor) AlertCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.alerts)
}

// ClearSession drops the sliding window for a session. Called on session wipe
// so a recycled session ID starts with a clean rate window.
func (m *Monitor) ClearSession(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.windows, sessionID)
}
