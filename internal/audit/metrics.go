package audit

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	eventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentgate_audit_events_total",
			Help: "Audit events recorded, by severity",
		},
		[]string{"severity"},
	)

	alertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentgate_alerts_total",
			Help: "Alerts raised by the monitor, by kind",
		},
		[]string{"kind"},
	)

	persistErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "agentgate_audit_persist_errors_total",
			Help: "Audit events that failed to persist to the store",
		},
	)
)

func init() {
	prometheus.MustRegister(eventsTotal)
	prometheus.MustRegister(alertsTotal)
	prometheus.MustRegister(persistErrorsTotal)
}

type severityCounter struct{}

func (severityCounter) inc(sev Severity) {
	eventsTotal.WithLabelValues(sev.String()).Inc()
}

type alertCounter struct{}

func (alertCounter) inc(kind AlertKind) {
	alertsTotal.WithLabelValues(string(kind)).Inc()
}

var (
	recordedEvents severityCounter
	raisedAlerts   alertCounter
)
