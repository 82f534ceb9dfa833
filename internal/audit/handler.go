package audit

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler serves the read-only audit API. It exposes the in-memory log and
// alert monitor; nothing it serves can mutate pipeline state.
type Handler struct {
	log     *Log
	monitor *Monitor
}

// NewHandler creates a read-only handler over the given log and monitor.
// Either may be nil; the corresponding routes then return 404.
func NewHandler(log *Log, monitor *Monitor) *Handler {
	return &Handler{log: log, monitor: monitor}
}

// Routes builds the chi router for the audit API.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	if h.log != nil {
		r.Get("/audit/recent", h.handleRecent)
		r.Get("/audit/sessions/{sessionID}", h.handleSession)
		r.Get("/audit/stats", h.handleStats)
	}
	if h.monitor != nil {
		r.Get("/alerts/recent", h.handleAlerts)
		r.Get("/alerts/count", h.handleAlertCount)
	}
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func (h *Handler) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 100)
	writeJSON(w, http.StatusOK, h.log.Recent(limit))
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	events := h.log.BySession(sessionID)
	if events == nil {
		events = []Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]any{
		"retained": h.log.Len(),
		"total":    h.log.TotalCount(),
		"by_severity": map[string]int{
			SeverityInfo.String():     len(h.log.BySeverity(SeverityInfo)),
			SeverityWarning.String():  len(h.log.BySeverity(SeverityWarning)),
			SeverityHigh.String():     len(h.log.BySeverity(SeverityHigh)),
			SeverityCritical.String(): len(h.log.BySeverity(SeverityCritical)),
		},
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleAlerts(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 100)
	alerts := h.monitor.RecentAlerts(limit)
	if alerts == nil {
		alerts = []Alert{}
	}
	writeJSON(w, http.StatusOK, alerts)
}

func (h *Handler) handleAlertCount(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"count": h.monitor.AlertCount()})
}

func parseLimit(r *http.Request, def int) int {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
