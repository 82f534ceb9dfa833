package isolation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentgate/agentgate/internal/audit"
	"github.com/agentgate/agentgate/internal/config"
	"github.com/agentgate/agentgate/internal/taint"
)

func TestWipeRemovesSessionEntries(t *testing.T) {
	reg := taint.NewRegistry()
	reg.Register("a", "secret-one", taint.TypePassword, config.HighlySensitive)
	reg.Register("a", "secret-two", taint.TypeAPIKey, config.HighlySensitive)
	reg.Register("b", "secret-three", taint.TypeAPIKey, config.HighlySensitive)

	w := New(reg, nil)
	res := w.Wipe("a")

	assert.Equal(t, 2, res.EntriesRemoved)
	assert.False(t, reg.Contains("secret-one"))
	assert.True(t, reg.Contains("secret-three"))

	require.Len(t, res.Events, 1)
	assert.Equal(t, audit.EventSessionWiped, res.Events[0].Type)
	assert.Equal(t, audit.SeverityInfo, res.Events[0].Severity)
}

func TestWipeIdempotent(t *testing.T) {
	reg := taint.NewRegistry()
	reg.Register("a", "secret-one", taint.TypePassword, config.HighlySensitive)

	w := New(reg, nil)
	first := w.Wipe("a")
	second := w.Wipe("a")

	assert.Equal(t, 1, first.EntriesRemoved)
	assert.Equal(t, 0, second.EntriesRemoved)
	assert.Len(t, second.Events, 1)
}

func TestWipeUnknownSession(t *testing.T) {
	w := New(taint.NewRegistry(), nil)
	res := w.Wipe("never-seen")
	assert.Equal(t, 0, res.EntriesRemoved)
}

func TestWipeClearsAlertWindow(t *testing.T) {
	reg := taint.NewRegistry()
	cfg := audit.DefaultAlertConfig()
	cfg.SessionRateLimit = 2
	monitor := audit.NewMonitor(cfg)

	for i := 0; i < 2; i++ {
		monitor.ProcessEvent(audit.NewEvent("a", audit.EventToolBlocked, audit.SeverityHigh, audit.ActionBlocked, "x"))
	}

	w := New(reg, monitor)
	w.Wipe("a")

	// Without the wipe these two events would push the window past the
	// limit. A recycled session ID starts with a fresh window instead.
	for i := 0; i < 2; i++ {
		monitor.ProcessEvent(audit.NewEvent("a", audit.EventToolBlocked, audit.SeverityHigh, audit.ActionBlocked, "x"))
	}
	assert.Equal(t, 0, monitor.AlertCount())
}
