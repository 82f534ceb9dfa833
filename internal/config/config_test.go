package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentgate/agentgate/internal/audit"
)

func TestSensitivityLevelOrdering(t *testing.T) {
	assert.True(t, Public < Normal)
	assert.True(t, Normal < Sensitive)
	assert.True(t, Sensitive < HighlySensitive)
	assert.True(t, HighlySensitive >= Sensitive)
}

func TestParseSensitivityLevel(t *testing.T) {
	for in, want := range map[string]SensitivityLevel{
		"public":           Public,
		"Normal":           Normal,
		"sensitive":        Sensitive,
		"highly_sensitive": HighlySensitive,
		"HighlySensitive":  HighlySensitive,
	} {
		got, err := ParseSensitivityLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseSensitivityLevel("extreme")
	assert.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	assert.True(t, cfg.Security.IsEnabled())
	assert.Equal(t, RedactRemove, cfg.Security.RedactionStrategy)
	assert.Len(t, cfg.Security.ClassificationRules, 5)
	assert.NotEmpty(t, cfg.Security.DangerousCommands)
	assert.True(t, cfg.Security.Features.OutputSanitizerEnabled())
	assert.True(t, cfg.Security.Features.InjectionDefenseEnabled())
	assert.Empty(t, cfg.Security.Network.AllowedDomains)
	assert.Equal(t, []string{"https"}, cfg.Security.Network.AllowedProtocols)

	require.NoError(t, validateConfig(cfg))
}

func TestDefaultClassificationRuleNames(t *testing.T) {
	names := make(map[string]bool)
	for _, r := range DefaultClassificationRules() {
		names[r.Name] = true
	}
	for _, want := range []string{"credit_card", "ssn", "email", "phone", "api_key"} {
		assert.True(t, names[want], want)
	}
}

func TestLoadFromBytes(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(`
security:
  redaction_strategy: hash
  network:
    enabled: true
    allowed_domains:
      - api.example.com
      - pattern: "*.internal.example.com"
        ports: [8443]
audit:
  max_entries: 50
  alerts:
    enabled: true
    session_rate_limit: 5
    window_seconds: 30
    min_severity: high
`))
	require.NoError(t, err)

	assert.Equal(t, RedactHash, cfg.Security.RedactionStrategy)
	require.Len(t, cfg.Security.Network.AllowedDomains, 2)
	assert.Equal(t, "api.example.com", cfg.Security.Network.AllowedDomains[0].Pattern)
	assert.Empty(t, cfg.Security.Network.AllowedDomains[0].Ports)
	assert.Equal(t, []int{8443}, cfg.Security.Network.AllowedDomains[1].Ports)
	assert.Equal(t, 50, cfg.Audit.MaxEntries)
	assert.Equal(t, 5, cfg.Audit.Alerts.SessionRateLimit)
	assert.Equal(t, audit.SeverityHigh, cfg.Audit.Alerts.Threshold())
}

func TestDefaultAlertSettingsEnableMonitor(t *testing.T) {
	cfg := Default()
	def := audit.DefaultAlertConfig()

	assert.True(t, cfg.Audit.Alerts.IsEnabled())
	assert.Equal(t, audit.SeverityWarning, cfg.Audit.Alerts.Threshold())
	assert.Equal(t, def.SessionRateLimit, cfg.Audit.Alerts.SessionRateLimit)
	assert.Equal(t, def.WindowSeconds, cfg.Audit.Alerts.WindowSeconds)
}

func TestAlertsExplicitDisable(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(`
audit:
  alerts:
    enabled: false
`))
	require.NoError(t, err)
	assert.False(t, cfg.Audit.Alerts.IsEnabled())
}

func TestLoadFromBytesRejectsBadRegex(t *testing.T) {
	_, err := LoadFromBytes([]byte(`
security:
  classification_rules:
    - name: broken
      pattern: "([unclosed"
      level: sensitive
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestLoadFromBytesRejectsBadStrategy(t *testing.T) {
	_, err := LoadFromBytes([]byte(`
security:
  redaction_strategy: shred
`))
	assert.Error(t, err)
}

func TestLoadFromBytesRejectsBadPort(t *testing.T) {
	_, err := LoadFromBytes([]byte(`
security:
  network:
    allowed_domains:
      - pattern: api.example.com
        ports: [70000]
`))
	assert.Error(t, err)
}

func TestLoadFromBytesRejectsDuplicateRule(t *testing.T) {
	_, err := LoadFromBytes([]byte(`
security:
  classification_rules:
    - {name: a, pattern: "x", level: normal}
    - {name: a, pattern: "y", level: normal}
`))
	assert.Error(t, err)
}

func TestFeatureTogglesExplicitFalse(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(`
security:
  features:
    tool_interceptor: false
`))
	require.NoError(t, err)
	assert.False(t, cfg.Security.Features.ToolInterceptorEnabled())
	assert.True(t, cfg.Security.Features.TaintTrackingEnabled())
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: 1.2.3.4:80\n"), 0o644))

	t.Setenv("AGENTGATE_HTTP_ADDR", "127.0.0.1:9999")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", cfg.Server.Addr)
}
