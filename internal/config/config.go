// Package config loads and validates the gateway security configuration.
// All user-supplied regex and glob patterns are compiled at load time so a
// malformed rule fails startup instead of surfacing mid-session.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"

	"github.com/agentgate/agentgate/internal/audit"
)

// SensitivityLevel ranks classified data. Ordered: Public < Normal <
// Sensitive < HighlySensitive. Independent of audit.Severity.
type SensitivityLevel int

const (
	Public SensitivityLevel = iota
	Normal
	Sensitive
	HighlySensitive
)

func (l SensitivityLevel) String() string {
	switch l {
	case Public:
		return "public"
	case Normal:
		return "normal"
	case Sensitive:
		return "sensitive"
	case HighlySensitive:
		return "highly_sensitive"
	default:
		return fmt.Sprintf("sensitivity(%d)", int(l))
	}
}

// ParseSensitivityLevel parses a level name as used in config files.
func ParseSensitivityLevel(s string) (SensitivityLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "public":
		return Public, nil
	case "normal":
		return Normal, nil
	case "sensitive":
		return Sensitive, nil
	case "highly_sensitive", "highlysensitive":
		return HighlySensitive, nil
	default:
		return Public, fmt.Errorf("unknown sensitivity level %q", s)
	}
}

func (l SensitivityLevel) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

func (l *SensitivityLevel) UnmarshalText(b []byte) error {
	parsed, err := ParseSensitivityLevel(string(b))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// RedactionStrategy selects how detected sensitive spans are replaced.
type RedactionStrategy string

const (
	// RedactMask replaces the match with a same-length run of '*'.
	RedactMask RedactionStrategy = "mask"
	// RedactRemove replaces the match with the literal "[REDACTED]".
	RedactRemove RedactionStrategy = "remove"
	// RedactHash replaces the match with a deterministic [HASH:xxxxxxxx]
	// token, so repeated leaks of one secret redact identically.
	RedactHash RedactionStrategy = "hash"
)

func (s RedactionStrategy) valid() bool {
	switch s {
	case RedactMask, RedactRemove, RedactHash:
		return true
	}
	return false
}

// ClassificationRule is one named pattern the classifier matches.
type ClassificationRule struct {
	Name        string           `yaml:"name"`
	Pattern     string           `yaml:"pattern"`
	Level       SensitivityLevel `yaml:"level"`
	Description string           `yaml:"description"`
}

// AllowedDomain is one whitelist entry. Pattern is an exact hostname or a
// glob like "*.example.com". Empty Ports means 443 only.
type AllowedDomain struct {
	Pattern string `yaml:"pattern"`
	Ports   []int  `yaml:"ports"`
}

// UnmarshalYAML accepts either a plain domain string or a {pattern, ports}
// mapping, so simple whitelists stay simple:
//
//	allowed_domains: ["api.example.com", {pattern: "*.internal", ports: [8443]}]
func (d *AllowedDomain) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		d.Pattern = value.Value
		d.Ports = nil
		return nil
	}
	type plain AllowedDomain
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*d = AllowedDomain(p)
	return nil
}

// NetworkPolicy configures the egress firewall.
//
// An empty AllowedDomains list means no restriction: every destination is
// allowed. A non-empty list switches the firewall to deny-by-default, where
// any destination not matching an entry is blocked. This open-when-empty
// default is deliberate and security-relevant; deployments that want
// lockdown must configure at least one allowed domain.
type NetworkPolicy struct {
	Enabled          bool            `yaml:"enabled"`
	AllowedDomains   []AllowedDomain `yaml:"allowed_domains"`
	AllowedProtocols []string        `yaml:"allowed_protocols"`
}

// FeatureToggles enables individual pipeline components. Nil means enabled;
// only an explicit false disables a component.
type FeatureToggles struct {
	OutputSanitizer  *bool `yaml:"output_sanitizer"`
	TaintTracking    *bool `yaml:"taint_tracking"`
	ToolInterceptor  *bool `yaml:"tool_interceptor"`
	InjectionDefense *bool `yaml:"injection_defense"`
}

func enabled(b *bool) bool { return b == nil || *b }

func (f FeatureToggles) OutputSanitizerEnabled() bool  { return enabled(f.OutputSanitizer) }
func (f FeatureToggles) TaintTrackingEnabled() bool    { return enabled(f.TaintTracking) }
func (f FeatureToggles) ToolInterceptorEnabled() bool  { return enabled(f.ToolInterceptor) }
func (f FeatureToggles) InjectionDefenseEnabled() bool { return enabled(f.InjectionDefense) }

// SecurityConfig configures the leakage-prevention pipeline for a session.
type SecurityConfig struct {
	Enabled             *bool                `yaml:"enabled"`
	ClassificationRules []ClassificationRule `yaml:"classification_rules"`
	RedactionStrategy   RedactionStrategy    `yaml:"redaction_strategy"`
	Network             NetworkPolicy        `yaml:"network"`
	DangerousCommands   []string             `yaml:"dangerous_commands"`
	Features            FeatureToggles       `yaml:"features"`
}

func (c SecurityConfig) IsEnabled() bool { return enabled(c.Enabled) }

type ServerConfig struct {
	Addr         string `yaml:"addr"`
	ReadTimeout  string `yaml:"read_timeout"`
	WriteTimeout string `yaml:"write_timeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type AuditStorageConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
	KeyFile    string `yaml:"key_file"`
	KeyEnv     string `yaml:"key_env"`
}

type AuditSettings struct {
	MaxEntries int                `yaml:"max_entries"`
	Alerts     audit.AlertConfig  `yaml:"alerts"`
	Storage    AuditStorageConfig `yaml:"storage"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Security SecurityConfig `yaml:"security"`
	Audit    AuditSettings  `yaml:"audit"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromBytes loads configuration from bytes without applying environment
// overrides. This is intended for testing where env vars should not interfere.
func LoadFromBytes(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = "127.0.0.1:8477"
	}
	if cfg.Server.ReadTimeout == "" {
		cfg.Server.ReadTimeout = "30s"
	}
	if cfg.Server.WriteTimeout == "" {
		cfg.Server.WriteTimeout = "30s"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if len(cfg.Security.ClassificationRules) == 0 {
		cfg.Security.ClassificationRules = DefaultClassificationRules()
	}
	if cfg.Security.RedactionStrategy == "" {
		cfg.Security.RedactionStrategy = RedactRemove
	}
	if len(cfg.Security.DangerousCommands) == 0 {
		cfg.Security.DangerousCommands = DefaultDangerousCommands()
	}
	if len(cfg.Security.Network.AllowedProtocols) == 0 {
		cfg.Security.Network.AllowedProtocols = []string{"https"}
	}

	if cfg.Audit.MaxEntries <= 0 {
		cfg.Audit.MaxEntries = audit.DefaultLogCapacity
	}
	def := audit.DefaultAlertConfig()
	if cfg.Audit.Alerts.SessionRateLimit <= 0 {
		cfg.Audit.Alerts.SessionRateLimit = def.SessionRateLimit
	}
	if cfg.Audit.Alerts.WindowSeconds <= 0 {
		cfg.Audit.Alerts.WindowSeconds = def.WindowSeconds
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AGENTGATE_HTTP_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("AGENTGATE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("AGENTGATE_SQLITE_PATH"); v != "" {
		cfg.Audit.Storage.SQLitePath = v
	}
}

func validateConfig(cfg *Config) error {
	if !cfg.Security.RedactionStrategy.valid() {
		return fmt.Errorf("invalid redaction_strategy %q: use mask, remove or hash", cfg.Security.RedactionStrategy)
	}

	seen := make(map[string]bool, len(cfg.Security.ClassificationRules))
	for _, rule := range cfg.Security.ClassificationRules {
		if rule.Name == "" {
			return fmt.Errorf("classification rule with pattern %q has no name", rule.Pattern)
		}
		if seen[rule.Name] {
			return fmt.Errorf("duplicate classification rule %q", rule.Name)
		}
		seen[rule.Name] = true
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			return fmt.Errorf("classification rule %q: invalid pattern: %w", rule.Name, err)
		}
	}

	for _, p := range cfg.Security.DangerousCommands {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("dangerous command pattern %q: %w", p, err)
		}
	}

	for _, d := range cfg.Security.Network.AllowedDomains {
		if d.Pattern == "" {
			return fmt.Errorf("allowed domain with empty pattern")
		}
		// Compiled exactly as the firewall does, without a separator, so
		// load-time acceptance matches runtime behavior.
		if _, err := glob.Compile(d.Pattern); err != nil {
			return fmt.Errorf("allowed domain %q: %w", d.Pattern, err)
		}
		for _, port := range d.Ports {
			if port < 1 || port > 65535 {
				return fmt.Errorf("allowed domain %q: port %d out of range", d.Pattern, port)
			}
		}
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level %q", cfg.Logging.Level)
	}

	return nil
}
