package guard

import (
	"fmt"

	"github.com/agentgate/agentgate/internal/audit"
	"github.com/agentgate/agentgate/internal/classify"
	"github.com/agentgate/agentgate/internal/config"
	"github.com/agentgate/agentgate/internal/firewall"
	"github.com/agentgate/agentgate/internal/injection"
	"github.com/agentgate/agentgate/internal/intercept"
	"github.com/agentgate/agentgate/internal/isolation"
	"github.com/agentgate/agentgate/internal/message"
	"github.com/agentgate/agentgate/internal/sanitize"
	"github.com/agentgate/agentgate/internal/taint"
)

// Suite is the wired leakage-prevention pipeline for one gateway process.
// The exported component fields satisfy the package contracts and may be
// replaced before first use; the convenience methods below run a component
// and hand its events to the audit log and broker in one step.
type Suite struct {
	Registry    *taint.Registry
	Sanitizer   Sanitizer
	Interceptor Interceptor
	Scanner     InjectionScanner
	Firewall    Firewall
	Audit       AuditSink

	Log     *audit.Log
	Broker  *audit.Broker
	Monitor *audit.Monitor
	Wiper   *isolation.Wiper

	taintTracking bool
}

// NewSuite builds the default implementations from configuration. Disabled
// feature toggles substitute pass-through components, so call sites stay
// unconditional. The alert monitor drains a broker subscription in its own
// goroutine; Close shuts the stream down.
func NewSuite(cfg *config.Config) (*Suite, error) {
	rules := cfg.Security.ClassificationRules
	if len(rules) == 0 {
		rules = config.DefaultClassificationRules()
	}
	classifier, err := classify.New(rules)
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}

	fw, err := firewall.New(cfg.Security.Network)
	if err != nil {
		return nil, fmt.Errorf("firewall: %w", err)
	}

	registry := taint.NewRegistry()
	interceptor, err := intercept.New(registry, cfg.Security.DangerousCommands, fw)
	if err != nil {
		return nil, fmt.Errorf("interceptor: %w", err)
	}

	log := audit.NewLog(cfg.Audit.MaxEntries)
	broker := audit.NewBroker()
	monitor := audit.NewMonitor(cfg.Audit.Alerts)
	if cfg.Audit.Alerts.IsEnabled() {
		go monitor.Run(broker.Subscribe(256))
	}

	s := &Suite{
		Registry:      registry,
		Sanitizer:     sanitize.New(registry, classifier, cfg.Security.RedactionStrategy),
		Interceptor:   interceptor,
		Scanner:       injection.NewDetector(),
		Firewall:      fw,
		Audit:         log,
		Log:           log,
		Broker:        broker,
		Monitor:       monitor,
		Wiper:         isolation.New(registry, monitor),
		taintTracking: cfg.Security.Features.TaintTrackingEnabled(),
	}

	if !cfg.Security.IsEnabled() {
		s.Sanitizer = passSanitizer{}
		s.Interceptor = passInterceptor{}
		s.Scanner = passScanner{}
		s.taintTracking = false
		return s, nil
	}
	if !cfg.Security.Features.OutputSanitizerEnabled() {
		s.Sanitizer = passSanitizer{}
	}
	if !cfg.Security.Features.ToolInterceptorEnabled() {
		s.Interceptor = passInterceptor{}
	}
	if !cfg.Security.Features.InjectionDefenseEnabled() {
		s.Scanner = passScanner{}
	}
	return s, nil
}

// record hands component events to the log and the broker. Components return
// events instead of writing them so they stay testable in isolation.
func (s *Suite) record(evs []audit.Event) {
	s.Audit.RecordAll(evs)
	for _, ev := range evs {
		s.Broker.Publish(ev)
	}
}

// RegisterTaint tracks a sensitive value and audits the registration. The
// audit detail names the type, never the value. Returns the taint ID, or ""
// when tracking is disabled or the value is empty.
func (s *Suite) RegisterTaint(sessionID, value string, typ taint.Type, level config.SensitivityLevel) string {
	if !s.taintTracking {
		return ""
	}
	id := s.Registry.Register(sessionID, value, typ, level)
	if id == "" {
		return ""
	}
	s.record([]audit.Event{audit.NewEvent(
		sessionID, audit.EventTaintRegistered, audit.SeverityInfo, audit.ActionLogged,
		fmt.Sprintf("sensitive value registered (type: %s)", typ.Label()),
	).WithTaintLabels([]string{id})})
	return id
}

// SanitizeOutput redacts model output and records the resulting events.
func (s *Suite) SanitizeOutput(output, sessionID string) sanitize.Result {
	res := s.Sanitizer.Sanitize(output, sessionID)
	s.record(res.Events)
	return res
}

// InterceptTool gates one tool call and records the resulting events.
func (s *Suite) InterceptTool(toolName, arguments, sessionID string) intercept.Result {
	res := s.Interceptor.Intercept(toolName, arguments, sessionID)
	s.record(res.Events)
	return res
}

// ScanInput runs the blocking pre-generation injection scan.
func (s *Suite) ScanInput(input, sessionID string) injection.Result {
	res := s.Scanner.Scan(input, sessionID)
	s.record(res.Events)
	return res
}

// ScanMessage scans the user segments of a structured message.
func (s *Suite) ScanMessage(msg *message.StructuredMessage, sessionID string) injection.Result {
	res := s.Scanner.ScanStructured(msg, sessionID)
	s.record(res.Events)
	return res
}

// ScanToolOutput runs the non-blocking post-tool injection scan.
func (s *Suite) ScanToolOutput(toolName, output, sessionID string) injection.Result {
	res := s.Scanner.ScanToolOutput(toolName, output, sessionID)
	s.record(res.Events)
	return res
}

// CheckURL vets an outbound URL and records any block event.
func (s *Suite) CheckURL(rawURL, sessionID string) firewall.Result {
	res := s.Firewall.CheckURL(rawURL, sessionID)
	s.record(res.Events)
	return res
}

// WipeSession forgets a session's taint entries and alert window.
func (s *Suite) WipeSession(sessionID string) isolation.WipeResult {
	res := s.Wiper.Wipe(sessionID)
	s.record(res.Events)
	return res
}

// Close shuts down the event stream. The monitor goroutine exits when its
// subscription channel closes.
func (s *Suite) Close() {
	s.Broker.Close()
}
