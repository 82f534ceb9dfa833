// Package guard defines the narrow contracts the surrounding hook and HTTP
// layers depend on, and a Suite that wires the default implementations from
// configuration. Deployments swap a component by satisfying its interface,
// not by subclassing anything.
package guard

import (
	"github.com/agentgate/agentgate/internal/audit"
	"github.com/agentgate/agentgate/internal/firewall"
	"github.com/agentgate/agentgate/internal/injection"
	"github.com/agentgate/agentgate/internal/intercept"
	"github.com/agentgate/agentgate/internal/message"
	"github.com/agentgate/agentgate/internal/sanitize"
)

// Sanitizer redacts tainted and classified content from model output.
type Sanitizer interface {
	Sanitize(output, sessionID string) sanitize.Result
	ContainsLeakage(output string) bool
}

// Interceptor gates tool calls before execution.
type Interceptor interface {
	Intercept(toolName, arguments, sessionID string) intercept.Result
}

// InjectionScanner checks prompts and tool output for injection attempts.
type InjectionScanner interface {
	Scan(input, sessionID string) injection.Result
	ScanStructured(msg *message.StructuredMessage, sessionID string) injection.Result
	ScanToolOutput(toolName, output, sessionID string) injection.Result
}

// Firewall decides whether an outbound destination may be reached.
type Firewall interface {
	CheckURL(rawURL, sessionID string) firewall.Result
	CheckHost(host string, port int, sessionID string) firewall.Result
}

// AuditSink receives and serves security decision records.
type AuditSink interface {
	Record(ev audit.Event)
	RecordAll(evs []audit.Event)
	Recent(limit int) []audit.Event
	BySession(sessionID string) []audit.Event
}

// Pass-through implementations substituted when a feature toggle disables a
// component. They keep call sites unconditional.

type passSanitizer struct{}

func (passSanitizer) Sanitize(output, _ string) sanitize.Result {
	return sanitize.Result{Text: output}
}

func (passSanitizer) ContainsLeakage(string) bool { return false }

type passInterceptor struct{}

func (passInterceptor) Intercept(string, string, string) intercept.Result {
	return intercept.Result{Decision: intercept.Allow}
}

type passScanner struct{}

func (passScanner) Scan(string, string) injection.Result {
	return injection.Result{Verdict: injection.VerdictClean}
}

func (passScanner) ScanStructured(*message.StructuredMessage, string) injection.Result {
	return injection.Result{Verdict: injection.VerdictClean}
}

func (passScanner) ScanToolOutput(string, string, string) injection.Result {
	return injection.Result{Verdict: injection.VerdictClean}
}
