// Package injection detects prompt-injection attempts: instruction
// overrides, system-prompt extraction, role confusion, delimiter smuggling
// and base64-encoded payloads. Two call sites apply different policies; the
// pre-generation scan blocks, the post-tool-output scan only logs, because
// legitimate code and documents frequently contain injection-like substrings.
package injection

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/agentgate/agentgate/internal/audit"
	"github.com/agentgate/agentgate/internal/message"
)

// Verdict classifies a scanned input.
type Verdict int

const (
	VerdictClean Verdict = iota
	VerdictSuspicious
	VerdictBlocked
)

func (v Verdict) String() string {
	switch v {
	case VerdictClean:
		return "clean"
	case VerdictSuspicious:
		return "suspicious"
	case VerdictBlocked:
		return "blocked"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

// Match is one signature hit.
type Match struct {
	Pattern  string
	Blocking bool
	Position int
}

// Result of an injection scan. Events carry the audit records the caller
// should hand to its sink; the scan itself never writes them.
type Result struct {
	Verdict Verdict
	Matches []Match
	Events  []audit.Event
}

// Blocked reports whether the input must not reach the model.
func (r Result) Blocked() bool { return r.Verdict == VerdictBlocked }

// FirstPattern returns the name of the first matched signature, or "".
func (r Result) FirstPattern() string {
	if len(r.Matches) == 0 {
		return ""
	}
	return r.Matches[0].Pattern
}

// Detector scans text against the shared signature table. The zero value is
// usable; NewDetector exists for symmetry with the other components.
type Detector struct {
	// DisableEncodedPayloads turns off base64 smuggling detection.
	DisableEncodedPayloads bool
}

func NewDetector() *Detector { return &Detector{} }

// Detect returns the name of the first matching signature, or "" when the
// text is clean. Suspicious-tier signatures count as matches here; callers
// that need the blocking distinction use Scan.
func (d *Detector) Detect(text string) string {
	for _, sig := range signatures() {
		if sig.re.MatchString(text) {
			return sig.name
		}
	}
	return ""
}

// Scan checks raw input before generation. A blocking match yields a
// Blocked verdict and a critical audit event; suspicious-only matches yield
// a Suspicious verdict and a warning event.
func (d *Detector) Scan(input, sessionID string) Result {
	var matches []Match
	for _, sig := range signatures() {
		if loc := sig.re.FindStringIndex(input); loc != nil {
			matches = append(matches, Match{Pattern: sig.name, Blocking: sig.blocking, Position: loc[0]})
		}
	}
	if !d.DisableEncodedPayloads {
		if m, ok := d.checkEncodedPayload(input); ok {
			matches = append(matches, m)
		}
	}
	return d.finish(matches, sessionID)
}

// ScanStructured checks only the user segments of a message, then looks for
// the canary token in assistant segments. System and tool segments are
// trusted and skipped entirely.
func (d *Detector) ScanStructured(msg *message.StructuredMessage, sessionID string) Result {
	var matches []Match
	for _, i := range msg.UserIndices() {
		seg := msg.Segments[i]
		for _, sig := range signatures() {
			if loc := sig.re.FindStringIndex(seg.Content); loc != nil {
				matches = append(matches, Match{Pattern: sig.name, Blocking: sig.blocking, Position: loc[0]})
			}
		}
		if !d.DisableEncodedPayloads {
			if m, ok := d.checkEncodedPayload(seg.Content); ok {
				matches = append(matches, m)
			}
		}
	}

	result := d.finish(matches, sessionID)

	if msg.CanaryToken != "" {
		for _, content := range msg.AssistantContent() {
			if strings.Contains(content, msg.CanaryToken) {
				result.Matches = append(result.Matches, Match{Pattern: "canary_leak", Blocking: true})
				result.Verdict = VerdictBlocked
				result.Events = append(result.Events, audit.NewEvent(
					sessionID, audit.EventInjectionDetected, audit.SeverityCritical, audit.ActionBlocked,
					"canary token detected in model output, system prompt leaked"))
				slog.Error("canary token leaked in model output", "session_id", sessionID)
				break
			}
		}
	}
	return result
}

// HighRiskTools are the tool names whose output carries external content and
// is therefore scanned for indirect injection.
var HighRiskTools = map[string]bool{
	"read":       true,
	"read_file":  true,
	"web_fetch":  true,
	"web_search": true,
	"bash":       true,
	"shell":      true,
	"execute":    true,
}

// ScanToolOutput checks a tool result for indirect injection. It never
// blocks: matches are logged for forensics, because blocking here would have
// unacceptable false-positive cost on legitimate code and documents.
func (d *Detector) ScanToolOutput(toolName, output, sessionID string) Result {
	if !HighRiskTools[toolName] {
		return Result{Verdict: VerdictClean}
	}
	var matches []Match
	for _, sig := range signatures() {
		if loc := sig.re.FindStringIndex(output); loc != nil {
			matches = append(matches, Match{Pattern: sig.name, Blocking: false, Position: loc[0]})
		}
	}
	if len(matches) == 0 {
		return Result{Verdict: VerdictClean}
	}
	ev := audit.NewEvent(sessionID, audit.EventInjectionDetected, audit.SeverityWarning, audit.ActionLogged,
		fmt.Sprintf("indirect injection in tool %q output (pattern: %s)", toolName, matches[0].Pattern)).
		WithTool(toolName)
	slog.Warn("indirect injection pattern in tool output",
		"session_id", sessionID, "tool", toolName, "pattern", matches[0].Pattern)
	return Result{Verdict: VerdictSuspicious, Matches: matches, Events: []audit.Event{ev}}
}

func (d *Detector) finish(matches []Match, sessionID string) Result {
	if len(matches) == 0 {
		return Result{Verdict: VerdictClean}
	}

	blocking := false
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		if m.Blocking {
			blocking = true
		}
		names = append(names, m.Pattern)
	}

	verdict := VerdictSuspicious
	severity := audit.SeverityWarning
	action := audit.ActionLogged
	if blocking {
		verdict = VerdictBlocked
		severity = audit.SeverityCritical
		action = audit.ActionBlocked
	}

	ev := audit.NewEvent(sessionID, audit.EventInjectionDetected, severity, action,
		fmt.Sprintf("prompt injection %s: %d pattern(s) matched [%s]",
			verdict, len(matches), strings.Join(names, ", ")))

	if blocking {
		slog.Warn("prompt injection blocked", "session_id", sessionID, "patterns", names)
	}
	return Result{Verdict: verdict, Matches: matches, Events: []audit.Event{ev}}
}

// checkEncodedPayload looks for base64 runs that decode to a blocking
// signature. The original input is used, not a lowercased copy, because
// base64 is case-sensitive.
func (d *Detector) checkEncodedPayload(input string) (Match, bool) {
	for _, loc := range base64Candidate().FindAllStringIndex(input, -1) {
		decoded, err := base64.StdEncoding.DecodeString(input[loc[0]:loc[1]])
		if err != nil || !utf8.Valid(decoded) {
			continue
		}
		text := string(decoded)
		for _, sig := range signatures() {
			if sig.blocking && sig.re.MatchString(text) {
				return Match{Pattern: "encoded_payload", Blocking: true, Position: loc[0]}, true
			}
		}
	}
	return Match{}, false
}
