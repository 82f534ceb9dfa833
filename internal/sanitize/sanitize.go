// Package sanitize combines the taint registry and the classifier into the
// output-side redaction pass that runs on every model response before it
// reaches a user.
package sanitize

import (
	"fmt"

	"github.com/agentgate/agentgate/internal/audit"
	"github.com/agentgate/agentgate/internal/classify"
	"github.com/agentgate/agentgate/internal/config"
	"github.com/agentgate/agentgate/internal/taint"
)

// Result of sanitizing one output.
type Result struct {
	// Text is the safe output. Equal to the input when nothing matched.
	Text           string
	WasRedacted    bool
	RedactionCount int
	// Matches are the taint registry hits found in the original text.
	Matches []taint.Match
	// Events carry the audit records for the caller's sink.
	Events []audit.Event
}

// OutputSanitizer redacts tainted and classified content from agent output.
type OutputSanitizer struct {
	registry   *taint.Registry
	classifier *classify.Classifier
	strategy   config.RedactionStrategy
}

// New creates a sanitizer over the given registry and classifier.
func New(registry *taint.Registry, classifier *classify.Classifier, strategy config.RedactionStrategy) *OutputSanitizer {
	return &OutputSanitizer{registry: registry, classifier: classifier, strategy: strategy}
}

// Sanitize redacts the output for a session. The registry pass runs first
// and replaces every tracked value and variant; the classifier then runs
// over the already-redacted text and catches generic PII shapes the
// registry does not track. Clean input is returned exactly unchanged, so
// sanitizing twice equals sanitizing once.
//
// Each registry hit produces its own audit event carrying the taint ID;
// classifier-only redactions produce a single summary event. Event details
// name the taint type, never the value.
func (s *OutputSanitizer) Sanitize(output, sessionID string) Result {
	res := Result{Text: output}

	matches := s.registry.Detect(output)
	if len(matches) > 0 {
		res.Text = s.registry.Redact(output, s.strategy)
		res.Matches = matches
		res.WasRedacted = true

		spans := taint.SelectNonOverlapping(matches)
		res.RedactionCount += len(spans)
		for _, m := range spans {
			res.Events = append(res.Events, audit.NewEvent(
				sessionID, audit.EventOutputRedacted, audit.SeverityHigh, audit.ActionRedacted,
				fmt.Sprintf("tainted data redacted from output (type: %s)", m.Type.Label()),
			).WithTaintLabels([]string{m.TaintID}))
		}
	}

	cls := s.classifier.Classify(res.Text)
	if len(cls.Matches) > 0 {
		res.Text = s.classifier.Redact(res.Text, s.strategy)
		res.WasRedacted = true
		res.RedactionCount += len(cls.Matches)

		names := make(map[string]bool)
		var ruleList []string
		for _, m := range cls.Matches {
			if !names[m.Rule] {
				names[m.Rule] = true
				ruleList = append(ruleList, m.Rule)
			}
		}
		res.Events = append(res.Events, audit.NewEvent(
			sessionID, audit.EventOutputRedacted, audit.SeverityHigh, audit.ActionRedacted,
			fmt.Sprintf("classified data redacted from output (%d match(es), rules: %v)", len(cls.Matches), ruleList)))
	}

	return res
}

// ContainsLeakage reports whether the output holds any tracked value or any
// classified span at Sensitive level or above, without redacting.
func (s *OutputSanitizer) ContainsLeakage(output string) bool {
	return s.registry.Contains(output) ||
		s.classifier.ContainsSensitive(output, config.Sensitive)
}
