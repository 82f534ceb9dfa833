// Package classify detects generic sensitive-data shapes (card numbers,
// SSNs, emails, phone numbers, API-key-shaped tokens) with a pattern set
// compiled once at construction. It is independent of the taint registry;
// the sanitizer combines the two.
package classify

import (
	"fmt"
	"regexp"

	"github.com/agentgate/agentgate/internal/config"
	"github.com/agentgate/agentgate/internal/taint"
)

// Match is one classified span.
type Match struct {
	Rule    string
	Level   config.SensitivityLevel
	Matched string
	Start   int
	End     int
}

// Result of classifying a text.
type Result struct {
	// OverallLevel is the maximum level across matches, Public when none.
	OverallLevel config.SensitivityLevel
	Matches      []Match
}

type compiledRule struct {
	name  string
	re    *regexp.Regexp
	level config.SensitivityLevel
}

// Classifier matches a fixed rule set against text.
type Classifier struct {
	rules []compiledRule
}

// New compiles the rule set. A malformed pattern fails construction; rules
// are never compiled lazily at scan time.
func New(rules []config.ClassificationRule) (*Classifier, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("classification rule %q: %w", r.Name, err)
		}
		compiled = append(compiled, compiledRule{name: r.Name, re: re, level: r.Level})
	}
	return &Classifier{rules: compiled}, nil
}

// Classify returns every rule match in the text.
func (c *Classifier) Classify(text string) Result {
	res := Result{OverallLevel: config.Public}
	for _, rule := range c.rules {
		for _, loc := range rule.re.FindAllStringIndex(text, -1) {
			res.Matches = append(res.Matches, Match{
				Rule:    rule.name,
				Level:   rule.level,
				Matched: text[loc[0]:loc[1]],
				Start:   loc[0],
				End:     loc[1],
			})
			if rule.level > res.OverallLevel {
				res.OverallLevel = rule.level
			}
		}
	}
	return res
}

// Redact replaces every match of every rule using the strategy. Rules apply
// in order over the progressively redacted text, so overlapping rule matches
// cannot resurrect a span an earlier rule already replaced.
func (c *Classifier) Redact(text string, strategy config.RedactionStrategy) string {
	out := text
	for _, rule := range c.rules {
		out = rule.re.ReplaceAllStringFunc(out, func(matched string) string {
			return taint.Replacement(matched, strategy)
		})
	}
	return out
}

// ContainsSensitive reports whether any match reaches the given level.
func (c *Classifier) ContainsSensitive(text string, min config.SensitivityLevel) bool {
	for _, rule := range c.rules {
		if rule.level >= min && rule.re.MatchString(text) {
			return true
		}
	}
	return false
}
