// Package intercept gates tool calls before execution: arguments are checked
// against the taint registry first, then shell invocations against the
// dangerous-command patterns, then network destinations inside shell
// commands against the firewall whitelist.
package intercept

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/agentgate/agentgate/internal/audit"
	"github.com/agentgate/agentgate/internal/firewall"
	"github.com/agentgate/agentgate/internal/taint"
)

// Decision is the outcome of an intercept check.
type Decision int

const (
	Allow Decision = iota
	BlockTainted
	BlockDangerous
	BlockNetwork
)

func (d Decision) Allowed() bool { return d == Allow }

// Result of intercepting one tool call. Reason cites the taint type, never
// the tainted value.
type Result struct {
	Decision Decision
	Reason   string
	Matches  []taint.Match
	Events   []audit.Event
}

// Allowed reports whether the tool call may proceed.
func (r Result) Allowed() bool { return r.Decision.Allowed() }

// shellTools are the tool names treated as shell invocations.
var shellTools = map[string]bool{
	"bash":    true,
	"shell":   true,
	"execute": true,
}

var urlPattern = sync.OnceValue(func() *regexp.Regexp {
	return regexp.MustCompile(`https?://[^\s"'<>]+`)
})

// Interceptor checks tool calls against the registry and the configured
// dangerous-command patterns. An optional firewall vets network
// destinations found in shell commands.
type Interceptor struct {
	registry *taint.Registry
	patterns []*regexp.Regexp
	fw       *firewall.Firewall
}

// New compiles the dangerous-command patterns. Patterns are matched
// case-insensitively against each shell sub-command; a malformed pattern
// fails construction.
func New(registry *taint.Registry, dangerousCommands []string, fw *firewall.Firewall) (*Interceptor, error) {
	patterns := make([]*regexp.Regexp, 0, len(dangerousCommands))
	for _, p := range dangerousCommands {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("dangerous command pattern %q: %w", p, err)
		}
		patterns = append(patterns, re)
	}
	return &Interceptor{registry: registry, patterns: patterns, fw: fw}, nil
}

// Intercept checks one tool call. Order matters: a tainted argument blocks
// before the dangerous-command check, so the reason always names the most
// severe finding.
func (i *Interceptor) Intercept(toolName, arguments, sessionID string) Result {
	if matches := i.registry.Detect(arguments); len(matches) > 0 {
		types := make(map[string]bool)
		var labels, ids []string
		for _, m := range matches {
			if !types[m.Type.Label()] {
				types[m.Type.Label()] = true
				labels = append(labels, m.Type.Label())
			}
			ids = append(ids, m.TaintID)
		}
		reason := fmt.Sprintf("tool call blocked: tainted data in arguments (types: %s)",
			strings.Join(labels, ", "))
		ev := audit.NewEvent(sessionID, audit.EventToolBlocked, audit.SeverityHigh, audit.ActionBlocked, reason).
			WithTool(toolName).WithTaintLabels(ids)
		return Result{Decision: BlockTainted, Reason: reason, Matches: matches, Events: []audit.Event{ev}}
	}

	if shellTools[toolName] {
		if pattern, ok := i.dangerousCommand(arguments); ok {
			reason := fmt.Sprintf("tool call blocked: dangerous command pattern (%s)", pattern)
			ev := audit.NewEvent(sessionID, audit.EventToolBlocked, audit.SeverityHigh, audit.ActionBlocked, reason).
				WithTool(toolName)
			return Result{Decision: BlockDangerous, Reason: reason, Events: []audit.Event{ev}}
		}

		if i.fw != nil {
			// Full URLs are vetted so explicit ports and protocols count,
			// not just the hostname.
			for _, raw := range extractURLs(arguments) {
				if dec := i.fw.CheckURL(raw, sessionID); !dec.Allowed() {
					reason := fmt.Sprintf("tool call blocked: network destination %q not allowed", dec.Host)
					ev := audit.NewEvent(sessionID, audit.EventToolBlocked, audit.SeverityHigh, audit.ActionBlocked, reason).
						WithTool(toolName)
					return Result{Decision: BlockNetwork, Reason: reason, Events: []audit.Event{ev}}
				}
			}
		}
	}

	return Result{Decision: Allow}
}

// dangerousCommand matches each pattern against every sub-command start, so
// "nc" after a pipe is caught but "nc" inside "rsync" is not.
func (i *Interceptor) dangerousCommand(command string) (string, bool) {
	for _, sub := range splitCommands(command) {
		for _, re := range i.patterns {
			if re.MatchString(sub) {
				return re.String(), true
			}
		}
	}
	return "", false
}

// splitCommands breaks a shell command line at |, ; and && so patterns
// anchored with ^ apply to each segment.
func splitCommands(command string) []string {
	parts := []string{command}
	for _, sep := range []string{"&&", "|", ";"} {
		var next []string
		for _, p := range parts {
			for _, piece := range strings.Split(p, sep) {
				piece = strings.TrimSpace(piece)
				if piece != "" {
					next = append(next, piece)
				}
			}
		}
		parts = next
	}
	return parts
}

func extractURLs(command string) []string {
	return urlPattern().FindAllString(command, -1)
}
