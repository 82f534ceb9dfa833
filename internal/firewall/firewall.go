// Package firewall makes allow/deny decisions for outbound destinations
// requested by tool execution. Policy is whitelist based: with a non-empty
// whitelist any unlisted destination is denied; an empty whitelist leaves
// egress unrestricted.
package firewall

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/gobwas/glob"

	"github.com/agentgate/agentgate/internal/audit"
	"github.com/agentgate/agentgate/internal/config"
)

// Decision is the firewall verdict for one destination.
type Decision int

const (
	Allow Decision = iota
	BlockDomain
	BlockPort
	BlockProtocol
)

// Result of one firewall check.
type Result struct {
	Decision Decision
	Host     string
	Reason   string
	Events   []audit.Event
}

// Allowed reports whether the connection may proceed.
func (r Result) Allowed() bool { return r.Decision == Allow }

type allowedDomain struct {
	pattern string
	g       glob.Glob
	ports   []int
}

// Firewall evaluates destinations against a compiled whitelist.
type Firewall struct {
	enabled bool
	domains []allowedDomain
	protos  []string
	// open is true when the whitelist is empty: everything is allowed.
	// This default is deliberate; lockdown requires configuring at least
	// one allowed domain.
	open bool
}

// New compiles the policy. Malformed domain patterns fail construction.
func New(policy config.NetworkPolicy) (*Firewall, error) {
	fw := &Firewall{
		enabled: policy.Enabled,
		protos:  policy.AllowedProtocols,
		open:    len(policy.AllowedDomains) == 0,
	}
	for _, d := range policy.AllowedDomains {
		g, err := glob.Compile(strings.ToLower(d.Pattern))
		if err != nil {
			return nil, fmt.Errorf("allowed domain %q: %w", d.Pattern, err)
		}
		ports := d.Ports
		if len(ports) == 0 {
			ports = []int{443}
		}
		fw.domains = append(fw.domains, allowedDomain{pattern: d.Pattern, g: g, ports: ports})
	}
	return fw, nil
}

// CheckURL validates the protocol, host and port of an outbound URL.
func (f *Firewall) CheckURL(rawURL, sessionID string) Result {
	if !f.enabled {
		return Result{Decision: Allow, Host: rawURL}
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Hostname() == "" {
		return f.block(BlockProtocol, rawURL, "failed to parse URL", sessionID)
	}

	proto := strings.ToLower(u.Scheme)
	if !f.protocolAllowed(proto) {
		return f.block(BlockProtocol, u.Hostname(),
			fmt.Sprintf("protocol %q not allowed", proto), sessionID)
	}

	port := defaultPort(proto)
	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return f.block(BlockPort, u.Hostname(), fmt.Sprintf("invalid port %q", p), sessionID)
		}
		port = n
	}

	return f.CheckHost(u.Hostname(), port, sessionID)
}

// CheckHost validates a raw host and port pair against the whitelist.
func (f *Firewall) CheckHost(host string, port int, sessionID string) Result {
	if !f.enabled || f.open {
		return Result{Decision: Allow, Host: host}
	}

	lower := strings.ToLower(host)
	for _, d := range f.domains {
		if !d.g.Match(lower) {
			continue
		}
		for _, p := range d.ports {
			if p == port {
				return Result{Decision: Allow, Host: host}
			}
		}
		return f.block(BlockPort, host,
			fmt.Sprintf("port %d not allowed for domain %q", port, host), sessionID)
	}
	return f.block(BlockDomain, host,
		fmt.Sprintf("domain %q not in whitelist", host), sessionID)
}

func (f *Firewall) protocolAllowed(proto string) bool {
	if len(f.protos) == 0 {
		return true
	}
	for _, p := range f.protos {
		if strings.EqualFold(p, proto) {
			return true
		}
	}
	return false
}

func (f *Firewall) block(decision Decision, host, reason, sessionID string) Result {
	ev := audit.NewEvent(sessionID, audit.EventNetworkBlocked, audit.SeverityHigh, audit.ActionBlocked,
		"outbound connection blocked: "+reason)
	return Result{Decision: decision, Host: host, Reason: reason, Events: []audit.Event{ev}}
}

func defaultPort(proto string) int {
	switch proto {
	case "http":
		return 80
	case "https":
		return 443
	default:
		return 0
	}
}
