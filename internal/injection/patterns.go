package injection

import (
	"regexp"
	"sync"
)

// signature is one named injection pattern. Blocking signatures are high
// confidence; the rest flag input as suspicious without blocking it.
type signature struct {
	name     string
	re       *regexp.Regexp
	blocking bool
}

// signatures is the process-wide pattern table, compiled once on first use
// and never mutated afterwards.
var signatures = sync.OnceValue(func() []signature {
	blocking := []struct{ name, pattern string }{
		{
			"ignore_instructions",
			`(?i)ignore\s+(all\s+)?(previous|prior|above|earlier)\s+(instructions|prompts|rules|directives)`,
		},
		{
			"system_prompt_extract",
			`(?i)(show|reveal|print|output|display|repeat)\s+.{0,20}(system\s+prompt|instructions|initial\s+prompt)`,
		},
		{
			"role_confusion",
			`(?i)you\s+are\s+now\s+(a|an|the)\s+\w+|pretend\s+(you\s+are|to\s+be)|act\s+as\s+(a|an|if)`,
		},
		{
			"delimiter_injection",
			"(?i)(```|---|\\*\\*\\*)\\s*(system|assistant|user)\\s*[:\\n]|<\\|im_start\\|>\\s*system|<\\|endoftext\\|>|<<sys>>",
		},
		{
			"encoded_instruction",
			`(?i)(base64|hex|rot13|decode)\s*[:(]\s*[A-Za-z0-9+/=]{20,}`,
		},
		{
			"jailbreak_attempt",
			`(?i)\bDAN\b|do\s+anything\s+now|developer\s+mode|bypass\s+(safety|filter|restriction)`,
		},
	}
	suspicious := []struct{ name, pattern string }{
		{
			"new_instructions",
			`(?i)new\s+instructions\s*:|from\s+now\s+on\s+you\b`,
		},
		{
			"role_marker",
			`(?im)^\s*(system|assistant)\s*:`,
		},
		{
			"context_probe",
			`(?i)(output|show)\s+all\s+context|tell\s+me\s+your\s+rules|what\s+is\s+your\s+system`,
		},
	}

	sigs := make([]signature, 0, len(blocking)+len(suspicious))
	for _, p := range blocking {
		sigs = append(sigs, signature{name: p.name, re: regexp.MustCompile(p.pattern), blocking: true})
	}
	for _, p := range suspicious {
		sigs = append(sigs, signature{name: p.name, re: regexp.MustCompile(p.pattern), blocking: false})
	}
	return sigs
})

// base64Candidate finds runs long enough to smuggle an instruction.
var base64Candidate = sync.OnceValue(func() *regexp.Regexp {
	return regexp.MustCompile(`[A-Za-z0-9+/]{20,}={0,2}`)
})
