// Package message provides typed message segments that keep system
// instructions, user content, tool output and assistant output separate, so
// injection scanning can target only the at-risk segments.
package message

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Role tags a segment with its origin.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleTool      Role = "tool"
	RoleAssistant Role = "assistant"
)

// Segment is one typed unit of a structured message. Only User segments are
// injection-scanned; System segments with Immutable set are never mutated.
type Segment struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// Immutable marks a system segment that cannot be rewritten later.
	Immutable bool `json:"immutable,omitempty"`
	// Taint holds taint labels attached to user content.
	Taint []string `json:"taint,omitempty"`
	// ToolName names the tool that produced a tool segment.
	ToolName string `json:"tool_name,omitempty"`
	// SourceSegments lists input segment indices that influenced an
	// assistant segment (best-effort attribution).
	SourceSegments []int `json:"source_segments,omitempty"`
}

func System(content string) Segment {
	return Segment{Role: RoleSystem, Content: content}
}

func SystemImmutable(content string) Segment {
	return Segment{Role: RoleSystem, Content: content, Immutable: true}
}

func User(content string) Segment {
	return Segment{Role: RoleUser, Content: content}
}

func UserWithTaint(content string, taint []string) Segment {
	return Segment{Role: RoleUser, Content: content, Taint: taint}
}

func Tool(toolName, content string) Segment {
	return Segment{Role: RoleTool, Content: content, ToolName: toolName}
}

func Assistant(content string) Segment {
	return Segment{Role: RoleAssistant, Content: content}
}

func (s Segment) IsUser() bool   { return s.Role == RoleUser }
func (s Segment) IsSystem() bool { return s.Role == RoleSystem }

// StructuredMessage is an ordered list of segments built per agent turn.
// Segments may be appended (assistant replies, tool results); existing
// segments are not replaced, except through SetContent which refuses
// immutable system segments.
type StructuredMessage struct {
	Segments    []Segment `json:"segments"`
	CanaryToken string    `json:"canary_token,omitempty"`
}

// New creates a structured message from segments.
func New(segments ...Segment) *StructuredMessage {
	return &StructuredMessage{Segments: segments}
}

// FromUser creates a single-segment user message, the most common case.
func FromUser(content string) *StructuredMessage {
	return New(User(content))
}

// WithCanary attaches a canary token for prompt-leakage detection.
func (m *StructuredMessage) WithCanary(token string) *StructuredMessage {
	m.CanaryToken = token
	return m
}

// Append adds segments to the end of the message.
func (m *StructuredMessage) Append(segments ...Segment) {
	m.Segments = append(m.Segments, segments...)
}

// SetContent rewrites a segment's content. Immutable system segments refuse
// the rewrite.
func (m *StructuredMessage) SetContent(i int, content string) error {
	if i < 0 || i >= len(m.Segments) {
		return fmt.Errorf("segment index %d out of range", i)
	}
	seg := &m.Segments[i]
	if seg.IsSystem() && seg.Immutable {
		return fmt.Errorf("segment %d is an immutable system segment", i)
	}
	seg.Content = content
	return nil
}

// UserIndices returns the indices of all user segments, in order.
func (m *StructuredMessage) UserIndices() []int {
	var out []int
	for i, s := range m.Segments {
		if s.IsUser() {
			out = append(out, i)
		}
	}
	return out
}

// UserContent joins all user segment content with newlines, for callers that
// expect a single string.
func (m *StructuredMessage) UserContent() string {
	var parts []string
	for _, s := range m.Segments {
		if s.IsUser() {
			parts = append(parts, s.Content)
		}
	}
	return strings.Join(parts, "\n")
}

// AssistantContent returns the content of all assistant segments, in order.
func (m *StructuredMessage) AssistantContent() []string {
	var out []string
	for _, s := range m.Segments {
		if s.Role == RoleAssistant {
			out = append(out, s.Content)
		}
	}
	return out
}

// TaintLabels collects the distinct taint labels across user segments.
func (m *StructuredMessage) TaintLabels() []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range m.Segments {
		for _, label := range s.Taint {
			if !seen[label] {
				seen[label] = true
				out = append(out, label)
			}
		}
	}
	return out
}

// NewCanaryToken generates a fresh canary marker for embedding in system
// segments. The prefix makes an accidental collision with normal output
// implausible.
func NewCanaryToken() string {
	return "AGENTGATE-CANARY-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
