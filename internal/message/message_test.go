package message

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	sys := SystemImmutable("You are a helpful assistant")
	assert.True(t, sys.IsSystem())
	assert.True(t, sys.Immutable)

	usr := UserWithTaint("my email is a@b.example", []string{"email"})
	assert.True(t, usr.IsUser())
	assert.Equal(t, []string{"email"}, usr.Taint)

	tool := Tool("read_file", "file contents")
	assert.Equal(t, RoleTool, tool.Role)
	assert.Equal(t, "read_file", tool.ToolName)
}

func TestUserIndicesAndContent(t *testing.T) {
	m := New(
		System("instructions"),
		User("first question"),
		Tool("web_fetch", "page body"),
		User("second question"),
	)

	assert.Equal(t, []int{1, 3}, m.UserIndices())
	assert.Equal(t, "first question\nsecond question", m.UserContent())
}

func TestSetContentRespectsImmutableSystem(t *testing.T) {
	m := New(SystemImmutable("locked"), System("unlocked"), User("hello"))

	err := m.SetContent(0, "overwritten")
	require.Error(t, err)
	assert.Equal(t, "locked", m.Segments[0].Content)

	require.NoError(t, m.SetContent(1, "rewritten"))
	assert.Equal(t, "rewritten", m.Segments[1].Content)

	assert.Error(t, m.SetContent(99, "x"))
}

func TestAppendAndAssistantContent(t *testing.T) {
	m := FromUser("hello")
	m.Append(Assistant("hi there"))
	m.Append(Assistant("anything else?"))

	assert.Equal(t, []string{"hi there", "anything else?"}, m.AssistantContent())
	assert.Len(t, m.Segments, 3)
}

func TestTaintLabelsDeduplicated(t *testing.T) {
	m := New(
		UserWithTaint("a", []string{"email", "phone"}),
		UserWithTaint("b", []string{"email"}),
	)
	assert.ElementsMatch(t, []string{"email", "phone"}, m.TaintLabels())
}

func TestNewCanaryToken(t *testing.T) {
	a := NewCanaryToken()
	b := NewCanaryToken()
	assert.True(t, strings.HasPrefix(a, "AGENTGATE-CANARY-"))
	assert.NotEqual(t, a, b)
}
