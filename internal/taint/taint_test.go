package taint

import (
	"encoding/base64"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentgate/agentgate/internal/config"
)

func TestRegisterAndDetectExact(t *testing.T) {
	r := NewRegistry()
	id := r.Register("s1", "secret123", TypeAPIKey, config.HighlySensitive)
	require.NotEmpty(t, id)

	matches := r.Detect("The API key is secret123 here")
	require.Len(t, matches, 1)
	assert.Equal(t, id, matches[0].TaintID)
	assert.Equal(t, "secret123", matches[0].MatchedVariant)
	assert.Equal(t, 15, matches[0].Start)
	assert.Equal(t, 24, matches[0].End)
}

func TestRegisterEmptyValueRejected(t *testing.T) {
	r := NewRegistry()
	assert.Empty(t, r.Register("s1", "", TypeAPIKey, config.Sensitive))
	assert.Equal(t, 0, r.Len())
}

func TestDetectVariants(t *testing.T) {
	r := NewRegistry()
	r.Register("s1", "sk-abc123xyz", TypeAPIKey, config.HighlySensitive)

	encoded := base64.StdEncoding.EncodeToString([]byte("sk-abc123xyz"))
	tests := map[string]string{
		"base64":   "key: " + encoded,
		"hex":      "hex form " + VariantHex("sk-abc123xyz"),
		"percent":  "url " + VariantPercent("sk-abc123xyz"),
		"reversed": "backwards zyx321cba-ks",
		"stripped": "packed skabc123xyz end",
	}
	for name, text := range tests {
		assert.True(t, r.Contains(text), name)
	}
	assert.False(t, r.Contains("nothing sensitive here"))
}

func TestRedactMask(t *testing.T) {
	r := NewRegistry()
	r.Register("s1", "secret123", TypeAPIKey, config.HighlySensitive)

	got := r.Redact("key secret123 end", config.RedactMask)
	assert.Equal(t, "key ********* end", got)
}

func TestRedactRemove(t *testing.T) {
	r := NewRegistry()
	r.Register("s1", "secret123", TypeAPIKey, config.HighlySensitive)

	got := r.Redact("key secret123 end", config.RedactRemove)
	assert.Equal(t, "key [REDACTED] end", got)
}

func TestRedactHashDeterministic(t *testing.T) {
	r := NewRegistry()
	r.Register("s1", "secret123", TypeAPIKey, config.HighlySensitive)

	first := r.Redact("secret123", config.RedactHash)
	second := r.Redact("again secret123", config.RedactHash)

	assert.Regexp(t, `^\[HASH:[0-9a-f]{8}\]$`, first)
	assert.True(t, strings.HasSuffix(second, first), "same input must hash to the same token")
}

func TestRedactLongestMatchWins(t *testing.T) {
	r := NewRegistry()
	r.Register("s1", "abc123", TypeAPIKey, config.Sensitive)
	r.Register("s1", "abc123def456", TypeAPIKey, config.HighlySensitive)

	got := r.Redact("token abc123def456 end", config.RedactMask)
	assert.Equal(t, "token "+strings.Repeat("*", len("abc123def456"))+" end", got)
	assert.NotContains(t, got, "def456")
}

func TestRedactMultipleOccurrences(t *testing.T) {
	r := NewRegistry()
	r.Register("s1", "secret123", TypeAPIKey, config.Sensitive)

	got := r.Redact("secret123 and secret123", config.RedactRemove)
	assert.Equal(t, "[REDACTED] and [REDACTED]", got)
}

func TestRedactCleanTextUnchanged(t *testing.T) {
	r := NewRegistry()
	r.Register("s1", "secret123", TypeAPIKey, config.Sensitive)

	in := "perfectly ordinary text"
	assert.Equal(t, in, r.Redact(in, config.RedactMask))
}

func TestWipeSession(t *testing.T) {
	r := NewRegistry()
	r.Register("a", "secret123", TypeAPIKey, config.Sensitive)
	r.Register("a", "4111-1111-1111-1111", TypeCreditCard, config.HighlySensitive)
	r.Register("b", "other-secret", TypePassword, config.HighlySensitive)

	removed := r.WipeSession("a")
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, r.Len())
	assert.False(t, r.Contains("secret123"))
	assert.True(t, r.Contains("other-secret"))

	// Idempotent.
	assert.Equal(t, 0, r.WipeSession("a"))
}

func TestCustomVariantFunc(t *testing.T) {
	rot13 := func(s string) string {
		return strings.Map(func(r rune) rune {
			switch {
			case r >= 'a' && r <= 'z':
				return 'a' + (r-'a'+13)%26
			case r >= 'A' && r <= 'Z':
				return 'A' + (r-'A'+13)%26
			}
			return r
		}, s)
	}
	r := NewRegistryWithVariants(append(DefaultVariants(), rot13))
	r.Register("s1", "secret", TypePassword, config.Sensitive)

	assert.True(t, r.Contains("the word frperg appears"))
}

func TestConcurrentDetectAndWipe(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 20; i++ {
		r.Register("s1", "secret-value-1234567890", TypeAPIKey, config.Sensitive)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Detect("text with secret-value-1234567890 inside")
				r.Contains("secret-value-1234567890")
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.WipeSession("s1")
	}()
	wg.Wait()

	assert.Equal(t, 0, r.Len())
}

func TestTypeLabel(t *testing.T) {
	assert.Equal(t, "API_KEY", TypeAPIKey.Label())
	assert.Equal(t, "MY_TOKEN", Type("my_token").Label())
}
