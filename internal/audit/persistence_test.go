package audit

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreAppendAndQuery(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "audit.db")

	s, err := OpenStore(path, testKey)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Append(ctx, NewEvent("a", EventToolBlocked, SeverityHigh, ActionBlocked, "blocked bash")))
	require.NoError(t, s.Append(ctx, NewEvent("b", EventTaintRegistered, SeverityInfo, ActionLogged, "registered")))
	require.NoError(t, s.Append(ctx, NewEvent("a", EventOutputRedacted, SeverityHigh, ActionRedacted, "redacted")))

	recent, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, int64(3), recent[0].Sequence)
	assert.Equal(t, int64(2), recent[1].Sequence)

	bySession, err := s.BySession(ctx, "a")
	require.NoError(t, err)
	require.Len(t, bySession, 2)
	assert.Equal(t, "blocked bash", bySession[0].Details)
	assert.Equal(t, "redacted", bySession[1].Details)
}

func TestStoreVerifyIntegrity(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "audit.db")

	s, err := OpenStore(path, testKey)
	require.NoError(t, err)
	defer s.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Append(ctx, NewEvent("s1", EventInjectionDetected, SeverityCritical, ActionBlocked, "injection")))
	}

	bad, err := s.VerifyIntegrity(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, int64(0), bad)

	// Tamper with one persisted payload; verification must name the entry.
	_, err = s.db.ExecContext(ctx,
		`UPDATE audit_events SET payload_json = replace(payload_json, 'injection', 'harmless') WHERE sequence = 3;`)
	require.NoError(t, err)

	bad, err = s.VerifyIntegrity(ctx, testKey)
	require.Error(t, err)
	assert.Equal(t, int64(3), bad)
}

func TestStoreResumesChainAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "audit.db")

	s1, err := OpenStore(path, testKey)
	require.NoError(t, err)
	require.NoError(t, s1.Append(ctx, NewEvent("s1", EventToolBlocked, SeverityHigh, ActionBlocked, "one")))
	require.NoError(t, s1.Close())

	s2, err := OpenStore(path, testKey)
	require.NoError(t, err)
	defer s2.Close()
	require.NoError(t, s2.Append(ctx, NewEvent("s1", EventToolBlocked, SeverityHigh, ActionBlocked, "two")))

	bad, err := s2.VerifyIntegrity(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, int64(0), bad)

	all, err := s2.BySession(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, int64(2), all[1].Sequence)
}

func TestStoreRunDrainsBroker(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "audit.db")

	s, err := OpenStore(path, testKey)
	require.NoError(t, err)
	defer s.Close()

	b := NewBroker()
	ch := b.Subscribe(8)
	done := make(chan struct{})
	go func() {
		s.Run(ctx, ch)
		close(done)
	}()

	b.Publish(NewEvent("s1", EventSessionWiped, SeverityInfo, ActionLogged, "wiped"))
	b.Close()
	<-done

	recent, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, EventSessionWiped, recent[0].Type)
}

func TestOpenStoreRejectsBadInput(t *testing.T) {
	_, err := OpenStore("", testKey)
	assert.Error(t, err)

	_, err = OpenStore(filepath.Join(t.TempDir(), "audit.db"), []byte("short"))
	assert.Error(t, err)
}
