package audit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// MinKeyLength is the minimum accepted key length for HMAC-SHA256.
const MinKeyLength = 32

// SignedEvent is an audit event carrying its position in the integrity chain.
// Each entry's hash covers the previous entry's hash, so deleting or editing
// any persisted record breaks verification of everything after it.
type SignedEvent struct {
	Event
	Sequence  int64  `json:"sequence"`
	PrevHash  string `json:"prev_hash"`
	EntryHash string `json:"entry_hash"`
}

// IntegrityChain maintains HMAC chain state for tamper-evident persistence.
type IntegrityChain struct {
	mu       sync.Mutex
	key      []byte
	sequence int64
	prevHash string
}

// NewIntegrityChain creates a chain with the given HMAC-SHA256 key.
func NewIntegrityChain(key []byte) (*IntegrityChain, error) {
	if len(key) < MinKeyLength {
		return nil, fmt.Errorf("key too short: got %d bytes, need at least %d", len(key), MinKeyLength)
	}
	return &IntegrityChain{key: key}, nil
}

// LoadKey loads an HMAC key from a file path or, failing that, an environment
// variable. Returns an error if neither source yields a key.
func LoadKey(keyFile, keyEnv string) ([]byte, error) {
	if keyFile != "" {
		data, err := os.ReadFile(keyFile)
		if err != nil {
			return nil, fmt.Errorf("read key file %q: %w", keyFile, err)
		}
		key := strings.TrimSpace(string(data))
		if key == "" {
			return nil, fmt.Errorf("key file %q is empty", keyFile)
		}
		return []byte(key), nil
	}
	if keyEnv != "" {
		key := os.Getenv(keyEnv)
		if key == "" {
			return nil, fmt.Errorf("environment variable %q is empty or not set", keyEnv)
		}
		return []byte(key), nil
	}
	return nil, errors.New("no key source specified: provide key_file or key_env")
}

// WrapEvent appends the event to the chain and returns it with integrity
// metadata. The HMAC covers sequence, previous hash, and the canonical JSON
// encoding of the event.
func (c *IntegrityChain) WrapEvent(ev Event) (SignedEvent, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return SignedEvent{}, fmt.Errorf("marshal event: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.sequence++
	entryHash := computeEntryHash(c.key, c.sequence, c.prevHash, payload)

	signed := SignedEvent{
		Event:     ev,
		Sequence:  c.sequence,
		PrevHash:  c.prevHash,
		EntryHash: entryHash,
	}
	c.prevHash = entryHash
	return signed, nil
}

// Restore resets the chain position, continuing an existing chain after a
// restart. Call before wrapping new events.
func (c *IntegrityChain) Restore(sequence int64, prevHash string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sequence = sequence
	c.prevHash = prevHash
}

// State returns the current sequence and previous hash.
func (c *IntegrityChain) State() (int64, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sequence, c.prevHash
}

// VerifyChain checks a sequence of signed events, in persisted order, against
// the key. It reports the sequence number of the first corrupted entry, or 0
// if the chain is intact.
func VerifyChain(key []byte, events []SignedEvent) (int64, error) {
	if len(key) < MinKeyLength {
		return 0, fmt.Errorf("key too short: got %d bytes, need at least %d", len(key), MinKeyLength)
	}
	prevHash := ""
	var prevSeq int64
	for _, se := range events {
		if se.Sequence != prevSeq+1 {
			return se.Sequence, fmt.Errorf("sequence gap: expected %d, got %d", prevSeq+1, se.Sequence)
		}
		if se.PrevHash != prevHash {
			return se.Sequence, fmt.Errorf("chain break at sequence %d: prev hash mismatch", se.Sequence)
		}
		payload, err := json.Marshal(se.Event)
		if err != nil {
			return se.Sequence, fmt.Errorf("marshal event at sequence %d: %w", se.Sequence, err)
		}
		want := computeEntryHash(key, se.Sequence, se.PrevHash, payload)
		if !hmac.Equal([]byte(want), []byte(se.EntryHash)) {
			return se.Sequence, fmt.Errorf("entry hash mismatch at sequence %d", se.Sequence)
		}
		prevHash = se.EntryHash
		prevSeq = se.Sequence
	}
	return 0, nil
}

// computeEntryHash computes HMAC-SHA256 over: sequence || "|" || prevHash || "|" || payload.
func computeEntryHash(key []byte, sequence int64, prevHash string, payload []byte) string {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(strconv.FormatInt(sequence, 10)))
	h.Write([]byte("|"))
	h.Write([]byte(prevHash))
	h.Write([]byte("|"))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
