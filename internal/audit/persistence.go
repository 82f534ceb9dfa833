package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store persists signed audit events to SQLite. Every appended event is
// wrapped by the integrity chain, so the on-disk trail is verifiable end to
// end even across restarts.
type Store struct {
	db    *sql.DB
	chain *IntegrityChain
}

// OpenStore opens (creating if needed) the audit database at path and resumes
// the integrity chain from the last persisted entry.
func OpenStore(path string, key []byte) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	chain, err := NewIntegrityChain(key)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, chain: chain}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.resumeChain(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS audit_events (
			sequence INTEGER PRIMARY KEY,
			event_id TEXT NOT NULL,
			ts_unix_ms INTEGER NOT NULL,
			session_id TEXT NOT NULL,
			type TEXT NOT NULL,
			severity TEXT NOT NULL,
			action TEXT NOT NULL,
			prev_hash TEXT NOT NULL,
			entry_hash TEXT NOT NULL,
			payload_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audit_session_ts ON audit_events(session_id, ts_unix_ms);`,
		`CREATE INDEX IF NOT EXISTS idx_audit_type_ts ON audit_events(type, ts_unix_ms);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) resumeChain(ctx context.Context) error {
	var seq sql.NullInt64
	var prevHash sql.NullString
	row := s.db.QueryRowContext(ctx,
		`SELECT sequence, entry_hash FROM audit_events ORDER BY sequence DESC LIMIT 1;`)
	if err := row.Scan(&seq, &prevHash); err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return fmt.Errorf("read chain state: %w", err)
	}
	s.chain.Restore(seq.Int64, prevHash.String)
	return nil
}

// Append signs and persists one event.
func (s *Store) Append(ctx context.Context, ev Event) error {
	if ev.ID == "" {
		return fmt.Errorf("event missing id")
	}
	signed, err := s.chain.WrapEvent(ev)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(signed.Event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_events(
			sequence, event_id, ts_unix_ms, session_id, type, severity, action,
			prev_hash, entry_hash, payload_json
		) VALUES(?,?,?,?,?,?,?,?,?,?);`,
		signed.Sequence, ev.ID, ev.Timestamp, ev.SessionID, string(ev.Type),
		ev.Severity.String(), string(ev.Action),
		signed.PrevHash, signed.EntryHash, string(payload))
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// Run drains a broker subscription into the store until the channel closes.
// Persistence failures are counted and logged; the stream is never stalled.
func (s *Store) Run(ctx context.Context, ch <-chan Event) {
	for ev := range ch {
		if err := s.Append(ctx, ev); err != nil {
			persistErrorsTotal.Inc()
			slog.Error("audit persist failed", "error", err, "event_id", ev.ID)
		}
	}
}

// Recent returns up to limit persisted events, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]SignedEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT sequence, prev_hash, entry_hash, payload_json
		FROM audit_events ORDER BY sequence DESC LIMIT ?;`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer rows.Close()
	return scanSigned(rows)
}

// BySession returns all persisted events for a session in chain order.
func (s *Store) BySession(ctx context.Context, sessionID string) ([]SignedEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sequence, prev_hash, entry_hash, payload_json
		FROM audit_events WHERE session_id = ? ORDER BY sequence ASC;`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}
	defer rows.Close()
	return scanSigned(rows)
}

// VerifyIntegrity re-reads the whole trail in chain order and verifies it
// against the key. Returns the sequence of the first corrupt entry, or 0.
func (s *Store) VerifyIntegrity(ctx context.Context, key []byte) (int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sequence, prev_hash, entry_hash, payload_json
		FROM audit_events ORDER BY sequence ASC;`)
	if err != nil {
		return 0, fmt.Errorf("query all: %w", err)
	}
	defer rows.Close()
	events, err := scanSigned(rows)
	if err != nil {
		return 0, err
	}
	return VerifyChain(key, events)
}

func scanSigned(rows *sql.Rows) ([]SignedEvent, error) {
	var out []SignedEvent
	for rows.Next() {
		var se SignedEvent
		var payload string
		if err := rows.Scan(&se.Sequence, &se.PrevHash, &se.EntryHash, &payload); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &se.Event); err != nil {
			return nil, fmt.Errorf("decode audit payload: %w", err)
		}
		out = append(out, se)
	}
	return out, rows.Err()
}
