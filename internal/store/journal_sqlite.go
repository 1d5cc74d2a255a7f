package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// JournalEntry is one engine event as recorded for auditing. Entries are never read
// back to rebuild a tree.
type JournalEntry struct {
	ID        string         `json:"id"`
	SessionID string         `json:"sessionId"`
	Seq       int64          `json:"seq"`
	TS        time.Time      `json:"ts"`
	Type      string         `json:"type"`
	SourceID  string         `json:"sourceId,omitempty"`
	OverID    string         `json:"overId,omitempty"`
	Status    string         `json:"status,omitempty"`
	Reason    string         `json:"reason,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Journal appends engine events to a SQLite file.
type Journal struct {
	db      *sql.DB
	path    string
	session string
	seq     int64
}

func OpenJournal(ctx context.Context, path string) (*Journal, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("journal: missing path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := migrateJournal(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Journal{db: db, path: path, session: uuid.NewString()}, nil
}

func migrateJournal(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS journal (
			entry_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			ts_unixms INTEGER NOT NULL,
			type TEXT NOT NULL,
			source_id TEXT NOT NULL DEFAULT '',
			over_id TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT '',
			reason TEXT NOT NULL DEFAULT '',
			payload_json TEXT NOT NULL DEFAULT '{}'
		);`,
		`CREATE INDEX IF NOT EXISTS idx_journal_ts ON journal(ts_unixms, seq);`,
		`CREATE INDEX IF NOT EXISTS idx_journal_session ON journal(session_id, seq);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

func (j *Journal) Path() string    { return j.path }
func (j *Journal) Session() string { return j.session }

// Append stores e, filling ID, SessionID, Seq and TS when unset.
func (j *Journal) Append(ctx context.Context, e JournalEntry) (JournalEntry, error) {
	if j == nil || j.db == nil {
		return e, errors.New("journal: closed")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.SessionID == "" {
		e.SessionID = j.session
	}
	if e.Seq == 0 {
		e.Seq = j.seq + 1
	}
	if e.TS.IsZero() {
		e.TS = time.Now().UTC()
	}
	payload := []byte("{}")
	if len(e.Payload) > 0 {
		b, err := json.Marshal(e.Payload)
		if err != nil {
			return e, err
		}
		payload = b
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO journal(entry_id, session_id, seq, ts_unixms, type, source_id, over_id, status, reason, payload_json)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SessionID, e.Seq, e.TS.UnixMilli(), e.Type, e.SourceID, e.OverID, e.Status, e.Reason, string(payload),
	)
	if err != nil {
		return e, err
	}
	// Only committed entries advance the session counter.
	if e.Seq > j.seq {
		j.seq = e.Seq
	}
	return e, nil
}

// Tail returns the last limit entries, oldest first.
func (j *Journal) Tail(ctx context.Context, limit int) ([]JournalEntry, error) {
	if j == nil || j.db == nil {
		return nil, errors.New("journal: closed")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT entry_id, session_id, seq, ts_unixms, type, source_id, over_id, status, reason, payload_json
		 FROM journal ORDER BY ts_unixms DESC, seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []JournalEntry
	for rows.Next() {
		var e JournalEntry
		var ts int64
		var payload string
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Seq, &ts, &e.Type, &e.SourceID, &e.OverID, &e.Status, &e.Reason, &payload); err != nil {
			return nil, err
		}
		e.TS = time.UnixMilli(ts).UTC()
		if payload != "" && payload != "{}" {
			_ = json.Unmarshal([]byte(payload), &e.Payload)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, k := 0, len(out)-1; i < k; i, k = i+1, k-1 {
		out[i], out[k] = out[k], out[i]
	}
	return out, nil
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	return err
}
