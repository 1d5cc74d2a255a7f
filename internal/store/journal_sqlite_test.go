package store

import (
	"context"
	"path/filepath"
	"testing"
)

func TestJournal_AppendAndTail(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "journal.db")
	j, err := OpenJournal(ctx, path)
	if err != nil {
		t.Fatalf("OpenJournal: %v", err)
	}
	defer j.Close()

	types := []string{"drop", "toggle", "drop", "reset"}
	for _, typ := range types {
		e, err := j.Append(ctx, JournalEntry{Type: typ, SourceID: "wbs-1", Status: "applied"})
		if err != nil {
			t.Fatalf("Append(%s): %v", typ, err)
		}
		if e.ID == "" || e.SessionID != j.Session() || e.TS.IsZero() {
			t.Fatalf("entry not filled: %+v", e)
		}
	}
	if _, err := j.Append(ctx, JournalEntry{Type: "drop", Status: "rejected", Reason: string(ReasonCyclicMove), Payload: map[string]any{"index": 2}}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	tail, err := j.Tail(ctx, 3)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(tail) != 3 {
		t.Fatalf("tail len=%d", len(tail))
	}
	if tail[0].Seq != 3 || tail[2].Seq != 5 {
		t.Fatalf("tail order: %d..%d", tail[0].Seq, tail[2].Seq)
	}
	last := tail[2]
	if last.Reason != string(ReasonCyclicMove) || last.Payload["index"] != float64(2) {
		t.Fatalf("last=%+v", last)
	}
}

func TestJournal_ReopenKeepsHistory(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := OpenJournal(ctx, path)
	if err != nil {
		t.Fatalf("OpenJournal: %v", err)
	}
	if _, err := j.Append(ctx, JournalEntry{Type: "reset"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	first := j.Session()
	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	j2, err := OpenJournal(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer j2.Close()
	if j2.Session() == first {
		t.Fatalf("expected a new session id")
	}
	tail, err := j2.Tail(ctx, 10)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(tail) != 1 || tail[0].SessionID != first {
		t.Fatalf("tail=%+v", tail)
	}
	if _, err := OpenJournal(ctx, "  "); err == nil {
		t.Fatalf("expected missing path error")
	}
}

func TestJournal_FailedAppendLeavesNoGap(t *testing.T) {
	ctx := context.Background()
	j, err := OpenJournal(ctx, filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("OpenJournal: %v", err)
	}
	defer j.Close()

	if _, err := j.Append(ctx, JournalEntry{ID: "fixed", Type: "drop"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := j.Append(ctx, JournalEntry{ID: "fixed", Type: "drop"}); err == nil {
		t.Fatalf("expected duplicate id to fail")
	}
	e, err := j.Append(ctx, JournalEntry{Type: "toggle"})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if e.Seq != 2 {
		t.Fatalf("seq=%d after a failed append", e.Seq)
	}
}
