package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/histories/internal/history"
	"github.com/roach88/histories/internal/testutil"
)

// createTestStore creates a new file-backed store in a temp dir for testing.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// insertN inserts n records with strictly increasing created_at values.
func insertN(t *testing.T, s *Store, n int) []history.Record {
	t.Helper()
	seq := testutil.NewTimestampSequence(testutil.Epoch, time.Minute)
	records := make([]history.Record, 0, n)
	for i := 0; i < n; i++ {
		rec, err := s.Insert(context.Background(), history.Draft{
			Host:      "host",
			Topic:     "topic",
			Message:   "message",
			CreatedAt: seq.Next(),
		})
		if err != nil {
			t.Fatalf("Insert() #%d failed: %v", i, err)
		}
		records = append(records, rec)
	}
	return records
}

func recordIDs(records []history.Record) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids
}
