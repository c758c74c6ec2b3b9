// Package historytest provides a conformance suite for history.Backend
// implementations.
package historytest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/histories/internal/history"
	"github.com/roach88/histories/internal/testutil"
)

// OpenFunc returns an empty backend. The suite closes it when the subtest ends.
type OpenFunc func(t *testing.T) history.Backend

// Run exercises the list-recent, insert and delete contract against backends
// produced by open. Each subtest gets a fresh backend.
func Run(t *testing.T, open OpenFunc) {
	cases := []struct {
		name string
		fn   func(t *testing.T, b history.Backend)
	}{
		{"RoundTrip", testRoundTrip},
		{"UniqueIDs", testUniqueIDs},
		{"CapAndOrder", testCapAndOrder},
		{"DeleteUnknown", testDeleteUnknown},
		{"DeleteKnown", testDeleteKnown},
		{"DeleteMiddle", testDeleteMiddle},
		{"InvalidTimestamp", testInvalidTimestamp},
		{"StableTieBreak", testStableTieBreak},
		{"ConcurrentInserts", testConcurrentInserts},
		{"Span", testSpan},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := open(t)
			t.Cleanup(func() { b.Close() })
			tc.fn(t, b)
		})
	}
}

func testRoundTrip(t *testing.T, b history.Backend) {
	ctx := context.Background()

	rec, err := b.Insert(ctx, history.Draft{Host: "h", Topic: "t", Message: "m", CreatedAt: "2024-01-01T00:00:00Z"})
	require.NoError(t, err)
	require.NotEmpty(t, rec.ID)

	got, err := b.ListRecent(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, rec.ID, got[0].ID)
	assert.Equal(t, "h", got[0].Host)
	assert.Equal(t, "t", got[0].Topic)
	assert.Equal(t, "m", got[0].Message)
	assert.True(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Equal(got[0].CreatedAt),
		"created_at = %s", got[0].CreatedAt)
}

func testUniqueIDs(t *testing.T, b history.Backend) {
	ctx := context.Background()
	seen := map[string]bool{}
	for i := 0; i < 30; i++ {
		rec, err := b.Insert(ctx, history.Draft{CreatedAt: "2024-01-01T00:00:00Z"})
		require.NoError(t, err)
		assert.False(t, seen[rec.ID], "duplicate id %s", rec.ID)
		seen[rec.ID] = true
	}
}

func testCapAndOrder(t *testing.T, b history.Backend) {
	ctx := context.Background()
	seq := testutil.NewTimestampSequence(testutil.Epoch, time.Hour)

	var inserted []history.Record
	for i := 0; i < 12; i++ {
		rec, err := b.Insert(ctx, history.Draft{Message: "m", CreatedAt: seq.Next()})
		require.NoError(t, err)
		inserted = append(inserted, rec)
	}

	got, err := b.ListRecent(ctx)
	require.NoError(t, err)
	require.Len(t, got, history.RecentLimit)

	for i := 1; i < len(got); i++ {
		assert.False(t, got[i-1].CreatedAt.Before(got[i].CreatedAt), "not descending at %d", i)
	}
	for i, rec := range got {
		assert.Equal(t, inserted[11-i].ID, rec.ID)
	}
}

func testDeleteUnknown(t *testing.T, b history.Backend) {
	ctx := context.Background()
	_, err := b.Insert(ctx, history.Draft{CreatedAt: "2024-01-01"})
	require.NoError(t, err)

	for _, id := range []string{"never-issued", ""} {
		n, err := b.Delete(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(0), n, "delete %q", id)
	}

	count, err := b.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func testDeleteKnown(t *testing.T, b history.Backend) {
	ctx := context.Background()
	rec, err := b.Insert(ctx, history.Draft{CreatedAt: "2024-01-01"})
	require.NoError(t, err)

	n, err := b.Delete(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := b.ListRecent(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	n, err = b.Delete(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func testDeleteMiddle(t *testing.T, b history.Backend) {
	ctx := context.Background()
	seq := testutil.NewTimestampSequence(testutil.Epoch, time.Minute)

	var recs []history.Record
	for i := 0; i < 3; i++ {
		rec, err := b.Insert(ctx, history.Draft{CreatedAt: seq.Next()})
		require.NoError(t, err)
		recs = append(recs, rec)
	}

	n, err := b.Delete(ctx, recs[1].ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	got, err := b.ListRecent(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, recs[2].ID, got[0].ID)
	assert.Equal(t, recs[0].ID, got[1].ID)
}

func testInvalidTimestamp(t *testing.T, b history.Backend) {
	ctx := context.Background()

	_, err := b.Insert(ctx, history.Draft{Host: "h", CreatedAt: "not a timestamp"})
	require.Error(t, err)
	assert.True(t, history.IsValidation(err))

	count, err := b.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func testStableTieBreak(t *testing.T, b history.Backend) {
	ctx := context.Background()
	var ids []string
	for i := 0; i < 4; i++ {
		rec, err := b.Insert(ctx, history.Draft{CreatedAt: "2024-01-01T00:00:00Z"})
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}

	first, err := b.ListRecent(ctx)
	require.NoError(t, err)
	require.Len(t, first, 4)
	assert.Equal(t, ids[3], first[0].ID, "most recently inserted record first")
	assert.Equal(t, ids[0], first[3].ID)

	for i := 0; i < 3; i++ {
		again, err := b.ListRecent(ctx)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func testConcurrentInserts(t *testing.T, b history.Backend) {
	ctx := context.Background()
	const n = 16

	var mu sync.Mutex
	ids := map[string]bool{}
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := b.Insert(ctx, history.Draft{Host: "concurrent", CreatedAt: "2024-01-01T00:00:00Z"})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			ids[rec.ID] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, ids, n)

	all, err := b.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, n)
	for _, r := range all {
		assert.True(t, ids[r.ID])
	}
}

func testSpan(t *testing.T, b history.Backend) {
	ctx := context.Background()

	span, err := b.Span(ctx)
	require.NoError(t, err)
	assert.Equal(t, history.Span{}, span)

	for _, createdAt := range []string{"2024-03-01T00:00:00Z", "2024-01-01T00:00:00Z", "2024-02-01T00:00:00Z"} {
		_, err := b.Insert(ctx, history.Draft{CreatedAt: createdAt})
		require.NoError(t, err)
	}

	span, err = b.Span(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), span.Count)
	assert.True(t, span.Oldest.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)), "oldest %v", span.Oldest)
	assert.True(t, span.Newest.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)), "newest %v", span.Newest)
}
