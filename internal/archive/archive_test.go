package archive

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/histories/internal/history"
	"github.com/roach88/histories/internal/store"
	"github.com/roach88/histories/internal/testutil"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:", store.WithIDGenerator(history.NewSequenceGenerator("rec")))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedThree(t *testing.T, s *store.Store) {
	t.Helper()
	ctx := context.Background()
	seq := testutil.NewTimestampSequence(testutil.Epoch, time.Minute)

	drafts := []history.Draft{
		{Host: "alpha", Topic: "deploy", Message: ""},
		{Host: "beta", Topic: "build", Message: "line1\nline2"},
		{Host: "alpha", Topic: "deploy", Message: "<b>done</b> & shipped"},
	}
	for _, d := range drafts {
		d.CreatedAt = seq.Next()
		_, err := s.Insert(ctx, d)
		require.NoError(t, err)
	}
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestExport_Golden(t *testing.T) {
	s := openStore(t)
	seedThree(t, s)

	var buf bytes.Buffer
	a, err := Export(context.Background(), s, &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, a.Count)

	newGoldie(t).Assert(t, "export_three", buf.Bytes())
}

func TestExport_EmptyStore(t *testing.T) {
	s := openStore(t)

	var buf bytes.Buffer
	a, err := Export(context.Background(), s, &buf)
	require.NoError(t, err)
	assert.Equal(t, 0, a.Count)
	assert.Empty(t, a.Records)

	newGoldie(t).Assert(t, "export_empty", buf.Bytes())
}

func TestExport_Deterministic(t *testing.T) {
	s := openStore(t)
	seedThree(t, s)

	var first, second bytes.Buffer
	_, err := Export(context.Background(), s, &first)
	require.NoError(t, err)
	_, err = Export(context.Background(), s, &second)
	require.NoError(t, err)

	assert.Equal(t, first.String(), second.String())
}

func TestExport_SourceError(t *testing.T) {
	boom := history.NewStorageError("list all", errors.New("disk gone"))
	var buf bytes.Buffer

	_, err := Export(context.Background(), failingSource{err: boom}, &buf)
	require.Error(t, err)
	assert.True(t, history.IsStorageUnavailable(err))
	assert.Zero(t, buf.Len(), "nothing written on failure")
}

func TestRoundTrip_ExportParseImport(t *testing.T) {
	src := openStore(t)
	seedThree(t, src)

	var buf bytes.Buffer
	exported, err := Export(context.Background(), src, &buf)
	require.NoError(t, err)

	parsed, err := Parse("export.json", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, exported, parsed)

	dst, err := store.Open(":memory:", store.WithIDGenerator(history.NewSequenceGenerator("new")))
	require.NoError(t, err)
	defer dst.Close()

	stored, err := Import(context.Background(), dst, parsed)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	assert.Equal(t, "new-000001", stored[0].ID)
	assert.Equal(t, "", stored[0].Message, "oldest record inserted first")

	got, err := dst.ListRecent(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)

	want, err := src.ListRecent(context.Background())
	require.NoError(t, err)
	for i := range want {
		assert.NotEqual(t, want[i].ID, got[i].ID, "ids are reassigned")
		assert.Equal(t, want[i].Host, got[i].Host)
		assert.Equal(t, want[i].Topic, got[i].Topic)
		assert.Equal(t, want[i].Message, got[i].Message)
		assert.True(t, want[i].CreatedAt.Equal(got[i].CreatedAt))
	}
}

func TestRoundTrip_YearBounds(t *testing.T) {
	ctx := context.Background()
	src := openStore(t)

	for _, createdAt := range []string{"253402300799999", "-62167219200000"} {
		_, err := src.Insert(ctx, history.Draft{Host: "h", CreatedAt: createdAt})
		require.NoError(t, err)
	}
	_, err := src.Insert(ctx, history.Draft{Host: "h", CreatedAt: "253402300800000"})
	require.True(t, history.IsValidation(err), "got %v", err)

	var buf bytes.Buffer
	_, err = Export(ctx, src, &buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"created_at":"9999-12-31T23:59:59.999Z"`)
	assert.Contains(t, buf.String(), `"created_at":"0000-01-01T00:00:00.000Z"`)

	parsed, err := Parse("bounds.json", buf.Bytes())
	require.NoError(t, err)

	dst := openStore(t)
	stored, err := Import(ctx, dst, parsed)
	require.NoError(t, err)
	require.Len(t, stored, 2)

	n, err := dst.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestImport_PreservesTieOrder(t *testing.T) {
	src := openStore(t)
	ctx := context.Background()
	for _, m := range []string{"first", "second", "third"} {
		_, err := src.Insert(ctx, history.Draft{Message: m, CreatedAt: "2024-01-01T00:00:00Z"})
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	a, err := Export(ctx, src, &buf)
	require.NoError(t, err)

	dst := openStore(t)
	_, err = Import(ctx, dst, a)
	require.NoError(t, err)

	got, err := dst.ListRecent(ctx)
	require.NoError(t, err)
	var messages []string
	for _, r := range got {
		messages = append(messages, r.Message)
	}
	assert.Equal(t, []string{"third", "second", "first"}, messages)
}

func TestImport_StopsAtFirstFailure(t *testing.T) {
	a := &Archive{
		Format: Format,
		Count:  3,
		Records: []Entry{
			{ID: "c", CreatedAt: "2024-01-03"},
			{ID: "b", CreatedAt: "not a date"},
			{ID: "a", CreatedAt: "2024-01-01"},
		},
	}

	dst := openStore(t)
	stored, err := Import(context.Background(), dst, a)
	require.Error(t, err)
	assert.True(t, history.IsValidation(err))
	assert.Contains(t, err.Error(), `"b"`)
	require.Len(t, stored, 1)

	n, err := dst.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestImport_RejectsBadCount(t *testing.T) {
	a := &Archive{Format: Format, Count: 2, Records: []Entry{{ID: "a", CreatedAt: "2024-01-01"}}}

	_, err := Import(context.Background(), openStore(t), a)
	require.Error(t, err)
	assert.True(t, history.IsValidation(err))
}

func TestVerify(t *testing.T) {
	a, err := New([]history.Record{{
		ID:        "x",
		Host:      "h",
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}})
	require.NoError(t, err)
	require.NoError(t, a.Verify())

	a.Records[0].Host = "tampered"
	err = a.Verify()
	assert.ErrorContains(t, err, "digest mismatch")

	a.Digest = ""
	assert.NoError(t, a.Verify(), "digest is optional")

	a.Format = "other/v1"
	assert.ErrorContains(t, a.Verify(), "unsupported format")
}

func TestDigest_ContentNotNormalised(t *testing.T) {
	composed := []Entry{{ID: "x", Message: "caf\u00e9", CreatedAt: "2024-01-01T00:00:00.000Z"}}
	decomposed := []Entry{{ID: "x", Message: "cafe\u0301", CreatedAt: "2024-01-01T00:00:00.000Z"}}

	d1, err := Digest(composed)
	require.NoError(t, err)
	d2, err := Digest(decomposed)
	require.NoError(t, err)

	assert.NotEqual(t, d1, d2)
	assert.True(t, strings.HasPrefix(d1, "sha256:"))
	assert.Len(t, d1, len("sha256:")+64)
}

type failingSource struct{ err error }

func (f failingSource) All(context.Context) ([]history.Record, error) { return nil, f.err }
