package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/histories/internal/history"
)

// spanOnlyBackend answers Span and fails every record listing.
type spanOnlyBackend struct {
	history.Backend
	span history.Span
}

func (b spanOnlyBackend) Span(context.Context) (history.Span, error) { return b.span, nil }

func (spanOnlyBackend) All(context.Context) ([]history.Record, error) {
	return nil, errors.New("stats must not list records")
}

func TestCollectStats_UsesSpan(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	b := spanOnlyBackend{span: history.Span{
		Count:  2,
		Oldest: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Newest: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}}

	result, err := collectStats(cmd, b)
	require.NoError(t, err)
	assert.Equal(t, StatsResult{
		Count:  2,
		Newest: "2024-03-01T00:00:00.000Z",
		Oldest: "2024-01-01T00:00:00.000Z",
	}, result)
}

func TestStats_Text(t *testing.T) {
	db := isolate(t)
	addRecord(t, db, "a", "2024-01-01T00:00:00Z")
	addRecord(t, db, "b", "2024-03-01T00:00:00Z")

	stdout, _, code := execute(t, "stats", "--db", db)
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "Backend: sqlite "+db)
	assert.Contains(t, stdout, "Records: 2")
	assert.Contains(t, stdout, "Newest:  2024-03-01T00:00:00.000Z")
	assert.Contains(t, stdout, "Oldest:  2024-01-01T00:00:00.000Z")
}

func TestStats_EmptyJSON(t *testing.T) {
	db := isolate(t)

	stdout, _, code := execute(t, "stats", "--db", db, "--format", "json")
	require.Equal(t, ExitSuccess, code)

	var stats StatsResult
	jsonData(t, stdout, &stats)
	assert.Equal(t, StatsResult{Backend: "sqlite " + db}, stats)
}

func TestPrintStats_GroupsDigits(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(buf)

	require.NoError(t, printStats(cmd, StatsResult{
		Backend: "mongo histories.histories",
		Count:   1234567,
		Newest:  "2024-03-01T00:00:00.000Z",
		Oldest:  "2024-01-01T00:00:00.000Z",
	}))
	assert.Contains(t, buf.String(), "Records: 1,234,567")
	assert.Contains(t, buf.String(), "Backend: mongo histories.histories")
}
