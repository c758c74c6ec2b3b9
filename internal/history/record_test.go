package history

import (
	"encoding/json"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecord_CopiesFieldsVerbatim(t *testing.T) {
	rec, err := NewRecord("id-1", Draft{
		Host:      "",
		Topic:     "sensors/#",
		Message:   "  <b>raw</b>  ",
		CreatedAt: "2024-01-01T00:00:00Z",
	})
	require.NoError(t, err)

	assert.Equal(t, "id-1", rec.ID)
	assert.Equal(t, "", rec.Host)
	assert.Equal(t, "sensors/#", rec.Topic)
	assert.Equal(t, "  <b>raw</b>  ", rec.Message)
	assert.True(t, rec.CreatedAt.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestNewRecord_InvalidTimestamp(t *testing.T) {
	_, err := NewRecord("id-1", Draft{CreatedAt: "not a date"})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestRecord_JSONUsesUnderscoreID(t *testing.T) {
	rec := Record{
		ID:        "abc",
		Host:      "h",
		Topic:     "t",
		Message:   "m",
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"_id":"abc","host":"h","topic":"t","message":"m","created_at":"2024-01-01T00:00:00Z"}`, string(data))
}

func TestLess_OrdersByCreatedAtThenID(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []Record{
		{ID: "a", CreatedAt: base},
		{ID: "c", CreatedAt: base.Add(time.Second)},
		{ID: "b", CreatedAt: base},
		{ID: "d", CreatedAt: base.Add(-time.Second)},
	}

	sort.Slice(records, func(i, j int) bool { return Less(records[i], records[j]) })

	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"c", "b", "a", "d"}, ids)
}
