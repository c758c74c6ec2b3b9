package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) *Scenario {
	t.Helper()
	sc, err := ParseScenario([]byte(src))
	require.NoError(t, err)
	return sc
}

func TestRun_AllScenariosPass(t *testing.T) {
	scenarios, err := LoadDir("testdata/scenarios")
	require.NoError(t, err)

	for _, sc := range scenarios {
		t.Run(sc.Name, func(t *testing.T) {
			result, err := Run(context.Background(), sc)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
		})
	}
}

func TestRun_TraceSequence(t *testing.T) {
	sc := mustParse(t, `
name: seq
description: d
steps:
  - op: insert
    as: a
    args: { host: h, topic: t, message: m, created_at: "2024-01-01" }
  - op: count
  - op: delete
    ref: a
`)
	result, err := Run(context.Background(), sc)
	require.NoError(t, err)
	require.Len(t, result.Trace, 3)

	for i, ev := range result.Trace {
		assert.Equal(t, int64(i+1), ev.Seq)
	}
	assert.Equal(t, "a", result.Trace[0].Alias)
	assert.Equal(t, int64(1), result.Trace[1].Result)
	assert.Equal(t, map[string]any{"_id": "rec-000001"}, result.Trace[2].Args)
	assert.Equal(t, int64(1), result.Trace[2].Result)
}

func TestRun_ReportsMismatches(t *testing.T) {
	sc := mustParse(t, `
name: mismatches
description: d
steps:
  - op: insert
    as: a
    args: { created_at: "2024-01-01" }
    expect: { error: VALIDATION_ERROR }
  - op: insert
    as: b
    args: { created_at: "2024-01-02" }
  - op: list
    expect: { count: 3, refs: [a, b] }
  - op: delete
    id: missing
    expect: { deleted: 1 }
  - op: count
    expect: { count: 5 }
`)
	result, err := Run(context.Background(), sc)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 5)

	assert.Contains(t, result.Errors[0], "expected error VALIDATION_ERROR, got success")
	assert.Contains(t, result.Errors[1], "expected 3 records, got 2")
	assert.Contains(t, result.Errors[2], "expected order [a, b], got [b, a]")
	assert.Contains(t, result.Errors[3], "expected 1 deleted, got 0")
	assert.Contains(t, result.Errors[4], "expected 5 records, got 2")
}

func TestRun_UnexpectedError(t *testing.T) {
	sc := mustParse(t, `
name: unexpected
description: d
steps:
  - op: insert
    as: a
    args: { created_at: "whenever" }
  - op: delete
    ref: a
`)
	result, err := Run(context.Background(), sc)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "steps[0] insert: unexpected error")
	assert.Contains(t, result.Errors[1], `steps[1] delete: ref "a" was never stored`)

	require.Len(t, result.Trace, 1)
	assert.Equal(t, "VALIDATION_ERROR", result.Trace[0].Error)
}

func TestRun_RepeatWithInvalidBase(t *testing.T) {
	sc := mustParse(t, `
name: repeat_invalid
description: d
steps:
  - op: insert
    as: r
    repeat: 2
    interval: 1m
    args: { created_at: "bogus" }
    expect: { error: VALIDATION_ERROR }
  - op: count
    expect: { count: 0 }
`)
	result, err := Run(context.Background(), sc)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 3)
	assert.Equal(t, "r1", result.Trace[0].Alias)
	assert.Equal(t, "r2", result.Trace[1].Alias)
}

func TestRun_IsolatedStores(t *testing.T) {
	sc := mustParse(t, `
name: isolated
description: d
steps:
  - op: insert
    args: { created_at: "2024-01-01" }
  - op: count
    expect: { count: 1 }
`)
	for i := 0; i < 2; i++ {
		result, err := Run(context.Background(), sc)
		require.NoError(t, err)
		assert.True(t, result.Pass, "run %d: %v", i, result.Errors)
	}
}
