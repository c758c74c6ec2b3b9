package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_Valid(t *testing.T) {
	sc, err := LoadScenario(filepath.Join("testdata", "scenarios", "delete_middle.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "delete_middle", sc.Name)
	require.Len(t, sc.Steps, 3)
	assert.Equal(t, OpInsert, sc.Steps[0].Op)
	assert.Equal(t, 3, sc.Steps[0].Repeat)
	assert.Equal(t, []string{"r1", "r2", "r3"}, sc.Steps[0].aliases())
	assert.Equal(t, "r2", sc.Steps[1].Ref)
	require.NotNil(t, sc.Steps[1].Expect.Deleted)
	assert.Equal(t, int64(1), *sc.Steps[1].Expect.Deleted)
	assert.Equal(t, []string{"r3", "r1"}, sc.Steps[2].Expect.Refs)
}

func TestLoadScenario_FileNotFound(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "malformed yaml",
			yaml:    "name: [",
			wantErr: "failed to parse YAML",
		},
		{
			name:    "unknown field",
			yaml:    "name: x\ndescription: d\nstep: []",
			wantErr: "failed to parse YAML",
		},
		{
			name:    "missing name",
			yaml:    "description: d\nsteps: [{op: count}]",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: x\nsteps: [{op: count}]",
			wantErr: "description is required",
		},
		{
			name:    "no steps",
			yaml:    "name: x\ndescription: d\nsteps: []",
			wantErr: "steps list is required",
		},
		{
			name:    "missing op",
			yaml:    "name: x\ndescription: d\nsteps: [{}]",
			wantErr: "op is required",
		},
		{
			name:    "unknown op",
			yaml:    "name: x\ndescription: d\nsteps: [{op: update}]",
			wantErr: `unknown op "update"`,
		},
		{
			name:    "insert without args",
			yaml:    "name: x\ndescription: d\nsteps: [{op: insert}]",
			wantErr: "args is required",
		},
		{
			name:    "repeat without alias",
			yaml:    "name: x\ndescription: d\nsteps: [{op: insert, repeat: 2, args: {created_at: '2024'}}]",
			wantErr: "repeat requires as",
		},
		{
			name:    "bad interval",
			yaml:    "name: x\ndescription: d\nsteps: [{op: insert, as: r, repeat: 2, interval: soon, args: {created_at: '2024'}}]",
			wantErr: "interval",
		},
		{
			name:    "delete without target",
			yaml:    "name: x\ndescription: d\nsteps: [{op: delete}]",
			wantErr: "exactly one of ref or id",
		},
		{
			name:    "delete with both targets",
			yaml:    "name: x\ndescription: d\nsteps: [{op: insert, as: r, args: {created_at: '2024'}}, {op: delete, ref: r, id: x}]",
			wantErr: "exactly one of ref or id",
		},
		{
			name:    "delete unknown ref",
			yaml:    "name: x\ndescription: d\nsteps: [{op: delete, ref: nope}]",
			wantErr: `unknown ref "nope"`,
		},
		{
			name:    "ref before insert",
			yaml:    "name: x\ndescription: d\nsteps: [{op: list, expect: {refs: [r]}}, {op: insert, as: r, args: {created_at: '2024'}}]",
			wantErr: `unknown ref "r"`,
		},
		{
			name:    "duplicate alias",
			yaml:    "name: x\ndescription: d\nsteps: [{op: insert, as: r, args: {created_at: '2024'}}, {op: insert, as: r, args: {created_at: '2024'}}]",
			wantErr: `alias "r" already bound`,
		},
		{
			name:    "deleted expectation on count",
			yaml:    "name: x\ndescription: d\nsteps: [{op: count, expect: {deleted: 1}}]",
			wantErr: "deleted only applies to delete",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadDir(t *testing.T) {
	scenarios, err := LoadDir(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for i := 1; i < len(scenarios); i++ {
		assert.Less(t, scenarios[i-1].Name, scenarios[i].Name, "sorted by file name")
	}
}

func TestLoadDir_Empty(t *testing.T) {
	_, err := LoadDir(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no scenario files")
}

func TestLoadDir_ReportsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yml"), []byte("name: x"), 0644))

	_, err := LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.yml")
}
