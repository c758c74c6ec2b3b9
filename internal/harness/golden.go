package harness

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/histories/internal/canonical"
)

// MarshalTrace renders a trace as canonical JSON lines: a header naming the
// scenario, then one line per event.
func MarshalTrace(scenarioName string, trace []TraceEvent) ([]byte, error) {
	var buf bytes.Buffer

	header, err := canonical.Marshal(map[string]any{"scenario": scenarioName})
	if err != nil {
		return nil, err
	}
	buf.Write(header)
	buf.WriteByte('\n')

	for _, ev := range trace {
		line, err := canonical.Marshal(ev.canonicalMap())
		if err != nil {
			return nil, fmt.Errorf("trace event %d: %w", ev.Seq, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func (ev TraceEvent) canonicalMap() map[string]any {
	m := map[string]any{
		"seq": ev.Seq,
		"op":  ev.Op,
	}
	if ev.Alias != "" {
		m["alias"] = ev.Alias
	}
	if ev.Args != nil {
		m["args"] = ev.Args
	}
	if ev.Result != nil {
		m["result"] = ev.Result
	}
	if ev.Error != "" {
		m["error"] = ev.Error
	}
	return m
}

// GoldenPath returns the golden file for a scenario under dir.
func GoldenPath(dir, scenarioName string) string {
	return filepath.Join(dir, scenarioName+".golden")
}

// CompareGolden checks a rendered trace against dir/<name>.golden.
// With update set, the golden file is rewritten instead.
func CompareGolden(dir, scenarioName string, trace []byte, update bool) error {
	path := GoldenPath(dir, scenarioName)
	if update {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
		return os.WriteFile(path, trace, 0644)
	}

	want, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read golden file: %w", err)
	}
	if !bytes.Equal(want, trace) {
		return fmt.Errorf("trace differs from %s", path)
	}
	return nil
}

// RunWithGolden executes a scenario and compares the trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}

	trace, err := MarshalTrace(scenario.Name, result.Trace)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, trace)

	return result, nil
}
