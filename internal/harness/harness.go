package harness

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/roach88/histories/internal/history"
	"github.com/roach88/histories/internal/store"
)

// IDPrefix prefixes the sequence ids assigned during a run.
const IDPrefix = "rec"

// Run executes a scenario against a fresh in-memory store and returns the
// result. The error is non-nil only if the store could not be opened.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:", store.WithIDGenerator(history.NewSequenceGenerator(IDPrefix)))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	return Execute(ctx, st, scenario), nil
}

// Execute runs a scenario against an existing backend. Traces are only
// deterministic when the backend uses a sequence id generator.
func Execute(ctx context.Context, b history.Backend, scenario *Scenario) *Result {
	r := &runner{
		backend: b,
		ids:     map[string]string{},
		result:  NewResult(),
	}
	for i, step := range scenario.Steps {
		r.step(ctx, i, step)
	}
	return r.result
}

type runner struct {
	backend history.Backend
	ids     map[string]string // alias -> id
	result  *Result
}

func (r *runner) failf(i int, op, format string, args ...any) {
	r.result.AddError(fmt.Sprintf("steps[%d] %s: ", i, op) + fmt.Sprintf(format, args...))
}

func (r *runner) step(ctx context.Context, i int, step Step) {
	switch step.Op {
	case OpInsert:
		r.insert(ctx, i, step)
	case OpDelete:
		r.delete(ctx, i, step)
	case OpList:
		r.list(ctx, i, step)
	case OpCount:
		r.count(ctx, i, step)
	}
}

func (r *runner) insert(ctx context.Context, i int, step Step) {
	names := step.aliases()
	n := max(step.Repeat, 1)

	base, baseErr := history.ParseTimestamp(step.Args.CreatedAt)
	interval := step.interval()

	for k := 0; k < n; k++ {
		createdAt := step.Args.CreatedAt
		if step.Repeat > 0 && baseErr == nil {
			createdAt = history.FormatTimestamp(base.Add(interval * time.Duration(k)))
		}

		ev := TraceEvent{
			Op: OpInsert,
			Args: map[string]any{
				"host":       step.Args.Host,
				"topic":      step.Args.Topic,
				"message":    step.Args.Message,
				"created_at": createdAt,
			},
		}
		if len(names) > 0 {
			ev.Alias = names[k]
		}

		rec, err := r.backend.Insert(ctx, history.Draft{
			Host:      step.Args.Host,
			Topic:     step.Args.Topic,
			Message:   step.Args.Message,
			CreatedAt: createdAt,
		})
		if err != nil {
			ev.Error = errorCode(err)
			r.result.addEvent(ev)
			r.checkError(i, step, err)
			continue
		}

		ev.Result = recordValue(rec)
		r.result.addEvent(ev)
		if ev.Alias != "" {
			r.ids[ev.Alias] = rec.ID
		}
		r.checkError(i, step, nil)
	}
}

func (r *runner) delete(ctx context.Context, i int, step Step) {
	id := step.ID
	if step.Ref != "" {
		bound, ok := r.ids[step.Ref]
		if !ok {
			r.failf(i, OpDelete, "ref %q was never stored", step.Ref)
			return
		}
		id = bound
	}

	ev := TraceEvent{Op: OpDelete, Args: map[string]any{"_id": id}}
	n, err := r.backend.Delete(ctx, id)
	if err != nil {
		ev.Error = errorCode(err)
		r.result.addEvent(ev)
		r.checkError(i, step, err)
		return
	}

	ev.Result = n
	r.result.addEvent(ev)
	if !r.checkError(i, step, nil) {
		return
	}
	if want := step.Expect.deleted(); want != nil && *want != n {
		r.failf(i, OpDelete, "expected %d deleted, got %d", *want, n)
	}
}

func (r *runner) list(ctx context.Context, i int, step Step) {
	ev := TraceEvent{Op: OpList}
	records, err := r.backend.ListRecent(ctx)
	if err != nil {
		ev.Error = errorCode(err)
		r.result.addEvent(ev)
		r.checkError(i, step, err)
		return
	}

	listed := make([]any, len(records))
	ids := make([]string, len(records))
	for k, rec := range records {
		listed[k] = recordValue(rec)
		ids[k] = rec.ID
	}
	ev.Result = listed
	r.result.addEvent(ev)

	if !r.checkError(i, step, nil) || step.Expect == nil {
		return
	}
	if want := step.Expect.Count; want != nil && *want != int64(len(records)) {
		r.failf(i, OpList, "expected %d records, got %d", *want, len(records))
	}
	if len(step.Expect.Refs) > 0 {
		want := make([]string, len(step.Expect.Refs))
		for k, ref := range step.Expect.Refs {
			want[k] = r.ids[ref]
		}
		if !slices.Equal(want, ids) {
			r.failf(i, OpList, "expected order [%s], got [%s]",
				strings.Join(step.Expect.Refs, ", "), strings.Join(r.describe(ids), ", "))
		}
	}
}

func (r *runner) count(ctx context.Context, i int, step Step) {
	ev := TraceEvent{Op: OpCount}
	n, err := r.backend.Count(ctx)
	if err != nil {
		ev.Error = errorCode(err)
		r.result.addEvent(ev)
		r.checkError(i, step, err)
		return
	}

	ev.Result = n
	r.result.addEvent(ev)
	if !r.checkError(i, step, nil) || step.Expect == nil {
		return
	}
	if want := step.Expect.Count; want != nil && *want != n {
		r.failf(i, OpCount, "expected %d records, got %d", *want, n)
	}
}

// checkError compares err with the expected error code and reports whether
// the step succeeded as expected, so outcome checks should follow.
func (r *runner) checkError(i int, step Step, err error) bool {
	want := ""
	if step.Expect != nil {
		want = step.Expect.Error
	}

	switch {
	case err == nil && want == "":
		return true
	case err == nil:
		r.failf(i, step.Op, "expected error %s, got success", want)
	case want == "":
		r.failf(i, step.Op, "unexpected error: %v", err)
	case errorCode(err) != want:
		r.failf(i, step.Op, "expected error %s, got %s", want, errorCode(err))
	}
	return false
}

// describe maps ids back to aliases for failure messages.
func (r *runner) describe(ids []string) []string {
	byID := make(map[string]string, len(r.ids))
	for alias, id := range r.ids {
		byID[id] = alias
	}
	out := make([]string, len(ids))
	for k, id := range ids {
		if alias, ok := byID[id]; ok {
			out[k] = alias
		} else {
			out[k] = id
		}
	}
	return out
}

func (e *Expect) deleted() *int64 {
	if e == nil {
		return nil
	}
	return e.Deleted
}

func errorCode(err error) string {
	var he *history.Error
	if errors.As(err, &he) {
		return string(he.Code)
	}
	return "ERROR"
}
