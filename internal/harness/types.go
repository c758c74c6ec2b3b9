package harness

import (
	"github.com/roach88/histories/internal/history"
)

// TraceEvent records one store call and its outcome.
type TraceEvent struct {
	Seq    int64          `json:"seq"`
	Op     string         `json:"op"`
	Alias  string         `json:"alias,omitempty"`
	Args   map[string]any `json:"args,omitempty"`
	Result any            `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expect clause matched.
	Pass bool `json:"pass"`

	// Trace lists every store call in order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds expect mismatches. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a mismatch and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) addEvent(ev TraceEvent) {
	ev.Seq = int64(len(r.Trace) + 1)
	r.Trace = append(r.Trace, ev)
}

// recordValue is the trace form of a record.
func recordValue(rec history.Record) map[string]any {
	return map[string]any{
		"_id":        rec.ID,
		"host":       rec.Host,
		"topic":      rec.Topic,
		"message":    rec.Message,
		"created_at": history.FormatTimestamp(rec.CreatedAt),
	}
}
