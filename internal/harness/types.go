package harness

import "fmt"

// TraceEvent records one executed scenario step. Events carry no IDs
// or timestamps, so a trace is byte-stable across runs and safe to
// compare against a golden file.
type TraceEvent struct {
	// Op is the step operation that ran.
	Op string `json:"op"`

	// Ref names the entry the step acted on, when it acted on one.
	Ref string `json:"ref,omitempty"`

	// Outcome is "ok" for every step that completed. Steps that fail
	// abort the run instead of producing an event.
	Outcome string `json:"outcome"`

	// Count carries the step's row count where one exists: entries
	// rewritten by backfill, entries imported by roundtrip.
	Count int `json:"count,omitempty"`
}

// Result collects the trace and assertion failures of one scenario run.
type Result struct {
	Trace  []TraceEvent
	Errors []string
}

// NewResult creates an empty result.
func NewResult() *Result {
	return &Result{}
}

// AddTrace appends an event to the trace.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}

// AddError records an assertion failure.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Passed reports whether every assertion held.
func (r *Result) Passed() bool {
	return len(r.Errors) == 0
}
