package harness

import (
	"context"
	"slices"
	"time"

	"github.com/daybookhq/daybook/internal/crypto"
	"github.com/daybookhq/daybook/internal/journal"
	"github.com/daybookhq/daybook/internal/store"
)

// AssertionContext carries what assertions need to inspect final state:
// the journal service for decrypted reads, the raw store for at-rest
// checks, and the ref table mapping step names to entry IDs.
type AssertionContext struct {
	Store   *store.Store
	Journal *journal.Service
	Epoch   time.Time
	Refs    map[string]string
	Ctx     context.Context
}

// EvaluateAssertions checks every assertion against the final state and
// records each failure on the result. Evaluation never stops early: a
// test sees all failures at once.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) {
	for i, a := range assertions {
		switch a.Type {
		case AssertEntryCount:
			evaluateEntryCount(result, i, a, actx)
		case AssertEntry:
			evaluateEntry(result, i, a, actx)
		case AssertSealedAtRest:
			evaluateSealedAtRest(result, i, a, actx)
		case AssertTags:
			evaluateTags(result, i, a, actx)
		case AssertDueCount:
			evaluateDueCount(result, i, a, actx)
		default:
			result.AddError("assertions[%d]: unknown type %q", i, a.Type)
		}
	}
}

func evaluateEntryCount(result *Result, index int, a Assertion, actx *AssertionContext) {
	entries, err := actx.Journal.List(actx.Ctx, store.EntryFilter{})
	if err != nil {
		result.AddError("assertions[%d] entry_count: list entries: %v", index, err)
		return
	}
	if len(entries) != a.Count {
		result.AddError("assertions[%d] entry_count: got %d entries, want %d", index, len(entries), a.Count)
	}
}

func evaluateEntry(result *Result, index int, a Assertion, actx *AssertionContext) {
	entry, err := actx.Journal.Get(actx.Ctx, actx.Refs[a.Ref])
	if err != nil {
		result.AddError("assertions[%d] entry %q: get: %v", index, a.Ref, err)
		return
	}

	for key, want := range a.Expect {
		switch key {
		case "title":
			compareString(result, index, a.Ref, key, entry.Title, want)
		case "body":
			compareString(result, index, a.Ref, key, entry.Body, want)
		case "mood":
			compareString(result, index, a.Ref, key, entry.Mood, want)
		case "date":
			compareString(result, index, a.Ref, key, entry.EntryDate, want)
		case "pinned":
			wantBool, ok := want.(bool)
			if !ok {
				result.AddError("assertions[%d] entry %q: pinned must be a bool, got %T", index, a.Ref, want)
				continue
			}
			if entry.Pinned != wantBool {
				result.AddError("assertions[%d] entry %q: pinned = %t, want %t", index, a.Ref, entry.Pinned, wantBool)
			}
		case "tags":
			wantTags, ok := stringSlice(want)
			if !ok {
				result.AddError("assertions[%d] entry %q: tags must be a string list, got %T", index, a.Ref, want)
				continue
			}
			if !slices.Equal(entry.Tags, wantTags) {
				result.AddError("assertions[%d] entry %q: tags = %v, want %v", index, a.Ref, entry.Tags, wantTags)
			}
		}
	}
}

// evaluateSealedAtRest reads the raw stored row, bypassing the journal
// service, and checks that title and body are both envelopes. This is
// the assertion that catches plaintext leaking into the file.
func evaluateSealedAtRest(result *Result, index int, a Assertion, actx *AssertionContext) {
	row := actx.Store.DB().QueryRowContext(actx.Ctx,
		`SELECT title, body FROM entries WHERE id = ?`, actx.Refs[a.Ref])

	var title, body string
	if err := row.Scan(&title, &body); err != nil {
		result.AddError("assertions[%d] sealed_at_rest %q: read raw row: %v", index, a.Ref, err)
		return
	}

	if !crypto.IsEnvelope(title) {
		result.AddError("assertions[%d] sealed_at_rest %q: stored title is not an envelope", index, a.Ref)
	}
	if !crypto.IsEnvelope(body) {
		result.AddError("assertions[%d] sealed_at_rest %q: stored body is not an envelope", index, a.Ref)
	}
}

func evaluateTags(result *Result, index int, a Assertion, actx *AssertionContext) {
	tags, err := actx.Journal.Tags(actx.Ctx)
	if err != nil {
		result.AddError("assertions[%d] tags: list tags: %v", index, err)
		return
	}
	want := a.Tags
	if want == nil {
		want = []string{}
	}
	if !slices.Equal(tags, want) {
		result.AddError("assertions[%d] tags: got %v, want %v", index, tags, want)
	}
}

func evaluateDueCount(result *Result, index int, a Assertion, actx *AssertionContext) {
	offset, err := time.ParseDuration(a.At)
	if err != nil {
		result.AddError("assertions[%d] due_count: invalid duration %q: %v", index, a.At, err)
		return
	}
	due, err := actx.Journal.DueReminders(actx.Ctx, actx.Epoch.Add(offset))
	if err != nil {
		result.AddError("assertions[%d] due_count: list due reminders: %v", index, err)
		return
	}
	if len(due) != a.Count {
		result.AddError("assertions[%d] due_count at %s: got %d, want %d", index, a.At, len(due), a.Count)
	}
}

func compareString(result *Result, index int, ref, key, got string, want any) {
	wantStr, ok := want.(string)
	if !ok {
		result.AddError("assertions[%d] entry %q: %s must be a string, got %T", index, ref, key, want)
		return
	}
	if got != wantStr {
		result.AddError("assertions[%d] entry %q: %s = %q, want %q", index, ref, key, got, wantStr)
	}
}

// stringSlice converts a decoded YAML list into []string.
func stringSlice(value any) ([]string, bool) {
	list, ok := value.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}
