package harness

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daybookhq/daybook/internal/crypto"
	"github.com/daybookhq/daybook/internal/journal"
	"github.com/daybookhq/daybook/internal/store"
)

// assertionFixture opens a fresh database with one sealed entry and one
// reminder, and returns the context assertions run against.
func assertionFixture(t *testing.T) *AssertionContext {
	t.Helper()

	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	codec := crypto.NewCodec(defaultPassphrase)
	svc := journal.NewService(st, codec)
	ctx := context.Background()

	id, err := svc.Create(ctx, store.Entry{
		Title:     "Fixture",
		Body:      "Fixture body",
		Mood:      "calm",
		EntryDate: "2024-01-01",
		Tags:      []string{"fixture"},
	})
	require.NoError(t, err)

	_, err = svc.AddReminder(ctx, id, scenarioEpoch.Add(24*time.Hour), "email")
	require.NoError(t, err)

	return &AssertionContext{
		Store:   st,
		Journal: svc,
		Epoch:   scenarioEpoch,
		Refs:    map[string]string{"fixture": id},
		Ctx:     ctx,
	}
}

func TestEvaluateAssertions_AllPass(t *testing.T) {
	actx := assertionFixture(t)
	result := NewResult()

	EvaluateAssertions(result, []Assertion{
		{Type: AssertEntryCount, Count: 1},
		{Type: AssertEntry, Ref: "fixture", Expect: map[string]any{
			"title":  "Fixture",
			"body":   "Fixture body",
			"mood":   "calm",
			"date":   "2024-01-01",
			"pinned": false,
			"tags":   []any{"fixture"},
		}},
		{Type: AssertSealedAtRest, Ref: "fixture"},
		{Type: AssertTags, Tags: []string{"fixture"}},
		{Type: AssertDueCount, At: "48h", Count: 1},
		{Type: AssertDueCount, At: "1h", Count: 0},
	}, actx)

	assert.True(t, result.Passed(), "errors: %v", result.Errors)
}

func TestEvaluateAssertions_ReportsEveryFailure(t *testing.T) {
	actx := assertionFixture(t)
	result := NewResult()

	EvaluateAssertions(result, []Assertion{
		{Type: AssertEntryCount, Count: 3},
		{Type: AssertEntry, Ref: "fixture", Expect: map[string]any{"mood": "furious"}},
		{Type: AssertTags, Tags: []string{"other"}},
		{Type: AssertDueCount, At: "48h", Count: 0},
	}, actx)

	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], "got 1 entries, want 3")
	assert.Contains(t, result.Errors[1], `mood = "calm", want "furious"`)
	assert.Contains(t, result.Errors[2], "tags:")
	assert.Contains(t, result.Errors[3], "due_count at 48h: got 1, want 0")
}

func TestEvaluateAssertions_TypeMismatchesInExpect(t *testing.T) {
	actx := assertionFixture(t)
	result := NewResult()

	EvaluateAssertions(result, []Assertion{
		{Type: AssertEntry, Ref: "fixture", Expect: map[string]any{"pinned": "yes"}},
		{Type: AssertEntry, Ref: "fixture", Expect: map[string]any{"tags": "fixture"}},
		{Type: AssertEntry, Ref: "fixture", Expect: map[string]any{"title": 7}},
	}, actx)

	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "pinned must be a bool")
	assert.Contains(t, result.Errors[1], "tags must be a string list")
	assert.Contains(t, result.Errors[2], "title must be a string")
}

func TestEvaluateAssertions_SealedAtRestCatchesPlaintext(t *testing.T) {
	actx := assertionFixture(t)

	// A legacy plaintext row must fail the at-rest check.
	id, err := actx.Store.CreateEntry(actx.Ctx, store.Entry{
		Title:     "Plain title",
		Body:      "Plain body",
		EntryDate: "2023-01-01",
	})
	require.NoError(t, err)
	actx.Refs["plain"] = id

	result := NewResult()
	EvaluateAssertions(result, []Assertion{
		{Type: AssertSealedAtRest, Ref: "plain"},
	}, actx)

	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "stored title is not an envelope")
	assert.Contains(t, result.Errors[1], "stored body is not an envelope")
}

func TestEvaluateAssertions_MissingEntry(t *testing.T) {
	actx := assertionFixture(t)
	result := NewResult()

	EvaluateAssertions(result, []Assertion{
		{Type: AssertEntry, Ref: "ghost", Expect: map[string]any{"title": "x"}},
	}, actx)

	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `entry "ghost": get:`)
}
