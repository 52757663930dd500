package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_TraceRecordsEveryStep(t *testing.T) {
	scenario := &Scenario{
		Name:        "trace",
		Description: "Trace shape.",
		Steps: []Step{
			{Op: "add", Ref: "a", Title: "A", Date: "2024-01-01"},
			{Op: "pin", Ref: "a"},
			{Op: "backfill"},
		},
		Assertions: []Assertion{
			{Type: AssertEntryCount, Count: 1},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Passed(), "assertion errors: %v", result.Errors)

	require.Len(t, result.Trace, 3)
	assert.Equal(t, TraceEvent{Op: "add", Ref: "a", Outcome: "ok"}, result.Trace[0])
	assert.Equal(t, TraceEvent{Op: "pin", Ref: "a", Outcome: "ok"}, result.Trace[1])
	// Nothing was in legacy plaintext, so backfill rewrites zero rows.
	assert.Equal(t, TraceEvent{Op: "backfill", Outcome: "ok", Count: 0}, result.Trace[2])
}

func TestRun_AssertionFailuresAreCollectedNotFatal(t *testing.T) {
	scenario := &Scenario{
		Name:        "failures",
		Description: "All assertion failures surface at once.",
		Steps: []Step{
			{Op: "add", Ref: "a", Title: "A", Date: "2024-01-01"},
		},
		Assertions: []Assertion{
			{Type: AssertEntryCount, Count: 5},
			{Type: AssertEntry, Ref: "a", Expect: map[string]any{"title": "Wrong"}},
			{Type: AssertSealedAtRest, Ref: "a"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Passed())
	// The two wrong expectations fail; sealed_at_rest holds.
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "got 1 entries, want 5")
	assert.Contains(t, result.Errors[1], `title = "A", want "Wrong"`)
}

func TestRun_FailingStepAbortsTheRun(t *testing.T) {
	scenario := &Scenario{
		Name:        "abort",
		Description: "A step acting on a missing entry fails the run.",
		Steps: []Step{
			// Bypasses LoadScenario validation on purpose: the ref table
			// has no "ghost", so the delete hits an empty ID.
			{Op: "delete", Ref: "ghost"},
		},
		Assertions: []Assertion{
			{Type: AssertEntryCount, Count: 0},
		},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 0 (delete)")
}

func TestRun_UpdateOverlaysOnlySetFields(t *testing.T) {
	scenario := &Scenario{
		Name:        "overlay",
		Description: "Update keeps fields the step does not restate.",
		Steps: []Step{
			{Op: "add", Ref: "a", Title: "Keep me", Body: "Old body", Date: "2024-01-01", Tags: []string{"keep"}},
			{Op: "update", Ref: "a", Body: "New body", Mood: "calm"},
		},
		Assertions: []Assertion{
			{Type: AssertEntry, Ref: "a", Expect: map[string]any{
				"title": "Keep me",
				"body":  "New body",
				"mood":  "calm",
				"tags":  []any{"keep"},
			}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Passed(), "assertion errors: %v", result.Errors)
}

func TestRun_LegacyRowsStayReadableAndBackfillSealsThem(t *testing.T) {
	scenario := &Scenario{
		Name:        "legacy",
		Description: "Legacy plaintext reads through and seals on backfill.",
		Steps: []Step{
			{Op: "legacy", Ref: "old", Title: "Plain", Body: "Legacy body", Date: "2023-06-01"},
			{Op: "backfill"},
		},
		Assertions: []Assertion{
			{Type: AssertEntry, Ref: "old", Expect: map[string]any{"title": "Plain", "body": "Legacy body"}},
			{Type: AssertSealedAtRest, Ref: "old"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Passed(), "assertion errors: %v", result.Errors)
	assert.Equal(t, TraceEvent{Op: "backfill", Outcome: "ok", Count: 1}, result.Trace[1])
}

func TestRun_RoundtripDoublesEntriesWithIdenticalContent(t *testing.T) {
	scenario := &Scenario{
		Name:        "roundtrip",
		Description: "Sealed export imports back field-identical.",
		Steps: []Step{
			{Op: "add", Ref: "a", Title: "Original", Body: "Body", Mood: "calm", Date: "2024-01-02", Tags: []string{"t1"}},
			{Op: "roundtrip", Password: "abc12345"},
		},
		Assertions: []Assertion{
			{Type: AssertEntryCount, Count: 2},
			{Type: AssertTags, Tags: []string{"t1"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Passed(), "assertion errors: %v", result.Errors)
	assert.Equal(t, TraceEvent{Op: "roundtrip", Outcome: "ok", Count: 1}, result.Trace[1])
}

func TestRun_ScenarioPassphraseOverridesDefault(t *testing.T) {
	scenario := &Scenario{
		Name:        "passphrase",
		Description: "A scenario-supplied passphrase still seals content.",
		Passphrase:  "scenario-specific-passphrase-with-length",
		Steps: []Step{
			{Op: "add", Ref: "a", Title: "Sealed", Date: "2024-01-01"},
		},
		Assertions: []Assertion{
			{Type: AssertEntry, Ref: "a", Expect: map[string]any{"title": "Sealed"}},
			{Type: AssertSealedAtRest, Ref: "a"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Passed(), "assertion errors: %v", result.Errors)
}
