package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validScenarioYAML = `
name: sample
description: A minimal valid scenario.
steps:
  - op: add
    ref: first
    title: "First entry"
    date: "2024-01-01"
assertions:
  - type: entry_count
    count: 1
`

func TestLoadScenario_Valid(t *testing.T) {
	scenario, err := LoadScenario(writeScenario(t, validScenarioYAML))
	require.NoError(t, err)

	assert.Equal(t, "sample", scenario.Name)
	require.Len(t, scenario.Steps, 1)
	assert.Equal(t, "add", scenario.Steps[0].Op)
	assert.Equal(t, "first", scenario.Steps[0].Ref)
	require.Len(t, scenario.Assertions, 1)
	assert.Equal(t, AssertEntryCount, scenario.Assertions[0].Type)
}

func TestLoadScenario_FileNotFound(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read scenario file")
}

func TestLoadScenario_RejectsUnknownField(t *testing.T) {
	_, err := LoadScenario(writeScenario(t, `
name: sample
description: Typo in a field name.
stepz:
  - op: add
assertions:
  - type: entry_count
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse scenario YAML")
}

func TestLoadScenario_RejectsUnknownOp(t *testing.T) {
	_, err := LoadScenario(writeScenario(t, `
name: sample
description: Unknown op.
steps:
  - op: obliterate
    ref: first
assertions:
  - type: entry_count
    count: 0
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown op "obliterate"`)
}

func TestLoadScenario_RejectsUndefinedRef(t *testing.T) {
	_, err := LoadScenario(writeScenario(t, `
name: sample
description: Pin references an entry no step created.
steps:
  - op: pin
    ref: ghost
assertions:
  - type: entry_count
    count: 0
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `ref "ghost" not defined`)
}

func TestLoadScenario_RejectsDuplicateRef(t *testing.T) {
	_, err := LoadScenario(writeScenario(t, `
name: sample
description: Two steps define the same ref.
steps:
  - op: add
    ref: twin
    title: "One"
    date: "2024-01-01"
  - op: add
    ref: twin
    title: "Two"
    date: "2024-01-02"
assertions:
  - type: entry_count
    count: 2
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `ref "twin" already defined`)
}

func TestLoadScenario_RejectsBadReminderDuration(t *testing.T) {
	_, err := LoadScenario(writeScenario(t, `
name: sample
description: Reminder offset is not a duration.
steps:
  - op: add
    ref: first
    title: "First"
    date: "2024-01-01"
  - op: remind
    ref: first
    in: tomorrow
assertions:
  - type: entry_count
    count: 1
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid duration "tomorrow"`)
}

func TestLoadScenario_RejectsRoundtripWithoutPassword(t *testing.T) {
	_, err := LoadScenario(writeScenario(t, `
name: sample
description: Roundtrip without a password.
steps:
  - op: roundtrip
assertions:
  - type: entry_count
    count: 0
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password is required for roundtrip")
}

func TestLoadScenario_RejectsUnknownAssertionType(t *testing.T) {
	_, err := LoadScenario(writeScenario(t, `
name: sample
description: Unknown assertion type.
steps:
  - op: add
    ref: first
    title: "First"
    date: "2024-01-01"
assertions:
  - type: row_count
    count: 1
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown assertion type "row_count"`)
}

func TestLoadScenario_RejectsUnknownExpectKey(t *testing.T) {
	_, err := LoadScenario(writeScenario(t, `
name: sample
description: Entry assertion with a misspelled key.
steps:
  - op: add
    ref: first
    title: "First"
    date: "2024-01-01"
assertions:
  - type: entry
    ref: first
    expect:
      titel: "First"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown expect key "titel"`)
}

func TestLoadScenario_RejectsMissingRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    "description: d\nsteps:\n  - op: backfill\nassertions:\n  - type: entry_count\n    count: 0\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: n\nsteps:\n  - op: backfill\nassertions:\n  - type: entry_count\n    count: 0\n",
			wantErr: "description is required",
		},
		{
			name:    "missing steps",
			yaml:    "name: n\ndescription: d\nassertions:\n  - type: entry_count\n    count: 0\n",
			wantErr: "steps list is required",
		},
		{
			name:    "missing assertions",
			yaml:    "name: n\ndescription: d\nsteps:\n  - op: backfill\n",
			wantErr: "assertions list is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
