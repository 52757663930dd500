package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario defines one integration scenario: a named sequence of
// journal operations and the assertions that must hold afterwards.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario demonstrates.
	Description string `yaml:"description"`

	// Passphrase overrides the harness's default master passphrase.
	// Scenarios that exercise key handling set it; most leave it empty.
	Passphrase string `yaml:"passphrase,omitempty"`

	// Steps are executed in order against a fresh database.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is a single journal operation.
type Step struct {
	// Op selects the operation:
	//   add       - create an entry through the journal service
	//   legacy    - insert a plaintext row directly, bypassing the codec
	//   update    - overlay set fields onto an existing entry
	//   pin       - set the entry's pinned flag
	//   unpin     - clear the entry's pinned flag
	//   delete    - delete the entry
	//   remind    - schedule a reminder relative to the scenario epoch
	//   backfill  - encrypt every legacy plaintext row
	//   roundtrip - export all entries sealed under a password, then
	//               import the document back into the same database
	Op string `yaml:"op"`

	// Ref names the entry a step creates or acts on. add and legacy
	// define it; update, pin, unpin, delete, and remind refer to it.
	Ref string `yaml:"ref,omitempty"`

	Title string   `yaml:"title,omitempty"`
	Body  string   `yaml:"body,omitempty"`
	Mood  string   `yaml:"mood,omitempty"`
	Date  string   `yaml:"date,omitempty"` // YYYY-MM-DD
	Tags  []string `yaml:"tags,omitempty"`

	// In offsets a reminder from the scenario epoch ("24h", "30m").
	In string `yaml:"in,omitempty"`

	// Channel is the reminder delivery channel; empty means email.
	Channel string `yaml:"channel,omitempty"`

	// Password seals the roundtrip export.
	Password string `yaml:"password,omitempty"`
}

// Assertion validates the database state after all steps ran.
type Assertion struct {
	// Type selects the assertion:
	//   entry_count    - total number of entries
	//   entry          - subset match on one entry's decrypted fields
	//   sealed_at_rest - the raw stored title and body are envelopes
	//   tags           - the full sorted tag list
	//   due_count      - reminders due at epoch+at
	Type string `yaml:"type"`

	// Ref names the entry (entry, sealed_at_rest).
	Ref string `yaml:"ref,omitempty"`

	// Expect holds expected field values for entry assertions. Subset
	// match: only the listed fields are checked. Allowed keys: title,
	// body, mood, date, pinned, tags.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Tags is the expected full tag list (tags assertions).
	Tags []string `yaml:"tags,omitempty"`

	// At offsets the query instant from the scenario epoch (due_count).
	At string `yaml:"at,omitempty"`

	// Count is the expected number (entry_count, due_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertEntryCount   = "entry_count"
	AssertEntry        = "entry"
	AssertSealedAtRest = "sealed_at_rest"
	AssertTags         = "tags"
	AssertDueCount     = "due_count"
)

// entryExpectKeys is the closed key set for entry assertions.
var entryExpectKeys = map[string]bool{
	"title":  true,
	"body":   true,
	"mood":   true,
	"date":   true,
	"pinned": true,
	"tags":   true,
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields
// (typos), missing required fields, unresolvable refs, and malformed
// durations are all rejected here, before anything runs.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks required fields, the closed op and assertion
// sets, and that every referenced entry was defined by an earlier step.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	defined := map[string]bool{}
	for i, step := range s.Steps {
		if err := validateStep(i, &step, defined); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, defined); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, step *Step, defined map[string]bool) error {
	switch step.Op {
	case "add", "legacy":
		if step.Ref == "" {
			return fmt.Errorf("steps[%d]: ref is required for %s", index, step.Op)
		}
		if defined[step.Ref] {
			return fmt.Errorf("steps[%d]: ref %q already defined", index, step.Ref)
		}
		if step.Title == "" {
			return fmt.Errorf("steps[%d]: title is required for %s", index, step.Op)
		}
		if step.Date == "" {
			return fmt.Errorf("steps[%d]: date is required for %s", index, step.Op)
		}
		defined[step.Ref] = true
	case "update", "pin", "unpin", "delete":
		if step.Ref == "" {
			return fmt.Errorf("steps[%d]: ref is required for %s", index, step.Op)
		}
		if !defined[step.Ref] {
			return fmt.Errorf("steps[%d]: ref %q not defined by an earlier step", index, step.Ref)
		}
	case "remind":
		if step.Ref == "" {
			return fmt.Errorf("steps[%d]: ref is required for remind", index)
		}
		if !defined[step.Ref] {
			return fmt.Errorf("steps[%d]: ref %q not defined by an earlier step", index, step.Ref)
		}
		if step.In == "" {
			return fmt.Errorf("steps[%d]: in is required for remind", index)
		}
		if _, err := time.ParseDuration(step.In); err != nil {
			return fmt.Errorf("steps[%d]: invalid duration %q: %w", index, step.In, err)
		}
	case "backfill":
		// No fields.
	case "roundtrip":
		if step.Password == "" {
			return fmt.Errorf("steps[%d]: password is required for roundtrip", index)
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, step.Op)
	}
	return nil
}

func validateAssertion(index int, a *Assertion, defined map[string]bool) error {
	switch a.Type {
	case AssertEntryCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertEntry:
		if a.Ref == "" {
			return fmt.Errorf("assertions[%d]: ref is required for entry", index)
		}
		if !defined[a.Ref] {
			return fmt.Errorf("assertions[%d]: ref %q not defined by any step", index, a.Ref)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for entry", index)
		}
		for key := range a.Expect {
			if !entryExpectKeys[key] {
				return fmt.Errorf("assertions[%d]: unknown expect key %q", index, key)
			}
		}
	case AssertSealedAtRest:
		if a.Ref == "" {
			return fmt.Errorf("assertions[%d]: ref is required for sealed_at_rest", index)
		}
		if !defined[a.Ref] {
			return fmt.Errorf("assertions[%d]: ref %q not defined by any step", index, a.Ref)
		}
	case AssertTags:
		if a.Tags == nil {
			return fmt.Errorf("assertions[%d]: tags list is required for tags (use [] for none)", index)
		}
	case AssertDueCount:
		if a.At == "" {
			return fmt.Errorf("assertions[%d]: at is required for due_count", index)
		}
		if _, err := time.ParseDuration(a.At); err != nil {
			return fmt.Errorf("assertions[%d]: invalid duration %q: %w", index, a.At, err)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
