package harness

import (
	"context"
	"fmt"
	"time"

	"github.com/daybookhq/daybook/internal/crypto"
	"github.com/daybookhq/daybook/internal/export"
	"github.com/daybookhq/daybook/internal/journal"
	"github.com/daybookhq/daybook/internal/store"
	"github.com/daybookhq/daybook/internal/testutil"
)

// defaultPassphrase seals scenario content when the scenario does not
// bring its own. Long enough to be a realistic master passphrase.
const defaultPassphrase = "harness-master-passphrase-0123456789"

// scenarioEpoch is the fixed instant every scenario starts at.
// Reminder offsets and due_count assertions are relative to it, and
// roundtrip documents carry it as their export timestamp, keeping
// every run byte-identical.
var scenarioEpoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// Harness drives one scenario against a fresh database.
type Harness struct {
	store   *store.Store
	codec   *crypto.Codec
	journal *journal.Service
	clock   *testutil.FrozenClock

	// refs maps step ref names to the entry IDs they created.
	refs map[string]string
}

// Run executes a scenario and returns its result. A failing step
// aborts the run with an error; failing assertions are collected on
// the result instead, so a test can report all of them at once.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("open scenario store: %w", err)
	}
	defer st.Close()

	passphrase := scenario.Passphrase
	if passphrase == "" {
		passphrase = defaultPassphrase
	}

	codec := crypto.NewCodec(passphrase)
	h := &Harness{
		store:   st,
		codec:   codec,
		journal: journal.NewService(st, codec),
		clock:   testutil.NewFrozenClock(scenarioEpoch),
		refs:    map[string]string{},
	}

	ctx := context.Background()
	result := NewResult()

	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, step, result); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}
	}

	actx := &AssertionContext{
		Store:   st,
		Journal: h.journal,
		Epoch:   scenarioEpoch,
		Refs:    h.refs,
		Ctx:     ctx,
	}
	EvaluateAssertions(result, scenario.Assertions, actx)

	return result, nil
}

func (h *Harness) executeStep(ctx context.Context, step Step, result *Result) error {
	switch step.Op {
	case "add":
		id, err := h.journal.Create(ctx, h.stepEntry(step))
		if err != nil {
			return err
		}
		h.refs[step.Ref] = id
		result.AddTrace(TraceEvent{Op: step.Op, Ref: step.Ref, Outcome: "ok"})

	case "legacy":
		// Straight into the store, bypassing the codec: the row looks
		// exactly like data written before encryption existed.
		id, err := h.store.CreateEntry(ctx, h.stepEntry(step))
		if err != nil {
			return err
		}
		h.refs[step.Ref] = id
		result.AddTrace(TraceEvent{Op: step.Op, Ref: step.Ref, Outcome: "ok"})

	case "update":
		current, err := h.journal.Get(ctx, h.refs[step.Ref])
		if err != nil {
			return err
		}
		if err := h.journal.Update(ctx, overlay(current, step)); err != nil {
			return err
		}
		result.AddTrace(TraceEvent{Op: step.Op, Ref: step.Ref, Outcome: "ok"})

	case "pin", "unpin":
		if err := h.journal.Pin(ctx, h.refs[step.Ref], step.Op == "pin"); err != nil {
			return err
		}
		result.AddTrace(TraceEvent{Op: step.Op, Ref: step.Ref, Outcome: "ok"})

	case "delete":
		if err := h.journal.Delete(ctx, h.refs[step.Ref]); err != nil {
			return err
		}
		result.AddTrace(TraceEvent{Op: step.Op, Ref: step.Ref, Outcome: "ok"})

	case "remind":
		offset, err := time.ParseDuration(step.In)
		if err != nil {
			return err
		}
		channel := step.Channel
		if channel == "" {
			channel = "email"
		}
		if _, err := h.journal.AddReminder(ctx, h.refs[step.Ref], scenarioEpoch.Add(offset), channel); err != nil {
			return err
		}
		result.AddTrace(TraceEvent{Op: step.Op, Ref: step.Ref, Outcome: "ok"})

	case "backfill":
		n, err := h.journal.EncryptBackfill(ctx)
		if err != nil {
			return err
		}
		result.AddTrace(TraceEvent{Op: step.Op, Outcome: "ok", Count: n})

	case "roundtrip":
		n, err := h.roundtrip(ctx, step.Password)
		if err != nil {
			return err
		}
		result.AddTrace(TraceEvent{Op: step.Op, Outcome: "ok", Count: n})

	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
	return nil
}

// roundtrip exports every entry sealed under password and imports the
// opened document back into the same database. Imported entries get
// fresh IDs, so the entry count doubles and the copies must read back
// identical to the originals.
func (h *Harness) roundtrip(ctx context.Context, password string) (int, error) {
	entries, err := h.journal.List(ctx, store.EntryFilter{})
	if err != nil {
		return 0, err
	}

	doc := export.NewDocument(entries, h.clock.Now())
	envelope, err := export.Encrypt(doc, password)
	if err != nil {
		return 0, err
	}
	if !crypto.IsEncrypted(envelope) {
		return 0, fmt.Errorf("export envelope missing encryption prefix")
	}

	opened, err := export.Decrypt(envelope, password)
	if err != nil {
		return 0, err
	}

	imported := make([]store.Entry, 0, len(opened.Entries))
	for _, r := range opened.Entries {
		imported = append(imported, r.Entry())
	}
	return h.journal.Import(ctx, imported)
}

// stepEntry builds the entry an add or legacy step describes.
func (h *Harness) stepEntry(step Step) store.Entry {
	return store.Entry{
		Title:     step.Title,
		Body:      step.Body,
		Mood:      step.Mood,
		EntryDate: step.Date,
		Tags:      step.Tags,
	}
}

// overlay applies a step's set fields onto the current entry. Empty
// fields keep their stored values, so a step can change the body
// without restating the title.
func overlay(current store.Entry, step Step) store.Entry {
	if step.Title != "" {
		current.Title = step.Title
	}
	if step.Body != "" {
		current.Body = step.Body
	}
	if step.Mood != "" {
		current.Mood = step.Mood
	}
	if step.Date != "" {
		current.EntryDate = step.Date
	}
	if step.Tags != nil {
		current.Tags = step.Tags
	}
	return current
}
