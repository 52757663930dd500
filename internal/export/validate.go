package export

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cuejson "cuelang.org/go/encoding/json"
)

//go:embed schema.cue
var documentSchema string

// validateDocument checks raw JSON against the embedded CUE schema.
// Closed structs reject unknown fields, so typos in hand-edited
// documents fail here with a field-level message instead of silently
// dropping data.
func validateDocument(data []byte) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(documentSchema)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile document schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Document"))
	if err := def.Err(); err != nil {
		return fmt.Errorf("resolve document schema: %w", err)
	}

	expr, err := cuejson.Extract("document.json", data)
	if err != nil {
		return fmt.Errorf("document is not valid JSON: %w", err)
	}

	unified := def.Unify(ctx.BuildExpr(expr))
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("document failed validation: %w", err)
	}
	return nil
}
