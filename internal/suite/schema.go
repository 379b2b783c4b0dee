package suite

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schema.cue
var schemaSource string

// schemaValidator checks raw test cases against the #TestCase definition.
// A cue.Context is not safe for concurrent use; each load builds its own.
type schemaValidator struct {
	ctx *cue.Context
	def cue.Value
}

func newSchemaValidator() (*schemaValidator, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile test case schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#TestCase"))
	if !def.Exists() {
		return nil, fmt.Errorf("test case schema has no #TestCase definition")
	}
	return &schemaValidator{ctx: ctx, def: def}, nil
}

// validate reports the first schema violation of one JSON-encoded case.
func (v *schemaValidator) validate(name string, raw []byte) error {
	val := v.ctx.CompileBytes(raw, cue.Filename(name))
	if err := val.Err(); err != nil {
		return fmt.Errorf("not valid JSON: %w", err)
	}

	if err := v.def.Unify(val).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return nil
}
