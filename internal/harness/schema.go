package harness

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaSource string

// validateSchema unifies a decoded YAML document with #Scenario.
func validateSchema(doc any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile scenario schema: %w", err)
	}

	data := ctx.Encode(doc)
	if err := data.Err(); err != nil {
		return formatCUEError(err)
	}

	v := schema.LookupPath(cue.ParsePath("#Scenario")).Unify(data)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	return nil
}

// SchemaError reports the first schema violation with its field path.
type SchemaError struct {
	Path    string
	Message string
}

func (e *SchemaError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	format, args := first.Msg()
	return &SchemaError{
		Path:    pathString(first.Path()),
		Message: fmt.Sprintf(format, args...),
	}
}

func pathString(path []string) string {
	out := ""
	for i, p := range path {
		if i > 0 && (len(p) == 0 || p[0] < '0' || p[0] > '9') {
			out += "."
		}
		if len(p) > 0 && p[0] >= '0' && p[0] <= '9' {
			out += "[" + p + "]"
			continue
		}
		out += p
	}
	return out
}
