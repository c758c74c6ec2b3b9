package archive

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/histories/internal/history"
)

//go:embed schema.cue
var schemaSource string

// ParseError reports an archive that does not match the schema.
type ParseError struct {
	Message string
	Pos     token.Pos
}

func (e *ParseError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// ReadFile parses the archive at path. See Parse.
func ReadFile(path string) (*Archive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	return Parse(path, data)
}

// Parse decodes a JSON or CUE archive, validates it against the embedded
// schema and verifies its count and digest. Every failure is a validation
// error; filename is only used in positions.
func Parse(filename string, data []byte) (*Archive, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("archive: compile schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Archive"))

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, invalid(formatCUEError(err))
	}

	if !v.LookupPath(cue.ParsePath("records")).Exists() {
		return nil, invalid(&ParseError{Message: "records: field is required"})
	}

	v = def.Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, invalid(formatCUEError(err))
	}

	var a Archive
	if err := v.Decode(&a); err != nil {
		return nil, invalid(formatCUEError(err))
	}
	if a.Records == nil {
		a.Records = []Entry{}
	}

	if err := a.Verify(); err != nil {
		return nil, invalid(err)
	}
	return &a, nil
}

func invalid(err error) error {
	return history.NewValidationError("archive", "invalid archive", err)
}

// formatCUEError keeps the first CUE error and its position.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	pe := &ParseError{Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		pe.Pos = positions[0]
	}
	return pe
}
