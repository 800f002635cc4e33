package compiler

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/LuisRevillaM/swapgraph-sub007/internal/ir"
)

//go:embed schema.cue
var inputSchema string

// Format is the encoding of an input document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".cue":
		return FormatCUE, nil
	default:
		return "", &CompileError{
			Field:   "format",
			Message: fmt.Sprintf("unsupported input extension %q (want .json, .yaml, .yml or .cue)", filepath.Ext(path)),
			Code:    ErrUnsupportedFormat,
		}
	}
}

// Compiler turns input documents into ir.MatchInput values.
//
// Every document is unified with the embedded #Input schema before it is
// decoded, so shape errors carry CUE positions. A Compiler owns its CUE
// context and is not safe for concurrent use.
type Compiler struct {
	ctx    *cue.Context
	schema cue.Value
}

// New creates a Compiler with the embedded schema loaded.
func New() (*Compiler, error) {
	ctx := cuecontext.New()
	file := ctx.CompileString(inputSchema, cue.Filename("schema.cue"))
	if err := file.Err(); err != nil {
		return nil, fmt.Errorf("compile input schema: %w", err)
	}
	schema := file.LookupPath(cue.ParsePath("#Input"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("lookup #Input: %w", err)
	}
	return &Compiler{ctx: ctx, schema: schema}, nil
}

// CompileFile reads and compiles the input document at path.
func (c *Compiler) CompileFile(path string) (ir.MatchInput, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return ir.MatchInput{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ir.MatchInput{}, fmt.Errorf("read input: %w", err)
	}
	return c.Compile(path, data, format)
}

// Compile validates data against #Input and decodes it.
//
// Returns *CompileError for syntax problems and schema violations.
func (c *Compiler) Compile(filename string, data []byte, format Format) (ir.MatchInput, error) {
	jsonData, err := c.check(filename, data, format)
	if err != nil {
		return ir.MatchInput{}, err
	}

	var in ir.MatchInput
	if err := json.Unmarshal(jsonData, &in); err != nil {
		return ir.MatchInput{}, &CompileError{
			Field:   "input",
			Message: err.Error(),
			Code:    ErrInputDecode,
		}
	}
	return in, nil
}

// Check validates data against #Input without decoding it and returns
// every schema violation found.
func (c *Compiler) Check(filename string, data []byte, format Format) []ValidationError {
	_, err := c.check(filename, data, format)
	if err == nil {
		return nil
	}
	if ce, ok := err.(*CompileError); ok && ce.all != nil {
		return ce.all
	}
	return []ValidationError{toValidationError(err)}
}

// check returns the JSON form of a schema-valid document.
func (c *Compiler) check(filename string, data []byte, format Format) ([]byte, error) {
	var src []byte
	switch format {
	case FormatJSON, FormatCUE:
		src = data
	case FormatYAML:
		converted, err := yamlToJSON(data)
		if err != nil {
			return nil, &CompileError{Field: "yaml", Message: err.Error(), Code: ErrInputSyntax}
		}
		src = converted
	default:
		return nil, &CompileError{
			Field:   "format",
			Message: fmt.Sprintf("unsupported format %q", format),
			Code:    ErrUnsupportedFormat,
		}
	}

	doc := c.ctx.CompileBytes(src, cue.Filename(filename))
	if err := doc.Err(); err != nil {
		return nil, formatCUEError(err, ErrInputSyntax)
	}

	unified := c.schema.Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err, ErrInputSchema)
	}

	if format == FormatCUE {
		out, err := doc.MarshalJSON()
		if err != nil {
			return nil, formatCUEError(err, ErrInputDecode)
		}
		return out, nil
	}
	return src, nil
}

// yamlToJSON re-encodes a YAML document as JSON so every format goes
// through the same CUE path.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = map[string]any{}
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("convert yaml: %w", err)
	}
	return out, nil
}

// CompileError is a failure to turn a document into an input.
type CompileError struct {
	Field   string
	Message string
	Code    string
	Pos     token.Pos

	// all holds every violation when the error came from CUE.
	all []ValidationError
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("[%s] %s:%d:%d: %s: %s",
			e.Code, e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Violations returns every schema violation behind the error.
func (e *CompileError) Violations() []ValidationError {
	if e.all != nil {
		return e.all
	}
	return []ValidationError{toValidationError(e)}
}

// formatCUEError keeps the first CUE error as the headline and records
// the rest as violations.
func formatCUEError(err error, code string) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &CompileError{Field: "cue", Message: err.Error(), Code: code}
	}

	all := make([]ValidationError, 0, len(errs))
	for _, e := range errs {
		v := ValidationError{
			Field:   strings.Join(e.Path(), "."),
			Message: cueMessage(e),
			Code:    code,
		}
		if v.Field == "" {
			v.Field = "input"
		}
		if pos := dataPosition(e); pos.IsValid() {
			v.Line = pos.Line()
		}
		all = append(all, v)
	}

	first := &CompileError{
		Field:   all[0].Field,
		Message: all[0].Message,
		Code:    code,
		Pos:     dataPosition(errs[0]),
		all:     all,
	}
	return first
}

func cueMessage(e errors.Error) string {
	format, args := e.Msg()
	return fmt.Sprintf(format, args...)
}

// dataPosition prefers a position inside the input document over one in
// the embedded schema.
func dataPosition(e errors.Error) token.Pos {
	positions := errors.Positions(e)
	for _, p := range positions {
		if p.Filename() != "schema.cue" {
			return p
		}
	}
	if len(positions) > 0 {
		return positions[0]
	}
	return token.NoPos
}

func toValidationError(err error) ValidationError {
	if ce, ok := err.(*CompileError); ok {
		v := ValidationError{Field: ce.Field, Message: ce.Message, Code: ce.Code}
		if ce.Pos.IsValid() {
			v.Line = ce.Pos.Line()
		}
		return v
	}
	return ValidationError{Field: "input", Message: err.Error(), Code: ErrInputDecode}
}
