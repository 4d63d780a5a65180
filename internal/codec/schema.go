package codec

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
)

//go:embed schema.cue
var schemaSource string

// SchemaIssue is one schema violation.
type SchemaIssue struct {
	Path    string // dotted field path, empty at the document root
	Pos     string // file:line:column in the checked document, when known
	Message string
}

func (i SchemaIssue) String() string {
	var b strings.Builder
	if i.Pos != "" {
		b.WriteString(i.Pos)
		b.WriteString(": ")
	}
	if i.Path != "" {
		b.WriteString(i.Path)
		b.WriteString(": ")
	}
	b.WriteString(i.Message)
	return b.String()
}

// SchemaError reports a document that does not conform to the IR schema.
type SchemaError struct {
	Issues []SchemaIssue
}

func (e *SchemaError) Error() string {
	if len(e.Issues) == 0 {
		return "schema: invalid document"
	}
	msg := "schema: " + e.Issues[0].String()
	if n := len(e.Issues) - 1; n > 0 {
		msg += fmt.Sprintf(" (and %d more)", n)
	}
	return msg
}

// IsSchemaError reports whether err is or wraps a *SchemaError.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

// schema is compiled once. A cue.Context is not safe for concurrent use, so
// every validation holds mu.
var schema struct {
	once sync.Once
	mu   sync.Mutex
	ctx  *cue.Context
	def  cue.Value
	err  error
}

func loadSchema() error {
	schema.once.Do(func() {
		schema.ctx = cuecontext.New()
		v := schema.ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			schema.err = fmt.Errorf("compile schema: %w", err)
			return
		}
		schema.def = v.LookupPath(cue.ParsePath("#IR"))
		if !schema.def.Exists() {
			schema.err = fmt.Errorf("compile schema: #IR not defined")
		}
	})
	return schema.err
}

// Validate checks a JSON or YAML document against the IR schema. A CBOR
// document is decoded first and its JSON rendering is checked. Violations
// are reported as a *SchemaError; other failures (unreadable input) are
// returned as is.
func Validate(data []byte, f Format) error {
	if err := loadSchema(); err != nil {
		return err
	}
	name := "input." + string(f)
	if f == CBOR {
		msg, err := Decode(CBOR, data)
		if err != nil {
			return err
		}
		if data, err = json.Marshal(msg); err != nil {
			return err
		}
		name = "input.json"
	}

	schema.mu.Lock()
	defer schema.mu.Unlock()

	var doc cue.Value
	switch f {
	case JSON, CBOR:
		doc = schema.ctx.CompileBytes(data, cue.Filename(name))
	case YAML:
		file, err := cueyaml.Extract(name, data)
		if err != nil {
			return fmt.Errorf("parse yaml: %w", err)
		}
		doc = schema.ctx.BuildFile(file)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	if err := doc.Err(); err != nil {
		return fmt.Errorf("parse %s: %w", f, err)
	}

	if err := schema.def.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return toSchemaError(err)
	}
	return nil
}

func toSchemaError(err error) *SchemaError {
	se := &SchemaError{}
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		issue := SchemaIssue{
			Path:    strings.Join(e.Path(), "."),
			Message: fmt.Sprintf(format, args...),
		}
		if pos := e.Position(); pos.IsValid() {
			issue.Pos = pos.String()
		}
		se.Issues = append(se.Issues, issue)
	}
	return se
}
