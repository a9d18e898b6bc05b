package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/bugsafe/bugsafe/internal/bugsafeerrors"
)

// manifestSchemaJSON is the JSON Schema every manifest.json must satisfy.
// It's intentionally permissive on optional fields (traceback, environment)
// since not every capture has a parseable traceback or environment
// snapshot, but strict on the required top-level shape.
const manifestSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["metadata", "capture", "redaction_report"],
  "properties": {
    "metadata": {
      "type": "object",
      "required": ["bundle_id", "version", "created_at", "bugsafe_version"],
      "properties": {
        "bundle_id": {"type": "string"},
        "version": {"type": "string"},
        "created_at": {"type": "string"},
        "bugsafe_version": {"type": "string"},
        "redaction_salt_hash": {"type": "string"}
      }
    },
    "capture": {
      "type": "object",
      "required": ["stdout", "stderr", "exit_code", "command"],
      "properties": {
        "stdout": {"type": "string"},
        "stderr": {"type": "string"},
        "exit_code": {"type": "integer"},
        "duration_ms": {"type": "integer"},
        "command": {"type": "array", "items": {"type": "string"}},
        "timed_out": {"type": "boolean"},
        "truncated": {"type": "boolean"}
      }
    },
    "redaction_report": {
      "type": "object",
      "additionalProperties": {"type": "integer"}
    }
  }
}`

var (
	compileOnce     sync.Once
	compiledSchema  *jsonschema.Schema
	compileErr      error
)

func manifestSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource("manifest.json", bytes.NewReader([]byte(manifestSchemaJSON))); err != nil {
			compileErr = fmt.Errorf("schema: failed to register manifest schema: %w", err)
			return
		}
		schema, err := compiler.Compile("manifest.json")
		if err != nil {
			compileErr = fmt.Errorf("schema: failed to compile manifest schema: %w", err)
			return
		}
		compiledSchema = schema
	})
	return compiledSchema, compileErr
}

// ValidateManifest checks raw manifest bytes (already known to be valid
// JSON) against the bundle manifest schema, returning a
// bugsafeerrors.BundleSchemaError describing every violation found.
func ValidateManifest(path string, raw []byte) error {
	schema, err := manifestSchema()
	if err != nil {
		return err
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return &bugsafeerrors.BundleParseError{Path: path, Member: "manifest.json", Cause: err}
	}

	if err := schema.Validate(doc); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return &bugsafeerrors.BundleSchemaError{Path: path, Fields: collectFieldErrors(verr)}
		}
		return &bugsafeerrors.BundleSchemaError{
			Path:   path,
			Fields: []bugsafeerrors.FieldError{{Path: "(root)", Reason: err.Error()}},
		}
	}

	return nil
}

func collectFieldErrors(err *jsonschema.ValidationError) []bugsafeerrors.FieldError {
	var fields []bugsafeerrors.FieldError
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if e.Message != "" {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "(root)"
			}
			fields = append(fields, bugsafeerrors.FieldError{Path: loc, Reason: e.Message})
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(err)
	if len(fields) == 0 {
		fields = []bugsafeerrors.FieldError{{Path: "(root)", Reason: "validation failed"}}
	}
	return fields
}

// FormatFieldErrors renders BundleSchemaError.Fields as a single
// human-readable string, one violation per line.
func FormatFieldErrors(fields []bugsafeerrors.FieldError) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Path, f.Reason)
	}
	return strings.Join(parts, "; ")
}
