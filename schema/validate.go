package schema

import (
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Valid reports whether doc compiles as a syntactically legal JSON Schema
// document. A schema that fails to compile is treated by the comparator as
// an opaque leaf (see compare's fallback path) rather than aborting the
// whole comparison, so callers should check Valid before trusting structural
// diff output for a given side.
func Valid(doc Document) bool {
	if doc == nil {
		return true
	}
	c := jsonschema.NewCompiler()
	const resource = "schema.json"
	if err := c.AddResource(resource, doc); err != nil {
		return false
	}
	if _, err := c.Compile(resource); err != nil {
		return false
	}
	return true
}

// ValidationError wraps a compile failure with context for callers that
// want to surface why a schema document was rejected.
type ValidationError struct {
	Path string
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema: %s failed validation: %v", e.Path, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }
