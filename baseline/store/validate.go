package store

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// shapeSchemaJSON is the minimum structural shape a stored baseline document
// must have to be loadable at all, independent of FormatVersion
// compatibility (checked separately by callers). It requires the top-level
// keys plus a few nested ones (metadata mode and generation time, server
// name, version and protocol version, the tools list, and each workflow's
// id, name, tool sequence and outcome); the rest of the field-by-field
// shape is whatever the baseline package's struct tags describe.
const shapeSchemaJSON = `{
  "type": "object",
  "required": ["formatVersion", "metadata", "server", "capabilities", "hash"],
  "properties": {
    "formatVersion": {"type": "string"},
    "hash": {"type": "string"},
    "metadata": {"type": "object", "required": ["mode", "generatedAt"]},
    "server": {"type": "object", "required": ["name", "version", "protocolVersion"]},
    "capabilities": {"type": "object", "required": ["tools"]},
    "workflows": {
      "type": "array",
      "items": {"type": "object", "required": ["id", "name", "toolSequence", "succeeded"]}
    }
  }
}`

var compiledShapeSchema *jsonschema.Schema

func init() {
	var doc any
	if err := json.Unmarshal([]byte(shapeSchemaJSON), &doc); err != nil {
		panic(fmt.Sprintf("store: invalid embedded shape schema: %v", err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("baseline-shape.json", doc); err != nil {
		panic(fmt.Sprintf("store: invalid embedded shape schema: %v", err))
	}
	sch, err := c.Compile("baseline-shape.json")
	if err != nil {
		panic(fmt.Sprintf("store: cannot compile embedded shape schema: %v", err))
	}
	compiledShapeSchema = sch
}

// validateShape checks that raw decodes as JSON and matches the minimum
// required baseline shape, returning the decoded document on success.
func validateShape(key string, raw []byte) (any, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &InvalidJSONError{Key: key, Err: err}
	}
	if err := compiledShapeSchema.Validate(doc); err != nil {
		return nil, &InvalidSchemaError{Key: key, Issues: []string{err.Error()}}
	}
	return doc, nil
}
