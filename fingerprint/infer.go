package fingerprint

import (
	"sort"

	"github.com/bellwether-dev/bellwether/schema"
)

// InferSchema merges the shapes of successful samples into a JSON-Schema-like
// document. A field is required iff present in every successful sample; its
// type is the union of observed types, collapsed to a single type, a
// nullable variant, or an explicit oneOf list. Arrays infer "items" by
// recursive union of item shapes.
func InferSchema(successes []Sample) schema.Document {
	if len(successes) == 0 {
		return nil
	}
	values := make([]any, len(successes))
	for i, s := range successes {
		values[i] = s.Value
	}
	return inferFromValues(values)
}

func inferFromValues(values []any) schema.Document {
	if len(values) == 0 {
		return schema.Document{}
	}
	if allObjects(values) {
		return inferObject(values)
	}
	if allArrays(values) {
		return inferArray(values)
	}
	return unionScalarSchema(values)
}

func allObjects(values []any) bool {
	for _, v := range values {
		if _, ok := v.(map[string]any); !ok {
			return false
		}
	}
	return true
}

func allArrays(values []any) bool {
	for _, v := range values {
		if _, ok := v.([]any); !ok {
			return false
		}
	}
	return true
}

func inferObject(values []any) schema.Document {
	fieldValues := map[string][]any{}
	presentIn := map[string]int{}
	for _, v := range values {
		obj := v.(map[string]any)
		for k, fv := range obj {
			fieldValues[k] = append(fieldValues[k], fv)
			presentIn[k]++
		}
	}
	props := schema.Document{}
	var requiredNames []string
	for k, fv := range fieldValues {
		props[k] = inferFromValues(fv)
		if presentIn[k] == len(values) {
			requiredNames = append(requiredNames, k)
		}
	}
	doc := schema.Document{"type": "object", "properties": props}
	if len(requiredNames) > 0 {
		sort.Strings(requiredNames)
		required := make([]any, len(requiredNames))
		for i, n := range requiredNames {
			required[i] = n
		}
		doc["required"] = required
	}
	return doc
}

func inferArray(values []any) schema.Document {
	var items []any
	for _, v := range values {
		items = append(items, v.([]any)...)
	}
	doc := schema.Document{"type": "array"}
	if len(items) > 0 {
		doc["items"] = inferFromValues(items)
	}
	return doc
}

// unionScalarSchema collapses the observed scalar types of values into
// either a single "type", a nullable ["type","null"] variant, or an
// explicit "oneOf" list of single-type branches when more than one
// non-null type was observed.
func unionScalarSchema(values []any) schema.Document {
	types := map[string]struct{}{}
	hasNull := false
	for _, v := range values {
		switch v.(type) {
		case nil:
			hasNull = true
		case bool:
			types["boolean"] = struct{}{}
		case string:
			types["string"] = struct{}{}
		case float64, int, int64:
			types["number"] = struct{}{}
		default:
			types["object"] = struct{}{}
		}
	}
	if len(types) == 0 {
		return schema.Document{"type": "null"}
	}
	sortedTypes := make([]string, 0, len(types))
	for t := range types {
		sortedTypes = append(sortedTypes, t)
	}
	sort.Strings(sortedTypes)
	if len(sortedTypes) == 1 {
		if hasNull {
			return schema.Document{"type": []any{sortedTypes[0], "null"}}
		}
		return schema.Document{"type": sortedTypes[0]}
	}
	branches := make([]any, 0, len(sortedTypes)+1)
	for _, t := range sortedTypes {
		branches = append(branches, schema.Document{"type": t})
	}
	if hasNull {
		branches = append(branches, schema.Document{"type": "null"})
	}
	return schema.Document{"oneOf": branches}
}
