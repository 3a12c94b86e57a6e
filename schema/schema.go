// Package schema implements the structural comparator for JSON-Schema-like
// documents (tool input/output schemas). It walks two schema trees and
// produces an ordered list of SchemaChange records, each classified as
// breaking or non-breaking per the compatibility rules in §4.2.
package schema

import (
	"fmt"
	"reflect"
	"sort"
)

// ChangeKind identifies the category of a schema change.
type ChangeKind string

const (
	KindTypeChanged          ChangeKind = "type_changed"
	KindPropertyAdded        ChangeKind = "property_added"
	KindPropertyRemoved      ChangeKind = "property_removed"
	KindRequiredAdded        ChangeKind = "required_added"
	KindRequiredRemoved      ChangeKind = "required_removed"
	KindEnumValueAdded       ChangeKind = "enum_value_added"
	KindEnumValueRemoved     ChangeKind = "enum_value_removed"
	KindConstraintTightened  ChangeKind = "constraint_tightened"
	KindConstraintRelaxed    ChangeKind = "constraint_relaxed"
	KindConstraintAdded      ChangeKind = "constraint_added"
	KindConstraintRemoved    ChangeKind = "constraint_removed"
	KindFormatChanged        ChangeKind = "format_changed"
	KindDefaultChanged       ChangeKind = "default_changed"
	KindDescriptionChanged   ChangeKind = "description_changed"
	KindBranchAdded          ChangeKind = "branch_added"
	KindBranchRemoved        ChangeKind = "branch_removed"
	KindUnknownKeyDiverged   ChangeKind = "unknown_key_diverged"
	KindFallbackIncomparable ChangeKind = "fallback_incomparable"
)

// Document is a JSON-Schema-like document, decoded as a generic map.
type Document = map[string]any

// Change describes a single structural difference between two schema
// documents.
type Change struct {
	// Path is a dotted, JSON-pointer-like path to the differing node
	// ("" for the root, "properties.units" for a nested property).
	Path string `json:"path"`
	// Kind identifies the category of change.
	Kind ChangeKind `json:"kind"`
	// Before is a human-readable rendering of the prior value.
	Before string `json:"before"`
	// After is a human-readable rendering of the new value.
	After string `json:"after"`
	// Breaking is true when the change can break existing callers.
	Breaking bool `json:"breaking"`
	// Description is a one-sentence human-readable summary.
	Description string `json:"description"`
}

var recognizedKeywords = map[string]struct{}{
	"type": {}, "properties": {}, "required": {}, "items": {}, "enum": {},
	"const": {}, "minimum": {}, "maximum": {}, "minLength": {}, "maxLength": {},
	"pattern": {}, "format": {}, "default": {}, "description": {},
	"additionalProperties": {}, "oneOf": {}, "anyOf": {}, "allOf": {},
	"exclusiveMinimum": {}, "exclusiveMaximum": {},
}

// Compare walks previous and current and returns the ordered list of
// structural changes between them. The result is sorted by (Path, Kind) so
// that two semantically equal comparisons produce byte-identical output.
func Compare(previous, current Document) []Change {
	var changes []Change
	compareNode("", previous, current, &changes)
	sort.Slice(changes, func(i, j int) bool {
		if changes[i].Path != changes[j].Path {
			return changes[i].Path < changes[j].Path
		}
		return changes[i].Kind < changes[j].Kind
	})
	return changes
}

func joinPath(base, name string) string {
	if base == "" {
		return name
	}
	return base + "." + name
}

func compareNode(path string, prev, curr Document, out *[]Change) {
	compareType(path, prev, curr, out)
	compareProperties(path, prev, curr, out)
	compareRequired(path, prev, curr, out)
	compareItems(path, prev, curr, out)
	compareEnum(path, prev, curr, out)
	compareNumericConstraints(path, prev, curr, out)
	compareStringConstraints(path, prev, curr, out)
	compareSimpleField(path, prev, curr, "format", KindFormatChanged, true, out)
	compareSimpleField(path, prev, curr, "default", KindDefaultChanged, false, out)
	compareSimpleField(path, prev, curr, "description", KindDescriptionChanged, false, out)
	compareBranches(path, prev, curr, "oneOf", out)
	compareBranches(path, prev, curr, "anyOf", out)
	compareUnknownKeys(path, prev, curr, out)
}

func str(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func compareType(path string, prev, curr Document, out *[]Change) {
	pt, pok := prev["type"]
	ct, cok := curr["type"]
	if !pok && !cok {
		return
	}
	if str(pt) == str(ct) {
		return
	}
	widening := str(pt) == "integer" && str(ct) == "number"
	*out = append(*out, Change{
		Path: path, Kind: KindTypeChanged, Before: str(pt), After: str(ct),
		Breaking:    !widening,
		Description: fmt.Sprintf("type changed from %q to %q at %q", str(pt), str(ct), pathOrRoot(path)),
	})
}

func pathOrRoot(path string) string {
	if path == "" {
		return "$"
	}
	return path
}

func asObject(v any) Document {
	m, _ := v.(Document)
	return m
}

func compareProperties(path string, prev, curr Document, out *[]Change) {
	pp := asObject(prev["properties"])
	cp := asObject(curr["properties"])
	names := unionKeys(pp, cp)
	currRequired := stringSet(curr["required"])
	for _, name := range names {
		p, pok := pp[name]
		c, cok := cp[name]
		childPath := joinPath(path, "properties."+name)
		switch {
		case pok && !cok:
			*out = append(*out, Change{
				Path: childPath, Kind: KindPropertyRemoved, Before: name, After: "",
				Breaking:    true,
				Description: fmt.Sprintf("property %q removed", name),
			})
		case !pok && cok:
			_, isRequired := currRequired[name]
			*out = append(*out, Change{
				Path: childPath, Kind: KindPropertyAdded, Before: "", After: name,
				Breaking:    isRequired,
				Description: fmt.Sprintf("property %q added", name),
			})
		default:
			pObj, pIsObj := p.(Document)
			cObj, cIsObj := c.(Document)
			if pIsObj && cIsObj {
				compareNode(childPath, pObj, cObj, out)
			}
		}
	}
}

func compareRequired(path string, prev, curr Document, out *[]Change) {
	pr := stringSet(prev["required"])
	cr := stringSet(curr["required"])
	for name := range cr {
		if _, ok := pr[name]; !ok {
			*out = append(*out, Change{
				Path: path, Kind: KindRequiredAdded, Before: "", After: name,
				Breaking:    true,
				Description: fmt.Sprintf("%q became required at %q", name, pathOrRoot(path)),
			})
		}
	}
	for name := range pr {
		if _, ok := cr[name]; !ok {
			*out = append(*out, Change{
				Path: path, Kind: KindRequiredRemoved, Before: name, After: "",
				Breaking:    false,
				Description: fmt.Sprintf("%q is no longer required at %q", name, pathOrRoot(path)),
			})
		}
	}
}

func compareItems(path string, prev, curr Document, out *[]Change) {
	pi, pok := prev["items"].(Document)
	ci, cok := curr["items"].(Document)
	if pok && cok {
		compareNode(joinPath(path, "items"), pi, ci, out)
	}
}

func compareEnum(path string, prev, curr Document, out *[]Change) {
	pe, pok := prev["enum"]
	ce, cok := curr["enum"]
	if !pok && !cok {
		return
	}
	pset := valueSet(pe)
	cset := valueSet(ce)
	for v := range pset {
		if _, ok := cset[v]; !ok {
			*out = append(*out, Change{
				Path: path, Kind: KindEnumValueRemoved, Before: v, After: "",
				Breaking:    true,
				Description: fmt.Sprintf("enum value %s removed at %q", v, pathOrRoot(path)),
			})
		}
	}
	for v := range cset {
		if _, ok := pset[v]; !ok {
			*out = append(*out, Change{
				Path: path, Kind: KindEnumValueAdded, Before: "", After: v,
				Breaking:    false,
				Description: fmt.Sprintf("enum value %s added at %q", v, pathOrRoot(path)),
			})
		}
	}
}

type numericRule struct {
	key       string
	tighterIf func(prev, curr float64) bool
}

func compareNumericConstraints(path string, prev, curr Document, out *[]Change) {
	rules := []numericRule{
		{"minimum", func(p, c float64) bool { return c > p }},
		{"maximum", func(p, c float64) bool { return c < p }},
		{"exclusiveMinimum", func(p, c float64) bool { return c > p }},
		{"exclusiveMaximum", func(p, c float64) bool { return c < p }},
	}
	for _, r := range rules {
		compareConstraint(path, prev, curr, r.key, r.tighterIf, out)
	}
}

func compareStringConstraints(path string, prev, curr Document, out *[]Change) {
	compareConstraint(path, prev, curr, "minLength", func(p, c float64) bool { return c > p }, out)
	compareConstraint(path, prev, curr, "maxLength", func(p, c float64) bool { return c < p }, out)
	comparePattern(path, prev, curr, out)
}

func compareConstraint(path string, prev, curr Document, key string, tighterIf func(p, c float64) bool, out *[]Change) {
	pv, pok := toFloat(prev[key])
	cv, cok := toFloat(curr[key])
	switch {
	case !pok && !cok:
		return
	case pok && !cok:
		*out = append(*out, Change{
			Path: joinPath(path, key), Kind: KindConstraintRemoved, Before: str(prev[key]), After: "",
			Breaking:    false,
			Description: fmt.Sprintf("%s constraint removed at %q", key, pathOrRoot(path)),
		})
	case !pok && cok:
		*out = append(*out, Change{
			Path: joinPath(path, key), Kind: KindConstraintAdded, Before: "", After: str(curr[key]),
			Breaking:    true,
			Description: fmt.Sprintf("%s constraint added at %q", key, pathOrRoot(path)),
		})
	case pv != cv:
		tightened := tighterIf(pv, cv)
		kind := KindConstraintRelaxed
		if tightened {
			kind = KindConstraintTightened
		}
		*out = append(*out, Change{
			Path: joinPath(path, key), Kind: kind, Before: str(prev[key]), After: str(curr[key]),
			Breaking:    tightened,
			Description: fmt.Sprintf("%s changed from %v to %v at %q", key, prev[key], curr[key], pathOrRoot(path)),
		})
	}
}

// comparePattern treats any pattern change as narrowing unless it is a pure
// removal; patterns are opaque regular expressions so the comparator cannot
// prove relaxation and defaults to the conservative (breaking) outcome,
// matching "pattern narrowed -> breaking" with unprovable cases inheriting
// the same label the spec gives to narrowing.
func comparePattern(path string, prev, curr Document, out *[]Change) {
	pv, pok := prev["pattern"].(string)
	cv, cok := curr["pattern"].(string)
	switch {
	case !pok && !cok:
		return
	case pok && !cok:
		*out = append(*out, Change{
			Path: joinPath(path, "pattern"), Kind: KindConstraintRemoved, Before: pv, After: "",
			Breaking:    false,
			Description: fmt.Sprintf("pattern constraint removed at %q", pathOrRoot(path)),
		})
	case !pok && cok:
		*out = append(*out, Change{
			Path: joinPath(path, "pattern"), Kind: KindConstraintAdded, Before: "", After: cv,
			Breaking:    true,
			Description: fmt.Sprintf("pattern constraint added at %q", pathOrRoot(path)),
		})
	case pv != cv:
		*out = append(*out, Change{
			Path: joinPath(path, "pattern"), Kind: KindConstraintTightened, Before: pv, After: cv,
			Breaking:    true,
			Description: fmt.Sprintf("pattern changed from %q to %q at %q", pv, cv, pathOrRoot(path)),
		})
	}
}

func compareSimpleField(path string, prev, curr Document, key string, kind ChangeKind, breaking bool, out *[]Change) {
	pv, pok := prev[key]
	cv, cok := curr[key]
	if !pok && !cok {
		return
	}
	if pok && cok && reflect.DeepEqual(pv, cv) {
		return
	}
	*out = append(*out, Change{
		Path: joinPath(path, key), Kind: kind, Before: str(pv), After: str(cv),
		Breaking:    breaking,
		Description: fmt.Sprintf("%s changed at %q", key, pathOrRoot(path)),
	})
}

func compareBranches(path string, prev, curr Document, key string, out *[]Change) {
	pb, pok := prev[key].([]any)
	cb, cok := curr[key].([]any)
	if !pok && !cok {
		return
	}
	pHashes := branchKeys(pb)
	cHashes := branchKeys(cb)
	for k := range pHashes {
		if _, ok := cHashes[k]; !ok {
			*out = append(*out, Change{
				Path: joinPath(path, key), Kind: KindBranchRemoved, Before: k, After: "",
				Breaking:    true,
				Description: fmt.Sprintf("%s branch removed at %q", key, pathOrRoot(path)),
			})
		}
	}
	for k := range cHashes {
		if _, ok := pHashes[k]; !ok {
			*out = append(*out, Change{
				Path: joinPath(path, key), Kind: KindBranchAdded, Before: "", After: k,
				Breaking:    false,
				Description: fmt.Sprintf("%s branch added at %q", key, pathOrRoot(path)),
			})
		}
	}
}

func branchKeys(branches []any) map[string]struct{} {
	set := make(map[string]struct{}, len(branches))
	for _, b := range branches {
		set[fmt.Sprintf("%v", b)] = struct{}{}
	}
	return set
}

func compareUnknownKeys(path string, prev, curr Document, out *[]Change) {
	names := unionKeys(prev, curr)
	for _, name := range names {
		if _, known := recognizedKeywords[name]; known {
			continue
		}
		pv, pok := prev[name]
		cv, cok := curr[name]
		if pok && cok && reflect.DeepEqual(pv, cv) {
			continue
		}
		*out = append(*out, Change{
			Path: joinPath(path, name), Kind: KindUnknownKeyDiverged, Before: str(pv), After: str(cv),
			Breaking:    false,
			Description: fmt.Sprintf("extension key %q diverged at %q", name, pathOrRoot(path)),
		})
	}
}

// FallbackChange builds the single breaking change emitted when the
// comparator cannot produce structural detail (e.g. one side lacks a
// declared schema entirely).
func FallbackChange(path, beforeHash, afterHash string) Change {
	return Change{
		Path: path, Kind: KindFallbackIncomparable, Before: beforeHash, After: afterHash,
		Breaking:    true,
		Description: fmt.Sprintf("schema hash changed from %s to %s and could not be structurally compared", beforeHash, afterHash),
	}
}

func unionKeys(maps ...Document) []string {
	seen := make(map[string]struct{})
	for _, m := range maps {
		for k := range m {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func stringSet(v any) map[string]struct{} {
	set := map[string]struct{}{}
	arr, ok := v.([]any)
	if !ok {
		return set
	}
	for _, item := range arr {
		if s, ok := item.(string); ok {
			set[s] = struct{}{}
		}
	}
	return set
}

func valueSet(v any) map[string]struct{} {
	set := map[string]struct{}{}
	arr, ok := v.([]any)
	if !ok {
		return set
	}
	for _, item := range arr {
		set[fmt.Sprintf("%v", item)] = struct{}{}
	}
	return set
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// HasBreaking reports whether any change in changes is breaking.
func HasBreaking(changes []Change) bool {
	for _, c := range changes {
		if c.Breaking {
			return true
		}
	}
	return false
}
