package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bellwether-dev/bellwether/schema"
)

func TestPropertyRemovedIsBreaking(t *testing.T) {
	prev := schema.Document{"type": "object", "properties": schema.Document{
		"location": schema.Document{"type": "string"},
		"units":    schema.Document{"type": "string"},
	}}
	curr := schema.Document{"type": "object", "properties": schema.Document{
		"location": schema.Document{"type": "string"},
	}}
	changes := schema.Compare(prev, curr)
	require.Len(t, changes, 1)
	assert.Equal(t, schema.KindPropertyRemoved, changes[0].Kind)
	assert.True(t, changes[0].Breaking)
}

func TestPropertyAddedNonRequiredIsNonBreaking(t *testing.T) {
	prev := schema.Document{"properties": schema.Document{"a": schema.Document{"type": "string"}}}
	curr := schema.Document{"properties": schema.Document{
		"a": schema.Document{"type": "string"},
		"b": schema.Document{"type": "string"},
	}}
	changes := schema.Compare(prev, curr)
	require.Len(t, changes, 1)
	assert.Equal(t, schema.KindPropertyAdded, changes[0].Kind)
	assert.False(t, changes[0].Breaking)
}

func TestPropertyAddedAsRequiredIsBreaking(t *testing.T) {
	prev := schema.Document{"properties": schema.Document{"location": schema.Document{"type": "string"}}, "required": []any{"location"}}
	curr := schema.Document{
		"properties": schema.Document{
			"location": schema.Document{"type": "string"},
			"units":    schema.Document{"type": "string"},
		},
		"required": []any{"location", "units"},
	}
	changes := schema.Compare(prev, curr)
	var kinds []schema.ChangeKind
	for _, c := range changes {
		kinds = append(kinds, c.Kind)
	}
	assert.Contains(t, kinds, schema.KindRequiredAdded)
	for _, c := range changes {
		if c.Kind == schema.KindRequiredAdded {
			assert.True(t, c.Breaking)
		}
	}
}

func TestRequiredRemovedIsNonBreaking(t *testing.T) {
	prev := schema.Document{"required": []any{"a", "b"}}
	curr := schema.Document{"required": []any{"a"}}
	changes := schema.Compare(prev, curr)
	require.Len(t, changes, 1)
	assert.Equal(t, schema.KindRequiredRemoved, changes[0].Kind)
	assert.False(t, changes[0].Breaking)
}

func TestIntegerToNumberWideningIsNonBreaking(t *testing.T) {
	prev := schema.Document{"type": "integer"}
	curr := schema.Document{"type": "number"}
	changes := schema.Compare(prev, curr)
	require.Len(t, changes, 1)
	assert.False(t, changes[0].Breaking)
}

func TestOtherTypeChangeIsBreaking(t *testing.T) {
	prev := schema.Document{"type": "string"}
	curr := schema.Document{"type": "number"}
	changes := schema.Compare(prev, curr)
	require.Len(t, changes, 1)
	assert.True(t, changes[0].Breaking)
}

func TestEnumValueRemovedIsBreaking(t *testing.T) {
	prev := schema.Document{"enum": []any{"a", "b", "c"}}
	curr := schema.Document{"enum": []any{"a", "b"}}
	changes := schema.Compare(prev, curr)
	require.Len(t, changes, 1)
	assert.Equal(t, schema.KindEnumValueRemoved, changes[0].Kind)
	assert.True(t, changes[0].Breaking)
}

func TestNumericConstraintTighteningIsBreaking(t *testing.T) {
	prev := schema.Document{"minimum": 0.0}
	curr := schema.Document{"minimum": 10.0}
	changes := schema.Compare(prev, curr)
	require.Len(t, changes, 1)
	assert.Equal(t, schema.KindConstraintTightened, changes[0].Kind)
	assert.True(t, changes[0].Breaking)
}

func TestNumericConstraintRelaxingIsNonBreaking(t *testing.T) {
	prev := schema.Document{"maximum": 10.0}
	curr := schema.Document{"maximum": 100.0}
	changes := schema.Compare(prev, curr)
	require.Len(t, changes, 1)
	assert.Equal(t, schema.KindConstraintRelaxed, changes[0].Kind)
	assert.False(t, changes[0].Breaking)
}

func TestFormatChangeIsBreaking(t *testing.T) {
	prev := schema.Document{"format": "date"}
	curr := schema.Document{"format": "date-time"}
	changes := schema.Compare(prev, curr)
	require.Len(t, changes, 1)
	assert.True(t, changes[0].Breaking)
}

func TestDefaultAndDescriptionChangesAreInformational(t *testing.T) {
	prev := schema.Document{"default": "a", "description": "old"}
	curr := schema.Document{"default": "b", "description": "new"}
	changes := schema.Compare(prev, curr)
	require.Len(t, changes, 2)
	for _, c := range changes {
		assert.False(t, c.Breaking)
	}
}

func TestOneOfBranchRemovedIsBreaking(t *testing.T) {
	prev := schema.Document{"oneOf": []any{schema.Document{"type": "string"}, schema.Document{"type": "number"}}}
	curr := schema.Document{"oneOf": []any{schema.Document{"type": "string"}}}
	changes := schema.Compare(prev, curr)
	require.Len(t, changes, 1)
	assert.Equal(t, schema.KindBranchRemoved, changes[0].Kind)
	assert.True(t, changes[0].Breaking)
}

func TestNestedObjectsAndArrayItemsDescend(t *testing.T) {
	prev := schema.Document{
		"type": "object",
		"properties": schema.Document{
			"tags": schema.Document{"type": "array", "items": schema.Document{"type": "string"}},
		},
	}
	curr := schema.Document{
		"type": "object",
		"properties": schema.Document{
			"tags": schema.Document{"type": "array", "items": schema.Document{"type": "number"}},
		},
	}
	changes := schema.Compare(prev, curr)
	require.Len(t, changes, 1)
	assert.Equal(t, "properties.tags.items", changes[0].Path)
	assert.True(t, changes[0].Breaking)
}

func TestUnknownKeyDivergenceIsNonBreaking(t *testing.T) {
	prev := schema.Document{"x-vendor-extension": "a"}
	curr := schema.Document{"x-vendor-extension": "b"}
	changes := schema.Compare(prev, curr)
	require.Len(t, changes, 1)
	assert.Equal(t, schema.KindUnknownKeyDiverged, changes[0].Kind)
	assert.False(t, changes[0].Breaking)
}

func TestValidRejectsMalformedSchema(t *testing.T) {
	assert.True(t, schema.Valid(schema.Document{"type": "string"}))
	assert.False(t, schema.Valid(schema.Document{"type": 123}))
}

func TestCompareIsOrderedByPathThenKind(t *testing.T) {
	prev := schema.Document{
		"properties": schema.Document{
			"b": schema.Document{"type": "string"},
			"a": schema.Document{"type": "string"},
		},
	}
	curr := schema.Document{"properties": schema.Document{}}
	changes := schema.Compare(prev, curr)
	require.Len(t, changes, 2)
	assert.Equal(t, "properties.a", changes[0].Path)
	assert.Equal(t, "properties.b", changes[1].Path)
}
