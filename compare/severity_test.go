package compare_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bellwether-dev/bellwether/baseline"
	"github.com/bellwether-dev/bellwether/compare"
)

func diffForRequiredFieldAdded(t *testing.T) *compare.BehavioralDiff {
	t.Helper()
	before := mustBuild(t, baseInput(weatherTool("location")))
	after := mustBuild(t, baseInput(weatherTool("location", "units")))
	diff, err := compare.Compare(before, after)
	require.NoError(t, err)
	return diff
}

func TestApplySeverityConfigDropsBelowMinimum(t *testing.T) {
	diff := diffForRequiredFieldAdded(t)
	require.Equal(t, compare.SeverityBreaking, diff.Severity)

	filtered := compare.ApplySeverityConfig(diff, compare.SeverityConfig{MinimumSeverity: compare.SeverityBreaking})
	assert.Equal(t, compare.SeverityBreaking, filtered.Severity)

	filteredOut := compare.ApplySeverityConfig(diff, compare.SeverityConfig{
		AspectOverrides: map[compare.Aspect]compare.Severity{compare.AspectSchema: compare.SeverityNone},
	})
	assert.Equal(t, compare.SeverityNone, filteredOut.Severity)
	assert.Empty(t, filteredOut.ToolsModified)
}

func TestApplySeverityConfigSuppressesWarnings(t *testing.T) {
	before := mustBuild(t, baseInput(weatherTool("location")))
	tool := weatherTool("location")
	idempotent := true
	tool.Annotations = &baseline.Annotations{IdempotentHint: &idempotent}
	after := mustBuild(t, baseInput(tool))

	diff, err := compare.Compare(before, after)
	require.NoError(t, err)
	require.Equal(t, compare.SeverityWarning, diff.Severity)

	filtered := compare.ApplySeverityConfig(diff, compare.SeverityConfig{SuppressWarnings: true})
	assert.Equal(t, compare.SeverityNone, filtered.Severity)
}

func TestShouldFailOnDiff(t *testing.T) {
	diff := diffForRequiredFieldAdded(t)
	assert.True(t, compare.ShouldFailOnDiff(diff, compare.SeverityBreaking))
	assert.True(t, compare.ShouldFailOnDiff(diff, compare.SeverityWarning))
	assert.False(t, compare.ShouldFailOnDiff(&compare.BehavioralDiff{Severity: compare.SeverityInfo}, compare.SeverityWarning))
}

func TestApplySeverityConfigRecomputesSummary(t *testing.T) {
	diff := diffForRequiredFieldAdded(t)
	filtered := compare.ApplySeverityConfig(diff, compare.SeverityConfig{MinimumSeverity: compare.SeverityNone})
	assert.NotEmpty(t, filtered.Summary)
}
