package compare_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bellwether-dev/bellwether/baseline"
	"github.com/bellwether-dev/bellwether/compare"
	"github.com/bellwether-dev/bellwether/fingerprint"
	"github.com/bellwether-dev/bellwether/perf"
	"github.com/bellwether-dev/bellwether/schema"
)

func mustBuild(t *testing.T, in baseline.BuildInput) *baseline.Baseline {
	t.Helper()
	b, err := baseline.Build(in)
	require.NoError(t, err)
	return b
}

func baseInput(tools ...baseline.DeclaredTool) baseline.BuildInput {
	return baseline.BuildInput{
		Mode:        baseline.ModeCheck,
		GeneratedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		CLIVersion:  "1.0.0",
		Discovery: baseline.DiscoverySource{
			ServerName:      "weather-server",
			ServerVersion:   "2.1.0",
			ProtocolVersion: "2025-06-18",
			Tools:           tools,
		},
	}
}

func weatherTool(requiredFields ...string) baseline.DeclaredTool {
	required := make([]any, len(requiredFields))
	for i, f := range requiredFields {
		required[i] = f
	}
	return baseline.DeclaredTool{
		Name:        "get_weather",
		Description: "Fetches current weather for a location.",
		InputSchema: schema.Document{
			"type": "object",
			"properties": schema.Document{
				"location": schema.Document{"type": "string"},
				"units":    schema.Document{"type": "string"},
			},
			"required": required,
		},
	}
}

func calculateTool() baseline.DeclaredTool {
	return baseline.DeclaredTool{
		Name:        "calculate",
		Description: "Evaluates a simple arithmetic expression.",
		InputSchema: schema.Document{"type": "object"},
	}
}

// TestToolRemoved covers §8 scenario 1.
func TestToolRemoved(t *testing.T) {
	before := mustBuild(t, baseInput(weatherTool("location"), calculateTool()))
	after := mustBuild(t, baseInput(calculateTool()))

	diff, err := compare.Compare(before, after)
	require.NoError(t, err)

	assert.Equal(t, []string{"get_weather"}, diff.ToolsRemoved)
	assert.Empty(t, diff.ToolsAdded)
	assert.Equal(t, compare.SeverityBreaking, diff.Severity)
	assert.GreaterOrEqual(t, diff.BreakingCount, 1)
}

// TestRequiredInputFieldAdded covers §8 scenario 2.
func TestRequiredInputFieldAdded(t *testing.T) {
	before := mustBuild(t, baseInput(weatherTool("location")))
	after := mustBuild(t, baseInput(weatherTool("location", "units")))

	diff, err := compare.Compare(before, after)
	require.NoError(t, err)

	require.Len(t, diff.ToolsModified, 1)
	var found *compare.BehaviorChange
	for i, ch := range diff.ToolsModified[0].Changes {
		if ch.Aspect == compare.AspectSchema && ch.Severity == compare.SeverityBreaking {
			found = &diff.ToolsModified[0].Changes[i]
		}
	}
	require.NotNil(t, found)
	assert.Contains(t, found.Description, "units")
	assert.Equal(t, compare.SeverityBreaking, diff.Severity)
}

func toolWithResponseFields(fields ...string) baseline.ProbeResult {
	value := map[string]any{}
	for _, f := range fields {
		value[f] = "x"
	}
	return baseline.ProbeResult{
		Samples: []fingerprint.Sample{
			{Success: true, Value: value},
			{Success: true, Value: value},
		},
	}
}

// TestResponseFieldsRemoved covers §8 scenario 3.
func TestResponseFieldsRemoved(t *testing.T) {
	in1 := baseInput(weatherTool("location"))
	in1.Probes = map[string]baseline.ProbeResult{"get_weather": toolWithResponseFields("status", "data", "meta")}
	before := mustBuild(t, in1)

	in2 := baseInput(weatherTool("location"))
	in2.Probes = map[string]baseline.ProbeResult{"get_weather": toolWithResponseFields("status")}
	after := mustBuild(t, in2)

	diff, err := compare.Compare(before, after)
	require.NoError(t, err)

	require.Len(t, diff.ToolsModified, 1)
	var structural []compare.BehaviorChange
	for _, ch := range diff.ToolsModified[0].Changes {
		if ch.Aspect == compare.AspectResponseStructure && ch.Severity == compare.SeverityBreaking {
			structural = append(structural, ch)
		}
	}
	assert.NotEmpty(t, structural)
}

// TestNewCriticalSecurityFinding covers §8 scenario 4.
func TestNewCriticalSecurityFinding(t *testing.T) {
	in1 := baseInput(weatherTool("location"))
	before := mustBuild(t, in1)

	in2 := baseInput(weatherTool("location"))
	in2.Probes = map[string]baseline.ProbeResult{
		"get_weather": {
			Security: &baseline.SecurityFingerprint{
				Tested:           true,
				CategoriesTested: []string{"sql_injection"},
				Findings: []baseline.SecurityFinding{
					{Category: "sql_injection", RiskLevel: baseline.RiskCritical, Title: "unsanitized location parameter"},
				},
				RiskScore: 90,
				TestedAt:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			},
		},
	}
	after := mustBuild(t, in2)

	diff, err := compare.Compare(before, after)
	require.NoError(t, err)

	require.Len(t, diff.ToolsModified, 1)
	var found bool
	for _, ch := range diff.ToolsModified[0].Changes {
		if ch.Aspect == compare.AspectSecurity && ch.Severity == compare.SeverityBreaking {
			found = true
		}
	}
	assert.True(t, found)
	require.NotNil(t, diff.SecurityReport)
	assert.GreaterOrEqual(t, len(diff.SecurityReport.NewFindings), 1)
	assert.True(t, diff.SecurityReport.Degraded)
}

func latenciesAround(ms float64, n int) []perf.Sample {
	out := make([]perf.Sample, n)
	for i := range out {
		out[i] = perf.Sample{ToolName: "get_weather", DurationMs: ms, Success: true}
	}
	return out
}

// TestPerformanceRegressionSurfacesOnlyInReport covers §8 scenario 5.
func TestPerformanceRegressionSurfacesOnlyInReport(t *testing.T) {
	in1 := baseInput(weatherTool("location"))
	in1.Probes = map[string]baseline.ProbeResult{"get_weather": {Latencies: latenciesAround(100, 12)}}
	before := mustBuild(t, in1)

	in2 := baseInput(weatherTool("location"))
	in2.Probes = map[string]baseline.ProbeResult{"get_weather": {Latencies: latenciesAround(150, 12)}}
	after := mustBuild(t, in2)

	diff, err := compare.Compare(before, after)
	require.NoError(t, err)

	require.NotNil(t, diff.PerformanceReport)
	assert.True(t, diff.PerformanceReport.HasRegressions)
	require.Len(t, diff.PerformanceReport.Regressions, 1)
	assert.InDelta(t, 0.5, diff.PerformanceReport.Regressions[0].RegressionPercent, 0.01)
	assert.True(t, diff.PerformanceReport.Regressions[0].Reliable)

	for _, td := range diff.ToolsModified {
		for _, ch := range td.Changes {
			assert.NotEqual(t, compare.Aspect("performance"), ch.Aspect)
		}
	}
}

// TestProtocolGatedAnnotationSuppressed covers §8 scenario 6.
func TestProtocolGatedAnnotationSuppressed(t *testing.T) {
	tool := weatherTool("location")
	in1 := baseInput(tool)
	in1.Discovery.ProtocolVersion = "2024-11-05"
	before := mustBuild(t, in1)

	trueVal := true
	taggedTool := tool
	taggedTool.Annotations = &baseline.Annotations{ReadOnlyHint: &trueVal}
	in2 := baseInput(taggedTool)
	in2.Discovery.ProtocolVersion = "2024-11-05"
	after := mustBuild(t, in2)

	diff, err := compare.Compare(before, after)
	require.NoError(t, err)

	for _, td := range diff.ToolsModified {
		for _, ch := range td.Changes {
			assert.NotEqual(t, compare.AspectToolAnnotations, ch.Aspect)
		}
	}
	assert.Equal(t, compare.SeverityNone, diff.Severity)
}

func TestIdempotentCompareIsEmpty(t *testing.T) {
	b := mustBuild(t, baseInput(weatherTool("location"), calculateTool()))
	diff, err := compare.Compare(b, b)
	require.NoError(t, err)
	assert.Equal(t, compare.SeverityNone, diff.Severity)
	assert.Empty(t, diff.ToolsAdded)
	assert.Empty(t, diff.ToolsRemoved)
	assert.Empty(t, diff.ToolsModified)
	assert.Empty(t, diff.BehaviorChanges)
}

func TestVersionIncompatibleErrorOnMajorMismatch(t *testing.T) {
	before := mustBuild(t, baseInput(weatherTool("location")))
	after := mustBuild(t, baseInput(weatherTool("location")))
	after.FormatVersion = "2.0.0"

	_, err := compare.Compare(before, after)
	require.Error(t, err)
	var verr *compare.VersionIncompatibleError
	require.ErrorAs(t, err, &verr)
}

func TestVersionIncompatibleCanBeIgnored(t *testing.T) {
	before := mustBuild(t, baseInput(weatherTool("location")))
	after := mustBuild(t, baseInput(weatherTool("location")))
	after.FormatVersion = "2.0.0"

	diff, err := compare.Compare(before, after, compare.WithIgnoreVersionMismatch())
	require.NoError(t, err)
	assert.False(t, diff.VersionCompatibility.Compatible)
}

func TestToolsAllowlistRestrictsDiff(t *testing.T) {
	before := mustBuild(t, baseInput(weatherTool("location"), calculateTool()))
	after := mustBuild(t, baseInput(calculateTool()))

	diff, err := compare.Compare(before, after, compare.WithTools("calculate"))
	require.NoError(t, err)
	assert.Empty(t, diff.ToolsRemoved)
}

func TestWithIgnoreSchemaChangesSuppressesSchemaDiff(t *testing.T) {
	before := mustBuild(t, baseInput(weatherTool("location")))
	after := mustBuild(t, baseInput(weatherTool("location", "units")))

	diff, err := compare.Compare(before, after, compare.WithIgnoreSchemaChanges())
	require.NoError(t, err)
	assert.Empty(t, diff.ToolsModified)
	assert.Equal(t, compare.SeverityNone, diff.Severity)
}

func TestWithIgnoreDescriptionChangesSuppressesDescriptionDiff(t *testing.T) {
	before := mustBuild(t, baseInput(weatherTool("location")))
	after := mustBuild(t, baseInput(weatherTool("location")))
	after.Capabilities.Tools[0].Description = "A completely different description."

	diff, err := compare.Compare(before, after, compare.WithIgnoreDescriptionChanges())
	require.NoError(t, err)
	assert.Empty(t, diff.ToolsModified)
}

func TestComparatorUsesAttachedTelemetryWithoutAffectingOutput(t *testing.T) {
	before := mustBuild(t, baseInput(weatherTool("location")))
	after := mustBuild(t, baseInput(weatherTool("location", "units")))

	c := compare.New(nil, nil, nil)
	diff, err := c.Compare(context.Background(), before, after)
	require.NoError(t, err)
	assert.Equal(t, compare.SeverityBreaking, diff.Severity)
}
