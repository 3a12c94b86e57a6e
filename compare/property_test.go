package compare_test

import (
	"sort"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"github.com/bellwether-dev/bellwether/baseline"
	"github.com/bellwether-dev/bellwether/compare"
	"github.com/bellwether-dev/bellwether/schema"
)

func namedTool(name string, required bool) baseline.DeclaredTool {
	var req []any
	if required {
		req = []any{"location"}
	}
	return baseline.DeclaredTool{
		Name:        name,
		Description: "a tool named " + name,
		InputSchema: schema.Document{
			"type":       "object",
			"properties": schema.Document{"location": schema.Document{"type": "string"}},
			"required":   req,
		},
	}
}

func buildNamed(t *testing.T, names []string, required bool) *baseline.Baseline {
	t.Helper()
	tools := make([]baseline.DeclaredTool, len(names))
	for i, n := range names {
		tools[i] = namedTool(n, required)
	}
	b, err := baseline.Build(baseline.BuildInput{
		Mode:        baseline.ModeCheck,
		GeneratedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Discovery: baseline.DiscoverySource{
			ServerName: "server", ServerVersion: "1.0.0", ProtocolVersion: "2025-06-18",
			Tools: tools,
		},
	})
	require.NoError(t, err)
	return b
}

// TestAntiSymmetryOfToolPresence verifies Property: Anti-symmetry of
// presence. For any tool present in the previous baseline and absent from
// the current one, it appears in ToolsRemoved and overall severity is at
// least breaking.
func TestAntiSymmetryOfToolPresence(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	names := []string{"alpha", "beta", "gamma", "delta"}

	properties.Property("removed tools always land in ToolsRemoved with breaking severity", prop.ForAll(
		func(keepMask []bool) bool {
			var before, after []string
			for i, n := range names {
				before = append(before, n)
				if keepMask[i] {
					after = append(after, n)
				}
			}
			prev := buildNamed(t, before, true)
			curr := buildNamed(t, after, true)

			diff, err := compare.Compare(prev, curr)
			if err != nil {
				return false
			}
			removedSet := map[string]bool{}
			for _, r := range diff.ToolsRemoved {
				removedSet[r] = true
			}
			anyRemoved := false
			for i, n := range names {
				if !keepMask[i] {
					if !removedSet[n] {
						return false
					}
					anyRemoved = true
				}
			}
			if anyRemoved && !diff.Severity.AtLeast(compare.SeverityBreaking) {
				return false
			}
			return true
		},
		gen.SliceOfN(len(names), gen.Bool()),
	))

	properties.TestingRun(t)
}

// TestBehaviorChangesAreSorted verifies Property: Ordering. Every
// BehavioralDiff's BehaviorChanges slice is sorted by (Tool, Aspect,
// Description).
func TestBehaviorChangesAreSorted(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("behaviorChanges is sorted by (tool, aspect, description)", prop.ForAll(
		func(requiredBefore, requiredAfter bool) bool {
			prev := buildNamed(t, []string{"alpha", "beta"}, requiredBefore)
			curr := buildNamed(t, []string{"alpha", "beta"}, requiredAfter)

			diff, err := compare.Compare(prev, curr)
			if err != nil {
				return false
			}
			return sort.SliceIsSorted(diff.BehaviorChanges, func(i, j int) bool {
				a, b := diff.BehaviorChanges[i], diff.BehaviorChanges[j]
				if a.Tool != b.Tool {
					return a.Tool < b.Tool
				}
				if a.Aspect != b.Aspect {
					return a.Aspect < b.Aspect
				}
				return a.Description < b.Description
			})
		},
		gen.Bool(), gen.Bool(),
	))

	properties.TestingRun(t)
}

// TestSeverityMonotonicityUnderPolicy verifies Property: Severity
// monotonicity. Applying a severity config (minimum severity floor, aspect
// overrides, warning suppression) never raises the overall severity.
func TestSeverityMonotonicityUnderPolicy(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	minimums := []compare.Severity{compare.SeverityNone, compare.SeverityInfo, compare.SeverityWarning, compare.SeverityBreaking}

	properties.Property("ApplySeverityConfig(d, c).severity <= d.severity", prop.ForAll(
		func(keepMask []bool, minIdx int, suppressWarnings bool) bool {
			var before, after []string
			names := []string{"alpha", "beta", "gamma"}
			for i, n := range names {
				before = append(before, n)
				if keepMask[i] {
					after = append(after, n)
				}
			}
			prev := buildNamed(t, before, true)
			curr := buildNamed(t, after, false)

			diff, err := compare.Compare(prev, curr)
			if err != nil {
				return false
			}
			cfg := compare.SeverityConfig{MinimumSeverity: minimums[minIdx%len(minimums)], SuppressWarnings: suppressWarnings}
			filtered := compare.ApplySeverityConfig(diff, cfg)
			return !diff.Severity.Less(filtered.Severity)
		},
		gen.SliceOfN(len(names2()), gen.Bool()),
		gen.IntRange(0, 3),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func names2() []string { return []string{"alpha", "beta", "gamma"} }

// TestIdempotentComparePropertyHolds verifies Property: Idempotence, across
// randomly generated tool sets.
func TestIdempotentComparePropertyHolds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	properties.Property("compareBaselines(B, B, {}).severity == none", prop.ForAll(
		func(n int, required bool) bool {
			names := []string{"alpha", "beta", "gamma", "delta", "epsilon"}[:n%5+1]
			b := buildNamed(t, names, required)
			diff, err := compare.Compare(b, b)
			if err != nil {
				return false
			}
			return diff.Severity == compare.SeverityNone && len(diff.BehaviorChanges) == 0
		},
		gen.IntRange(0, 100),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
