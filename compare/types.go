// Package compare implements the deterministic comparator (§4.9): given two
// Baselines it produces a typed, severity-classified BehavioralDiff. The
// comparator is a pure function — it performs no I/O and never suspends —
// and the aggregate reporters (§4.10) and severity policy (§4.11) that
// shape its output live alongside it in this package.
package compare

import "sort"

// Severity is the four-valued classification attached to every change and
// rolled up onto the diff as a whole: none < info < warning < breaking.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityBreaking Severity = "breaking"
)

var severityRank = map[Severity]int{
	SeverityNone:     0,
	SeverityInfo:     1,
	SeverityWarning:  2,
	SeverityBreaking: 3,
}

// rank returns a Severity's position in the none < info < warning < breaking
// order; unrecognized values rank below "none" so they never win a max-over
// comparison silently.
func rank(s Severity) int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return -1
}

// Less reports whether a ranks strictly below b.
func (s Severity) Less(other Severity) bool { return rank(s) < rank(other) }

// AtLeast reports whether s ranks at or above threshold.
func (s Severity) AtLeast(threshold Severity) bool { return rank(s) >= rank(threshold) }

// Aspect identifies which facet of a tool, prompt, resource, or server a
// BehaviorChange describes.
type Aspect string

const (
	AspectSchema                  Aspect = "schema"
	AspectDescription             Aspect = "description"
	AspectToolAnnotations         Aspect = "tool_annotations"
	AspectOutputSchema            Aspect = "output_schema"
	AspectResponseStructure       Aspect = "response_structure"
	AspectResponseSchemaEvolution Aspect = "response_schema_evolution"
	AspectErrorPattern            Aspect = "error_pattern"
	AspectSecurity                Aspect = "security"
	AspectErrorHandling           Aspect = "error_handling"
	AspectPrompt                  Aspect = "prompt"
	AspectResource                Aspect = "resource"
	AspectResourceAnnotations     Aspect = "resource_annotations"
	AspectResourceTemplate        Aspect = "resource_template"
	AspectCapability              Aspect = "capability"
	AspectServer                  Aspect = "server"
	AspectTitle                   Aspect = "title"
	AspectExecution               Aspect = "execution"
	AspectWorkflow                Aspect = "workflow"
)

// BehaviorChange is a single classified difference between two baselines,
// scoped to one tool, prompt, resource, resource template, workflow, or the
// server itself (§3).
type BehaviorChange struct {
	// Tool names the entity this change is about: a tool/prompt/resource
	// name, a workflow id, or the literal "server" placeholder for
	// server-level changes.
	Tool        string   `json:"tool"`
	Aspect      Aspect   `json:"aspect"`
	Before      string   `json:"before"`
	After       string   `json:"after"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
}

// ToolDiff bundles every BehaviorChange recorded for one tool present in
// both baselines.
type ToolDiff struct {
	Name    string            `json:"name"`
	Changes []BehaviorChange `json:"changes"`
}

// VersionCompatibility records the formatVersion comparability check from
// §4.9 Step 1. It is always attached to the diff, even when the compare
// proceeded under ignoreVersionMismatch.
type VersionCompatibility struct {
	PreviousVersion string `json:"previousVersion"`
	CurrentVersion  string `json:"currentVersion"`
	Compatible      bool   `json:"compatible"`
	Reason          string `json:"reason,omitempty"`
}

// PerformanceRegression is one tool's p50 regression detail (§4.5).
type PerformanceRegression struct {
	Tool               string  `json:"tool"`
	PreviousP50Ms      float64 `json:"previousP50Ms"`
	CurrentP50Ms       float64 `json:"currentP50Ms"`
	RegressionPercent  float64 `json:"regressionPercent"`
	Reliable           bool    `json:"reliable"`
}

// PerformanceRegressionReport is the C10 aggregate over every tool with
// latency data on both sides of the compare.
type PerformanceRegressionReport struct {
	Regressions        []PerformanceRegression `json:"regressions,omitempty"`
	ImprovementCount    int                     `json:"improvementCount"`
	LowConfidenceTools  []string                `json:"lowConfidenceTools,omitempty"`
	HasRegressions      bool                    `json:"hasRegressions"`
}

// SecurityFindingRef identifies a single new or resolved security finding
// in the SecurityDiffReport. ID is a name-based UUID derived from the
// tool|category|cweId|parameter composite key used internally for matching,
// so the same finding gets the same ID in every report and callers filing a
// ticket against it have a stable, opaque handle.
type SecurityFindingRef struct {
	ID        string `json:"id"`
	Tool      string `json:"tool"`
	Category  string `json:"category"`
	RiskLevel string `json:"riskLevel"`
	Title     string `json:"title"`
}

// SecurityDiffReport is the C10 aggregate over every tool with security
// findings on either side of the compare.
type SecurityDiffReport struct {
	NewFindings      []SecurityFindingRef `json:"newFindings,omitempty"`
	ResolvedFindings []SecurityFindingRef `json:"resolvedFindings,omitempty"`
	PreviousRiskScore float64             `json:"previousRiskScore"`
	CurrentRiskScore  float64             `json:"currentRiskScore"`
	Degraded          bool                `json:"degraded"`
}

// SchemaEvolutionReport is the C10 aggregate over every tool's response
// schema evolution history.
type SchemaEvolutionReport struct {
	StableCount            int  `json:"stableCount"`
	UnstableCount          int  `json:"unstableCount"`
	StructureChangedCount  int  `json:"structureChangedCount"`
	HasBreakingChanges     bool `json:"hasBreakingChanges"`
}

// ErrorTrendReport is the C10 aggregate over every tool's classified error
// patterns.
type ErrorTrendReport struct {
	NewCategories        []string `json:"newCategories,omitempty"`
	ResolvedCategories    []string `json:"resolvedCategories,omitempty"`
	IncreasingCategories  []string `json:"increasingCategories,omitempty"`
}

// DocumentationScoreReport is the C10 aggregate over the baseline-level
// documentation score.
type DocumentationScoreReport struct {
	Improved      bool   `json:"improved"`
	Degraded      bool   `json:"degraded"`
	PreviousGrade string `json:"previousGrade"`
	CurrentGrade  string `json:"currentGrade"`
}

// BehavioralDiff is the full output of comparing two baselines (§3, §4.9).
type BehavioralDiff struct {
	ToolsAdded      []string          `json:"toolsAdded,omitempty"`
	ToolsRemoved    []string          `json:"toolsRemoved,omitempty"`
	ToolsModified   []ToolDiff        `json:"toolsModified,omitempty"`
	BehaviorChanges []BehaviorChange  `json:"behaviorChanges,omitempty"`

	Severity      Severity `json:"severity"`
	BreakingCount int      `json:"breakingCount"`
	WarningCount  int      `json:"warningCount"`
	InfoCount     int      `json:"infoCount"`
	Summary       string   `json:"summary"`

	VersionCompatibility VersionCompatibility `json:"versionCompatibility"`

	PerformanceReport        *PerformanceRegressionReport `json:"performanceReport,omitempty"`
	SecurityReport           *SecurityDiffReport          `json:"securityReport,omitempty"`
	SchemaEvolutionReport    *SchemaEvolutionReport       `json:"schemaEvolutionReport,omitempty"`
	ErrorTrendReport         *ErrorTrendReport            `json:"errorTrendReport,omitempty"`
	DocumentationScoreReport *DocumentationScoreReport    `json:"documentationScoreReport,omitempty"`
}

// sortChanges orders a BehaviorChange slice by (Tool, Aspect, Description),
// the stable key the determinism contract (§5) requires.
func sortChanges(changes []BehaviorChange) {
	sort.Slice(changes, func(i, j int) bool {
		if changes[i].Tool != changes[j].Tool {
			return changes[i].Tool < changes[j].Tool
		}
		if changes[i].Aspect != changes[j].Aspect {
			return changes[i].Aspect < changes[j].Aspect
		}
		return changes[i].Description < changes[j].Description
	})
}
