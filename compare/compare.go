package compare

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/bellwether-dev/bellwether/baseline"
	"github.com/bellwether-dev/bellwether/telemetry"
)

// Comparator drives compareBaselines with an attached observability stack.
// It carries no mutable state between calls — every field is read-only
// collaborator — so a single Comparator value is safe to reuse and to share
// across goroutines; Compare itself never suspends or performs I/O.
type Comparator struct {
	logger  telemetry.Logger
	tracer  telemetry.Tracer
	metrics telemetry.Metrics
}

// New constructs a Comparator. A nil logger/tracer/metrics is replaced with
// its respective Noop implementation so callers who don't care about
// observability can pass zero values.
func New(logger telemetry.Logger, tracer telemetry.Tracer, metrics telemetry.Metrics) *Comparator {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	if tracer == nil {
		tracer = telemetry.NewNoopTracer()
	}
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	return &Comparator{logger: logger, tracer: tracer, metrics: metrics}
}

// Compare is a package-level convenience equivalent to
// New(nil, nil, nil).Compare(context.Background(), previous, current, opts...).
func Compare(previous, current *baseline.Baseline, opts ...Option) (*BehavioralDiff, error) {
	return New(nil, nil, nil).Compare(context.Background(), previous, current, opts...)
}

// Compare walks previous and current and returns a BehavioralDiff (§4.9).
// It is the core engine's single entry point: deterministic, side-effect
// free beyond the attached observability calls, and the only core function
// that can return an error (VersionIncompatibleError), per the failure
// model in §4.9 and §7.
func (c *Comparator) Compare(ctx context.Context, previous, current *baseline.Baseline, opts ...Option) (*BehavioralDiff, error) {
	ctx, span := c.tracer.Start(ctx, "compare.Compare")
	defer span.End()

	options := resolveOptions(opts)

	// Step 1 — version compatibility.
	versionCompat, err := checkVersionCompatibility(previous.FormatVersion, current.FormatVersion)
	if err != nil && !options.IgnoreVersionMismatch {
		span.RecordError(err)
		return nil, err
	}
	c.logger.Debug(ctx, "version compatibility checked", "compatible", versionCompat.Compatible)

	diff := &BehavioralDiff{VersionCompatibility: versionCompat}

	// Step 2 — tool set diff, Step 3 — per-tool aspects.
	prevTools := indexTools(previous.Capabilities.Tools)
	currTools := indexTools(current.Capabilities.Tools)

	for name := range prevTools {
		if !options.toolAllowed(name) {
			continue
		}
		if _, ok := currTools[name]; !ok {
			diff.ToolsRemoved = append(diff.ToolsRemoved, name)
		}
	}
	for name := range currTools {
		if !options.toolAllowed(name) {
			continue
		}
		if _, ok := prevTools[name]; !ok {
			diff.ToolsAdded = append(diff.ToolsAdded, name)
		}
	}
	sort.Strings(diff.ToolsAdded)
	sort.Strings(diff.ToolsRemoved)

	var commonNames []string
	for name := range prevTools {
		if _, ok := currTools[name]; ok && options.toolAllowed(name) {
			commonNames = append(commonNames, name)
		}
	}
	sort.Strings(commonNames)

	for _, name := range commonNames {
		changes := compareTool(prevTools[name], currTools[name], options, previous.Server.ProtocolVersion, current.Server.ProtocolVersion)
		if len(changes) == 0 {
			continue
		}
		sortChanges(changes)
		diff.ToolsModified = append(diff.ToolsModified, ToolDiff{Name: name, Changes: changes})
		diff.BehaviorChanges = append(diff.BehaviorChanges, changes...)
	}

	// Step 4 — non-tool aspects.
	diff.BehaviorChanges = append(diff.BehaviorChanges, compareServer(previous, current)...)
	diff.BehaviorChanges = append(diff.BehaviorChanges, comparePrompts(previous.Capabilities.Prompts, current.Capabilities.Prompts, previous.Server.ProtocolVersion, current.Server.ProtocolVersion)...)
	diff.BehaviorChanges = append(diff.BehaviorChanges, compareResources(previous.Capabilities.Resources, current.Capabilities.Resources, previous.Server.ProtocolVersion, current.Server.ProtocolVersion)...)
	diff.BehaviorChanges = append(diff.BehaviorChanges, compareResourceTemplates(previous.Capabilities.ResourceTemplates, current.Capabilities.ResourceTemplates, previous.Server.ProtocolVersion, current.Server.ProtocolVersion)...)
	diff.BehaviorChanges = append(diff.BehaviorChanges, compareWorkflows(previous.Workflows, current.Workflows)...)

	sortChanges(diff.BehaviorChanges)

	// Step 5 — aggregates.
	diff.PerformanceReport = buildPerformanceReport(prevTools, currTools, commonNames, options.PerformanceThreshold)
	diff.SecurityReport = buildSecurityReport(prevTools, currTools, commonNames)
	diff.SchemaEvolutionReport = buildSchemaEvolutionReport(prevTools, currTools, commonNames, diff.BehaviorChanges)
	diff.ErrorTrendReport = buildErrorTrendReport(prevTools, currTools, commonNames)
	diff.DocumentationScoreReport = buildDocumentationScoreReport(previous.DocumentationScore, current.DocumentationScore)

	// Step 6 — severity rollup and summary.
	rollup(diff)

	c.metrics.IncCounter("compare.runs", 1)
	c.logger.Info(ctx, "compare finished", "severity", string(diff.Severity), "breaking", diff.BreakingCount, "warning", diff.WarningCount, "info", diff.InfoCount)

	return diff, nil
}

// checkVersionCompatibility parses both formatVersions and reports whether
// their major components match (§4.9 Step 1).
func checkVersionCompatibility(previousVersion, currentVersion string) (VersionCompatibility, error) {
	vc := VersionCompatibility{PreviousVersion: previousVersion, CurrentVersion: currentVersion, Compatible: true}

	prevSV, err := semver.NewVersion(previousVersion)
	if err != nil {
		vc.Compatible = false
		vc.Reason = fmt.Sprintf("previous formatVersion %q is not valid semver", previousVersion)
		return vc, &VersionIncompatibleError{PreviousVersion: previousVersion, CurrentVersion: currentVersion}
	}
	currSV, err := semver.NewVersion(currentVersion)
	if err != nil {
		vc.Compatible = false
		vc.Reason = fmt.Sprintf("current formatVersion %q is not valid semver", currentVersion)
		return vc, &VersionIncompatibleError{PreviousVersion: previousVersion, CurrentVersion: currentVersion}
	}
	if prevSV.Major() != currSV.Major() {
		vc.Compatible = false
		vc.Reason = fmt.Sprintf("major version mismatch: %d vs %d", prevSV.Major(), currSV.Major())
		return vc, &VersionIncompatibleError{PreviousVersion: previousVersion, CurrentVersion: currentVersion}
	}
	return vc, nil
}

func indexTools(tools []baseline.ToolCapability) map[string]baseline.ToolCapability {
	m := make(map[string]baseline.ToolCapability, len(tools))
	for _, t := range tools {
		m[t.Name] = t
	}
	return m
}

// rollup computes BreakingCount/WarningCount/InfoCount/Severity/Summary
// from the diff's already-populated slices (§4.9 Step 6).
func rollup(diff *BehavioralDiff) {
	breaking, warning, info := 0, 0, 0
	for _, ch := range diff.BehaviorChanges {
		switch ch.Severity {
		case SeverityBreaking:
			breaking++
		case SeverityWarning:
			warning++
		case SeverityInfo:
			info++
		}
	}
	diff.BreakingCount = len(diff.ToolsRemoved) + breaking
	diff.WarningCount = warning
	diff.InfoCount = len(diff.ToolsAdded) + info

	switch {
	case diff.BreakingCount > 0:
		diff.Severity = SeverityBreaking
	case diff.WarningCount > 0:
		diff.Severity = SeverityWarning
	case diff.InfoCount > 0:
		diff.Severity = SeverityInfo
	default:
		diff.Severity = SeverityNone
	}

	diff.Summary = summarize(diff)
}

// summarize builds the one deterministic sentence enumerating
// removed/added/modified counts and breaking/warning counts (§4.9 Step 6).
func summarize(diff *BehavioralDiff) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d tool(s) removed, %d added, %d modified", len(diff.ToolsRemoved), len(diff.ToolsAdded), len(diff.ToolsModified))
	fmt.Fprintf(&b, " (%d breaking, %d warning, %d info)", diff.BreakingCount, diff.WarningCount, diff.InfoCount)
	return b.String()
}
