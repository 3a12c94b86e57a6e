// Severity policy (§4.11): post-processes a BehavioralDiff to apply
// per-aspect overrides, a minimum-severity floor, and warning suppression,
// then re-derives counts, overall severity, and the summary sentence from
// what survives.
package compare

// SeverityConfig controls how ApplySeverityConfig reshapes a diff.
type SeverityConfig struct {
	// MinimumSeverity drops every change ranking below this threshold.
	MinimumSeverity Severity
	// FailOnSeverity is consulted by ShouldFailOnDiff, not by
	// ApplySeverityConfig itself.
	FailOnSeverity Severity
	// SuppressWarnings drops every warning-severity change outright,
	// applied after aspect overrides and the minimum-severity filter.
	SuppressWarnings bool
	// AspectOverrides replaces a change's severity with the configured
	// value before any filtering happens.
	AspectOverrides map[Aspect]Severity
}

// ApplySeverityConfig returns a new BehavioralDiff reflecting config: aspect
// overrides are applied first (a change overridden to SeverityNone is
// dropped), then changes below MinimumSeverity are
// dropped, then warnings are dropped if SuppressWarnings is set, then every
// derived field (counts, severity, summary, toolsModified) is recomputed
// from what survives.
func ApplySeverityConfig(diff *BehavioralDiff, config SeverityConfig) *BehavioralDiff {
	out := *diff
	out.BehaviorChanges = filterChanges(diff.BehaviorChanges, config)

	modified := make([]ToolDiff, 0, len(diff.ToolsModified))
	for _, td := range diff.ToolsModified {
		changes := filterChanges(td.Changes, config)
		if len(changes) == 0 {
			continue
		}
		modified = append(modified, ToolDiff{Name: td.Name, Changes: changes})
	}
	out.ToolsModified = modified

	rollup(&out)
	return &out
}

func filterChanges(changes []BehaviorChange, config SeverityConfig) []BehaviorChange {
	out := make([]BehaviorChange, 0, len(changes))
	for _, ch := range changes {
		if override, ok := config.AspectOverrides[ch.Aspect]; ok {
			ch.Severity = override
		}
		if ch.Severity == SeverityNone || ch.Severity.Less(config.MinimumSeverity) {
			continue
		}
		if config.SuppressWarnings && ch.Severity == SeverityWarning {
			continue
		}
		out = append(out, ch)
	}
	return out
}

// ShouldFailOnDiff reports whether diff's overall severity ranks at or
// above threshold — the exit-code decision callers apply at the CI
// boundary (§6).
func ShouldFailOnDiff(diff *BehavioralDiff, threshold Severity) bool {
	return diff.Severity.AtLeast(threshold)
}
