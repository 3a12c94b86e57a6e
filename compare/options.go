package compare

import "github.com/bellwether-dev/bellwether/perf"

// Options controls which aspects Compare evaluates and how it tolerates
// version skew (§6 "Comparator options").
type Options struct {
	// IgnoreVersionMismatch bypasses the major-formatVersion compatibility
	// check in Step 1. When set, Compare never returns
	// VersionIncompatibleError, but VersionCompatibility.Compatible still
	// reports the true result.
	IgnoreVersionMismatch bool

	IgnoreSchemaChanges            bool
	IgnoreDescriptionChanges       bool
	IgnoreResponseStructureChanges bool
	IgnoreErrorPatternChanges      bool
	IgnoreSecurityChanges          bool
	IgnoreOutputSchemaChanges      bool

	// Tools, when non-empty, restricts the diff to only these tool names.
	Tools []string

	// PerformanceThreshold is the regression fraction (default
	// perf.DefaultRegressionThreshold) above which a p50 increase is
	// flagged as a regression in the PerformanceRegressionReport.
	PerformanceThreshold float64
}

// Option configures an Options value, following the functional-options
// convention used throughout this module's constructors.
type Option func(*Options)

// WithTools restricts the comparison to the given tool name allowlist.
func WithTools(names ...string) Option {
	return func(o *Options) { o.Tools = names }
}

// WithPerformanceThreshold overrides the default regression threshold.
func WithPerformanceThreshold(threshold float64) Option {
	return func(o *Options) { o.PerformanceThreshold = threshold }
}

// WithIgnoreVersionMismatch bypasses the major-version compatibility check.
func WithIgnoreVersionMismatch() Option {
	return func(o *Options) { o.IgnoreVersionMismatch = true }
}

// WithIgnoreSchemaChanges suppresses input-schema diffing for every tool.
func WithIgnoreSchemaChanges() Option {
	return func(o *Options) { o.IgnoreSchemaChanges = true }
}

// WithIgnoreDescriptionChanges suppresses description-diffing for every
// tool; prompt, resource, and resource-template description changes are
// still reported.
func WithIgnoreDescriptionChanges() Option {
	return func(o *Options) { o.IgnoreDescriptionChanges = true }
}

// WithIgnoreResponseStructureChanges suppresses response-fingerprint and
// response-schema-evolution diffing for every tool.
func WithIgnoreResponseStructureChanges() Option {
	return func(o *Options) { o.IgnoreResponseStructureChanges = true }
}

// WithIgnoreErrorPatternChanges suppresses error-pattern diffing for every
// tool.
func WithIgnoreErrorPatternChanges() Option {
	return func(o *Options) { o.IgnoreErrorPatternChanges = true }
}

// WithIgnoreSecurityChanges suppresses security-fingerprint diffing for
// every tool.
func WithIgnoreSecurityChanges() Option {
	return func(o *Options) { o.IgnoreSecurityChanges = true }
}

// WithIgnoreOutputSchemaChanges suppresses output-schema diffing for every
// tool.
func WithIgnoreOutputSchemaChanges() Option {
	return func(o *Options) { o.IgnoreOutputSchemaChanges = true }
}

// defaultOptions returns the zero-value Options with its one non-zero
// default applied.
func defaultOptions() Options {
	return Options{PerformanceThreshold: perf.DefaultRegressionThreshold}
}

// resolveOptions applies opts on top of defaultOptions.
func resolveOptions(opts []Option) Options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// toolAllowed reports whether name passes the Tools allowlist (an empty
// allowlist passes every tool).
func (o Options) toolAllowed(name string) bool {
	if len(o.Tools) == 0 {
		return true
	}
	for _, t := range o.Tools {
		if t == name {
			return true
		}
	}
	return false
}
