package baseline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bellwether-dev/bellwether/canon"
	"github.com/bellwether-dev/bellwether/docscore"
	"github.com/bellwether-dev/bellwether/evolution"
	"github.com/bellwether-dev/bellwether/fingerprint"
	"github.com/bellwether-dev/bellwether/perf"
	"github.com/bellwether-dev/bellwether/schema"
	"github.com/bellwether-dev/bellwether/telemetry"
)

// DeclaredTool is the static shape of one tool as returned by server
// discovery (tools/list), before any probing happens.
type DeclaredTool struct {
	Name         string
	Description  string
	Title        string
	InputSchema  schema.Document
	OutputSchema schema.Document
	Annotations  *Annotations
	Execution    *Execution
}

// DiscoverySource is the static capability listing collected for a single
// baseline run. Building it — talking to a server over whatever transport —
// is out of scope for this module; callers supply the already-decoded
// result.
type DiscoverySource struct {
	ServerName        string
	ServerVersion     string
	ProtocolVersion   string
	Capabilities      []string
	Tools             []DeclaredTool
	Prompts           []PromptCapability
	Resources         []ResourceCapability
	ResourceTemplates []ResourceTemplateCapability
}

// NarrativeAssertion is one recorded observation about a tool's behavior
// that a probe run (or operator) wants recorded as an Assertion.
type NarrativeAssertion struct {
	Text     string
	Positive bool
	Security bool
}

// ToolNarrative bundles a tool's free-text documentation and narrative
// assertions, independent of its schema or sampled behavior.
type ToolNarrative struct {
	Description  string
	Parameters   []docscore.Param
	ExampleCount int
	Assertions   []NarrativeAssertion
}

// ProbeResult is everything a probe run observed for a single tool:
// the argument values it issued, the resulting response samples, the
// inferred-schema batches it accumulated over time, latency samples, and
// any recorded security findings. Producing this data — issuing calls, an
// LLM deciding what to explore — is out of scope; this module only turns
// already-collected observations into a baseline.
type ProbeResult struct {
	ToolName      string
	ObservedArgs  []map[string]any
	Samples       []fingerprint.Sample
	SchemaBatches []evolution.Batch
	Latencies     []perf.Sample
	Security      *SecurityFingerprint
}

// BuildInput is everything the Builder needs to assemble a Baseline.
type BuildInput struct {
	Mode          Mode
	GeneratedAt   time.Time
	CLIVersion    string
	ServerCommand string
	DurationMs    int64
	Personas      []string
	Model         string

	Discovery DiscoverySource
	Probes    map[string]ProbeResult
	Narrative map[string]ToolNarrative

	Workflows []WorkflowOutcome
}

// Build assembles a Baseline from discovery and probe data, computing every
// derived field (schema hashes, response fingerprints, evolution history,
// performance confidence, documentation score, assertions, and the final
// content hash) deterministically from its input.
//
// Tools are processed in name-sorted order regardless of the order probes
// were collected in, so that concurrent probing never affects the
// resulting baseline's hash.
func Build(in BuildInput) (*Baseline, error) {
	tools := make([]DeclaredTool, len(in.Discovery.Tools))
	copy(tools, in.Discovery.Tools)
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })

	toolCaps := make([]ToolCapability, 0, len(tools))
	var docDocs []docscore.ToolDoc
	var assertions []Assertion

	for _, decl := range tools {
		toolCap, err := buildToolCapability(decl, in.Probes[decl.Name], in.GeneratedAt)
		if err != nil {
			return nil, fmt.Errorf("baseline: tool %q: %w", decl.Name, err)
		}
		toolCaps = append(toolCaps, toolCap)

		narrative := in.Narrative[decl.Name]
		docDocs = append(docDocs, docscore.ToolDoc{
			Name:         decl.Name,
			Description:  decl.Description,
			Parameters:   narrative.Parameters,
			ExampleCount: narrative.ExampleCount,
		})
		for _, a := range narrative.Assertions {
			assertions = append(assertions, buildAssertion(decl.Name, a))
		}
	}
	sort.Slice(assertions, func(i, j int) bool {
		if assertions[i].Tool != assertions[j].Tool {
			return assertions[i].Tool < assertions[j].Tool
		}
		return assertions[i].Text < assertions[j].Text
	})

	prompts := make([]PromptCapability, len(in.Discovery.Prompts))
	copy(prompts, in.Discovery.Prompts)
	sort.Slice(prompts, func(i, j int) bool { return prompts[i].Name < prompts[j].Name })

	resources := make([]ResourceCapability, len(in.Discovery.Resources))
	copy(resources, in.Discovery.Resources)
	sort.Slice(resources, func(i, j int) bool { return resources[i].URI < resources[j].URI })

	templates := make([]ResourceTemplateCapability, len(in.Discovery.ResourceTemplates))
	copy(templates, in.Discovery.ResourceTemplates)
	sort.Slice(templates, func(i, j int) bool { return templates[i].URITemplate < templates[j].URITemplate })

	docScore := fromDocscore(docscore.Compute(docDocs))

	workflows := make([]WorkflowOutcome, len(in.Workflows))
	copy(workflows, in.Workflows)
	sort.Slice(workflows, func(i, j int) bool { return workflows[i].ID < workflows[j].ID })

	b := &Baseline{
		FormatVersion: FormatVersion,
		Metadata: Metadata{
			Mode:          in.Mode,
			GeneratedAt:   in.GeneratedAt,
			CLIVersion:    in.CLIVersion,
			ServerCommand: in.ServerCommand,
			DurationMs:    in.DurationMs,
			Personas:      in.Personas,
			Model:         in.Model,
		},
		Server: Server{
			Name:            in.Discovery.ServerName,
			Version:         in.Discovery.ServerVersion,
			ProtocolVersion: in.Discovery.ProtocolVersion,
			Capabilities:    in.Discovery.Capabilities,
		},
		Capabilities: Capabilities{
			Tools:             toolCaps,
			Prompts:           prompts,
			Resources:         resources,
			ResourceTemplates: templates,
		},
		Workflows:          workflows,
		Assertions:         assertions,
		DocumentationScore: &docScore,
	}

	hash, err := Hash(b)
	if err != nil {
		return nil, fmt.Errorf("baseline: hash: %w", err)
	}
	b.Hash = hash
	return b, nil
}

// Builder wraps Build with an attached observability stack, mirroring
// compare.Comparator: the underlying assembly stays the pure Build function,
// and Builder only adds a span and a counter increment around the call.
type Builder struct {
	logger  telemetry.Logger
	tracer  telemetry.Tracer
	metrics telemetry.Metrics
}

// NewBuilder constructs a Builder. A nil logger/tracer/metrics is replaced
// with its respective Noop implementation.
func NewBuilder(logger telemetry.Logger, tracer telemetry.Tracer, metrics telemetry.Metrics) *Builder {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	if tracer == nil {
		tracer = telemetry.NewNoopTracer()
	}
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	return &Builder{logger: logger, tracer: tracer, metrics: metrics}
}

// Build assembles a Baseline exactly as the package-level Build does, with a
// tracing span and a "baseline.builds" counter wrapped around the call.
func (b *Builder) Build(ctx context.Context, in BuildInput) (*Baseline, error) {
	ctx, span := b.tracer.Start(ctx, "baseline.Build")
	defer span.End()

	result, err := Build(in)
	if err != nil {
		span.RecordError(err)
		b.logger.Error(ctx, "baseline build failed", "tool_count", len(in.Discovery.Tools), "error", err.Error())
		return nil, err
	}

	b.metrics.IncCounter("baseline.builds", 1)
	b.logger.Info(ctx, "baseline built", "tool_count", len(result.Capabilities.Tools), "hash", result.Hash)
	return result, nil
}

func buildToolCapability(decl DeclaredTool, probe ProbeResult, generatedAt time.Time) (ToolCapability, error) {
	toolCap := ToolCapability{
		Name:         decl.Name,
		Description:  decl.Description,
		Title:        decl.Title,
		InputSchema:  decl.InputSchema,
		OutputSchema: decl.OutputSchema,
		Annotations:  decl.Annotations,
		Execution:    decl.Execution,
	}

	schemaHash, err := canon.Hash(decl.InputSchema)
	if err != nil {
		return toolCap, fmt.Errorf("input schema: %w", err)
	}
	toolCap.SchemaHash = schemaHash

	if decl.OutputSchema != nil {
		outHash, err := canon.Hash(decl.OutputSchema)
		if err != nil {
			return toolCap, fmt.Errorf("output schema: %w", err)
		}
		toolCap.OutputSchemaHash = outHash
	}

	if len(probe.ObservedArgs) > 0 {
		argSamples := make([]fingerprint.Sample, len(probe.ObservedArgs))
		for i, args := range probe.ObservedArgs {
			argSamples[i] = fingerprint.Sample{Success: true, Value: toAny(args)}
		}
		observedSchema := fingerprint.InferSchema(argSamples)
		hash, err := canon.Hash(observedSchema)
		if err != nil {
			return toolCap, fmt.Errorf("observed args schema: %w", err)
		}
		toolCap.ObservedArgsSchemaHash = hash
	}

	if len(probe.Samples) > 0 {
		result := fingerprint.Fingerprint(probe.Samples)
		fp := result.Fingerprint
		toolCap.ResponseFingerprint = &fp
		toolCap.InferredOutputSchema = result.InferredSchema
		toolCap.ErrorPatterns = result.ErrorPatterns
	}

	if len(probe.SchemaBatches) > 0 {
		var latestFields []string
		lastBatch := probe.SchemaBatches[len(probe.SchemaBatches)-1]
		if props, ok := lastBatch.Schema["properties"].(schema.Document); ok {
			required := map[string]bool{}
			if req, ok := lastBatch.Schema["required"].([]any); ok {
				for _, r := range req {
					if name, ok := r.(string); ok {
						required[name] = true
					}
				}
			}
			for k := range props {
				if !required[k] {
					latestFields = append(latestFields, k)
				}
			}
		}
		ev := evolution.Track(probe.SchemaBatches, latestFields)
		toolCap.ResponseSchemaEvolution = &ev
	}

	if len(probe.Latencies) > 0 {
		metrics := perf.Compute(probe.Latencies)
		toolCap.PerformanceConfidence = &metrics.Confidence
		toolCap.BaselineP50Ms = &metrics.P50
		toolCap.BaselineP95Ms = &metrics.P95
		toolCap.BaselineP99Ms = &metrics.P99
		toolCap.BaselineSuccessRate = &metrics.SuccessRate
	}

	if probe.Security != nil {
		sec := *probe.Security
		hash, err := canon.Hash(sec.Findings)
		if err != nil {
			return toolCap, fmt.Errorf("security findings: %w", err)
		}
		sec.FindingsHash = hash
		toolCap.SecurityFingerprint = &sec
	}

	if len(probe.Samples) > 0 || len(probe.Latencies) > 0 {
		t := generatedAt
		toolCap.LastTestedAt = &t
	}

	return toolCap, nil
}

func toAny(m map[string]any) any {
	return m
}

// buildAssertion maps a NarrativeAssertion to its fixed Kind per the
// positive/negative x security/non-security table: positive+non-security ->
// expects, positive+security -> requires, negative+security -> warns,
// negative+non-security -> notes.
func buildAssertion(tool string, a NarrativeAssertion) Assertion {
	var kind AssertionKind
	switch {
	case a.Positive && !a.Security:
		kind = AssertionExpects
	case a.Positive && a.Security:
		kind = AssertionRequires
	case !a.Positive && a.Security:
		kind = AssertionWarns
	default:
		kind = AssertionNotes
	}
	return Assertion{
		Tool:     tool,
		Kind:     kind,
		Text:     a.Text,
		Severity: assertionSeverity(a),
	}
}

// assertionSeverity applies a small fixed keyword heuristic: security
// assertions (positive or negative) that mention destructive or
// irreversible behavior are breaking-level, other negative security
// assertions are warning-level, and everything else is informational.
func assertionSeverity(a NarrativeAssertion) string {
	if !a.Security {
		return "info"
	}
	lower := strings.ToLower(a.Text)
	for _, kw := range []string{"destructive", "irreversible", "delete", "drop", "bypass"} {
		if strings.Contains(lower, kw) {
			return "breaking"
		}
	}
	if !a.Positive {
		return "warning"
	}
	return "info"
}

// Hash computes the content-addressed hash of a baseline's contents, over
// every field except Hash itself.
func Hash(b *Baseline) (string, error) {
	clone := *b
	clone.Hash = ""
	return canon.Hash(&clone)
}
