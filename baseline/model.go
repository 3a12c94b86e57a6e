// Package baseline defines the recorded-capability snapshot (§3) and the
// Builder that assembles one from discovery and probe data (§4.7).
package baseline

import (
	"time"

	"github.com/google/uuid"

	"github.com/bellwether-dev/bellwether/docscore"
	"github.com/bellwether-dev/bellwether/evolution"
	"github.com/bellwether-dev/bellwether/fingerprint"
	"github.com/bellwether-dev/bellwether/perf"
	"github.com/bellwether-dev/bellwether/schema"
)

// Mode is the run mode that produced a baseline.
type Mode string

const (
	ModeCheck   Mode = "check"
	ModeExplore Mode = "explore"
)

// FormatVersion is the current on-disk schema version for Baseline
// documents. It follows semver so a loader can reject baselines produced
// by an incompatible future format.
const FormatVersion = "1.0.0"

// Metadata records how and when a baseline was produced.
type Metadata struct {
	Mode          Mode      `json:"mode"`
	GeneratedAt   time.Time `json:"generatedAt"`
	CLIVersion    string    `json:"cliVersion"`
	ServerCommand string    `json:"serverCommand"`
	DurationMs    int64     `json:"durationMs"`
	Personas      []string  `json:"personas,omitempty"`
	Model         string    `json:"model,omitempty"`
}

// Server identifies the server a baseline was recorded against.
type Server struct {
	Name            string   `json:"name"`
	Version         string   `json:"version"`
	ProtocolVersion string   `json:"protocolVersion"`
	Capabilities    []string `json:"capabilities,omitempty"`
	// Instructions is the server's free-text usage guidance, gated at
	// protocol version 2025-06-18 (§6).
	Instructions string `json:"instructions,omitempty"`
}

// Annotations mirrors the MCP tool-annotation hints.
type Annotations struct {
	ReadOnlyHint    *bool `json:"readOnlyHint,omitempty"`
	DestructiveHint *bool `json:"destructiveHint,omitempty"`
	IdempotentHint  *bool `json:"idempotentHint,omitempty"`
	OpenWorldHint   *bool `json:"openWorldHint,omitempty"`
}

// TaskSupport classifies a tool's async-execution contract.
type TaskSupport string

const (
	TaskSupportNone     TaskSupport = "none"
	TaskSupportOptional TaskSupport = "optional"
	TaskSupportRequired TaskSupport = "required"
)

// Execution records a tool's asynchronous-execution declaration.
type Execution struct {
	TaskSupport TaskSupport `json:"taskSupport"`
}

// SecurityRiskLevel classifies a single security finding's severity.
type SecurityRiskLevel string

const (
	RiskInfo     SecurityRiskLevel = "info"
	RiskLow      SecurityRiskLevel = "low"
	RiskMedium   SecurityRiskLevel = "medium"
	RiskHigh     SecurityRiskLevel = "high"
	RiskCritical SecurityRiskLevel = "critical"
)

// SecurityFinding is a single recorded observation from a probe's
// security-relevant interactions with a tool.
type SecurityFinding struct {
	Category    string            `json:"category"`
	RiskLevel   SecurityRiskLevel `json:"riskLevel"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Evidence    string            `json:"evidence,omitempty"`
	Remediation string            `json:"remediation,omitempty"`
	CWEID       string            `json:"cweId,omitempty"`
	Parameter   string            `json:"parameter,omitempty"`
}

// SecurityFingerprint summarizes a tool's recorded security posture. It is
// populated from probe data the caller already collected; this module never
// generates security payloads itself.
type SecurityFingerprint struct {
	Tested           bool              `json:"tested"`
	CategoriesTested []string          `json:"categoriesTested,omitempty"`
	Findings         []SecurityFinding `json:"findings,omitempty"`
	RiskScore        int               `json:"riskScore"`
	TestedAt         time.Time         `json:"testedAt"`
	FindingsHash     string            `json:"findingsHash"`
}

// AssertionKind classifies a narrative assertion about tool behavior.
type AssertionKind string

const (
	AssertionExpects  AssertionKind = "expects"
	AssertionRequires AssertionKind = "requires"
	AssertionWarns    AssertionKind = "warns"
	AssertionNotes    AssertionKind = "notes"
)

// Assertion is a single narrative claim about a tool's observed behavior,
// derived from the fixed positive/negative x security/non-security mapping
// in §4.7.
type Assertion struct {
	Tool     string        `json:"tool"`
	Kind     AssertionKind `json:"kind"`
	Text     string        `json:"text"`
	Severity string        `json:"severity"`
}

// ToolCapability is the per-tool record combining declared schema,
// response-behavior fingerprints, performance, and security observations.
type ToolCapability struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Title       string      `json:"title,omitempty"`

	InputSchema      schema.Document `json:"inputSchema"`
	SchemaHash       string          `json:"schemaHash"`
	OutputSchema     schema.Document `json:"outputSchema,omitempty"`
	OutputSchemaHash string          `json:"outputSchemaHash,omitempty"`
	Annotations      *Annotations    `json:"annotations,omitempty"`
	Execution        *Execution      `json:"execution,omitempty"`

	// ObservedArgsSchemaHash is the hash of the schema inferred from the
	// actual argument values a probe issued, distinct from SchemaHash
	// (the declared input schema). A drift between the two signals that
	// the declared schema diverges from how the tool was actually
	// exercised, not that the server changed.
	ObservedArgsSchemaHash string `json:"observedArgsSchemaHash,omitempty"`

	ResponseFingerprint     *fingerprint.ResponseFingerprint `json:"responseFingerprint,omitempty"`
	InferredOutputSchema    schema.Document                  `json:"inferredOutputSchema,omitempty"`
	ResponseSchemaEvolution *evolution.Evolution              `json:"responseSchemaEvolution,omitempty"`
	ErrorPatterns           []fingerprint.ErrorPattern        `json:"errorPatterns,omitempty"`

	PerformanceConfidence *perf.Confidence `json:"performanceConfidence,omitempty"`
	BaselineP50Ms         *float64         `json:"baselineP50Ms,omitempty"`
	BaselineP95Ms         *float64         `json:"baselineP95Ms,omitempty"`
	BaselineP99Ms         *float64         `json:"baselineP99Ms,omitempty"`
	BaselineSuccessRate   *float64         `json:"baselineSuccessRate,omitempty"`

	SecurityFingerprint *SecurityFingerprint `json:"securityFingerprint,omitempty"`

	LastTestedAt *time.Time `json:"lastTestedAt,omitempty"`
}

// PromptArgument is a single declared argument of a prompt template.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

// PromptCapability is a recorded prompt template.
type PromptCapability struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Title       string           `json:"title,omitempty"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
}

// ResourceAnnotations mirrors the MCP resource-annotation hints.
type ResourceAnnotations struct {
	Audience []string `json:"audience,omitempty"`
}

// ResourceCapability is a recorded concrete resource.
type ResourceCapability struct {
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	Title       string               `json:"title,omitempty"`
	URI         string               `json:"uri"`
	MimeType    string               `json:"mimeType,omitempty"`
	Annotations *ResourceAnnotations `json:"annotations,omitempty"`
	Size        *int64               `json:"size,omitempty"`
}

// ResourceTemplateCapability is a recorded resource template (URI pattern).
type ResourceTemplateCapability struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Title       string `json:"title,omitempty"`
	URITemplate string `json:"uriTemplate"`
	MimeType    string `json:"mimeType,omitempty"`
}

// Capabilities bundles everything a server declared or exposed.
type Capabilities struct {
	Tools             []ToolCapability             `json:"tools"`
	Prompts           []PromptCapability           `json:"prompts,omitempty"`
	Resources         []ResourceCapability         `json:"resources,omitempty"`
	ResourceTemplates []ResourceTemplateCapability `json:"resourceTemplates,omitempty"`
}

// WorkflowOutcome records the result of one scripted multi-tool workflow
// exercised during a probe run.
type WorkflowOutcome struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	ToolSequence []string `json:"toolSequence"`
	Succeeded    bool     `json:"succeeded"`
	Summary      string   `json:"summary,omitempty"`
}

// DocumentationScore mirrors docscore.Score for embedding in a baseline.
type DocumentationScore struct {
	OverallScore int    `json:"overallScore"`
	Grade        string `json:"grade"`
	IssueCount   int    `json:"issueCount"`
	ToolCount    int    `json:"toolCount"`
}

func fromDocscore(s docscore.Score) DocumentationScore {
	return DocumentationScore{
		OverallScore: s.OverallScore,
		Grade:        string(s.Grade),
		IssueCount:   s.IssueCount,
		ToolCount:    s.ToolCount,
	}
}

// Acceptance records that a specific drift report was reviewed and
// accepted as expected, so a future comparison against this baseline does
// not re-flag the same change. A baseline carries at most one: accepting a
// new diff replaces whatever acceptance was recorded before.
type Acceptance struct {
	ID         string    `json:"id"`
	AcceptedAt time.Time `json:"acceptedAt"`
	AcceptedBy string    `json:"acceptedBy,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	DiffHash   string    `json:"diffHash"`
}

// NewAcceptance stamps a fresh globally-unique ID onto an Acceptance record
// so a caller or audit log can reference this specific acceptance event
// even after it has been superseded or cleared.
func NewAcceptance(diffHash, acceptedBy, reason string, acceptedAt time.Time) Acceptance {
	return Acceptance{
		ID:         uuid.NewString(),
		AcceptedAt: acceptedAt,
		AcceptedBy: acceptedBy,
		Reason:     reason,
		DiffHash:   diffHash,
	}
}

// Baseline is the full recorded snapshot of a server's capabilities and
// observed behavior at a point in time.
type Baseline struct {
	FormatVersion      string               `json:"formatVersion"`
	Metadata           Metadata             `json:"metadata"`
	Server             Server               `json:"server"`
	Capabilities       Capabilities         `json:"capabilities"`
	Workflows          []WorkflowOutcome    `json:"workflows,omitempty"`
	Assertions         []Assertion          `json:"assertions,omitempty"`
	DocumentationScore *DocumentationScore  `json:"documentationScore,omitempty"`
	Acceptance         *Acceptance          `json:"acceptance,omitempty"`
	Hash               string               `json:"hash"`
}
