package compare

import (
	"fmt"

	"github.com/bellwether-dev/bellwether/baseline"
	"github.com/bellwether-dev/bellwether/schema"
)

// compareTool runs every §4.9 Step 3 aspect function over one tool present
// in both baselines, in the fixed order the spec lists them, and returns
// every BehaviorChange any aspect emitted.
func compareTool(prev, curr baseline.ToolCapability, opts Options, prevProtocol, currProtocol string) []BehaviorChange {
	var changes []BehaviorChange
	changes = append(changes, compareSchema(prev, curr, opts)...)
	changes = append(changes, compareDescription(prev, curr, opts)...)
	changes = append(changes, compareAnnotations(prev, curr, prevProtocol, currProtocol)...)
	changes = append(changes, compareOutputSchema(prev, curr, opts, prevProtocol, currProtocol)...)
	changes = append(changes, compareExecution(prev, curr, prevProtocol, currProtocol)...)
	changes = append(changes, compareTitle(prev, curr, prevProtocol, currProtocol)...)
	changes = append(changes, compareResponseStructure(prev, curr, opts)...)
	changes = append(changes, compareErrorPatterns(prev, curr, opts)...)
	changes = append(changes, compareResponseSchemaEvolution(prev, curr, opts)...)
	changes = append(changes, compareSecurity(prev, curr, opts)...)
	return changes
}

func compareSchema(prev, curr baseline.ToolCapability, opts Options) []BehaviorChange {
	if opts.IgnoreSchemaChanges || prev.SchemaHash == curr.SchemaHash {
		return nil
	}
	if prev.InputSchema == nil || curr.InputSchema == nil || !schema.Valid(prev.InputSchema) || !schema.Valid(curr.InputSchema) {
		fb := schema.FallbackChange("inputSchema", prev.SchemaHash, curr.SchemaHash)
		return []BehaviorChange{toolChange(curr.Name, AspectSchema, prev.SchemaHash, curr.SchemaHash, SeverityBreaking, fb.Description)}
	}
	detail := schema.Compare(prev.InputSchema, curr.InputSchema)
	if len(detail) == 0 {
		fb := schema.FallbackChange("inputSchema", prev.SchemaHash, curr.SchemaHash)
		return []BehaviorChange{toolChange(curr.Name, AspectSchema, prev.SchemaHash, curr.SchemaHash, SeverityBreaking, fb.Description)}
	}
	out := make([]BehaviorChange, 0, len(detail))
	for _, d := range detail {
		sev := SeverityWarning
		if d.Breaking {
			sev = SeverityBreaking
		}
		out = append(out, toolChange(curr.Name, AspectSchema, d.Before, d.After, sev, d.Description))
	}
	return out
}

func compareDescription(prev, curr baseline.ToolCapability, opts Options) []BehaviorChange {
	if opts.IgnoreDescriptionChanges || prev.Description == curr.Description {
		return nil
	}
	return []BehaviorChange{toolChange(curr.Name, AspectDescription, prev.Description, curr.Description, SeverityInfo,
		fmt.Sprintf("description changed for tool %q", curr.Name))}
}

func compareTitle(prev, curr baseline.ToolCapability, prevProtocol, currProtocol string) []BehaviorChange {
	if gated(AspectTitle, prevProtocol, currProtocol) || prev.Title == curr.Title {
		return nil
	}
	return []BehaviorChange{toolChange(curr.Name, AspectTitle, prev.Title, curr.Title, SeverityInfo,
		fmt.Sprintf("title changed for tool %q", curr.Name))}
}

func compareAnnotations(prev, curr baseline.ToolCapability, prevProtocol, currProtocol string) []BehaviorChange {
	if gated(AspectToolAnnotations, prevProtocol, currProtocol) {
		return nil
	}
	var pa, ca baseline.Annotations
	if prev.Annotations != nil {
		pa = *prev.Annotations
	}
	if curr.Annotations != nil {
		ca = *curr.Annotations
	}
	var changes []BehaviorChange
	if c := annotationChange(curr.Name, "readOnlyHint", pa.ReadOnlyHint, ca.ReadOnlyHint, readOnlySeverity); c != nil {
		changes = append(changes, *c)
	}
	if c := annotationChange(curr.Name, "destructiveHint", pa.DestructiveHint, ca.DestructiveHint, destructiveSeverity); c != nil {
		changes = append(changes, *c)
	}
	if c := annotationChange(curr.Name, "idempotentHint", pa.IdempotentHint, ca.IdempotentHint, func(bool, bool) Severity { return SeverityWarning }); c != nil {
		changes = append(changes, *c)
	}
	if c := annotationChange(curr.Name, "openWorldHint", pa.OpenWorldHint, ca.OpenWorldHint, func(bool, bool) Severity { return SeverityInfo }); c != nil {
		changes = append(changes, *c)
	}
	return changes
}

// readOnlySeverity implements "breaking if toggled from true→false" (§4.9);
// an unset hint counts as false, so true->unset is breaking as well. Any
// other transition (false->true, false<->unset) is informational since it
// does not loosen the server's safety claim.
func readOnlySeverity(prev, curr bool) Severity {
	if prev && !curr {
		return SeverityBreaking
	}
	return SeverityInfo
}

// destructiveSeverity treats a tool newly claiming to be destructive as
// breaking (callers who assumed it was safe are now wrong) and a tool
// withdrawing a destructive claim as warning (the softened claim could mask
// risk that callers previously guarded against).
func destructiveSeverity(prev, curr bool) Severity {
	if curr && !prev {
		return SeverityBreaking
	}
	return SeverityWarning
}

func annotationChange(tool, name string, prev, curr *bool, severityOf func(prev, curr bool) Severity) *BehaviorChange {
	pv := prev != nil && *prev
	cv := curr != nil && *curr
	if (prev == nil) == (curr == nil) && pv == cv {
		return nil
	}
	ch := toolChange(tool, AspectToolAnnotations, boolPtrStr(prev), boolPtrStr(curr), severityOf(pv, cv),
		fmt.Sprintf("%s changed for tool %q", name, tool))
	return &ch
}

func boolPtrStr(b *bool) string {
	if b == nil {
		return ""
	}
	if *b {
		return "true"
	}
	return "false"
}

func compareOutputSchema(prev, curr baseline.ToolCapability, opts Options, prevProtocol, currProtocol string) []BehaviorChange {
	if opts.IgnoreOutputSchemaChanges || gated(AspectOutputSchema, prevProtocol, currProtocol) {
		return nil
	}
	hasPrev := prev.OutputSchema != nil
	hasCurr := curr.OutputSchema != nil
	if !hasPrev && !hasCurr {
		return nil
	}
	if hasPrev != hasCurr {
		desc := fmt.Sprintf("output schema added for tool %q", curr.Name)
		if hasPrev {
			desc = fmt.Sprintf("output schema removed for tool %q", curr.Name)
		}
		return []BehaviorChange{toolChange(curr.Name, AspectOutputSchema, prev.OutputSchemaHash, curr.OutputSchemaHash, SeverityWarning, desc)}
	}
	if prev.OutputSchemaHash == curr.OutputSchemaHash {
		return nil
	}
	detail := schema.Compare(prev.OutputSchema, curr.OutputSchema)
	if len(detail) == 0 || !schema.Valid(prev.OutputSchema) || !schema.Valid(curr.OutputSchema) {
		fb := schema.FallbackChange("outputSchema", prev.OutputSchemaHash, curr.OutputSchemaHash)
		return []BehaviorChange{toolChange(curr.Name, AspectOutputSchema, prev.OutputSchemaHash, curr.OutputSchemaHash, SeverityBreaking, fb.Description)}
	}
	out := make([]BehaviorChange, 0, len(detail))
	for _, d := range detail {
		sev := SeverityWarning
		if d.Breaking {
			sev = SeverityBreaking
		}
		out = append(out, toolChange(curr.Name, AspectOutputSchema, d.Before, d.After, sev, d.Description))
	}
	return out
}

// taskSupportOrder ranks TaskSupport from loosest to strictest so a
// transition's direction can be compared numerically.
var taskSupportOrder = map[baseline.TaskSupport]int{
	baseline.TaskSupportNone:     0,
	baseline.TaskSupportOptional: 1,
	baseline.TaskSupportRequired: 2,
}

func compareExecution(prev, curr baseline.ToolCapability, prevProtocol, currProtocol string) []BehaviorChange {
	if gated(AspectExecution, prevProtocol, currProtocol) {
		return nil
	}
	var pt, ct baseline.TaskSupport
	if prev.Execution != nil {
		pt = prev.Execution.TaskSupport
	}
	if curr.Execution != nil {
		ct = curr.Execution.TaskSupport
	}
	if pt == ct {
		return nil
	}
	sev := SeverityInfo
	if taskSupportOrder[ct] > taskSupportOrder[pt] {
		sev = SeverityWarning
	}
	return []BehaviorChange{toolChange(curr.Name, AspectExecution, string(pt), string(ct), sev,
		fmt.Sprintf("execution.taskSupport changed for tool %q", curr.Name))}
}

func compareResponseStructure(prev, curr baseline.ToolCapability, opts Options) []BehaviorChange {
	if opts.IgnoreResponseStructureChanges || prev.ResponseFingerprint == nil || curr.ResponseFingerprint == nil {
		return nil
	}
	pf, cf := *prev.ResponseFingerprint, *curr.ResponseFingerprint
	var changes []BehaviorChange

	if pf.StructureHash != cf.StructureHash {
		changes = append(changes, toolChange(curr.Name, AspectResponseStructure, pf.StructureHash, cf.StructureHash, SeverityBreaking,
			fmt.Sprintf("response structure changed for tool %q", curr.Name)))
	}
	if pf.ContentType != cf.ContentType {
		changes = append(changes, toolChange(curr.Name, AspectResponseStructure, string(pf.ContentType), string(cf.ContentType), SeverityBreaking,
			fmt.Sprintf("response content type changed from %s to %s for tool %q", pf.ContentType, cf.ContentType, curr.Name)))
	}

	prevFields := stringSet(pf.Fields)
	currFields := stringSet(cf.Fields)
	for _, f := range pf.Fields {
		if _, ok := currFields[f]; !ok {
			changes = append(changes, toolChange(curr.Name, AspectResponseStructure, f, "", SeverityBreaking,
				fmt.Sprintf("response field %q removed from tool %q", f, curr.Name)))
		}
	}
	for _, f := range cf.Fields {
		if _, ok := prevFields[f]; !ok {
			changes = append(changes, toolChange(curr.Name, AspectResponseStructure, "", f, SeverityWarning,
				fmt.Sprintf("response field %q added to tool %q", f, curr.Name)))
		}
	}

	if !pf.IsEmpty && cf.IsEmpty {
		changes = append(changes, toolChange(curr.Name, AspectResponseStructure, "false", "true", SeverityBreaking,
			fmt.Sprintf("response for tool %q became empty", curr.Name)))
	} else if pf.IsEmpty && !cf.IsEmpty {
		changes = append(changes, toolChange(curr.Name, AspectResponseStructure, "true", "false", SeverityInfo,
			fmt.Sprintf("response for tool %q is no longer empty", curr.Name)))
	}

	if pf.ArrayItemStructure != "" && cf.ArrayItemStructure != "" && pf.ArrayItemStructure != cf.ArrayItemStructure {
		changes = append(changes, toolChange(curr.Name, AspectResponseStructure, pf.ArrayItemStructure, cf.ArrayItemStructure, SeverityBreaking,
			fmt.Sprintf("array item structure changed for tool %q", curr.Name)))
	}

	if pf.Size != cf.Size {
		changes = append(changes, toolChange(curr.Name, AspectResponseStructure, string(pf.Size), string(cf.Size), SeverityInfo,
			fmt.Sprintf("response size bucket changed from %s to %s for tool %q", pf.Size, cf.Size, curr.Name)))
	}

	return changes
}

func compareErrorPatterns(prev, curr baseline.ToolCapability, opts Options) []BehaviorChange {
	if opts.IgnoreErrorPatternChanges {
		return nil
	}
	prevByHash := make(map[string]struct{}, len(prev.ErrorPatterns))
	for _, p := range prev.ErrorPatterns {
		prevByHash[p.PatternHash] = struct{}{}
	}
	currByHash := make(map[string]struct{}, len(curr.ErrorPatterns))
	for _, p := range curr.ErrorPatterns {
		currByHash[p.PatternHash] = struct{}{}
	}

	var changes []BehaviorChange
	for _, p := range curr.ErrorPatterns {
		if _, ok := prevByHash[p.PatternHash]; !ok {
			changes = append(changes, toolChange(curr.Name, AspectErrorPattern, "", string(p.Category), SeverityWarning,
				fmt.Sprintf("new %s error pattern observed for tool %q", p.Category, curr.Name)))
		}
	}
	for _, p := range prev.ErrorPatterns {
		if _, ok := currByHash[p.PatternHash]; !ok {
			changes = append(changes, toolChange(curr.Name, AspectErrorPattern, string(p.Category), "", SeverityInfo,
				fmt.Sprintf("%s error pattern no longer observed for tool %q", p.Category, curr.Name)))
		}
	}
	return changes
}

// responseSchemaEvolutionKindSeverity maps a structural schema.Change to the
// severity response_schema_evolution assigns it — distinct from the
// general-purpose input/output schema severity table, per §4.9's explicit
// "fields added → info" (vs. "warning" for input schema) rule.
func responseSchemaEvolutionKindSeverity(d schema.Change) Severity {
	switch d.Kind {
	case schema.KindPropertyRemoved:
		return SeverityBreaking
	case schema.KindPropertyAdded:
		return SeverityInfo
	case schema.KindRequiredAdded:
		return SeverityBreaking
	case schema.KindTypeChanged:
		if !d.Breaking {
			return SeverityWarning
		}
		return SeverityBreaking
	default:
		if d.Breaking {
			return SeverityBreaking
		}
		return SeverityInfo
	}
}

func compareResponseSchemaEvolution(prev, curr baseline.ToolCapability, opts Options) []BehaviorChange {
	if opts.IgnoreResponseStructureChanges {
		return nil
	}
	var changes []BehaviorChange
	if prev.InferredOutputSchema != nil && curr.InferredOutputSchema != nil {
		for _, d := range schema.Compare(prev.InferredOutputSchema, curr.InferredOutputSchema) {
			changes = append(changes, toolChange(curr.Name, AspectResponseSchemaEvolution, d.Before, d.After,
				responseSchemaEvolutionKindSeverity(d), d.Description))
		}
	}
	if prev.ResponseSchemaEvolution != nil && curr.ResponseSchemaEvolution != nil &&
		prev.ResponseSchemaEvolution.IsStable && !curr.ResponseSchemaEvolution.IsStable {
		changes = append(changes, toolChange(curr.Name, AspectResponseSchemaEvolution, "stable", "unstable", SeverityWarning,
			fmt.Sprintf("response schema for tool %q became unstable", curr.Name)))
	}
	return changes
}

func securityFindingKey(tool string, f baseline.SecurityFinding) string {
	return tool + "|" + f.Category + "|" + f.CWEID + "|" + f.Parameter
}

func compareSecurity(prev, curr baseline.ToolCapability, opts Options) []BehaviorChange {
	if opts.IgnoreSecurityChanges {
		return nil
	}
	var prevFindings, currFindings []baseline.SecurityFinding
	if prev.SecurityFingerprint != nil {
		prevFindings = prev.SecurityFingerprint.Findings
	}
	if curr.SecurityFingerprint != nil {
		currFindings = curr.SecurityFingerprint.Findings
	}

	prevByKey := make(map[string]baseline.SecurityFinding, len(prevFindings))
	for _, f := range prevFindings {
		prevByKey[securityFindingKey(curr.Name, f)] = f
	}
	currByKey := make(map[string]baseline.SecurityFinding, len(currFindings))
	for _, f := range currFindings {
		currByKey[securityFindingKey(curr.Name, f)] = f
	}

	var changes []BehaviorChange
	for key, f := range currByKey {
		if _, ok := prevByKey[key]; ok {
			continue
		}
		sev := SeverityInfo
		switch f.RiskLevel {
		case baseline.RiskCritical, baseline.RiskHigh:
			sev = SeverityBreaking
		case baseline.RiskMedium:
			sev = SeverityWarning
		}
		changes = append(changes, toolChange(curr.Name, AspectSecurity, "", f.Title, sev,
			fmt.Sprintf("new %s security finding %q for tool %q", f.RiskLevel, f.Title, curr.Name)))
	}
	for key, f := range prevByKey {
		if _, ok := currByKey[key]; ok {
			continue
		}
		changes = append(changes, toolChange(curr.Name, AspectSecurity, f.Title, "", SeverityInfo,
			fmt.Sprintf("security finding %q resolved for tool %q", f.Title, curr.Name)))
	}
	return changes
}

func toolChange(tool string, aspect Aspect, before, after string, sev Severity, desc string) BehaviorChange {
	return BehaviorChange{Tool: tool, Aspect: aspect, Before: before, After: after, Severity: sev, Description: desc}
}

func stringSet(vals []string) map[string]struct{} {
	set := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		set[v] = struct{}{}
	}
	return set
}
