package compare

import (
	"fmt"
	"sort"

	"github.com/bellwether-dev/bellwether/baseline"
)

const serverPlaceholder = "server"

// compareServer implements the server-level half of §4.9 Step 4: name,
// version, protocolVersion, instructions, and capability set changes.
func compareServer(previous, current *baseline.Baseline) []BehaviorChange {
	prev, curr := previous.Server, current.Server
	var changes []BehaviorChange

	if prev.Name != curr.Name {
		changes = append(changes, toolChange(serverPlaceholder, AspectServer, prev.Name, curr.Name, SeverityInfo, "server name changed"))
	}
	if prev.Version != curr.Version {
		changes = append(changes, toolChange(serverPlaceholder, AspectServer, prev.Version, curr.Version, SeverityInfo, "server version changed"))
	}

	removedCapabilities := setDiff(prev.Capabilities, curr.Capabilities)
	addedCapabilities := setDiff(curr.Capabilities, prev.Capabilities)

	if prev.ProtocolVersion != curr.ProtocolVersion {
		sev := SeverityWarning
		if len(removedCapabilities) > 0 {
			sev = SeverityBreaking
		}
		changes = append(changes, toolChange(serverPlaceholder, AspectServer, prev.ProtocolVersion, curr.ProtocolVersion, sev,
			"server protocol version changed"))
	}

	if !belowGate(prev.ProtocolVersion, serverInstructionsGate) && !belowGate(curr.ProtocolVersion, serverInstructionsGate) && prev.Instructions != curr.Instructions {
		changes = append(changes, toolChange(serverPlaceholder, AspectServer, prev.Instructions, curr.Instructions, SeverityInfo, "server instructions changed"))
	}

	for _, capability := range addedCapabilities {
		changes = append(changes, toolChange(serverPlaceholder, AspectCapability, "", capability, SeverityInfo, fmt.Sprintf("capability %q added", capability)))
	}
	for _, capability := range removedCapabilities {
		changes = append(changes, toolChange(serverPlaceholder, AspectCapability, capability, "", SeverityBreaking, fmt.Sprintf("capability %q removed", capability)))
	}

	return changes
}

// setDiff returns the sorted elements of a not present in b.
func setDiff(a, b []string) []string {
	bset := stringSet(b)
	var out []string
	for _, v := range a {
		if _, ok := bset[v]; !ok {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

func comparePrompts(prev, curr []baseline.PromptCapability, prevProtocol, currProtocol string) []BehaviorChange {
	prevByName := make(map[string]baseline.PromptCapability, len(prev))
	for _, p := range prev {
		prevByName[p.Name] = p
	}
	currByName := make(map[string]baseline.PromptCapability, len(curr))
	for _, p := range curr {
		currByName[p.Name] = p
	}

	var changes []BehaviorChange
	for name, p := range currByName {
		if _, ok := prevByName[name]; !ok {
			changes = append(changes, toolChange(name, AspectPrompt, "", name, SeverityInfo, fmt.Sprintf("prompt %q added", name)))
		}
	}
	for name := range prevByName {
		if _, ok := currByName[name]; !ok {
			changes = append(changes, toolChange(name, AspectPrompt, name, "", SeverityBreaking, fmt.Sprintf("prompt %q removed", name)))
		}
	}
	for name, p := range prevByName {
		c, ok := currByName[name]
		if !ok {
			continue
		}
		if p.Description != c.Description {
			changes = append(changes, toolChange(name, AspectPrompt, p.Description, c.Description, SeverityInfo, fmt.Sprintf("description changed for prompt %q", name)))
		}
		if !gated(AspectTitle, prevProtocol, currProtocol) && p.Title != c.Title {
			changes = append(changes, toolChange(name, AspectPrompt, p.Title, c.Title, SeverityInfo, fmt.Sprintf("title changed for prompt %q", name)))
		}
		changes = append(changes, comparePromptArguments(name, p.Arguments, c.Arguments)...)
	}
	return changes
}

func comparePromptArguments(prompt string, prev, curr []baseline.PromptArgument) []BehaviorChange {
	prevByName := make(map[string]baseline.PromptArgument, len(prev))
	for _, a := range prev {
		prevByName[a.Name] = a
	}
	currByName := make(map[string]baseline.PromptArgument, len(curr))
	for _, a := range curr {
		currByName[a.Name] = a
	}

	var changes []BehaviorChange
	for name, a := range currByName {
		if _, ok := prevByName[name]; !ok {
			sev := SeverityInfo
			if a.Required {
				sev = SeverityBreaking
			}
			changes = append(changes, toolChange(prompt, AspectPrompt, "", name, sev, fmt.Sprintf("argument %q added to prompt %q", name, prompt)))
		}
	}
	for name := range prevByName {
		if _, ok := currByName[name]; !ok {
			changes = append(changes, toolChange(prompt, AspectPrompt, name, "", SeverityBreaking, fmt.Sprintf("argument %q removed from prompt %q", name, prompt)))
		}
	}
	for name, a := range prevByName {
		c, ok := currByName[name]
		if !ok || a.Required == c.Required {
			continue
		}
		changes = append(changes, toolChange(prompt, AspectPrompt, fmt.Sprintf("%v", a.Required), fmt.Sprintf("%v", c.Required), SeverityWarning,
			fmt.Sprintf("argument %q required-ness changed for prompt %q", name, prompt)))
	}
	return changes
}

func compareResources(prev, curr []baseline.ResourceCapability, prevProtocol, currProtocol string) []BehaviorChange {
	prevByURI := make(map[string]baseline.ResourceCapability, len(prev))
	for _, r := range prev {
		prevByURI[r.URI] = r
	}
	currByURI := make(map[string]baseline.ResourceCapability, len(curr))
	for _, r := range curr {
		currByURI[r.URI] = r
	}

	var changes []BehaviorChange
	for uri, r := range currByURI {
		if _, ok := prevByURI[uri]; !ok {
			changes = append(changes, toolChange(r.Name, AspectResource, "", uri, SeverityInfo, fmt.Sprintf("resource %q added", uri)))
		}
	}
	for uri, r := range prevByURI {
		if _, ok := currByURI[uri]; !ok {
			changes = append(changes, toolChange(r.Name, AspectResource, uri, "", SeverityBreaking, fmt.Sprintf("resource %q removed", uri)))
		}
	}
	for uri, p := range prevByURI {
		c, ok := currByURI[uri]
		if !ok {
			continue
		}
		if p.Description != c.Description {
			changes = append(changes, toolChange(c.Name, AspectResource, p.Description, c.Description, SeverityInfo, fmt.Sprintf("description changed for resource %q", uri)))
		}
		if p.Name != c.Name {
			changes = append(changes, toolChange(c.Name, AspectResource, p.Name, c.Name, SeverityInfo, fmt.Sprintf("name changed for resource %q", uri)))
		}
		if !gated(AspectTitle, prevProtocol, currProtocol) && p.Title != c.Title {
			changes = append(changes, toolChange(c.Name, AspectResource, p.Title, c.Title, SeverityInfo, fmt.Sprintf("title changed for resource %q", uri)))
		}
		if p.MimeType != c.MimeType {
			changes = append(changes, toolChange(c.Name, AspectResource, p.MimeType, c.MimeType, SeverityWarning, fmt.Sprintf("mime type changed for resource %q", uri)))
		}
		if !gated(AspectResourceAnnotations, prevProtocol, currProtocol) {
			changes = append(changes, compareResourceAnnotations(c.Name, uri, p.Annotations, c.Annotations)...)
		}
		if !belowGate(prevProtocol, resourceSizeGate) && !belowGate(currProtocol, resourceSizeGate) && sizeChanged(p.Size, c.Size) {
			changes = append(changes, toolChange(c.Name, AspectResource, sizeStr(p.Size), sizeStr(c.Size), SeverityInfo, fmt.Sprintf("size changed for resource %q", uri)))
		}
	}
	return changes
}

func compareResourceAnnotations(name, uri string, prev, curr *baseline.ResourceAnnotations) []BehaviorChange {
	var pa, ca []string
	if prev != nil {
		pa = prev.Audience
	}
	if curr != nil {
		ca = curr.Audience
	}
	if stringSliceEqual(pa, ca) {
		return nil
	}
	return []BehaviorChange{toolChange(name, AspectResourceAnnotations, fmt.Sprintf("%v", pa), fmt.Sprintf("%v", ca), SeverityWarning,
		fmt.Sprintf("audience annotation changed for resource %q", uri))}
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sizeChanged(a, b *int64) bool {
	if (a == nil) != (b == nil) {
		return true
	}
	return a != nil && *a != *b
}

func sizeStr(v *int64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%d", *v)
}

func compareResourceTemplates(prev, curr []baseline.ResourceTemplateCapability, prevProtocol, currProtocol string) []BehaviorChange {
	prevByURI := make(map[string]baseline.ResourceTemplateCapability, len(prev))
	for _, r := range prev {
		prevByURI[r.URITemplate] = r
	}
	currByURI := make(map[string]baseline.ResourceTemplateCapability, len(curr))
	for _, r := range curr {
		currByURI[r.URITemplate] = r
	}

	var changes []BehaviorChange
	for uri, r := range currByURI {
		if _, ok := prevByURI[uri]; !ok {
			changes = append(changes, toolChange(r.Name, AspectResourceTemplate, "", uri, SeverityInfo, fmt.Sprintf("resource template %q added", uri)))
		}
	}
	for uri, r := range prevByURI {
		if _, ok := currByURI[uri]; !ok {
			changes = append(changes, toolChange(r.Name, AspectResourceTemplate, uri, "", SeverityBreaking, fmt.Sprintf("resource template %q removed", uri)))
		}
	}
	for uri, p := range prevByURI {
		c, ok := currByURI[uri]
		if !ok {
			continue
		}
		if p.Description != c.Description {
			changes = append(changes, toolChange(c.Name, AspectResourceTemplate, p.Description, c.Description, SeverityInfo, fmt.Sprintf("description changed for resource template %q", uri)))
		}
		if !gated(AspectTitle, prevProtocol, currProtocol) && p.Title != c.Title {
			changes = append(changes, toolChange(c.Name, AspectResourceTemplate, p.Title, c.Title, SeverityInfo, fmt.Sprintf("title changed for resource template %q", uri)))
		}
		if p.MimeType != c.MimeType {
			changes = append(changes, toolChange(c.Name, AspectResourceTemplate, p.MimeType, c.MimeType, SeverityInfo, fmt.Sprintf("mime type changed for resource template %q", uri)))
		}
	}
	return changes
}

func compareWorkflows(prev, curr []baseline.WorkflowOutcome) []BehaviorChange {
	prevByID := make(map[string]baseline.WorkflowOutcome, len(prev))
	for _, w := range prev {
		prevByID[w.ID] = w
	}
	currByID := make(map[string]baseline.WorkflowOutcome, len(curr))
	for _, w := range curr {
		currByID[w.ID] = w
	}

	var changes []BehaviorChange
	for id, w := range currByID {
		if _, ok := prevByID[id]; !ok {
			changes = append(changes, toolChange(id, AspectWorkflow, "", w.Name, SeverityInfo, fmt.Sprintf("workflow %q added", w.Name)))
		}
	}
	for id, w := range prevByID {
		if _, ok := currByID[id]; !ok {
			changes = append(changes, toolChange(id, AspectWorkflow, w.Name, "", SeverityBreaking, fmt.Sprintf("workflow %q removed", w.Name)))
		}
	}
	for id, p := range prevByID {
		c, ok := currByID[id]
		if !ok || p.Succeeded == c.Succeeded {
			continue
		}
		sev := SeverityInfo
		desc := fmt.Sprintf("workflow %q now succeeds", c.Name)
		if p.Succeeded && !c.Succeeded {
			sev = SeverityBreaking
			desc = fmt.Sprintf("workflow %q now fails", c.Name)
		}
		changes = append(changes, toolChange(id, AspectWorkflow, fmt.Sprintf("%v", p.Succeeded), fmt.Sprintf("%v", c.Succeeded), sev, desc))
	}
	return changes
}
