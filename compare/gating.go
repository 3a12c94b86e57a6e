package compare

// featureGate maps a protocol-version-gated aspect to the minimum protocol
// version (a lexicographically-comparable ISO date string) a baseline must
// advertise before changes to that aspect are surfaced (§6).
var featureGate = map[Aspect]string{
	AspectToolAnnotations:     "2025-03-26",
	AspectTitle:               "2025-03-26",
	AspectResourceAnnotations: "2025-03-26",
	AspectOutputSchema:        "2025-06-18",
	AspectExecution:           "2025-11-25",
}

// resourceSizeGate and serverInstructionsGate are named separately from the
// generic featureGate table because they key off entity context
// (resource-level vs server-level) rather than a single Aspect value shared
// across tool/prompt/resource.
const (
	resourceSizeGate      = "2025-03-26"
	serverInstructionsGate = "2025-06-18"
)

// gated reports whether a change on aspect should be suppressed because
// either protocol version advertised by the two baselines falls below the
// aspect's introduction gate. Ungated aspects are never suppressed.
func gated(aspect Aspect, prevProtocol, currProtocol string) bool {
	gate, ok := featureGate[aspect]
	if !ok {
		return false
	}
	return belowGate(prevProtocol, gate) || belowGate(currProtocol, gate)
}

// belowGate reports whether protocol < gate. Protocol version strings are
// ISO-8601 dates, so plain lexicographic string comparison is chronological.
func belowGate(protocol, gate string) bool {
	return protocol < gate
}
