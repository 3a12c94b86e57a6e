// Package fingerprint turns sampled tool responses into a stable
// ResponseFingerprint, an inferred output schema, and a classified set of
// ErrorPattern records (§4.3).
package fingerprint

import (
	"encoding/json"
	"sort"

	"github.com/bellwether-dev/bellwether/schema"
)

// ContentType classifies the shape of a response's top-level value.
type ContentType string

const (
	ContentObject    ContentType = "object"
	ContentArray     ContentType = "array"
	ContentText      ContentType = "text"
	ContentPrimitive ContentType = "primitive"
	ContentEmpty     ContentType = "empty"
)

// SizeBucket classifies the average serialized length of successful samples.
type SizeBucket string

const (
	SizeTiny   SizeBucket = "tiny"   // <= 200 B
	SizeSmall  SizeBucket = "small"  // <= 2 KiB
	SizeMedium SizeBucket = "medium" // <= 10 KiB
	SizeLarge  SizeBucket = "large"  // > 10 KiB
)

// ResponseFingerprint summarizes the shape of N sampled responses.
type ResponseFingerprint struct {
	StructureHash      string      `json:"structureHash"`
	ContentType        ContentType `json:"contentType"`
	Fields             []string    `json:"fields,omitempty"`
	ArrayItemStructure string      `json:"arrayItemStructure,omitempty"`
	Size               SizeBucket  `json:"size"`
	IsEmpty            bool        `json:"isEmpty"`
	SampleCount        int         `json:"sampleCount"`
	Confidence         float64     `json:"confidence"`
}

// Sample is a single observed tool-call outcome fed into the fingerprinter.
// Value holds the decoded JSON content for successful calls; ErrorText holds
// the raw (possibly bubbled) error string for failed calls.
type Sample struct {
	Success   bool
	Value     any
	ErrorText string
}

// Result bundles the three outputs Fingerprint derives from a sample batch.
type Result struct {
	Fingerprint   ResponseFingerprint
	InferredSchema schema.Document
	ErrorPatterns []ErrorPattern
}

// Fingerprint computes the ResponseFingerprint, inferred output schema, and
// ErrorPattern set for a batch of samples.
func Fingerprint(samples []Sample) Result {
	successes := make([]Sample, 0, len(samples))
	for _, s := range samples {
		if s.Success {
			successes = append(successes, s)
		}
	}

	shapes := make([]*shapeNode, len(samples))
	hashes := make([]string, len(samples))
	for i, s := range samples {
		var shape *shapeNode
		if s.Success {
			shape = buildShape(s.Value, 0)
		} else {
			shape = &shapeNode{Kind: "error"}
		}
		shapes[i] = shape
		hashes[i] = hashShape(shape)
	}

	modeHash, modeCount := mode(hashes)
	confidence := 0.0
	if len(samples) > 0 {
		confidence = float64(modeCount) / float64(len(samples))
	}

	var modeShape *shapeNode
	for i, h := range hashes {
		if h == modeHash {
			modeShape = shapes[i]
			break
		}
	}

	fp := ResponseFingerprint{
		StructureHash: modeHash,
		SampleCount:   len(samples),
		Confidence:    confidence,
	}
	if modeShape != nil {
		fp.ContentType = contentTypeOf(modeShape)
		fp.IsEmpty = isEmptyShape(modeShape)
		if fp.ContentType == ContentObject {
			fp.Fields = unionFields(successes)
		}
		if fp.ContentType == ContentArray && modeShape.Item != nil {
			fp.ArrayItemStructure = hashShape(modeShape.Item)
		}
	}
	fp.Size = sizeBucket(successes)

	return Result{
		Fingerprint:    fp,
		InferredSchema: InferSchema(successes),
		ErrorPatterns:  classifyErrors(samples),
	}
}

func mode(hashes []string) (string, int) {
	counts := make(map[string]int, len(hashes))
	for _, h := range hashes {
		counts[h]++
	}
	var best string
	var bestCount int
	// Deterministic tie-break: lowest hash string wins among equally
	// frequent candidates.
	keys := make([]string, 0, len(counts))
	for h := range counts {
		keys = append(keys, h)
	}
	sort.Strings(keys)
	for _, h := range keys {
		if counts[h] > bestCount {
			best = h
			bestCount = counts[h]
		}
	}
	return best, bestCount
}

func contentTypeOf(n *shapeNode) ContentType {
	switch n.Kind {
	case "object":
		if len(n.Keys) == 0 {
			return ContentEmpty
		}
		return ContentObject
	case "array":
		return ContentArray
	case "string":
		return ContentText
	case "null":
		return ContentEmpty
	case "error":
		return ContentEmpty
	default:
		return ContentPrimitive
	}
}

func isEmptyShape(n *shapeNode) bool {
	switch n.Kind {
	case "object":
		return len(n.Keys) == 0
	case "array":
		return n.Item != nil && n.Item.Kind == "empty"
	case "null":
		return true
	default:
		return false
	}
}

func unionFields(successes []Sample) []string {
	set := map[string]struct{}{}
	for _, s := range successes {
		obj, ok := s.Value.(map[string]any)
		if !ok {
			continue
		}
		for k := range obj {
			set[k] = struct{}{}
		}
	}
	fields := make([]string, 0, len(set))
	for k := range set {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return fields
}

func sizeBucket(successes []Sample) SizeBucket {
	if len(successes) == 0 {
		return SizeTiny
	}
	total := 0
	for _, s := range successes {
		b, err := json.Marshal(s.Value)
		if err == nil {
			total += len(b)
		}
	}
	avg := total / len(successes)
	switch {
	case avg <= 200:
		return SizeTiny
	case avg <= 2*1024:
		return SizeSmall
	case avg <= 10*1024:
		return SizeMedium
	default:
		return SizeLarge
	}
}
