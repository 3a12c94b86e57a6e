// Package evolution tracks the history of a tool's inferred response schema
// across sample batches (§4.4), reporting whether the shape has stabilized
// and which fields have been inconsistently present.
package evolution

import (
	"sort"
	"time"

	"github.com/bellwether-dev/bellwether/canon"
	"github.com/bellwether-dev/bellwether/schema"
)

// maxHistory bounds the number of distinct-hash transitions retained.
const maxHistory = 16

// stabilityWindow is the maximum number of trailing batches inspected when
// deciding IsStable.
const stabilityWindow = 5

// Batch is one observed inferred-schema sample, in chronological order.
type Batch struct {
	Schema      schema.Document
	ObservedAt  time.Time
	SampleCount int
}

// HistoryEntry records a schema hash transition.
type HistoryEntry struct {
	Hash        string          `json:"hash"`
	Schema      schema.Document `json:"schema"`
	ObservedAt  time.Time       `json:"observedAt"`
	SampleCount int             `json:"sampleCount"`
}

// Evolution is the ResponseSchemaEvolution record for one tool.
type Evolution struct {
	CurrentHash         string         `json:"currentHash"`
	History             []HistoryEntry `json:"history"`
	IsStable            bool           `json:"isStable"`
	StabilityConfidence float64        `json:"stabilityConfidence"`
	InconsistentFields  []string       `json:"inconsistentFields,omitempty"`
	SampleCount         int            `json:"sampleCount"`
}

// Track builds an Evolution record from an ordered sequence of batches and
// the set of fields observed to be inconsistently present in the most
// recent batch.
func Track(batches []Batch, latestInconsistentFields []string) Evolution {
	if len(batches) == 0 {
		return Evolution{}
	}

	hashes := make([]string, len(batches))
	for i, b := range batches {
		h, _ := canon.Hash(b.Schema)
		hashes[i] = h
	}

	var history []HistoryEntry
	for i, b := range batches {
		if i == 0 || hashes[i] != hashes[i-1] {
			history = append(history, HistoryEntry{
				Hash: hashes[i], Schema: b.Schema, ObservedAt: b.ObservedAt, SampleCount: b.SampleCount,
			})
		}
	}
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}

	k := stabilityWindow
	if len(batches) < k {
		k = len(batches)
	}
	stable := true
	for i := len(batches) - k; i < len(batches); i++ {
		if hashes[i] != hashes[len(batches)-1] {
			stable = false
			break
		}
	}

	counts := map[string]int{}
	maxCount := 0
	for _, e := range history {
		counts[e.Hash]++
		if counts[e.Hash] > maxCount {
			maxCount = counts[e.Hash]
		}
	}
	confidence := 0.0
	if len(history) > 0 {
		confidence = float64(maxCount) / float64(len(history))
	}

	fields := dedupSorted(latestInconsistentFields)

	return Evolution{
		CurrentHash:         hashes[len(hashes)-1],
		History:             history,
		IsStable:            stable,
		StabilityConfidence: confidence,
		InconsistentFields:  fields,
		SampleCount:         len(batches),
	}
}

func dedupSorted(fields []string) []string {
	if len(fields) == 0 {
		return nil
	}
	set := map[string]struct{}{}
	for _, f := range fields {
		set[f] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// InconsistentFields computes the set of fields present in some but not all
// successful samples of a single batch, given the per-sample field sets.
func InconsistentFields(perSampleFields [][]string) []string {
	presentIn := map[string]int{}
	for _, fields := range perSampleFields {
		for _, f := range fields {
			presentIn[f]++
		}
	}
	n := len(perSampleFields)
	var inconsistent []string
	for f, count := range presentIn {
		if count > 0 && count < n {
			inconsistent = append(inconsistent, f)
		}
	}
	sort.Strings(inconsistent)
	return inconsistent
}
