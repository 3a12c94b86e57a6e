// Package docscore computes a documentation-quality score for a set of
// tools (§4.6): description coverage, description quality, parameter
// documentation, and example coverage, weighted into a single 0-100 score
// and letter grade.
package docscore

import (
	"fmt"
	"sort"
	"strings"
)

// Weights, summing to 1.0 per §4.6.
const (
	weightDescriptionCoverage   = 0.25
	weightDescriptionQuality    = 0.25
	weightParameterDocumentation = 0.30
	weightExampleCoverage       = 0.20

	// minQualityDescriptionLen is the minimum description length (in
	// runes) considered substantive rather than a placeholder.
	minQualityDescriptionLen = 20
)

// Param is a single documented (or undocumented) tool parameter.
type Param struct {
	Name        string
	Description string
}

// ToolDoc is the narrative-documentation surface of one tool.
type ToolDoc struct {
	Name         string
	Description  string
	Parameters   []Param
	ExampleCount int
}

// Issue flags a specific documentation deficiency for one tool.
type Issue struct {
	Tool       string `json:"tool"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion"`
}

// Grade is a letter grade derived from OverallScore.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// Score is the computed documentation quality for a baseline.
type Score struct {
	OverallScore int     `json:"overallScore"`
	Grade        Grade   `json:"grade"`
	IssueCount   int     `json:"issueCount"`
	ToolCount    int     `json:"toolCount"`
	Issues       []Issue `json:"-"`
}

// Compute scores a set of tools' documentation.
func Compute(tools []ToolDoc) Score {
	if len(tools) == 0 {
		return Score{Grade: GradeF}
	}

	var issues []Issue
	describedCount := 0
	qualityCount := 0
	var totalParams, documentedParams int
	exampleToolCount := 0

	for _, tool := range tools {
		desc := strings.TrimSpace(tool.Description)
		if desc != "" {
			describedCount++
		} else {
			issues = append(issues, Issue{
				Tool: tool.Name, Message: "missing description",
				Suggestion: "add a one-sentence description of what the tool does",
			})
		}
		if isQualityDescription(desc, tool.Name) {
			qualityCount++
		} else if desc != "" {
			issues = append(issues, Issue{
				Tool: tool.Name, Message: "description too short or restates the tool name",
				Suggestion: "describe inputs, outputs, and side effects in at least a sentence",
			})
		}

		for _, p := range tool.Parameters {
			totalParams++
			if strings.TrimSpace(p.Description) != "" {
				documentedParams++
			} else {
				issues = append(issues, Issue{
					Tool: tool.Name, Message: fmt.Sprintf("parameter %q has no description", p.Name),
					Suggestion: "document the expected value and constraints for this parameter",
				})
			}
		}

		if tool.ExampleCount > 0 {
			exampleToolCount++
		} else {
			issues = append(issues, Issue{
				Tool: tool.Name, Message: "no usage examples",
				Suggestion: "add at least one example invocation",
			})
		}
	}

	descriptionCoverage := percent(describedCount, len(tools))
	descriptionQuality := percent(qualityCount, len(tools))
	parameterDocumentation := 100.0
	if totalParams > 0 {
		parameterDocumentation = percent(documentedParams, totalParams)
	}
	exampleCoverage := percent(exampleToolCount, len(tools))

	overall := weightDescriptionCoverage*descriptionCoverage +
		weightDescriptionQuality*descriptionQuality +
		weightParameterDocumentation*parameterDocumentation +
		weightExampleCoverage*exampleCoverage

	sort.Slice(issues, func(i, j int) bool {
		if issues[i].Tool != issues[j].Tool {
			return issues[i].Tool < issues[j].Tool
		}
		return issues[i].Message < issues[j].Message
	})

	return Score{
		OverallScore: int(overall + 0.5),
		Grade:        gradeFor(overall),
		IssueCount:   len(issues),
		ToolCount:    len(tools),
		Issues:       issues,
	}
}

func isQualityDescription(desc, toolName string) bool {
	if desc == "" {
		return false
	}
	if len([]rune(desc)) < minQualityDescriptionLen {
		return false
	}
	normalized := strings.ToLower(strings.ReplaceAll(desc, "_", " "))
	name := strings.ToLower(strings.ReplaceAll(toolName, "_", " "))
	return normalized != name
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(part) / float64(total)
}

func gradeFor(score float64) Grade {
	switch {
	case score >= 90:
		return GradeA
	case score >= 80:
		return GradeB
	case score >= 70:
		return GradeC
	case score >= 60:
		return GradeD
	default:
		return GradeF
	}
}
