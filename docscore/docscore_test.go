package docscore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bellwether-dev/bellwether/docscore"
)

func TestFullyDocumentedToolScoresHigh(t *testing.T) {
	score := docscore.Compute([]docscore.ToolDoc{
		{
			Name:        "get_weather",
			Description: "Fetches the current weather conditions for a named location.",
			Parameters: []docscore.Param{
				{Name: "location", Description: "City and region to query."},
			},
			ExampleCount: 1,
		},
	})
	assert.Equal(t, docscore.GradeA, score.Grade)
	assert.Equal(t, 0, score.IssueCount)
}

func TestUndocumentedToolScoresF(t *testing.T) {
	score := docscore.Compute([]docscore.ToolDoc{{Name: "calculate"}})
	assert.Equal(t, docscore.GradeF, score.Grade)
	assert.True(t, score.IssueCount >= 2)
}

func TestDescriptionRestatingNameIsNotQuality(t *testing.T) {
	score := docscore.Compute([]docscore.ToolDoc{{Name: "get_weather", Description: "get weather"}})
	assert.Less(t, score.OverallScore, 80)
}

func TestUndocumentedParameterIsAnIssue(t *testing.T) {
	score := docscore.Compute([]docscore.ToolDoc{
		{
			Name:        "search",
			Description: "Searches the knowledge base for matching documents.",
			Parameters:  []docscore.Param{{Name: "query"}},
		},
	})
	found := false
	for _, i := range score.Issues {
		if i.Tool == "search" {
			found = true
		}
	}
	assert.True(t, found)
}
