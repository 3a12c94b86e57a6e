package perf_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bellwether-dev/bellwether/perf"
)

func samplesOf(durations ...float64) []perf.Sample {
	out := make([]perf.Sample, len(durations))
	for i, d := range durations {
		out[i] = perf.Sample{ToolName: "t", DurationMs: d, Success: true}
	}
	return out
}

func TestPercentilesLinearInterpolation(t *testing.T) {
	m := perf.Compute(samplesOf(100, 200, 300, 400, 500))
	assert.InDelta(t, 300, m.P50, 1e-9)
}

func TestSuccessRateOverAllSamples(t *testing.T) {
	samples := append(samplesOf(100, 100), perf.Sample{ToolName: "t", DurationMs: 0, Success: false})
	m := perf.Compute(samples)
	assert.InDelta(t, 2.0/3.0, m.SuccessRate, 1e-9)
}

func TestConfidenceHighRequiresSampleCountAndLowCV(t *testing.T) {
	durations := make([]float64, 12)
	for i := range durations {
		durations[i] = 100
	}
	m := perf.Compute(samplesOf(durations...))
	assert.Equal(t, perf.ConfidenceHigh, m.Confidence.ConfidenceLevel)
}

func TestConfidenceLowWithFewSamples(t *testing.T) {
	m := perf.Compute(samplesOf(100, 500))
	assert.Equal(t, perf.ConfidenceLow, m.Confidence.ConfidenceLevel)
}

func TestRegressionDetection(t *testing.T) {
	percent, isRegression, isImprovement, reliable := perf.Regression(100, 150, perf.ConfidenceHigh, perf.DefaultRegressionThreshold)
	require.InDelta(t, 0.5, percent, 1e-9)
	assert.True(t, isRegression)
	assert.False(t, isImprovement)
	assert.True(t, reliable)
}

func TestRegressionNotReliableWithLowConfidence(t *testing.T) {
	_, isRegression, _, reliable := perf.Regression(100, 150, perf.ConfidenceLow, perf.DefaultRegressionThreshold)
	assert.True(t, isRegression)
	assert.False(t, reliable)
}

func TestImprovementDetection(t *testing.T) {
	_, isRegression, isImprovement, _ := perf.Regression(100, 90, perf.ConfidenceHigh, perf.DefaultRegressionThreshold)
	assert.False(t, isRegression)
	assert.True(t, isImprovement)
}
