package store_test

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bellwether-dev/bellwether/baseline"
	"github.com/bellwether-dev/bellwether/baseline/store"
	"github.com/bellwether-dev/bellwether/telemetry"
)

func sampleBaseline(name string) *baseline.Baseline {
	b := &baseline.Baseline{
		FormatVersion: baseline.FormatVersion,
		Metadata: baseline.Metadata{
			Mode:        baseline.ModeCheck,
			GeneratedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		Server: baseline.Server{Name: name, Version: "1.0.0", ProtocolVersion: "2025-06-18"},
		Capabilities: baseline.Capabilities{
			Tools: []baseline.ToolCapability{{Name: "t", SchemaHash: "abc"}},
		},
	}
	hash, err := baseline.Hash(b)
	if err != nil {
		panic(err)
	}
	b.Hash = hash
	return b
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	s := store.NewFileStore(dir)
	original := sampleBaseline("weather-server")

	require.NoError(t, s.Save("weather-server", original))
	assert.True(t, s.Exists("weather-server"))

	loaded, err := s.Load("weather-server")
	require.NoError(t, err)
	assert.Equal(t, original.Hash, loaded.Hash)
	assert.Equal(t, original.Server.Name, loaded.Server.Name)
}

func TestSaveContextAndLoadContextUseAttachedTelemetry(t *testing.T) {
	dir := t.TempDir()
	s := store.NewFileStore(dir, store.WithTelemetry(telemetry.NewNoopLogger(), telemetry.NewNoopTracer(), telemetry.NewNoopMetrics()))
	original := sampleBaseline("weather-server")

	ctx := context.Background()
	require.NoError(t, s.SaveContext(ctx, "weather-server", original))
	loaded, err := s.LoadContext(ctx, "weather-server")
	require.NoError(t, err)
	assert.Equal(t, original.Hash, loaded.Hash)

	_, err = s.LoadContext(ctx, "does-not-exist")
	require.Error(t, err)
}

func TestLoadMissingKeyReturnsNotFoundError(t *testing.T) {
	dir := t.TempDir()
	s := store.NewFileStore(dir)
	_, err := s.Load("does-not-exist")
	require.Error(t, err)
	var nf *store.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestVerifyHashDetectsTampering(t *testing.T) {
	dir := t.TempDir()
	s := store.NewFileStore(dir)
	b := sampleBaseline("weather-server")
	require.NoError(t, s.Save("weather-server", b))

	ok, err := s.VerifyHash("weather-server")
	require.NoError(t, err)
	assert.True(t, ok)

	tampered, err := s.Load("weather-server")
	require.NoError(t, err)
	tampered.Server.Name = "tampered-server"
	require.NoError(t, s.Save("weather-server", tampered))

	ok, err = s.VerifyHash("weather-server")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecalculateHashRepairsTamperedBaseline(t *testing.T) {
	dir := t.TempDir()
	s := store.NewFileStore(dir)
	b := sampleBaseline("weather-server")
	require.NoError(t, s.Save("weather-server", b))

	tampered, err := s.Load("weather-server")
	require.NoError(t, err)
	tampered.Server.Name = "tampered-server"
	require.NoError(t, s.Save("weather-server", tampered))

	require.NoError(t, s.RecalculateHash("weather-server"))
	ok, err := s.VerifyHash("weather-server")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAcceptDriftIsIdempotentPerDiffHash(t *testing.T) {
	dir := t.TempDir()
	s := store.NewFileStore(dir)
	b := sampleBaseline("weather-server")
	require.NoError(t, s.Save("weather-server", b))

	require.NoError(t, s.AcceptDrift("weather-server", "diff-1", "alice", "expected rename", time.Now().UTC()))
	require.NoError(t, s.AcceptDrift("weather-server", "diff-1", "alice", "expected rename", time.Now().UTC()))

	loaded, err := s.Load("weather-server")
	require.NoError(t, err)
	require.NotNil(t, loaded.Acceptance)
	assert.Equal(t, "diff-1", loaded.Acceptance.DiffHash)

	has, err := s.HasAcceptance("weather-server", "diff-1")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestClearAcceptanceRemovesAllRecords(t *testing.T) {
	dir := t.TempDir()
	s := store.NewFileStore(dir)
	b := sampleBaseline("weather-server")
	require.NoError(t, s.Save("weather-server", b))
	require.NoError(t, s.AcceptDrift("weather-server", "diff-1", "alice", "", time.Now().UTC()))

	require.NoError(t, s.ClearAcceptance("weather-server"))
	has, err := s.HasAcceptance("weather-server", "diff-1")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestLoadRejectsMalformedShape(t *testing.T) {
	dir := t.TempDir()
	s := store.NewFileStore(dir)
	raw := []byte(`{"formatVersion": "1.0.0"}`)
	require.NoError(t, writeRaw(dir, "broken", raw))

	_, err := s.Load("broken")
	require.Error(t, err)
	var se *store.InvalidSchemaError
	assert.ErrorAs(t, err, &se)
}

func TestLoadRejectsNameOnlyWorkflowRecord(t *testing.T) {
	dir := t.TempDir()
	s := store.NewFileStore(dir)
	b := sampleBaseline("weather-server")
	raw, err := json.Marshal(struct {
		baseline.Baseline
		Workflows []map[string]any `json:"workflows"`
	}{
		Baseline:  *b,
		Workflows: []map[string]any{{"name": "book-trip"}},
	})
	require.NoError(t, err)
	require.NoError(t, writeRaw(dir, "bad-workflow", raw))

	_, err = s.Load("bad-workflow")
	require.Error(t, err)
	var se *store.InvalidSchemaError
	assert.ErrorAs(t, err, &se)
}

// TestSaveLoadRoundTripPreservesToolNames verifies that for any sequence of
// tool names (repeats allowed), saving and reloading a baseline preserves
// them exactly, in order.
func TestSaveLoadRoundTripPreservesToolNames(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("save then load preserves tool names in order", prop.ForAll(
		func(names []string) bool {
			dir := t.TempDir()
			s := store.NewFileStore(dir)
			b := sampleBaseline("srv")
			b.Capabilities.Tools = nil
			for _, n := range names {
				b.Capabilities.Tools = append(b.Capabilities.Tools, baseline.ToolCapability{Name: n, SchemaHash: "h"})
			}
			hash, err := baseline.Hash(b)
			if err != nil {
				return false
			}
			b.Hash = hash

			if err := s.Save("srv", b); err != nil {
				return false
			}
			loaded, err := s.Load("srv")
			if err != nil {
				return false
			}
			if len(loaded.Capabilities.Tools) != len(names) {
				return false
			}
			for i, n := range names {
				if loaded.Capabilities.Tools[i].Name != n {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(4, gen.OneConstOf("get_weather", "list_forecasts", "search", "notify")),
	))

	properties.TestingRun(t)
}

func writeRaw(dir, key string, raw []byte) error {
	return os.WriteFile(dir+"/"+key+".json", raw, 0o644)
}
