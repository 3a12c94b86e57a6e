// Package store persists Baseline documents as content-hashed JSON files
// with atomic writes and integrity verification (§4.8).
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bellwether-dev/bellwether/baseline"
	"github.com/bellwether-dev/bellwether/telemetry"
)

// MaxBaselineSize is the default maximum on-disk size of a single baseline
// document. A drift-detection baseline should never legitimately approach
// this; it exists to stop a corrupt or adversarial file from being decoded
// into memory uncontrolled.
const MaxBaselineSize = 16 * 1024 * 1024

// Store persists and retrieves Baseline documents keyed by an
// implementation-defined string (a file-store key is a path-safe name; a
// memory-store key is just a map key).
type Store interface {
	Save(key string, b *baseline.Baseline) error
	Load(key string) (*baseline.Baseline, error)
	Exists(key string) bool
	// VerifyHash recomputes the content hash of the stored baseline and
	// reports whether it matches the hash recorded in the document.
	VerifyHash(key string) (bool, error)
	// RecalculateHash reloads a baseline, recomputes its hash, and
	// re-saves it with the corrected value. Used to repair a baseline
	// after an out-of-band edit to the stored file.
	RecalculateHash(key string) error
	// AcceptDrift records that the drift identified by diffHash has been
	// reviewed and is expected, so future comparisons against this
	// baseline should not re-flag it.
	AcceptDrift(key, diffHash, acceptedBy, reason string, acceptedAt time.Time) error
	ClearAcceptance(key string) error
	HasAcceptance(key, diffHash string) (bool, error)
}

// FileStore persists baselines as individual JSON files under a root
// directory, one file per key.
type FileStore struct {
	dir     string
	maxSize int64
	logger  telemetry.Logger
	tracer  telemetry.Tracer
	metrics telemetry.Metrics
}

var _ Store = (*FileStore)(nil)

// Option configures a FileStore at construction time.
type Option func(*FileStore)

// WithTelemetry attaches a logger/tracer/metrics stack to a FileStore's
// Save and Load calls. Any nil argument keeps its Noop default.
func WithTelemetry(logger telemetry.Logger, tracer telemetry.Tracer, metrics telemetry.Metrics) Option {
	return func(s *FileStore) {
		if logger != nil {
			s.logger = logger
		}
		if tracer != nil {
			s.tracer = tracer
		}
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

// NewFileStore returns a FileStore rooted at dir, which must already exist.
func NewFileStore(dir string, opts ...Option) *FileStore {
	s := &FileStore{
		dir:     dir,
		maxSize: MaxBaselineSize,
		logger:  telemetry.NewNoopLogger(),
		tracer:  telemetry.NewNoopTracer(),
		metrics: telemetry.NewNoopMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *FileStore) Exists(key string) bool {
	_, err := os.Stat(s.path(key))
	return err == nil
}

// Save writes b to disk atomically: the document is serialized, written to
// a temporary file in the same directory, fsynced, and renamed into place,
// so a crash mid-write never leaves a half-written baseline at the
// canonical path.
func (s *FileStore) Save(key string, b *baseline.Baseline) error {
	raw, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal baseline %q: %w", key, err)
	}
	if int64(len(raw)) > s.maxSize {
		return &TooLargeError{Key: key, SizeBytes: int64(len(raw)), LimitBytes: s.maxSize}
	}

	final := s.path(key)
	tmp, err := os.CreateTemp(s.dir, ".tmp-"+key+"-*")
	if err != nil {
		return fmt.Errorf("store: create temp file for %q: %w", key, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("store: write temp file for %q: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("store: sync temp file for %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: close temp file for %q: %w", key, err)
	}
	if err := os.Rename(tmpPath, final); err != nil {
		return fmt.Errorf("store: rename into place for %q: %w", key, err)
	}
	return nil
}

// SaveContext wraps Save with a tracing span and a "store.saves" counter.
// Save itself stays context-free so FileStore keeps satisfying Store without
// a context parameter on every method.
func (s *FileStore) SaveContext(ctx context.Context, key string, b *baseline.Baseline) error {
	ctx, span := s.tracer.Start(ctx, "store.Save")
	defer span.End()
	if err := s.Save(key, b); err != nil {
		span.RecordError(err)
		s.logger.Error(ctx, "baseline save failed", "key", key, "error", err.Error())
		return err
	}
	s.metrics.IncCounter("store.saves", 1)
	s.logger.Debug(ctx, "baseline saved", "key", key, "hash", b.Hash)
	return nil
}

// LoadContext wraps Load with a tracing span and a "store.loads" counter.
func (s *FileStore) LoadContext(ctx context.Context, key string) (*baseline.Baseline, error) {
	ctx, span := s.tracer.Start(ctx, "store.Load")
	defer span.End()
	b, err := s.Load(key)
	if err != nil {
		span.RecordError(err)
		s.logger.Error(ctx, "baseline load failed", "key", key, "error", err.Error())
		return nil, err
	}
	s.metrics.IncCounter("store.loads", 1)
	s.logger.Debug(ctx, "baseline loaded", "key", key, "hash", b.Hash)
	return b, nil
}

func (s *FileStore) readRaw(key string) ([]byte, error) {
	raw, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Key: key}
		}
		return nil, fmt.Errorf("store: read %q: %w", key, err)
	}
	if int64(len(raw)) > s.maxSize {
		return nil, &TooLargeError{Key: key, SizeBytes: int64(len(raw)), LimitBytes: s.maxSize}
	}
	return raw, nil
}

// Load reads, size-checks, shape-validates, and decodes the baseline
// stored at key. It does not verify the content hash; call VerifyHash
// separately when integrity matters more than load latency.
func (s *FileStore) Load(key string) (*baseline.Baseline, error) {
	raw, err := s.readRaw(key)
	if err != nil {
		return nil, err
	}
	if _, err := validateShape(key, raw); err != nil {
		return nil, err
	}
	var b baseline.Baseline
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, &InvalidJSONError{Key: key, Err: err}
	}
	return &b, nil
}

func (s *FileStore) VerifyHash(key string) (bool, error) {
	b, err := s.Load(key)
	if err != nil {
		return false, err
	}
	recomputed, err := baseline.Hash(b)
	if err != nil {
		return false, fmt.Errorf("store: recompute hash for %q: %w", key, err)
	}
	return recomputed == b.Hash, nil
}

func (s *FileStore) RecalculateHash(key string) error {
	b, err := s.Load(key)
	if err != nil {
		return err
	}
	recomputed, err := baseline.Hash(b)
	if err != nil {
		return fmt.Errorf("store: recompute hash for %q: %w", key, err)
	}
	if recomputed == b.Hash {
		return nil
	}
	b.Hash = recomputed
	return s.Save(key, b)
}

func (s *FileStore) AcceptDrift(key, diffHash, acceptedBy, reason string, acceptedAt time.Time) error {
	b, err := s.Load(key)
	if err != nil {
		return err
	}
	if b.Acceptance != nil && b.Acceptance.DiffHash == diffHash {
		return nil
	}
	accepted := baseline.NewAcceptance(diffHash, acceptedBy, reason, acceptedAt)
	b.Acceptance = &accepted
	return s.Save(key, b)
}

func (s *FileStore) ClearAcceptance(key string) error {
	b, err := s.Load(key)
	if err != nil {
		return err
	}
	if b.Acceptance == nil {
		return nil
	}
	b.Acceptance = nil
	return s.Save(key, b)
}

func (s *FileStore) HasAcceptance(key, diffHash string) (bool, error) {
	b, err := s.Load(key)
	if err != nil {
		return false, err
	}
	return b.Acceptance != nil && b.Acceptance.DiffHash == diffHash, nil
}
