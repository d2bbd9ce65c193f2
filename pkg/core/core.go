package core

import (
	"context"

	"github.com/foxter/foxter/internal/engine"
	"github.com/foxter/foxter/internal/signatures"
	"github.com/foxter/foxter/internal/types"
)

// Re-export selected internal types as a stable public API surface.
type (
	Config  = engine.Config
	Engine  = engine.Engine
	Result  = types.ScanResult
	Stats   = types.ScanStats
	Event   = types.Event
	Verdict = types.Verdict
)

const (
	VerdictClean      = types.VerdictClean
	VerdictSuspicious = types.VerdictSuspicious
	VerdictError      = types.VerdictError

	EventProgress  = types.EventProgress
	EventBatch     = types.EventBatch
	EventCompleted = types.EventCompleted
)

// ErrScanInProgress is returned when an Engine is asked to start a second scan.
var ErrScanInProgress = engine.ErrScanInProgress

// NewEngine loads the built-in signatures plus any extra signature files and
// returns an Engine ready to Start.
func NewEngine(cfg Config, signatureFiles ...string) (*Engine, error) {
	sigs, err := signatures.Load(signatureFiles...)
	if err != nil {
		return nil, err
	}
	return engine.New(sigs, cfg), nil
}

// Scan is the stable entrypoint for other programs: it scans root to
// completion and returns every result with the run's statistics.
func Scan(ctx context.Context, root string, cfg Config, signatureFiles ...string) ([]Result, Stats, error) {
	e, err := NewEngine(cfg, signatureFiles...)
	if err != nil {
		return nil, Stats{}, err
	}
	return e.Scan(ctx, root)
}

// HashFile returns the lowercase hex SHA-256 of the file at path.
func HashFile(path string) (string, error) { return engine.HashFile(path) }
