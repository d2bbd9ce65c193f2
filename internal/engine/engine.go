package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/foxter/foxter/internal/logging"
	"github.com/foxter/foxter/internal/signatures"
	"github.com/foxter/foxter/internal/types"
	"github.com/google/uuid"
)

// DefaultBatchSize is the number of results grouped into one batch event.
const DefaultBatchSize = 10

// ErrScanInProgress is returned by Start while another scan on the same
// Engine has not completed yet.
var ErrScanInProgress = errors.New("scan already in progress")

// Config controls scanning scope and event delivery.
type Config struct {
	IncludeGlobs string
	ExcludeGlobs string
	BatchSize    int
	Logger       *slog.Logger

	// AfterFile, when set, is called on the scan worker after each file has
	// been classified and its events queued.
	AfterFile func(processed, total int)
}

// Engine runs at most one scan at a time against a shared signature set.
type Engine struct {
	sigs     *signatures.Set
	cfg      Config
	log      *slog.Logger
	openFile func(name string) (io.ReadCloser, error)

	running atomic.Bool
	mu      sync.Mutex
	current *task
}

// task is the state of one scan. It is owned by the worker goroutine; only
// the stop flag is touched from other goroutines.
type task struct {
	id        string
	root      string
	started   time.Time
	stop      atomic.Bool
	total     int
	processed int
	results   []types.ScanResult
	batch     []types.ScanResult
	lastPct   int
}

// New returns an Engine that classifies files against sigs.
func New(sigs *signatures.Set, cfg Config) *Engine {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Engine{
		sigs: sigs,
		cfg:  cfg,
		log:  log,
		openFile: func(name string) (io.ReadCloser, error) {
			return os.Open(name)
		},
	}
}

// Start begins scanning root in a background goroutine and returns the
// event stream. The stream always ends with exactly one EventCompleted and
// is then closed; callers must drain it. Cancelling ctx has the same effect
// as Stop.
func (e *Engine) Start(ctx context.Context, root string) (<-chan types.Event, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, ErrScanInProgress
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = filepath.Clean(root)
	}
	t := &task{id: uuid.NewString(), root: abs, started: time.Now()}
	e.mu.Lock()
	e.current = t
	e.mu.Unlock()

	box := newMailbox()
	out := make(chan types.Event)
	go box.pump(out)
	go func() {
		stopWatch := context.AfterFunc(ctx, func() { t.stop.Store(true) })
		defer stopWatch()
		e.run(t, box)
	}()
	return out, nil
}

// Stop asks the running scan to finish after the file it is processing.
// It is a no-op when no scan is running.
func (e *Engine) Stop() {
	e.mu.Lock()
	t := e.current
	e.mu.Unlock()
	if t != nil {
		t.stop.Store(true)
	}
}

// Running reports whether a scan is in progress.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Scan runs a scan to completion and returns the full result list.
func (e *Engine) Scan(ctx context.Context, root string) ([]types.ScanResult, types.ScanStats, error) {
	events, err := e.Start(ctx, root)
	if err != nil {
		return nil, types.ScanStats{}, err
	}
	var (
		results []types.ScanResult
		stats   types.ScanStats
	)
	for ev := range events {
		if ev.Kind == types.EventCompleted {
			results = ev.Results
			if ev.Stats != nil {
				stats = *ev.Stats
			}
		}
	}
	return results, stats, nil
}

func (e *Engine) run(t *task, box *mailbox) {
	defer box.close()

	targets, err := collectTargets(t.root, e.cfg, e.log)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, errNotDir) {
			e.log.Error("invalid scan root", "root", t.root, "error", err)
		} else {
			e.log.Error("enumerate scan root", "root", t.root, "error", err)
		}
		e.complete(t, box)
		return
	}
	t.total = len(targets)
	if t.total == 0 {
		e.complete(t, box)
		return
	}

	for _, p := range targets {
		if t.stop.Load() {
			break
		}
		res := e.classify(p)
		t.results = append(t.results, res)
		t.batch = append(t.batch, res)
		t.processed++

		if pct := percent(t.processed, t.total); pct != t.lastPct {
			t.lastPct = pct
			box.put(types.Event{Kind: types.EventProgress, Percent: pct})
		}
		if len(t.batch) >= e.cfg.BatchSize {
			e.flush(t, box)
		}
		if e.cfg.AfterFile != nil {
			e.cfg.AfterFile(t.processed, t.total)
		}
	}

	e.flush(t, box)
	if t.lastPct != 100 {
		box.put(types.Event{Kind: types.EventProgress, Percent: 100})
	}
	e.complete(t, box)
}

// flush hands the pending batch to the consumer. The slice is not reused.
func (e *Engine) flush(t *task, box *mailbox) {
	if len(t.batch) == 0 {
		return
	}
	box.put(types.Event{Kind: types.EventBatch, Results: t.batch})
	t.batch = make([]types.ScanResult, 0, e.cfg.BatchSize)
}

// complete releases the engine for the next scan and queues the final event.
// The accumulated results are handed off; the worker does not touch them again.
func (e *Engine) complete(t *task, box *mailbox) {
	results := t.results
	if results == nil {
		results = []types.ScanResult{}
	}
	suspicious, errored := types.CountVerdicts(results)
	stats := &types.ScanStats{
		ScanID:     t.id,
		Root:       t.root,
		Total:      t.total,
		Processed:  t.processed,
		Suspicious: suspicious,
		Errors:     errored,
		Cancelled:  t.stop.Load() && t.processed < t.total,
		Started:    t.started,
		Duration:   time.Since(t.started),
	}
	t.results = nil
	e.log.Info("scan completed",
		"scan_id", stats.ScanID,
		"root", stats.Root,
		"files", stats.Processed,
		"suspicious", stats.Suspicious,
		"errors", stats.Errors,
		"cancelled", stats.Cancelled,
	)

	// Release before queueing so a consumer reacting to Completed can start
	// the next scan right away.
	e.mu.Lock()
	if e.current == t {
		e.current = nil
	}
	e.mu.Unlock()
	e.running.Store(false)
	box.put(types.Event{Kind: types.EventCompleted, Results: results, Stats: stats})
}

func (e *Engine) classify(p string) types.ScanResult {
	sum, err := hashWith(e.openFile, p)
	if err != nil {
		e.log.Error("scan file", "path", p, "error", err)
		return types.ScanResult{Path: p, Verdict: types.VerdictError, Message: err.Error()}
	}
	v := types.VerdictClean
	if e.sigs.Contains(sum) {
		v = types.VerdictSuspicious
		e.log.Warn("suspicious file", "path", p, "sha256", sum)
	}
	return types.ScanResult{Path: p, Verdict: v, SHA256: sum}
}

// HashFile returns the lowercase hex SHA-256 digest of the file's content.
func HashFile(path string) (string, error) {
	return hashWith(func(name string) (io.ReadCloser, error) { return os.Open(name) }, path)
}

func hashWith(open func(string) (io.ReadCloser, error), path string) (string, error) {
	f, err := open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// percent returns floor(processed/total*100), clamped to [0, 100].
func percent(processed, total int) int {
	if total <= 0 {
		return 0
	}
	p := processed * 100 / total
	if p > 100 {
		return 100
	}
	return p
}
