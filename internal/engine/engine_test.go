package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/foxter/foxter/internal/signatures"
	"github.com/foxter/foxter/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const malicious = "this content is known to be malicious"

type collected struct {
	progress  []int
	batches   [][]types.ScanResult
	completed []types.Event
	order     []types.EventKind
}

func drain(t *testing.T, events <-chan types.Event) collected {
	t.Helper()
	var c collected
	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return c
			}
			c.order = append(c.order, ev.Kind)
			switch ev.Kind {
			case types.EventProgress:
				c.progress = append(c.progress, ev.Percent)
			case types.EventBatch:
				c.batches = append(c.batches, ev.Results)
			case types.EventCompleted:
				c.completed = append(c.completed, ev)
			}
		case <-timeout:
			t.Fatal("timed out waiting for scan events")
		}
	}
}

func sum(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

func testSigs(t *testing.T) *signatures.Set {
	t.Helper()
	s, err := signatures.New(sum(malicious))
	require.NoError(t, err)
	return s
}

// makeTree writes n files named f00..f(n-1) under dir, spread over two
// subdirectories. The file at index bad (if >= 0) gets malicious content.
func makeTree(t *testing.T, dir string, n, bad int) []string {
	t.Helper()
	var paths []string
	for i := 0; i < n; i++ {
		sub := "a"
		if i >= n/2 {
			sub = "b"
		}
		p := filepath.Join(dir, sub, fmt.Sprintf("f%02d.txt", i))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		content := fmt.Sprintf("file %d", i)
		if i == bad {
			content = malicious
		}
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
		paths = append(paths, p)
	}
	return paths
}

func resultPaths(rs []types.ScanResult) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Path
	}
	return out
}

func assertNonDecreasing(t *testing.T, ps []int) {
	t.Helper()
	for i := 1; i < len(ps); i++ {
		assert.GreaterOrEqual(t, ps[i], ps[i-1], "progress must not decrease: %v", ps)
	}
}

func TestScan_BatchesProgressAndVerdicts(t *testing.T) {
	dir := t.TempDir()
	paths := makeTree(t, dir, 25, 7)

	e := New(testSigs(t), Config{})
	events, err := e.Start(context.Background(), dir)
	require.NoError(t, err)
	c := drain(t, events)

	require.Len(t, c.completed, 1)
	require.Len(t, c.batches, 3)
	assert.Len(t, c.batches[0], 10)
	assert.Len(t, c.batches[1], 10)
	assert.Len(t, c.batches[2], 5)

	final := c.completed[0].Results
	require.Len(t, final, 25)
	assert.Equal(t, paths, resultPaths(final), "results follow traversal order")

	var batched []types.ScanResult
	for _, b := range c.batches {
		batched = append(batched, b...)
	}
	assert.Equal(t, final, batched)

	suspicious := 0
	for _, r := range final {
		if r.Verdict == types.VerdictSuspicious {
			suspicious++
			assert.Equal(t, paths[7], r.Path)
		} else {
			assert.Equal(t, types.VerdictClean, r.Verdict)
		}
	}
	assert.Equal(t, 1, suspicious)

	require.NotEmpty(t, c.progress)
	assertNonDecreasing(t, c.progress)
	assert.Equal(t, 100, c.progress[len(c.progress)-1])
	assert.Equal(t, types.EventCompleted, c.order[len(c.order)-1])

	stats := c.completed[0].Stats
	require.NotNil(t, stats)
	assert.Equal(t, 25, stats.Total)
	assert.Equal(t, 25, stats.Processed)
	assert.Equal(t, 1, stats.Suspicious)
	assert.False(t, stats.Cancelled)
	assert.NotEmpty(t, stats.ScanID)
}

func TestScan_EmptyScopes(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "plain.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	emptyDir := filepath.Join(dir, "empty", "nested")
	require.NoError(t, os.MkdirAll(emptyDir, 0755))

	tests := []struct {
		name string
		root string
	}{
		{name: "missing root", root: filepath.Join(dir, "does-not-exist")},
		{name: "empty tree", root: filepath.Join(dir, "empty")},
		{name: "root is a file", root: file},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(testSigs(t), Config{})
			events, err := e.Start(context.Background(), tt.root)
			require.NoError(t, err)
			c := drain(t, events)

			assert.Empty(t, c.progress)
			assert.Empty(t, c.batches)
			require.Len(t, c.completed, 1)
			assert.NotNil(t, c.completed[0].Results)
			assert.Empty(t, c.completed[0].Results)
		})
	}
}

func TestScan_PerFileErrorDoesNotAbort(t *testing.T) {
	dir := t.TempDir()
	paths := makeTree(t, dir, 5, -1)
	broken := paths[2]

	e := New(testSigs(t), Config{})
	e.openFile = func(name string) (io.ReadCloser, error) {
		if name == broken {
			return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
		}
		return os.Open(name)
	}
	results, stats, err := e.Scan(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, results, 5)
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 1, stats.Errors)
	for _, r := range results {
		if r.Path == broken {
			assert.Equal(t, types.VerdictError, r.Verdict)
			assert.Contains(t, r.Message, "permission denied")
			assert.Contains(t, r.Status(), "Error: ")
			continue
		}
		assert.Equal(t, types.VerdictClean, r.Verdict)
	}
}

func TestScan_StopAfterTwelveFiles(t *testing.T) {
	dir := t.TempDir()
	paths := makeTree(t, dir, 30, -1)

	var e *Engine
	e = New(testSigs(t), Config{AfterFile: func(processed, _ int) {
		if processed == 12 {
			e.Stop()
		}
	}})
	events, err := e.Start(context.Background(), dir)
	require.NoError(t, err)
	c := drain(t, events)

	require.Len(t, c.batches, 2)
	assert.Len(t, c.batches[0], 10)
	assert.Len(t, c.batches[1], 2)
	require.Len(t, c.completed, 1)
	final := c.completed[0].Results
	require.Len(t, final, 12)
	assert.Equal(t, paths[:12], resultPaths(final))
	assert.True(t, c.completed[0].Stats.Cancelled)
	assert.Equal(t, 30, c.completed[0].Stats.Total)

	assertNonDecreasing(t, c.progress)
	assert.Equal(t, 100, c.progress[len(c.progress)-1])
}

func TestScan_ContextCancellation(t *testing.T) {
	dir := t.TempDir()
	makeTree(t, dir, 20, -1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var e *Engine
	e = New(testSigs(t), Config{AfterFile: func(processed, _ int) {
		if processed != 3 {
			return
		}
		cancel()
		e.mu.Lock()
		cur := e.current
		e.mu.Unlock()
		deadline := time.Now().Add(5 * time.Second)
		for !cur.stop.Load() && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
	}})
	results, stats, err := e.Scan(ctx, dir)
	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.True(t, stats.Cancelled)
}

func TestStart_RejectsConcurrentScan(t *testing.T) {
	dir := t.TempDir()
	makeTree(t, dir, 4, -1)
	release := make(chan struct{})
	entered := make(chan struct{})

	e := New(testSigs(t), Config{AfterFile: func(processed, _ int) {
		if processed == 1 {
			close(entered)
			<-release
		}
	}})
	events, err := e.Start(context.Background(), dir)
	require.NoError(t, err)
	<-entered

	assert.True(t, e.Running())
	_, err = e.Start(context.Background(), dir)
	assert.True(t, errors.Is(err, ErrScanInProgress))

	close(release)
	c := drain(t, events)
	require.Len(t, c.completed, 1)
	assert.Len(t, c.completed[0].Results, 4)

	// Completed releases the engine for the next scan.
	assert.False(t, e.Running())
	results, _, err := e.Scan(context.Background(), dir)
	require.NoError(t, err)
	assert.Len(t, results, 4)
}

func TestStop_NoOpOutsideScan(t *testing.T) {
	dir := t.TempDir()
	makeTree(t, dir, 3, -1)
	e := New(testSigs(t), Config{})

	e.Stop()
	results, stats, err := e.Scan(context.Background(), dir)
	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.False(t, stats.Cancelled)

	e.Stop()
	results, _, err = e.Scan(context.Background(), dir)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestScan_WorkerDoesNotWaitForConsumer(t *testing.T) {
	dir := t.TempDir()
	makeTree(t, dir, 40, -1)
	finished := make(chan struct{})

	e := New(testSigs(t), Config{AfterFile: func(processed, total int) {
		if processed == total {
			close(finished)
		}
	}})
	events, err := e.Start(context.Background(), dir)
	require.NoError(t, err)

	select {
	case <-finished:
	case <-time.After(10 * time.Second):
		t.Fatal("worker blocked on an idle consumer")
	}
	c := drain(t, events)
	require.Len(t, c.completed, 1)
	assert.Len(t, c.completed[0].Results, 40)
	assert.Len(t, c.batches, 4)
}

func TestScan_IncludeExcludeGlobs(t *testing.T) {
	dir := t.TempDir()
	for _, rel := range []string{"keep.exe", "skip.txt", "node_modules/dep.exe", "sub/deep/also.exe"} {
		p := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(rel), 0644))
	}
	cfg := Config{IncludeGlobs: "**/*.exe", ExcludeGlobs: "node_modules"}

	n, err := CountTargets(dir, cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	results, _, err := New(testSigs(t), cfg).Scan(context.Background(), dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "keep.exe"),
		filepath.Join(dir, "sub", "deep", "also.exe"),
	}, resultPaths(results))
}

func TestWalk_HonorsIgnoreFile(t *testing.T) {
	dir := t.TempDir()
	for _, rel := range []string{"a.exe", "cache/blob.bin", "images/disk.iso", "images/keep.iso"} {
		p := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(rel), 0644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".foxterignore"), []byte("cache/\n*.iso\n!keep.iso\n"), 0644))

	var got []string
	require.NoError(t, Walk(dir, Config{}, nil, func(p string) { got = append(got, p) }))
	assert.Equal(t, []string{
		filepath.Join(dir, ".foxterignore"),
		filepath.Join(dir, "a.exe"),
		filepath.Join(dir, "images", "keep.iso"),
	}, got)
}

func TestScan_SymlinkedRoot(t *testing.T) {
	base := t.TempDir()
	real := filepath.Join(base, "real")
	makeTree(t, real, 3, 1)
	link := filepath.Join(base, "link")
	if err := os.Symlink(real, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	n, err := CountTargets(link, Config{})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	results, stats, err := New(testSigs(t), Config{}).Scan(context.Background(), link)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Suspicious)
	for _, p := range resultPaths(results) {
		assert.True(t, strings.HasPrefix(p, link+string(filepath.Separator)), p)
	}
	assert.Contains(t, resultPaths(results), filepath.Join(link, "b", "f01.txt"))
}

func TestCountTargets_MissingRoot(t *testing.T) {
	n, err := CountTargets(filepath.Join(t.TempDir(), "missing"), Config{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestHashFile_Deterministic(t *testing.T) {
	p := filepath.Join(t.TempDir(), "sample.bin")
	require.NoError(t, os.WriteFile(p, []byte(malicious), 0644))

	first, err := HashFile(p)
	require.NoError(t, err)
	second, err := HashFile(p)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, sum(malicious), first)

	_, err = HashFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestPercent(t *testing.T) {
	tests := []struct {
		processed, total, want int
	}{
		{0, 0, 0},
		{0, 3, 0},
		{1, 3, 33},
		{2, 3, 66},
		{3, 3, 100},
		{12, 25, 48},
		{5, 4, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, percent(tt.processed, tt.total), "percent(%d, %d)", tt.processed, tt.total)
	}
}
