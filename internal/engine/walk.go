package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/foxter/foxter/internal/ignore"
)

// errNotDir marks a scan root that exists but is not a directory.
var errNotDir = errors.New("not a directory")

// Walk traverses root and invokes handle with the absolute path of every
// regular file allowed by cfg and the root's .foxterignore, in lexical order. Unreadable directories are
// logged and skipped; they never abort the walk. A symlinked root is
// followed and its files are reported under root as given. Symlinks below
// the root, devices, sockets and named pipes are not scanned.
func Walk(root string, cfg Config, log *slog.Logger, handle func(path string)) error {
	st, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !st.IsDir() {
		return fmt.Errorf("%s: %w", root, errNotDir)
	}
	resolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		return err
	}
	ign, _ := ignore.Load(filepath.Join(resolved, ignore.FileName))
	return filepath.WalkDir(resolved, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if log != nil {
				log.Warn("skipping unreadable path", "path", p, "error", err)
			}
			if d != nil && d.IsDir() && p != resolved {
				return filepath.SkipDir
			}
			return nil
		}
		rel, _ := filepath.Rel(resolved, p)
		if d.IsDir() {
			if excludedDir(rel, cfg) || (rel != "." && ign.MatchDir(rel)) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if !allowedByGlobs(rel, cfg) || ign.Match(rel) {
			return nil
		}
		handle(filepath.Join(root, rel))
		return nil
	})
}

// CountTargets returns the number of files a scan of root would process.
// A missing or non-directory root counts as zero.
func CountTargets(root string, cfg Config) (int, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return 0, err
	}
	n := 0
	err = Walk(abs, cfg, nil, func(string) { n++ })
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, errNotDir) {
		return 0, nil
	}
	return n, err
}

// collectTargets enumerates every scan target once. The returned order is the
// processing order, which keeps processed <= total for the whole scan even if
// the tree changes underneath it.
func collectTargets(root string, cfg Config, log *slog.Logger) ([]string, error) {
	var targets []string
	err := Walk(root, cfg, log, func(p string) {
		targets = append(targets, p)
	})
	return targets, err
}
