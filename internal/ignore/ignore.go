// Package ignore reads .foxterignore files: gitignore-style patterns naming
// files and directories a scan should skip.
package ignore

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	doublestar "github.com/bmatcuk/doublestar/v4"
)

// FileName is the ignore file looked up in the scan root.
const FileName = ".foxterignore"

type pattern struct {
	glob     string
	dirOnly  bool
	anchored bool
	negate   bool
}

// Matcher holds parsed patterns. The zero value matches nothing.
type Matcher struct {
	patterns []pattern
}

// Load parses the ignore file at path. A missing or unreadable file yields
// an empty Matcher alongside the error, so callers may ignore the error.
func Load(path string) (Matcher, error) {
	f, err := os.Open(path)
	if err != nil {
		return Matcher{}, err
	}
	defer f.Close()
	var m Matcher
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		m.add(sc.Text())
	}
	return m, sc.Err()
}

// Parse builds a Matcher from pattern lines.
func Parse(lines ...string) Matcher {
	var m Matcher
	for _, l := range lines {
		m.add(l)
	}
	return m
}

func (m *Matcher) add(line string) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}
	var p pattern
	if strings.HasPrefix(line, "!") {
		p.negate = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		p.dirOnly = true
		line = strings.TrimRight(line, "/")
	}
	if strings.HasPrefix(line, "/") {
		p.anchored = true
		line = strings.TrimLeft(line, "/")
	}
	if strings.Contains(line, "/") {
		p.anchored = true
	}
	if line == "" {
		return
	}
	p.glob = line
	m.patterns = append(m.patterns, p)
}

// Match reports whether the file at rel (relative to the scan root) is ignored.
func (m Matcher) Match(rel string) bool {
	return m.match(rel, false)
}

// MatchDir reports whether the directory at rel is ignored, so its whole
// subtree can be skipped.
func (m Matcher) MatchDir(rel string) bool {
	return m.match(rel, true)
}

// match applies patterns in order; the last matching pattern decides, so a
// later !pattern re-includes an earlier match.
func (m Matcher) match(rel string, isDir bool) bool {
	if len(m.patterns) == 0 {
		return false
	}
	parts := strings.Split(filepath.ToSlash(filepath.Clean(rel)), "/")
	ignored := false
	for _, p := range m.patterns {
		if p.matches(parts, isDir) {
			ignored = !p.negate
		}
	}
	return ignored
}

// matches checks the pattern against every leading sub-path of parts: a
// pattern naming a directory ignores everything beneath it.
func (p pattern) matches(parts []string, isDir bool) bool {
	for i := range parts {
		last := i == len(parts)-1
		if p.dirOnly && last && !isDir {
			return false
		}
		var ok bool
		if p.anchored {
			ok, _ = doublestar.Match(p.glob, strings.Join(parts[:i+1], "/"))
		} else {
			ok, _ = doublestar.Match(p.glob, parts[i])
		}
		if ok {
			return true
		}
	}
	return false
}

// Append adds pattern to the .foxterignore in root, creating the file if
// needed. A pattern already present is not written again.
func Append(root, pattern string) error {
	pattern = strings.TrimSpace(pattern)
	path := filepath.Join(root, FileName)
	existing := map[string]bool{}
	endsWithNewline := true
	if b, err := os.ReadFile(path); err == nil {
		for _, l := range strings.Split(string(b), "\n") {
			existing[strings.TrimSpace(l)] = true
		}
		endsWithNewline = len(b) == 0 || b[len(b)-1] == '\n'
	}
	if existing[pattern] {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	if !endsWithNewline {
		pattern = "\n" + pattern
	}
	_, err = f.WriteString(pattern + "\n")
	return err
}

// Patterns returns the raw pattern lines of the ignore file in root.
func Patterns(root string) ([]string, error) {
	f, err := os.Open(filepath.Join(root, FileName))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		l := strings.TrimSpace(sc.Text())
		if l != "" && !strings.HasPrefix(l, "#") {
			out = append(out, l)
		}
	}
	return out, sc.Err()
}
