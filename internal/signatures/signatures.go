// Package signatures holds the immutable set of known-malicious content
// digests consulted by the scan engine.
package signatures

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
)

// DigestLen is the length of a hex-encoded SHA-256 digest.
const DigestLen = 64

//go:embed default.txt
var defaultList string

// Set is a read-only set of lowercase hex SHA-256 digests. It is never
// mutated after construction, so it is safe to share between scans.
type Set struct {
	digests map[string]struct{}
}

// New builds a Set from digests. Entries are lowercased; invalid entries
// are rejected.
func New(digests ...string) (*Set, error) {
	s := &Set{digests: make(map[string]struct{}, len(digests))}
	for _, d := range digests {
		d = strings.ToLower(strings.TrimSpace(d))
		if !validDigest(d) {
			return nil, fmt.Errorf("invalid sha256 digest %q", d)
		}
		s.digests[d] = struct{}{}
	}
	return s, nil
}

// Load returns the embedded default signature set merged with the digests
// found in each of the given files.
func Load(files ...string) (*Set, error) {
	s := &Set{digests: map[string]struct{}{}}
	if err := s.parse("default", strings.NewReader(defaultList)); err != nil {
		return nil, err
	}
	for _, p := range files {
		f, err := os.Open(p)
		if err != nil {
			return nil, fmt.Errorf("open signatures: %w", err)
		}
		err = s.parse(p, f)
		_ = f.Close()
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

// parse reads sha256sum-style lines: a digest optionally followed by
// whitespace and a name. Blank lines and '#' comments are skipped.
func (s *Set) parse(name string, r io.Reader) error {
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		d := strings.ToLower(strings.Fields(text)[0])
		if !validDigest(d) {
			return fmt.Errorf("%s:%d: invalid sha256 digest %q", name, line, d)
		}
		s.digests[d] = struct{}{}
	}
	return sc.Err()
}

// Contains reports whether digest is a known-malicious content hash.
func (s *Set) Contains(digest string) bool {
	if s == nil {
		return false
	}
	_, ok := s.digests[strings.ToLower(digest)]
	return ok
}

// Len returns the number of digests in the set.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.digests)
}

func validDigest(d string) bool {
	if len(d) != DigestLen {
		return false
	}
	for i := 0; i < len(d); i++ {
		c := d[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
