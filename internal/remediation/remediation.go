// Package remediation acts on scan results: it moves files into a
// quarantine vault where their content is neutralized, restores them on
// request, and deletes files outright.
package remediation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/foxter/foxter/internal/logging"
)

// Actions recorded against scan results.
const (
	ActionQuarantined = "Quarantined"
	ActionDeleted     = "Deleted"
	ActionRestored    = "Restored"
)

const (
	manifestFile = "manifest.json"
	storedSuffix = ".quarantine"
	xorKey       = byte(0xAA)
)

var (
	// ErrNotFound is returned for an unknown quarantine ID.
	ErrNotFound = errors.New("quarantine entry not found")
	// ErrExists is returned when a restore would overwrite an existing file.
	ErrExists = errors.New("restore target already exists")
	// ErrNotRegular is returned for directories, links and devices.
	ErrNotRegular = errors.New("not a regular file")
)

// Entry describes one quarantined file.
type Entry struct {
	ID            string      `json:"id"`
	OriginalPath  string      `json:"original_path"`
	StoredName    string      `json:"stored_name"`
	Size          int64       `json:"size"`
	Mode          fs.FileMode `json:"mode"`
	QuarantinedAt time.Time   `json:"quarantined_at"`
}

// Vault is a quarantine directory with a JSON manifest. A Vault is safe
// for concurrent use within one process.
type Vault struct {
	Dir    string
	Logger *slog.Logger

	now func() time.Time
	mu  sync.Mutex
}

// NewVault returns a Vault rooted at dir; the directory is created lazily.
func NewVault(dir string, log *slog.Logger) *Vault {
	if log == nil {
		log = logging.Discard()
	}
	return &Vault{Dir: dir, Logger: log, now: time.Now}
}

func entryID(path string, at time.Time) string {
	h := xxhash.New()
	_, _ = h.WriteString(path)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(strconv.FormatInt(at.UnixNano(), 10))
	return fmt.Sprintf("%016x", h.Sum64())
}

// Quarantine moves path into the vault. The stored copy is XOR-encoded so
// it can no longer be executed or matched by other tools, and the original
// is removed only after the copy is durable.
func (v *Vault) Quarantine(path string) (Entry, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Entry{}, err
	}
	fi, err := os.Lstat(abs)
	if err != nil {
		return Entry{}, fmt.Errorf("quarantine: %w", err)
	}
	if !fi.Mode().IsRegular() {
		return Entry{}, fmt.Errorf("quarantine %s: %w", abs, ErrNotRegular)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if err := os.MkdirAll(v.Dir, 0700); err != nil {
		return Entry{}, fmt.Errorf("create quarantine dir: %w", err)
	}
	at := v.now().UTC()
	e := Entry{
		ID:            entryID(abs, at),
		OriginalPath:  abs,
		Size:          fi.Size(),
		Mode:          fi.Mode().Perm(),
		QuarantinedAt: at,
	}
	e.StoredName = e.ID + storedSuffix
	stored := filepath.Join(v.Dir, e.StoredName)

	if err := xorCopy(abs, stored, 0600); err != nil {
		return Entry{}, fmt.Errorf("quarantine %s: %w", abs, err)
	}
	entries, err := v.load()
	if err != nil {
		_ = os.Remove(stored)
		return Entry{}, err
	}
	entries = append(entries, e)
	if err := v.save(entries); err != nil {
		_ = os.Remove(stored)
		return Entry{}, err
	}
	if err := os.Remove(abs); err != nil {
		_ = v.save(entries[:len(entries)-1])
		_ = os.Remove(stored)
		return Entry{}, fmt.Errorf("remove original %s: %w", abs, err)
	}
	v.Logger.Info("file quarantined", "path", abs, "id", e.ID)
	return e, nil
}

// List returns the vault's entries, oldest first.
func (v *Vault) List() ([]Entry, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.load()
}

// Restore decodes entry id back to dest, or to its original path when dest
// is empty, and drops it from the vault. Existing files are never overwritten.
func (v *Vault) Restore(id, dest string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	entries, err := v.load()
	if err != nil {
		return "", err
	}
	i := slices.IndexFunc(entries, func(e Entry) bool { return e.ID == id })
	if i < 0 {
		return "", fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	e := entries[i]
	if dest == "" {
		dest = e.OriginalPath
	}
	if _, err := os.Lstat(dest); err == nil {
		return "", fmt.Errorf("%s: %w", dest, ErrExists)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", fmt.Errorf("restore %s: %w", id, err)
	}
	mode := e.Mode
	if mode == 0 {
		mode = 0600
	}
	stored := filepath.Join(v.Dir, e.StoredName)
	if err := xorCopy(stored, dest, mode); err != nil {
		return "", fmt.Errorf("restore %s: %w", id, err)
	}
	if err := v.save(slices.Delete(entries, i, i+1)); err != nil {
		return "", err
	}
	_ = os.Remove(stored)
	v.Logger.Info("file restored", "id", id, "path", dest)
	return dest, nil
}

// Purge permanently removes entry id from the vault.
func (v *Vault) Purge(id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	entries, err := v.load()
	if err != nil {
		return err
	}
	i := slices.IndexFunc(entries, func(e Entry) bool { return e.ID == id })
	if i < 0 {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	stored := filepath.Join(v.Dir, entries[i].StoredName)
	if err := os.Remove(stored); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("purge %s: %w", id, err)
	}
	return v.save(slices.Delete(entries, i, i+1))
}

// Delete removes a regular file permanently.
func Delete(path string, log *slog.Logger) error {
	fi, err := os.Lstat(path)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("delete %s: %w", path, ErrNotRegular)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if log != nil {
		log.Info("file deleted", "path", path)
	}
	return nil
}

func (v *Vault) load() ([]Entry, error) {
	b, err := os.ReadFile(filepath.Join(v.Dir, manifestFile))
	if errors.Is(err, os.ErrNotExist) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read quarantine manifest: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("decode quarantine manifest: %w", err)
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

// save replaces the manifest atomically.
func (v *Vault) save(entries []Entry) error {
	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(v.Dir, manifestFile+".*")
	if err != nil {
		return fmt.Errorf("write quarantine manifest: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write quarantine manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write quarantine manifest: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(v.Dir, manifestFile)); err != nil {
		return fmt.Errorf("write quarantine manifest: %w", err)
	}
	return nil
}

// xorCopy streams src into a new file dst, flipping every byte with xorKey.
// Applying it twice yields the original content. dst must not exist; a
// partial dst is removed on failure, while a pre-existing one is left alone.
func xorCopy(src, dst string, mode fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	if err := writeXOR(out, in); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return err
	}
	return nil
}

func writeXOR(out *os.File, in io.Reader) error {
	buf := make([]byte, 32*1024)
	for {
		n, rerr := in.Read(buf)
		if n > 0 {
			for i := range buf[:n] {
				buf[i] ^= xorKey
			}
			if _, err := out.Write(buf[:n]); err != nil {
				return err
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return rerr
		}
	}
	return out.Sync()
}
