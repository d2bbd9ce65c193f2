// Package users lists local accounts, flags the ones created recently and
// removes accounts through the platform's user management tool.
package users

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/foxter/foxter/internal/logging"
	"github.com/foxter/foxter/internal/sysexec"
)

// RecentWindow is how new a home directory must be for its account to be flagged.
const RecentWindow = 24 * time.Hour

var (
	// ErrUnsupported is returned for platforms without user management.
	ErrUnsupported = errors.New("user management not supported on this OS")
	// ErrProtected is returned when asked to delete a system administrator account.
	ErrProtected = errors.New("refusing to delete protected account")
)

var validName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]{0,31}\$?$`)

var protected = []string{"root", "administrator"}

// Account is one local user.
type Account struct {
	Name   string `json:"name"`
	Home   string `json:"home,omitempty"`
	Recent bool   `json:"recent"`
}

// Manager enumerates and deletes local accounts on GOOS.
type Manager struct {
	GOOS   string
	Runner sysexec.Runner
	Logger *slog.Logger

	// PasswdPath is the account database read on Linux.
	PasswdPath string
	// HomeBase is the parent of per-user home directories.
	HomeBase string
	Now      func() time.Time

	ctime func(path string) (time.Time, error)
}

// NewManager returns a Manager for goos with the platform defaults.
func NewManager(goos string, r sysexec.Runner) *Manager {
	m := &Manager{GOOS: goos, Runner: r, PasswdPath: "/etc/passwd", Now: time.Now}
	switch goos {
	case "darwin":
		m.HomeBase = "/Users"
	case "windows":
		m.HomeBase = `C:\Users`
	default:
		m.HomeBase = "/home"
	}
	return m
}

func (m *Manager) logger() *slog.Logger {
	if m.Logger == nil {
		return logging.Discard()
	}
	return m.Logger
}

// List returns every local account in name order. An account is Recent when
// its home directory under HomeBase changed status within RecentWindow.
// Accounts whose home cannot be inspected are listed but never flagged.
func (m *Manager) List(ctx context.Context) ([]Account, error) {
	names, err := m.names(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	stamp := m.ctime
	if stamp == nil {
		stamp = changeTime
	}
	cutoff := now().Add(-RecentWindow)
	out := make([]Account, 0, len(names))
	for _, n := range names {
		a := Account{Name: n}
		home := filepath.Join(m.HomeBase, n)
		if ct, err := stamp(home); err == nil {
			a.Home = home
			if ct.After(cutoff) {
				a.Recent = true
				m.logger().Warn("recently created account", "user", n, "home", home, "created", ct)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			m.logger().Warn("inspect home directory", "user", n, "error", err)
		}
		out = append(out, a)
	}
	slices.SortFunc(out, func(x, y Account) int { return strings.Compare(x.Name, y.Name) })
	return out, nil
}

func (m *Manager) names(ctx context.Context) ([]string, error) {
	switch m.GOOS {
	case "linux":
		f, err := os.Open(m.PasswdPath)
		if err != nil {
			return nil, fmt.Errorf("read accounts: %w", err)
		}
		defer f.Close()
		return parsePasswd(f)
	case "darwin":
		out, err := m.Runner.Run(ctx, "dscl", ".", "-list", "/Users")
		if err != nil {
			return nil, fmt.Errorf("read accounts: %w", err)
		}
		var names []string
		for _, line := range strings.Split(string(out), "\n") {
			if n := strings.TrimSpace(line); n != "" {
				names = append(names, n)
			}
		}
		return names, nil
	case "windows":
		entries, err := os.ReadDir(m.HomeBase)
		if err != nil {
			return nil, fmt.Errorf("read accounts: %w", err)
		}
		var names []string
		for _, e := range entries {
			if e.IsDir() && !slices.Contains([]string{"Public", "Default", "Default User", "All Users"}, e.Name()) {
				names = append(names, e.Name())
			}
		}
		return names, nil
	default:
		return nil, fmt.Errorf("%s: %w", m.GOOS, ErrUnsupported)
	}
}

// parsePasswd extracts account names from passwd(5) formatted input.
func parsePasswd(r io.Reader) ([]string, error) {
	var names []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, _, ok := strings.Cut(line, ":")
		if !ok || name == "" || strings.HasPrefix(name, "+") || strings.HasPrefix(name, "-") {
			continue
		}
		names = append(names, name)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read accounts: %w", err)
	}
	return names, nil
}

// Delete removes the account and, where the tool supports it, its home directory.
func (m *Manager) Delete(ctx context.Context, name string) error {
	if !validName.MatchString(name) {
		return fmt.Errorf("invalid user name %q", name)
	}
	if slices.Contains(protected, strings.ToLower(name)) {
		return fmt.Errorf("%s: %w", name, ErrProtected)
	}
	var err error
	switch m.GOOS {
	case "linux":
		_, err = m.Runner.Run(ctx, "userdel", "-r", name)
	case "darwin":
		_, err = m.Runner.Run(ctx, "sysadminctl", "-deleteUser", name)
	case "windows":
		_, err = m.Runner.Run(ctx, "net", "user", name, "/delete")
	default:
		return fmt.Errorf("%s: %w", m.GOOS, ErrUnsupported)
	}
	if err != nil {
		return fmt.Errorf("delete user %s (requires administrator rights): %w", name, err)
	}
	m.logger().Info("user deleted", "user", name)
	return nil
}
