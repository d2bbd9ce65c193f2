// Package firewall checks and changes the host firewall through the native
// tool of each platform: ufw on Linux, netsh on Windows and pfctl on macOS.
package firewall

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/foxter/foxter/internal/sysexec"
)

var (
	// ErrUnsupported is returned for platforms without a backend.
	ErrUnsupported = errors.New("firewall management not supported on this OS")
	// ErrMissingTool is returned when the platform tool is not installed.
	ErrMissingTool = errors.New("firewall tool not installed")
)

// Threat is a firewall finding shown to the operator.
type Threat struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

var (
	threatInactive = Threat{Name: "No firewall active", Description: "System unprotected"}
	threatSMB      = Threat{Name: "Port 445 open", Description: "SMB - Common attack vector"}
)

// Status is the result of a firewall check.
type Status struct {
	Active  bool     `json:"active"`
	Threats []Threat `json:"threats"`
}

// Backend is the per-platform firewall capability.
type Backend interface {
	Name() string
	CheckStatus(ctx context.Context) (Status, error)
	Enable(ctx context.Context) error
	ClosePort(ctx context.Context, port int) error
}

// New selects the backend for goos. stateDir holds the pf anchor rules file
// on macOS and is unused elsewhere.
func New(goos string, r sysexec.Runner, stateDir string) (Backend, error) {
	switch goos {
	case "linux":
		return &ufw{r: r}, nil
	case "windows":
		return &netsh{r: r}, nil
	case "darwin":
		return &pf{r: r, rulesPath: filepath.Join(stateDir, "pf.rules")}, nil
	default:
		return nil, fmt.Errorf("%s: %w", goos, ErrUnsupported)
	}
}

// Unprotected is the status reported when no firewall can be queried.
func Unprotected() Status {
	return evaluate(false, "")
}

func evaluate(active bool, output string) Status {
	st := Status{Active: active, Threats: []Threat{}}
	if !active {
		st.Threats = append(st.Threats, threatInactive)
	}
	if strings.Contains(output, "445") {
		st.Threats = append(st.Threats, threatSMB)
	}
	return st
}

func validPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("invalid port %d", port)
	}
	return nil
}

type ufw struct{ r sysexec.Runner }

func (u *ufw) Name() string { return "ufw" }

func (u *ufw) ensure() error {
	if _, err := u.r.LookPath("ufw"); err != nil {
		return fmt.Errorf("%w: install it with 'sudo apt-get install ufw'", ErrMissingTool)
	}
	return nil
}

func (u *ufw) CheckStatus(ctx context.Context) (Status, error) {
	if err := u.ensure(); err != nil {
		return Status{}, err
	}
	out, err := u.r.Run(ctx, "ufw", "status")
	if err != nil {
		return Status{}, fmt.Errorf("check firewall status: %w", err)
	}
	s := string(out)
	return evaluate(strings.Contains(s, "Status: active"), s), nil
}

func (u *ufw) Enable(ctx context.Context) error {
	if err := u.ensure(); err != nil {
		return err
	}
	if _, err := u.r.Run(ctx, "ufw", "--force", "enable"); err != nil {
		return fmt.Errorf("enable firewall (run with sudo): %w", err)
	}
	return nil
}

func (u *ufw) ClosePort(ctx context.Context, port int) error {
	if err := validPort(port); err != nil {
		return err
	}
	if err := u.ensure(); err != nil {
		return err
	}
	if _, err := u.r.Run(ctx, "ufw", "deny", strconv.Itoa(port)); err != nil {
		return fmt.Errorf("close port %d (run with sudo): %w", port, err)
	}
	return nil
}

var netshStateOn = regexp.MustCompile(`(?i)\b(state|estado)\s+on\b`)

type netsh struct{ r sysexec.Runner }

func (n *netsh) Name() string { return "netsh" }

func (n *netsh) CheckStatus(ctx context.Context) (Status, error) {
	out, err := n.r.Run(ctx, "netsh", "advfirewall", "show", "allprofiles")
	if err != nil {
		return Status{}, fmt.Errorf("check firewall status: %w", err)
	}
	s := string(out)
	return evaluate(netshStateOn.MatchString(s), s), nil
}

func (n *netsh) Enable(ctx context.Context) error {
	if _, err := n.r.Run(ctx, "netsh", "advfirewall", "set", "allprofiles", "state", "on"); err != nil {
		return fmt.Errorf("enable firewall (run as administrator): %w", err)
	}
	return nil
}

func (n *netsh) ClosePort(ctx context.Context, port int) error {
	if err := validPort(port); err != nil {
		return err
	}
	p := strconv.Itoa(port)
	_, err := n.r.Run(ctx, "netsh", "advfirewall", "firewall", "add", "rule",
		"name=Block_"+p, "dir=in", "action=block", "protocol=TCP", "localport="+p)
	if err != nil {
		return fmt.Errorf("close port %d (run as administrator): %w", port, err)
	}
	return nil
}

const pfAnchor = "foxter"

type pf struct {
	r         sysexec.Runner
	rulesPath string
}

func (p *pf) Name() string { return "pfctl" }

func (p *pf) CheckStatus(ctx context.Context) (Status, error) {
	out, err := p.r.Run(ctx, "pfctl", "-s", "info")
	if err != nil {
		return Status{}, fmt.Errorf("check firewall status (run with sudo): %w", err)
	}
	s := string(out)
	return evaluate(strings.Contains(strings.ToLower(s), "status: enabled"), s), nil
}

func (p *pf) Enable(ctx context.Context) error {
	if _, err := p.r.Run(ctx, "pfctl", "-E"); err != nil {
		return fmt.Errorf("enable firewall (run with sudo): %w", err)
	}
	return nil
}

// ClosePort appends a block rule for port to foxter's own pf anchor and
// reloads that anchor, leaving the system ruleset untouched.
func (p *pf) ClosePort(ctx context.Context, port int) error {
	if err := validPort(port); err != nil {
		return err
	}
	rule := fmt.Sprintf("block drop in quick proto tcp from any to any port %d\n", port)
	if err := appendRule(p.rulesPath, rule); err != nil {
		return fmt.Errorf("close port %d: %w", port, err)
	}
	if _, err := p.r.Run(ctx, "pfctl", "-a", pfAnchor, "-f", p.rulesPath); err != nil {
		return fmt.Errorf("close port %d (run with sudo): %w", port, err)
	}
	return nil
}

func appendRule(path, rule string) error {
	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if strings.Contains(string(existing), rule) {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(rule)
	return err
}
