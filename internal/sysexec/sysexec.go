// Package sysexec runs the external OS tools foxter drives (ufw, netsh,
// pfctl, userdel, notify-send, ...) behind a small interface so callers can
// be tested without touching the host.
package sysexec

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// Runner executes a command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
	LookPath(name string) (string, error)
}

// Exec runs commands on the host.
type Exec struct{}

func (Exec) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return out, fmt.Errorf("%s: %w", name, err)
		}
		return out, fmt.Errorf("%s: %w (%s)", name, err, msg)
	}
	return out, nil
}

func (Exec) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Call is one recorded invocation.
type Call struct {
	Name string
	Args []string
}

func (c Call) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Fake records calls and answers them from canned outputs keyed by the full
// command line. Commands without an entry succeed with empty output.
type Fake struct {
	mu      sync.Mutex
	Calls   []Call
	Outputs map[string]string
	Errors  map[string]error
	// Missing lists tools LookPath reports as absent.
	Missing map[string]bool
}

func (f *Fake) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	c := Call{Name: name, Args: append([]string(nil), args...)}
	f.mu.Lock()
	f.Calls = append(f.Calls, c)
	f.mu.Unlock()
	key := c.String()
	return []byte(f.Outputs[key]), f.Errors[key]
}

func (f *Fake) LookPath(name string) (string, error) {
	if f.Missing[name] {
		return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
	}
	return "/usr/bin/" + name, nil
}

// Commands returns the recorded command lines in order.
func (f *Fake) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.Calls))
	for i, c := range f.Calls {
		out[i] = c.String()
	}
	return out
}
