// Package ports probes local TCP ports and labels the ones worth a second look.
package ports

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/foxter/foxter/internal/logging"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultHost    = "localhost"
	DefaultTimeout = 500 * time.Millisecond
	DefaultWorkers = 5
)

// DefaultPorts are probed when no list is configured.
var DefaultPorts = []int{80, 443, 8080}

var risky = map[int]string{
	3389: "RDP - High risk if public",
	22:   "SSH - Check key auth",
	445:  "SMB - Common attack vector",
	80:   "HTTP - Potential web server",
	443:  "HTTPS - Potential web server",
	8080: "HTTP-Alt - Common for proxies",
}

// Risk describes what an open port usually means.
func Risk(port int) string {
	if d, ok := risky[port]; ok {
		return d
	}
	return "Low risk"
}

// Result is the outcome of probing one port.
type Result struct {
	Port        int    `json:"port"`
	Open        bool   `json:"open"`
	Description string `json:"description"`
}

type dialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Checker probes ports on Host with at most Workers concurrent connects.
type Checker struct {
	Host    string
	Timeout time.Duration
	Workers int
	Logger  *slog.Logger

	dial dialFunc
}

// NewChecker returns a Checker with the default host, timeout and worker count.
func NewChecker() *Checker {
	return &Checker{Host: DefaultHost, Timeout: DefaultTimeout, Workers: DefaultWorkers}
}

// Check probes every port and returns results in input order with the
// number of open ports. A nil or empty list probes DefaultPorts. Probe
// failures mean closed; only context cancellation is returned as an error.
func (c *Checker) Check(ctx context.Context, ports []int) ([]Result, int, error) {
	if len(ports) == 0 {
		ports = DefaultPorts
	}
	for _, p := range ports {
		if p < 1 || p > 65535 {
			return nil, 0, fmt.Errorf("invalid port %d", p)
		}
	}
	host := c.Host
	if host == "" {
		host = DefaultHost
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	workers := c.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	log := c.Logger
	if log == nil {
		log = logging.Discard()
	}
	dial := c.dial
	if dial == nil {
		var d net.Dialer
		dial = d.DialContext
	}

	results := make([]Result, len(ports))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, port := range ports {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pctx, cancel := context.WithTimeout(gctx, timeout)
			defer cancel()
			addr := net.JoinHostPort(host, strconv.Itoa(port))
			conn, err := dial(pctx, "tcp", addr)
			open := err == nil
			if open {
				_ = conn.Close()
				log.Info("port open", "host", host, "port", port)
			} else {
				log.Debug("port closed", "host", host, "port", port, "error", err)
			}
			results[i] = Result{Port: port, Open: open, Description: Risk(port)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	open := 0
	for _, r := range results {
		if r.Open {
			open++
		}
	}
	return results, open, nil
}
