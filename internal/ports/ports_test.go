package ports

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRisk(t *testing.T) {
	tests := []struct {
		port int
		want string
	}{
		{3389, "RDP - High risk if public"},
		{22, "SSH - Check key auth"},
		{445, "SMB - Common attack vector"},
		{80, "HTTP - Potential web server"},
		{443, "HTTPS - Potential web server"},
		{8080, "HTTP-Alt - Common for proxies"},
		{5432, "Low risk"},
	}
	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.port), func(t *testing.T) {
			assert.Equal(t, tt.want, Risk(tt.port))
		})
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestCheck_LocalListener(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	go func() {
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			_ = c.Close()
		}
	}()
	openPort := l.Addr().(*net.TCPAddr).Port
	closedPort := freePort(t)

	c := &Checker{Host: "127.0.0.1", Timeout: time.Second, Workers: 2}
	results, open, err := c.Check(context.Background(), []int{closedPort, openPort})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 1, open)
	assert.Equal(t, closedPort, results[0].Port)
	assert.False(t, results[0].Open)
	assert.Equal(t, openPort, results[1].Port)
	assert.True(t, results[1].Open)
	assert.Equal(t, "Low risk", results[1].Description)
}

func TestCheck_DefaultPortsAndOrder(t *testing.T) {
	var seen []string
	c := &Checker{Workers: 1}
	c.dial = func(_ context.Context, _, addr string) (net.Conn, error) {
		seen = append(seen, addr)
		return nil, errors.New("refused")
	}
	results, open, err := c.Check(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, open)
	assert.Equal(t, []string{"localhost:80", "localhost:443", "localhost:8080"}, seen)
	for i, p := range DefaultPorts {
		assert.Equal(t, p, results[i].Port)
		assert.Equal(t, Risk(p), results[i].Description)
	}
}

func TestCheck_WorkerLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	c := &Checker{Workers: 3}
	c.dial = func(_ context.Context, _, _ string) (net.Conn, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return nil, errors.New("refused")
	}
	ports := make([]int, 20)
	for i := range ports {
		ports[i] = 1000 + i
	}
	results, _, err := c.Check(context.Background(), ports)
	require.NoError(t, err)
	assert.Len(t, results, 20)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestCheck_InvalidPort(t *testing.T) {
	_, _, err := NewChecker().Check(context.Background(), []int{80, 0})
	assert.Error(t, err)
}

func TestCheck_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewChecker()
	c.dial = func(ctx context.Context, _, _ string) (net.Conn, error) {
		return nil, ctx.Err()
	}
	_, _, err := c.Check(ctx, []int{80})
	assert.ErrorIs(t, err, context.Canceled)
}
