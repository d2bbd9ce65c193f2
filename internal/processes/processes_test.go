package processes

import (
	"context"
	"errors"
	"os/exec"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	a := NewAnalyzer()
	tests := []struct {
		name       string
		in         Info
		want       bool
		wantReason string
	}{
		{name: "clean", in: Info{Name: "bash", CPUPercent: 1, MemPercent: 1}},
		{name: "name match is case insensitive", in: Info{Name: "SuperKeyLogger.exe"}, want: true, wantReason: "name matches keylogger"},
		{name: "cpu over threshold", in: Info{Name: "miner", CPUPercent: 95}, want: true, wantReason: "cpu 95.0%"},
		{name: "cpu at threshold", in: Info{Name: "busy", CPUPercent: 80}},
		{name: "memory over threshold", in: Info{Name: "hog", MemPercent: 60.3}, want: true, wantReason: "memory 60.3%"},
		{name: "name wins over resources", in: Info{Name: "botnet", CPUPercent: 99}, want: true, wantReason: "name matches botnet"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := a.Classify(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestDetectSuspicious(t *testing.T) {
	a := NewAnalyzer()
	a.list = func(context.Context) ([]Info, error) {
		return []Info{
			{PID: 30, Name: "stealer", Username: "bob"},
			{PID: 10, Name: "kworker", Username: "", CPUPercent: 99},
			{PID: 20, Name: "editor", Username: "alice", MemPercent: 70},
			{PID: 5, Name: "sh", Username: "alice"},
		}, nil
	}
	got, err := a.DetectSuspicious(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int32(20), got[0].PID)
	assert.Equal(t, "memory 70.0%", got[0].Reason)
	assert.Equal(t, int32(30), got[1].PID)
}

func TestDetectSuspicious_ListError(t *testing.T) {
	a := NewAnalyzer()
	a.list = func(context.Context) ([]Info, error) { return nil, errors.New("boom") }
	_, err := a.DetectSuspicious(context.Background())
	assert.ErrorContains(t, err, "boom")
}

func TestDetectSuspicious_CustomNames(t *testing.T) {
	a := &Analyzer{Names: []string{"Miner"}, CPUThreshold: 100, MemoryThreshold: 100}
	a.list = func(context.Context) ([]Info, error) {
		return []Info{{PID: 1, Name: "xmrig-miner", Username: "root"}, {PID: 2, Name: "malware", Username: "root"}}, nil
	}
	got, err := a.DetectSuspicious(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "xmrig-miner", got[0].Name)
}

func TestTerminate_GracefulExit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sleep(1)")
	}
	cmd := exec.Command("sleep", "30")
	require.NoError(t, cmd.Start())
	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()

	forced, err := Terminate(context.Background(), int32(cmd.Process.Pid), 3*time.Second)
	require.NoError(t, err)
	assert.False(t, forced)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("process still running")
	}
}

func TestTerminate_NotFound(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a unix pid range")
	}
	_, err := Terminate(context.Background(), 1<<22+7, time.Second)
	assert.Error(t, err)
}
