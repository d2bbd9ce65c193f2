package audit

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/foxter/foxter/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogScan_HistoryNewestFirst(t *testing.T) {
	a := NewAuditLog(t.TempDir())
	for i := 0; i < 3; i++ {
		require.NoError(t, a.LogScan(ScanRecord{Root: fmt.Sprintf("/r%d", i)}))
	}
	records, err := a.LoadHistory()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "/r2", records[0].Root)
	assert.Equal(t, "/r0", records[2].Root)
	assert.NotEmpty(t, records[0].ScanID)

	st, err := os.Stat(a.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), st.Mode().Perm())
}

func TestDeleteRecord(t *testing.T) {
	a := NewAuditLog(t.TempDir())
	for i := 0; i < 3; i++ {
		require.NoError(t, a.LogScan(ScanRecord{Root: fmt.Sprintf("/r%d", i)}))
	}
	require.NoError(t, a.DeleteRecord(1))

	records, err := a.LoadHistory()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "/r2", records[0].Root)
	assert.Equal(t, "/r0", records[1].Root)

	assert.Error(t, a.DeleteRecord(5))
}

func TestLoadHistory_SkipsMalformedLine(t *testing.T) {
	dir := t.TempDir()
	a := NewAuditLog(dir)
	require.NoError(t, a.LogScan(ScanRecord{Root: "one"}))
	f, err := os.OpenFile(a.Path(), os.O_APPEND|os.O_WRONLY, 0600)
	require.NoError(t, err)
	_, err = f.WriteString("{not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, a.LogScan(ScanRecord{Root: "two"}))
	require.NoError(t, a.LogScan(ScanRecord{Root: "three"}))

	records, err := a.LoadHistory()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "three", records[0].Root)
	assert.Equal(t, "two", records[1].Root)
	assert.Equal(t, "one", records[2].Root)

	require.NoError(t, a.DeleteRecord(0))
	records, err = a.LoadHistory()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "two", records[0].Root)
	assert.Equal(t, "one", records[1].Root)

	data, err := os.ReadFile(a.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "{not json\n")
	assert.NotContains(t, string(data), `"three"`)
}

func TestLoadHistory_Missing(t *testing.T) {
	_, err := NewAuditLog(t.TempDir()).LoadHistory()
	assert.Error(t, err)
}

func TestCreateScanRecord(t *testing.T) {
	var results []types.ScanResult
	for i := 0; i < 12; i++ {
		results = append(results, types.ScanResult{Path: fmt.Sprintf("/s/%d", i), Verdict: types.VerdictSuspicious})
	}
	results = append(results, types.ScanResult{Path: "/c", Verdict: types.VerdictClean})
	stats := types.ScanStats{ScanID: "abc", Root: "/s", Total: 13, Processed: 13, Suspicious: 12, Duration: 2 * time.Second}

	rec := CreateScanRecord(stats, results)
	assert.Equal(t, "abc", rec.ScanID)
	assert.Equal(t, 13, rec.FilesScanned)
	assert.Equal(t, 12, rec.Suspicious)
	assert.Equal(t, "2s", rec.Duration)
	assert.Len(t, rec.TopSuspicious, 10)
	assert.Equal(t, "/s/0", rec.TopSuspicious[0])
}
