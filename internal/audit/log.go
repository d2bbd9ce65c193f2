// Package audit keeps an append-only JSONL history of completed scans.
package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/foxter/foxter/internal/types"
	"github.com/google/uuid"
)

const logFile = "audit.jsonl"

type ScanRecord struct {
	Timestamp     time.Time `json:"timestamp"`
	ScanID        string    `json:"scan_id"`
	Root          string    `json:"root"`
	TotalFiles    int       `json:"total_files"`
	FilesScanned  int       `json:"files_scanned"`
	Suspicious    int       `json:"suspicious"`
	Errors        int       `json:"errors"`
	Cancelled     bool      `json:"cancelled,omitempty"`
	Duration      string    `json:"duration"`
	TopSuspicious []string  `json:"top_suspicious,omitempty"`
}

type AuditLog struct {
	logPath string
}

// NewAuditLog returns the audit log kept in dir.
func NewAuditLog(dir string) *AuditLog {
	return &AuditLog{logPath: filepath.Join(dir, logFile)}
}

// Path returns the location of the JSONL file.
func (a *AuditLog) Path() string { return a.logPath }

// LoadHistory returns all records, newest first. Malformed lines are skipped.
func (a *AuditLog) LoadHistory() ([]ScanRecord, error) {
	_, entries, err := a.read()
	if err != nil {
		return nil, err
	}
	records := make([]ScanRecord, len(entries))
	for i, e := range entries {
		records[len(entries)-1-i] = e.record
	}
	return records, nil
}

type entry struct {
	line   int
	record ScanRecord
}

// read returns the raw lines of the log and the records decoded from them,
// oldest first.
func (a *AuditLog) read() ([][]byte, []entry, error) {
	data, err := os.ReadFile(a.logPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	lines := bytes.Split(data, []byte("\n"))
	var entries []entry
	for i, line := range lines {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var record ScanRecord
		if err := json.Unmarshal(line, &record); err != nil {
			continue
		}
		entries = append(entries, entry{line: i, record: record})
	}
	return lines, entries, nil
}

func (a *AuditLog) LogScan(record ScanRecord) error {
	if record.ScanID == "" {
		record.ScanID = uuid.NewString()
	}
	if err := os.MkdirAll(filepath.Dir(a.logPath), 0700); err != nil {
		return fmt.Errorf("failed to create audit dir: %w", err)
	}

	// Owner-only: records carry paths of suspicious files.
	f, err := os.OpenFile(a.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(record); err != nil {
		return fmt.Errorf("failed to write audit record: %w", err)
	}
	return nil
}

// DeleteRecord removes the record at index in LoadHistory order. Malformed
// lines are kept as they are.
func (a *AuditLog) DeleteRecord(index int) error {
	lines, entries, err := a.read()
	if err != nil {
		return err
	}

	if index < 0 || index >= len(entries) {
		return fmt.Errorf("invalid index: %d", index)
	}
	drop := entries[len(entries)-1-index].line

	var buf bytes.Buffer
	for i, line := range lines {
		if i == drop || len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	if err := os.WriteFile(a.logPath, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func CreateScanRecord(stats types.ScanStats, results []types.ScanResult) ScanRecord {
	top := make([]string, 0, 10)
	for _, r := range results {
		if len(top) >= 10 {
			break
		}
		if r.Verdict == types.VerdictSuspicious {
			top = append(top, r.Path)
		}
	}

	return ScanRecord{
		Timestamp:     time.Now(),
		ScanID:        stats.ScanID,
		Root:          stats.Root,
		TotalFiles:    stats.Total,
		FilesScanned:  stats.Processed,
		Suspicious:    stats.Suspicious,
		Errors:        stats.Errors,
		Cancelled:     stats.Cancelled,
		Duration:      stats.Duration.String(),
		TopSuspicious: top,
	}
}
