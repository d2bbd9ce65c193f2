// Package cache persists the most recent completed scan so reports and the
// scan monitor can reopen it without rescanning.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/foxter/foxter/internal/types"
)

const resultsFile = "last_scan.json"

// ScanResults stores the results and metadata from a scan, plus the
// remediation action taken per path since ("Quarantined", "Deleted").
type ScanResults struct {
	ScanID    string             `json:"scan_id"`
	Timestamp time.Time          `json:"timestamp"`
	Root      string             `json:"root"`
	Count     int                `json:"count"`
	Cancelled bool               `json:"cancelled,omitempty"`
	Results   []types.ScanResult `json:"results"`
	Actions   map[string]string  `json:"actions,omitempty"`
}

func resultsPath(dir string) string {
	return filepath.Join(dir, resultsFile)
}

// SaveResults stores the results of a completed scan in dir, replacing the
// previous one.
func SaveResults(dir string, stats types.ScanStats, results []types.ScanResult) error {
	rec := ScanResults{
		ScanID:    stats.ScanID,
		Timestamp: time.Now(),
		Root:      stats.Root,
		Count:     len(results),
		Cancelled: stats.Cancelled,
		Results:   results,
	}
	return write(dir, rec)
}

// LoadResults loads the last scan results from dir.
func LoadResults(dir string) (ScanResults, error) {
	var rec ScanResults
	b, err := os.ReadFile(resultsPath(dir))
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(b, &rec); err != nil {
		return rec, fmt.Errorf("decode last scan: %w", err)
	}
	return rec, nil
}

// MarkAction records a remediation action against path in the last scan.
// It fails if path is not part of that scan.
func MarkAction(dir, path, action string) error {
	rec, err := LoadResults(dir)
	if err != nil {
		return err
	}
	found := false
	for _, r := range rec.Results {
		if r.Path == path {
			found = true
			break
		}
	}
	if !found {
		return errors.New("path not in last scan")
	}
	if rec.Actions == nil {
		rec.Actions = map[string]string{}
	}
	rec.Actions[path] = action
	return write(dir, rec)
}

func write(dir string, rec ScanResults) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(resultsPath(dir), b, 0600)
}
