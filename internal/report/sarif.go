package report

import (
	"encoding/json"
	"io"

	"github.com/foxter/foxter/internal/types"
)

type sarif struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool       sarifTool      `json:"tool"`
	Results    []sarifResult  `json:"results"`
	Properties map[string]any `json:"properties,omitempty"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string       `json:"id"`
	ShortDescription sarifMessage `json:"shortDescription"`
}

type sarifResult struct {
	RuleID    string         `json:"ruleId"`
	RuleIndex int            `json:"ruleIndex"`
	Level     string         `json:"level"`
	Message   sarifMessage   `json:"message"`
	Locations []sarifLoc     `json:"locations"`
	Props     map[string]any `json:"properties,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLoc struct {
	PhysicalLocation sarifPhys `json:"physicalLocation"`
}

type sarifPhys struct {
	ArtifactLocation sarifArt `json:"artifactLocation"`
}

type sarifArt struct {
	URI string `json:"uri"`
}

const (
	ruleMalware   = "known-malware"
	ruleScanError = "scan-error"
)

var sarifRules = []sarifRule{
	{ID: ruleMalware, ShortDescription: sarifMessage{Text: "File matches a known malware signature"}},
	{ID: ruleScanError, ShortDescription: sarifMessage{Text: "File could not be scanned"}},
}

// WriteSARIF writes the suspicious and errored results as SARIF 2.1.0.
// Clean files are omitted. stats, when non-nil, is attached as run properties.
func WriteSARIF(w io.Writer, version string, results []types.ScanResult, stats *types.ScanStats) error {
	run := sarifRun{
		Tool:    sarifTool{Driver: sarifDriver{Name: "foxter", Version: version, Rules: sarifRules}},
		Results: []sarifResult{},
	}
	for _, r := range results {
		var res sarifResult
		switch r.Verdict {
		case types.VerdictSuspicious:
			res = sarifResult{
				RuleID:    ruleMalware,
				RuleIndex: 0,
				Level:     "error",
				Message:   sarifMessage{Text: "SHA-256 matches a known malware signature"},
				Props:     map[string]any{"sha256": r.SHA256},
			}
		case types.VerdictError:
			res = sarifResult{
				RuleID:    ruleScanError,
				RuleIndex: 1,
				Level:     "note",
				Message:   sarifMessage{Text: r.Status()},
			}
		default:
			continue
		}
		res.Locations = []sarifLoc{{PhysicalLocation: sarifPhys{ArtifactLocation: sarifArt{URI: r.Path}}}}
		run.Results = append(run.Results, res)
	}
	if stats != nil {
		run.Properties = map[string]any{
			"scanId":    stats.ScanID,
			"root":      stats.Root,
			"total":     stats.Total,
			"processed": stats.Processed,
			"cancelled": stats.Cancelled,
		}
	}
	doc := sarif{
		Schema:  "https://json.schemastore.org/sarif-2.1.0.json",
		Version: "2.1.0",
		Runs:    []sarifRun{run},
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
