// Package analysis runs the full pipeline for one report pair: table
// extraction, passive classification, anomaly rules and, when a Findeks
// report is present, OCR extraction and cross-source matching.
package analysis

import (
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/krm-analyzer/internal/domain/anomaly"
	"github.com/FACorreiaa/krm-analyzer/internal/domain/findeks"
	"github.com/FACorreiaa/krm-analyzer/internal/domain/krm"
	"github.com/FACorreiaa/krm-analyzer/internal/domain/matching"
)

// SecondaryStatus tells whether a Findeks report contributed records.
type SecondaryStatus = findeks.Status

// Job names the files of one analysis. Secondary is optional.
type Job struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary,omitempty"`
}

// Stats summarizes one report.
type Stats struct {
	Sources  int `json:"sources"`
	Active   int `json:"active"`
	Passive  int `json:"passive"`
	Findings int `json:"findings"`
	Critical int `json:"critical"`
	Warning  int `json:"warning"`
}

// Result is everything produced for one report. A failed analysis only
// carries File, RunID, AnalyzedAt and Err.
type Result struct {
	RunID      uuid.UUID `json:"run_id"`
	File       string    `json:"file"`
	Company    string    `json:"company"`
	ReportDate string    `json:"report_date"`
	AnalyzedAt time.Time `json:"analyzed_at"`

	Limits  map[krm.EntityID]krm.LimitRecord `json:"limits"`
	Risks   map[krm.EntityID]krm.RiskRecord  `json:"risks"`
	Active  []krm.EntityID                   `json:"active"`
	Passive []krm.EntityID                   `json:"passive"`

	Findings []anomaly.Finding  `json:"findings"`
	Matches  []matching.Result  `json:"matches"`
	Outcomes []krm.RowOutcome   `json:"outcomes,omitempty"`
	Tables   []krm.TableOutcome `json:"tables,omitempty"`

	SecondaryFile    string                 `json:"secondary_file,omitempty"`
	Secondary        SecondaryStatus        `json:"secondary_status"`
	SecondaryRecords []findeks.Record       `json:"secondary_records,omitempty"`
	SecondaryBlocks  []findeks.BlockOutcome `json:"secondary_blocks,omitempty"`

	Stats   Stats  `json:"stats"`
	Success bool   `json:"success"`
	Err     string `json:"error,omitempty"`
}

func newStats(active, passive []krm.EntityID, findings []anomaly.Finding) Stats {
	critical, warning := anomaly.Count(findings)
	return Stats{
		Sources:  len(active) + len(passive),
		Active:   len(active),
		Passive:  len(passive),
		Findings: len(findings),
		Critical: critical,
		Warning:  warning,
	}
}

// Clean reports a successful analysis without findings.
func (r Result) Clean() bool {
	return r.Success && len(r.Findings) == 0
}

// BatchSummary totals a batch over its successful results.
type BatchSummary struct {
	Documents int  `json:"documents"`
	Succeeded int  `json:"succeeded"`
	Failed    int  `json:"failed"`
	Active    int  `json:"active"`
	Passive   int  `json:"passive"`
	Critical  int  `json:"critical"`
	Warning   int  `json:"warning"`
	Matches   int  `json:"matches"`
	AllClean  bool `json:"all_clean"`
}

// Summarize totals results. AllClean holds when no successful report has a
// critical or warning finding.
func Summarize(results []Result) BatchSummary {
	s := BatchSummary{Documents: len(results)}
	for _, r := range results {
		if !r.Success {
			s.Failed++
			continue
		}
		s.Succeeded++
		s.Active += r.Stats.Active
		s.Passive += r.Stats.Passive
		s.Critical += r.Stats.Critical
		s.Warning += r.Stats.Warning
		s.Matches += len(r.Matches)
	}
	s.AllClean = s.Critical == 0 && s.Warning == 0
	return s
}
