// Package report aggregates diff results into a SimulationReport and
// renders it as Markdown or a self-contained HTML document. It has no
// behavior beyond formatting.
package report

import (
	"time"

	"github.com/evalgo/simreplay/internal/diffengine"
)

// SimulationReport aggregates a run's diff results with summary counters.
type SimulationReport struct {
	RunID          string               `json:"run_id"`
	GeneratedAt    time.Time            `json:"generated_at"`
	Total          int                  `json:"total"`
	Passed         int                  `json:"passed"`
	Failed         int                  `json:"failed"`
	StubMisses     int                  `json:"stub_misses"`
	BlockedWrites  int                  `json:"blocked_writes"`
	Errors         []string             `json:"errors"`
	Results        []diffengine.Result  `json:"results"`
	StubMissDetail []StubMissDetail     `json:"stub_miss_detail,omitempty"`
	BlockedDetail  []BlockedWriteDetail `json:"blocked_write_detail,omitempty"`
}

// StubMissDetail records one replay-time stub miss surfaced by the
// runner, rendered in the report's dedicated stub-miss section.
type StubMissDetail struct {
	Endpoint    string `json:"endpoint"`
	FixtureID   string `json:"fixture_id"`
	Qualname    string `json:"qualname"`
	Fingerprint string `json:"fingerprint"`
	Ordinal     int    `json:"ordinal"`
	ExpectedAt  string `json:"expected_at"`
}

// BlockedWriteDetail records one replay-time blocked write.
type BlockedWriteDetail struct {
	Endpoint  string `json:"endpoint"`
	FixtureID string `json:"fixture_id"`
	SQL       string `json:"sql"`
	Label     string `json:"label"`
}

// Build aggregates results and per-fixture faults into a
// SimulationReport.
func Build(runID string, results []diffengine.Result, stubMisses []StubMissDetail, blocked []BlockedWriteDetail, errs []string) SimulationReport {
	r := SimulationReport{
		RunID:          runID,
		GeneratedAt:    time.Now().UTC(),
		Total:          len(results),
		Results:        results,
		Errors:         errs,
		StubMissDetail: stubMisses,
		BlockedDetail:  blocked,
		StubMisses:     len(stubMisses),
		BlockedWrites:  len(blocked),
	}
	for _, res := range results {
		if res.Passed {
			r.Passed++
		} else {
			r.Failed++
		}
	}
	return r
}

// ExitCode returns the process exit code: 0 only when nothing failed, no
// stub was missed, and no errors were recorded.
func (r SimulationReport) ExitCode() int {
	if r.Failed == 0 && r.StubMisses == 0 && len(r.Errors) == 0 {
		return 0
	}
	return 1
}
