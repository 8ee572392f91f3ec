package apimodels

import "github.com/mongodb/grip"

// SummaryReport is the parsed form of the summary report JSON an experiment
// downloads after a completed run. Totals are broken out so callers never
// depend on metric display names; Metrics carries the full set keyed by
// display name (e.g. "Level 1 Instruction Cache (L1ICache) Hits").
type SummaryReport struct {
	ReportType        string             `json:"reportType"`
	ToolsVersion      string             `json:"toolsVersion,omitempty"`
	Core              string             `json:"core,omitempty"`
	TotalCycles       int64              `json:"totalCycles"`
	TotalInstructions int64              `json:"totalInstructions"`
	Metrics           map[string]float64 `json:"metrics,omitempty"`
}

// Validate checks the invariants a summary must satisfy before it is
// exposed to callers.
func (s *SummaryReport) Validate() error {
	catcher := grip.NewBasicCatcher()
	catcher.NewWhen(s.ReportType != ReportSummary, "report type must be summary")
	catcher.NewWhen(s.TotalCycles < 0, "total cycles must not be negative")
	catcher.NewWhen(s.TotalInstructions < 0, "total instructions must not be negative")
	return catcher.Resolve()
}
