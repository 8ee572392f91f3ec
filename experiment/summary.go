package experiment

import (
	"encoding/json"
	"io"
	"os"
	"regexp"
	"sort"
	"text/tabwriter"

	"github.com/MIPS/atlas-explorer-go/apimodels"
	"github.com/cheynewallace/tabby"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

// Summary is the read-only result of a completed run, parsed from the
// summary report the service generates.
type Summary struct {
	report apimodels.SummaryReport
	path   string
}

// LoadSummary parses and validates a summary report file.
func LoadSummary(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading summary report '%s'", path)
	}

	report := apimodels.SummaryReport{}
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, errors.Wrapf(err, "parsing summary report '%s'", path)
	}
	if err := report.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid summary report '%s'", path)
	}

	return &Summary{report: report, path: path}, nil
}

// Path returns the summary report file the summary was parsed from.
func (s *Summary) Path() string { return s.path }

// TotalCycles returns the number of simulated cycles the workloads took.
func (s *Summary) TotalCycles() int64 { return s.report.TotalCycles }

// TotalInstructions returns the number of instructions retired.
func (s *Summary) TotalInstructions() int64 { return s.report.TotalInstructions }

// Core returns the core type the summary was simulated on.
func (s *Summary) Core() string { return s.report.Core }

// ToolsVersion returns the simulator toolchain release that produced the
// summary.
func (s *Summary) ToolsVersion() string { return s.report.ToolsVersion }

// MetricKeys returns the display names of every metric, sorted.
func (s *Summary) MetricKeys() []string {
	keys := make([]string, 0, len(s.report.Metrics))
	for key := range s.report.Metrics {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// MetricValue looks up a metric by display name.
func (s *Summary) MetricValue(key string) (float64, bool) {
	val, ok := s.report.Metrics[key]
	return val, ok
}

// FilterMetrics returns the metrics whose display names match the pattern.
// A nil pattern matches everything.
func (s *Summary) FilterMetrics(pattern *regexp.Regexp) map[string]float64 {
	matched := map[string]float64{}
	for key, val := range s.report.Metrics {
		if pattern == nil || pattern.MatchString(key) {
			matched[key] = val
		}
	}
	return matched
}

// WriteMetrics renders the totals and the metrics matching the pattern as
// an aligned table. A nil pattern includes every metric.
func (s *Summary) WriteMetrics(w io.Writer, pattern *regexp.Regexp) {
	matched := s.FilterMetrics(pattern)

	t := tabby.NewCustom(tabwriter.NewWriter(w, 0, 0, 2, ' ', 0))
	t.AddHeader("METRIC", "VALUE")
	t.AddLine("Total Cycles", humanize.Comma(s.TotalCycles()))
	t.AddLine("Total Instructions", humanize.Comma(s.TotalInstructions()))
	for _, key := range s.MetricKeys() {
		if val, ok := matched[key]; ok {
			t.AddLine(key, humanize.CommafWithDigits(val, 2))
		}
	}
	t.Print()
}

// PrintMetrics writes the metric table to standard output.
func (s *Summary) PrintMetrics(pattern *regexp.Regexp) {
	s.WriteMetrics(os.Stdout, pattern)
}
