package experiment

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSummaryFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "summary.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadSummary(t *testing.T) {
	path := writeSummaryFile(t, `{
  "reportType": "summary",
  "toolsVersion": "latest",
  "core": "I8500_(1_thread)",
  "totalCycles": 253629,
  "totalInstructions": 126814,
  "metrics": {
    "Cycles Per Instruction (CPI)": 2.0,
    "Branch Mispredictions": 1042
  }
}`)

	s, err := LoadSummary(path)
	require.NoError(t, err)
	assert.Equal(t, path, s.Path())
	assert.EqualValues(t, 253629, s.TotalCycles())
	assert.EqualValues(t, 126814, s.TotalInstructions())
	assert.Equal(t, "I8500_(1_thread)", s.Core())
	assert.Equal(t, "latest", s.ToolsVersion())

	assert.Equal(t, []string{"Branch Mispredictions", "Cycles Per Instruction (CPI)"}, s.MetricKeys())

	val, ok := s.MetricValue("Branch Mispredictions")
	require.True(t, ok)
	assert.EqualValues(t, 1042, val)

	_, ok = s.MetricValue("No Such Metric")
	assert.False(t, ok)
}

func TestLoadSummaryRejectsBadReports(t *testing.T) {
	for name, content := range map[string]string{
		"NegativeCycles": `{"reportType": "summary", "totalCycles": -1}`,
		"WrongType":      `{"reportType": "inst_counts", "totalCycles": 100}`,
		"MalformedJSON":  `{"reportType": "summary"`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadSummary(writeSummaryFile(t, content))
			assert.Error(t, err)
		})
	}
}

func TestLoadSummaryMissingFile(t *testing.T) {
	_, err := LoadSummary(filepath.Join(t.TempDir(), "summary.json"))
	assert.Error(t, err)
}

func TestWriteMetrics(t *testing.T) {
	path := writeSummaryFile(t, `{
  "reportType": "summary",
  "totalCycles": 253629,
  "totalInstructions": 126814,
  "metrics": {"Branch Mispredictions": 1042, "L1 Cache Hits": 88210}
}`)
	s, err := LoadSummary(path)
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	s.WriteMetrics(buf, nil)
	out := buf.String()
	assert.Contains(t, out, "Total Cycles")
	assert.Contains(t, out, "253,629")
	assert.Contains(t, out, "Branch Mispredictions")
	assert.Contains(t, out, "L1 Cache Hits")
}

func TestWriteMetricsFiltered(t *testing.T) {
	path := writeSummaryFile(t, `{
  "reportType": "summary",
  "totalCycles": 253629,
  "totalInstructions": 126814,
  "metrics": {"Branch Mispredictions": 1042, "L1 Cache Hits": 88210}
}`)
	s, err := LoadSummary(path)
	require.NoError(t, err)

	matched := s.FilterMetrics(regexp.MustCompile(`Cache`))
	assert.Equal(t, map[string]float64{"L1 Cache Hits": 88210}, matched)

	buf := &bytes.Buffer{}
	s.WriteMetrics(buf, regexp.MustCompile(`Cache`))
	out := buf.String()
	assert.Contains(t, out, "Total Cycles")
	assert.Contains(t, out, "L1 Cache Hits")
	assert.NotContains(t, out, "Branch Mispredictions")
}
