package experiment

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	atlasexplorer "github.com/MIPS/atlas-explorer-go"
	"github.com/MIPS/atlas-explorer-go/apimodels"
	"github.com/MIPS/atlas-explorer-go/rest/client"
	"github.com/MIPS/atlas-explorer-go/testutil"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	mockPackageURL = "https://bucket/package.zstf"
	mockSummaryURL = "https://bucket/reports/summary.json"
)

func writeWorkload(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, testutil.WriteELF(path))
	return path
}

// mockForRun scripts a communicator through a full run: signed URLs for the
// named workloads, an in-progress poll before each completion, and canned
// package and summary downloads.
func mockForRun(t *testing.T, cycles int64, names ...string) *client.Mock {
	t.Helper()

	mock := client.NewMock()
	mock.ExperimentURLsResult = &apimodels.ExperimentURLs{
		ConfigURL:    "https://bucket/config.json",
		WorkloadURLs: map[string]string{},
		StatusURL:    "https://bucket/status",
		PackageURL:   mockPackageURL,
	}
	for _, name := range names {
		mock.ExperimentURLsResult.WorkloadURLs[name] = "https://bucket/workloads/" + name
	}
	mock.ReportURLsResult = &apimodels.ReportURLs{
		ConfigURL:  "https://bucket/report-config.json",
		StatusURL:  "https://bucket/report-status",
		TriggerURL: "https://bucket/trigger.json",
	}
	mock.StatusSequence = []apimodels.StatusResponse{
		{Code: apimodels.CodeInProgress, Message: "results are being generated"},
		{Code: apimodels.CodeComplete, Message: "simulation complete"},
		{Code: apimodels.CodeInProgress, Message: "results are being generated"},
		{Code: apimodels.CodeComplete, Message: "summary report complete", Metadata: &apimodels.StatusMetadata{
			Reports: []apimodels.ReportFile{
				{Name: "summary.json", URL: mockSummaryURL, Type: apimodels.ReportFileStream},
			},
		}},
	}

	summary, err := json.Marshal(apimodels.SummaryReport{
		ReportType:        apimodels.ReportSummary,
		Core:              "I8500_(1_thread)",
		TotalCycles:       cycles,
		TotalInstructions: cycles / 2,
		Metrics:           map[string]float64{"Branch Mispredictions": 1042},
	})
	require.NoError(t, err)
	mock.DownloadContent = map[string][]byte{
		mockPackageURL: []byte("ZSTF"),
		mockSummaryURL: summary,
	}
	return mock
}

func fastExperiment(t *testing.T, mock *client.Mock) *Experiment {
	t.Helper()
	e, err := NewWithCommunicator(t.TempDir(), mock, false)
	require.NoError(t, err)
	e.SetRunTimeout(10 * time.Second)
	e.SetPollInterval(time.Millisecond, 5*time.Millisecond)
	return e
}

func TestAddWorkload(t *testing.T) {
	e := fastExperiment(t, client.NewMock())

	t.Run("ValidELF", func(t *testing.T) {
		path := writeWorkload(t, t.TempDir(), "mandelbrot_rv64_O0.elf")
		require.NoError(t, e.AddWorkload(path))
		assert.Equal(t, []string{path}, e.Workloads())
	})
	t.Run("MissingFile", func(t *testing.T) {
		err := e.AddWorkload(filepath.Join(t.TempDir(), "nope.elf"))
		assert.True(t, errors.Is(err, ErrWorkloadMissing))
		assert.Len(t, e.Workloads(), 1)
	})
	t.Run("Directory", func(t *testing.T) {
		err := e.AddWorkload(t.TempDir())
		assert.True(t, errors.Is(err, ErrWorkloadMissing))
		assert.Len(t, e.Workloads(), 1)
	})
	t.Run("NotELF", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "notes.txt")
		require.NoError(t, os.WriteFile(path, []byte("not a binary"), 0644))
		err := e.AddWorkload(path)
		assert.True(t, errors.Is(err, ErrNotELF))
		assert.Len(t, e.Workloads(), 1)
	})
}

func TestSetCore(t *testing.T) {
	e := fastExperiment(t, client.NewMock())
	assert.Error(t, e.SetCore(""))
	require.NoError(t, e.SetCore("I8500_(1_thread)"))
	assert.Equal(t, "I8500_(1_thread)", e.Core())
}

func TestRunPreflight(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t.Run("NoWorkloads", func(t *testing.T) {
		mock := client.NewMock()
		e := fastExperiment(t, mock)
		require.NoError(t, e.SetCore("I8500_(1_thread)"))

		err := e.Run(ctx)
		assert.True(t, errors.Is(err, ErrNoWorkloads))
		assert.Empty(t, mock.ExperimentRequests)
		assert.Equal(t, atlasexplorer.ExperimentNotRun, e.Status())
	})
	t.Run("NoCore", func(t *testing.T) {
		mock := client.NewMock()
		e := fastExperiment(t, mock)
		path := writeWorkload(t, t.TempDir(), "mandelbrot_rv64_O0.elf")
		require.NoError(t, e.AddWorkload(path))

		err := e.Run(ctx)
		assert.True(t, errors.Is(err, ErrNoCore))
		assert.Empty(t, mock.ExperimentRequests)
	})
}

func TestRunCompletes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mock := mockForRun(t, 253629, "mandelbrot_rv64_O0.elf")
	e := fastExperiment(t, mock)
	path := writeWorkload(t, t.TempDir(), "mandelbrot_rv64_O0.elf")
	require.NoError(t, e.AddWorkload(path))
	require.NoError(t, e.SetCore("I8500_(1_thread)"))

	require.NoError(t, e.Run(ctx))
	assert.Equal(t, atlasexplorer.ExperimentCompleted, e.Status())
	assert.Regexp(t, regexp.MustCompile(`^\d{6}-\d{6}_[0-9a-f-]{36}$`), e.ID())

	summary := e.Summary()
	require.NotNil(t, summary)
	assert.EqualValues(t, 253629, summary.TotalCycles())

	require.Len(t, mock.ExperimentRequests, 1)
	assert.Equal(t, []string{"mandelbrot_rv64_O0.elf"}, mock.ExperimentRequests[0].Workloads)
	assert.Equal(t, "I8500_(1_thread)", mock.ExperimentRequests[0].Core)
	assert.Equal(t, path, mock.UploadedFiles["https://bucket/workloads/mandelbrot_rv64_O0.elf"])

	// The run leaves the trace package, summary report, and metadata on
	// disk under the experiment directory.
	assert.FileExists(t, filepath.Join(e.Dir(), "mandelbrot_rv64_O0.elf.zstf"))
	assert.FileExists(t, filepath.Join(e.Dir(), apimodels.ReportSummary, "summary.json"))
	assert.FileExists(t, filepath.Join(e.Dir(), atlasexplorer.MetadataFilename))
}

func TestRunUploadsConfigBeforeWorkloads(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mock := mockForRun(t, 1000, "mandelbrot_rv64_O0.elf")
	e := fastExperiment(t, mock)
	path := writeWorkload(t, t.TempDir(), "mandelbrot_rv64_O0.elf")
	require.NoError(t, e.AddWorkload(path))
	require.NoError(t, e.SetCore("I8500_(1_thread)"))
	require.NoError(t, e.Run(ctx))

	config := apimodels.ExperimentConfig{}
	require.NoError(t, json.Unmarshal(mock.UploadedJSON["https://bucket/config.json"], &config))
	assert.Equal(t, e.ID(), config.UUID)
	assert.Equal(t, "I8500_(1_thread)", config.Core)
	assert.Equal(t, "mandelbrot_rv64_O0.elf", config.Elf)
	assert.Equal(t, []string{"mandelbrot_rv64_O0.elf"}, config.Workloads)
	assert.Equal(t, atlasexplorer.PluginVersion, config.PluginVersion)
}

func TestRunServiceFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mock := mockForRun(t, 1000, "mandelbrot_rv64_O0.elf")
	mock.StatusSequence = []apimodels.StatusResponse{
		{Code: apimodels.CodeFailed, Message: "simulation failed"},
	}
	e := fastExperiment(t, mock)
	require.NoError(t, e.AddWorkload(writeWorkload(t, t.TempDir(), "mandelbrot_rv64_O0.elf")))
	require.NoError(t, e.SetCore("I8500_(1_thread)"))

	err := e.Run(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRunFailed))
	assert.Contains(t, err.Error(), "simulation failed")
	assert.Equal(t, atlasexplorer.ExperimentFailed, e.Status())
	assert.Nil(t, e.Summary())
}

func TestRunTimesOutWhilePolling(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mock := mockForRun(t, 1000, "mandelbrot_rv64_O0.elf")
	mock.StatusSequence = []apimodels.StatusResponse{
		{Code: apimodels.CodeInProgress, Message: "results are being generated"},
	}
	e := fastExperiment(t, mock)
	e.SetRunTimeout(100 * time.Millisecond)
	require.NoError(t, e.AddWorkload(writeWorkload(t, t.TempDir(), "mandelbrot_rv64_O0.elf")))
	require.NoError(t, e.SetCore("I8500_(1_thread)"))

	err := e.Run(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRunFailed))
	assert.Contains(t, err.Error(), "gave up waiting for simulation")
	assert.Equal(t, atlasexplorer.ExperimentFailed, e.Status())
}

func TestRunOnlyOnce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mock := mockForRun(t, 1000, "mandelbrot_rv64_O0.elf")
	e := fastExperiment(t, mock)
	require.NoError(t, e.AddWorkload(writeWorkload(t, t.TempDir(), "mandelbrot_rv64_O0.elf")))
	require.NoError(t, e.SetCore("I8500_(1_thread)"))
	require.NoError(t, e.Run(ctx))

	err := e.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already run")
}

func TestSummaryNilBeforeCompletion(t *testing.T) {
	e := fastExperiment(t, client.NewMock())
	assert.Nil(t, e.Summary())
}

func TestGenerateReportRequiresCompletedRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e := fastExperiment(t, client.NewMock())
	_, err := e.GenerateReport(ctx, apimodels.ReportInstCounts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be completed")

	_, err = e.GenerateReport(ctx, "bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown report type")
}
