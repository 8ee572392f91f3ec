package experiment

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	atlasexplorer "github.com/MIPS/atlas-explorer-go"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAfterRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mock := mockForRun(t, 253629, "mandelbrot_rv64_O0.elf")
	e := fastExperiment(t, mock)
	require.NoError(t, e.AddWorkload(writeWorkload(t, t.TempDir(), "mandelbrot_rv64_O0.elf")))
	require.NoError(t, e.SetCore("I8500_(1_thread)"))
	require.NoError(t, e.Run(ctx))

	loaded, err := Load(e.Dir())
	require.NoError(t, err)
	assert.Equal(t, e.ID(), loaded.ID())
	assert.Equal(t, atlasexplorer.ExperimentCompleted, loaded.Status())
	assert.Equal(t, "I8500_(1_thread)", loaded.Core())
	assert.Equal(t, []string{"mandelbrot_rv64_O0.elf"}, loaded.Workloads())

	summary := loaded.Summary()
	require.NotNil(t, summary)
	assert.EqualValues(t, 253629, summary.TotalCycles())

	// Reloaded experiments are read-only.
	err = loaded.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already run")
}

func TestLoadMissingMetadata(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.Error(t, err)
}

func TestLoadCompletedWithoutSummary(t *testing.T) {
	dir := t.TempDir()
	meta := `id: 250817-120000_4f5a
status: completed
core: I8500_(1_thread)
workloads:
    - mandelbrot_rv64_O0.elf
started_at: 2025-08-17T12:00:00Z
completed_at: 2025-08-17T12:01:30Z
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, atlasexplorer.MetadataFilename), []byte(meta), 0644))

	_, err := Load(dir)
	assert.True(t, errors.Is(err, ErrSummaryUnavailable))
}

func TestMetadataRecordsFailedRuns(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mock := mockForRun(t, 1000, "mandelbrot_rv64_O0.elf")
	mock.StatusSequence = mock.StatusSequence[:1]
	e := fastExperiment(t, mock)
	e.SetRunTimeout(50 * time.Millisecond)
	require.NoError(t, e.AddWorkload(writeWorkload(t, t.TempDir(), "mandelbrot_rv64_O0.elf")))
	require.NoError(t, e.SetCore("I8500_(1_thread)"))
	require.Error(t, e.Run(ctx))

	loaded, err := Load(e.Dir())
	require.NoError(t, err)
	assert.Equal(t, atlasexplorer.ExperimentFailed, loaded.Status())
	assert.Nil(t, loaded.Summary())
}
