package experiment

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	atlasexplorer "github.com/MIPS/atlas-explorer-go"
	"github.com/MIPS/atlas-explorer-go/apimodels"
	"github.com/MIPS/atlas-explorer-go/rest/client"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/jpillora/backoff"
	"github.com/pkg/errors"
)

// Run submits the experiment and blocks until the service finishes
// simulating it, the run timeout expires, or ctx is canceled. On success
// the results, including the summary report, are on disk under Dir and the
// experiment is completed; every failure after preflight leaves it failed
// and is reported wrapped in ErrRunFailed.
func (e *Experiment) Run(ctx context.Context) error {
	if err := e.preflight(); err != nil {
		return err
	}
	e.setStatus(atlasexplorer.ExperimentRunning)

	ctx, cancel := context.WithTimeout(ctx, e.runTimeout)
	defer cancel()

	started := time.Now()
	if err := e.execute(ctx, started); err != nil {
		e.setStatus(atlasexplorer.ExperimentFailed)
		if metaErr := e.writeMetadata(started, time.Now()); metaErr != nil {
			e.logger.Debugf("recording failed run: %v", metaErr)
		}
		if errors.Is(err, ErrRunFailed) {
			return err
		}
		return errors.Wrapf(ErrRunFailed, "%v", err)
	}

	e.setStatus(atlasexplorer.ExperimentCompleted)
	if err := e.writeMetadata(started, time.Now()); err != nil {
		e.logger.Warningf("experiment completed but its metadata was not saved: %v", err)
	}
	return nil
}

func (e *Experiment) preflight() error {
	if e.Status() != atlasexplorer.ExperimentNotRun {
		return errors.Errorf("experiment has already run with status '%s'", e.Status())
	}
	if len(e.workloads) == 0 {
		return ErrNoWorkloads
	}
	if e.core == "" {
		return ErrNoCore
	}
	return nil
}

func (e *Experiment) execute(ctx context.Context, started time.Time) error {
	stamp := started.Format(atlasexplorer.TimestampLayout)
	id := fmt.Sprintf("%s_%s", stamp, uuid.New().String())
	expDir := filepath.Join(e.rootDir, stamp)

	e.mu.Lock()
	e.id = id
	e.expDir = expDir
	e.mu.Unlock()

	if err := mkdir(expDir); err != nil {
		return err
	}

	e.logger.Infof("creating experiment '%s'", id)
	names := e.workloadNames()
	urls, err := e.comm.CreateExperimentURLs(ctx, client.CreateExperimentOptions{
		ExpUUID:   id,
		Core:      e.core,
		Workloads: names,
	})
	if err != nil {
		return errors.Wrap(err, "requesting signed URLs")
	}

	config := &apimodels.ExperimentConfig{
		UUID:          id,
		Core:          e.core,
		Elf:           names[0],
		Workloads:     names,
		ToolsVersion:  atlasexplorer.DefaultToolsVersion,
		Timeout:       int(e.runTimeout.Seconds()),
		PluginVersion: atlasexplorer.PluginVersion,
	}
	e.logger.Debug("uploading experiment config")
	if err := e.comm.UploadJSON(ctx, urls.ConfigURL, config); err != nil {
		return errors.Wrap(err, "uploading experiment config")
	}

	for i, path := range e.workloads {
		name := names[i]
		signed, ok := urls.WorkloadURLs[name]
		if !ok || signed == "" {
			return errors.Errorf("service issued no upload URL for workload '%s'", name)
		}
		e.logger.Infof("uploading workload '%s'", name)
		if err := e.comm.UploadFile(ctx, signed, path); err != nil {
			return errors.Wrapf(err, "uploading workload '%s'", name)
		}
	}

	status, err := e.waitForCompletion(ctx, urls.StatusURL, "simulation")
	if err != nil {
		return err
	}
	if status.Failed() {
		return errors.Wrapf(ErrRunFailed, "service reported failure: %s", statusMessage(status))
	}

	packagePath := filepath.Join(expDir, names[0]+".zstf")
	e.logger.Infof("simulation complete, downloading trace package")
	if err := e.comm.DownloadFile(ctx, urls.PackageURL, packagePath); err != nil {
		return errors.Wrap(err, "downloading trace package")
	}

	summaryFiles, err := e.generateReport(ctx, apimodels.ReportSummary)
	if err != nil {
		return errors.Wrap(err, "generating summary report")
	}
	if len(summaryFiles) == 0 {
		return errors.New("service produced no summary artifacts")
	}

	summary, err := LoadSummary(summaryFiles[0])
	if err != nil {
		return errors.Wrap(err, "loading summary report")
	}

	e.mu.Lock()
	e.summary = summary
	e.mu.Unlock()

	e.logger.Infof("experiment complete: %s cycles over %s instructions",
		humanize.Comma(summary.TotalCycles()), humanize.Comma(summary.TotalInstructions()))
	return nil
}

// waitForCompletion polls a status URL until the service reports a
// terminal code. Transient poll failures are retried on the same backoff
// schedule as the polling itself; the context deadline bounds the whole
// wait.
func (e *Experiment) waitForCompletion(ctx context.Context, statusURL, what string) (*apimodels.StatusResponse, error) {
	b := &backoff.Backoff{
		Min:    e.pollInterval,
		Max:    e.pollIntervalMax,
		Factor: 2,
		Jitter: true,
	}

	var lastErr error
	timer := time.NewTimer(e.pollInterval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			if lastErr != nil {
				return nil, errors.Wrapf(ErrRunFailed, "gave up waiting for %s: %v (last poll error: %v)", what, ctx.Err(), lastErr)
			}
			return nil, errors.Wrapf(ErrRunFailed, "gave up waiting for %s: %v", what, ctx.Err())
		case <-timer.C:
			status, err := e.comm.GetStatus(ctx, statusURL)
			switch {
			case err != nil:
				lastErr = err
				e.logger.Debugf("polling %s status: %v", what, err)
			case status.InProgress():
				lastErr = nil
				e.logger.Infof("%s in progress: %s", what, statusMessage(status))
			default:
				return status, nil
			}
			timer.Reset(b.Duration())
		}
	}
}

func statusMessage(status *apimodels.StatusResponse) string {
	if status.Message != "" {
		return status.Message
	}
	return fmt.Sprintf("code %d", status.Code)
}
