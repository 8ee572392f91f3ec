package experiment

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	atlasexplorer "github.com/MIPS/atlas-explorer-go"
	"github.com/MIPS/atlas-explorer-go/apimodels"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// GenerateReport asks the service for an additional report over a completed
// experiment, such as an instruction count or instruction trace breakdown,
// and downloads its artifacts into a report directory under Dir. It returns
// the paths of the downloaded files.
func (e *Experiment) GenerateReport(ctx context.Context, reportType string) ([]string, error) {
	if !apimodels.ValidReportType(reportType) {
		return nil, errors.Errorf("unknown report type '%s'", reportType)
	}
	if status := e.Status(); status != atlasexplorer.ExperimentCompleted {
		return nil, errors.Errorf("experiment must be completed to generate reports; status is '%s'", status)
	}
	if e.comm == nil {
		return nil, errors.New("experiment was loaded from disk and has no service connection")
	}

	ctx, cancel := context.WithTimeout(ctx, e.runTimeout)
	defer cancel()

	return e.generateReport(ctx, reportType)
}

// generateReport drives one report job: signed URLs, config upload, the
// trigger upload that starts generation, then polling and downloads.
func (e *Experiment) generateReport(ctx context.Context, reportType string) ([]string, error) {
	now := time.Now()
	stamp := now.Format(atlasexplorer.TimestampLayout)
	reportUUID := fmt.Sprintf("%s_%s", stamp, uuid.New().String())

	e.logger.Infof("creating %s report", reportType)

	names := e.workloadNames()
	config := &apimodels.ReportConfig{
		StartDate:      stamp,
		ReportUUID:     reportUUID,
		ExpUUID:        e.ID(),
		Core:           e.core,
		Elf:            names[0],
		ReportName:     reportType,
		ReportType:     reportType,
		UserParameters: []string{},
		StartInst:      1,
		EndInst:        -1,
		Resolution:     1,
		ToolsVersion:   atlasexplorer.DefaultToolsVersion,
		Timeout:        int(e.runTimeout.Seconds()),
		PluginVersion:  atlasexplorer.PluginVersion,
	}

	urls, err := e.comm.CreateReportURLs(ctx, e.ID(), config)
	if err != nil {
		return nil, errors.Wrap(err, "requesting report URLs")
	}

	e.logger.Debug("uploading report config")
	if err := e.comm.UploadJSON(ctx, urls.ConfigURL, apimodels.DataEnvelope{Data: config}); err != nil {
		return nil, errors.Wrap(err, "uploading report config")
	}

	// The trigger upload is what starts report generation on the service.
	e.logger.Debug("uploading report request trigger")
	trigger := apimodels.DataEnvelope{Data: now.Format(time.RFC3339)}
	if err := e.comm.UploadJSON(ctx, urls.TriggerURL, trigger); err != nil {
		return nil, errors.Wrap(err, "uploading report trigger")
	}

	status, err := e.waitForCompletion(ctx, urls.StatusURL, reportType+" report")
	if err != nil {
		return nil, err
	}
	if status.Failed() {
		return nil, errors.Errorf("service failed to generate %s report: %s", reportType, statusMessage(status))
	}

	return e.downloadReportFiles(ctx, reportType, status)
}

// downloadReportFiles pulls every streamed artifact of a finished report
// into Dir/<reportType>.
func (e *Experiment) downloadReportFiles(ctx context.Context, reportType string, status *apimodels.StatusResponse) ([]string, error) {
	if status.Metadata == nil || len(status.Metadata.Reports) == 0 {
		return nil, nil
	}

	reportDir := filepath.Join(e.Dir(), reportType)
	if err := mkdir(reportDir); err != nil {
		return nil, err
	}

	var paths []string
	for _, file := range status.Metadata.Reports {
		if file.Type != apimodels.ReportFileStream {
			continue
		}
		path := filepath.Join(reportDir, file.Name)
		e.logger.Debugf("downloading report file '%s'", file.Name)
		if err := e.comm.DownloadFile(ctx, file.URL, path); err != nil {
			return nil, errors.Wrapf(err, "downloading report file '%s'", file.Name)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
