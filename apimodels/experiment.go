package apimodels

// ExperimentURLs is the presigned URL bundle a gateway returns for
// ActionExperiment: where to put the experiment config and each workload
// binary, where to poll for progress, and where the simulation trace
// package lands once the run completes.
type ExperimentURLs struct {
	ConfigURL    string            `json:"cfgurl"`
	WorkloadURLs map[string]string `json:"elfurls"`
	StatusURL    string            `json:"statusget"`
	PackageURL   string            `json:"zstffile"`
}

// ReportURLs is the presigned URL bundle for ActionReport. Uploading the
// trigger file to TriggerURL starts report generation.
type ReportURLs struct {
	ConfigURL  string `json:"reporturl"`
	StatusURL  string `json:"statusget"`
	TriggerURL string `json:"grrput"`
}

// Codes reported by status endpoints while the service works through an
// experiment or report.
const (
	CodeInProgress = 100
	CodeComplete   = 200
	CodeFailed     = 500
)

// StatusResponse is returned by the StatusURL of an experiment or report.
type StatusResponse struct {
	Code     int             `json:"code"`
	Message  string          `json:"message,omitempty"`
	Metadata *StatusMetadata `json:"metadata,omitempty"`
}

func (s *StatusResponse) InProgress() bool { return s.Code == CodeInProgress }
func (s *StatusResponse) Complete() bool   { return s.Code == CodeComplete }
func (s *StatusResponse) Failed() bool     { return s.Code == CodeFailed }

// StatusMetadata carries the outputs of a finished job. For reports it
// lists the generated files.
type StatusMetadata struct {
	Reports []ReportFile `json:"reports,omitempty"`
}

// ReportFile locates one generated report artifact.
type ReportFile struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type"`
}

// ReportFileStream marks report artifacts that are downloaded as binary
// streams into the report directory.
const ReportFileStream = "stream"

// ExperimentConfig is uploaded to ExperimentURLs.ConfigURL before the
// workload binaries. Elf repeats the first workload for older service
// generations that only understood single-workload experiments.
type ExperimentConfig struct {
	UUID           string   `json:"uuid"`
	Core           string   `json:"core"`
	Elf            string   `json:"elf"`
	Workloads      []string `json:"workloads"`
	LocalISS       bool     `json:"localISS"`
	LocalSimulator bool     `json:"localSimulator"`
	ToolsVersion   string   `json:"toolsVersion"`
	Timeout        int      `json:"timeout"`
	PluginVersion  string   `json:"pluginVersion"`
}

// Report types the service can generate from a completed simulation.
const (
	ReportSummary    = "summary"
	ReportInstCounts = "inst_counts"
	ReportInstTrace  = "inst_trace"
)

// ReportTypes lists every report type, summary first.
var ReportTypes = []string{ReportSummary, ReportInstCounts, ReportInstTrace}

// ValidReportType reports whether name is a report type the service knows.
func ValidReportType(name string) bool {
	for _, t := range ReportTypes {
		if t == name {
			return true
		}
	}
	return false
}

// ReportConfig is uploaded to ReportURLs.ConfigURL, wrapped in a
// DataEnvelope, to describe one report generation job.
type ReportConfig struct {
	StartDate      string   `json:"startDate"`
	ReportUUID     string   `json:"reportUUID"`
	ExpUUID        string   `json:"expUUID"`
	Core           string   `json:"core"`
	Elf            string   `json:"elf"`
	ReportName     string   `json:"reportName"`
	ReportType     string   `json:"reportType"`
	UserParameters []string `json:"userParameters"`
	StartInst      int      `json:"startInst"`
	EndInst        int      `json:"endInst"`
	Resolution     int      `json:"resolution"`
	ToolsVersion   string   `json:"toolsVersion"`
	Timeout        int      `json:"timeout"`
	PluginVersion  string   `json:"pluginVersion"`
}

// DataEnvelope wraps report config and trigger uploads; the report pipeline
// expects both nested under a "data" key.
type DataEnvelope struct {
	Data interface{} `json:"data"`
}
