package client

import (
	"context"
	"time"

	"github.com/MIPS/atlas-explorer-go/apimodels"
)

// Communicator is an interface for communicating with the Atlas Explorer
// cloud service. It covers both the global API, which validates credentials
// and resolves the per-channel gateway, and the gateway itself, which issues
// signed URLs for experiment uploads, status polling, and report downloads.
type Communicator interface {
	// Setters adjust the retry behavior of API requests.
	//
	// SetTimeoutStart sets the initial timeout for a request.
	SetTimeoutStart(time.Duration)
	// SetTimeoutMax sets the maximum timeout for a request.
	SetTimeoutMax(time.Duration)
	// SetMaxAttempts sets the number of attempts a request will be made.
	SetMaxAttempts(int)

	// SetGateway points the communicator at a resolved gateway endpoint.
	SetGateway(string)
	// Gateway returns the gateway endpoint the communicator targets, or the
	// empty string if none has been resolved yet.
	Gateway() string

	// Close idles the underlying HTTP clients. The communicator is not
	// usable after it is closed.
	Close()

	// Global API operations.
	//
	// ValidateAPIKey checks the configured API key against the global API.
	ValidateAPIKey(context.Context) (*apimodels.APIKeyValidation, error)
	// UserValid reports whether the configured API key identifies a known
	// user. Unlike ValidateAPIKey it does not retry rejected credentials.
	UserValid(context.Context) (bool, error)
	// GetChannels fetches the channels, regions, and cores available to the
	// configured API key.
	GetChannels(context.Context) (*apimodels.ChannelList, error)
	// ResolveGateway asks the global API for the gateway endpoint serving
	// the configured channel and region.
	ResolveGateway(context.Context) (string, error)

	// Gateway operations.
	//
	// CreateExperimentURLs requests signed URLs for uploading an experiment
	// and polling its progress.
	CreateExperimentURLs(context.Context, CreateExperimentOptions) (*apimodels.ExperimentURLs, error)
	// CreateReportURLs requests signed URLs for generating a report from a
	// completed experiment.
	CreateReportURLs(context.Context, string, *apimodels.ReportConfig) (*apimodels.ReportURLs, error)

	// Signed URL transfers.
	//
	// UploadJSON marshals the given payload and puts it to a signed URL.
	UploadJSON(context.Context, string, interface{}) error
	// UploadFile puts the contents of a local file to a signed URL.
	UploadFile(context.Context, string, string) error
	// GetStatus fetches the current status document from a signed status
	// URL. It makes a single attempt; callers own the polling cadence.
	GetStatus(context.Context, string) (*apimodels.StatusResponse, error)
	// DownloadFile gets a signed URL and writes the response body to the
	// given local path.
	DownloadFile(context.Context, string, string) error
}

// CreateExperimentOptions describes the experiment to request signed URLs
// for. Workloads holds the base names of the workload binaries that will be
// uploaded.
type CreateExperimentOptions struct {
	ExpUUID   string
	Core      string
	Workloads []string
}
