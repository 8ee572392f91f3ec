package client

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/MIPS/atlas-explorer-go/apimodels"
	"github.com/pkg/errors"
)

// Mock mocks the Communicator for testing. Responses are configured up
// front and every call is recorded.
type Mock struct {
	// mock behavior
	GatewayResult        string
	ResolveGatewayError  error
	KeyValidation        apimodels.APIKeyValidation
	ValidateAPIKeyError  error
	UserIsValid          bool
	Channels             *apimodels.ChannelList
	GetChannelsError     error
	ExperimentURLsResult *apimodels.ExperimentURLs
	CreateExperimentErr  error
	ReportURLsResult     *apimodels.ReportURLs
	CreateReportErr      error
	UploadError          error
	DownloadError        error

	// StatusSequence is returned from successive GetStatus calls; the
	// last entry repeats once the sequence is exhausted.
	StatusSequence []apimodels.StatusResponse
	GetStatusError error

	// DownloadContent maps a signed URL to the bytes DownloadFile writes
	// to its destination path.
	DownloadContent map[string][]byte

	// recorded state
	ExperimentRequests []CreateExperimentOptions
	ReportConfigs      []*apimodels.ReportConfig
	UploadedJSON       map[string][]byte
	UploadedFiles      map[string]string
	StatusPolls        int
	Closed             bool

	gateway string
	mu      sync.Mutex
}

// NewMock returns a mock Communicator with its recording maps initialized.
func NewMock() *Mock {
	return &Mock{
		UploadedJSON:  map[string][]byte{},
		UploadedFiles: map[string]string{},
	}
}

func (c *Mock) SetTimeoutStart(time.Duration) {}
func (c *Mock) SetTimeoutMax(time.Duration)   {}
func (c *Mock) SetMaxAttempts(int)            {}

func (c *Mock) SetGateway(endpoint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gateway = endpoint
}

func (c *Mock) Gateway() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gateway
}

func (c *Mock) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Closed = true
}

func (c *Mock) ValidateAPIKey(_ context.Context) (*apimodels.APIKeyValidation, error) {
	if c.ValidateAPIKeyError != nil {
		return nil, c.ValidateAPIKeyError
	}
	validation := c.KeyValidation
	return &validation, nil
}

func (c *Mock) UserValid(_ context.Context) (bool, error) {
	return c.UserIsValid, nil
}

func (c *Mock) GetChannels(_ context.Context) (*apimodels.ChannelList, error) {
	if c.GetChannelsError != nil {
		return nil, c.GetChannelsError
	}
	if c.Channels == nil {
		return &apimodels.ChannelList{}, nil
	}
	return c.Channels, nil
}

func (c *Mock) ResolveGateway(_ context.Context) (string, error) {
	if c.ResolveGatewayError != nil {
		return "", c.ResolveGatewayError
	}
	return c.GatewayResult, nil
}

func (c *Mock) CreateExperimentURLs(_ context.Context, opts CreateExperimentOptions) (*apimodels.ExperimentURLs, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ExperimentRequests = append(c.ExperimentRequests, opts)
	if c.CreateExperimentErr != nil {
		return nil, c.CreateExperimentErr
	}
	if c.ExperimentURLsResult == nil {
		return nil, errors.New("no experiment URLs configured")
	}
	return c.ExperimentURLsResult, nil
}

func (c *Mock) CreateReportURLs(_ context.Context, expUUID string, config *apimodels.ReportConfig) (*apimodels.ReportURLs, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ReportConfigs = append(c.ReportConfigs, config)
	if c.CreateReportErr != nil {
		return nil, c.CreateReportErr
	}
	if c.ReportURLsResult == nil {
		return nil, errors.New("no report URLs configured")
	}
	return c.ReportURLsResult, nil
}

func (c *Mock) UploadJSON(_ context.Context, url string, payload interface{}) error {
	if c.UploadError != nil {
		return c.UploadError
	}
	out, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.UploadedJSON[url] = out
	return nil
}

func (c *Mock) UploadFile(_ context.Context, url, path string) error {
	if c.UploadError != nil {
		return c.UploadError
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.UploadedFiles[url] = path
	return nil
}

func (c *Mock) GetStatus(_ context.Context, _ string) (*apimodels.StatusResponse, error) {
	if c.GetStatusError != nil {
		return nil, c.GetStatusError
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.StatusSequence) == 0 {
		return nil, errors.New("no status responses configured")
	}
	idx := c.StatusPolls
	if idx >= len(c.StatusSequence) {
		idx = len(c.StatusSequence) - 1
	}
	c.StatusPolls++
	status := c.StatusSequence[idx]
	return &status, nil
}

func (c *Mock) DownloadFile(_ context.Context, url, path string) error {
	if c.DownloadError != nil {
		return c.DownloadError
	}

	c.mu.Lock()
	content := c.DownloadContent[url]
	c.mu.Unlock()

	return os.WriteFile(path, content, 0644)
}
