package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/MIPS/atlas-explorer-go/apimodels"
	"github.com/MIPS/atlas-explorer-go/util"
	"github.com/evergreen-ci/gimlet"
	"github.com/pkg/errors"
)

func (c *communicatorImpl) ValidateAPIKey(ctx context.Context) (*apimodels.APIKeyValidation, error) {
	info := requestInfo{
		method: http.MethodGet,
		target: targetGlobal,
		path:   apimodels.RouteValidateAPIKey,
	}
	resp, err := c.retryRequest(ctx, info, nil)
	if err != nil {
		return nil, errors.Wrap(err, "validating API key")
	}
	defer resp.Body.Close()

	validation := &apimodels.APIKeyValidation{}
	if err := gimlet.GetJSON(resp.Body, validation); err != nil {
		return nil, errors.Wrap(err, "reading API key validation reply")
	}
	return validation, nil
}

func (c *communicatorImpl) UserValid(ctx context.Context) (bool, error) {
	info := requestInfo{
		method: http.MethodGet,
		target: targetGlobal,
		path:   apimodels.RouteUser,
	}
	resp, err := c.request(ctx, info, nil)
	if err != nil {
		return false, errors.Wrap(err, "checking user")
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK, nil
}

func (c *communicatorImpl) GetChannels(ctx context.Context) (*apimodels.ChannelList, error) {
	info := requestInfo{
		method: http.MethodGet,
		target: targetGlobal,
		path:   apimodels.RouteChannelList,
		headers: map[string]string{
			apimodels.ExtVersionHeader: atlasExtVersion,
		},
	}
	resp, err := c.retryRequest(ctx, info, nil)
	if err != nil {
		return nil, errors.Wrap(err, "getting channel list")
	}
	defer resp.Body.Close()

	channels := &apimodels.ChannelList{}
	if err := gimlet.GetJSON(resp.Body, channels); err != nil {
		return nil, errors.Wrap(err, "reading channel list reply")
	}
	return channels, nil
}

func (c *communicatorImpl) ResolveGateway(ctx context.Context) (string, error) {
	info := requestInfo{
		method: http.MethodGet,
		target: targetGlobal,
		path:   apimodels.RouteGatewayByChannel,
		headers: map[string]string{
			apimodels.ChannelHeader: c.channel,
			apimodels.RegionHeader:  c.region,
		},
	}
	resp, err := c.retryRequest(ctx, info, nil)
	if err != nil {
		return "", errors.Wrapf(err, "resolving gateway for channel '%s' in region '%s'", c.channel, c.region)
	}
	defer resp.Body.Close()

	endpoint := &apimodels.GatewayEndpoint{}
	if err := gimlet.GetJSON(resp.Body, endpoint); err != nil {
		return "", errors.Wrap(err, "reading gateway reply")
	}
	return endpoint.Endpoint, nil
}

func (c *communicatorImpl) CreateExperimentURLs(ctx context.Context, opts CreateExperimentOptions) (*apimodels.ExperimentURLs, error) {
	if opts.ExpUUID == "" {
		return nil, errors.New("experiment UUID not specified")
	}
	if len(opts.Workloads) == 0 {
		return nil, errors.New("no workloads specified")
	}
	info := requestInfo{
		method: http.MethodPost,
		target: targetGateway,
		path:   apimodels.RouteCreateSignedURLs,
		headers: map[string]string{
			apimodels.ChannelHeader:  c.channel,
			apimodels.ExpUUIDHeader:  opts.ExpUUID,
			apimodels.WorkloadHeader: strings.Join(opts.Workloads, ","),
			apimodels.CoreHeader:     opts.Core,
			apimodels.ActionHeader:   apimodels.ActionExperiment,
		},
	}
	resp, err := c.retryRequest(ctx, info, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "creating signed URLs for experiment '%s'", opts.ExpUUID)
	}
	defer resp.Body.Close()

	urls := &apimodels.ExperimentURLs{}
	if err := gimlet.GetJSON(resp.Body, urls); err != nil {
		return nil, errors.Wrap(err, "reading experiment URL reply")
	}
	return urls, nil
}

func (c *communicatorImpl) CreateReportURLs(ctx context.Context, expUUID string, config *apimodels.ReportConfig) (*apimodels.ReportURLs, error) {
	if expUUID == "" {
		return nil, errors.New("experiment UUID not specified")
	}
	if config == nil {
		return nil, errors.New("report config not specified")
	}
	info := requestInfo{
		method: http.MethodPost,
		target: targetGateway,
		path:   apimodels.RouteCreateSignedURLs,
		headers: map[string]string{
			apimodels.ChannelHeader: c.channel,
			apimodels.ExpUUIDHeader: expUUID,
			apimodels.ActionHeader:  apimodels.ActionReport,
		},
	}
	resp, err := c.retryRequest(ctx, info, config)
	if err != nil {
		return nil, errors.Wrapf(err, "creating signed URLs for report '%s'", config.ReportUUID)
	}
	defer resp.Body.Close()

	urls := &apimodels.ReportURLs{}
	if err := gimlet.GetJSON(resp.Body, urls); err != nil {
		return nil, errors.Wrap(err, "reading report URL reply")
	}
	return urls, nil
}

func (c *communicatorImpl) UploadJSON(ctx context.Context, url string, payload interface{}) error {
	out, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshalling upload payload")
	}

	r, err := http.NewRequest(http.MethodPut, url, bytes.NewReader(out))
	if err != nil {
		return errors.Wrap(err, "building upload request")
	}
	r.Header.Set(apimodels.ContentTypeHeader, apimodels.ContentTypeJSON)
	r.Header.Set(apimodels.ContentLengthHeader, strconv.Itoa(len(out)))

	resp, err := c.transferDo(ctx, r)
	if err != nil {
		return errors.Wrap(err, "uploading JSON payload")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Errorf("JSON upload returned %s: %s", resp.Status, responseSnippet(resp.Body))
	}
	return nil
}

func (c *communicatorImpl) UploadFile(ctx context.Context, url, path string) error {
	// The transfer client retries, so the body has to be rewindable.
	// Workload binaries are small enough to buffer whole.
	out, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading workload file '%s'", path)
	}

	r, err := http.NewRequest(http.MethodPut, url, bytes.NewReader(out))
	if err != nil {
		return errors.Wrap(err, "building upload request")
	}
	r.Header.Set(apimodels.ContentTypeHeader, apimodels.ContentTypeBinary)
	r.Header.Set(apimodels.ContentLengthHeader, strconv.Itoa(len(out)))

	resp, err := c.transferDo(ctx, r)
	if err != nil {
		return errors.Wrapf(err, "uploading file '%s'", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Errorf("upload of '%s' returned %s: %s", path, resp.Status, responseSnippet(resp.Body))
	}
	return nil
}

func (c *communicatorImpl) GetStatus(ctx context.Context, url string) (*apimodels.StatusResponse, error) {
	r, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building status request")
	}

	resp, err := c.doRequest(ctx, r)
	if err != nil {
		return nil, errors.Wrap(err, "getting status")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("status request returned %s: %s", resp.Status, responseSnippet(resp.Body))
	}

	status := &apimodels.StatusResponse{}
	if err := gimlet.GetJSON(resp.Body, status); err != nil {
		return nil, errors.Wrap(err, "reading status reply")
	}
	return status, nil
}

func (c *communicatorImpl) DownloadFile(ctx context.Context, url, path string) error {
	r, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "building download request")
	}

	resp, err := c.transferDo(ctx, r)
	if err != nil {
		return errors.Wrap(err, "downloading file")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("download returned %s: %s", resp.Status, responseSnippet(resp.Body))
	}
	return errors.Wrapf(util.WriteToFile(resp.Body, path), "writing download to '%s'", path)
}

func (c *communicatorImpl) transferDo(ctx context.Context, r *http.Request) (*http.Response, error) {
	var (
		response *http.Response
		err      error
	)

	r = r.WithContext(ctx)

	func() {
		c.mutex.RLock()
		defer c.mutex.RUnlock()
		response, err = c.transferClient.Do(r)
	}()

	if err != nil {
		return nil, errors.WithStack(err)
	}
	if response == nil {
		return nil, errors.New("received nil response")
	}
	return response, nil
}
