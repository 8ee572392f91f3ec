package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MIPS/atlas-explorer-go/apimodels"
	"github.com/jpillora/backoff"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

// requestTarget selects which base URL a request is issued against.
type requestTarget string

const (
	targetGlobal  requestTarget = "global"
	targetGateway requestTarget = "gateway"

	// responseSnippetLength bounds how much of an error response body is
	// carried into the returned error.
	responseSnippetLength = 512
)

type requestInfo struct {
	method  string
	target  requestTarget
	path    string
	headers map[string]string
}

func (r *requestInfo) validateRequestInfo() error {
	switch r.method {
	case http.MethodGet, http.MethodPost, http.MethodPut:
	default:
		return errors.Errorf("invalid request method '%s'", r.method)
	}
	if r.path == "" {
		return errors.New("request path not specified")
	}
	if r.target != targetGlobal && r.target != targetGateway {
		return errors.Errorf("invalid request target '%s'", r.target)
	}
	return nil
}

func (c *communicatorImpl) baseURL(target requestTarget) (string, error) {
	if target == targetGateway {
		gw := c.Gateway()
		if gw == "" {
			return "", errors.New("gateway endpoint has not been resolved")
		}
		return gw, nil
	}
	return c.globalURL, nil
}

func (c *communicatorImpl) newRequest(info requestInfo, body io.Reader) (*http.Request, error) {
	base, err := c.baseURL(info.target)
	if err != nil {
		return nil, err
	}
	url := strings.TrimSuffix(base, "/") + info.path

	r, err := http.NewRequest(info.method, url, body)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	r.Header.Set(apimodels.APIKeyHeader, c.apikey)
	for k, v := range info.headers {
		r.Header.Set(k, v)
	}
	return r, nil
}

func (c *communicatorImpl) createRequest(info requestInfo, data interface{}) (*http.Request, []byte, error) {
	if err := info.validateRequestInfo(); err != nil {
		return nil, nil, errors.WithStack(err)
	}

	var out []byte
	var body io.Reader
	if data != nil {
		var err error
		out, err = json.Marshal(data)
		if err != nil {
			return nil, nil, errors.Wrap(err, "marshalling request body")
		}
		body = bytes.NewReader(out)
	}

	r, err := c.newRequest(info, body)
	if err != nil {
		return nil, nil, errors.WithStack(err)
	}
	if data != nil {
		r.Header.Set(apimodels.ContentTypeHeader, apimodels.ContentTypeJSON)
		r.Header.Set(apimodels.ContentLengthHeader, strconv.Itoa(len(out)))
	}
	return r, out, nil
}

// request makes a single attempt at the described request. Callers own the
// response body and the interpretation of its status code.
func (c *communicatorImpl) request(ctx context.Context, info requestInfo, data interface{}) (*http.Response, error) {
	r, _, err := c.createRequest(info, data)
	if err != nil {
		return nil, err
	}
	return c.doRequest(ctx, r)
}

func (c *communicatorImpl) doRequest(ctx context.Context, r *http.Request) (*http.Response, error) {
	var (
		response *http.Response
		err      error
	)

	r = r.WithContext(ctx)

	func() {
		c.mutex.RLock()
		defer c.mutex.RUnlock()
		response, err = c.httpClient.Do(r)
	}()

	if err != nil {
		c.resetClients()
		return nil, errors.WithStack(err)
	}
	if response == nil {
		return nil, errors.New("received nil response")
	}
	return response, nil
}

// retryRequest makes the described request until it gets a 200, runs out
// of attempts, or hits a 4xx, which is terminal and reported with a
// snippet of the response body. Transport errors and 5xx responses are
// retried on an exponential backoff.
func (c *communicatorImpl) retryRequest(ctx context.Context, info requestInfo, data interface{}) (*http.Response, error) {
	r, out, err := c.createRequest(info, data)
	if err != nil {
		return nil, err
	}

	var dur time.Duration
	timer := time.NewTimer(0)
	defer timer.Stop()
	b := c.getBackoff()
	for i := 1; i <= c.maxAttempts; i++ {
		select {
		case <-ctx.Done():
			return nil, errors.Wrapf(ctx.Err(), "canceled request to '%s'", info.path)
		case <-timer.C:
			if out != nil {
				r.Body = io.NopCloser(bytes.NewReader(out))
			}
			resp, err := c.doRequest(ctx, r)
			if err != nil {
				grip.Warning(message.WrapError(err, message.Fields{
					"message":   "error response from atlas API",
					"attempt":   i,
					"max":       c.maxAttempts,
					"path":      info.path,
					"wait_secs": dur.Seconds(),
				}))
			} else if resp.StatusCode == http.StatusOK {
				return resp, nil
			} else if resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError {
				snippet := responseSnippet(resp.Body)
				resp.Body.Close()
				return nil, errors.Errorf("atlas API returned %s for '%s': %s", resp.Status, info.path, snippet)
			} else {
				grip.Debug(message.Fields{
					"message": "unexpected status from atlas API",
					"status":  resp.Status,
					"attempt": i,
					"max":     c.maxAttempts,
					"path":    info.path,
				})
				resp.Body.Close()
			}
			dur = b.Duration()
			timer.Reset(dur)
		}
	}
	return nil, errors.Errorf("request to '%s' failed after %d attempts", info.path, c.maxAttempts)
}

func (c *communicatorImpl) getBackoff() *backoff.Backoff {
	return &backoff.Backoff{
		Min:    c.timeoutStart,
		Max:    c.timeoutMax,
		Factor: 2,
		Jitter: true,
	}
}

func responseSnippet(body io.Reader) string {
	snippet, _ := io.ReadAll(io.LimitReader(body, responseSnippetLength))
	return strings.TrimSpace(string(snippet))
}
