package client

import (
	"net/http"
	"sync"
	"time"

	"github.com/MIPS/atlas-explorer-go/util"
)

const (
	defaultMaxAttempts  = 10
	defaultTimeoutStart = time.Second * 2
	defaultTimeoutMax   = time.Minute * 2

	// atlasExtVersion identifies this client generation to the channel
	// list route, which filters channels by tool compatibility.
	atlasExtVersion = "0.0.24"
)

// communicatorImpl implements Communicator against a live Atlas Explorer
// deployment. API requests go through the plain pooled client and are
// retried by retryRequest; signed URL transfers go through a client whose
// transport retries transient failures on its own.
type communicatorImpl struct {
	globalURL string
	apikey    string
	channel   string
	region    string

	maxAttempts  int
	timeoutStart time.Duration
	timeoutMax   time.Duration

	gateway        string
	httpClient     *http.Client
	transferClient *http.Client
	mutex          sync.RWMutex
}

// NewCommunicator returns a Communicator for the global API at globalURL,
// authenticating every request with the given credentials. The gateway
// endpoint is unset until the caller resolves one.
func NewCommunicator(globalURL, apikey, channel, region string) Communicator {
	c := &communicatorImpl{
		maxAttempts:  defaultMaxAttempts,
		timeoutStart: defaultTimeoutStart,
		timeoutMax:   defaultTimeoutMax,
		globalURL:    globalURL,
		apikey:       apikey,
		channel:      channel,
		region:       region,
	}
	c.resetClients()
	return c
}

func (c *communicatorImpl) resetClients() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.httpClient != nil {
		util.PutHTTPClient(c.httpClient)
	}
	if c.transferClient != nil {
		util.PutHTTPClient(c.transferClient)
	}
	c.httpClient = util.GetHTTPClient()
	c.transferClient = util.GetDefaultHTTPRetryableClient()
}

// Close returns the underlying HTTP clients to the shared pool.
func (c *communicatorImpl) Close() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	util.PutHTTPClient(c.httpClient)
	util.PutHTTPClient(c.transferClient)
	c.httpClient = nil
	c.transferClient = nil
}

func (c *communicatorImpl) SetTimeoutStart(timeoutStart time.Duration) {
	c.timeoutStart = timeoutStart
}

func (c *communicatorImpl) SetTimeoutMax(timeoutMax time.Duration) {
	c.timeoutMax = timeoutMax
}

func (c *communicatorImpl) SetMaxAttempts(attempts int) {
	c.maxAttempts = attempts
}

func (c *communicatorImpl) SetGateway(endpoint string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.gateway = endpoint
}

func (c *communicatorImpl) Gateway() string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.gateway
}
