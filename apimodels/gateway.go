package apimodels

// Routes exposed by the Atlas Explorer global API. The global API owns
// credential checks and maps a channel/region pair onto the gateway that
// experiments are actually submitted to.
const (
	RouteValidateAPIKey   = "/validateapikey"
	RouteChannelList      = "/channellist"
	RouteUser             = "/user"
	RouteGatewayByChannel = "/gwbychannelregion"
)

// RouteCreateSignedURLs is served by gateways. It hands out the presigned
// upload/status/download URL bundle for one experiment or report.
const RouteCreateSignedURLs = "/createsignedurls"

// Credentials and request parameters ride in headers on every service call.
const (
	APIKeyHeader     = "apikey"
	ChannelHeader    = "channel"
	RegionHeader     = "region"
	ExtVersionHeader = "extversion"
	ExpUUIDHeader    = "exp-uuid"
	WorkloadHeader   = "workload"
	CoreHeader       = "core"
	ActionHeader     = "action"

	ContentTypeHeader   = "Content-Type"
	ContentLengthHeader = "Content-Length"
	ContentTypeJSON     = "application/json"
	ContentTypeBinary   = "application/octet-stream"
)

// Values for ActionHeader on RouteCreateSignedURLs requests.
const (
	ActionExperiment = "experiment"
	ActionReport     = "report"
)

// GatewayEndpoint is the response from RouteGatewayByChannel.
type GatewayEndpoint struct {
	Endpoint string `json:"endpoint"`
}

// APIKeyValidation is the response from RouteValidateAPIKey.
type APIKeyValidation struct {
	Valid bool   `json:"valid"`
	Owner string `json:"owner,omitempty"`
}

// Channel describes one service deployment a user's key has access to,
// with the regions it is served from and the core models it can simulate.
type Channel struct {
	Name    string   `json:"name"`
	Regions []string `json:"regions"`
	Cores   []string `json:"cores,omitempty"`
}

// ChannelList is the response from RouteChannelList.
type ChannelList struct {
	Channels []Channel `json:"channels"`
}

// HasChannel reports whether the named channel is present.
func (c *ChannelList) HasChannel(name string) bool {
	return c.Get(name) != nil
}

// HasRegion reports whether the named channel is served from the given
// region.
func (c *ChannelList) HasRegion(channel, region string) bool {
	ch := c.Get(channel)
	if ch == nil {
		return false
	}
	for _, r := range ch.Regions {
		if r == region {
			return true
		}
	}
	return false
}

// Get returns the named channel, or nil.
func (c *ChannelList) Get(name string) *Channel {
	for i := range c.Channels {
		if c.Channels[i].Name == name {
			return &c.Channels[i]
		}
	}
	return nil
}
