package atlasexplorer

import (
	"context"
	"os"

	"github.com/MIPS/atlas-explorer-go/apimodels"
	"github.com/MIPS/atlas-explorer-go/rest/client"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/level"
	"github.com/mongodb/grip/logging"
	"github.com/mongodb/grip/send"
	"github.com/pkg/errors"
)

// AtlasExplorer is a session against one Atlas Explorer deployment. The
// constructor checks the credentials it is given and resolves the gateway
// serving the configured channel and region; the session stays pinned to
// that gateway for its lifetime. Sessions are safe for concurrent use.
type AtlasExplorer struct {
	settings *Settings
	comm     client.Communicator
	logger   grip.Journaler
	verbose  bool
}

// New builds a session from explicit credentials and resolves its gateway.
// With verbose set, progress messages are written to standard output as the
// session and its experiments do their work.
func New(ctx context.Context, apikey, channel, region string, verbose bool) (*AtlasExplorer, error) {
	settings, err := NewSettings(apikey, channel, region)
	if err != nil {
		return nil, err
	}
	return NewWithSettings(ctx, settings, verbose)
}

// NewFromEnvironment builds a session from stored credentials, consulting
// the MIPS_ATLAS_CONFIG environment variable and then the settings file in
// its default locations.
func NewFromEnvironment(ctx context.Context, verbose bool) (*AtlasExplorer, error) {
	settings, err := LoadSettings("")
	if err != nil {
		return nil, err
	}
	return NewWithSettings(ctx, settings, verbose)
}

// NewWithSettings builds a session from already-resolved settings.
func NewWithSettings(ctx context.Context, settings *Settings, verbose bool) (*AtlasExplorer, error) {
	if settings == nil {
		return nil, errors.New("settings must not be nil")
	}
	if err := settings.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid credentials")
	}

	comm := client.NewCommunicator(GlobalAPI(), settings.APIKey, settings.Channel, settings.Region)
	a := &AtlasExplorer{
		settings: settings,
		comm:     comm,
		logger:   NewProgressLogger(verbose),
		verbose:  verbose,
	}

	a.logger.Debugf("resolving gateway for channel '%s' in region '%s'", settings.Channel, settings.Region)
	gw, err := comm.ResolveGateway(ctx)
	if err != nil {
		comm.Close()
		return nil, errors.Wrap(err, "setting up gateway")
	}
	if gw == "" {
		comm.Close()
		return nil, errors.Wrapf(ErrGatewayUnresolved, "channel '%s', region '%s'", settings.Channel, settings.Region)
	}
	comm.SetGateway(gw)
	a.logger.Debugf("gateway set to '%s'", gw)

	return a, nil
}

// Settings returns the credentials the session was built from.
func (a *AtlasExplorer) Settings() *Settings { return a.settings }

// Gateway returns the resolved gateway endpoint.
func (a *AtlasExplorer) Gateway() string { return a.comm.Gateway() }

// Communicator exposes the underlying service client.
func (a *AtlasExplorer) Communicator() client.Communicator { return a.comm }

// Logger returns the session's progress logger.
func (a *AtlasExplorer) Logger() grip.Journaler { return a.logger }

// Verbose reports whether the session was built with progress output on.
func (a *AtlasExplorer) Verbose() bool { return a.verbose }

// ValidateAPIKey checks the session's API key against the global API.
func (a *AtlasExplorer) ValidateAPIKey(ctx context.Context) (*apimodels.APIKeyValidation, error) {
	return a.comm.ValidateAPIKey(ctx)
}

// UserValid reports whether the session's API key identifies a known user.
func (a *AtlasExplorer) UserValid(ctx context.Context) (bool, error) {
	return a.comm.UserValid(ctx)
}

// Channels fetches the channels, regions, and core types available to the
// session's API key.
func (a *AtlasExplorer) Channels(ctx context.Context) (*apimodels.ChannelList, error) {
	return a.comm.GetChannels(ctx)
}

// Close releases the session's network resources.
func (a *AtlasExplorer) Close() { a.comm.Close() }

// GlobalAPI returns the base URL of the global API, honoring the
// ATLAS_EXPLORER_API environment override.
func GlobalAPI() string {
	if url := os.Getenv(GlobalAPIEnvVar); url != "" {
		return url
	}
	return DefaultGlobalAPI
}

// NewProgressLogger returns a journaler for user-facing progress output,
// written plain to standard output. Progress detail is logged at debug and
// info priority, so with verbose off only notices and worse get through.
func NewProgressLogger(verbose bool) grip.Journaler {
	sender := send.MakePlainLogger()
	sender.SetName("atlas")
	info := sender.Level()
	info.Default = level.Info
	info.Threshold = level.Notice
	if verbose {
		info.Threshold = level.Debug
	}
	grip.Error(errors.Wrap(sender.SetLevel(info), "setting progress log threshold"))

	return logging.MakeGrip(sender)
}
