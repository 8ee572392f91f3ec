package atlasexplorer

import "github.com/pkg/errors"

var (
	// ErrInvalidCredentialFormat marks a combined credential string that
	// does not split into "apikey:channel:region".
	ErrInvalidCredentialFormat = errors.New("credential string must have the form 'apikey:channel:region'")

	// ErrNoSettings means no credentials were supplied explicitly and none
	// could be found in the environment or on disk.
	ErrNoSettings = errors.New("no Atlas Explorer configuration found; run 'atlasexplorer configure' first")

	// ErrGatewayUnresolved means the global API accepted the credentials
	// but did not return a usable gateway endpoint for the channel/region
	// pair.
	ErrGatewayUnresolved = errors.New("no gateway endpoint resolved for channel and region")
)
