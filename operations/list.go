package operations

import (
	"context"
	"strings"

	atlasexplorer "github.com/MIPS/atlas-explorer-go"
	"github.com/MIPS/atlas-explorer-go/rest/client"
	"github.com/cheynewallace/tabby"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

// List returns the command that displays the channels, regions, and core
// types the configured API key has access to.
func List() cli.Command {
	const (
		channelsFlagName = "channels"
		coresFlagName    = "cores"
		channelFlagName  = "channel"
	)

	return cli.Command{
		Name:  "list",
		Usage: "display channels and core types available to your API key",
		Flags: []cli.Flag{
			cli.BoolFlag{
				Name:  channelsFlagName,
				Usage: "list the channels your API key can submit to",
			},
			cli.BoolFlag{
				Name:  coresFlagName,
				Usage: "list the core types a channel can simulate",
			},
			cli.StringFlag{
				Name:  channelFlagName,
				Usage: "channel to list cores for; defaults to the configured one",
			},
		},
		Before: mergeBeforeFuncs(setPlainLogger, loadEnvFile, requireOnlyOneBool(channelsFlagName, coresFlagName)),
		Action: func(c *cli.Context) error {
			confPath := c.Parent().String(confFlagName)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			switch {
			case c.Bool(channelsFlagName):
				return listChannels(ctx, confPath)
			case c.Bool(coresFlagName):
				return listCores(ctx, confPath, c.String(channelFlagName))
			}
			return errors.New("this code should not be reachable")
		},
	}
}

// newGlobalCommunicator builds a communicator for global API calls, which
// need credentials but no resolved gateway.
func newGlobalCommunicator(confPath string) (client.Communicator, error) {
	settings, err := atlasexplorer.LoadSettings(confPath)
	if err != nil {
		return nil, errors.Wrap(err, "loading credentials; run 'configure' first")
	}
	return client.NewCommunicator(atlasexplorer.GlobalAPI(), settings.APIKey, settings.Channel, settings.Region), nil
}

func listChannels(ctx context.Context, confPath string) error {
	comm, err := newGlobalCommunicator(confPath)
	if err != nil {
		return err
	}
	defer comm.Close()

	channels, err := comm.GetChannels(ctx)
	if err != nil {
		return errors.Wrap(err, "listing channels")
	}

	t := tabby.New()
	t.AddHeader("CHANNEL", "REGIONS")
	for _, ch := range channels.Channels {
		t.AddLine(ch.Name, strings.Join(ch.Regions, ", "))
	}
	t.Print()
	return nil
}

func listCores(ctx context.Context, confPath, channel string) error {
	settings, err := atlasexplorer.LoadSettings(confPath)
	if err != nil {
		return errors.Wrap(err, "loading credentials; run 'configure' first")
	}
	if channel == "" {
		channel = settings.Channel
	}

	comm := client.NewCommunicator(atlasexplorer.GlobalAPI(), settings.APIKey, settings.Channel, settings.Region)
	defer comm.Close()

	channels, err := comm.GetChannels(ctx)
	if err != nil {
		return errors.Wrap(err, "listing channels")
	}
	ch := channels.Get(channel)
	if ch == nil {
		return errors.Errorf("channel '%s' is not available to this API key", channel)
	}

	t := tabby.New()
	t.AddHeader("CORE")
	for _, core := range ch.Cores {
		t.AddLine(core)
	}
	t.Print()
	return nil
}
