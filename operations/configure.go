package operations

import (
	"context"
	"fmt"

	atlasexplorer "github.com/MIPS/atlas-explorer-go"
	"github.com/MIPS/atlas-explorer-go/apimodels"
	"github.com/MIPS/atlas-explorer-go/rest/client"
	"github.com/MIPS/atlas-explorer-go/util"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

// Configure returns the command that checks credentials against the
// service and writes the settings file. Credentials not supplied as flags
// are collected interactively.
func Configure() cli.Command {
	const (
		apikeyFlagName  = "apikey"
		channelFlagName = "channel"
		regionFlagName  = "region"
	)

	return cli.Command{
		Name:    "configure",
		Aliases: []string{"config", "setup"},
		Usage:   "validate and store Atlas Explorer credentials",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  apikeyFlagName + ", k",
				Usage: "API key from your Atlas Explorer account page",
			},
			cli.StringFlag{
				Name:  channelFlagName,
				Usage: "channel to submit experiments to",
			},
			cli.StringFlag{
				Name:  regionFlagName,
				Usage: "region the channel is served from",
			},
		},
		Before: mergeBeforeFuncs(setPlainLogger, loadEnvFile),
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			return runConfigure(ctx, configureOptions{
				apikey:  c.String(apikeyFlagName),
				channel: c.String(channelFlagName),
				region:  c.String(regionFlagName),
				path:    c.Parent().String(confFlagName),
			})
		},
	}
}

type configureOptions struct {
	apikey  string
	channel string
	region  string

	// path is where the settings are written; empty selects the default
	// location under the user's home directory.
	path string
}

func runConfigure(ctx context.Context, opts configureOptions) error {
	apikey := opts.apikey
	if apikey == "" {
		apikey = prompt("Enter your Atlas Explorer API key:")
	}
	if apikey == "" {
		return errors.New("an API key is required")
	}

	comm := client.NewCommunicator(atlasexplorer.GlobalAPI(), apikey, "", "")
	defer comm.Close()

	validation, err := comm.ValidateAPIKey(ctx)
	if err != nil {
		return errors.Wrap(err, "validating API key")
	}
	if !validation.Valid {
		return errors.New("the service does not recognize this API key")
	}
	if validation.Owner != "" {
		fmt.Printf("API key accepted for %s\n", validation.Owner)
	}

	channels, err := comm.GetChannels(ctx)
	if err != nil {
		return errors.Wrap(err, "listing channels")
	}
	if len(channels.Channels) == 0 {
		return errors.New("no channels are available to this API key")
	}

	channel := opts.channel
	if channel == "" {
		channel = chooseOne("Select a channel:", channelNames(channels))
	}
	ch := channels.Get(channel)
	if ch == nil {
		return errors.Errorf("channel '%s' is not available to this API key", channel)
	}

	region := opts.region
	if region == "" {
		region = chooseOne("Select a region:", ch.Regions)
	}
	if !util.StringSliceContains(ch.Regions, region) {
		return errors.Errorf("channel '%s' is not served from region '%s'", channel, region)
	}

	settings, err := atlasexplorer.NewSettings(apikey, channel, region)
	if err != nil {
		return err
	}
	if err := settings.Write(opts.path); err != nil {
		return err
	}

	fmt.Printf("Wrote credentials to %s\n", settings.LoadedFrom)
	fmt.Printf("To configure environments without a settings file, set %s=%s\n",
		atlasexplorer.ConfigEnvVar, settings.Combined())
	return nil
}

func channelNames(channels *apimodels.ChannelList) []string {
	names := make([]string, 0, len(channels.Channels))
	for _, ch := range channels.Channels {
		names = append(names, ch.Name)
	}
	return names
}
