package main

import (
	"os"

	atlasexplorer "github.com/MIPS/atlas-explorer-go"
	"github.com/MIPS/atlas-explorer-go/operations"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/level"
	"github.com/mongodb/grip/send"
	"github.com/urfave/cli"
)

func main() {
	app := buildApp()

	grip.EmergencyFatal(app.Run(os.Args))
}

func buildApp() *cli.App {
	app := cli.NewApp()
	app.Name = "atlasexplorer"
	app.Usage = "MIPS Atlas Explorer performance exploration client"
	app.Version = atlasexplorer.ClientVersion

	// Register sub-commands here.
	app.Commands = []cli.Command{
		operations.Version(),
		operations.Configure(),
		operations.Run(),
		operations.List(),
		operations.Summary(),
		operations.History(),
	}

	// These are global options. Use this to configure logging or
	// other options independent from specific sub commands.
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "level",
			Value: "info",
			Usage: "Specify lowest visible log level as string: 'emergency|alert|critical|error|warning|notice|info|debug|trace'",
		},
		cli.StringFlag{
			Name:  "conf, config, c",
			Usage: "specify the path for the settings file; defaults to ~/.config/mips/atlaspy/config.json",
		},
	}

	app.Before = func(c *cli.Context) error {
		return loggingSetup(app.Name, c.String("level"))
	}

	return app
}

func loggingSetup(name, l string) error {
	if err := grip.SetSender(send.MakeErrorLogger()); err != nil {
		return err
	}
	grip.SetName(name)

	sender := grip.GetSender()
	info := sender.Level()
	info.Threshold = level.FromString(l)

	return sender.SetLevel(info)
}
