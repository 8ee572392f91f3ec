package operations

import (
	"fmt"

	atlasexplorer "github.com/MIPS/atlas-explorer-go"
	"github.com/urfave/cli"
)

// Version returns the command that prints the client version.
func Version() cli.Command {
	return cli.Command{
		Name:  "version",
		Usage: "prints the client version",
		Action: func(c *cli.Context) error {
			fmt.Printf("atlasexplorer client %s (plugin %s, extension %s)\n",
				atlasexplorer.ClientVersion, atlasexplorer.PluginVersion, atlasexplorer.ExtVersion)
			return nil
		},
	}
}
