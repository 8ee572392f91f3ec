package operations

import (
	"github.com/urfave/cli"
)

const (
	confFlagName    = "conf"
	dirFlagName     = "dir"
	coreFlagName    = "core"
	verboseFlagName = "verbose"
)

func addCoreFlag(flags ...cli.Flag) []cli.Flag {
	return append(flags, cli.StringFlag{
		Name:  coreFlagName,
		Usage: "core type to simulate on, e.g. 'I8500_(1_thread)'",
	})
}

func addDirFlag(usage string, flags ...cli.Flag) []cli.Flag {
	return append(flags, cli.StringFlag{
		Name:  dirFlagName + ", d",
		Usage: usage,
	})
}

func addVerboseFlag(flags ...cli.Flag) []cli.Flag {
	return append(flags, cli.BoolFlag{
		Name:  verboseFlagName,
		Usage: "print progress detail while the service works",
	})
}
