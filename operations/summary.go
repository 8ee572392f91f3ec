package operations

import (
	"fmt"
	"regexp"

	"github.com/MIPS/atlas-explorer-go/experiment"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

// Summary returns the command that reloads a past experiment from its
// directory and prints the stored summary metrics.
func Summary() cli.Command {
	const filterFlagName = "filter"

	return cli.Command{
		Name:      "summary",
		Usage:     "print the summary metrics of a past experiment",
		ArgsUsage: "<experiment directory>",
		Flags: addDirFlag("experiment directory to reload; may also be given as an argument",
			cli.StringFlag{
				Name:  filterFlagName,
				Usage: "only show metrics whose names match this regular expression",
			}),
		Before: setPlainLogger,
		Action: func(c *cli.Context) error {
			dir := c.String(dirFlagName)
			if dir == "" {
				dir = c.Args().First()
			}
			if dir == "" {
				return errors.New("an experiment directory must be specified")
			}

			var pattern *regexp.Regexp
			if filter := c.String(filterFlagName); filter != "" {
				var err error
				if pattern, err = regexp.Compile(filter); err != nil {
					return errors.Wrapf(err, "compiling metric filter '%s'", filter)
				}
			}

			exp, err := experiment.Load(dir)
			if err != nil {
				return err
			}

			summary := exp.Summary()
			if summary == nil {
				return errors.Wrapf(experiment.ErrSummaryUnavailable,
					"experiment '%s' finished with status '%s'", exp.ID(), exp.Status())
			}

			fmt.Printf("Results for experiment %s:\n\n", exp.ID())
			summary.PrintMetrics(pattern)
			return nil
		},
	}
}
