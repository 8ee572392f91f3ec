package operations

import (
	"fmt"
	"strings"

	atlasexplorer "github.com/MIPS/atlas-explorer-go"
	"github.com/MIPS/atlas-explorer-go/history"
	"github.com/cheynewallace/tabby"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

// History returns the command group for the locally recorded experiment
// runs.
func History() cli.Command {
	return cli.Command{
		Name:  "history",
		Usage: "inspect experiment runs recorded on this machine",
		Subcommands: []cli.Command{
			historyList(),
			historyClear(),
		},
	}
}

func historyList() cli.Command {
	const limitFlagName = "limit"

	return cli.Command{
		Name:  "list",
		Usage: "show recorded runs, newest first",
		Flags: []cli.Flag{
			cli.IntFlag{
				Name:  limitFlagName + ", n",
				Value: 20,
				Usage: "maximum number of runs to show; 0 shows all",
			},
		},
		Before: setPlainLogger,
		Action: func(c *cli.Context) error {
			store, err := openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.List()
			if err != nil {
				return err
			}
			if limit := c.Int(limitFlagName); limit > 0 && len(records) > limit {
				records = records[:limit]
			}
			if len(records) == 0 {
				fmt.Println("no recorded runs")
				return nil
			}

			t := tabby.New()
			t.AddHeader("STARTED", "CORE", "WORKLOADS", "CYCLES", "STATUS")
			for _, r := range records {
				cycles := ""
				if r.TotalCycles > 0 {
					cycles = humanize.Comma(r.TotalCycles)
				}
				t.AddLine(r.StartedAt.Format("2006-01-02 15:04:05"), r.Core, strings.Join(r.Workloads, ", "), cycles, r.Status)
			}
			t.Print()
			return nil
		},
	}
}

func historyClear() cli.Command {
	const yesFlagName = "yes"

	return cli.Command{
		Name:  "clear",
		Usage: "delete every recorded run",
		Flags: []cli.Flag{
			cli.BoolFlag{
				Name:  yesFlagName + ", y",
				Usage: "skip the confirmation prompt",
			},
		},
		Before: setPlainLogger,
		Action: func(c *cli.Context) error {
			if !c.Bool(yesFlagName) && !confirm("Delete all recorded runs?", false) {
				return nil
			}

			store, err := openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			return store.Clear()
		},
	}
}

func openHistory() (*history.Store, error) {
	path, err := atlasexplorer.DefaultHistoryPath()
	if err != nil {
		return nil, errors.Wrap(err, "resolving history database path")
	}
	return history.Open(path)
}
