package operations

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	atlasexplorer "github.com/MIPS/atlas-explorer-go"
	"github.com/MIPS/atlas-explorer-go/experiment"
	"github.com/MIPS/atlas-explorer-go/history"
	"github.com/mongodb/grip"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

// Run returns the command that submits an experiment, waits for the
// simulation to finish, and prints the summary metrics.
func Run() cli.Command {
	const (
		workloadFlagName  = "workload"
		timeoutFlagName   = "timeout"
		reportFlagName    = "report"
		noHistoryFlagName = "no-history"
	)

	return cli.Command{
		Name:      "run",
		Usage:     "submit an experiment and wait for its results",
		ArgsUsage: "[workload.elf ...]",
		Flags: addCoreFlag(addVerboseFlag(addDirFlag("directory experiment results are stored under",
			cli.StringSliceFlag{
				Name:  workloadFlagName + ", w",
				Usage: "path to a workload ELF; may be specified more than once",
			},
			cli.DurationFlag{
				Name:  timeoutFlagName,
				Value: atlasexplorer.DefaultRunTimeout,
				Usage: "bound on the whole run, including uploads and simulation",
			},
			cli.StringSliceFlag{
				Name:  reportFlagName,
				Usage: "additional report type to generate after the run; may be specified more than once",
			},
			cli.BoolFlag{
				Name:  noHistoryFlagName,
				Usage: "skip recording the run in the local history database",
			})...)...),
		Before: mergeBeforeFuncs(setPlainLogger, loadEnvFile, requireStringFlag(coreFlagName)),
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			workloads := append(c.StringSlice(workloadFlagName), c.Args()...)
			dir := c.String(dirFlagName)
			if dir == "" {
				dir = "myexperiments"
			}

			opts := runOptions{
				confPath:  c.Parent().String(confFlagName),
				dir:       dir,
				core:      c.String(coreFlagName),
				workloads: workloads,
				timeout:   c.Duration(timeoutFlagName),
				reports:   c.StringSlice(reportFlagName),
				verbose:   c.Bool(verboseFlagName),
			}
			if !c.Bool(noHistoryFlagName) {
				path, err := atlasexplorer.DefaultHistoryPath()
				if err != nil {
					return errors.Wrap(err, "resolving history database path")
				}
				opts.historyPath = path
			}

			return runExperiment(ctx, opts)
		},
	}
}

type runOptions struct {
	confPath  string
	dir       string
	core      string
	workloads []string
	timeout   time.Duration
	reports   []string
	verbose   bool

	// historyPath is where the run is recorded; empty disables recording.
	historyPath string
}

func runExperiment(ctx context.Context, opts runOptions) error {
	if len(opts.workloads) == 0 {
		return experiment.ErrNoWorkloads
	}

	atlas, err := newSession(ctx, opts.confPath, opts.verbose)
	if err != nil {
		return err
	}
	defer atlas.Close()

	exp, err := experiment.New(opts.dir, atlas, opts.verbose)
	if err != nil {
		return err
	}
	for _, path := range opts.workloads {
		if err := exp.AddWorkload(path); err != nil {
			return err
		}
	}
	if err := exp.SetCore(opts.core); err != nil {
		return err
	}
	if opts.timeout > 0 {
		exp.SetRunTimeout(opts.timeout)
	}

	started := time.Now()
	runErr := exp.Run(ctx)
	recordRun(opts.historyPath, exp, started)
	if runErr != nil {
		return runErr
	}

	summary := exp.Summary()
	if summary != nil {
		fmt.Printf("\nResults for experiment %s:\n\n", exp.ID())
		summary.PrintMetrics(nil)
	}

	for _, reportType := range opts.reports {
		paths, err := exp.GenerateReport(ctx, reportType)
		if err != nil {
			return errors.Wrapf(err, "generating %s report", reportType)
		}
		for _, path := range paths {
			fmt.Printf("wrote %s\n", path)
		}
	}

	return nil
}

// newSession builds a client session from the settings file the global
// --conf flag points at, falling back to the environment and the default
// settings locations.
func newSession(ctx context.Context, confPath string, verbose bool) (*atlasexplorer.AtlasExplorer, error) {
	settings, err := atlasexplorer.LoadSettings(confPath)
	if err != nil {
		return nil, errors.Wrap(err, "loading credentials; run 'configure' first")
	}
	return atlasexplorer.NewWithSettings(ctx, settings, verbose)
}

// recordRun saves the run to the local history database. Failures to
// record never fail the run itself.
func recordRun(historyPath string, exp *experiment.Experiment, startedAt time.Time) {
	if historyPath == "" || exp.ID() == "" {
		return
	}

	store, err := history.Open(historyPath)
	if err != nil {
		grip.Warning(errors.Wrap(err, "opening run history"))
		return
	}
	defer store.Close()

	record := history.Record{
		ID:        exp.ID(),
		Dir:       exp.Dir(),
		Core:      exp.Core(),
		Status:    exp.Status(),
		StartedAt: startedAt,
	}
	for _, path := range exp.Workloads() {
		record.Workloads = append(record.Workloads, filepath.Base(path))
	}
	if summary := exp.Summary(); summary != nil {
		record.TotalCycles = summary.TotalCycles()
		record.TotalInstructions = summary.TotalInstructions()
	}

	grip.Warning(errors.Wrap(store.Save(record), "recording run history"))
}
