package experiment

import (
	"debug/elf"
	"os"
	"path/filepath"
	"sync"
	"time"

	atlasexplorer "github.com/MIPS/atlas-explorer-go"
	"github.com/MIPS/atlas-explorer-go/rest/client"
	"github.com/mongodb/grip"
	"github.com/pkg/errors"
)

// Experiment is one simulation run: a set of workload binaries, a target
// core type, and, once Run has finished, the downloaded results under a
// per-run directory. Workloads and the core type are set up front; Run
// submits everything, blocks until the service finishes, and leaves the
// experiment read-only.
//
// AddWorkload and SetCore must not be called concurrently with Run.
// Status and Summary are safe to call from other goroutines.
type Experiment struct {
	rootDir string
	comm    client.Communicator
	logger  grip.Journaler
	verbose bool

	id        string
	expDir    string
	workloads []string
	core      string

	runTimeout      time.Duration
	pollInterval    time.Duration
	pollIntervalMax time.Duration

	mu      sync.RWMutex
	status  string
	summary *Summary
}

// New builds an experiment whose results land under rootDir, submitting
// work through the given session. The root directory is created if it does
// not exist yet.
func New(rootDir string, atlas *atlasexplorer.AtlasExplorer, verbose bool) (*Experiment, error) {
	if atlas == nil {
		return nil, errors.New("session must not be nil")
	}
	return NewWithCommunicator(rootDir, atlas.Communicator(), verbose)
}

// NewWithCommunicator is New for callers that already hold a service
// communicator, such as tests.
func NewWithCommunicator(rootDir string, comm client.Communicator, verbose bool) (*Experiment, error) {
	if rootDir == "" {
		return nil, errors.New("experiment root directory must not be empty")
	}
	if comm == nil {
		return nil, errors.New("communicator must not be nil")
	}
	if err := os.MkdirAll(rootDir, 0755); err != nil {
		return nil, errors.Wrapf(err, "creating experiment root directory '%s'", rootDir)
	}

	return &Experiment{
		rootDir:         rootDir,
		comm:            comm,
		logger:          atlasexplorer.NewProgressLogger(verbose),
		verbose:         verbose,
		runTimeout:      atlasexplorer.DefaultRunTimeout,
		pollInterval:    atlasexplorer.DefaultPollInterval,
		pollIntervalMax: atlasexplorer.DefaultPollIntervalMax,
		status:          atlasexplorer.ExperimentNotRun,
	}, nil
}

// AddWorkload appends a workload binary to the experiment. The path must
// point at an existing ELF file; on failure the workload set is left
// unchanged.
func (e *Experiment) AddWorkload(path string) error {
	stat, err := os.Stat(path)
	if os.IsNotExist(err) {
		return errors.Wrapf(ErrWorkloadMissing, "'%s'", path)
	}
	if err != nil {
		return errors.Wrapf(err, "checking workload '%s'", path)
	}
	if stat.IsDir() {
		return errors.Wrapf(ErrWorkloadMissing, "'%s' is a directory", path)
	}

	f, err := elf.Open(path)
	if err != nil {
		return errors.Wrapf(ErrNotELF, "'%s': %v", path, err)
	}
	f.Close()

	e.workloads = append(e.workloads, path)
	e.logger.Debugf("added workload '%s'", path)
	return nil
}

// SetCore records the core type the workloads are simulated on, such as
// "I8500_(1_thread)". The identifier is passed to the service as is.
func (e *Experiment) SetCore(core string) error {
	if core == "" {
		return errors.New("core type must not be empty")
	}
	e.core = core
	e.logger.Debugf("core type set to '%s'", core)
	return nil
}

// SetRunTimeout bounds how long Run may take end to end.
func (e *Experiment) SetRunTimeout(timeout time.Duration) { e.runTimeout = timeout }

// SetPollInterval adjusts the status poll cadence: the initial delay
// between polls and the cap the backoff grows toward.
func (e *Experiment) SetPollInterval(interval, max time.Duration) {
	e.pollInterval = interval
	e.pollIntervalMax = max
}

// ID returns the experiment identifier assigned when Run starts, or the
// empty string before that.
func (e *Experiment) ID() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.id
}

// Root returns the root directory experiment runs are created under.
func (e *Experiment) Root() string { return e.rootDir }

// Dir returns the per-run directory holding this experiment's results, or
// the empty string before Run starts.
func (e *Experiment) Dir() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.expDir
}

// Core returns the selected core type.
func (e *Experiment) Core() string { return e.core }

// Workloads returns a copy of the workload paths in the order added.
func (e *Experiment) Workloads() []string {
	out := make([]string, len(e.workloads))
	copy(out, e.workloads)
	return out
}

// Status returns the experiment's lifecycle state.
func (e *Experiment) Status() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

// Summary returns the run's result summary, or nil unless the experiment
// has completed.
func (e *Experiment) Summary() *Summary {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.status != atlasexplorer.ExperimentCompleted {
		return nil
	}
	return e.summary
}

func (e *Experiment) setStatus(status string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status = status
}

// workloadNames returns the base names of the workload paths, the form the
// service identifies workloads by.
func (e *Experiment) workloadNames() []string {
	names := make([]string, 0, len(e.workloads))
	for _, path := range e.workloads {
		names = append(names, filepath.Base(path))
	}
	return names
}

func mkdir(path string) error {
	return errors.Wrapf(os.MkdirAll(path, 0755), "creating directory '%s'", path)
}
