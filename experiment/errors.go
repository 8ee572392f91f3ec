package experiment

import "github.com/pkg/errors"

var (
	// ErrNoWorkloads means Run was called before any workload was added.
	ErrNoWorkloads = errors.New("experiment has no workloads")

	// ErrNoCore means Run was called before a core type was selected.
	ErrNoCore = errors.New("experiment has no core type set")

	// ErrWorkloadMissing marks a workload path that does not point at an
	// existing file.
	ErrWorkloadMissing = errors.New("workload file does not exist")

	// ErrNotELF marks a workload file that is not a valid ELF binary.
	ErrNotELF = errors.New("workload file is not an ELF binary")

	// ErrRunFailed wraps every failure of a started run, whether the
	// service reported an error or the run timed out. Preflight failures
	// such as ErrNoWorkloads are reported as themselves instead.
	ErrRunFailed = errors.New("experiment run failed")

	// ErrSummaryUnavailable means an experiment directory claims a
	// completed run but its summary artifacts cannot be loaded.
	ErrSummaryUnavailable = errors.New("experiment summary is not available")
)
