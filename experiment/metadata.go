package experiment

import (
	"os"
	"path/filepath"
	"time"

	atlasexplorer "github.com/MIPS/atlas-explorer-go"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Metadata is the record written into an experiment directory once a run
// finishes. It carries enough to reload the experiment without talking to
// the service again.
type Metadata struct {
	ID                string    `yaml:"id"`
	Status            string    `yaml:"status"`
	Core              string    `yaml:"core"`
	Workloads         []string  `yaml:"workloads"`
	StartedAt         time.Time `yaml:"started_at"`
	CompletedAt       time.Time `yaml:"completed_at"`
	TotalCycles       int64     `yaml:"total_cycles,omitempty"`
	TotalInstructions int64     `yaml:"total_instructions,omitempty"`

	// SummaryFile is the summary report path relative to the experiment
	// directory.
	SummaryFile string `yaml:"summary_file,omitempty"`
}

func (e *Experiment) writeMetadata(started, completed time.Time) error {
	dir := e.Dir()
	if dir == "" {
		return nil
	}

	e.mu.RLock()
	meta := Metadata{
		ID:          e.id,
		Status:      e.status,
		Core:        e.core,
		Workloads:   e.workloadNames(),
		StartedAt:   started.UTC(),
		CompletedAt: completed.UTC(),
	}
	if e.summary != nil {
		meta.TotalCycles = e.summary.TotalCycles()
		meta.TotalInstructions = e.summary.TotalInstructions()
		if rel, err := filepath.Rel(dir, e.summary.Path()); err == nil {
			meta.SummaryFile = rel
		}
	}
	e.mu.RUnlock()

	out, err := yaml.Marshal(meta)
	if err != nil {
		return errors.Wrap(err, "marshalling experiment metadata")
	}

	path := filepath.Join(dir, atlasexplorer.MetadataFilename)
	return errors.Wrapf(os.WriteFile(path, out, 0644), "writing experiment metadata to '%s'", path)
}

func readMetadata(dir string) (*Metadata, error) {
	path := filepath.Join(dir, atlasexplorer.MetadataFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading experiment metadata from '%s'", path)
	}

	meta := &Metadata{}
	if err := yaml.Unmarshal(data, meta); err != nil {
		return nil, errors.Wrapf(err, "parsing experiment metadata '%s'", path)
	}
	return meta, nil
}

// Load reopens an experiment from its directory. Completed experiments come
// back with their summary parsed and ready; they cannot be run again, but
// results remain readable offline.
func Load(dir string) (*Experiment, error) {
	meta, err := readMetadata(dir)
	if err != nil {
		return nil, err
	}

	e := &Experiment{
		rootDir:         filepath.Dir(dir),
		expDir:          dir,
		id:              meta.ID,
		core:            meta.Core,
		workloads:       meta.Workloads,
		logger:          atlasexplorer.NewProgressLogger(false),
		runTimeout:      atlasexplorer.DefaultRunTimeout,
		pollInterval:    atlasexplorer.DefaultPollInterval,
		pollIntervalMax: atlasexplorer.DefaultPollIntervalMax,
		status:          meta.Status,
	}

	if meta.Status == atlasexplorer.ExperimentCompleted {
		if meta.SummaryFile == "" {
			return nil, errors.Wrapf(ErrSummaryUnavailable, "metadata in '%s' lists no summary file", dir)
		}
		summary, err := LoadSummary(filepath.Join(dir, meta.SummaryFile))
		if err != nil {
			return nil, errors.Wrapf(ErrSummaryUnavailable, "%v", err)
		}
		e.summary = summary
	}
	return e, nil
}

// LoadWithSession is Load for callers that still hold a service session, so
// further reports can be generated from the reloaded experiment.
func LoadWithSession(dir string, atlas *atlasexplorer.AtlasExplorer, verbose bool) (*Experiment, error) {
	if atlas == nil {
		return nil, errors.New("session must not be nil")
	}

	e, err := Load(dir)
	if err != nil {
		return nil, err
	}
	e.comm = atlas.Communicator()
	e.logger = atlasexplorer.NewProgressLogger(verbose)
	e.verbose = verbose
	return e, nil
}
