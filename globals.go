package atlasexplorer

import "time"

const (
	// ClientVersion is the release version of the library and CLI.
	ClientVersion = "0.1.0"

	// PluginVersion is the client generation reported to the simulation
	// service in experiment and report configurations. The service gates
	// features on it and rejects clients it no longer supports.
	PluginVersion = "0.0.53"

	// ExtVersion is the compatibility marker sent with channel list
	// requests.
	ExtVersion = "0.0.24"

	// DefaultToolsVersion selects the simulator toolchain release on the
	// service side. "latest" tracks the newest deployed toolchain.
	DefaultToolsVersion = "latest"
)

const (
	// DefaultGlobalAPI is the Atlas Explorer global API endpoint, used to
	// validate credentials and to resolve the per-channel gateway that
	// experiments are submitted to.
	DefaultGlobalAPI = "https://gyrfalcon.api.mips.com"

	// GlobalAPIEnvVar overrides DefaultGlobalAPI when set. Intended for
	// staging environments and the in-process service used in tests.
	GlobalAPIEnvVar = "ATLAS_EXPLORER_API"

	// ConfigEnvVar carries combined credentials in the form
	// "apikey:channel:region" as an alternative to the settings file.
	ConfigEnvVar = "MIPS_ATLAS_CONFIG"
)

const (
	// SettingsFilename is the name of the on-disk settings file inside
	// the settings directory.
	SettingsFilename = "config.json"

	// HistoryFilename is the name of the local experiment history database
	// kept next to the settings file.
	HistoryFilename = "history.db"
)

// SettingsDirParts are the path components of the settings directory under
// the user's home directory.
var SettingsDirParts = []string{".config", "mips", "atlaspy"}

// Experiment lifecycle states. An experiment starts in ExperimentNotRun,
// spends Run inside ExperimentRunning, and finishes in exactly one of
// ExperimentCompleted or ExperimentFailed.
const (
	ExperimentNotRun    = "not-run"
	ExperimentRunning   = "running"
	ExperimentCompleted = "completed"
	ExperimentFailed    = "failed"
)

const (
	// TimestampLayout formats the timestamp component of experiment and
	// report identifiers, and names per-run experiment directories.
	TimestampLayout = "060102-150405"

	// MetadataFilename is written into an experiment directory once the
	// run completes, so the experiment can be reloaded without the
	// service.
	MetadataFilename = "metadata.yaml"
)

const (
	// DefaultRunTimeout bounds a single experiment run end to end,
	// including uploads, simulation, and report generation. Mirrors the
	// timeout the service itself applies to experiment configs.
	DefaultRunTimeout = 5 * time.Minute

	// DefaultPollInterval is the initial delay between status polls while
	// the service is generating results.
	DefaultPollInterval = 2 * time.Second

	// DefaultPollIntervalMax caps the poll backoff.
	DefaultPollIntervalMax = 30 * time.Second
)
