package atlasexplorer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/kardianos/osext"
	"github.com/mitchellh/go-homedir"
	"github.com/mongodb/grip"
	"github.com/pkg/errors"
)

// Settings holds the credentials a client is constructed from: the API key
// identifying the user, the channel selecting a service deployment, and the
// region the channel runs in. The zero value is not usable; construct one
// with NewSettings or LoadSettings.
//
// Settings are persisted as JSON in the user's settings directory, by
// default ~/.config/mips/atlaspy/config.json.
type Settings struct {
	APIKey  string `json:"apikey"`
	Channel string `json:"channel"`
	Region  string `json:"region"`

	// LoadedFrom records the file the settings were read from, if any.
	// It is not persisted.
	LoadedFrom string `json:"-"`
}

// NewSettings builds Settings from explicit credentials.
func NewSettings(apikey, channel, region string) (*Settings, error) {
	s := &Settings{APIKey: apikey, Channel: channel, Region: region}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// ParseCombined splits a combined "apikey:channel:region" credential string,
// the format accepted in the MIPS_ATLAS_CONFIG environment variable.
func ParseCombined(combined string) (*Settings, error) {
	parts := strings.Split(combined, ":")
	if len(parts) != 3 {
		return nil, errors.Wrapf(ErrInvalidCredentialFormat, "parsing credential string with %d field(s)", len(parts))
	}
	return NewSettings(parts[0], parts[1], parts[2])
}

// LoadSettings resolves credentials in order: an explicit file path, the
// MIPS_ATLAS_CONFIG environment variable, then the settings file in its
// default locations. The environment is consulted here only; nothing later
// in a client's lifetime reads it.
func LoadSettings(path string) (*Settings, error) {
	if path != "" {
		return readSettingsFile(path)
	}

	if combined := os.Getenv(ConfigEnvVar); combined != "" {
		s, err := ParseCombined(combined)
		return s, errors.Wrapf(err, "reading credentials from %s", ConfigEnvVar)
	}

	path, err := findSettingsPath()
	if err != nil {
		return nil, err
	}
	return readSettingsFile(path)
}

func readSettingsFile(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading settings file '%s'", path)
	}

	s := &Settings{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, errors.Wrapf(err, "reading JSON settings from '%s'", path)
	}
	s.LoadedFrom = path

	if err := s.Validate(); err != nil {
		return nil, errors.Wrapf(err, "settings file '%s'", path)
	}
	return s, nil
}

// findSettingsPath looks for the settings file in the default directory
// under the user's home, then next to the running executable.
func findSettingsPath() (string, error) {
	userHome, err := homedir.Dir()
	if err != nil {
		// workaround for cygwin if we're on windows but couldn't get a homedir
		if len(os.Getenv("HOME")) > 0 {
			userHome = os.Getenv("HOME")
		}
	}

	candidates := []string{}
	if userHome != "" {
		candidates = append(candidates, filepath.Join(userHome, settingsRelPath(SettingsFilename)))
	}
	if currentBinPath, err := osext.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(currentBinPath), SettingsFilename))
	}

	for _, path := range candidates {
		if isValidPath(path) {
			return path, nil
		}
	}

	return "", ErrNoSettings
}

func isValidPath(path string) bool {
	stat, err := os.Stat(path)
	if os.IsNotExist(err) || err != nil || stat.IsDir() {
		return false
	}
	return true
}

func settingsRelPath(filename string) string {
	return filepath.Join(append(append([]string{}, SettingsDirParts...), filename)...)
}

// DefaultSettingsPath returns the path the configure command writes to,
// creating no directories.
func DefaultSettingsPath() (string, error) {
	userHome, err := homedir.Dir()
	if err != nil {
		return "", errors.Wrap(err, "resolving home directory")
	}
	return filepath.Join(userHome, settingsRelPath(SettingsFilename)), nil
}

// DefaultHistoryPath returns where the CLI keeps its local run history
// database, next to the settings file.
func DefaultHistoryPath() (string, error) {
	userHome, err := homedir.Dir()
	if err != nil {
		return "", errors.Wrap(err, "resolving home directory")
	}
	return filepath.Join(userHome, settingsRelPath(HistoryFilename)), nil
}

// Validate checks that every credential field is populated.
func (s *Settings) Validate() error {
	catcher := grip.NewBasicCatcher()
	catcher.NewWhen(s.APIKey == "", "API key must not be empty")
	catcher.NewWhen(s.Channel == "", "channel must not be empty")
	catcher.NewWhen(s.Region == "", "region must not be empty")
	return catcher.Resolve()
}

// Combined renders the settings in the environment variable form.
func (s *Settings) Combined() string {
	return strings.Join([]string{s.APIKey, s.Channel, s.Region}, ":")
}

// Write persists the settings as JSON. An empty path writes back to the file
// the settings were loaded from, or to the default location for fresh
// settings. Parent directories are created as needed.
func (s *Settings) Write(path string) error {
	if path == "" {
		path = s.LoadedFrom
	}
	if path == "" {
		var err error
		if path, err = DefaultSettingsPath(); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "creating settings directory for '%s'", path)
	}

	data, err := json.MarshalIndent(s, "", "    ")
	if err != nil {
		return errors.Wrap(err, "marshalling settings")
	}

	if err := os.WriteFile(path, append(data, '\n'), 0600); err != nil {
		return errors.Wrapf(err, "writing settings file '%s'", path)
	}
	s.LoadedFrom = path
	return nil
}
