package atlasexplorer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCombined(t *testing.T) {
	t.Run("ValidString", func(t *testing.T) {
		s, err := ParseCombined("key123:release:us-west-2")
		require.NoError(t, err)
		assert.Equal(t, "key123", s.APIKey)
		assert.Equal(t, "release", s.Channel)
		assert.Equal(t, "us-west-2", s.Region)
	})
	t.Run("MissingField", func(t *testing.T) {
		_, err := ParseCombined("key123:release")
		assert.True(t, errors.Is(err, ErrInvalidCredentialFormat))
	})
	t.Run("TooManyFields", func(t *testing.T) {
		_, err := ParseCombined("key123:release:us-west-2:extra")
		assert.True(t, errors.Is(err, ErrInvalidCredentialFormat))
	})
	t.Run("EmptyFields", func(t *testing.T) {
		_, err := ParseCombined("::")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "API key must not be empty")
	})
}

func TestSettingsValidate(t *testing.T) {
	s := &Settings{APIKey: "key123", Channel: "release", Region: "us-west-2"}
	assert.NoError(t, s.Validate())

	s.Region = ""
	err := s.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "region must not be empty")
}

func TestSettingsCombined(t *testing.T) {
	s := &Settings{APIKey: "key123", Channel: "release", Region: "us-west-2"}
	assert.Equal(t, "key123:release:us-west-2", s.Combined())
}

func TestLoadSettingsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), SettingsFilename)
	require.NoError(t, os.WriteFile(path, []byte(`{
    "apikey": "key123",
    "channel": "release",
    "region": "us-west-2"
}`), 0600))

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "key123", s.APIKey)
	assert.Equal(t, "release", s.Channel)
	assert.Equal(t, "us-west-2", s.Region)
	assert.Equal(t, path, s.LoadedFrom)
}

func TestLoadSettingsRejectsIncompleteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), SettingsFilename)
	require.NoError(t, os.WriteFile(path, []byte(`{"apikey": "key123"}`), 0600))

	_, err := LoadSettings(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel must not be empty")
}

func TestLoadSettingsFromEnvironment(t *testing.T) {
	t.Run("ValidCredentials", func(t *testing.T) {
		t.Setenv(ConfigEnvVar, "key123:release:us-west-2")
		s, err := LoadSettings("")
		require.NoError(t, err)
		assert.Equal(t, "key123", s.APIKey)
		assert.Empty(t, s.LoadedFrom)
	})
	t.Run("MalformedCredentials", func(t *testing.T) {
		t.Setenv(ConfigEnvVar, "justakey")
		_, err := LoadSettings("")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidCredentialFormat))
	})
}

func TestSettingsWriteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", SettingsFilename)
	s := &Settings{APIKey: "key123", Channel: "release", Region: "us-west-2"}
	require.NoError(t, s.Write(path))
	assert.Equal(t, path, s.LoadedFrom)

	stat, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), stat.Mode().Perm())

	loaded, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, s.APIKey, loaded.APIKey)
	assert.Equal(t, s.Channel, loaded.Channel)
	assert.Equal(t, s.Region, loaded.Region)
}
