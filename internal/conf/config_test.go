package conf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() *Settings {
	s := &Settings{}
	s.Database.Labeler.SQLite.Enabled = true
	s.Database.Labeler.SQLite.Path = "labeler.db"
	s.Database.Platform.SQLite.Enabled = true
	s.Database.Platform.SQLite.Path = "platform.db"
	s.Locking.Duration = 5 * time.Minute
	s.Status.CacheTTL = 30 * time.Second
	s.Export.Path = "exports/"
	return s
}

func TestValidateSettingsAcceptsDefaults(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateSettings(validSettings()))
}

func TestValidateSettingsRejectsDualBackends(t *testing.T) {
	t.Parallel()

	s := validSettings()
	s.Database.Labeler.MySQL.Enabled = true
	err := ValidateSettings(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestValidateSettingsRejectsNoBackend(t *testing.T) {
	t.Parallel()

	s := validSettings()
	s.Database.Platform.SQLite.Enabled = false
	err := ValidateSettings(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no database backend enabled")
}

func TestValidateSettingsRejectsNonPositiveLockDuration(t *testing.T) {
	t.Parallel()

	s := validSettings()
	s.Locking.Duration = 0
	require.Error(t, ValidateSettings(s))
}

func TestSaveSettingsRoundTrip(t *testing.T) {
	t.Parallel()

	s := validSettings()
	s.Locking.Duration = 10 * time.Minute
	path := t.TempDir() + "/config.yaml"
	require.NoError(t, SaveSettings(s, path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, loaded.Locking.Duration)
	assert.True(t, loaded.Database.Labeler.SQLite.Enabled)
}

func TestLoadFileMissing(t *testing.T) {
	t.Parallel()

	_, err := LoadFile(t.TempDir() + "/nope.yaml")
	require.Error(t, err)
}
