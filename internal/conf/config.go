// config.go: settings for the labeler backend. Defines the Settings struct
// and the functions that load it from file and environment.
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// LogConfig defines the configuration for a log file
type LogConfig struct {
	Enabled    bool   // true to enable this log
	Path       string // path to log file
	MaxSizeMB  int    // maximum size in MB before rotation
	MaxBackups int    // number of rotated files to keep
	MaxAgeDays int    // maximum age of rotated files in days
}

// SQLiteConfig holds SQLite database settings
type SQLiteConfig struct {
	Enabled bool   // true to use SQLite
	Path    string // path to SQLite database file
}

// MySQLConfig holds MySQL database settings
type MySQLConfig struct {
	Enabled  bool   // true to use MySQL
	Username string // MySQL username
	Password string // MySQL password
	Host     string // MySQL host
	Port     string // MySQL port
	Database string // MySQL database name
}

// DatabaseConfig selects and configures one database backend
type DatabaseConfig struct {
	SQLite SQLiteConfig
	MySQL  MySQLConfig
}

// LockingSettings controls the image lock manager
type LockingSettings struct {
	Duration time.Duration // exclusive editing lease length
}

// StatusSettings controls the image status aggregator
type StatusSettings struct {
	CacheTTL time.Duration // rollup read-cache TTL, 0 disables caching
}

// ExportSettings controls version publishing exports
type ExportSettings struct {
	Path          string // directory for export artifacts (disk object store)
	DefaultFormat string // export format used when none is requested
	PresignTTL    time.Duration
}

// Settings contains all runtime configuration, loaded once at startup and
// passed by injection into each component constructor.
type Settings struct {
	Debug bool // true to enable debug mode

	Main struct {
		Name string    // application name
		Log  LogConfig // main log file settings
	}

	Database struct {
		// Labeler is the read-write store for annotation state.
		Labeler DatabaseConfig
		// Platform is the read-only store for datasets and users.
		Platform DatabaseConfig
	}

	Locking LockingSettings
	Status  StatusSettings
	Export  ExportSettings
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration into a Settings struct. Search paths and
// environment overrides are set up by initViper.
func Load() (*Settings, error) {
	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsMutex.Lock()
	settingsInstance = settings
	settingsMutex.Unlock()
	return settings, nil
}

// initViper initializes viper with config file search paths and defaults
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	viper.SetEnvPrefix("LABELER")
	viper.AutomaticEnv()

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !asConfigFileNotFound(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// No config file is fine, defaults and env vars apply.
	}
	return nil
}

// LoadFile loads settings from an explicit config file path instead of the
// default search paths. The file must exist.
func LoadFile(path string) (*Settings, error) {
	settings := &Settings{}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("LABELER")
	v.AutomaticEnv()
	setDefaultsOn(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}
	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsMutex.Lock()
	settingsInstance = settings
	settingsMutex.Unlock()
	return settings, nil
}

// Setting returns the current settings instance, loading it if needed.
// Core components should receive *Settings by injection; this accessor
// exists for process-level wiring only.
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			if _, err := Load(); err != nil {
				panic(fmt.Sprintf("failed to load settings: %v", err))
			}
		}
	})

	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// GetDefaultConfigPaths returns the config file search order: working
// directory first, then the user config directory.
func GetDefaultConfigPaths() ([]string, error) {
	paths := []string{"."}
	configDir, err := os.UserConfigDir()
	if err == nil {
		paths = append(paths, filepath.Join(configDir, "labeler"))
	}
	return paths, nil
}

// SaveSettings writes the current settings to the given path as YAML.
func SaveSettings(settings *Settings, path string) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("error creating config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}
