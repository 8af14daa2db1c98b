package conf

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// ValidateSettings checks the loaded settings for configuration errors that
// would only surface later at runtime.
func ValidateSettings(settings *Settings) error {
	var errs []error

	if err := validateDatabase("labeler", &settings.Database.Labeler); err != nil {
		errs = append(errs, err)
	}
	if err := validateDatabase("platform", &settings.Database.Platform); err != nil {
		errs = append(errs, err)
	}

	if settings.Locking.Duration <= 0 {
		errs = append(errs, fmt.Errorf("locking.duration must be positive, got %v", settings.Locking.Duration))
	}
	if settings.Status.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("status.cachettl must not be negative, got %v", settings.Status.CacheTTL))
	}
	if settings.Export.Path == "" {
		errs = append(errs, errors.New("export.path must not be empty"))
	}

	return errors.Join(errs...)
}

func validateDatabase(name string, db *DatabaseConfig) error {
	switch {
	case db.SQLite.Enabled && db.MySQL.Enabled:
		return fmt.Errorf("database.%s: sqlite and mysql are mutually exclusive", name)
	case !db.SQLite.Enabled && !db.MySQL.Enabled:
		return fmt.Errorf("database.%s: no database backend enabled", name)
	case db.SQLite.Enabled && db.SQLite.Path == "":
		return fmt.Errorf("database.%s: sqlite path must not be empty", name)
	case db.MySQL.Enabled && db.MySQL.Database == "":
		return fmt.Errorf("database.%s: mysql database name must not be empty", name)
	}
	return nil
}

// asConfigFileNotFound reports whether err is viper's missing-config-file
// error, which Load treats as non-fatal.
func asConfigFileNotFound(err error, target *viper.ConfigFileNotFoundError) bool {
	return errors.As(err, target)
}
