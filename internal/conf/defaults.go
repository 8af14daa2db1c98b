// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	setDefaultsOn(viper.GetViper())
}

// setDefaultsOn applies the default values to a specific viper instance.
func setDefaultsOn(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("main.name", "labeler")
	v.SetDefault("main.log.enabled", true)
	v.SetDefault("main.log.path", "logs/labeler.log")
	v.SetDefault("main.log.maxsizemb", 100)
	v.SetDefault("main.log.maxbackups", 3)
	v.SetDefault("main.log.maxagedays", 28)

	v.SetDefault("database.labeler.sqlite.enabled", true)
	v.SetDefault("database.labeler.sqlite.path", "labeler.db")
	v.SetDefault("database.labeler.mysql.enabled", false)
	v.SetDefault("database.labeler.mysql.host", "localhost")
	v.SetDefault("database.labeler.mysql.port", "3306")
	v.SetDefault("database.labeler.mysql.database", "labeler")

	v.SetDefault("database.platform.sqlite.enabled", true)
	v.SetDefault("database.platform.sqlite.path", "platform.db")
	v.SetDefault("database.platform.mysql.enabled", false)
	v.SetDefault("database.platform.mysql.host", "localhost")
	v.SetDefault("database.platform.mysql.port", "3306")
	v.SetDefault("database.platform.mysql.database", "platform")

	v.SetDefault("locking.duration", 5*time.Minute)

	v.SetDefault("status.cachettl", 30*time.Second)

	v.SetDefault("export.path", "exports/")
	v.SetDefault("export.defaultformat", "coco-json")
	v.SetDefault("export.presignttl", 24*time.Hour)
}
