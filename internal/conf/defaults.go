package conf

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaultConfig sets a default for every key, so environment overrides
// work for keys absent from the config file.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("main.name", "photoscale")
	v.SetDefault("main.datadir", "")

	v.SetDefault("logging.default_level", "info")
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", true)
	v.SetDefault("logging.console.level", "info")
	v.SetDefault("logging.file_output.enabled", false)
	v.SetDefault("logging.file_output.path", "logs/photoscale.log")
	v.SetDefault("logging.file_output.level", "info")

	v.SetDefault("units.system", "metric")
	v.SetDefault("units.defaultunit", "")

	v.SetDefault("calibration.coin", "us-quarter")
	v.SetDefault("calibration.drone.enabled", true)
	v.SetDefault("calibration.drone.strictnadir", false)
	v.SetDefault("calibration.drone.nadirtolerance", 10.0)
	v.SetDefault("calibration.drone.displayunit", "m")
	v.SetDefault("calibration.groundreference.locationtimeout", 15*time.Second)
	v.SetDefault("calibration.groundreference.allowaslfallback", false)
	v.SetDefault("calibration.groundreference.device.enabled", false)
	v.SetDefault("calibration.groundreference.device.latitude", 0.0)
	v.SetDefault("calibration.groundreference.device.longitude", 0.0)
	v.SetDefault("calibration.groundreference.device.altitude", 0.0)
	v.SetDefault("calibration.auditcrop.enabled", false)
	v.SetDefault("calibration.auditcrop.path", "audit/")
	v.SetDefault("calibration.auditcrop.size", 256)

	v.SetDefault("elevation.enabled", true)
	v.SetDefault("elevation.endpoint", "https://api.open-elevation.com/api/v1/lookup")
	v.SetDefault("elevation.timeout", 5*time.Second)
	v.SetDefault("elevation.cachettl", 24*time.Hour)
	v.SetDefault("elevation.requestspersecond", 1.0)
	v.SetDefault("elevation.burst", 2)
	v.SetDefault("elevation.maxretries", 2)

	v.SetDefault("metadata.maxfilesize", 200<<20)
	v.SetDefault("metadata.exiftool.enabled", true)
	v.SetDefault("metadata.exiftool.path", "exiftool")
	v.SetDefault("metadata.exiftool.timeout", 10*time.Second)

	v.SetDefault("datastore.debug", false)
	v.SetDefault("datastore.sqlite.enabled", true)
	v.SetDefault("datastore.sqlite.path", "photoscale.db")
	v.SetDefault("datastore.mysql.enabled", false)
	v.SetDefault("datastore.mysql.username", "")
	v.SetDefault("datastore.mysql.password", "")
	v.SetDefault("datastore.mysql.host", "localhost")
	v.SetDefault("datastore.mysql.port", "3306")
	v.SetDefault("datastore.mysql.database", "photoscale")

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.topic", "photoscale")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.qos", 1)
	v.SetDefault("mqtt.retain", false)

	v.SetDefault("webserver.enabled", true)
	v.SetDefault("webserver.host", "")
	v.SetDefault("webserver.port", "8080")
	v.SetDefault("webserver.maxuploadsize", 50<<20)

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
}
