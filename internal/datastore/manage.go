package datastore

import (
	"net/url"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/photoscale/photoscale/internal/errors"
	"github.com/photoscale/photoscale/internal/logger"
)

// slowQueryThreshold is logged at WARN by the gorm adapter.
const slowQueryThreshold = 500 * time.Millisecond

func gormConfig(debug bool) *gorm.Config {
	log := GetLogger()
	if !debug {
		log = log.Module("sql")
	}
	return &gorm.Config{
		Logger:         logger.NewGormLoggerAdapter(log, slowQueryThreshold),
		TranslateError: true,
	}
}

// performAutoMigration creates or updates the tables.
func performAutoMigration(db *gorm.DB, dbType, connectionInfo string) error {
	start := time.Now()
	log := GetLogger().With(logger.String("db_type", dbType))
	log.Debug("starting database migration")

	if err := db.AutoMigrate(&CalibrationRecord{}, &Preference{}); err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Priority(errors.PriorityCritical).
			Context("operation", "auto_migrate").
			Context("db_type", dbType).
			Context("connection", redactSensitiveInfo(connectionInfo)).
			Build()
	}

	log.Debug("database migration completed",
		logger.Duration("total_duration", time.Since(start)))
	return nil
}

// redactSensitiveInfo hides the password in a MySQL DSN.
func redactSensitiveInfo(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	if at < 0 {
		return dsn
	}
	userInfo := dsn[:at]
	user, _, hasPassword := strings.Cut(userInfo, ":")
	if !hasPassword {
		return dsn
	}
	return url.UserPassword(user, "REDACTED").String() + dsn[at:]
}
