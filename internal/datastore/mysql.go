package datastore

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/photoscale/photoscale/internal/conf"
	"github.com/photoscale/photoscale/internal/errors"
	"github.com/photoscale/photoscale/internal/logger"
)

// MySQLStore implements Interface for MySQL.
type MySQLStore struct {
	DataStore
	Settings *conf.Settings
}

// DSN builds the connection string from settings.
func (store *MySQLStore) DSN() string {
	m := store.Settings.Datastore.MySQL
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		m.Username, m.Password, m.Host, m.Port, m.Database)
}

// Open connects and migrates.
func (store *MySQLStore) Open() error {
	dsn := store.DSN()
	db, err := gorm.Open(mysql.Open(dsn), gormConfig(store.Settings.Datastore.Debug))
	if err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "open_mysql").
			Context("connection", redactSensitiveInfo(dsn)).
			Build()
	}

	sqlDB, err := db.DB()
	if err != nil {
		return dbError(err, "open_mysql")
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	store.DB = db
	GetLogger().Info("mysql database opened",
		logger.String("host", store.Settings.Datastore.MySQL.Host),
		logger.String("database", store.Settings.Datastore.MySQL.Database))
	return performAutoMigration(db, "mysql", dsn)
}

// Close closes the connection pool.
func (store *MySQLStore) Close() error {
	return closeDB(store.DB)
}
