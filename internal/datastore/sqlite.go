package datastore

import (
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/photoscale/photoscale/internal/conf"
	"github.com/photoscale/photoscale/internal/errors"
	"github.com/photoscale/photoscale/internal/logger"
)

// SQLiteStore implements Interface for SQLite.
type SQLiteStore struct {
	DataStore
	Settings *conf.Settings
}

// Open opens the database file, creating its directory, and migrates.
func (store *SQLiteStore) Open() error {
	path := conf.ResolvePath(store.Settings.Main.DataDir, store.Settings.Datastore.SQLite.Path)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return errors.New(err).
				Component("datastore").
				Category(errors.CategoryFileIO).
				FileContext(dir, 0).
				Build()
		}
	}

	db, err := gorm.Open(sqlite.Open(path+"?_foreign_keys=on&_busy_timeout=5000"), gormConfig(store.Settings.Datastore.Debug))
	if err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "open_sqlite").
			FileContext(path, 0).
			Build()
	}

	store.DB = db
	GetLogger().Info("sqlite database opened", logger.String("path", path))
	return performAutoMigration(db, "sqlite", path)
}

// Close closes the database.
func (store *SQLiteStore) Close() error {
	return closeDB(store.DB)
}

func closeDB(db *gorm.DB) error {
	if db == nil {
		return errors.Newf("database connection is not initialized").
			Component("datastore").
			Category(errors.CategoryState).
			Build()
	}
	sqlDB, err := db.DB()
	if err != nil {
		return dbError(err, "close")
	}
	if err := sqlDB.Close(); err != nil {
		return dbError(err, "close")
	}
	return nil
}
