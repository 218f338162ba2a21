// Package datastore persists calibration history and user preferences with
// gorm on SQLite or MySQL.
package datastore

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/photoscale/photoscale/internal/calibration"
	"github.com/photoscale/photoscale/internal/conf"
	"github.com/photoscale/photoscale/internal/errors"
	"github.com/photoscale/photoscale/internal/logger"
	"github.com/photoscale/photoscale/internal/observability/metrics"
	"github.com/photoscale/photoscale/internal/units"
)

// DefaultListLimit caps ListCalibrations when no limit is given.
const DefaultListLimit = 100

// Interface abstracts the underlying database implementation.
type Interface interface {
	Open() error
	Close() error

	SaveCalibration(ctx context.Context, sessionID string, res *calibration.Result) error
	GetCalibration(ctx context.Context, id string) (*calibration.Result, error)
	ListCalibrations(ctx context.Context, limit int) ([]*calibration.Result, error)
	DeleteCalibration(ctx context.Context, id string) error

	GetPreference(ctx context.Context, key string) (string, error)
	SetPreference(ctx context.Context, key, value string) error
	LoadPreferences(ctx context.Context) (calibration.Preferences, error)
	SavePreferences(ctx context.Context, prefs calibration.Preferences) error
}

// DataStore implements the queries shared by all drivers.
type DataStore struct {
	DB      *gorm.DB
	metrics *metrics.CalibrationMetrics
}

// New returns the store selected by settings, or nil when no database is
// enabled.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Datastore.SQLite.Enabled:
		return &SQLiteStore{Settings: settings}
	case settings.Datastore.MySQL.Enabled:
		return &MySQLStore{Settings: settings}
	default:
		return nil
	}
}

// GetLogger returns the datastore module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("datastore")
}

// SetMetrics records history operations on m.
func (ds *DataStore) SetMetrics(m *metrics.CalibrationMetrics) {
	ds.metrics = m
}

// SaveCalibration stores a completed calibration. Saving the same result
// twice is a conflict.
func (ds *DataStore) SaveCalibration(ctx context.Context, sessionID string, res *calibration.Result) error {
	if err := ds.ready(); err != nil {
		return err
	}
	record, err := NewCalibrationRecord(sessionID, res)
	if err != nil {
		return err
	}

	start := time.Now()
	if err := ds.DB.WithContext(ctx).Create(record).Error; err != nil {
		ds.record("save", err)
		category := errors.CategoryDatabase
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			category = errors.CategoryConflict
		}
		return errors.New(err).
			Component("datastore").
			Category(category).
			Context("operation", "save_calibration").
			Context("result_id", res.ID).
			Timing("save_calibration", time.Since(start)).
			Build()
	}
	ds.record("save", nil)
	return nil
}

// GetCalibration returns one stored calibration.
func (ds *DataStore) GetCalibration(ctx context.Context, id string) (*calibration.Result, error) {
	if err := ds.ready(); err != nil {
		return nil, err
	}
	var record CalibrationRecord
	if err := ds.DB.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		ds.record("get", err)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Newf("calibration %s not found", id).
				Component("datastore").
				Category(errors.CategoryNotFound).
				Context("result_id", id).
				Build()
		}
		return nil, dbError(err, "get_calibration")
	}
	ds.record("get", nil)
	return record.Result()
}

// ListCalibrations returns the most recent calibrations, newest first.
func (ds *DataStore) ListCalibrations(ctx context.Context, limit int) ([]*calibration.Result, error) {
	if err := ds.ready(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}

	var records []CalibrationRecord
	err := ds.DB.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	ds.record("list", err)
	if err != nil {
		return nil, dbError(err, "list_calibrations")
	}

	results := make([]*calibration.Result, 0, len(records))
	for i := range records {
		res, err := records[i].Result()
		if err != nil {
			GetLogger().Warn("skipping unreadable calibration record",
				logger.String("result_id", records[i].ID),
				logger.Error(err))
			continue
		}
		results = append(results, res)
	}
	return results, nil
}

// DeleteCalibration removes one calibration.
func (ds *DataStore) DeleteCalibration(ctx context.Context, id string) error {
	if err := ds.ready(); err != nil {
		return err
	}
	tx := ds.DB.WithContext(ctx).Delete(&CalibrationRecord{}, "id = ?", id)
	ds.record("delete", tx.Error)
	if tx.Error != nil {
		return dbError(tx.Error, "delete_calibration")
	}
	if tx.RowsAffected == 0 {
		return errors.Newf("calibration %s not found", id).
			Component("datastore").
			Category(errors.CategoryNotFound).
			Build()
	}
	return nil
}

// GetPreference returns the stored value for key, or "" when unset.
func (ds *DataStore) GetPreference(ctx context.Context, key string) (string, error) {
	if err := ds.ready(); err != nil {
		return "", err
	}
	var pref Preference
	err := ds.DB.WithContext(ctx).Where("`key` = ?", key).Limit(1).Find(&pref).Error
	if err != nil {
		return "", dbError(err, "get_preference")
	}
	return pref.Value, nil
}

// SetPreference upserts key.
func (ds *DataStore) SetPreference(ctx context.Context, key, value string) error {
	if err := ds.ready(); err != nil {
		return err
	}
	pref := Preference{Key: key, Value: value, UpdatedAt: time.Now()}
	err := ds.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&pref).Error
	if err != nil {
		return dbError(err, "set_preference")
	}
	return nil
}

// LoadPreferences reads the calibration preferences, filling defaults for
// unset keys.
func (ds *DataStore) LoadPreferences(ctx context.Context) (calibration.Preferences, error) {
	prefs := calibration.DefaultPreferences()
	if err := ds.ready(); err != nil {
		return prefs, err
	}

	var stored []Preference
	err := ds.DB.WithContext(ctx).
		Where("`key` IN ?", []string{PrefLastCoin, PrefUnitSystem, PrefDefaultUnit}).
		Find(&stored).Error
	if err != nil {
		return prefs, dbError(err, "load_preferences")
	}
	for _, p := range stored {
		switch p.Key {
		case PrefLastCoin:
			prefs.LastCoinID = p.Value
		case PrefUnitSystem:
			prefs.UnitSystem = units.System(p.Value)
		case PrefDefaultUnit:
			prefs.DefaultUnit = units.Unit(p.Value)
		}
	}
	if err := prefs.Validate(); err != nil {
		GetLogger().Warn("stored preferences are invalid, using defaults", logger.Error(err))
		return calibration.DefaultPreferences(), nil
	}
	return prefs, nil
}

// SavePreferences stores all calibration preferences in one transaction.
func (ds *DataStore) SavePreferences(ctx context.Context, prefs calibration.Preferences) error {
	if err := prefs.Validate(); err != nil {
		return err
	}
	if err := ds.ready(); err != nil {
		return err
	}
	return ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scoped := &DataStore{DB: tx}
		for key, value := range map[string]string{
			PrefLastCoin:    prefs.LastCoinID,
			PrefUnitSystem:  string(prefs.UnitSystem),
			PrefDefaultUnit: string(prefs.DefaultUnit),
		} {
			if err := scoped.SetPreference(ctx, key, value); err != nil {
				return err
			}
		}
		return nil
	})
}

func (ds *DataStore) ready() error {
	if ds.DB == nil {
		return errors.Newf("database connection is not initialized").
			Component("datastore").
			Category(errors.CategoryState).
			Build()
	}
	return nil
}

func (ds *DataStore) record(operation string, err error) {
	status := metrics.StatusSuccess
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		status = metrics.StatusError
	}
	ds.metrics.RecordHistoryOperation(operation, status)
}

func dbError(err error, operation string) error {
	return errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation).
		Build()
}
