package datastore

import (
	"encoding/json"
	"time"

	"github.com/photoscale/photoscale/internal/calibration"
	"github.com/photoscale/photoscale/internal/errors"
	"github.com/photoscale/photoscale/internal/units"
)

// CalibrationRecord is one completed calibration in the history table.
type CalibrationRecord struct {
	ID                string    `gorm:"primaryKey;size:36"`
	SessionID         string    `gorm:"size:36;index:idx_calibrations_session"`
	Type              string    `gorm:"size:16;index:idx_calibrations_type_created"`
	PixelsPerMM       float64   `gorm:"not null"`
	Unit              string    `gorm:"size:4;not null"`
	ReferenceDistance float64   `gorm:"not null"`
	Source            string    `gorm:"type:text"` // JSON of the modality-specific metadata
	CreatedAt         time.Time `gorm:"index:idx_calibrations_type_created;index:idx_calibrations_created"`
}

// TableName pins the table name.
func (CalibrationRecord) TableName() string { return "calibrations" }

// Preference is a key/value user preference.
type Preference struct {
	Key       string `gorm:"primaryKey;size:64"`
	Value     string `gorm:"size:255"`
	UpdatedAt time.Time
}

// Preference keys.
const (
	PrefLastCoin    = "calibration.last_coin"
	PrefUnitSystem  = "units.system"
	PrefDefaultUnit = "units.default_unit"
)

// NewCalibrationRecord flattens a result for storage.
func NewCalibrationRecord(sessionID string, res *calibration.Result) (*CalibrationRecord, error) {
	if res == nil {
		return nil, errors.Newf("result is required").
			Component("datastore").
			Category(errors.CategoryValidation).
			Build()
	}
	src, err := json.Marshal(res.Source)
	if err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "encode_source").
			Build()
	}
	return &CalibrationRecord{
		ID:                res.ID,
		SessionID:         sessionID,
		Type:              string(res.Type),
		PixelsPerMM:       res.PixelsPerMM,
		Unit:              string(res.Unit),
		ReferenceDistance: res.ReferenceDistance,
		Source:            string(src),
		CreatedAt:         res.CreatedAt,
	}, nil
}

// Result rebuilds the calibration result, re-validating it.
func (r *CalibrationRecord) Result() (*calibration.Result, error) {
	src, err := calibration.DecodeSource(calibration.Type(r.Type), []byte(r.Source))
	if err != nil {
		return nil, err
	}
	return calibration.Restore(r.ID, r.CreatedAt, r.PixelsPerMM, units.Unit(r.Unit), r.ReferenceDistance, src)
}
