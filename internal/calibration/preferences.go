package calibration

import (
	"github.com/photoscale/photoscale/internal/units"
)

// Preferences are the user choices the manual engine needs. Callers load
// them from storage and pass them in; the engine keeps no state of its own.
type Preferences struct {
	LastCoinID string       `json:"last_coin_id" yaml:"lastcoin" mapstructure:"lastcoin"`
	UnitSystem units.System `json:"unit_system" yaml:"system" mapstructure:"system"`
	// DefaultUnit overrides the system default when set.
	DefaultUnit units.Unit `json:"default_unit,omitempty" yaml:"defaultunit" mapstructure:"defaultunit"`
}

// DefaultPreferences is metric with a US quarter.
func DefaultPreferences() Preferences {
	return Preferences{LastCoinID: DefaultCoinID, UnitSystem: units.Metric}
}

// Validate checks the ids and units.
func (p Preferences) Validate() error {
	if p.LastCoinID != "" {
		if _, ok := LookupCoin(p.LastCoinID); !ok {
			return validationError("unknown coin %q", p.LastCoinID)
		}
	}
	if p.UnitSystem != "" && p.UnitSystem != units.Metric && p.UnitSystem != units.Imperial {
		return validationError("unknown unit system %q", p.UnitSystem)
	}
	if p.DefaultUnit != "" && !p.DefaultUnit.Valid() {
		return validationError("unknown unit %q", p.DefaultUnit)
	}
	return nil
}

// System returns the unit system, metric when unset.
func (p Preferences) System() units.System {
	if p.UnitSystem == units.Imperial {
		return units.Imperial
	}
	return units.Metric
}

// DisplayUnit is the unit new results are labelled with.
func (p Preferences) DisplayUnit() units.Unit {
	if p.DefaultUnit.Valid() {
		return p.DefaultUnit
	}
	return units.DefaultUnit(p.System())
}

// Coin returns the last used coin, falling back to the default coin.
func (p Preferences) Coin() Coin {
	if c, ok := LookupCoin(p.LastCoinID); ok {
		return c
	}
	c, _ := LookupCoin(DefaultCoinID)
	return c
}

// WithCoin returns a copy remembering coinID.
func (p Preferences) WithCoin(coinID string) (Preferences, error) {
	c, ok := LookupCoin(coinID)
	if !ok {
		return p, validationError("unknown coin %q", coinID)
	}
	p.LastCoinID = c.ID
	return p, nil
}
