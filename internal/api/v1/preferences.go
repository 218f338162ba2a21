package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/photoscale/photoscale/internal/calibration"
	"github.com/photoscale/photoscale/internal/units"
)

// PreferencesResponse adds the derived display unit and coin.
type PreferencesResponse struct {
	LastCoinID  string           `json:"last_coin_id"`
	UnitSystem  units.System     `json:"unit_system"`
	DefaultUnit units.Unit       `json:"default_unit,omitempty"`
	DisplayUnit units.Unit       `json:"display_unit"`
	Coin        calibration.Coin `json:"coin"`
}

// PreferencesRequest is the body of PUT /preferences. Omitted fields keep
// their stored value.
type PreferencesRequest struct {
	LastCoinID  *string `json:"last_coin_id"`
	UnitSystem  *string `json:"unit_system"`
	DefaultUnit *string `json:"default_unit"`
}

func newPreferencesResponse(p calibration.Preferences) PreferencesResponse {
	return PreferencesResponse{
		LastCoinID:  p.LastCoinID,
		UnitSystem:  p.System(),
		DefaultUnit: p.DefaultUnit,
		DisplayUnit: p.DisplayUnit(),
		Coin:        p.Coin(),
	}
}

// ListCoins handles GET /api/v1/coins, optionally filtered by ?country=.
func (c *Controller) ListCoins(ctx echo.Context) error {
	coins := calibration.Coins()
	if country := ctx.QueryParam("country"); country != "" {
		coins = calibration.CoinsByCountry(country)
		if coins == nil {
			coins = []calibration.Coin{}
		}
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"coins":   coins,
		"default": calibration.DefaultCoinID,
	})
}

// GetPreferences handles GET /api/v1/preferences.
func (c *Controller) GetPreferences(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, newPreferencesResponse(c.calib.Preferences(ctx.Request().Context())))
}

// UpdatePreferences handles PUT /api/v1/preferences.
func (c *Controller) UpdatePreferences(ctx echo.Context) error {
	if c.DS == nil {
		return c.historyDisabled(ctx)
	}

	var req PreferencesRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "invalid request body", http.StatusBadRequest)
	}

	reqCtx := ctx.Request().Context()
	prefs, err := c.DS.LoadPreferences(reqCtx)
	if err != nil {
		return c.handleDomainError(ctx, err, "failed to load preferences")
	}

	if req.LastCoinID != nil {
		prefs.LastCoinID = *req.LastCoinID
	}
	if req.UnitSystem != nil {
		system, err := units.ParseSystem(*req.UnitSystem)
		if err != nil {
			return c.handleDomainError(ctx, err, "invalid unit system")
		}
		prefs.UnitSystem = system
	}
	if req.DefaultUnit != nil {
		prefs.DefaultUnit = ""
		if *req.DefaultUnit != "" {
			unit, err := units.ParseUnit(*req.DefaultUnit)
			if err != nil {
				return c.handleDomainError(ctx, err, "invalid default unit")
			}
			prefs.DefaultUnit = unit
		}
	}

	if err := c.DS.SavePreferences(reqCtx, prefs); err != nil {
		return c.handleDomainError(ctx, err, "failed to save preferences")
	}
	return ctx.JSON(http.StatusOK, newPreferencesResponse(prefs))
}
