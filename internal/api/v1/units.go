package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/photoscale/photoscale/internal/errors"
	"github.com/photoscale/photoscale/internal/units"
)

// ConversionResponse is returned by GET /units/convert.
type ConversionResponse struct {
	Value  float64    `json:"value"`
	From   units.Unit `json:"from"`
	To     units.Unit `json:"to"`
	Result float64    `json:"result"`
}

// FormatResponse is returned by GET /units/format.
type FormatResponse struct {
	Value     float64      `json:"value"`
	Unit      units.Unit   `json:"unit"`
	System    units.System `json:"system"`
	Formatted string       `json:"formatted"`
}

// ConvertUnits handles GET /api/v1/units/convert?value=&from=&to=.
func (c *Controller) ConvertUnits(ctx echo.Context) error {
	value, err := queryLength(ctx)
	if err != nil {
		return c.handleDomainError(ctx, err, "invalid value")
	}
	from, err := units.ParseUnit(ctx.QueryParam("from"))
	if err != nil {
		return c.handleDomainError(ctx, err, "invalid source unit")
	}
	to, err := units.ParseUnit(ctx.QueryParam("to"))
	if err != nil {
		return c.handleDomainError(ctx, err, "invalid target unit")
	}

	result := units.Convert(value, from, to)
	if ctx.QueryParam("kind") == "area" {
		result = units.ConvertArea(value, from, to)
	}
	return ctx.JSON(http.StatusOK, ConversionResponse{Value: value, From: from, To: to, Result: result})
}

// FormatUnits handles GET /api/v1/units/format?value=&unit=&system=. The
// system defaults to the preferred one; kind=area formats an area.
func (c *Controller) FormatUnits(ctx echo.Context) error {
	value, err := queryLength(ctx)
	if err != nil {
		return c.handleDomainError(ctx, err, "invalid value")
	}
	unit, err := units.ParseUnit(ctx.QueryParam("unit"))
	if err != nil {
		return c.handleDomainError(ctx, err, "invalid unit")
	}

	system := c.calib.Preferences(ctx.Request().Context()).System()
	if v := ctx.QueryParam("system"); v != "" {
		if system, err = units.ParseSystem(v); err != nil {
			return c.handleDomainError(ctx, err, "invalid unit system")
		}
	}

	formatted := units.FormatMeasurement(value, unit, system)
	if ctx.QueryParam("kind") == "area" {
		formatted = units.FormatArea(value, unit, system)
	}
	return ctx.JSON(http.StatusOK, FormatResponse{Value: value, Unit: unit, System: system, Formatted: formatted})
}

func queryLength(ctx echo.Context) (float64, error) {
	raw := ctx.QueryParam("value")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.Newf("value %q is not a number", raw).
			Component("api").
			Category(errors.CategoryValidation).
			Build()
	}
	if err := units.Validate(v); err != nil {
		return 0, err
	}
	return v, nil
}
