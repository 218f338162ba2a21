package v1

import (
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/photoscale/photoscale/internal/calibration"
	"github.com/photoscale/photoscale/internal/errors"
	"github.com/photoscale/photoscale/internal/location"
	"github.com/photoscale/photoscale/internal/session"
	"github.com/photoscale/photoscale/internal/units"
)

// CoinRequest is the body of POST /calibrations/coin.
type CoinRequest struct {
	CoinID        string  `json:"coin_id"`
	DiameterMM    float64 `json:"diameter_mm"`
	ZoomScale     float64 `json:"zoom_scale"`
	PanX          float64 `json:"pan_x"`
	PanY          float64 `json:"pan_y"`
	CircleRadius  float64 `json:"circle_radius"`
	CircleCenterX float64 `json:"circle_center_x"`
	CircleCenterY float64 `json:"circle_center_y"`
}

// BlueprintRequest is the body of POST /calibrations/blueprint. Either two
// points or a pixel distance is required.
type BlueprintRequest struct {
	Points        []calibration.Point `json:"points"`
	PixelDistance float64             `json:"pixel_distance"`
	Distance      float64             `json:"distance"`
	Unit          string              `json:"unit"`
}

// VerbalRequest is the body of POST /calibrations/verbal. Scale, when set,
// is parsed ("1 cm = 2 km", "1:25000") and overrides the explicit fields.
type VerbalRequest struct {
	Scale               string   `json:"scale"`
	System              string   `json:"system"`
	ScreenDistance      float64  `json:"screen_distance"`
	ScreenUnit          string   `json:"screen_unit"`
	RealDistance        float64  `json:"real_distance"`
	RealUnit            string   `json:"real_unit"`
	ScreenPixelsPerUnit float64  `json:"screen_pixels_per_unit"`
	Declination         *float64 `json:"declination"`
}

// CalibrateCoin handles POST /api/v1/calibrations/coin.
func (c *Controller) CalibrateCoin(ctx echo.Context) error {
	var req CoinRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "invalid request body", http.StatusBadRequest)
	}

	out, err := c.calib.Coin(ctx.Request().Context(), calibration.CoinInput{
		CoinID:        req.CoinID,
		DiameterMM:    req.DiameterMM,
		ZoomScale:     req.ZoomScale,
		PanX:          req.PanX,
		PanY:          req.PanY,
		CircleRadius:  req.CircleRadius,
		CircleCenterX: req.CircleCenterX,
		CircleCenterY: req.CircleCenterY,
	})
	if err != nil {
		return c.handleDomainError(ctx, err, "coin calibration failed")
	}
	return ctx.JSON(http.StatusCreated, out)
}

// CalibrateBlueprint handles POST /api/v1/calibrations/blueprint.
func (c *Controller) CalibrateBlueprint(ctx echo.Context) error {
	var req BlueprintRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "invalid request body", http.StatusBadRequest)
	}
	unit, err := units.ParseUnit(req.Unit)
	if err != nil {
		return c.handleDomainError(ctx, err, "invalid unit")
	}

	out, err := c.calib.Blueprint(ctx.Request().Context(), calibration.BlueprintInput{
		Points:        req.Points,
		PixelDistance: req.PixelDistance,
		Distance:      req.Distance,
		Unit:          unit,
	})
	if err != nil {
		return c.handleDomainError(ctx, err, "blueprint calibration failed")
	}
	return ctx.JSON(http.StatusCreated, out)
}

// CalibrateVerbal handles POST /api/v1/calibrations/verbal.
func (c *Controller) CalibrateVerbal(ctx echo.Context) error {
	var req VerbalRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "invalid request body", http.StatusBadRequest)
	}

	in, err := c.verbalInput(ctx, req)
	if err != nil {
		return c.handleDomainError(ctx, err, "invalid verbal scale")
	}

	out, err := c.calib.Verbal(ctx.Request().Context(), in)
	if err != nil {
		return c.handleDomainError(ctx, err, "verbal calibration failed")
	}
	return ctx.JSON(http.StatusCreated, out)
}

func (c *Controller) verbalInput(ctx echo.Context, req VerbalRequest) (calibration.VerbalInput, error) {
	if req.Scale != "" {
		system := c.calib.Preferences(ctx.Request().Context()).System()
		if req.System != "" {
			s, err := units.ParseSystem(req.System)
			if err != nil {
				return calibration.VerbalInput{}, err
			}
			system = s
		}
		text, err := calibration.ParseVerbalScale(req.Scale, system)
		if err != nil {
			return calibration.VerbalInput{}, err
		}
		return text.Input(req.ScreenPixelsPerUnit, req.Declination), nil
	}

	screenUnit, err := units.ParseUnit(req.ScreenUnit)
	if err != nil {
		return calibration.VerbalInput{}, err
	}
	realUnit, err := units.ParseUnit(req.RealUnit)
	if err != nil {
		return calibration.VerbalInput{}, err
	}
	return calibration.VerbalInput{
		ScreenDistance:      req.ScreenDistance,
		ScreenUnit:          screenUnit,
		RealDistance:        req.RealDistance,
		RealUnit:            realUnit,
		ScreenPixelsPerUnit: req.ScreenPixelsPerUnit,
		Declination:         req.Declination,
	}, nil
}

// CalibrateDrone handles POST /api/v1/calibrations/drone. The photo is sent
// as the multipart field "photo"; latitude, longitude and optional altitude
// and accuracy fields supply the device fix used for the ground reference.
//
// A completed attempt answers 201. An attempt that needs manual calibration
// or has no usable ground reference answers 422 with the outcome, so the
// client can show the reason and remedy.
func (c *Controller) CalibrateDrone(ctx echo.Context) error {
	req, err := c.droneRequest(ctx)
	if err != nil {
		return c.handleDomainError(ctx, err, "invalid photo upload")
	}

	out, err := c.calib.Drone(ctx.Request().Context(), req)
	if err != nil {
		return c.handleDomainError(ctx, err, "drone calibration failed")
	}
	if !out.Completed() {
		return ctx.JSON(http.StatusUnprocessableEntity, out)
	}
	return ctx.JSON(http.StatusCreated, out)
}

// droneRequest reads the uploaded photo and the optional device fix.
func (c *Controller) droneRequest(ctx echo.Context) (session.DroneRequest, error) {
	fh, err := ctx.FormFile("photo")
	if err != nil {
		return session.DroneRequest{}, uploadError(err, "photo file is required")
	}
	if fh.Size > c.maxUpload {
		return session.DroneRequest{}, errors.Newf("photo exceeds %d bytes", c.maxUpload).
			Component("api").
			Category(errors.CategoryValidation).
			FileContext(fh.Filename, fh.Size).
			Build()
	}

	f, err := fh.Open()
	if err != nil {
		return session.DroneRequest{}, uploadError(err, "cannot open uploaded photo")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, c.maxUpload+1))
	if err != nil {
		return session.DroneRequest{}, uploadError(err, "cannot read uploaded photo")
	}
	if int64(len(data)) > c.maxUpload {
		return session.DroneRequest{}, errors.Newf("photo exceeds %d bytes", c.maxUpload).
			Component("api").
			Category(errors.CategoryValidation).
			Build()
	}

	// The client's filename names nothing on this host, so only the bytes
	// reach extraction.
	req := session.DroneRequest{Data: data}

	pos, ok, err := devicePosition(ctx)
	if err != nil {
		return session.DroneRequest{}, err
	}
	if ok {
		req.Location = location.NewStaticService(&pos)
	}
	return req, nil
}

// devicePosition parses the optional fix form fields. Latitude and
// longitude must be sent together.
func devicePosition(ctx echo.Context) (location.Position, bool, error) {
	latStr, lonStr := ctx.FormValue("latitude"), ctx.FormValue("longitude")
	if latStr == "" && lonStr == "" {
		return location.Position{}, false, nil
	}

	var pos location.Position
	var err error
	if pos.Latitude, err = parseFormFloat("latitude", latStr); err != nil {
		return pos, false, err
	}
	if pos.Longitude, err = parseFormFloat("longitude", lonStr); err != nil {
		return pos, false, err
	}
	if v := ctx.FormValue("altitude"); v != "" {
		alt, err := parseFormFloat("altitude", v)
		if err != nil {
			return pos, false, err
		}
		pos.Altitude = &alt
	}
	if v := ctx.FormValue("accuracy"); v != "" {
		if pos.Accuracy, err = parseFormFloat("accuracy", v); err != nil {
			return pos, false, err
		}
	}
	if err := pos.Validate(); err != nil {
		return pos, false, err
	}
	return pos, true, nil
}

func parseFormFloat(field, value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, errors.Newf("%s must be a number", field).
			Component("api").
			Category(errors.CategoryValidation).
			Context("field", field).
			Build()
	}
	return v, nil
}

func uploadError(err error, message string) error {
	return errors.Newf("%s: %v", message, err).
		Component("api").
		Category(errors.CategoryValidation).
		Build()
}

// ListCalibrations handles GET /api/v1/calibrations?limit=N.
func (c *Controller) ListCalibrations(ctx echo.Context) error {
	if c.DS == nil {
		return c.historyDisabled(ctx)
	}

	limit := 0
	if v := ctx.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return c.HandleError(ctx, err, "limit must be a non-negative integer", http.StatusBadRequest)
		}
		limit = n
	}

	results, err := c.DS.ListCalibrations(ctx.Request().Context(), limit)
	if err != nil {
		return c.handleDomainError(ctx, err, "failed to list calibrations")
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"calibrations": results,
		"count":        len(results),
	})
}

// GetCalibration handles GET /api/v1/calibrations/:id.
func (c *Controller) GetCalibration(ctx echo.Context) error {
	if c.DS == nil {
		return c.historyDisabled(ctx)
	}
	res, err := c.DS.GetCalibration(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return c.handleDomainError(ctx, err, "calibration not found")
	}
	return ctx.JSON(http.StatusOK, res)
}

// DeleteCalibration handles DELETE /api/v1/calibrations/:id.
func (c *Controller) DeleteCalibration(ctx echo.Context) error {
	if c.DS == nil {
		return c.historyDisabled(ctx)
	}
	if err := c.DS.DeleteCalibration(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return c.handleDomainError(ctx, err, "failed to delete calibration")
	}
	return ctx.NoContent(http.StatusNoContent)
}
