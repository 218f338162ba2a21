package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ExtractTelemetry handles POST /api/v1/telemetry: the multipart "photo"
// is read for drone telemetry without calibrating.
func (c *Controller) ExtractTelemetry(ctx echo.Context) error {
	req, err := c.droneRequest(ctx)
	if err != nil {
		return c.handleDomainError(ctx, err, "invalid photo upload")
	}
	tel, err := c.calib.Telemetry(ctx.Request().Context(), req)
	if err != nil {
		return c.handleDomainError(ctx, err, "telemetry extraction failed")
	}
	return ctx.JSON(http.StatusOK, tel)
}
