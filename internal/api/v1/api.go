// Package v1 implements the /api/v1 JSON endpoints.
package v1

import (
	"context"
	"crypto/rand"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/photoscale/photoscale/internal/calibration"
	"github.com/photoscale/photoscale/internal/conf"
	"github.com/photoscale/photoscale/internal/datastore"
	"github.com/photoscale/photoscale/internal/errors"
	"github.com/photoscale/photoscale/internal/logger"
	"github.com/photoscale/photoscale/internal/metadata"
	"github.com/photoscale/photoscale/internal/session"
)

// Calibrator runs calibration attempts. *session.Manager implements it.
type Calibrator interface {
	Drone(ctx context.Context, req session.DroneRequest) (*session.Outcome, error)
	Telemetry(ctx context.Context, req session.DroneRequest) (*metadata.DroneTelemetry, error)
	Coin(ctx context.Context, in calibration.CoinInput) (*session.Outcome, error)
	Blueprint(ctx context.Context, in calibration.BlueprintInput) (*session.Outcome, error)
	Verbal(ctx context.Context, in calibration.VerbalInput) (*session.Outcome, error)
	Preferences(ctx context.Context) calibration.Preferences
}

// Controller manages the API routes and handlers
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	DS       datastore.Interface // nil when history is disabled
	Settings *conf.Settings
	calib    Calibrator
	log      logger.Logger

	// maxUpload caps photo uploads in bytes.
	maxUpload int64
}

// Option is a functional option for configuring the Controller.
type Option func(*Controller)

// WithDataStore enables the history and preference endpoints.
func WithDataStore(ds datastore.Interface) Option {
	return func(c *Controller) { c.DS = ds }
}

// WithLogger sets the controller logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// DefaultMaxUploadSize applies when settings leave the upload size unset.
const DefaultMaxUploadSize int64 = 64 << 20

// New creates the controller and registers its routes under /api/v1.
func New(e *echo.Echo, calib Calibrator, settings *conf.Settings, opts ...Option) (*Controller, error) {
	if calib == nil {
		return nil, errors.Newf("calibrator is required").
			Component("api").
			Category(errors.CategoryConfiguration).
			Build()
	}
	c := &Controller{
		Echo:      e,
		Group:     e.Group("/api/v1"),
		Settings:  settings,
		calib:     calib,
		log:       logger.Global().Module("api"),
		maxUpload: DefaultMaxUploadSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	if settings != nil && settings.WebServer.MaxUploadSize > 0 {
		c.maxUpload = settings.WebServer.MaxUploadSize
	}

	c.initRoutes()
	return c, nil
}

func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.HealthCheck)

	calibrations := c.Group.Group("/calibrations")
	calibrations.POST("/coin", c.CalibrateCoin)
	calibrations.POST("/blueprint", c.CalibrateBlueprint)
	calibrations.POST("/verbal", c.CalibrateVerbal)
	calibrations.POST("/drone", c.CalibrateDrone)
	calibrations.GET("", c.ListCalibrations)
	calibrations.GET("/:id", c.GetCalibration)
	calibrations.DELETE("/:id", c.DeleteCalibration)

	c.Group.POST("/telemetry", c.ExtractTelemetry)

	c.Group.GET("/units/convert", c.ConvertUnits)
	c.Group.GET("/units/format", c.FormatUnits)

	c.Group.POST("/ground-reference/validate", c.ValidateGroundReference)

	c.Group.GET("/coins", c.ListCoins)
	c.Group.GET("/preferences", c.GetPreferences)
	c.Group.PUT("/preferences", c.UpdatePreferences)
}

// HealthCheck reports liveness and whether history storage is attached.
func (c *Controller) HealthCheck(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]any{
		"status":    "healthy",
		"history":   c.DS != nil,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// ErrorResponse represents a standardized error response for the API
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// NewErrorResponse creates a new API error response
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}
	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: generateCorrelationID(),
	}
}

// generateCorrelationID creates an 8 character identifier for error tracking.
func generateCorrelationID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 8

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "ERR-RAND"
	}
	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}

// HandleError logs err and writes it as an ErrorResponse.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	resp := NewErrorResponse(err, message, code)

	fields := []logger.Field{
		logger.String("correlation_id", resp.CorrelationID),
		logger.String("message", message),
		logger.Int("code", code),
		logger.String("path", ctx.Request().URL.Path),
		logger.String("method", ctx.Request().Method),
		logger.String("ip", ctx.RealIP()),
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	if code >= http.StatusInternalServerError {
		c.log.Error("API error", fields...)
	} else {
		c.log.Debug("API request rejected", fields...)
	}

	return ctx.JSON(code, resp)
}

// handleDomainError maps an error category onto an HTTP status.
func (c *Controller) handleDomainError(ctx echo.Context, err error, message string) error {
	return c.HandleError(ctx, err, message, statusFor(err))
}

func statusFor(err error) int {
	var ee *errors.EnhancedError
	if !errors.As(err, &ee) {
		if errors.Is(err, context.Canceled) {
			return statusClientClosedRequest
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout
		}
		return http.StatusInternalServerError
	}

	switch ee.Category {
	case errors.CategoryValidation, errors.CategoryCalibration:
		return http.StatusBadRequest
	case errors.CategoryNotFound:
		return http.StatusNotFound
	case errors.CategoryConflict:
		return http.StatusConflict
	case errors.CategoryMetadata, errors.CategoryFileParsing, errors.CategoryGroundReference:
		return http.StatusUnprocessableEntity
	case errors.CategoryCancellation:
		return statusClientClosedRequest
	case errors.CategoryTimeout:
		return http.StatusGatewayTimeout
	case errors.CategoryElevation, errors.CategoryNetwork, errors.CategoryHTTP:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// statusClientClosedRequest is nginx's non-standard 499.
const statusClientClosedRequest = 499

func (c *Controller) historyDisabled(ctx echo.Context) error {
	return c.HandleError(ctx, nil, "calibration history is disabled", http.StatusServiceUnavailable)
}
