package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// hstsMaxAge is one year in seconds. Echo only sends the header over TLS.
const hstsMaxAge = 365 * 24 * 60 * 60

// apiContentSecurityPolicy allows nothing: every response is JSON or the
// Prometheus text format, never a page.
const apiContentSecurityPolicy = "default-src 'none'; frame-ancestors 'none'"

// CrossOrigin configures which browser origins may call the API. The API
// has no sessions, so credentials are never allowed.
type CrossOrigin struct {
	AllowedOrigins []string
	// MaxAge is how long, in seconds, browsers may cache a preflight.
	MaxAge int
}

// NewCORS answers preflights for the calibration API's methods.
func NewCORS(co CrossOrigin) echo.MiddlewareFunc {
	origins := co.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		MaxAge:       co.MaxAge,
	})
}

// NewSecureHeaders sets the response headers of a JSON-only API.
func NewSecureHeaders() echo.MiddlewareFunc {
	return middleware.SecureWithConfig(middleware.SecureConfig{
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            hstsMaxAge,
		ContentSecurityPolicy: apiContentSecurityPolicy,
		ReferrerPolicy:        "no-referrer",
	})
}
