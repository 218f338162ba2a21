// Package api provides the HTTP server for the calibration API. The JSON
// endpoints live in the v1 subpackage.
package api

import (
	"fmt"
	"net"
	"time"

	"github.com/photoscale/photoscale/internal/conf"
	"github.com/photoscale/photoscale/internal/errors"
	"github.com/photoscale/photoscale/internal/logger"
)

// GetLogger returns the api package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("api")
}

// Default constants for the HTTP server.
const (
	DefaultReadTimeout     = 60 * time.Second // photo uploads
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
)

// Config holds the HTTP server configuration.
type Config struct {
	Host string // Host to bind to (empty for all interfaces)
	Port string

	AllowedOrigins []string // CORS allowed origins

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// BodyLimit is the maximum request body size (e.g., "1M", "64M").
	BodyLimit string

	Debug bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:            "8080",
		AllowedOrigins:  []string{"*"},
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		IdleTimeout:     DefaultIdleTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		BodyLimit:       "64M",
	}
}

// ConfigFromSettings creates a Config from the application settings.
func ConfigFromSettings(settings *conf.Settings) *Config {
	cfg := DefaultConfig()
	cfg.Host = settings.WebServer.Host
	if settings.WebServer.Port != "" {
		cfg.Port = settings.WebServer.Port
	}
	if size := settings.WebServer.MaxUploadSize; size > 0 {
		// multipart framing on top of the photo itself
		cfg.BodyLimit = fmt.Sprintf("%dK", size/1024+64)
	}
	cfg.Debug = settings.Debug
	return cfg
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var problem string
	switch {
	case c.Port == "":
		problem = "port is required"
	case c.ReadTimeout <= 0:
		problem = "read timeout must be positive"
	case c.WriteTimeout <= 0:
		problem = "write timeout must be positive"
	default:
		return nil
	}
	return errors.Newf("invalid server config: %s", problem).
		Component("api").
		Category(errors.CategoryConfiguration).
		Build()
}

// Address returns the host:port the server listens on.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// String returns a human-readable representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf("Server Config: address=%s, body_limit=%s, debug=%v",
		c.Address(), c.BodyLimit, c.Debug)
}
