// Package buildinfo contains build-time metadata kept separate from user configuration
package buildinfo

import (
	"fmt"

	"github.com/google/uuid"
)

// UnknownValue is reported for metadata the build did not set.
const UnknownValue = "unknown"

// Context contains build-time metadata that is not user-configurable.
// It is injected at startup from linker flags.
type Context struct {
	version   string
	buildDate string
	systemID  string
}

// NewContext returns a Context. An empty systemID gets a random one, so
// error reports from one process can be grouped.
func NewContext(version, buildDate, systemID string) *Context {
	if systemID == "" {
		systemID = uuid.NewString()
	}
	return &Context{version: version, buildDate: buildDate, systemID: systemID}
}

// Version returns the Git version tag of the build.
func (c *Context) Version() string {
	if c == nil || c.version == "" {
		return UnknownValue
	}
	return c.version
}

// BuildDate returns the build timestamp.
func (c *Context) BuildDate() string {
	if c == nil || c.buildDate == "" {
		return UnknownValue
	}
	return c.buildDate
}

// SystemID returns the identifier attached to error reports.
func (c *Context) SystemID() string {
	if c == nil || c.systemID == "" {
		return UnknownValue
	}
	return c.systemID
}

// Release is the Sentry release name.
func (c *Context) Release() string {
	return fmt.Sprintf("photoscale@%s", c.Version())
}

// UserAgent identifies photoscale to remote services.
func (c *Context) UserAgent() string {
	return fmt.Sprintf("photoscale/%s", c.Version())
}
