package config

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
)

// Defaults applied by ApplyDefaults
const (
	DefaultPolicy     = "redshift"
	DefaultMassLimit  = 10.0
	DefaultListenAddr = "0.0.0.0"
	DefaultPort       = 8080
)

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

// ApplyDefaults fills unset optional settings
func (c *ConfigData) ApplyDefaults() {
	if c.Finder.Policy == "" {
		c.Finder.Policy = DefaultPolicy
	}
	if c.Finder.MassLimit == 0 {
		c.Finder.MassLimit = DefaultMassLimit
	}
	if c.Catalog.Format == "" {
		c.Catalog.Format = FormatFromPath(c.Catalog.Path)
	}
	if c.Server != nil {
		if c.Server.ListenAddr == "" {
			c.Server.ListenAddr = DefaultListenAddr
		}
		if c.Server.Port == 0 {
			c.Server.Port = DefaultPort
		}
	}
}

// FormatFromPath infers a catalog format from a file extension
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	default:
		return "msgpack"
	}
}

// Validate reports the first problem that would stop a run
func (c *ConfigData) Validate() error {
	switch c.Finder.Policy {
	case "", "redshift", "cosmic_time", "0", "1":
	default:
		return fmt.Errorf("%w: unknown policy %q", ErrInvalidConfig, c.Finder.Policy)
	}
	if math.IsNaN(c.Finder.MassLimit) || math.IsInf(c.Finder.MassLimit, 0) {
		return fmt.Errorf("%w: mass_limit must be finite", ErrInvalidConfig)
	}
	if c.Finder.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative", ErrInvalidConfig)
	}
	if c.Finder.Interpolation && c.Finder.Refine {
		return fmt.Errorf("%w: interpolation and refine are exclusive", ErrInvalidConfig)
	}

	if c.Catalog.Path == "" {
		return fmt.Errorf("%w: catalog path is required", ErrInvalidConfig)
	}
	switch c.Catalog.Format {
	case "", "msgpack", "json":
	default:
		return fmt.Errorf("%w: unknown catalog format %q", ErrInvalidConfig, c.Catalog.Format)
	}

	if c.Storage.SQLite != nil && c.Storage.SQLite.Path == "" {
		return fmt.Errorf("%w: sqlite storage needs a path", ErrInvalidConfig)
	}
	if c.Storage.TimescaleDB != nil && c.Storage.TimescaleDB.ConnectionString == "" {
		return fmt.Errorf("%w: timescaledb storage needs a connection_string", ErrInvalidConfig)
	}

	if c.Server != nil {
		if c.Server.Port < 0 || c.Server.Port > 65535 {
			return fmt.Errorf("%w: server port %d out of range", ErrInvalidConfig, c.Server.Port)
		}
		if (c.Server.Cert == "") != (c.Server.Key == "") {
			return fmt.Errorf("%w: server cert and key must be set together", ErrInvalidConfig)
		}
	}
	return nil
}
