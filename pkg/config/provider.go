package config

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetFinderConfig() (*FinderData, error)
	GetStorageConfig() (*StorageData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration of a quenchfinder run
type ConfigData struct {
	Finder  FinderData  `json:"finder" yaml:"finder"`
	Catalog CatalogData `json:"catalog" yaml:"catalog"`
	Storage StorageData `json:"storage,omitempty" yaml:"storage,omitempty"`
	Server  *ServerData `json:"server,omitempty" yaml:"server,omitempty"`
}

// FinderData holds the detector settings shared by every galaxy of a run
type FinderData struct {
	// Policy is "redshift" or "cosmic_time"
	Policy string `json:"policy" yaml:"policy"`
	// MassLimit is the minimum log10 final stellar mass, Msun
	MassLimit float64 `json:"mass_limit" yaml:"mass_limit"`
	// Interpolation scans catalogs that already carry interpolated variants
	Interpolation bool `json:"interpolation,omitempty" yaml:"interpolation,omitempty"`
	// Refine runs a raw pass and then an interpolation pass on its output
	Refine  bool `json:"refine,omitempty" yaml:"refine,omitempty"`
	Workers int  `json:"workers,omitempty" yaml:"workers,omitempty"`
}

// CatalogData locates the galaxy catalog to read and, optionally, where to write the
// updated catalog
type CatalogData struct {
	Path   string `json:"path" yaml:"path"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"` // "msgpack" or "json"; inferred from the extension when empty
	Output string `json:"output,omitempty" yaml:"output,omitempty"`
}

// StorageData holds the configuration for the result stores
type StorageData struct {
	SQLite      *SQLiteData      `json:"sqlite,omitempty" yaml:"sqlite,omitempty"`
	TimescaleDB *TimescaleDBData `json:"timescaledb,omitempty" yaml:"timescaledb,omitempty"`
}

type SQLiteData struct {
	Path string `json:"path" yaml:"path"`
}

type TimescaleDBData struct {
	ConnectionString string `json:"connection_string" yaml:"connection_string"`
}

// ServerData configures the read-only results API
type ServerData struct {
	Cert       string `json:"cert,omitempty" yaml:"cert,omitempty"`
	Key        string `json:"key,omitempty" yaml:"key,omitempty"`
	Port       int    `json:"port,omitempty" yaml:"port,omitempty"`
	ListenAddr string `json:"listen_addr,omitempty" yaml:"listen_addr,omitempty"`
}
