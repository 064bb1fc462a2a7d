package config

import (
	"database/sql"
	"embed"
	"fmt"
	"strconv"

	"github.com/chrissnell/quenchfinder/pkg/migrate"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrations returns the schema migrations of the configuration database
func Migrations() *migrate.FSProvider {
	return migrate.NewFSProvider(migrationsFS, "migrations", "config_migrations", "sqlite")
}

// Setting keys of the settings table
const (
	keyFinderPolicy        = "finder.policy"
	keyFinderMassLimit     = "finder.mass_limit"
	keyFinderInterpolation = "finder.interpolation"
	keyFinderRefine        = "finder.refine"
	keyFinderWorkers       = "finder.workers"
	keyCatalogPath         = "catalog.path"
	keyCatalogFormat       = "catalog.format"
	keyCatalogOutput       = "catalog.output"
	keySQLitePath          = "storage.sqlite.path"
	keyTimescaleDBConn     = "storage.timescaledb.connection_string"
	keyServerListenAddr    = "server.listen_addr"
	keyServerPort          = "server.port"
	keyServerCert          = "server.cert"
	keyServerKey           = "server.key"
)

// SQLiteProvider implements ConfigProvider on a key/value settings table
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider opens (creating if needed) a SQLite configuration database
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	if err := migrate.NewMigrator(db, Migrations(), nil).MigrateUp(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate config database: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

func (s *SQLiteProvider) settings() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan setting row: %w", err)
		}
		values[key] = value
	}
	return values, rows.Err()
}

// LoadConfig loads the complete configuration from the settings table
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	values, err := s.settings()
	if err != nil {
		return nil, err
	}

	config := &ConfigData{}
	for key, value := range values {
		if err := applySetting(config, key, value); err != nil {
			return nil, fmt.Errorf("setting %s: %w", key, err)
		}
	}
	return config, nil
}

func applySetting(c *ConfigData, key, value string) error {
	var err error
	switch key {
	case keyFinderPolicy:
		c.Finder.Policy = value
	case keyFinderMassLimit:
		c.Finder.MassLimit, err = strconv.ParseFloat(value, 64)
	case keyFinderInterpolation:
		c.Finder.Interpolation, err = strconv.ParseBool(value)
	case keyFinderRefine:
		c.Finder.Refine, err = strconv.ParseBool(value)
	case keyFinderWorkers:
		c.Finder.Workers, err = strconv.Atoi(value)
	case keyCatalogPath:
		c.Catalog.Path = value
	case keyCatalogFormat:
		c.Catalog.Format = value
	case keyCatalogOutput:
		c.Catalog.Output = value
	case keySQLitePath:
		c.Storage.SQLite = &SQLiteData{Path: value}
	case keyTimescaleDBConn:
		c.Storage.TimescaleDB = &TimescaleDBData{ConnectionString: value}
	case keyServerListenAddr, keyServerPort, keyServerCert, keyServerKey:
		if c.Server == nil {
			c.Server = &ServerData{}
		}
		switch key {
		case keyServerListenAddr:
			c.Server.ListenAddr = value
		case keyServerPort:
			c.Server.Port, err = strconv.Atoi(value)
		case keyServerCert:
			c.Server.Cert = value
		case keyServerKey:
			c.Server.Key = value
		}
	default:
		// unknown keys are left for newer versions
	}
	return err
}

// GetFinderConfig returns the detector configuration
func (s *SQLiteProvider) GetFinderConfig() (*FinderData, error) {
	config, err := s.LoadConfig()
	if err != nil {
		return nil, err
	}
	return &config.Finder, nil
}

// GetStorageConfig returns storage configuration
func (s *SQLiteProvider) GetStorageConfig() (*StorageData, error) {
	config, err := s.LoadConfig()
	if err != nil {
		return nil, err
	}
	return &config.Storage, nil
}

// SaveConfig replaces every stored setting with those of config
func (s *SQLiteProvider) SaveConfig(config *ConfigData) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM settings`); err != nil {
		return fmt.Errorf("failed to clear settings: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, kv := range settingsOf(config) {
		if _, err := stmt.Exec(kv[0], kv[1]); err != nil {
			return fmt.Errorf("failed to insert setting %s: %w", kv[0], err)
		}
	}

	return tx.Commit()
}

func settingsOf(c *ConfigData) [][2]string {
	out := [][2]string{
		{keyFinderPolicy, c.Finder.Policy},
		{keyFinderMassLimit, strconv.FormatFloat(c.Finder.MassLimit, 'g', -1, 64)},
		{keyFinderInterpolation, strconv.FormatBool(c.Finder.Interpolation)},
		{keyFinderRefine, strconv.FormatBool(c.Finder.Refine)},
		{keyFinderWorkers, strconv.Itoa(c.Finder.Workers)},
		{keyCatalogPath, c.Catalog.Path},
		{keyCatalogFormat, c.Catalog.Format},
		{keyCatalogOutput, c.Catalog.Output},
	}
	if c.Storage.SQLite != nil {
		out = append(out, [2]string{keySQLitePath, c.Storage.SQLite.Path})
	}
	if c.Storage.TimescaleDB != nil {
		out = append(out, [2]string{keyTimescaleDBConn, c.Storage.TimescaleDB.ConnectionString})
	}
	if c.Server != nil {
		out = append(out,
			[2]string{keyServerListenAddr, c.Server.ListenAddr},
			[2]string{keyServerPort, strconv.Itoa(c.Server.Port)},
			[2]string{keyServerCert, c.Server.Cert},
			[2]string{keyServerKey, c.Server.Key},
		)
	}
	return out
}

// IsReadOnly returns false since SQLite supports writes
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
