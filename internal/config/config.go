package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the coinrank service.
type Config struct {
	Storage Storage `yaml:"storage"`
	Ingest  Ingest  `yaml:"ingest"`
	Server  Server  `yaml:"server"`
	Logging Logging `yaml:"logging"`
}

// Storage selects and parameterises the durable price-store backend.
type Storage struct {
	Backend    string `yaml:"backend"` // "sqlite" or "parquet"
	SQLitePath string `yaml:"sqlite_path"`
	DataDir    string `yaml:"data_dir"`

	// SerializeWrites funnels all SQLite writes through one mutex. Fallback
	// for deployments where concurrent DDL misbehaves; off by default.
	SerializeWrites bool `yaml:"serialize_writes"`
}

// Ingest controls the startup bulk load of price files.
type Ingest struct {
	PricesDir  string `yaml:"prices_dir"`
	MaxWorkers int    `yaml:"max_workers"`
}

// Server holds network listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Backend names accepted by Storage.Backend.
const (
	BackendSQLite  = "sqlite"
	BackendParquet = "parquet"
)

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, applies environment variable overrides, and fills defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if cfg.Storage.Backend != BackendSQLite && cfg.Storage.Backend != BackendParquet {
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides
// the corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("COINRANK_PRICES_DIR"); v != "" {
		cfg.Ingest.PricesDir = v
	}
	if v := os.Getenv("COINRANK_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("COINRANK_SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("COINRANK_STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("COINRANK_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// applyDefaults fills the fields a minimal config file may omit.
func applyDefaults(cfg *Config) {
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = BackendSQLite
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "coinrank.db"
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "data"
	}
	if cfg.Ingest.PricesDir == "" {
		cfg.Ingest.PricesDir = "prices"
	}
	if cfg.Ingest.MaxWorkers <= 0 {
		cfg.Ingest.MaxWorkers = 10
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}
