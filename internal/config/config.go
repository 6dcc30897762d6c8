// Package config provides unified configuration for the DriftDB services.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the unified configuration for the DriftDB server and tools.
type Config struct {
	// DataDir is the base directory for all data files
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// Table is the name of the managed data table
	Table string `json:"table" yaml:"table"`

	// DefaultActor is attributed to changes when no actor is supplied
	DefaultActor string `json:"default_actor" yaml:"default_actor"`

	// HTTP configuration
	HTTP HTTPConfig `json:"http" yaml:"http"`

	// Snapshot configuration
	Snapshot SnapshotConfig `json:"snapshot" yaml:"snapshot"`

	// Storage configuration
	Storage StorageConfig `json:"storage" yaml:"storage"`
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	// Addr is the HTTP listen address
	Addr string `json:"addr" yaml:"addr"`

	// ReadTimeout is the HTTP read timeout
	ReadTimeout time.Duration `json:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout is the HTTP write timeout
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`

	// IdleTimeout is the HTTP idle timeout
	IdleTimeout time.Duration `json:"idle_timeout" yaml:"idle_timeout"`
}

// SnapshotConfig holds snapshot and ledger export configuration.
type SnapshotConfig struct {
	// WorkDir is the directory snapshots are staged in before upload
	WorkDir string `json:"work_dir" yaml:"work_dir"`

	// ExportLimit caps the number of ledger entries per export
	ExportLimit int `json:"export_limit" yaml:"export_limit"`

	// Upload controls whether finished snapshots are pushed to storage
	Upload bool `json:"upload" yaml:"upload"`
}

// StorageConfig holds object storage configuration.
type StorageConfig struct {
	// Type is the storage type: local, s3
	Type string `json:"type" yaml:"type"`

	// Path is the local storage path (for local type)
	Path string `json:"path" yaml:"path"`

	// S3 configuration (for s3 type)
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 storage configuration.
type S3Config struct {
	// Bucket is the S3 bucket name
	Bucket string `json:"bucket" yaml:"bucket"`

	// Region is the AWS region
	Region string `json:"region" yaml:"region"`

	// Endpoint is the S3 endpoint (for S3-compatible storage)
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// Prefix is prepended to every object key
	Prefix string `json:"prefix" yaml:"prefix"`
}

// DefaultConfig returns the default configuration for local development.
func DefaultConfig() *Config {
	return &Config{
		DataDir:      "./data/driftdb",
		Table:        "product",
		DefaultActor: "system",
		HTTP: HTTPConfig{
			Addr:         ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Snapshot: SnapshotConfig{
			WorkDir:     "",
			ExportLimit: 100000,
			Upload:      false,
		},
		Storage: StorageConfig{
			Type: "local",
			Path: "",
		},
	}
}

// Resolve resolves relative paths and sets defaults based on DataDir.
func (c *Config) Resolve() {
	if c.DataDir == "" {
		c.DataDir = "./data/driftdb"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = filepath.Join(c.DataDir, "storage")
	}
	if c.Snapshot.WorkDir == "" {
		c.Snapshot.WorkDir = filepath.Join(c.DataDir, "snapshots")
	}
}

// DatabasePath returns the path to the table database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "drift.db")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.Table == "" {
		return fmt.Errorf("table is required")
	}

	if c.Storage.Type != "local" && c.Storage.Type != "s3" {
		return fmt.Errorf("invalid storage type: %s (must be local or s3)", c.Storage.Type)
	}
	if c.Storage.Type == "s3" && c.Storage.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket is required when storage type is s3")
	}

	if c.Snapshot.ExportLimit <= 0 {
		return fmt.Errorf("snapshot.export_limit must be positive, got %d", c.Snapshot.ExportLimit)
	}

	return nil
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadDotEnv loads a .env file from the working directory when present, so
// local development does not require exporting variables by hand. A missing
// file is not an error.
func LoadDotEnv() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the DRIFT_ prefix.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("DRIFT_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("DRIFT_TABLE"); v != "" {
		cfg.Table = v
	}
	if v := os.Getenv("DRIFT_DEFAULT_ACTOR"); v != "" {
		cfg.DefaultActor = v
	}

	// HTTP configuration
	if v := os.Getenv("DRIFT_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("DRIFT_HTTP_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HTTP.ReadTimeout = d
		}
	}
	if v := os.Getenv("DRIFT_HTTP_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HTTP.WriteTimeout = d
		}
	}

	// Snapshot configuration
	if v := os.Getenv("DRIFT_SNAPSHOT_WORK_DIR"); v != "" {
		cfg.Snapshot.WorkDir = v
	}
	if v := os.Getenv("DRIFT_SNAPSHOT_EXPORT_LIMIT"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Snapshot.ExportLimit)
	}
	if v := os.Getenv("DRIFT_SNAPSHOT_UPLOAD"); v != "" {
		cfg.Snapshot.Upload = v == "true" || v == "1"
	}

	// Storage configuration
	if v := os.Getenv("DRIFT_STORAGE_TYPE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("DRIFT_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("DRIFT_S3_BUCKET"); v != "" {
		cfg.Storage.S3.Bucket = v
	}
	if v := os.Getenv("DRIFT_S3_REGION"); v != "" {
		cfg.Storage.S3.Region = v
	}
	if v := os.Getenv("DRIFT_S3_ENDPOINT"); v != "" {
		cfg.Storage.S3.Endpoint = v
	}
	if v := os.Getenv("DRIFT_S3_PREFIX"); v != "" {
		cfg.Storage.S3.Prefix = v
	}
}

// EnsureDirectories creates all required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.DataDir,
		c.Storage.Path,
		c.Snapshot.WorkDir,
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
