package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Storage access modes. Exactly one model is active per client: either the
// bearer-token intermediary API or anonymous direct-bucket HTTP.
const (
	StorageModeAPI    = "api"
	StorageModeBucket = "bucket"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Storage  StorageConfig  `toml:"storage"`
	Cache    CacheConfig    `toml:"cache"`
	Camera   CameraConfig   `toml:"camera"`
	Database DatabaseConfig `toml:"database"`
}

// StorageConfig selects the remote access model and its endpoint.
type StorageConfig struct {
	Mode    string `toml:"mode"`     // "api" or "bucket"
	BaseURL string `toml:"base_url"` // api mode: intermediary endpoint
	Bucket  string `toml:"bucket"`   // bucket mode: bucket name
	Region  string `toml:"region"`   // bucket mode: region
}

// CacheConfig contains read-cache TTLs in seconds.
type CacheConfig struct {
	ConfigTTLSeconds int `toml:"config_ttl_seconds"`
	ImageTTLSeconds  int `toml:"image_ttl_seconds"`
}

// CameraConfig contains capture device settings.
type CameraConfig struct {
	Device  string `toml:"device"`
	Width   int    `toml:"width"`
	Height  int    `toml:"height"`
	Quality int    `toml:"quality"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	// Write the embedded example config to the file
	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks storage mode and endpoint coherence.
func (c *Config) Validate() error {
	switch c.Storage.Mode {
	case StorageModeAPI:
		if c.Storage.BaseURL == "" {
			return fmt.Errorf("%w: storage.base_url required in api mode", ErrInvalidConfig)
		}
	case StorageModeBucket:
		if c.Storage.Bucket == "" {
			return fmt.Errorf("%w: storage.bucket required in bucket mode", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown storage.mode %q", ErrInvalidConfig, c.Storage.Mode)
	}
	return nil
}

// Endpoint resolves the base URL for the configured storage mode.
//
// Bucket mode addresses the bucket's virtual-hosted S3 URL; the same object
// paths work in both modes.
func (c *Config) Endpoint() string {
	if c.Storage.Mode == StorageModeBucket {
		region := c.Storage.Region
		if region == "" {
			region = "ap-northeast-1"
		}
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", c.Storage.Bucket, region)
	}
	return c.Storage.BaseURL
}
