// Package config provides configuration loading for the sblgnt toolchain.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/FocuswithJustin/sblgnt-viewer/internal/logging"
)

// DefaultFile is loaded when no --config flag is given and the file exists.
const DefaultFile = "sblgnt.yaml"

// Config represents the complete toolchain configuration.
type Config struct {
	Corpus CorpusConfig `yaml:"corpus"`
	Output OutputConfig `yaml:"output"`
	Log    LogConfig    `yaml:"log"`
	Server ServerConfig `yaml:"server"`
}

// CorpusConfig locates the checked-out SBLGNT sources.
type CorpusConfig struct {
	// TextRoot holds <Book>.txt files
	TextRoot string `yaml:"text_root"`
	// XMLRoot holds <Book>.xml files
	XMLRoot string `yaml:"xml_root"`
}

// OutputConfig locates the viewer data directory.
type OutputConfig struct {
	// DataDir is where payloads are written (default: viewer/data)
	DataDir string `yaml:"data_dir"`
	// Manifest overrides <DataDir>/manifest.json
	Manifest string `yaml:"manifest"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ServerConfig configures the development server.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// AllowedOrigins for CORS (empty = allow all)
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DefaultConfig returns a Config with the repository layout defaults.
func DefaultConfig() *Config {
	return &Config{
		Corpus: CorpusConfig{
			TextRoot: filepath.Join("external-data", "SBLGNT", "data", "sblgnt", "text"),
			XMLRoot:  filepath.Join("external-data", "SBLGNT", "data", "sblgnt", "xml"),
		},
		Output: OutputConfig{
			DataDir: filepath.Join("viewer", "data"),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// ManifestPath returns the configured manifest, defaulting to
// <DataDir>/manifest.json.
func (c *Config) ManifestPath() string {
	if c.Output.Manifest != "" {
		return c.Output.Manifest
	}
	return filepath.Join(c.Output.DataDir, "manifest.json")
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Corpus.TextRoot == "" {
		return fmt.Errorf("corpus.text_root is required")
	}
	if c.Corpus.XMLRoot == "" {
		return fmt.Errorf("corpus.xml_root is required")
	}
	if c.Output.DataDir == "" {
		return fmt.Errorf("output.data_dir is required")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		return fmt.Errorf("log.format: %w", err)
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Load reads path when set. With an empty path it reads DefaultFile if present
// and otherwise returns the defaults.
func Load(path string) (*Config, error) {
	if path != "" {
		return LoadFromFile(path)
	}
	if _, err := os.Stat(DefaultFile); err == nil {
		return LoadFromFile(DefaultFile)
	}
	return DefaultConfig(), nil
}

// SaveToFile saves configuration to a YAML file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Corpus.TextRoot != "" {
		c.Corpus.TextRoot = other.Corpus.TextRoot
	}
	if other.Corpus.XMLRoot != "" {
		c.Corpus.XMLRoot = other.Corpus.XMLRoot
	}

	if other.Output.DataDir != "" {
		c.Output.DataDir = other.Output.DataDir
	}
	if other.Output.Manifest != "" {
		c.Output.Manifest = other.Output.Manifest
	}

	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
	if other.Log.Format != "" {
		c.Log.Format = other.Log.Format
	}

	if other.Server.Addr != "" {
		c.Server.Addr = other.Server.Addr
	}
	if len(other.Server.AllowedOrigins) > 0 {
		c.Server.AllowedOrigins = other.Server.AllowedOrigins
	}
}
