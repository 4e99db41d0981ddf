// Package config provides YAML-based configuration for the VAT wizard
// backend.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig is the root configuration structure.
type AppConfig struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Validation ValidationConfig `yaml:"validation"`
	Upload     UploadConfig     `yaml:"upload"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         int    `yaml:"port"`
	BindAddress  string `yaml:"bindAddress"`
	EnableCORS   bool   `yaml:"enableCors"`
	AllowOrigins string `yaml:"allowOrigins"`
	ReadTimeout  int    `yaml:"readTimeoutSeconds"`
	WriteTimeout int    `yaml:"writeTimeoutSeconds"`
	IdleTimeout  int    `yaml:"idleTimeoutSeconds"`
	BodyLimit    string `yaml:"bodyLimit"`
}

// StorageConfig contains on-disk layout settings.
type StorageConfig struct {
	DataDirectory    string `yaml:"dataDirectory"`
	ReportsDirectory string `yaml:"reportsDirectory"`
}

// ValidationConfig points at the remote compliance service.
type ValidationConfig struct {
	BaseURL     string `yaml:"baseUrl"`
	APIToken    string `yaml:"apiToken"`
	Concurrency int    `yaml:"downloadConcurrency"`
}

// UploadConfig contains admission settings.
type UploadConfig struct {
	MaxFileSize      string `yaml:"maxFileSize"`
	ProgressTickMs   int    `yaml:"progressTickMs"`
	AllowedFileTypes string `yaml:"allowedFileTypes"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8090,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 60,
			IdleTimeout:  120,
			BodyLimit:    "32M",
		},
		Storage: StorageConfig{
			DataDirectory:    "./data",
			ReportsDirectory: "./data/reports",
		},
		Validation: ValidationConfig{
			BaseURL:     "http://localhost:8000",
			APIToken:    "",
			Concurrency: 4,
		},
		Upload: UploadConfig{
			MaxFileSize:      "5M",
			ProgressTickMs:   200,
			AllowedFileTypes: ".csv,.txt,.xls,.xlsx",
		},
	}
}

// MaxFileSizeBytes parses the human-readable size limit ("5M", "512K",
// plain bytes). Unparseable values fall back to the default.
func (u UploadConfig) MaxFileSizeBytes() int64 {
	s := strings.TrimSpace(strings.ToUpper(u.MaxFileSize))
	if s == "" {
		return 5 << 20
	}

	var multiplier int64 = 1
	switch {
	case strings.HasSuffix(s, "G"):
		multiplier = 1 << 30
		s = strings.TrimSuffix(s, "G")
	case strings.HasSuffix(s, "M"):
		multiplier = 1 << 20
		s = strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "K"):
		multiplier = 1 << 10
		s = strings.TrimSuffix(s, "K")
	}

	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 5 << 20
	}
	return n * multiplier
}

// AllowedExtensions splits the comma-separated whitelist into clean
// extension entries.
func (u UploadConfig) AllowedExtensions() []string {
	var out []string
	for _, part := range strings.Split(u.AllowedFileTypes, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

// LoadConfig loads the configuration file, creating it with defaults
// on first run.
func LoadConfig(configPath string) (*AppConfig, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config := DefaultConfig()
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		config.applyEnvironmentOverrides()
		config.resolvePaths(filepath.Dir(configPath))
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &AppConfig{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnvironmentOverrides()
	config.resolvePaths(filepath.Dir(configPath))

	return config, nil
}

// Save writes the configuration to disk.
func (c *AppConfig) Save(configPath string) error {
	output, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# VAT Wizard Backend Configuration\n# This file is auto-generated on first run\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnvironmentOverrides allows environment variables to override
// config values.
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Storage.DataDirectory = dataDir
	}

	if baseURL := os.Getenv("VALIDATION_URL"); baseURL != "" {
		c.Validation.BaseURL = baseURL
	}

	if token := os.Getenv("API_TOKEN"); token != "" {
		c.Validation.APIToken = token
	}
}

// resolvePaths converts relative paths to absolute based on config
// file location.
func (c *AppConfig) resolvePaths(configDir string) {
	if !filepath.IsAbs(c.Storage.DataDirectory) {
		c.Storage.DataDirectory = filepath.Join(configDir, c.Storage.DataDirectory)
	}
	if !filepath.IsAbs(c.Storage.ReportsDirectory) {
		c.Storage.ReportsDirectory = filepath.Join(configDir, c.Storage.ReportsDirectory)
	}
}

// GetDataDir returns the absolute data directory path.
func (c *AppConfig) GetDataDir() string {
	return c.Storage.DataDirectory
}

// GetReportsDir returns the absolute reports directory path.
func (c *AppConfig) GetReportsDir() string {
	return c.Storage.ReportsDirectory
}

// GetServerAddr returns the server bind address.
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// EnsureDirectories creates all necessary directories.
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{
		c.Storage.DataDirectory,
		c.Storage.ReportsDirectory,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
