// Package config provides configuration management for idxsync. It loads
// YAML configuration files, fills in defaults and validates the result.
// Environment variable overrides are applied by the CLI.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cperrin88/idxsync/pkg/errors"
	"github.com/cperrin88/idxsync/pkg/fsutil"
	"github.com/cperrin88/idxsync/pkg/repository"
	"github.com/cperrin88/idxsync/pkg/signing"
)

// Config represents the application configuration.
type Config struct {
	// Repositories pins signer fingerprints for repository addresses.
	Repositories []*RepositoryConfig `yaml:"repositories"`

	Settings Settings `yaml:"settings"`
}

// RepositoryConfig represents a single trusted repository.
type RepositoryConfig struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
	// Fingerprint is the SHA-256 fingerprint expected on the first sync.
	Fingerprint string `yaml:"fingerprint,omitempty"`
}

// DeviceConfig describes the device versions are checked against.
type DeviceConfig struct {
	SDK  int      `yaml:"sdk"`
	ABIs []string `yaml:"abis,omitempty"`
}

// Settings represents general application settings.
type Settings struct {
	DatabasePath string `yaml:"database_path,omitempty"`

	// Container settings
	PayloadName         string `yaml:"payload_name"`
	MaxPayloadEntrySize int64  `yaml:"max_payload_entry_size"`

	// Compatibility settings
	Device              DeviceConfig `yaml:"device"`
	CompatibilityScript string       `yaml:"compatibility_script,omitempty"`

	// Output settings
	LogLevel    string `yaml:"log_level"`  // debug, info, warn, error
	LogFormat   string `yaml:"log_format"` // text, json
	MetricsFile string `yaml:"metrics_file,omitempty"`
}

// Default configuration values.
const (
	DefaultSDK       = 34
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"

	// YAMLIndent is the number of spaces to use for YAML indentation.
	YAMLIndent = 2
)

// DefaultABIs are the ABIs assumed when none are configured.
var DefaultABIs = []string{"arm64-v8a", "armeabi-v7a", "armeabi"}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	dataDir, err := fsutil.GetDataDir()
	if err != nil {
		// Fallback to current directory if we can't determine the data dir
		dataDir = "."
	}

	return &Config{
		Repositories: []*RepositoryConfig{},
		Settings: Settings{
			DatabasePath:        filepath.Join(dataDir, "idxsync.db"),
			PayloadName:         signing.DefaultPayloadName,
			MaxPayloadEntrySize: signing.DefaultMaxEntrySize,
			Device: DeviceConfig{
				SDK:  DefaultSDK,
				ABIs: append([]string(nil), DefaultABIs...),
			},
			LogLevel:  DefaultLogLevel,
			LogFormat: DefaultLogFormat,
		},
	}
}

// LoadConfig loads configuration from a file. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config data")
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(errors.ErrConfigParse, err.Error())
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// SaveConfig saves configuration to a file. The file is replaced atomically.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	data, err := c.ToYAML()
	if err != nil {
		return err
	}
	if err := fsutil.WriteBytesAtomic(absPath, fsutil.FileModeDefault, data); err != nil {
		return errors.Wrap(errors.ErrConfigWrite, err.Error())
	}
	return nil
}

// ToYAML converts the config to YAML bytes.
func (c *Config) ToYAML() ([]byte, error) {
	var b strings.Builder
	encoder := yaml.NewEncoder(&b)
	encoder.SetIndent(YAMLIndent)
	if err := encoder.Encode(c); err != nil {
		return nil, errors.Wrap(errors.ErrConfigEncode, err.Error())
	}
	if err := encoder.Close(); err != nil {
		return nil, errors.Wrap(errors.ErrConfigEncode, err.Error())
	}
	return []byte(b.String()), nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return errors.ErrConfigValidation
	}
	if err := validateRepositories(c.Repositories); err != nil {
		return errors.Wrap(errors.ErrConfigValidation, err.Error())
	}
	if err := validateSettings(c.Settings); err != nil {
		return errors.Wrap(errors.ErrConfigValidation, err.Error())
	}
	return nil
}

func validateRepositories(repos []*RepositoryConfig) error {
	names := make(map[string]bool)
	for i, repo := range repos {
		if repo.Name == "" {
			return fmt.Errorf("repository at index %d has no name", i)
		}
		if repo.Address == "" {
			return fmt.Errorf("repository %q has no address", repo.Name)
		}
		if names[repo.Name] {
			return fmt.Errorf("repository %q is configured twice", repo.Name)
		}
		names[repo.Name] = true
		if fp := signing.NormalizeFingerprint(repo.Fingerprint); fp != "" && !isHex(fp, 64) {
			return fmt.Errorf("repository %q: fingerprint must be 64 hex digits", repo.Name)
		}
	}
	return nil
}

func validateSettings(s Settings) error {
	if s.MaxPayloadEntrySize <= 0 {
		return fmt.Errorf("max_payload_entry_size must be positive, got %d", s.MaxPayloadEntrySize)
	}
	if s.Device.SDK < 1 {
		return fmt.Errorf("device.sdk must be positive, got %d", s.Device.SDK)
	}
	if s.CompatibilityScript != "" && filepath.Ext(s.CompatibilityScript) != ".tengo" {
		return fmt.Errorf("compatibility_script must be a .tengo file: %s", s.CompatibilityScript)
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[s.LogFormat] {
		return fmt.Errorf("invalid log_format %q (valid: text, json)", s.LogFormat)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(s.LogLevel)] {
		return fmt.Errorf("invalid log_level %q (valid: debug, info, warn, error)", s.LogLevel)
	}
	return nil
}

func isHex(s string, length int) bool {
	if len(s) != length {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() (string, error) {
	configDir, err := fsutil.GetConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

// AddRepository adds a trusted repository to the configuration.
func (c *Config) AddRepository(name, address, fingerprint string) error {
	for _, repo := range c.Repositories {
		if repo.Name == name {
			return errors.Wrapf(errors.ErrRepositoryExists, "repository %q", name)
		}
	}
	c.Repositories = append(c.Repositories, &RepositoryConfig{
		Name:        name,
		Address:     address,
		Fingerprint: fingerprint,
	})
	return nil
}

// RemoveRepository removes a repository from the configuration.
func (c *Config) RemoveRepository(name string) bool {
	for i, repo := range c.Repositories {
		if repo.Name == name {
			c.Repositories = append(c.Repositories[:i], c.Repositories[i+1:]...)
			return true
		}
	}
	return false
}

// GetRepository gets a repository configuration by name.
func (c *Config) GetRepository(name string) *RepositoryConfig {
	for _, repo := range c.Repositories {
		if repo.Name == name {
			return repo
		}
	}
	return nil
}

// RepositoryByAddress gets a repository configuration by address, ignoring a trailing slash.
func (c *Config) RepositoryByAddress(address string) *RepositoryConfig {
	address = strings.TrimSuffix(address, "/")
	for _, repo := range c.Repositories {
		if strings.TrimSuffix(repo.Address, "/") == address {
			return repo
		}
	}
	return nil
}

// Verifier returns a container verifier using the configured limits.
func (c *Config) Verifier() *signing.Verifier {
	v := signing.NewVerifier()
	v.PayloadName = c.Settings.PayloadName
	v.MaxEntrySize = c.Settings.MaxPayloadEntrySize
	return v
}

// Device returns the built-in compatibility checker for the configured device.
func (c *Config) Device() repository.DeviceChecker {
	return repository.DeviceChecker{SDK: c.Settings.Device.SDK, ABIs: c.Settings.Device.ABIs}
}

// applyDefaults fills in missing values with defaults.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.Settings.DatabasePath == "" {
		c.Settings.DatabasePath = defaults.Settings.DatabasePath
	}
	if c.Settings.PayloadName == "" {
		c.Settings.PayloadName = defaults.Settings.PayloadName
	}
	if c.Settings.MaxPayloadEntrySize == 0 {
		c.Settings.MaxPayloadEntrySize = defaults.Settings.MaxPayloadEntrySize
	}
	if c.Settings.Device.SDK == 0 {
		c.Settings.Device.SDK = defaults.Settings.Device.SDK
	}
	if len(c.Settings.Device.ABIs) == 0 {
		c.Settings.Device.ABIs = defaults.Settings.Device.ABIs
	}
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = defaults.Settings.LogLevel
	}
	if c.Settings.LogFormat == "" {
		c.Settings.LogFormat = defaults.Settings.LogFormat
	}
	if c.Repositories == nil {
		c.Repositories = []*RepositoryConfig{}
	}
}
