package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cperrin88/idxsync/internal/logger"
	"github.com/cperrin88/idxsync/pkg/config"
	"github.com/cperrin88/idxsync/pkg/database"
	"github.com/cperrin88/idxsync/pkg/fsutil"
	"github.com/cperrin88/idxsync/pkg/hooks"
	"github.com/cperrin88/idxsync/pkg/metrics"
	"github.com/cperrin88/idxsync/pkg/repository"
)

// EnvPrefix prefixes the environment variables overriding config keys,
// e.g. IDXSYNC_DEVICE_SDK for device.sdk.
const EnvPrefix = "IDXSYNC"

// These variables will be set by the main package
var (
	ConfigPath *string
	NoColor    *bool
)

// overrides layers environment variables and changed global flags over the config file.
var overrides = newOverrides()

func newOverrides() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags connects the persistent flags of root to their config keys.
func BindFlags(root *cobra.Command) error {
	for key, flag := range map[string]string{
		"database_path": "database",
		"log_level":     "log-level",
		"log_format":    "log-format",
	} {
		if err := overrides.BindPFlag(key, root.PersistentFlags().Lookup(flag)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", flag, err)
		}
	}
	return nil
}

// Setup loads the effective configuration and configures logging and colors.
// It runs before every command.
func Setup(*cobra.Command, []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger.InitLogger(cfg.Settings.LogLevel, logger.OutputFormat(cfg.Settings.LogFormat))
	setupColor(NoColor != nil && *NoColor)
	return nil
}

// loadConfigFile loads the config file without overrides, for commands that write it back.
func loadConfigFile() (*config.Config, error) {
	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// loadConfig loads the config file and applies environment and flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := loadConfigFile()
	if err != nil {
		return nil, err
	}
	for _, key := range config.Keys {
		if !overrides.IsSet(key) {
			continue
		}
		if err := cfg.SetValue(key, overrides.GetString(key)); err != nil {
			return nil, fmt.Errorf("invalid override for %s: %w", key, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getConfigPath() string {
	if ConfigPath != nil && *ConfigPath != "" {
		return *ConfigPath
	}

	defaultPath, err := config.GetDefaultConfigPath()
	if err != nil {
		// An empty path fails with a descriptive error once the config is read
		logger.Warn("Failed to get default config path, using empty path", logger.Fields{"error": err})
		return ""
	}
	return defaultPath
}

// openDatabase opens the configured database, creating its directory first.
func openDatabase(cfg *config.Config) (*database.DB, error) {
	path := cfg.Settings.DatabasePath
	if !strings.HasPrefix(path, ":memory:") && !strings.HasPrefix(path, "file:") {
		if err := fsutil.EnsureFileDir(path); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := database.Open(path)
	if err != nil {
		return nil, err
	}
	logger.Debug("Database opened", logger.Fields{"path": path})
	return db, nil
}

// compatibilityChecker returns the configured script checker, or the
// built-in device checker when no script is configured.
func compatibilityChecker(cfg *config.Config) (repository.CompatibilityChecker, error) {
	device := cfg.Device()
	if cfg.Settings.CompatibilityScript == "" {
		return device, nil
	}
	checker, err := hooks.LoadScriptChecker(cfg.Settings.CompatibilityScript, device)
	if err != nil {
		return nil, err
	}
	logger.Debug("Compatibility script loaded", logger.Fields{"path": cfg.Settings.CompatibilityScript})
	return checker, nil
}

// writeMetrics dumps the metrics textfile when one is configured.
func writeMetrics(cfg *config.Config) {
	path := cfg.Settings.MetricsFile
	if path == "" {
		return
	}
	if err := fsutil.EnsureFileDir(path); err != nil {
		logger.Warn("Failed to create metrics directory", logger.Fields{"path": path, "error": err})
		return
	}
	if err := metrics.WriteTextfile(path); err != nil {
		logger.Warn("Failed to write metrics", logger.Fields{"path": path, "error": err})
	}
}

func withDatabase(ctx context.Context, fn func(context.Context, *config.Config, *database.DB) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	return fn(ctx, cfg, db)
}
