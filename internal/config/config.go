package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// InitConfig initializes the configuration using Viper
func InitConfig(configPath string) error {
	// Load .env file if it exists (fail silently if not found)
	loadEnvFiles()

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(GetDefaultConfigDir())
		viper.AddConfigPath(".")
	}

	// Set defaults
	viper.SetDefault("scan.max_parallel_agents", DefaultConfig.Scan.MaxParallelAgents)
	viper.SetDefault("scan.detector_timeout_seconds", DefaultConfig.Scan.DetectorTimeoutSeconds)
	viper.SetDefault("scan.command_timeout_seconds", DefaultConfig.Scan.CommandTimeoutSeconds)
	viper.SetDefault("adaptive.enabled", DefaultConfig.Adaptive.Enabled)
	viper.SetDefault("adaptive.high_risk_threshold", DefaultConfig.Adaptive.HighRiskThreshold)
	viper.SetDefault("adaptive.medium_risk_threshold", DefaultConfig.Adaptive.MediumRiskThreshold)
	viper.SetDefault("external.enabled", DefaultConfig.External.Enabled)
	viper.SetDefault("external.provider", DefaultConfig.External.Provider)
	viper.SetDefault("external.base_url", DefaultConfig.External.BaseURL)
	viper.SetDefault("external.model", DefaultConfig.External.Model)
	viper.SetDefault("external.timeout_seconds", DefaultConfig.External.TimeoutSeconds)
	viper.SetDefault("external.api_key", "")
	viper.SetDefault("logging.level", DefaultConfig.Logging.Level)
	viper.SetDefault("logging.format", DefaultConfig.Logging.Format)
	viper.SetDefault("logging.log_file", DefaultConfig.Logging.LogFile)
	viper.SetDefault("report.output_dir", DefaultConfig.Report.OutputDir)

	// Enable environment variable overrides (HOSTSENTRY_EXTERNAL_API_KEY etc.)
	viper.SetEnvPrefix("HOSTSENTRY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file (it's okay if it doesn't exist)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if configPath == "" || !os.IsNotExist(err) {
				return fmt.Errorf("failed to read config; %w", err)
			}
		}
	}

	return nil
}

// GetConfig returns the current configuration
func GetConfig() (*Config, error) {
	var cfg Config

	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config; %w", err)
	}

	return &cfg, nil
}

// loadEnvFiles loads environment variables from .env files.
// It tries multiple locations and fails silently if files don't exist.
func loadEnvFiles() {
	locations := []string{
		".env",
		filepath.Join(GetDefaultConfigDir(), ".env"),
	}

	// .env.local overrides .env
	localLocations := []string{
		".env.local",
		filepath.Join(GetDefaultConfigDir(), ".env.local"),
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			_ = godotenv.Load(location)
		}
	}

	for _, location := range localLocations {
		if _, err := os.Stat(location); err == nil {
			_ = godotenv.Load(location)
		}
	}
}
