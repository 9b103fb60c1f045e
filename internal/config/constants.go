package config

import (
	"os"
	"path/filepath"
)

// DefaultConfig provides default configuration values
var DefaultConfig = Config{
	Scan: ScanConfig{
		MaxParallelAgents:      3,
		DetectorTimeoutSeconds: 20,
		CommandTimeoutSeconds:  10,
	},
	Adaptive: AdaptiveConfig{
		Enabled:             true,
		HighRiskThreshold:   1,
		MediumRiskThreshold: 5,
	},
	External: ExternalConfig{
		Enabled:        false,
		Provider:       "openai",
		BaseURL:        "https://api.openai.com",
		Model:          "gpt-4o-mini",
		TimeoutSeconds: 60,
	},
	Logging: LoggingConfig{
		Level:   "info",
		Format:  "text",
		LogFile: "", // Empty = stderr
	},
	Report: ReportConfig{
		OutputDir: "",
	},
}

// GetDefaultConfigDir returns the default configuration directory
func GetDefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".hostsentry"
	}
	return filepath.Join(home, ".hostsentry")
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() string {
	return filepath.Join(GetDefaultConfigDir(), "config.yaml")
}
