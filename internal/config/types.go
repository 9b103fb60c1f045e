package config

// Config represents the application configuration
type Config struct {
	Scan     ScanConfig     `mapstructure:"scan" yaml:"scan"`
	Adaptive AdaptiveConfig `mapstructure:"adaptive" yaml:"adaptive"`
	External ExternalConfig `mapstructure:"external" yaml:"external"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Report   ReportConfig   `mapstructure:"report" yaml:"report"`
}

// ScanConfig controls detector scheduling
type ScanConfig struct {
	// MaxParallelAgents bounds each detector wave; 0 or 1 runs sequentially
	MaxParallelAgents      int `mapstructure:"max_parallel_agents" yaml:"max_parallel_agents"`
	DetectorTimeoutSeconds int `mapstructure:"detector_timeout_seconds" yaml:"detector_timeout_seconds"`
	CommandTimeoutSeconds  int `mapstructure:"command_timeout_seconds" yaml:"command_timeout_seconds"`
}

// AdaptiveConfig controls the conditional second detector phase
type AdaptiveConfig struct {
	Enabled             bool `mapstructure:"enabled" yaml:"enabled"`
	HighRiskThreshold   int  `mapstructure:"high_risk_threshold" yaml:"high_risk_threshold"`
	MediumRiskThreshold int  `mapstructure:"medium_risk_threshold" yaml:"medium_risk_threshold"`
}

// ExternalConfig contains configuration for the optional external analysis
// gateway. The API key is supplied out of band via the environment
// (HOSTSENTRY_EXTERNAL_API_KEY, typically from a .env file) and is never
// written to the config file.
type ExternalConfig struct {
	Enabled        bool   `mapstructure:"enabled" yaml:"enabled"`
	Provider       string `mapstructure:"provider" yaml:"provider"`
	BaseURL        string `mapstructure:"base_url" yaml:"base_url"`
	Model          string `mapstructure:"model" yaml:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	APIKey         string `mapstructure:"api_key" yaml:"-"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level   string `mapstructure:"level" yaml:"level"`
	Format  string `mapstructure:"format" yaml:"format"`
	LogFile string `mapstructure:"log_file" yaml:"log_file"`
}

// ReportConfig controls where run reports are written
type ReportConfig struct {
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`
}
