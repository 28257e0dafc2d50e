package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Intake    IntakeConfig    `yaml:"intake" mapstructure:"intake"`
	Detect    DetectConfig    `yaml:"detect" mapstructure:"detect"`
	Verify    VerifyConfig    `yaml:"verify" mapstructure:"verify"`
	Registry  RegistryConfig  `yaml:"registry" mapstructure:"registry"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	Model       string  `yaml:"model" mapstructure:"model"`
	MaxTokens   int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RPS         float64 `yaml:"rps" mapstructure:"rps"`
}

// IntakeConfig configures the dialogue collector.
type IntakeConfig struct {
	MaxQuestions int `yaml:"max_questions" mapstructure:"max_questions"`
}

// DetectConfig configures company detection.
type DetectConfig struct {
	ConfidenceThreshold float64 `yaml:"confidence_threshold" mapstructure:"confidence_threshold"`
	RulesFile           string  `yaml:"rules_file" mapstructure:"rules_file"`
}

// VerifyConfig configures customer verification.
type VerifyConfig struct {
	MismatchThreshold int `yaml:"mismatch_threshold" mapstructure:"mismatch_threshold"`
}

// RegistryConfig points at the static reference data files. Empty paths
// fall back to the built-in tables.
type RegistryConfig struct {
	CustomersFile  string `yaml:"customers_file" mapstructure:"customers_file"`
	EscalationFile string `yaml:"escalation_file" mapstructure:"escalation_file"`
	ProtocolsFile  string `yaml:"protocols_file" mapstructure:"protocols_file"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrentSessions int `yaml:"max_concurrent_sessions" mapstructure:"max_concurrent_sessions"`
}

// ServerConfig configures the intake HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("INTAKE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "intake.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("batch.max_concurrent_sessions", 5)
	v.SetDefault("intake.max_questions", 6)
	v.SetDefault("detect.confidence_threshold", 0.5)
	v.SetDefault("verify.mismatch_threshold", 3)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("anthropic.timeout_secs", 30)
	v.SetDefault("anthropic.rps", 5.0)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
