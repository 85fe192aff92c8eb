// Package config loads application configuration from an optional YAML file
// plus CVRGPT_-prefixed environment variables, and initializes the global
// logger.
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
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Provider  ProviderConfig  `yaml:"provider" mapstructure:"provider"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Chat      ChatConfig      `yaml:"chat" mapstructure:"chat"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Events    EventsConfig    `yaml:"events" mapstructure:"events"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Host             string   `yaml:"host" mapstructure:"host"`
	Port             int      `yaml:"port" mapstructure:"port"`
	ReadTimeoutSecs  int      `yaml:"read_timeout_secs" mapstructure:"read_timeout_secs"`
	WriteTimeoutSecs int      `yaml:"write_timeout_secs" mapstructure:"write_timeout_secs"`
	ShutdownSecs     int      `yaml:"shutdown_secs" mapstructure:"shutdown_secs"`
	CORSOrigins      []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	APIKeys          []string `yaml:"api_keys" mapstructure:"api_keys"`
	RateLimitRPS     float64  `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	RateLimitBurst   int      `yaml:"rate_limit_burst" mapstructure:"rate_limit_burst"`
	CacheMaxAgeSecs  int      `yaml:"cache_max_age_secs" mapstructure:"cache_max_age_secs"`
}

// ProviderConfig selects and parameterizes the registry provider.
type ProviderConfig struct {
	Kind            string `yaml:"kind" mapstructure:"kind"`
	FixtureDir      string `yaml:"fixture_dir" mapstructure:"fixture_dir"`
	IndexBaseURL    string `yaml:"index_base_url" mapstructure:"index_base_url"`
	RegnskabBaseURL string `yaml:"regnskab_base_url" mapstructure:"regnskab_base_url"`
	Token           string `yaml:"token" mapstructure:"token"`
	User            string `yaml:"user" mapstructure:"user"`
	Password        string `yaml:"password" mapstructure:"password"`
	TTLSecs         int    `yaml:"ttl_secs" mapstructure:"ttl_secs"`
}

// CacheConfig configures the response cache backend.
type CacheConfig struct {
	Backend     string `yaml:"backend" mapstructure:"backend"` // memory | sqlite | postgres
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	TTLSecs     int    `yaml:"ttl_secs" mapstructure:"ttl_secs"`
}

// ChatConfig configures the chat router.
type ChatConfig struct {
	Classifier    string `yaml:"classifier" mapstructure:"classifier"` // keyword | llm
	ThreadTTLSecs int    `yaml:"thread_ttl_secs" mapstructure:"thread_ttl_secs"`
}

// AnthropicConfig holds Anthropic API settings for the LLM classifier.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// EventsConfig configures the registry event feed.
type EventsConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// LogConfig configures the global logger.
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
	v.SetEnvPrefix("CVRGPT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout_secs", 15)
	v.SetDefault("server.write_timeout_secs", 30)
	v.SetDefault("server.shutdown_secs", 10)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit_rps", 10.0)
	v.SetDefault("server.rate_limit_burst", 20)
	v.SetDefault("server.cache_max_age_secs", 300)
	v.SetDefault("provider.kind", "fixture")
	v.SetDefault("provider.fixture_dir", "fixtures")
	v.SetDefault("provider.ttl_secs", 300)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.sqlite_path", "cvrgpt-cache.db")
	v.SetDefault("cache.ttl_secs", 300)
	v.SetDefault("chat.classifier", "keyword")
	v.SetDefault("chat.thread_ttl_secs", 3600)
	v.SetDefault("anthropic.model", "claude-3-5-haiku-latest")
	v.SetDefault("events.dir", "fixtures")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
