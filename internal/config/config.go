// Package config loads service configuration from an optional file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jonathan/resume-optimizer/internal/llm"
	"github.com/jonathan/resume-optimizer/internal/retry"
	"github.com/jonathan/resume-optimizer/internal/tokenstore"
)

// EnvPrefix prefixes every environment variable read by Load, e.g.
// RESUME_OPTIMIZER_SERVER_PORT for server.port.
const EnvPrefix = "RESUME_OPTIMIZER"

// Config holds all configuration for the service and the CLI.
type Config struct {
	Server      ServerConfig     `mapstructure:"server"`
	LLM         LLMConfig        `mapstructure:"llm"`
	Oracle      OracleConfig     `mapstructure:"oracle"`
	TokenStore  TokenStoreConfig `mapstructure:"token_store"`
	DatabaseURL string           `mapstructure:"database_url"`
	Log         LogConfig        `mapstructure:"log"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int             `mapstructure:"port"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig bounds requests per client IP.
type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Per hour; both endpoints call the generative model.
	AnalyzeLimit  int           `mapstructure:"analyze_limit"`
	OptimizeLimit int           `mapstructure:"optimize_limit"`
	DefaultLimit  int           `mapstructure:"default_limit"`
	DefaultWindow time.Duration `mapstructure:"default_window"`
	Whitelist     []string      `mapstructure:"whitelist"`
	Blacklist     []string      `mapstructure:"blacklist"`
}

// LLMConfig selects the generative model per tier.
type LLMConfig struct {
	APIKey      string            `mapstructure:"api_key"`
	Models      map[string]string `mapstructure:"models"`
	Temperature float32           `mapstructure:"temperature"`
}

// OracleConfig bounds oracle calls.
type OracleConfig struct {
	MaxAttempts    int           `mapstructure:"max_attempts"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
	Backoff        time.Duration `mapstructure:"backoff"`
}

// TokenStoreConfig selects and configures the token store backend.
type TokenStoreConfig struct {
	Backend       string        `mapstructure:"backend"`
	TTL           time.Duration `mapstructure:"ttl"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	BoltPath      string        `mapstructure:"bolt_path"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	JSON  bool `mapstructure:"json"`
	Debug bool `mapstructure:"debug"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.rate_limit.enabled", true)
	v.SetDefault("server.rate_limit.analyze_limit", 30)
	v.SetDefault("server.rate_limit.optimize_limit", 30)
	v.SetDefault("server.rate_limit.default_limit", 600)
	v.SetDefault("server.rate_limit.default_window", time.Minute)
	v.SetDefault("server.rate_limit.whitelist", []string{})
	v.SetDefault("server.rate_limit.blacklist", []string{})

	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.temperature", llm.DefaultTemperature)
	models := map[string]string{}
	for tier, name := range llm.DefaultConfig().Models {
		models[string(tier)] = name
	}
	v.SetDefault("llm.models", models)

	v.SetDefault("oracle.max_attempts", retry.DefaultMaxAttempts)
	v.SetDefault("oracle.attempt_timeout", retry.DefaultAttemptTimeout)
	v.SetDefault("oracle.backoff", retry.DefaultBackoff)

	v.SetDefault("token_store.backend", tokenstore.BackendMemory)
	v.SetDefault("token_store.ttl", tokenstore.DefaultTTL)
	v.SetDefault("token_store.redis_addr", "")
	v.SetDefault("token_store.redis_password", "")
	v.SetDefault("token_store.redis_db", 0)
	v.SetDefault("token_store.bolt_path", "resume-optimizer-tokens.db")

	v.SetDefault("database_url", "")
	v.SetDefault("log.json", false)
	v.SetDefault("log.debug", false)
}

// Load reads configuration. path may name a YAML, JSON or TOML file; when it
// is empty, a config.* file in the working directory or ./config is used if
// present. Environment variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Conventional names used by the rest of the tooling.
	_ = v.BindEnv("llm.api_key", EnvPrefix+"_LLM_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("database_url", EnvPrefix+"_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("token_store.redis_addr", EnvPrefix+"_TOKEN_STORE_REDIS_ADDR", "REDIS_ADDR")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration has usable values.
// The API key is not checked here; only commands that call the model need it.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config error: 'server.port' must be between 1 and 65535")
	}
	if c.Oracle.MaxAttempts < 1 {
		return fmt.Errorf("config error: 'oracle.max_attempts' must be at least 1")
	}
	if c.Oracle.AttemptTimeout <= 0 {
		return fmt.Errorf("config error: 'oracle.attempt_timeout' must be positive")
	}
	if c.TokenStore.TTL <= 0 {
		return fmt.Errorf("config error: 'token_store.ttl' must be positive")
	}
	for tier := range c.LLM.Models {
		if _, ok := llm.ParseTier(tier); !ok {
			return fmt.Errorf("config error: unknown model tier %q in 'llm.models'", tier)
		}
	}

	switch c.TokenStore.Backend {
	case tokenstore.BackendMemory:
	case tokenstore.BackendRedis:
		if c.TokenStore.RedisAddr == "" {
			return fmt.Errorf("config error: 'token_store.redis_addr' is required for the redis backend")
		}
	case tokenstore.BackendBolt:
		if c.TokenStore.BoltPath == "" {
			return fmt.Errorf("config error: 'token_store.bolt_path' is required for the bolt backend")
		}
	default:
		return fmt.Errorf("config error: unknown 'token_store.backend' %q", c.TokenStore.Backend)
	}
	return nil
}

// RetryPolicy returns the oracle retry policy.
func (c *Config) RetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:    c.Oracle.MaxAttempts,
		AttemptTimeout: c.Oracle.AttemptTimeout,
		Backoff:        c.Oracle.Backoff,
	}
}

// TokenStoreOptions returns the options for tokenstore.Open.
func (c *Config) TokenStoreOptions() tokenstore.Options {
	return tokenstore.Options{
		Backend:       c.TokenStore.Backend,
		TTL:           c.TokenStore.TTL,
		RedisAddr:     c.TokenStore.RedisAddr,
		RedisPassword: c.TokenStore.RedisPassword,
		RedisDB:       c.TokenStore.RedisDB,
		BoltPath:      c.TokenStore.BoltPath,
	}
}

// LLMClientConfig returns the model configuration for llm.NewClient.
func (c *Config) LLMClientConfig() *llm.Config {
	cfg := llm.DefaultConfig()
	for tier, name := range c.LLM.Models {
		if t, ok := llm.ParseTier(tier); ok && name != "" {
			cfg = cfg.WithModel(t, name)
		}
	}
	if c.LLM.Temperature > 0 {
		cfg.Temperature = c.LLM.Temperature
	}
	return cfg
}
