package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AgentSettings configures one solver agent's transport.
type AgentSettings struct {
	APIKey        string        `mapstructure:"api_key"`
	Model         string        `mapstructure:"model"`
	BaseURL       string        `mapstructure:"base_url"`
	Temperature   float64       `mapstructure:"temperature"`
	MaxRetries    int           `mapstructure:"max_retries"`
	MaxConcurrent int64         `mapstructure:"max_concurrent"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// ServerSettings configures the HTTP front end.
type ServerSettings struct {
	Port              int           `mapstructure:"port"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`
	MaxStreams        int           `mapstructure:"max_streams"`
	MaxStreamDuration time.Duration `mapstructure:"max_stream_duration"`
}

// Config is the full process configuration, loadable from environment
// variables with the ACCORD_ prefix or an optional config file.
type Config struct {
	LogLevel   string         `mapstructure:"log_level"`
	OpenAI     AgentSettings  `mapstructure:"openai"`
	Anthropic  AgentSettings  `mapstructure:"anthropic"`
	Server     ServerSettings `mapstructure:"server"`
	CacheSize  int            `mapstructure:"cache_size"`
	Mode       string         `mapstructure:"mode"`
	Iterations int            `mapstructure:"iterations"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("mode", "robust")
	v.SetDefault("iterations", 5)
	v.SetDefault("cache_size", 128)

	// Empty-string defaults register the credential keys so AutomaticEnv
	// can populate them during Unmarshal.
	v.SetDefault("openai.api_key", "")
	v.SetDefault("anthropic.api_key", "")

	v.SetDefault("openai.model", "gpt-4o")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.temperature", 0.3)
	v.SetDefault("openai.max_retries", 3)
	v.SetDefault("openai.max_concurrent", 4)
	v.SetDefault("openai.timeout", 120*time.Second)

	v.SetDefault("anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("anthropic.base_url", "https://api.anthropic.com/v1")
	v.SetDefault("anthropic.temperature", 0.2)
	v.SetDefault("anthropic.max_retries", 3)
	v.SetDefault("anthropic.max_concurrent", 2)
	v.SetDefault("anthropic.timeout", 120*time.Second)

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.max_streams", 32)
	v.SetDefault("server.max_stream_duration", 15*time.Minute)
}

// Load reads configuration from the environment and, when configFile is not
// empty, from that file. Environment variables win over file values.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ACCORD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate fails fast on configuration that would only surface mid-session,
// most importantly missing credentials. Key values are never included in the
// error text.
func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("missing credential: ACCORD_OPENAI_API_KEY is not set")
	}
	if c.Anthropic.APIKey == "" {
		return fmt.Errorf("missing credential: ACCORD_ANTHROPIC_API_KEY is not set")
	}
	if c.Mode != "fast" && c.Mode != "robust" {
		return fmt.Errorf("invalid mode %q", c.Mode)
	}
	if c.Iterations < 1 || c.Iterations > 20 {
		return fmt.Errorf("invalid iterations %d: must be in [1, 20]", c.Iterations)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	return nil
}
