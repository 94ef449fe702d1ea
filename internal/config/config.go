// Package config loads project-memory settings from defaults, an optional
// YAML file, PROJECT_MEMORY_* environment variables and command-line flags,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/rcliao/project-memory/internal/embedding"
	"github.com/rcliao/project-memory/internal/memory"
	"github.com/rcliao/project-memory/internal/store"
)

// EnvPrefix prefixes every environment variable, e.g. PROJECT_MEMORY_REDIS_URL.
const EnvPrefix = "PROJECT_MEMORY"

type Config struct {
	Project string `mapstructure:"project"`

	SQLite struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"sqlite"`

	Redis struct {
		URL            string        `mapstructure:"url"`
		ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
		KeyPrefix      string        `mapstructure:"key_prefix"`
	} `mapstructure:"redis"`

	// A batch_margin at or above max_memories falls back to 1% of max_memories.
	Retention struct {
		MaxMemories      int           `mapstructure:"max_memories"`
		TTL              time.Duration `mapstructure:"ttl"`
		BatchMargin      int           `mapstructure:"batch_margin"`
		ExemptImportance float64       `mapstructure:"exempt_importance"`
	} `mapstructure:"retention"`

	Embedding struct {
		Provider  string        `mapstructure:"provider"`
		BaseURL   string        `mapstructure:"base_url"`
		APIKey    string        `mapstructure:"api_key"`
		Model     string        `mapstructure:"model"`
		Dims      int           `mapstructure:"dims"`
		Timeout   time.Duration `mapstructure:"timeout"`
		CacheSize int64         `mapstructure:"cache_size"`
		Fallback  struct {
			Provider string `mapstructure:"provider"`
			BaseURL  string `mapstructure:"base_url"`
			Model    string `mapstructure:"model"`
		} `mapstructure:"fallback"`
		Breaker struct {
			Failures    uint32        `mapstructure:"failures"`
			OpenTimeout time.Duration `mapstructure:"open_timeout"`
		} `mapstructure:"breaker"`
	} `mapstructure:"embedding"`

	Conversation struct {
		Size int `mapstructure:"size"`
	} `mapstructure:"conversation"`

	Log struct {
		Level       string `mapstructure:"level"`
		Development bool   `mapstructure:"development"`
	} `mapstructure:"log"`
}

// DefaultDir is where the database and config file live unless overridden.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".project-memory"
	}
	return filepath.Join(home, ".project-memory")
}

func setDefaults(v *viper.Viper) {
	r := store.DefaultRetention()
	g := embedding.DefaultGuardConfig()

	v.SetDefault("project", "")
	v.SetDefault("sqlite.path", filepath.Join(DefaultDir(), "memory.db"))
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.connect_timeout", store.DefaultConnectTimeout)
	v.SetDefault("redis.key_prefix", store.DefaultKeyPrefix)
	v.SetDefault("retention.max_memories", r.MaxMemories)
	v.SetDefault("retention.ttl", r.TTL)
	v.SetDefault("retention.batch_margin", r.BatchMargin)
	v.SetDefault("retention.exempt_importance", r.ExemptImportance)
	v.SetDefault("embedding.provider", string(embedding.ProviderNone))
	v.SetDefault("embedding.base_url", "")
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.model", "")
	v.SetDefault("embedding.dims", 0)
	v.SetDefault("embedding.timeout", 30*time.Second)
	v.SetDefault("embedding.cache_size", 1000)
	v.SetDefault("embedding.fallback.provider", string(embedding.ProviderNone))
	v.SetDefault("embedding.fallback.base_url", "")
	v.SetDefault("embedding.fallback.model", "")
	v.SetDefault("embedding.breaker.failures", g.ConsecutiveFailures)
	v.SetDefault("embedding.breaker.open_timeout", g.OpenTimeout)
	v.SetDefault("conversation.size", memory.DefaultConversationSize)
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.development", false)
}

// flagKeys maps config keys to the CLI flags that override them.
var flagKeys = map[string]string{
	"project":            "project",
	"sqlite.path":        "db",
	"redis.url":          "redis-url",
	"embedding.provider": "embedding",
	"log.level":          "log-level",
}

// Load reads configuration. An empty path searches for config.yaml in the
// working directory and DefaultDir; a missing file there is not an error.
// flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("embedding.api_key", EnvPrefix+"_EMBEDDING_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(DefaultDir())
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	if flags != nil {
		for key, name := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings that cannot be acted on.
func (c *Config) Validate() error {
	if _, err := embedding.ParseProvider(c.Embedding.Provider); err != nil {
		return err
	}
	if _, err := embedding.ParseProvider(c.Embedding.Fallback.Provider); err != nil {
		return fmt.Errorf("fallback: %w", err)
	}
	if c.Retention.ExemptImportance < 0 || c.Retention.ExemptImportance > 1 {
		return fmt.Errorf("retention.exempt_importance must be within [0,1], got %v", c.Retention.ExemptImportance)
	}
	if c.Retention.MaxMemories < 0 {
		return fmt.Errorf("retention.max_memories must not be negative")
	}
	return nil
}

// Memory converts the loaded settings into a facade configuration.
func (c *Config) Memory() memory.Config {
	primary, _ := embedding.ParseProvider(c.Embedding.Provider)
	fallback, _ := embedding.ParseProvider(c.Embedding.Fallback.Provider)

	return memory.Config{
		ProjectID:           c.Project,
		RedisURL:            c.Redis.URL,
		RedisConnectTimeout: c.Redis.ConnectTimeout,
		KeyPrefix:           c.Redis.KeyPrefix,
		SQLitePath:          c.SQLite.Path,
		Retention: store.RetentionPolicy{
			MaxMemories:      c.Retention.MaxMemories,
			TTL:              c.Retention.TTL,
			BatchMargin:      c.Retention.BatchMargin,
			ExemptImportance: c.Retention.ExemptImportance,
		},
		Embedding: memory.EmbeddingConfig{
			Enabled: primary != embedding.ProviderNone || fallback != embedding.ProviderNone,
			Primary: embedding.Config{
				Provider: primary,
				BaseURL:  c.Embedding.BaseURL,
				APIKey:   c.Embedding.APIKey,
				Model:    c.Embedding.Model,
				Dims:     c.Embedding.Dims,
				Timeout:  c.Embedding.Timeout,
			},
			Fallback: embedding.Config{
				Provider: fallback,
				BaseURL:  c.Embedding.Fallback.BaseURL,
				Model:    c.Embedding.Fallback.Model,
				Timeout:  c.Embedding.Timeout,
			},
			CacheSize: c.Embedding.CacheSize,
			Guard: embedding.GuardConfig{
				ConsecutiveFailures: c.Embedding.Breaker.Failures,
				OpenTimeout:         c.Embedding.Breaker.OpenTimeout,
			},
		},
		ConversationSize: c.Conversation.Size,
	}
}
