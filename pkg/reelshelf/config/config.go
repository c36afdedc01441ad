// Package config reads the server configuration from an optional config.toml
// and REELSHELF_* environment variables.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	validLogLevels   = []string{"debug", "info", "warn", "error"}
	validDBDrivers   = []string{"sqlite", "postgres"}
	validCacheDriver = []string{"memory", "redis", "none"}
)

type App struct {
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
}

type Host struct {
	Port        int      `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type Database struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type JWT struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type Cache struct {
	Driver     string        `mapstructure:"driver"`
	RedisURL   string        `mapstructure:"redis_url"`
	FeedTTL    time.Duration `mapstructure:"feed_ttl"`
	ProfileTTL time.Duration `mapstructure:"profile_ttl"`
}

type Feed struct {
	PageSize     int  `mapstructure:"page_size"`
	MaxPageSize  int  `mapstructure:"max_page_size"`
	IncludeAdult bool `mapstructure:"include_adult"`
}

type Media struct {
	DefaultAvatarURL string `mapstructure:"default_avatar_url"`
}

type RateLimit struct {
	RequestsPerSecond int `mapstructure:"requests_per_second"`
	Burst             int `mapstructure:"burst"`
}

// Config is the full server configuration
type Config struct {
	App       App       `mapstructure:"app"`
	Host      Host      `mapstructure:"host"`
	Database  Database  `mapstructure:"database"`
	JWT       JWT       `mapstructure:"jwt"`
	Cache     Cache     `mapstructure:"cache"`
	Feed      Feed      `mapstructure:"feed"`
	Media     Media     `mapstructure:"media"`
	RateLimit RateLimit `mapstructure:"ratelimit"`
}

// IsDevelopment reports whether the server runs with development defaults
func (c *Config) IsDevelopment() bool {
	return c.App.Env != "production"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.cors_origins", []string{"http://localhost:5173"})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "reelshelf.db")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.ttl", "24h")

	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.redis_url", "redis://localhost:6379/0")
	v.SetDefault("cache.feed_ttl", "30s")
	v.SetDefault("cache.profile_ttl", "3m")

	v.SetDefault("feed.page_size", 20)
	v.SetDefault("feed.max_page_size", 100)
	v.SetDefault("feed.include_adult", true)

	v.SetDefault("media.default_avatar_url", "/media/default.jpg")

	v.SetDefault("ratelimit.requests_per_second", 20)
	v.SetDefault("ratelimit.burst", 40)
}

// Load reads configuration from path, or from ./config.toml when path is
// empty. A missing ./config.toml is not an error; a missing explicit path is.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("reelshelf")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file, %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config, %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values that would otherwise fail at first use
func (c *Config) Validate() error {
	if !slices.Contains(validLogLevels, c.App.LogLevel) {
		return errors.New("invalid log level provided")
	}

	if c.Host.Port <= 0 {
		return errors.New("invalid port provided")
	}

	if !slices.Contains(validDBDrivers, c.Database.Driver) {
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	if c.Database.DSN == "" {
		return errors.New("database.dsn must be set")
	}

	if !slices.Contains(validCacheDriver, c.Cache.Driver) {
		return fmt.Errorf("unknown cache driver %q", c.Cache.Driver)
	}

	if c.Feed.PageSize <= 0 || c.Feed.MaxPageSize <= 0 {
		return errors.New("feed page sizes must be bigger than 0")
	}

	if c.Feed.PageSize > c.Feed.MaxPageSize {
		return errors.New("feed.page_size must not exceed feed.max_page_size")
	}

	if c.JWT.TTL <= 0 {
		return errors.New("jwt.ttl must be positive")
	}

	if c.JWT.Secret == "" && !c.IsDevelopment() {
		return errors.New("jwt.secret is required in production")
	}

	return nil
}
