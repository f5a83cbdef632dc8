package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server     ServerConfig
	Woolworths RetailerConfig
	Coles      RetailerConfig
	Store      StoreConfig
	Scheduler  SchedulerConfig
	History    HistoryConfig
	Cache      CacheConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RetailerConfig holds one retailer's endpoint configuration.
type RetailerConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// StoreConfig holds persistence configuration.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// SchedulerConfig holds the weekly trigger configuration.
type SchedulerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Weekday string `mapstructure:"weekday"`
	Time    string `mapstructure:"time"` // "15:04"
}

// HistoryConfig holds the price-history sampling configuration.
type HistoryConfig struct {
	AnchorWeekday string `mapstructure:"anchor_weekday"`
}

// CacheConfig holds search-cache configuration.
type CacheConfig struct {
	Size int           `mapstructure:"size"`
	TTL  time.Duration `mapstructure:"ttl"`
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/grocerwatch/")

	v.SetEnvPrefix("GROCERWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional; env vars and defaults cover everything.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:*"})

	v.SetDefault("woolworths.base_url", "https://www.woolworths.com.au")
	v.SetDefault("woolworths.timeout", "30s")
	v.SetDefault("coles.base_url", "https://www.coles.com.au")
	v.SetDefault("coles.timeout", "30s")

	v.SetDefault("store.path", "products.json")

	// The weekly refresh lands just before the Wednesday catalog rollover.
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.weekday", "tuesday")
	v.SetDefault("scheduler.time", "23:00")

	v.SetDefault("history.anchor_weekday", "wednesday")

	v.SetDefault("cache.size", 128)
	v.SetDefault("cache.ttl", "15m")
}

// validate validates the configuration.
func validate(config *Config) error {
	if config.Store.Path == "" {
		return fmt.Errorf("store path is required")
	}
	if config.Woolworths.BaseURL == "" || config.Coles.BaseURL == "" {
		return fmt.Errorf("retailer base URLs are required")
	}
	if _, err := ParseWeekday(config.Scheduler.Weekday); err != nil {
		return fmt.Errorf("scheduler weekday: %w", err)
	}
	if _, err := ParseWeekday(config.History.AnchorWeekday); err != nil {
		return fmt.Errorf("history anchor weekday: %w", err)
	}
	if _, _, err := config.Scheduler.RunTime(); err != nil {
		return fmt.Errorf("scheduler time: %w", err)
	}
	return nil
}

// AnchorWeekday returns the parsed history anchor day. Validity is checked at
// load time.
func (c *Config) AnchorWeekday() time.Weekday {
	d, _ := ParseWeekday(c.History.AnchorWeekday)
	return d
}

// SchedulerWeekday returns the parsed weekly trigger day.
func (c *Config) SchedulerWeekday() time.Weekday {
	d, _ := ParseWeekday(c.Scheduler.Weekday)
	return d
}

// RunTime parses the configured "15:04" trigger time.
func (s SchedulerConfig) RunTime() (hour, minute int, err error) {
	t, err := time.Parse("15:04", s.Time)
	if err != nil {
		return 0, 0, fmt.Errorf("parse %q: %w", s.Time, err)
	}
	return t.Hour(), t.Minute(), nil
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday parses a case-insensitive weekday name.
func ParseWeekday(name string) (time.Weekday, error) {
	if d, ok := weekdays[strings.ToLower(strings.TrimSpace(name))]; ok {
		return d, nil
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", name)
}
