// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

type Config struct {
	GatewayURL        string `mapstructure:"gateway_url"`
	GatewayTimeout    int    `mapstructure:"gateway_timeout"`     // seconds, per remote call
	FeedPollInterval  int    `mapstructure:"feed_poll_interval"`  // seconds between token feed refreshes
	AlertPanelPoll    int    `mapstructure:"alert_panel_poll"`    // seconds, alert panel cadence
	AlertStatusPoll   int    `mapstructure:"alert_status_poll"`   // seconds, status indicator cadence
	SlowRefreshMillis int    `mapstructure:"slow_refresh_millis"` // log refreshes slower than this
	NotifyTTL         int    `mapstructure:"notify_ttl"`          // seconds, routine notifications
	NotifyAlertTTL    int    `mapstructure:"notify_alert_ttl"`    // seconds, alert-class notifications
	SafetyCacheTTL    int    `mapstructure:"safety_cache_ttl"`    // seconds
	DebugLogging      bool   `mapstructure:"debug_logging"`
	LogBufferSize     int    `mapstructure:"log_buffer_size"` // diagnostics ring capacity
}

const (
	DefaultGatewayTimeout    = 15
	DefaultFeedPollInterval  = 5
	DefaultAlertPanelPoll    = 30
	DefaultAlertStatusPoll   = 120
	DefaultSlowRefreshMillis = 4000
	DefaultNotifyTTL         = 3
	DefaultNotifyAlertTTL    = 5
	DefaultSafetyCacheTTL    = 300
	DefaultLogBufferSize     = 500
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"gateway_timeout":     DefaultGatewayTimeout,
		"feed_poll_interval":  DefaultFeedPollInterval,
		"alert_panel_poll":    DefaultAlertPanelPoll,
		"alert_status_poll":   DefaultAlertStatusPoll,
		"slow_refresh_millis": DefaultSlowRefreshMillis,
		"notify_ttl":          DefaultNotifyTTL,
		"notify_alert_ttl":    DefaultNotifyAlertTTL,
		"safety_cache_ttl":    DefaultSafetyCacheTTL,
		"log_buffer_size":     DefaultLogBufferSize,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := loadEnvironmentVariables(v, &cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if cfg.GatewayURL == "" {
		return errors.New("missing gateway_url in configuration")
	}
	if err := validateURLWithCache(cfg.GatewayURL, "http"); err != nil {
		return errors.New("invalid gateway URL protocol")
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.GatewayTimeout <= 0 {
		return errors.New("invalid gateway_timeout")
	}
	if cfg.FeedPollInterval <= 0 {
		return errors.New("invalid feed_poll_interval")
	}
	if cfg.AlertPanelPoll <= 0 {
		return errors.New("invalid alert_panel_poll")
	}
	if cfg.AlertStatusPoll <= 0 {
		return errors.New("invalid alert_status_poll")
	}
	if cfg.SlowRefreshMillis <= 0 {
		return errors.New("invalid slow_refresh_millis")
	}
	if cfg.NotifyTTL <= 0 || cfg.NotifyAlertTTL <= 0 {
		return errors.New("invalid notification TTL")
	}
	if cfg.SafetyCacheTTL <= 0 {
		return errors.New("invalid safety_cache_ttl")
	}
	if cfg.LogBufferSize < 0 {
		return errors.New("invalid log_buffer_size")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) error {
	v.AutomaticEnv()
	v.SetEnvPrefix("NOVADASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envGateway := v.GetString("GATEWAY_URL")
	if envGateway != "" {
		cfg.GatewayURL = strings.TrimSpace(envGateway)
	}
	return nil
}
