package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Collector CollectorConfig
	Poller    PollerConfig
	Layout    LayoutConfig
	MQTT      MQTTConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
}

// CollectorConfig holds remote collector configuration
type CollectorConfig struct {
	URL               string
	RequestTimeout    time.Duration
	LegacyLatitudeKey bool
}

// PollerConfig holds refresh configuration
type PollerConfig struct {
	Interval     time.Duration
	DiscardStale bool
}

// LayoutConfig holds heatmap rendering defaults
type LayoutConfig struct {
	ContainerWidthPx float64
	LabelCharWidthPx float64
	LabelPaddingPx   float64
}

// MQTTConfig holds alert broker configuration. Alerts are off when Broker is empty.
type MQTTConfig struct {
	Broker   string
	Topic    string
	Username string
	Password string
}

var keys = []string{
	"PORT",
	"ENVIRONMENT",
	"LOG_LEVEL",
	"ALLOWED_ORIGINS",
	"COLLECTOR_URL",
	"REQUEST_TIMEOUT",
	"REFRESH_INTERVAL",
	"DISCARD_STALE_POLLS",
	"LEGACY_LATITUDE_KEY",
	"CONTAINER_WIDTH_PX",
	"LABEL_CHAR_WIDTH_PX",
	"LABEL_PADDING_PX",
	"MQTT_BROKER",
	"MQTT_TOPIC",
	"MQTT_USERNAME",
	"MQTT_PASSWORD",
}

// Load loads configuration from environment variables and .env files
func Load() (*Config, error) {
	viper.SetDefault("PORT", "8090")
	viper.SetDefault("ENVIRONMENT", "dev")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:8090,http://localhost:3000")
	viper.SetDefault("COLLECTOR_URL", "http://localhost:8080")
	viper.SetDefault("REQUEST_TIMEOUT", "10s")
	viper.SetDefault("REFRESH_INTERVAL", "5s")
	viper.SetDefault("DISCARD_STALE_POLLS", false)
	viper.SetDefault("LEGACY_LATITUDE_KEY", true)
	viper.SetDefault("CONTAINER_WIDTH_PX", 1280)
	viper.SetDefault("LABEL_CHAR_WIDTH_PX", 9)
	viper.SetDefault("LABEL_PADDING_PX", 24)
	viper.SetDefault("MQTT_BROKER", "")
	viper.SetDefault("MQTT_TOPIC", "sdrwatch/alerts")
	viper.SetDefault("MQTT_USERNAME", "")
	viper.SetDefault("MQTT_PASSWORD", "")

	// ENVIRONMENT picks the .env file, so it has to come from the process env
	_ = viper.BindEnv("ENVIRONMENT")
	env := viper.GetString("ENVIRONMENT")
	if env == "" {
		env = "dev"
	}

	viper.SetConfigName(".env." + env)
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	// Read .env file (ignore error if file doesn't exist)
	_ = viper.ReadInConfig()

	// Environment variables override .env file values
	viper.AutomaticEnv()
	for _, key := range keys {
		_ = viper.BindEnv(key)
	}

	var config Config
	config.Server.Port = viper.GetString("PORT")
	config.Server.Env = viper.GetString("ENVIRONMENT")
	config.Server.LogLevel = viper.GetString("LOG_LEVEL")
	config.Server.AllowedOrigins = splitList(viper.GetString("ALLOWED_ORIGINS"))
	config.Collector.URL = viper.GetString("COLLECTOR_URL")
	config.Collector.RequestTimeout = viper.GetDuration("REQUEST_TIMEOUT")
	config.Collector.LegacyLatitudeKey = viper.GetBool("LEGACY_LATITUDE_KEY")
	config.Poller.Interval = viper.GetDuration("REFRESH_INTERVAL")
	config.Poller.DiscardStale = viper.GetBool("DISCARD_STALE_POLLS")
	config.Layout.ContainerWidthPx = viper.GetFloat64("CONTAINER_WIDTH_PX")
	config.Layout.LabelCharWidthPx = viper.GetFloat64("LABEL_CHAR_WIDTH_PX")
	config.Layout.LabelPaddingPx = viper.GetFloat64("LABEL_PADDING_PX")
	config.MQTT.Broker = viper.GetString("MQTT_BROKER")
	config.MQTT.Topic = viper.GetString("MQTT_TOPIC")
	config.MQTT.Username = viper.GetString("MQTT_USERNAME")
	config.MQTT.Password = viper.GetString("MQTT_PASSWORD")

	if err := config.Validate(); err != nil {
		return nil, err
	}

	log.Info().
		Str("collector_url", config.Collector.URL).
		Dur("refresh_interval", config.Poller.Interval).
		Strs("allowed_origins", config.Server.AllowedOrigins).
		Bool("mqtt_enabled", config.MQTT.Broker != "").
		Msg("Configuration loaded")

	return &config, nil
}

// Validate rejects settings the service cannot run with
func (c *Config) Validate() error {
	if c.Poller.Interval <= 0 {
		return fmt.Errorf("REFRESH_INTERVAL must be positive, got %s", c.Poller.Interval)
	}
	if c.Collector.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.Collector.RequestTimeout)
	}
	u, err := url.Parse(c.Collector.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("COLLECTOR_URL must be an absolute URL, got %q", c.Collector.URL)
	}
	if c.Layout.ContainerWidthPx <= 0 {
		return fmt.Errorf("CONTAINER_WIDTH_PX must be positive, got %v", c.Layout.ContainerWidthPx)
	}
	return nil
}

// IsDev reports whether the service runs in the dev environment
func (c *Config) IsDev() bool {
	return c.Server.Env == "dev"
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
