package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	NATS         NATSConfig         `mapstructure:"nats"`
	Valkey       ValkeyConfig       `mapstructure:"valkey"`
	OSRM         UpstreamConfig     `mapstructure:"osrm"`
	Geocoder     GeocoderConfig     `mapstructure:"geocoder"`
	BookingAPI   UpstreamConfig     `mapstructure:"booking_api"`
	Capacity     CapacityConfig     `mapstructure:"capacity"`
	Segmentation SegmentationConfig `mapstructure:"segmentation"`
	Log          LogConfig          `mapstructure:"log"`
	Telemetry    TelemetryConfig    `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

// UpstreamConfig describes an HTTP service the API calls.
type UpstreamConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	TimeoutMS int    `mapstructure:"timeout_ms"`
	Profile   string `mapstructure:"profile"`
}

// Timeout returns the request timeout.
func (u UpstreamConfig) Timeout() time.Duration {
	return time.Duration(u.TimeoutMS) * time.Millisecond
}

type GeocoderConfig struct {
	UpstreamConfig `mapstructure:",squash"`
	UserAgent      string `mapstructure:"user_agent"`
	CacheTTL       int    `mapstructure:"cache_ttl"`
}

// CapacityConfig selects where segment load comes from.
type CapacityConfig struct {
	// Source is "postgres" or "none".
	Source   string `mapstructure:"source"`
	CacheTTL int    `mapstructure:"cache_ttl"`
}

type SegmentationConfig struct {
	SegmentCount         int     `mapstructure:"segment_count"`
	ClickToleranceMeters float64 `mapstructure:"click_tolerance_meters"`
	ShowLegend           bool    `mapstructure:"show_legend"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "roadcap")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "road_capacity")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.subject", "roadcap.scenes")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("osrm.base_url", "http://localhost:5000")
	v.SetDefault("osrm.timeout_ms", 5000)
	v.SetDefault("osrm.profile", "driving")
	v.SetDefault("geocoder.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocoder.timeout_ms", 3000)
	v.SetDefault("geocoder.user_agent", "roadcap/1.0")
	v.SetDefault("geocoder.cache_ttl", 86400)
	v.SetDefault("booking_api.base_url", "http://localhost:8000")
	v.SetDefault("booking_api.timeout_ms", 5000)
	v.SetDefault("capacity.source", "postgres")
	v.SetDefault("capacity.cache_ttl", 60)
	v.SetDefault("segmentation.segment_count", 3)
	v.SetDefault("segmentation.click_tolerance_meters", 75)
	v.SetDefault("segmentation.show_legend", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: ROADCAP_OSRM_BASE_URL → osrm.base_url
	v.SetEnvPrefix("ROADCAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}

	switch c.Capacity.Source {
	case "postgres":
		if c.Database.Host == "" {
			errs = append(errs, "database.host is required when capacity.source is postgres")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.User == "" {
			errs = append(errs, "database.user is required")
		}
		if c.Database.DBName == "" {
			errs = append(errs, "database.dbname is required")
		}
	case "none":
	default:
		errs = append(errs, fmt.Sprintf("capacity.source must be postgres or none, got %q", c.Capacity.Source))
	}

	for _, up := range []struct{ name, raw string }{
		{"osrm.base_url", c.OSRM.BaseURL},
		{"geocoder.base_url", c.Geocoder.BaseURL},
		{"booking_api.base_url", c.BookingAPI.BaseURL},
	} {
		if u, err := url.Parse(up.raw); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Sprintf("%s must be an absolute URL, got %q", up.name, up.raw))
		}
	}
	if c.OSRM.TimeoutMS <= 0 || c.Geocoder.TimeoutMS <= 0 || c.BookingAPI.TimeoutMS <= 0 {
		errs = append(errs, "upstream timeout_ms values must be positive")
	}

	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.NATS.Subject == "" {
		errs = append(errs, "nats.subject is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Segmentation.SegmentCount < 1 {
		errs = append(errs, "segmentation.segment_count must be at least 1")
	}
	if c.Segmentation.ClickToleranceMeters <= 0 {
		errs = append(errs, "segmentation.click_tolerance_meters must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
