package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the settings of the event map viewer.
type Config struct {
	Env     string        `mapstructure:"env"` // local, development or production
	Map     MapConfig     `mapstructure:"map"`
	Camera  CameraConfig  `mapstructure:"camera"`
	Window  WindowConfig  `mapstructure:"window"`
	Tiles   TilesConfig   `mapstructure:"tiles"`
	Events  EventsConfig  `mapstructure:"events"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// MapConfig is the fixed point the map opens on and the ground radius that
// must be visible around it along the shorter screen axis.
type MapConfig struct {
	CenterLat float64 `mapstructure:"center_lat"`
	CenterLng float64 `mapstructure:"center_lng"`
	RadiusKm  float64 `mapstructure:"radius_km"`
	MinZoom   int     `mapstructure:"min_zoom"`
	MaxZoom   int     `mapstructure:"max_zoom"`
}

type CameraConfig struct {
	RecenterDelay     time.Duration `mapstructure:"recenter_delay"`
	AnimationDuration time.Duration `mapstructure:"animation_duration"`
}

type WindowConfig struct {
	Title  string `mapstructure:"title"`
	Width  int    `mapstructure:"width"`
	Height int    `mapstructure:"height"`
}

type TilesConfig struct {
	Provider  string        `mapstructure:"provider"` // osm, local or combined
	URL       string        `mapstructure:"url"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Workers   int           `mapstructure:"workers"`
	Queue     int           `mapstructure:"queue"`
}

type EventsConfig struct {
	File string `mapstructure:"file"` // empty uses the bundled feed
}

type MetricsConfig struct {
	Port int `mapstructure:"port"` // 0 disables the monitoring server
}

const (
	ProviderOSM      = "osm"
	ProviderLocal    = "local"
	ProviderCombined = "combined"
)

// Load reads configuration from an optional .env file, an optional
// config.yaml and EVENTMAP_* environment variables, in increasing priority.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("env", "production")
	v.SetDefault("map.center_lat", 49.271412)
	v.SetDefault("map.center_lng", -122.9725585)
	v.SetDefault("map.radius_km", 1.0)
	v.SetDefault("map.min_zoom", 2)
	v.SetDefault("map.max_zoom", 19)
	v.SetDefault("camera.recenter_delay", "500ms")
	v.SetDefault("camera.animation_duration", "150ms")
	v.SetDefault("window.title", "Nearby Events")
	v.SetDefault("window.width", 800)
	v.SetDefault("window.height", 600)
	v.SetDefault("tiles.provider", ProviderCombined)
	v.SetDefault("tiles.url", "https://tile.openstreetmap.org/{z}/{x}/{y}.png")
	v.SetDefault("tiles.user_agent", "")
	v.SetDefault("tiles.timeout", "10s")
	v.SetDefault("tiles.workers", 4)
	v.SetDefault("tiles.queue", 128)
	v.SetDefault("events.file", "")
	v.SetDefault("metrics.port", 0)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	// EVENTMAP_MAP_RADIUS_KM → map.radius_km
	v.SetEnvPrefix("EVENTMAP")
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

// Validate checks that configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Map.CenterLat < -90 || c.Map.CenterLat > 90 {
		errs = append(errs, fmt.Sprintf("map.center_lat must be within [-90, 90], got %v", c.Map.CenterLat))
	}
	if c.Map.CenterLng < -180 || c.Map.CenterLng > 180 {
		errs = append(errs, fmt.Sprintf("map.center_lng must be within [-180, 180], got %v", c.Map.CenterLng))
	}
	if c.Map.RadiusKm <= 0 {
		errs = append(errs, fmt.Sprintf("map.radius_km must be positive, got %v", c.Map.RadiusKm))
	}
	if c.Map.MinZoom < 0 || c.Map.MaxZoom > 22 || c.Map.MinZoom > c.Map.MaxZoom {
		errs = append(errs, fmt.Sprintf("map zoom range [%d, %d] is invalid", c.Map.MinZoom, c.Map.MaxZoom))
	}
	if c.Camera.RecenterDelay < 0 {
		errs = append(errs, "camera.recenter_delay must not be negative")
	}
	if c.Camera.AnimationDuration < 0 {
		errs = append(errs, "camera.animation_duration must not be negative")
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Sprintf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height))
	}
	switch c.Tiles.Provider {
	case ProviderOSM, ProviderLocal, ProviderCombined:
	default:
		errs = append(errs, fmt.Sprintf("tiles.provider must be one of osm, local, combined, got %q", c.Tiles.Provider))
	}
	if c.Tiles.Workers <= 0 {
		errs = append(errs, "tiles.workers must be positive")
	}
	if c.Tiles.Queue <= 0 {
		errs = append(errs, "tiles.queue must be positive")
	}
	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		errs = append(errs, fmt.Sprintf("metrics.port must be 0-65535, got %d", c.Metrics.Port))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
