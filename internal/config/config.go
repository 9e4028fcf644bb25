// README: Config loader: defaults, optional TOML file, .env file, then environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type NavigationConfig struct {
	JitterMeters        float64       `toml:"jitter_meters"`
	OnRouteMeters       float64       `toml:"on_route_meters"`
	HeadingToleranceDeg float64       `toml:"heading_tolerance_deg"`
	WalkingSpeedMph     float64       `toml:"walking_speed_mph"`
	PositionInterval    time.Duration `toml:"position_interval"`
	PositionDistance    float64       `toml:"position_distance_meters"`
	HeadingInterval     time.Duration `toml:"heading_interval"`
}

type Config struct {
	HTTP struct {
		Addr string `toml:"addr"`
	} `toml:"http"`
	DB struct {
		// DSN is optional; activity reports are disabled without it.
		DSN string `toml:"dsn"`
	} `toml:"db"`
	Redis struct {
		// Addr is optional; selections are kept in memory without it.
		Addr string `toml:"addr"`
	} `toml:"redis"`
	Maps struct {
		APIKey  string        `toml:"api_key"`
		Timeout time.Duration `toml:"timeout"`
	} `toml:"maps"`
	Routes struct {
		SelectionTTL time.Duration `toml:"selection_ttl"`
	} `toml:"routes"`
	Firebase struct {
		ProjectID       string `toml:"project_id"`
		CredentialsFile string `toml:"credentials_file"`
		DatabaseURL     string `toml:"database_url"`
		RequireAuth     bool   `toml:"require_auth"`
	} `toml:"firebase"`
	Navigation NavigationConfig `toml:"navigation"`
	Log        struct {
		// Mode is "production" or "development".
		Mode string `toml:"mode"`
	} `toml:"log"`
}

func defaults() Config {
	var cfg Config
	cfg.HTTP.Addr = ":8080"
	cfg.Maps.Timeout = 10 * time.Second
	cfg.Routes.SelectionTTL = 30 * time.Minute
	cfg.Navigation = NavigationConfig{
		JitterMeters:        5,
		OnRouteMeters:       20,
		HeadingToleranceDeg: 20,
		WalkingSpeedMph:     3,
		PositionInterval:    15 * time.Second,
		PositionDistance:    20,
		HeadingInterval:     time.Second,
	}
	cfg.Log.Mode = "production"
	return cfg
}

// Load builds the config. Values from SAFEROUTE_CONFIG (a TOML file) override
// the defaults; environment variables, including those read from .env, override both.
func Load() (Config, error) {
	envFile := envOrDefault("SAFEROUTE_ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading %s: %w", envFile, err)
	}

	cfg := defaults()
	if path := os.Getenv("SAFEROUTE_CONFIG"); path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("error decoding config file: %w", err)
		}
	}

	cfg.HTTP.Addr = envOrDefault("SAFEROUTE_HTTP_ADDR", cfg.HTTP.Addr)
	cfg.DB.DSN = envOrDefault("SAFEROUTE_DB_DSN", cfg.DB.DSN)
	cfg.Redis.Addr = envOrDefault("SAFEROUTE_REDIS_ADDR", cfg.Redis.Addr)
	cfg.Maps.APIKey = envOrDefault("GOOGLE_MAPS_API_KEY", cfg.Maps.APIKey)
	cfg.Maps.Timeout = envOrDefaultDuration("SAFEROUTE_MAPS_TIMEOUT", cfg.Maps.Timeout)
	cfg.Routes.SelectionTTL = envOrDefaultDuration("SAFEROUTE_SELECTION_TTL", cfg.Routes.SelectionTTL)
	cfg.Firebase.ProjectID = envOrDefault("SAFEROUTE_FIREBASE_PROJECT_ID", cfg.Firebase.ProjectID)
	cfg.Firebase.CredentialsFile = envOrDefault("SAFEROUTE_FIREBASE_CREDENTIALS", cfg.Firebase.CredentialsFile)
	cfg.Firebase.DatabaseURL = envOrDefault("SAFEROUTE_FIREBASE_DATABASE_URL", cfg.Firebase.DatabaseURL)
	cfg.Firebase.RequireAuth = envOrDefaultBool("SAFEROUTE_REQUIRE_AUTH", cfg.Firebase.RequireAuth)

	nav := &cfg.Navigation
	nav.JitterMeters = envOrDefaultFloat("SAFEROUTE_JITTER_METERS", nav.JitterMeters)
	nav.OnRouteMeters = envOrDefaultFloat("SAFEROUTE_ON_ROUTE_METERS", nav.OnRouteMeters)
	nav.HeadingToleranceDeg = envOrDefaultFloat("SAFEROUTE_HEADING_TOLERANCE_DEG", nav.HeadingToleranceDeg)
	nav.WalkingSpeedMph = envOrDefaultFloat("SAFEROUTE_WALKING_SPEED_MPH", nav.WalkingSpeedMph)
	nav.PositionInterval = envOrDefaultDuration("SAFEROUTE_POSITION_INTERVAL", nav.PositionInterval)
	nav.PositionDistance = envOrDefaultFloat("SAFEROUTE_POSITION_DISTANCE_METERS", nav.PositionDistance)
	nav.HeadingInterval = envOrDefaultDuration("SAFEROUTE_HEADING_INTERVAL", nav.HeadingInterval)

	cfg.Log.Mode = envOrDefault("SAFEROUTE_LOG_MODE", cfg.Log.Mode)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Maps.APIKey == "" {
		return errors.New("GOOGLE_MAPS_API_KEY (maps.api_key) is required")
	}
	if c.Firebase.RequireAuth && c.Firebase.ProjectID == "" {
		return errors.New("SAFEROUTE_FIREBASE_PROJECT_ID is required when auth is enabled")
	}
	if c.Navigation.WalkingSpeedMph <= 0 {
		return fmt.Errorf("walking speed must be positive, got %v", c.Navigation.WalkingSpeedMph)
	}
	switch c.Log.Mode {
	case "production", "development":
	default:
		return fmt.Errorf("unknown log mode %q", c.Log.Mode)
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
