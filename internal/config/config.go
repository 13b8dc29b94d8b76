package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port   string
	AppEnv string // "development" or "production"

	LogLevel string

	// Outbound HTTP client timeout for supplier calls.
	HTTPTimeout time.Duration

	// Cache freshness window for station/battery payloads.
	CacheTTL time.Duration

	// Poller intervals.
	StationPollInterval time.Duration
	OrderPollInterval   time.Duration
	KeepAliveInterval   time.Duration

	// Supplier A: session-token API.
	EnergoBaseURL  string
	EnergoLogin    string
	EnergoPassword string

	// Supplier B: static-key API.
	BoltwattBaseURL string
	BoltwattAPIKey  string

	// Build-time configuration artifacts.
	BatteryIDMapFile    string
	StationMetadataFile string

	// Analytics persistence.
	AnalyticsFile      string
	AnalyticsFlushSize int

	// Optional Google key for geocoding admin-supplied addresses.
	GeocoderAPIKey string

	// Static front-end directory.
	PublicDir string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.AppEnv = getenvDefault("APP_ENV", "development")
	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = getenvDuration("CACHE_TTL", "10s"); err != nil {
		return nil, err
	}
	if cfg.StationPollInterval, err = getenvDuration("STATION_POLL_INTERVAL", "30s"); err != nil {
		return nil, err
	}
	if cfg.OrderPollInterval, err = getenvDuration("ORDER_POLL_INTERVAL", "60s"); err != nil {
		return nil, err
	}
	if cfg.KeepAliveInterval, err = getenvDuration("KEEPALIVE_INTERVAL", "60s"); err != nil {
		return nil, err
	}

	cfg.EnergoBaseURL = getenvDefault("ENERGO_BASE_URL", "https://api.energo.example")
	cfg.EnergoLogin = os.Getenv("ENERGO_LOGIN")
	cfg.EnergoPassword = os.Getenv("ENERGO_PASSWORD")

	cfg.BoltwattBaseURL = getenvDefault("BOLTWATT_BASE_URL", "https://api.boltwatt.example")
	cfg.BoltwattAPIKey = os.Getenv("BOLTWATT_API_KEY")

	cfg.BatteryIDMapFile = getenvDefault("BATTERY_ID_MAP_FILE", "config/battery_ids.json")
	cfg.StationMetadataFile = getenvDefault("STATION_METADATA_FILE", "config/stations.json")

	cfg.AnalyticsFile = getenvDefault("ANALYTICS_FILE", "data/analytics.jsonl")
	cfg.AnalyticsFlushSize = getenvInt("ANALYTICS_FLUSH_SIZE", 50)

	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")
	cfg.PublicDir = getenvDefault("PUBLIC_DIR", "./public")

	return cfg, nil
}

// Development reports whether the app runs with development error verbosity.
func (c *AppConfig) Development() bool {
	return c.AppEnv != "production"
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
