package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration shared by the binaries
type Config struct {
	// Database
	DatabasePath string
	DatabaseURL  string // optional Postgres; SQLite is used when empty

	// HTTP API
	Port        string
	MetricsAddr string

	// Golemio API
	GolemioToken       string
	GolemioStopsURL    string
	GolemioTripUpdates string

	// Real-time polling
	PollInterval      time.Duration
	RetentionDuration time.Duration

	// Prediction defaults
	ConfidenceLevel float64
	MinReliability  float64

	// NATS publishing (optional)
	NATSURL     string
	NATSSubject string
}

// Load reads configuration from environment variables with sensible defaults
func Load() *Config {
	return &Config{
		// Database
		DatabasePath: getEnv("SQLITE_DATABASE", "/data/delays.db"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),

		// HTTP API
		Port:        getEnv("PORT", "8080"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9091"),

		// Golemio API
		GolemioToken:       getEnv("GOLEMIO_API_TOKEN", ""),
		GolemioStopsURL:    getEnv("GOLEMIO_STOPS_URL", "https://api.golemio.cz/v2/gtfs/stops"),
		GolemioTripUpdates: getEnv("GOLEMIO_TRIP_UPDATES_URL", "https://api.golemio.cz/v2/vehiclepositions/gtfsrt/trip_updates.pb"),

		// Real-time polling
		PollInterval:      time.Duration(getEnvInt("POLL_INTERVAL", 60)) * time.Second,
		RetentionDuration: time.Duration(getEnvInt("RETENTION_DAYS", 30)) * 24 * time.Hour,

		// Prediction defaults
		ConfidenceLevel: getEnvFloat("CONFIDENCE_LEVEL", 0.95),
		MinReliability:  getEnvFloat("MIN_RELIABILITY", 30),

		// NATS publishing
		NATSURL:     getEnv("NATS_URL", ""),
		NATSSubject: getEnv("NATS_SUBJECT", "transit.predictions"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
