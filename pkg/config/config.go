package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	Environment string
	Endpoint    EndpointConfig
	Positioning PositioningConfig
	Storage     StorageConfig
	Redis       RedisConfig
	Server      ServerConfig
}

// EndpointConfig holds the inputs to stream endpoint resolution
type EndpointConfig struct {
	// BackendURL is the explicitly configured stream endpoint, honored in
	// development when it points at a loopback host.
	BackendURL string

	// AppOrigin is the origin the embedding application is served from,
	// e.g. "https://kasuwa.app". Empty when running headless.
	AppOrigin string

	// PrimaryDomain is the platform's primary domain; origins on it are
	// routed to the dedicated API subdomain.
	PrimaryDomain string

	// FallbackURL is the fixed production endpoint used when nothing
	// better can be derived.
	FallbackURL string
}

// PositioningConfig holds device positioning configuration
type PositioningConfig struct {
	Provider string
	APIKey   string

	// StaticLat/StaticLon are used by the static provider.
	StaticLat float64
	StaticLon float64
}

// StorageConfig holds device-local storage configuration
type StorageConfig struct {
	// Dir is the directory holding persisted client state. Empty means
	// the OS user config dir.
	Dir string
}

// RedisConfig holds Redis configuration (devserver result cache)
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// ServerConfig holds devserver listen configuration
type ServerConfig struct {
	Host string
	Port int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	return &Config{
		Environment: getEnv("APP_ENV", "development"),
		Endpoint: EndpointConfig{
			BackendURL:    getEnv("STREAM_BACKEND_URL", "ws://localhost:8090/stream"),
			AppOrigin:     getEnv("APP_ORIGIN", ""),
			PrimaryDomain: getEnv("PRIMARY_DOMAIN", "kasuwa.app"),
			FallbackURL:   getEnv("STREAM_FALLBACK_URL", "wss://api.kasuwa.app/stream"),
		},
		Positioning: PositioningConfig{
			Provider:  getEnv("POSITIONING_PROVIDER", "none"),
			APIKey:    getEnv("POSITIONING_API_KEY", ""),
			StaticLat: getEnvAsFloat("POSITIONING_STATIC_LAT", 0),
			StaticLon: getEnvAsFloat("POSITIONING_STATIC_LON", 0),
		},
		Storage: StorageConfig{
			Dir: getEnv("STORAGE_DIR", ""),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8090),
		},
	}, nil
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ListenAddr returns the devserver listen address
func (c *ServerConfig) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDevelopment reports whether the environment is a development build
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
