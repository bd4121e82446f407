// Package config loads application configuration from environment variables.
package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Storage drivers understood by storage.New.
const (
	DriverNone   = ""
	DriverMinio  = "minio"
	DriverS3     = "s3"
	DriverMemory = "memory"
)

// Config holds all runtime configuration for the gateway and the album scraper.
type Config struct {
	Port           string
	AppEnv         string
	SwaggerEnabled bool
	SwaggerPort    string

	// Object storage. An empty StorageDriver means no bucket is bound; the
	// gateway still starts and reports the missing binding per request.
	StorageDriver    string
	StorageEndpoint  string // host:port for minio, optional full URL for s3 (e.g. an R2 account endpoint)
	StorageAccessKey string
	StorageSecretKey string
	StorageBucket    string
	StorageRegion    string
	StorageUseSSL    bool

	AlbumBaseURL string
	AlbumPort    string
}

// Load reads configuration from a .env file (if present) and environment variables.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, reading from environment")
	}

	return &Config{
		Port:           getEnv("PORT", "8787"),
		AppEnv:         getEnv("APP_ENV", "development"),
		SwaggerEnabled: getEnv("SWAGGER_ENABLED", "false") == "true",
		SwaggerPort:    getEnv("SWAGGER_PORT", "8789"),

		StorageDriver:    os.Getenv("STORAGE_DRIVER"),
		StorageEndpoint:  os.Getenv("STORAGE_ENDPOINT"),
		StorageAccessKey: os.Getenv("STORAGE_ACCESS_KEY"),
		StorageSecretKey: os.Getenv("STORAGE_SECRET_KEY"),
		StorageBucket:    getEnv("STORAGE_BUCKET", "album-bucket"),
		StorageRegion:    getEnv("STORAGE_REGION", "auto"),
		StorageUseSSL:    getEnv("STORAGE_USE_SSL", "false") == "true",

		AlbumBaseURL: getEnv("ALBUM_BASE_URL", "https://albumizr.com"),
		AlbumPort:    getEnv("ALBUM_PORT", "8788"),
	}
}

// IsProduction returns true when the app is running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// SwaggerUI reports whether the docs listener should be started.
func (c *Config) SwaggerUI() bool {
	return c.SwaggerEnabled && !c.IsProduction()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
