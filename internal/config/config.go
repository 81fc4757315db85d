// Package config loads application configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all runtime configuration for the service.
type Config struct {
	Port   string
	AppEnv string

	// Remote object storage (S3-compatible: MinIO locally, a cloud provider
	// in production). Leaving the endpoint or access key empty disables the
	// remote tier; uploads then go straight to the local tier.
	StorageEndpoint   string
	StorageAccessKey  string
	StorageSecretKey  string
	StorageBucket     string
	StorageUseSSL     bool
	StoragePublicBase string // browser-accessible base URL, e.g. "http://localhost:9000/media"

	// Local fallback tier. Roots are parallel directory trees the tier
	// writes every object into; the second tree is typically served by the
	// static file server.
	LocalRoots      []string
	LocalPublicBase string // base URL the media proxy serves local assets under

	// Resolver read cache.
	CacheSize int
	CacheTTL  time.Duration
}

// Load reads configuration from a .env file (if present) and environment
// variables.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found, reading from environment")
	}

	return &Config{
		Port:   getEnv("PORT", "8080"),
		AppEnv: getEnv("APP_ENV", "development"),

		StorageEndpoint:   getEnv("STORAGE_ENDPOINT", ""),
		StorageAccessKey:  getEnv("STORAGE_ACCESS_KEY", ""),
		StorageSecretKey:  getEnv("STORAGE_SECRET_KEY", ""),
		StorageBucket:     getEnv("STORAGE_BUCKET", "media"),
		StorageUseSSL:     getEnv("STORAGE_USE_SSL", "false") == "true",
		StoragePublicBase: getEnv("STORAGE_PUBLIC_BASE", "http://localhost:9000/media"),

		LocalRoots:      splitList(getEnv("LOCAL_ROOTS", "data/media,public/media")),
		LocalPublicBase: getEnv("LOCAL_PUBLIC_BASE", "/media"),

		CacheSize: getEnvInt("RESOLVER_CACHE_SIZE", 512),
		CacheTTL:  time.Duration(getEnvInt("RESOLVER_CACHE_TTL_SECONDS", 300)) * time.Second,
	}
}

// IsProduction returns true when the app is running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
