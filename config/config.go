// Package config loads service settings from .env files, flags and the
// environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheFile   = "file"
	CacheRedis  = "redis"
	CacheS3     = "s3"
)

// Config holds every runtime setting. Each field can be set by flag or by
// the environment variable named in its env tag.
type Config struct {
	Port       string `help:"HTTP listen port." env:"PORT" default:"8082"`
	GinMode    string `help:"Gin mode (debug, release, test)." env:"GIN_MODE" default:"release" enum:"debug,release,test"`
	DevMode    bool   `help:"Expose detailed statistics." env:"DEV_MODE"`
	LogLevel   string `help:"Log level." env:"LOG_LEVEL" default:"info"`
	LogFormat  string `help:"Log format (text, json, logfmt)." env:"LOG_FORMAT" default:"text" enum:"text,json,logfmt"`
	DataDir    string `help:"Directory for statistics and the file cache." env:"DATA_DIR" default:"./data"`
	CORSOrigin string `help:"Allowed CORS origin." env:"CORS_ORIGIN" default:"*" name:"cors-origin"`

	CacheBackend     string `help:"Analysis cache store (memory, file, redis, s3)." env:"CACHE_BACKEND" default:"memory" enum:"memory,file,redis,s3"`
	CacheExpiryHours int    `help:"Hours a cached analysis stays fresh." env:"CACHE_EXPIRY_HOURS" default:"24"`
	CacheMaxEntries  int    `help:"Maximum cached analyses." env:"CACHE_MAX_ENTRIES" default:"50"`
	CacheKey         string `help:"Storage key of the cache document." env:"CACHE_KEY" default:"metalyz_url_analysis_cache"`

	RedisAddr     string `help:"Redis address." env:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `help:"Redis password." env:"REDIS_PASSWORD"`
	RedisDB       int    `help:"Redis database." env:"REDIS_DB" default:"0" name:"redis-db"`

	S3Bucket          string `help:"S3 bucket for the cache document." env:"S3_BUCKET" name:"s3-bucket"`
	S3Region          string `help:"S3 region." env:"S3_REGION" default:"us-east-1" name:"s3-region"`
	S3Endpoint        string `help:"Custom S3 endpoint (MinIO, LocalStack)." env:"S3_ENDPOINT" name:"s3-endpoint"`
	S3AccessKeyID     string `help:"S3 access key ID." env:"S3_ACCESS_KEY_ID" name:"s3-access-key-id"`
	S3SecretAccessKey string `help:"S3 secret access key." env:"S3_SECRET_ACCESS_KEY" name:"s3-secret-access-key"`
	S3PathStyle       bool   `help:"Use path-style S3 addressing." env:"S3_PATH_STYLE" name:"s3-path-style"`

	HistoryDriver string `help:"History database driver (postgres, sqlite3); empty disables history." env:"HISTORY_DRIVER"`
	HistoryDSN    string `help:"History database DSN." env:"HISTORY_DSN" name:"history-dsn"`

	FetchTimeout time.Duration `help:"Page fetch timeout." env:"FETCH_TIMEOUT" default:"10s"`
	UserAgent    string        `help:"User-Agent sent when fetching pages." env:"USER_AGENT"`
	Extractor    string        `help:"Feature extractor (pattern, dom)." env:"EXTRACTOR" default:"pattern" enum:"pattern,dom"`

	RateLimit float64 `help:"Requests per second per IP." env:"RATE_LIMIT" default:"2"`
	RateBurst int     `help:"Rate limit burst size." env:"RATE_BURST" default:"5"`
}

// Validate checks settings that kong tags cannot express.
func (c *Config) Validate() error {
	if c.CacheExpiryHours <= 0 {
		return errors.New("cache expiry must be positive")
	}
	if c.CacheMaxEntries <= 0 {
		return errors.New("cache max entries must be positive")
	}
	if c.CacheKey == "" {
		return errors.New("cache key is required")
	}
	if c.CacheBackend == CacheS3 && c.S3Bucket == "" {
		return errors.New("S3_BUCKET is required for the s3 cache backend")
	}
	switch c.HistoryDriver {
	case "":
	case "postgres", "sqlite3":
		if c.HistoryDSN == "" {
			return fmt.Errorf("HISTORY_DSN is required for history driver %q", c.HistoryDriver)
		}
	default:
		return fmt.Errorf("unsupported history driver %q", c.HistoryDriver)
	}
	if c.FetchTimeout <= 0 {
		return errors.New("fetch timeout must be positive")
	}
	if c.RateLimit <= 0 || c.RateBurst <= 0 {
		return errors.New("rate limit and burst must be positive")
	}
	return nil
}

// CacheExpiry is CacheExpiryHours as a duration.
func (c *Config) CacheExpiry() time.Duration {
	return time.Duration(c.CacheExpiryHours) * time.Hour
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// LoadEnv loads .env.development, falling back to .env. It reports whether
// either file was found; neither being present is not an error.
func LoadEnv() bool {
	// Try to load .env.development first (for local development)
	if err := godotenv.Load(".env.development"); err != nil {
		if err := godotenv.Load(); err != nil {
			return false
		}
	}
	return true
}
