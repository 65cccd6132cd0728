// Copyright (c) 2025 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the service configuration.
type Config struct {
	Server     ServerConfig     `json:"server"`
	Database   DatabaseConfig   `json:"database"`
	JWT        JWTConfig        `json:"jwt"`
	Cache      CacheConfig      `json:"cache"`
	Storage    StorageConfig    `json:"storage"`
	Filter     FilterConfig     `json:"filter"`
	RateLimits RateLimitsConfig `json:"rateLimits"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host        string   `json:"host"`
	Port        int      `json:"port"`
	BaseRoute   string   `json:"baseRoute"`
	Debug       bool     `json:"debug"`
	CORSOrigins []string `json:"corsOrigins"`
	// ExposeQuery adds the compiled SQL and params to list responses
	ExposeQuery bool `json:"exposeQuery"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Type     string           `json:"type"`
	Postgres PostgreSQLConfig `json:"postgres"`
}

// PostgreSQLConfig holds PostgreSQL-specific configuration
type PostgreSQLConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Username        string        `json:"username"`
	Password        string        `json:"password"`
	Database        string        `json:"database"`
	DSN             string        `json:"dsn"`
	SSLMode         string        `json:"sslMode"`
	MaxOpenConns    int           `json:"maxOpenConns"`
	MaxIdleConns    int           `json:"maxIdleConns"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime"`
	QueryTimeout    time.Duration `json:"queryTimeout"`
}

// JWTConfig holds JWT-related configuration. Only the public key is needed
// to verify session tokens; the private key is used by local tooling.
type JWTConfig struct {
	PublicKey  string `json:"publicKey"`
	PrivateKey string `json:"privateKey"`
	ClaimKey   string `json:"claimKey"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	MaxMemory         int64         `json:"maxMemory"`
	TTL               time.Duration `json:"ttl"`
	Enabled           bool          `json:"enabled"`
	Backend           string        `json:"backend"`
	Prefix            string        `json:"prefix"`
	CleanupInterval   time.Duration `json:"cleanupInterval"`
	CompressThreshold int           `json:"compressThreshold"`
	Redis             RedisConfig   `json:"redis"`
}

// RedisConfig holds Redis-specific configuration
type RedisConfig struct {
	Address      string        `json:"address"`
	Password     string        `json:"password"`
	Database     int           `json:"database"`
	PoolSize     int           `json:"poolSize"`
	MinIdleConns int           `json:"minIdleConns"`
	MaxConnAge   time.Duration `json:"maxConnAge"`
	Cluster      ClusterConfig `json:"cluster"`
}

// ClusterConfig holds Redis cluster configuration
type ClusterConfig struct {
	Enabled   bool     `json:"enabled"`
	Addresses []string `json:"addresses"`
}

// StorageConfig holds the media bucket (Cloudflare R2, S3 compatible)
type StorageConfig struct {
	AccessKeyID     string        `json:"accessKeyId"`
	SecretAccessKey string        `json:"secretAccessKey"`
	BucketName      string        `json:"bucketName"`
	Endpoint        string        `json:"endpoint"`
	AccountID       string        `json:"accountId"`
	Region          string        `json:"region"`
	PublicURL       string        `json:"publicUrl"`
	PresignTTL      time.Duration `json:"presignTtl"`
}

// Enabled reports whether enough is configured to build media URLs.
func (s StorageConfig) Enabled() bool {
	return s.PublicURL != "" || (s.BucketName != "" && s.AccessKeyID != "" && s.SecretAccessKey != "")
}

// FilterConfig holds list-query settings
type FilterConfig struct {
	// SchemaFile replaces the built-in table registry when set
	SchemaFile   string `json:"schemaFile"`
	DefaultLimit int    `json:"defaultLimit"`
}

// RateLimitConfig holds rate limiting configuration for a specific endpoint
type RateLimitConfig struct {
	Enabled  bool          `json:"enabled"`
	Max      int           `json:"max"`
	Duration time.Duration `json:"duration"`
}

// RateLimitsConfig holds rate limiting configuration for all endpoints
type RateLimitsConfig struct {
	List  RateLimitConfig `json:"list"`
	Query RateLimitConfig `json:"query"`
	Admin RateLimitConfig `json:"admin"`
}

// lookup returns the raw value for key and whether it was set.
type lookup func(key string) (string, bool)

// source reads typed values through a lookup, falling back to a default on
// a missing or unparsable value.
type source struct {
	lookup lookup
}

func (s source) getString(key, defaultValue string) string {
	if value, ok := s.lookup(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func (s source) getInt(key string, defaultValue int) int {
	if value, ok := s.lookup(key); ok {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (s source) getInt64(key string, defaultValue int64) int64 {
	if value, ok := s.lookup(key); ok {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (s source) getBool(key string, defaultValue bool) bool {
	if value, ok := s.lookup(key); ok {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func (s source) getDuration(key string, defaultValue time.Duration) time.Duration {
	if value, ok := s.lookup(key); ok {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getSeconds reads a whole number of seconds
func (s source) getSeconds(key string, defaultValue int) time.Duration {
	return time.Duration(s.getInt(key, defaultValue)) * time.Second
}

// getList reads a comma separated value
func (s source) getList(key string, defaultValue ...string) []string {
	value, ok := s.lookup(key)
	if !ok || strings.TrimSpace(value) == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (s source) rateLimit(name string, enabled bool, max int, duration time.Duration) RateLimitConfig {
	prefix := "RATE_LIMIT_" + name + "_"
	return RateLimitConfig{
		Enabled:  s.getBool(prefix+"ENABLED", enabled),
		Max:      s.getInt(prefix+"MAX", max),
		Duration: s.getDuration(prefix+"DURATION", duration),
	}
}

func load(lookup lookup) *Config {
	s := source{lookup: lookup}

	accountID := s.getString("R2_ACCOUNT_ID", "")
	endpoint := ""
	if accountID != "" {
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID)
	}

	return &Config{
		Server: ServerConfig{
			Host:        s.getString("HOST", "localhost"),
			Port:        s.getInt("SERVER_PORT", 8080),
			BaseRoute:   s.getString("BASE_ROUTE", "/api"),
			Debug:       s.getBool("DEBUG", false),
			CORSOrigins: s.getList("CORS_ORIGINS", "*"),
			ExposeQuery: s.getBool("EXPOSE_QUERY", true),
		},
		Database: DatabaseConfig{
			Type: s.getString("DB_TYPE", "postgresql"),
			Postgres: PostgreSQLConfig{
				Host:            s.getString("POSTGRES_HOST", "localhost"),
				Port:            s.getInt("POSTGRES_PORT", 5432),
				Username:        s.getString("POSTGRES_USERNAME", "postgres"),
				Password:        s.getString("POSTGRES_PASSWORD", ""),
				Database:        s.getString("POSTGRES_DATABASE", "warpcms"),
				DSN:             s.getString("POSTGRES_DSN", ""),
				SSLMode:         s.getString("POSTGRES_SSL_MODE", "disable"),
				MaxOpenConns:    s.getInt("POSTGRES_MAX_OPEN_CONNS", 25),
				MaxIdleConns:    s.getInt("POSTGRES_MAX_IDLE_CONNS", 25),
				ConnMaxLifetime: s.getSeconds("POSTGRES_CONN_MAX_LIFETIME", 300),
				QueryTimeout:    s.getDuration("POSTGRES_QUERY_TIMEOUT", 10*time.Second),
			},
		},
		JWT: JWTConfig{
			PublicKey:  s.getString("JWT_PUBLIC_KEY", ""),
			PrivateKey: s.getString("JWT_PRIVATE_KEY", ""),
			ClaimKey:   s.getString("JWT_CLAIM_KEY", "claim"),
		},
		Cache: CacheConfig{
			MaxMemory:         s.getInt64("CACHE_MAX_MEMORY", 64*1024*1024),
			TTL:               s.getDuration("CACHE_TTL", 5*time.Minute),
			Enabled:           s.getBool("CACHE_ENABLED", true),
			Backend:           s.getString("CACHE_BACKEND", "memory"),
			Prefix:            s.getString("CACHE_PREFIX", "warpcms:"),
			CleanupInterval:   s.getDuration("CACHE_CLEANUP_INTERVAL", time.Minute),
			CompressThreshold: s.getInt("CACHE_COMPRESS_THRESHOLD", 4096),
			Redis: RedisConfig{
				Address:      s.getString("REDIS_ADDRESS", "localhost:6379"),
				Password:     s.getString("REDIS_PASSWORD", ""),
				Database:     s.getInt("REDIS_DATABASE", 0),
				PoolSize:     s.getInt("REDIS_POOL_SIZE", 10),
				MinIdleConns: s.getInt("REDIS_MIN_IDLE_CONNS", 2),
				MaxConnAge:   s.getSeconds("REDIS_MAX_CONN_AGE", 1800),
				Cluster: ClusterConfig{
					Enabled:   s.getBool("REDIS_CLUSTER_ENABLED", false),
					Addresses: s.getList("REDIS_CLUSTER_ADDRESSES"),
				},
			},
		},
		Storage: StorageConfig{
			AccessKeyID:     s.getString("R2_ACCESS_KEY_ID", ""),
			SecretAccessKey: s.getString("R2_SECRET_ACCESS_KEY", ""),
			BucketName:      s.getString("R2_BUCKET_NAME", ""),
			AccountID:       accountID,
			Endpoint:        s.getString("R2_ENDPOINT", endpoint),
			Region:          s.getString("R2_REGION", "auto"),
			PublicURL:       strings.TrimRight(s.getString("R2_PUBLIC_URL", ""), "/"),
			PresignTTL:      s.getDuration("R2_PRESIGN_TTL", 15*time.Minute),
		},
		Filter: FilterConfig{
			SchemaFile:   s.getString("FILTER_SCHEMA_FILE", ""),
			DefaultLimit: s.getInt("FILTER_DEFAULT_LIMIT", 50),
		},
		RateLimits: RateLimitsConfig{
			List:  s.rateLimit("LIST", true, 120, time.Minute),
			Query: s.rateLimit("QUERY", true, 60, time.Minute),
			Admin: s.rateLimit("ADMIN", true, 30, time.Minute),
		},
	}
}

// LoadFromEnv loads configuration from the environment.
// It follows a clear precedence:
// 1. Explicit Environment Variables (e.g., set in the shell or by CI)
// 2. Values from the .env file (if it exists)
// 3. Hardcoded defaults (if applicable)
func LoadFromEnv() (*Config, error) {
	// godotenv never overrides variables that are already set
	envPaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	var loadErr error
	for _, envPath := range envPaths {
		loadErr = godotenv.Load(envPath)
		if loadErr == nil {
			break
		}
	}
	if loadErr != nil {
		fmt.Println("INFO: .env file not found, using environment variables and defaults.")
	}

	config := load(os.LookupEnv)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

// LoadFromMap loads configuration from an in-memory map.
// This is the primary helper for testing configuration logic in isolation
// without manipulating global environment variables.
func LoadFromMap(envMap map[string]string) (*Config, error) {
	config := load(func(key string) (string, bool) {
		value, ok := envMap[key]
		return value, ok
	})
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

// Validate validates the configuration for required fields
func (c *Config) Validate() error {
	var errors []string

	if strings.TrimSpace(c.JWT.PublicKey) == "" {
		errors = append(errors, "JWT_PUBLIC_KEY is required")
	}

	validDbTypes := []string{"postgresql"}
	if !contains(validDbTypes, c.Database.Type) {
		errors = append(errors, fmt.Sprintf("DB_TYPE must be one of: %s", strings.Join(validDbTypes, ", ")))
	}

	validBackends := []string{"memory", "redis"}
	if !contains(validBackends, c.Cache.Backend) {
		errors = append(errors, fmt.Sprintf("CACHE_BACKEND must be one of: %s", strings.Join(validBackends, ", ")))
	}

	if c.Filter.DefaultLimit < 1 || c.Filter.DefaultLimit > 1000 {
		errors = append(errors, "FILTER_DEFAULT_LIMIT must be between 1 and 1000")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errors = append(errors, "SERVER_PORT must be a valid port")
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation errors: %s", strings.Join(errors, "; "))
	}
	return nil
}

// Address is the listen address for the HTTP server
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
