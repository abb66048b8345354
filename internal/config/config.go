package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	envAPIURL        = "SQUADPOST_API_URL"
	envToken         = "SQUADPOST_TOKEN"
	envUserID        = "SQUADPOST_USER_ID"
	envSquad         = "SQUADPOST_SQUAD"
	envTimeout       = "SQUADPOST_TIMEOUT"
	envRedisAddr     = "SQUADPOST_REDIS_ADDR"
	envRedisPassword = "SQUADPOST_REDIS_PASSWORD"
	envRedisDB       = "SQUADPOST_REDIS_DB"
	envFeedTTL       = "SQUADPOST_FEED_TTL"
	envFeedSize      = "SQUADPOST_FEED_SIZE"
	envLogLevel      = "SQUADPOST_LOG_LEVEL"
)

// Config holds the settings shared by all commands.
type Config struct {
	// API
	APIURL  string
	Token   string
	Timeout time.Duration

	// UserID skips the whoami lookup when set.
	UserID string
	// Squad is the default squad handle.
	Squad string

	// Redis feed cache; disabled when RedisAddr is empty.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	FeedTTL       time.Duration
	FeedSize      int

	LogLevel string
}

// Load reads configuration from the environment, loading .env first when
// present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		APIURL:        getEnv(envAPIURL, "https://api.daily.dev/graphql"),
		Token:         getEnv(envToken, ""),
		UserID:        getEnv(envUserID, ""),
		Squad:         strings.TrimPrefix(getEnv(envSquad, ""), "@"),
		RedisAddr:     getEnv(envRedisAddr, ""),
		RedisPassword: getEnv(envRedisPassword, ""),
		LogLevel:      getEnv(envLogLevel, "info"),
	}

	var err error
	if cfg.Timeout, err = time.ParseDuration(getEnv(envTimeout, "30s")); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", envTimeout, err)
	}
	if cfg.FeedTTL, err = time.ParseDuration(getEnv(envFeedTTL, "5m")); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", envFeedTTL, err)
	}
	if cfg.RedisDB, err = strconv.Atoi(getEnv(envRedisDB, "0")); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", envRedisDB, err)
	}
	if cfg.FeedSize, err = strconv.Atoi(getEnv(envFeedSize, "20")); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", envFeedSize, err)
	}

	return cfg, nil
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("%s is required", envAPIURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%s must be positive", envTimeout)
	}
	if c.FeedSize <= 0 {
		return fmt.Errorf("%s must be positive", envFeedSize)
	}
	return nil
}

// ValidateForShare checks the settings needed to share a post.
func (c *Config) ValidateForShare() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Token == "" {
		return fmt.Errorf("%s is required to share posts", envToken)
	}
	return nil
}

// CacheEnabled reports whether a Redis feed cache is configured.
func (c *Config) CacheEnabled() bool {
	return c.RedisAddr != ""
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}
