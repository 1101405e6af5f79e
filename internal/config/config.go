package config

import (
	"crypto/rand"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/tenantly/authweb/pkg/logger"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	API       APIConfig
	Session   SessionConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// APIConfig points at the remote authentication API.
type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

// SessionConfig controls the signed session cookie.
type SessionConfig struct {
	Secret     string
	CookieName string
	MaxAge     time.Duration
	Secure     bool
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	Enabled       bool
	RPS           float64
	Burst         int
	UseRedis      bool
	WindowSeconds int
}

type LogConfig struct {
	Level string
}

// IsProduction reports whether the server runs with production defaults.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}

// LoadConfig loads configuration from environment variables and optional .env files.
// Missing env files are ignored.
func LoadConfig(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if f == "" {
			continue
		}
		_ = godotenv.Load(f)
	}

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "3000")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("SERVER_READ_TIMEOUT", 30)
	viper.SetDefault("SERVER_WRITE_TIMEOUT", 30)
	viper.SetDefault("API_BASE_URL", "http://localhost:8000/v1")
	viper.SetDefault("API_TIMEOUT", 10)
	viper.SetDefault("SESSION_COOKIE_NAME", "authweb.session")
	viper.SetDefault("SESSION_MAX_AGE_DAYS", 30)
	viper.SetDefault("MONGODB_DATABASE", "authweb")
	viper.SetDefault("MONGODB_TIMEOUT", 10)
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("RATE_LIMIT_ENABLED", true)
	viper.SetDefault("RATE_LIMIT_RPS", 1.0)
	viper.SetDefault("RATE_LIMIT_BURST", 5)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	viper.SetDefault("LOG_LEVEL", "info")

	cfg := &Config{
		Server: ServerConfig{
			Port:         viper.GetString("SERVER_PORT"),
			Host:         viper.GetString("SERVER_HOST"),
			Environment:  viper.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  time.Duration(viper.GetInt("SERVER_READ_TIMEOUT")) * time.Second,
			WriteTimeout: time.Duration(viper.GetInt("SERVER_WRITE_TIMEOUT")) * time.Second,
		},
		API: APIConfig{
			BaseURL: strings.TrimRight(viper.GetString("API_BASE_URL"), "/"),
			Timeout: time.Duration(viper.GetInt("API_TIMEOUT")) * time.Second,
		},
		Session: SessionConfig{
			Secret:     os.Getenv("SESSION_SECRET"),
			CookieName: viper.GetString("SESSION_COOKIE_NAME"),
			MaxAge:     time.Duration(viper.GetInt("SESSION_MAX_AGE_DAYS")) * 24 * time.Hour,
		},
		MongoDB: MongoDBConfig{
			URI:      viper.GetString("MONGODB_URI"),
			Database: viper.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(viper.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       viper.GetBool("RATE_LIMIT_ENABLED"),
			RPS:           viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         viper.GetInt("RATE_LIMIT_BURST"),
			UseRedis:      viper.GetBool("RATE_LIMIT_USE_REDIS"),
			WindowSeconds: viper.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
	}

	// secure cookies by default in production, overridable either way
	cfg.Session.Secure = cfg.IsProduction()
	if viper.IsSet("SESSION_COOKIE_SECURE") {
		cfg.Session.Secure = viper.GetBool("SESSION_COOKIE_SECURE")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("API_BASE_URL must be an absolute http(s) URL, got %q", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("API_TIMEOUT must be positive")
	}
	if c.Session.MaxAge <= 0 {
		return fmt.Errorf("SESSION_MAX_AGE_DAYS must be positive")
	}
	if c.Session.CookieName == "" {
		return fmt.Errorf("SESSION_COOKIE_NAME must not be empty")
	}

	switch {
	case c.Session.Secret == "" && c.IsProduction():
		return fmt.Errorf("SESSION_SECRET is required in production")
	case c.Session.Secret == "":
		// sessions will not survive a restart
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return fmt.Errorf("generate session secret: %w", err)
		}
		c.Session.Secret = string(b)
		logger.Warnf("SESSION_SECRET is not set; using an ephemeral secret")
	case len(c.Session.Secret) < 32:
		return fmt.Errorf("SESSION_SECRET must be at least 32 bytes")
	}
	return nil
}
