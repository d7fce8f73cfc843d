// Package config handles application configuration via environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configurable values for the binaries.
type Config struct {
	Env string

	// REST backend
	APIPort        string
	DBPath         string
	JWTSecret      string
	AccessTokenTTL time.Duration

	// Front ends
	WebPort        string
	APIURL         string
	SecureCookie   bool
	RequestTimeout time.Duration
	SessionDB      string
}

const devSecret = "dev-secret-change-me"

// LoadDotEnv loads variables from the given files (".env" when none are
// given). Missing files are ignored; variables already set are kept.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads environment variables and populates a Config struct.
func Load() *Config {
	return &Config{
		Env: getEnv("ENV", "development"),

		APIPort:        getEnv("API_PORT", getEnv("PORT", "8000")),
		DBPath:         getEnv("DB_PATH", "zakat.db"),
		JWTSecret:      getEnv("JWT_SECRET", devSecret),
		AccessTokenTTL: time.Duration(getEnvInt("ACCESS_TOKEN_EXPIRE_MINUTES", 30)) * time.Minute,

		WebPort:        getEnv("WEB_PORT", getEnv("PORT", "8080")),
		APIURL:         strings.TrimRight(getEnv("API_URL", "http://localhost:8000"), "/"),
		SecureCookie:   getEnvBool("SECURE_COOKIE", false),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 10*time.Second),
		SessionDB:      getEnv("SESSION_DB", defaultSessionDB()),
	}
}

func defaultSessionDB() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "session.db"
	}
	return filepath.Join(home, ".zakat", "session.db")
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var problems []string

	for name, port := range map[string]string{"API": c.APIPort, "web": c.WebPort} {
		if p, err := strconv.Atoi(port); err != nil {
			problems = append(problems, fmt.Sprintf("invalid %s port '%s': must be a number", name, port))
		} else if p < 1 || p > 65535 {
			problems = append(problems, fmt.Sprintf("invalid %s port %d: must be between 1 and 65535", name, p))
		}
	}

	if c.DBPath == "" {
		problems = append(problems, "database path cannot be empty")
	}

	if c.Env == "production" && (c.JWTSecret == "" || c.JWTSecret == devSecret) {
		problems = append(problems, "JWT_SECRET must be set in production")
	}

	if c.AccessTokenTTL <= 0 {
		problems = append(problems, fmt.Sprintf("invalid access token lifetime %v: must be positive", c.AccessTokenTTL))
	}

	if u, err := url.Parse(c.APIURL); err != nil {
		problems = append(problems, fmt.Sprintf("invalid API URL '%s': %v", c.APIURL, err))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		problems = append(problems, fmt.Sprintf("invalid API URL scheme '%s': must be 'http' or 'https'", u.Scheme))
	}

	if c.RequestTimeout <= 0 {
		problems = append(problems, fmt.Sprintf("invalid request timeout %v: must be positive", c.RequestTimeout))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
