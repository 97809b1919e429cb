package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type SessionStoreType string

const (
	CookieSessionStore SessionStoreType = "cookie"
	RedisSessionStore  SessionStoreType = "redis"
)

type Config struct {
	Port string
	// Database config
	DatabaseDriver string
	DatabaseDSN    string
	// Session config
	SessionSecret []byte
	SessionStore  SessionStoreType
	SessionMaxAge int
	SecureCookies bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// API token config
	JwtKey   []byte
	TokenTTL time.Duration
	// JwtKeyShared is set when JWT_SECRET_KEY is unset and tokens are signed
	// with the session secret.
	JwtKeyShared bool
	// Generation config
	GeminiAPIKey string
	GeminiModel  string
	// Common configs
	CORSAllowedOrigin string
	LogLevel          string
}

// LoadConfig reads the configuration from the environment, after loading an
// optional .env file.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	sessionMaxAge, err := getEnvInt("SESSION_MAX_AGE", 0)
	if err != nil {
		return nil, err
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}

	secureCookies, err := strconv.ParseBool(getEnv("SECURE_COOKIES", "false"))
	if err != nil {
		return nil, fmt.Errorf("SECURE_COOKIES must be a boolean: %w", err)
	}

	tokenTTL, err := time.ParseDuration(getEnv("TOKEN_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("TOKEN_TTL must be a duration: %w", err)
	}

	sessionSecret := os.Getenv("SESSION_SECRET")
	jwtSecret := getEnv("JWT_SECRET_KEY", "")
	jwtKeyShared := jwtSecret == "" && sessionSecret != ""
	if jwtKeyShared {
		jwtSecret = sessionSecret
	}

	config := &Config{
		Port:              getEnv("PORT", "8080"),
		DatabaseDriver:    getEnv("DATABASE_DRIVER", "sqlite3"),
		DatabaseDSN:       getEnv("DATABASE_DSN", filepath.Join("data", "chat_history.db")),
		SessionSecret:     []byte(sessionSecret),
		SessionStore:      SessionStoreType(getEnv("SESSION_STORE", string(CookieSessionStore))),
		SessionMaxAge:     sessionMaxAge,
		SecureCookies:     secureCookies,
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           redisDB,
		JwtKey:            []byte(jwtSecret),
		TokenTTL:          tokenTTL,
		JwtKeyShared:      jwtKeyShared,
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-2.5-pro"),
		CORSAllowedOrigin: os.Getenv("CORS_ALLOWED_ORIGIN"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}

	if config.SessionStore != CookieSessionStore && config.SessionStore != RedisSessionStore {
		return nil, fmt.Errorf("unsupported SESSION_STORE: %s", config.SessionStore)
	}

	return config, nil
}

// ValidateServer checks the settings the web server cannot start without
func (c *Config) ValidateServer() error {
	if len(c.SessionSecret) == 0 {
		return fmt.Errorf("SESSION_SECRET is not set")
	}
	if len(c.JwtKey) == 0 {
		return fmt.Errorf("JWT_SECRET_KEY is not set")
	}
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is not set")
	}
	return nil
}

// Warnings lists settings the server accepts but that should be changed
func (c *Config) Warnings() []string {
	var warnings []string
	if c.JwtKeyShared {
		warnings = append(warnings, "JWT_SECRET_KEY is not set, signing API tokens with SESSION_SECRET")
	}
	return warnings
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return value, nil
}
