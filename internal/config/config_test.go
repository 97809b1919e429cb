package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, key := range []string{
		"PORT", "DATABASE_DRIVER", "DATABASE_DSN", "SESSION_SECRET", "SESSION_STORE",
		"SESSION_MAX_AGE", "SECURE_COOKIES", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
		"JWT_SECRET_KEY", "TOKEN_TTL", "GEMINI_API_KEY", "GEMINI_MODEL",
		"CORS_ALLOWED_ORIGIN", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite3", cfg.DatabaseDriver)
	assert.Equal(t, filepath.Join("data", "chat_history.db"), cfg.DatabaseDSN)
	assert.Equal(t, CookieSessionStore, cfg.SessionStore)
	assert.Equal(t, 0, cfg.SessionMaxAge)
	assert.False(t, cfg.SecureCookies)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, "gemini-2.5-pro", cfg.GeminiModel)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.CORSAllowedOrigin)
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_DRIVER", "pgx")
	t.Setenv("DATABASE_DSN", "postgres://localhost/chat")
	t.Setenv("SESSION_SECRET", "session-secret")
	t.Setenv("SESSION_STORE", "redis")
	t.Setenv("SESSION_MAX_AGE", "3600")
	t.Setenv("SECURE_COOKIES", "true")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("TOKEN_TTL", "30m")
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("GEMINI_MODEL", "gemini-2.5-flash")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "pgx", cfg.DatabaseDriver)
	assert.Equal(t, "postgres://localhost/chat", cfg.DatabaseDSN)
	assert.Equal(t, RedisSessionStore, cfg.SessionStore)
	assert.Equal(t, 3600, cfg.SessionMaxAge)
	assert.True(t, cfg.SecureCookies)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	assert.Equal(t, "gemini-2.5-flash", cfg.GeminiModel)
	// JWT key falls back to the session secret
	assert.Equal(t, []byte("session-secret"), cfg.JwtKey)
	assert.True(t, cfg.JwtKeyShared)
	require.NoError(t, cfg.ValidateServer())
}

func TestLoadConfig_SharedJwtKeyWarns(t *testing.T) {
	clearEnv(t)
	t.Setenv("SESSION_SECRET", "session-secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.JwtKeyShared)
	require.Len(t, cfg.Warnings(), 1)
	assert.Contains(t, cfg.Warnings()[0], "JWT_SECRET_KEY")

	t.Setenv("JWT_SECRET_KEY", "jwt-secret")
	cfg, err = LoadConfig()
	require.NoError(t, err)
	assert.False(t, cfg.JwtKeyShared)
	assert.Equal(t, []byte("jwt-secret"), cfg.JwtKey)
	assert.Empty(t, cfg.Warnings())
}

func TestLoadConfig_NoSecretsNoWarning(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.False(t, cfg.JwtKeyShared)
	assert.Empty(t, cfg.Warnings())
	assert.ErrorContains(t, cfg.ValidateServer(), "SESSION_SECRET")
}

func TestLoadConfig_DotEnvFile(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("GEMINI_MODEL")
	require.NoError(t, os.WriteFile(".env", []byte("GEMINI_MODEL=from-dotenv\n"), 0600))

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.GeminiModel)
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"session store", "SESSION_STORE", "memcached"},
		{"max age", "SESSION_MAX_AGE", "forever"},
		{"secure cookies", "SECURE_COOKIES", "maybe"},
		{"token ttl", "TOKEN_TTL", "tomorrow"},
		{"redis db", "REDIS_DB", "one"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestValidateServer_MissingSettings(t *testing.T) {
	cfg := &Config{JwtKey: []byte("k"), GeminiAPIKey: "key"}
	assert.ErrorContains(t, cfg.ValidateServer(), "SESSION_SECRET")

	cfg = &Config{SessionSecret: []byte("s"), JwtKey: []byte("k")}
	assert.ErrorContains(t, cfg.ValidateServer(), "GEMINI_API_KEY")
}
