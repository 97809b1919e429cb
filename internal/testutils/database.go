package testutils

import (
	"database/sql"
	"io"
	"path/filepath"
	"testing"
	"time"

	"geminichat/db"
	"geminichat/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// NewTestLogger returns a logger that discards its output
func NewTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// SetupTestDatabase opens a fresh SQLite database with the schema applied.
// The database is closed when the test finishes.
func SetupTestDatabase(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	testDB, err := db.ConnectToDatabase("sqlite3", dbPath+"?_journal_mode=WAL&_timeout=10000&_foreign_keys=on", NewTestLogger())
	require.NoError(t, err)

	err = db.InitializeSchema(testDB, db.DialectSQLite)
	require.NoError(t, err)

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

func SetupTestRepositoryFactory(t *testing.T) *db.RepositoryFactory {
	return db.NewRepositoryFactory(SetupTestDatabase(t), db.DialectSQLite)
}

func GetTestConfig() *config.Config {
	return &config.Config{
		Port:           "0",
		DatabaseDriver: "sqlite3",
		DatabaseDSN:    ":memory:",
		SessionSecret:  []byte("test_session_secret_for_testing_only"),
		SessionStore:   config.CookieSessionStore,
		JwtKey:         []byte("test_jwt_secret_key_for_testing_only"),
		TokenTTL:       time.Hour,
		GeminiAPIKey:   "test-api-key",
		GeminiModel:    "test-model",
		LogLevel:       "debug",
	}
}
