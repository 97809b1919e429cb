package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"geminichat/db"
	"geminichat/internal/auth"
	"geminichat/internal/testutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the command from an empty directory with no database settings
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("DATABASE_DRIVER", "")
	t.Setenv("DATABASE_DSN", "")
	return dir
}

func TestRun_Success(t *testing.T) {
	dbPath := filepath.Join(isolate(t), "users.db")
	stdout := new(bytes.Buffer)

	err := run([]string{"-user", "alice", "-password", "secret", "-dsn", dbPath}, new(bytes.Buffer), stdout, new(bytes.Buffer))
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "User alice created successfully")

	conn, err := db.ConnectToDatabase("sqlite3", dbPath, testutils.NewTestLogger())
	require.NoError(t, err)
	defer conn.Close()

	stored, err := db.NewSQLUserRepository(conn, db.DialectSQLite).FindByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword("secret", stored.PasswordHash))
}

func TestRun_DuplicateUser(t *testing.T) {
	dbPath := filepath.Join(isolate(t), "users.db")
	args := []string{"-user", "alice", "-password", "secret", "-dsn", dbPath}

	require.NoError(t, run(args, new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer)))

	err := run(args, new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestRun_MissingUserFlag(t *testing.T) {
	isolate(t)
	stdout := new(bytes.Buffer)

	err := run([]string{"-password", "secret"}, new(bytes.Buffer), stdout, new(bytes.Buffer))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required flags: user")
	assert.Contains(t, stdout.String(), "Usage:")
}

func TestRun_InteractivePassword(t *testing.T) {
	dbPath := filepath.Join(isolate(t), "users.db")
	stdout := new(bytes.Buffer)

	err := run([]string{"-user", "bob", "-dsn", dbPath}, bytes.NewBufferString("typed_secret\n"), stdout, new(bytes.Buffer))
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "Password: ")
	assert.Contains(t, stdout.String(), "User bob created successfully")
}

func TestRun_EmptyPassword(t *testing.T) {
	isolate(t)

	err := run([]string{"-user", "bob"}, bytes.NewBufferString("\n"), new(bytes.Buffer), new(bytes.Buffer))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password cannot be empty")
}

func TestRun_DefaultsFromEnvironment(t *testing.T) {
	dbPath := filepath.Join(isolate(t), "env.db")
	t.Setenv("DATABASE_DSN", dbPath)

	err := run([]string{"-user", "carol", "-password", "secret"}, new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer))
	require.NoError(t, err)
	assert.FileExists(t, dbPath)
}

func TestRun_PureGoDriver(t *testing.T) {
	dbPath := filepath.Join(isolate(t), "modernc.db")

	err := run([]string{"-user", "dave", "-password", "secret", "-driver", "sqlite", "-dsn", dbPath}, new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer))
	require.NoError(t, err)
	assert.FileExists(t, dbPath)
}

func TestRun_UnsupportedDriver(t *testing.T) {
	isolate(t)

	err := run([]string{"-user", "erin", "-password", "secret", "-driver", "oracle"}, new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer))
	require.Error(t, err)
}

func TestRun_InvalidDBPath(t *testing.T) {
	dir := isolate(t)
	blocker := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	err := run([]string{"-user", "frank", "-password", "secret", "-dsn", filepath.Join(blocker, "users.db")}, new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open database")
}

func TestRun_InvalidFlag(t *testing.T) {
	isolate(t)

	err := run([]string{"-invalid"}, new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flag provided but not defined")
}
