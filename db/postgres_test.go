package db_test

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"geminichat/db"
	"geminichat/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPostgresMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn, mock
}

func TestDialect_Rebind(t *testing.T) {
	query := `UPDATE chat SET question = ?, response = ? WHERE id = ? AND user_id = ?`

	assert.Equal(t, query, db.DialectSQLite.Rebind(query))
	assert.Equal(t,
		`UPDATE chat SET question = $1, response = $2 WHERE id = $3 AND user_id = $4`,
		db.DialectPostgres.Rebind(query))

	assert.Equal(t, `SELECT 1`, db.DialectPostgres.Rebind(`SELECT 1`))
	assert.Equal(t,
		`SELECT id FROM chat WHERE user_id = $1 ORDER BY created_at DESC, id DESC`,
		db.DialectPostgres.Rebind(`SELECT id FROM chat WHERE user_id = ? ORDER BY created_at DESC, id DESC`))
}

func TestDialectFor(t *testing.T) {
	tests := []struct {
		driver string
		want   db.Dialect
	}{
		{"sqlite3", db.DialectSQLite},
		{"sqlite", db.DialectSQLite},
		{"pgx", db.DialectPostgres},
		{"postgres", db.DialectPostgres},
	}
	for _, tt := range tests {
		got, err := db.DialectFor(tt.driver)
		require.NoError(t, err, tt.driver)
		assert.Equal(t, tt.want, got, tt.driver)
	}

	_, err := db.DialectFor("oracle")
	assert.Error(t, err)
}

func TestPostgresUserCreate(t *testing.T) {
	conn, mock := newPostgresMock(t)
	repo := db.NewSQLUserRepository(conn, db.DialectPostgres)

	q := regexp.QuoteMeta(`INSERT INTO users (username, password_hash, created_at) VALUES ($1, $2, $3) RETURNING id`)
	mock.ExpectQuery(q).
		WithArgs("alice", "hash", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	user, err := repo.Create(context.Background(), &models.User{Username: "alice", PasswordHash: "hash"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.False(t, user.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserCreate_UniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"pgx", &pgconn.PgError{Code: "23505"}},
		{"pq", &pq.Error{Code: "23505"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, mock := newPostgresMock(t)
			repo := db.NewSQLUserRepository(conn, db.DialectPostgres)

			mock.ExpectQuery(`INSERT INTO users`).WillReturnError(tt.err)

			_, err := repo.Create(context.Background(), &models.User{Username: "alice", PasswordHash: "hash"})
			assert.ErrorIs(t, err, db.ErrDuplicate)
		})
	}
}

func TestPostgresUserCreate_DBError(t *testing.T) {
	conn, mock := newPostgresMock(t)
	repo := db.NewSQLUserRepository(conn, db.DialectPostgres)

	mock.ExpectQuery(`INSERT INTO users`).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{Username: "alice", PasswordHash: "hash"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, db.ErrDuplicate)
	assert.Regexp(t, `error inserting user: .*db down`, err.Error())
}

func TestPostgresFindByUsername_NotFound(t *testing.T) {
	conn, mock := newPostgresMock(t)
	repo := db.NewSQLUserRepository(conn, db.DialectPostgres)

	q := regexp.QuoteMeta(`SELECT id, username, password_hash, created_at FROM users WHERE username = $1`)
	mock.ExpectQuery(q).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestPostgresFindAllByUserID(t *testing.T) {
	conn, mock := newPostgresMock(t)
	repo := db.NewSQLChatRepository(conn, db.DialectPostgres)
	now := time.Now()

	q := regexp.QuoteMeta(`SELECT id, user_id, question, response, created_at FROM chat WHERE user_id = $1 ORDER BY id DESC`)
	mock.ExpectQuery(q).WithArgs(int64(3)).WillReturnRows(
		sqlmock.NewRows([]string{"id", "user_id", "question", "response", "created_at"}).
			AddRow(int64(2), int64(3), "q2", "r2", now).
			AddRow(int64(1), int64(3), "q1", "r1", now))

	chats, err := repo.FindAllByUserID(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, int64(2), chats[0].ID)
	assert.Equal(t, "q1", chats[1].Question)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdate_NoRowsIsNotFound(t *testing.T) {
	conn, mock := newPostgresMock(t)
	repo := db.NewSQLChatRepository(conn, db.DialectPostgres)

	q := regexp.QuoteMeta(`UPDATE chat SET question = $1, response = $2 WHERE id = $3 AND user_id = $4`)
	mock.ExpectExec(q).
		WithArgs("q", "r", int64(10), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), 3, 10, "q", "r")
	assert.ErrorIs(t, err, db.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDelete_WrapsError(t *testing.T) {
	conn, mock := newPostgresMock(t)
	repo := db.NewSQLChatRepository(conn, db.DialectPostgres)

	q := regexp.QuoteMeta(`DELETE FROM chat WHERE user_id = $1`)
	mock.ExpectExec(q).WithArgs(int64(3)).WillReturnError(errors.New("connection reset"))

	err := repo.DeleteAllByUserID(context.Background(), 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}
