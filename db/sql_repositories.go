package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"geminichat/models"
)

// SQLUserRepository implements the UserRepository interface over database/sql
type SQLUserRepository struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLUserRepository creates a new SQLUserRepository
func NewSQLUserRepository(db *sql.DB, dialect Dialect) *SQLUserRepository {
	return &SQLUserRepository{db: db, dialect: dialect}
}

// Close closes the database connection
func (r *SQLUserRepository) Close() error {
	return r.db.Close()
}

// Create inserts a user and fills in its generated ID
func (r *SQLUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	query := r.dialect.Rebind(`INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?) RETURNING id`)
	err := r.db.QueryRowContext(ctx, query, user.Username, user.PasswordHash, user.CreatedAt).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("error inserting user: %w", err)
	}

	return user, nil
}

// FindByID finds a user by ID
func (r *SQLUserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	query := r.dialect.Rebind(`SELECT id, username, password_hash, created_at FROM users WHERE id = ?`)
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

// FindByUsername finds a user by username
func (r *SQLUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	query := r.dialect.Rebind(`SELECT id, username, password_hash, created_at FROM users WHERE username = ?`)
	return r.scanUser(r.db.QueryRowContext(ctx, query, username))
}

func (r *SQLUserRepository) scanUser(row *sql.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error scanning user: %w", err)
	}
	return &user, nil
}

// SQLChatRepository implements the ChatRepository interface over database/sql
type SQLChatRepository struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLChatRepository creates a new SQLChatRepository
func NewSQLChatRepository(db *sql.DB, dialect Dialect) *SQLChatRepository {
	return &SQLChatRepository{db: db, dialect: dialect}
}

// Close closes the database connection
func (r *SQLChatRepository) Close() error {
	return r.db.Close()
}

// Create inserts a chat record and fills in its generated ID
func (r *SQLChatRepository) Create(ctx context.Context, chat *models.Chat) (*models.Chat, error) {
	if chat.CreatedAt.IsZero() {
		chat.CreatedAt = time.Now().UTC()
	}

	query := r.dialect.Rebind(`INSERT INTO chat (user_id, question, response, created_at) VALUES (?, ?, ?, ?) RETURNING id`)
	err := r.db.QueryRowContext(ctx, query, chat.UserID, chat.Question, chat.Response, chat.CreatedAt).Scan(&chat.ID)
	if err != nil {
		return nil, fmt.Errorf("error inserting chat: %w", err)
	}

	return chat, nil
}

// FindAllByUserID returns the user's chats, most recent first
func (r *SQLChatRepository) FindAllByUserID(ctx context.Context, userID int64) ([]*models.Chat, error) {
	query := r.dialect.Rebind(`SELECT id, user_id, question, response, created_at FROM chat WHERE user_id = ? ORDER BY id DESC`)
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying chats: %w", err)
	}
	defer rows.Close()

	chats := []*models.Chat{}
	for rows.Next() {
		var chat models.Chat
		if err := rows.Scan(&chat.ID, &chat.UserID, &chat.Question, &chat.Response, &chat.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning chat: %w", err)
		}
		chats = append(chats, &chat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chats: %w", err)
	}

	return chats, nil
}

// FindByID finds one of the user's chats by ID
func (r *SQLChatRepository) FindByID(ctx context.Context, userID, id int64) (*models.Chat, error) {
	query := r.dialect.Rebind(`SELECT id, user_id, question, response, created_at FROM chat WHERE id = ? AND user_id = ?`)

	var chat models.Chat
	err := r.db.QueryRowContext(ctx, query, id, userID).
		Scan(&chat.ID, &chat.UserID, &chat.Question, &chat.Response, &chat.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error scanning chat: %w", err)
	}

	return &chat, nil
}

// Update replaces question and response of one of the user's chats
func (r *SQLChatRepository) Update(ctx context.Context, userID, id int64, question, response string) error {
	query := r.dialect.Rebind(`UPDATE chat SET question = ?, response = ? WHERE id = ? AND user_id = ?`)
	result, err := r.db.ExecContext(ctx, query, question, response, id, userID)
	if err != nil {
		return fmt.Errorf("error updating chat: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error updating chat: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteByID deletes one of the user's chats; a foreign or unknown id is a no-op
func (r *SQLChatRepository) DeleteByID(ctx context.Context, userID, id int64) error {
	query := r.dialect.Rebind(`DELETE FROM chat WHERE id = ? AND user_id = ?`)
	if _, err := r.db.ExecContext(ctx, query, id, userID); err != nil {
		return fmt.Errorf("error deleting chat: %w", err)
	}
	return nil
}

// DeleteAllByUserID deletes every chat the user owns
func (r *SQLChatRepository) DeleteAllByUserID(ctx context.Context, userID int64) error {
	query := r.dialect.Rebind(`DELETE FROM chat WHERE user_id = ?`)
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("error deleting chats: %w", err)
	}
	return nil
}
