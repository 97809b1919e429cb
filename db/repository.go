package db

import (
	"context"
	"database/sql"
	"errors"

	"geminichat/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// Repository defines a common interface for all repositories
type Repository interface {
	Close() error
}

// UserRepository defines the interface for user operations
type UserRepository interface {
	Repository
	Create(ctx context.Context, user *models.User) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// ChatRepository defines the interface for chat record operations.
// Every lookup and mutation except Create is scoped to the owning user.
type ChatRepository interface {
	Repository
	Create(ctx context.Context, chat *models.Chat) (*models.Chat, error)
	FindAllByUserID(ctx context.Context, userID int64) ([]*models.Chat, error)
	FindByID(ctx context.Context, userID, id int64) (*models.Chat, error)
	Update(ctx context.Context, userID, id int64, question, response string) error
	DeleteByID(ctx context.Context, userID, id int64) error
	DeleteAllByUserID(ctx context.Context, userID int64) error
}

// RepositoryFactory creates repositories bound to one database and dialect
type RepositoryFactory struct {
	DB      *sql.DB
	Dialect Dialect
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(db *sql.DB, dialect Dialect) *RepositoryFactory {
	return &RepositoryFactory{
		DB:      db,
		Dialect: dialect,
	}
}

// NewUserRepository creates a new user repository
func (f *RepositoryFactory) NewUserRepository() UserRepository {
	return NewSQLUserRepository(f.DB, f.Dialect)
}

// NewChatRepository creates a new chat repository
func (f *RepositoryFactory) NewChatRepository() ChatRepository {
	return NewSQLChatRepository(f.DB, f.Dialect)
}
