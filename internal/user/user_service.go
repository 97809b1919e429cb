package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"geminichat/db"
	"geminichat/internal/auth"
	"geminichat/internal/common"
	"geminichat/models"

	"github.com/sirupsen/logrus"
)

type UserService struct {
	Repository db.UserRepository
	log        *logrus.Logger
}

func NewUserService(userRepo db.UserRepository, log *logrus.Logger) *UserService {
	return &UserService{
		Repository: userRepo,
		log:        log,
	}
}

// Signup creates an account with a bcrypt-hashed password
func (s *UserService) Signup(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", common.ErrValidation)
	}

	_, err := s.Repository.FindByUsername(ctx, username)
	if err == nil {
		return nil, fmt.Errorf("%w: username %q", common.ErrConflict, username)
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user, err := s.Repository.Create(ctx, &models.User{Username: username, PasswordHash: hash})
	if errors.Is(err, db.ErrDuplicate) {
		// lost a race with a concurrent signup
		return nil, fmt.Errorf("%w: username %q", common.ErrConflict, username)
	}
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "username": user.Username}).Info("User signed up")
	return user, nil
}

// Authenticate checks a username/password pair. Unknown users and wrong
// passwords produce the same error.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, common.ErrInvalidCredentials
	}

	user, err := s.Repository.FindByUsername(ctx, username)
	if errors.Is(err, db.ErrNotFound) {
		return nil, common.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !auth.CheckPassword(password, user.PasswordHash) {
		return nil, common.ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) FindByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.Repository.FindByID(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("%w: user %d", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
