package testutils

import (
	"context"
	"errors"
	"sync"
	"testing"

	"geminichat/db"
	"geminichat/models"

	"github.com/stretchr/testify/require"
)

// CreateTestUser stores a user whose password hash is not a real bcrypt hash.
func CreateTestUser(t *testing.T, factory *db.RepositoryFactory, username string) *models.User {
	t.Helper()
	user, err := factory.NewUserRepository().Create(context.Background(), &models.User{
		Username:     username,
		PasswordHash: "not-a-real-hash",
	})
	require.NoError(t, err)
	return user
}

func CreateTestChat(t *testing.T, factory *db.RepositoryFactory, userID int64, question string) *models.Chat {
	t.Helper()
	chat, err := factory.NewChatRepository().Create(context.Background(), &models.Chat{
		UserID:   userID,
		Question: question,
		Response: "answer to " + question,
	})
	require.NoError(t, err)
	return chat
}

// FakeGenerator answers every prompt with Prefix + prompt, or fails with Err.
type FakeGenerator struct {
	Prefix string
	Err    error

	mu      sync.Mutex
	prompts []string
}

var ErrFakeUpstream = errors.New("upstream unavailable")

func (g *FakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if g.Err != nil {
		return "", g.Err
	}
	return g.Prefix + prompt, nil
}

func (g *FakeGenerator) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}

// FailingChatRepository wraps a real repository and fails every write with
// Err once Err is set. Reads pass through.
type FailingChatRepository struct {
	db.ChatRepository
	Err error
}

func (r *FailingChatRepository) Create(ctx context.Context, chat *models.Chat) (*models.Chat, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	return r.ChatRepository.Create(ctx, chat)
}

func (r *FailingChatRepository) Update(ctx context.Context, userID, id int64, question, response string) error {
	if r.Err != nil {
		return r.Err
	}
	return r.ChatRepository.Update(ctx, userID, id, question, response)
}

func (r *FailingChatRepository) DeleteByID(ctx context.Context, userID, id int64) error {
	if r.Err != nil {
		return r.Err
	}
	return r.ChatRepository.DeleteByID(ctx, userID, id)
}

func (r *FailingChatRepository) DeleteAllByUserID(ctx context.Context, userID int64) error {
	if r.Err != nil {
		return r.Err
	}
	return r.ChatRepository.DeleteAllByUserID(ctx, userID)
}
