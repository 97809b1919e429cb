package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"geminichat/db"
	"geminichat/internal/common"
	"geminichat/internal/generation"
	"geminichat/models"

	"github.com/sirupsen/logrus"
)

type ChatService struct {
	Repository db.ChatRepository
	generator  generation.Generator
	log        *logrus.Logger
}

func NewChatService(chatRepo db.ChatRepository, generator generation.Generator, log *logrus.Logger) *ChatService {
	return &ChatService{
		Repository: chatRepo,
		generator:  generator,
		log:        log,
	}
}

// Ask generates a response to the question and records the exchange.
func (s *ChatService) Ask(ctx context.Context, userID int64, question string) (*models.Chat, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: no question provided", common.ErrValidation)
	}

	response, err := s.generator.Generate(ctx, question)
	if err != nil {
		return nil, &common.UpstreamError{Err: err}
	}

	chat, err := s.Repository.Create(ctx, &models.Chat{
		UserID:   userID,
		Question: question,
		Response: response,
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"user_id": userID, "chat_id": chat.ID}).Info("Stored chat")
	return chat, nil
}

// List returns the user's chats, most recent first.
func (s *ChatService) List(ctx context.Context, userID int64) ([]*models.Chat, error) {
	return s.Repository.FindAllByUserID(ctx, userID)
}

func (s *ChatService) Get(ctx context.Context, userID, id int64) (*models.Chat, error) {
	chat, err := s.Repository.FindByID(ctx, userID, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("%w: chat %d", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return chat, nil
}

// Update replaces question and response of a chat the user owns.
func (s *ChatService) Update(ctx context.Context, userID, id int64, question, response string) error {
	if strings.TrimSpace(question) == "" || strings.TrimSpace(response) == "" {
		return fmt.Errorf("%w: both question and response are required", common.ErrValidation)
	}

	err := s.Repository.Update(ctx, userID, id, question, response)
	if errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("%w: chat %d", common.ErrNotFound, id)
	}
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{"user_id": userID, "chat_id": id}).Info("Updated chat")
	return nil
}

// Delete removes one chat, or every chat of the user when id is
// models.DeleteAllChats. Ids the user does not own are ignored.
func (s *ChatService) Delete(ctx context.Context, userID, id int64) error {
	var err error
	if id == models.DeleteAllChats {
		err = s.Repository.DeleteAllByUserID(ctx, userID)
	} else {
		err = s.Repository.DeleteByID(ctx, userID, id)
	}
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{"user_id": userID, "chat_id": id}).Info("Deleted chat")
	return nil
}
