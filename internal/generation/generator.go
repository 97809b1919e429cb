// Package generation talks to the external text-generation service.
package generation

import (
	"context"
	"errors"
	"fmt"

	"geminichat/internal/config"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

// Generator turns a prompt into generated text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

var ErrEmptyResponse = errors.New("model returned an empty response")

type GeminiClient struct {
	client *genai.Client
	model  string
	log    *logrus.Logger
}

func NewGeminiClient(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*GeminiClient, error) {
	return newGeminiClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	}, cfg.GeminiModel, log)
}

func newGeminiClient(ctx context.Context, clientConfig *genai.ClientConfig, model string, log *logrus.Logger) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: model, log: log}, nil
}

// Generate sends the prompt as a single user turn. No retries.
func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		g.log.WithError(err).WithField("model", g.model).Error("Generation request failed")
		return "", err
	}

	text := resp.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}

	g.log.WithFields(logrus.Fields{
		"model":        g.model,
		"prompt_len":   len(prompt),
		"response_len": len(text),
	}).Debug("Generated response")
	return text, nil
}
