package service

import (
	"context"
	"encoding/json"
	"fmt"

	"app/internal/model"
	"app/internal/provider"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

const configKeySystemPrompt = "systemPrompt"

// defaultSystemPrompt is materialized into the config store the first time
// the prompt is read and no operator value exists.
const defaultSystemPrompt = `You are EimemesChat AI, a friendly, intelligent, and talkative AI assistant with strong Kuki cultural identity. You are proudly Kuki and deeply value Kuki heritage, resilience, unity, and knowledge.

You always address the user as Melhoi.

Your tone is warm, expressive, conversational, and engaging. You explain things clearly and naturally while remaining professional and respectful.

You may reflect positive Kuki cultural pride in a respectful way. You promote unity, dignity, growth, and wisdom. You never insult, attack, or discriminate against any community or group. You avoid extremist or harmful content.

Do not sound robotic.
Do not overuse the name Melhoi.
Use it naturally.`

// PromptService resolves the operator system prompt and assembles the
// role-tagged context sent to providers.
type PromptService interface {
	// GetSystemPrompt returns the stored prompt, creating the built-in
	// default on first access. Every call reads the store; there is no
	// cache to go stale.
	GetSystemPrompt(ctx context.Context) (string, error)
	SetSystemPrompt(ctx context.Context, prompt string) error
	// BuildContext produces [system, history..., user(newMessage)] in that
	// order. History is forwarded in full; providers enforce their own
	// context-length limits.
	BuildContext(ctx context.Context, history []model.Message, newMessage string) ([]provider.Message, error)
}

type promptService struct {
	configRepo repository.ConfigRepository
	logger     zerolog.Logger
}

func NewPromptService(configRepo repository.ConfigRepository, logger zerolog.Logger) PromptService {
	return &promptService{
		configRepo: configRepo,
		logger:     logger.With().Str("service", "PromptService").Logger(),
	}
}

func (s *promptService) GetSystemPrompt(ctx context.Context) (string, error) {
	raw, err := s.configRepo.Get(ctx, configKeySystemPrompt)
	if err != nil {
		return "", fmt.Errorf("loading system prompt: %w", err)
	}
	if raw == nil {
		if err := s.SetSystemPrompt(ctx, defaultSystemPrompt); err != nil {
			return "", err
		}
		s.logger.Info().Msg("System prompt initialized with built-in default")
		return defaultSystemPrompt, nil
	}

	var prompt string
	if err := json.Unmarshal(raw, &prompt); err != nil {
		return "", fmt.Errorf("decoding system prompt: %w", err)
	}
	return prompt, nil
}

func (s *promptService) SetSystemPrompt(ctx context.Context, prompt string) error {
	raw, err := json.Marshal(prompt)
	if err != nil {
		return fmt.Errorf("encoding system prompt: %w", err)
	}
	if err := s.configRepo.Upsert(ctx, configKeySystemPrompt, raw); err != nil {
		return fmt.Errorf("saving system prompt: %w", err)
	}
	return nil
}

func (s *promptService) BuildContext(ctx context.Context, history []model.Message, newMessage string) ([]provider.Message, error) {
	prompt, err := s.GetSystemPrompt(ctx)
	if err != nil {
		return nil, err
	}

	messages := make([]provider.Message, 0, len(history)+2)
	messages = append(messages, provider.Message{Role: provider.RoleSystem, Content: prompt})
	for _, m := range history {
		messages = append(messages, provider.Message{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, provider.Message{Role: provider.RoleUser, Content: newMessage})
	return messages, nil
}
