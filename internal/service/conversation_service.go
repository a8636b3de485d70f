package service

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

var ErrConversationNotFound = errors.New("conversation not found")

// New conversations are titled from a prefix of the first user message.
const titleMaxRunes = 30

type ConversationService interface {
	List(ctx context.Context, userID string) ([]model.Conversation, error)
	// Get returns the conversation with its full message log.
	Get(ctx context.Context, id, userID string) (*model.Conversation, error)
	Create(ctx context.Context, userID, title, modelTag string) (*model.Conversation, error)
	Rename(ctx context.Context, id, userID, title string) (*model.Conversation, error)
	Delete(ctx context.Context, id, userID string) error
	// History returns the ordered messages of an existing conversation, or
	// nil when conversationID is empty (a fresh chat).
	History(ctx context.Context, conversationID, userID string) ([]model.Message, error)
	// AppendTurn durably appends one (user, assistant) message pair. An
	// empty conversationID creates a new conversation titled from the user
	// text. Both messages commit together or not at all.
	AppendTurn(ctx context.Context, conversationID, userID, userText, assistantText, modelTag string) (*model.Conversation, error)
	MessageStats(ctx context.Context) (int, map[string]int, error)
}

type conversationService struct {
	conversationRepo repository.ConversationRepository
	logger           zerolog.Logger
}

func NewConversationService(conversationRepo repository.ConversationRepository, logger zerolog.Logger) ConversationService {
	return &conversationService{
		conversationRepo: conversationRepo,
		logger:           logger.With().Str("service", "ConversationService").Logger(),
	}
}

// titleFromMessage truncates the first message to a short title, marking
// the cut with an ellipsis.
func titleFromMessage(text string) string {
	if utf8.RuneCountInString(text) <= titleMaxRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:titleMaxRunes]) + "..."
}

func (s *conversationService) List(ctx context.Context, userID string) ([]model.Conversation, error) {
	conversations, err := s.conversationRepo.ListConversations(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	return conversations, nil
}

func (s *conversationService) Get(ctx context.Context, id, userID string) (*model.Conversation, error) {
	conversation, err := s.conversationRepo.GetConversation(ctx, id, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("getting conversation: %w", err)
	}
	messages, err := s.conversationRepo.ListMessages(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading messages: %w", err)
	}
	conversation.Messages = messages
	return conversation, nil
}

func (s *conversationService) Create(ctx context.Context, userID, title, modelTag string) (*model.Conversation, error) {
	if title == "" {
		title = "New Chat"
	}
	conversation, err := s.conversationRepo.CreateConversation(ctx, userID, title, modelTag)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to create conversation")
		return nil, fmt.Errorf("creating conversation: %w", err)
	}
	return conversation, nil
}

func (s *conversationService) Rename(ctx context.Context, id, userID, title string) (*model.Conversation, error) {
	conversation, err := s.conversationRepo.UpdateTitle(ctx, id, userID, title)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("renaming conversation: %w", err)
	}
	return conversation, nil
}

func (s *conversationService) Delete(ctx context.Context, id, userID string) error {
	if err := s.conversationRepo.DeleteConversation(ctx, id, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrConversationNotFound
		}
		return fmt.Errorf("deleting conversation: %w", err)
	}
	return nil
}

func (s *conversationService) History(ctx context.Context, conversationID, userID string) ([]model.Message, error) {
	if conversationID == "" {
		return nil, nil
	}
	if _, err := s.conversationRepo.GetConversation(ctx, conversationID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("checking conversation: %w", err)
	}
	messages, err := s.conversationRepo.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	return messages, nil
}

func (s *conversationService) AppendTurn(ctx context.Context, conversationID, userID, userText, assistantText, modelTag string) (*model.Conversation, error) {
	title := titleFromMessage(userText)
	conversation, err := s.conversationRepo.AppendTurn(ctx, conversationID, userID, userText, assistantText, modelTag, title)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrConversationNotFound
		}
		s.logger.Error().Err(err).Str("conversation_id", conversationID).Msg("Failed to append turn")
		return nil, fmt.Errorf("appending turn: %w", err)
	}
	return conversation, nil
}

func (s *conversationService) MessageStats(ctx context.Context) (int, map[string]int, error) {
	total, byModel, err := s.conversationRepo.MessageStats(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("loading message stats: %w", err)
	}
	return total, byModel, nil
}
