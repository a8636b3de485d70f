package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"app/internal/model"
	"app/internal/provider"
	"app/internal/pubsub"

	"github.com/rs/zerolog"
)

// QuotaExceededError carries the user-facing denial reason. A denied quota
// check is expected control flow, not a fault.
type QuotaExceededError struct {
	Reason string
}

func (e *QuotaExceededError) Error() string { return e.Reason }

// TurnNotSavedError reports a completed assistant reply that could not be
// persisted. The text is kept so the caller still receives the completion
// it paid a quota unit for.
type TurnNotSavedError struct {
	AssistantText string
	Err           error
}

func (e *TurnNotSavedError) Error() string {
	return fmt.Sprintf("assistant reply not saved: %v", e.Err)
}

func (e *TurnNotSavedError) Unwrap() error { return e.Err }

// SendResult is the successful outcome of one message exchange.
type SendResult struct {
	Message        string
	ConversationID string
}

// ChatService runs the message pipeline: quota check, context assembly,
// provider dispatch, then durable turn append. Each stage failure is
// terminal for the request. A quota unit consumed before a provider
// failure is deliberately not refunded.
type ChatService interface {
	Send(ctx context.Context, user *model.User, conversationID, message, modelTag string) (*SendResult, error)
	// SendStream behaves like Send but delivers the assistant text as
	// incremental fragments through onFragment before the turn is
	// appended. An onFragment error aborts consumption of the upstream
	// stream.
	SendStream(ctx context.Context, user *model.User, conversationID, message, modelTag string, onFragment func(fragment string) error) (*SendResult, error)
}

type chatService struct {
	quota         QuotaService
	prompts       PromptService
	conversations ConversationService
	providers     *provider.Registry
	events        pubsub.Publisher
	eventTopic    string
	logger        zerolog.Logger
}

func NewChatService(
	quota QuotaService,
	prompts PromptService,
	conversations ConversationService,
	providers *provider.Registry,
	events pubsub.Publisher,
	eventTopic string,
	logger zerolog.Logger,
) ChatService {
	return &chatService{
		quota:         quota,
		prompts:       prompts,
		conversations: conversations,
		providers:     providers,
		events:        events,
		eventTopic:    eventTopic,
		logger:        logger.With().Str("service", "ChatService").Logger(),
	}
}

// prepare runs the stages shared by Send and SendStream: dispatch lookup,
// quota admission, history retrieval, and context assembly.
func (s *chatService) prepare(ctx context.Context, user *model.User, conversationID, message, modelTag string) (provider.Client, []provider.Message, error) {
	client, err := s.providers.Dispatch(modelTag)
	if err != nil {
		return nil, nil, err
	}

	decision, err := s.quota.CheckAndAdmit(ctx, user.ID, modelTag)
	if err != nil {
		return nil, nil, err
	}
	if !decision.Allowed {
		return nil, nil, &QuotaExceededError{Reason: decision.Reason}
	}

	history, err := s.conversations.History(ctx, conversationID, user.ID)
	if err != nil {
		return nil, nil, err
	}

	messages, err := s.prompts.BuildContext(ctx, history, message)
	if err != nil {
		return nil, nil, err
	}
	return client, messages, nil
}

func (s *chatService) finishTurn(ctx context.Context, user *model.User, conversationID, message, reply, modelTag string) (*SendResult, error) {
	conversation, err := s.conversations.AppendTurn(ctx, conversationID, user.ID, message, reply, modelTag)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("Completed reply could not be persisted")
		return nil, &TurnNotSavedError{AssistantText: reply, Err: err}
	}

	s.publishUsageEvent(ctx, user.ID, conversation.ID, modelTag)

	return &SendResult{Message: reply, ConversationID: conversation.ID}, nil
}

func (s *chatService) Send(ctx context.Context, user *model.User, conversationID, message, modelTag string) (*SendResult, error) {
	client, messages, err := s.prepare(ctx, user, conversationID, message, modelTag)
	if err != nil {
		return nil, err
	}

	reply, err := client.Complete(ctx, messages)
	if err != nil {
		s.logger.Error().Err(err).Str("provider", client.Name()).Str("user_id", user.ID).Msg("Provider call failed")
		return nil, err
	}

	return s.finishTurn(ctx, user, conversationID, message, reply, modelTag)
}

func (s *chatService) SendStream(ctx context.Context, user *model.User, conversationID, message, modelTag string, onFragment func(string) error) (*SendResult, error) {
	client, messages, err := s.prepare(ctx, user, conversationID, message, modelTag)
	if err != nil {
		return nil, err
	}

	streamer, ok := client.(provider.Streamer)
	if !ok {
		// Variant has no streaming mode; complete in one shot and emit
		// the reply as a single fragment.
		reply, err := client.Complete(ctx, messages)
		if err != nil {
			s.logger.Error().Err(err).Str("provider", client.Name()).Str("user_id", user.ID).Msg("Provider call failed")
			return nil, err
		}
		if err := onFragment(reply); err != nil {
			return nil, err
		}
		return s.finishTurn(ctx, user, conversationID, message, reply, modelTag)
	}

	stream, err := streamer.CompleteStream(ctx, messages)
	if err != nil {
		s.logger.Error().Err(err).Str("provider", client.Name()).Str("user_id", user.ID).Msg("Provider stream failed to open")
		return nil, err
	}
	defer func() {
		if err := stream.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to close provider stream")
		}
	}()

	var reply strings.Builder
	for {
		fragment, err := stream.Recv()
		if err != nil {
			if err == io.EOF {
				break
			}
			s.logger.Error().Err(err).Str("provider", client.Name()).Msg("Provider stream failed mid-flight")
			return nil, err
		}
		if err := onFragment(fragment); err != nil {
			// Caller went away; stop consuming upstream.
			return nil, err
		}
		reply.WriteString(fragment)
	}

	return s.finishTurn(ctx, user, conversationID, message, reply.String(), modelTag)
}

type usageEvent struct {
	UserID         string    `json:"user_id"`
	ConversationID string    `json:"conversation_id"`
	Model          string    `json:"model"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// publishUsageEvent emits a fire-and-forget analytics event. Publishing
// failures are logged, never surfaced to the caller.
func (s *chatService) publishUsageEvent(ctx context.Context, userID, conversationID, modelTag string) {
	if s.events == nil || s.eventTopic == "" {
		return
	}
	payload, err := json.Marshal(usageEvent{
		UserID:         userID,
		ConversationID: conversationID,
		Model:          modelTag,
		OccurredAt:     time.Now().UTC(),
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to encode usage event")
		return
	}
	if _, err := s.events.Publish(ctx, s.eventTopic, payload); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn().Err(err).Str("topic", s.eventTopic).Msg("Failed to publish usage event")
	}
}
