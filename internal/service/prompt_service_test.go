package service

import (
	"context"
	"testing"

	"app/internal/model"
	"app/internal/provider"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSystemPromptCreatesDefaultOnFirstRead(t *testing.T) {
	config := newFakeConfigRepo()
	svc := NewPromptService(config, zerolog.Nop())

	prompt, err := svc.GetSystemPrompt(context.Background())
	require.NoError(t, err)
	assert.Equal(t, defaultSystemPrompt, prompt)

	// The default is now materialized in the store.
	require.Contains(t, config.values, configKeySystemPrompt)

	again, err := svc.GetSystemPrompt(context.Background())
	require.NoError(t, err)
	assert.Equal(t, prompt, again)
}

func TestSetSystemPromptRoundTrip(t *testing.T) {
	config := newFakeConfigRepo()
	svc := NewPromptService(config, zerolog.Nop())

	require.NoError(t, svc.SetSystemPrompt(context.Background(), "You are a terse assistant."))

	prompt, err := svc.GetSystemPrompt(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "You are a terse assistant.", prompt)
}

func TestBuildContextOrdersSystemHistoryThenNewMessage(t *testing.T) {
	config := newFakeConfigRepo()
	config.set(configKeySystemPrompt, "system prompt")
	svc := NewPromptService(config, zerolog.Nop())

	history := []model.Message{
		{Role: model.MessageRoleUser, Content: "A"},
		{Role: model.MessageRoleAssistant, Content: "B"},
	}

	messages, err := svc.BuildContext(context.Background(), history, "C")
	require.NoError(t, err)
	require.Len(t, messages, 4)

	assert.Equal(t, provider.Message{Role: provider.RoleSystem, Content: "system prompt"}, messages[0])
	assert.Equal(t, provider.Message{Role: provider.RoleUser, Content: "A"}, messages[1])
	assert.Equal(t, provider.Message{Role: provider.RoleAssistant, Content: "B"}, messages[2])
	assert.Equal(t, provider.Message{Role: provider.RoleUser, Content: "C"}, messages[3])
}

func TestBuildContextWithoutHistory(t *testing.T) {
	config := newFakeConfigRepo()
	config.set(configKeySystemPrompt, "system prompt")
	svc := NewPromptService(config, zerolog.Nop())

	messages, err := svc.BuildContext(context.Background(), nil, "hello")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, provider.RoleSystem, messages[0].Role)
	assert.Equal(t, "hello", messages[1].Content)
}
