package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"app/internal/model"
	"app/internal/provider"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQuotaService struct {
	decision Decision
	err      error
	calls    int
}

func (f *fakeQuotaService) CheckAndAdmit(context.Context, string, string) (Decision, error) {
	f.calls++
	return f.decision, f.err
}

func (f *fakeQuotaService) DailyLimits(context.Context) (map[string]int, error) { return nil, nil }
func (f *fakeQuotaService) SetDailyLimits(context.Context, map[string]int) error {
	return nil
}

type fakePromptService struct {
	prompt string
}

func (f *fakePromptService) GetSystemPrompt(context.Context) (string, error) { return f.prompt, nil }
func (f *fakePromptService) SetSystemPrompt(context.Context, string) error   { return nil }

func (f *fakePromptService) BuildContext(_ context.Context, history []model.Message, newMessage string) ([]provider.Message, error) {
	messages := []provider.Message{{Role: provider.RoleSystem, Content: f.prompt}}
	for _, m := range history {
		messages = append(messages, provider.Message{Role: m.Role, Content: m.Content})
	}
	return append(messages, provider.Message{Role: provider.RoleUser, Content: newMessage}), nil
}

type fakeConversationService struct {
	history       []model.Message
	historyErr    error
	appendErr     error
	appendCalls   int
	appendedUser  string
	appendedReply string
}

func (f *fakeConversationService) List(context.Context, string) ([]model.Conversation, error) {
	return nil, nil
}
func (f *fakeConversationService) Get(context.Context, string, string) (*model.Conversation, error) {
	return nil, nil
}
func (f *fakeConversationService) Create(context.Context, string, string, string) (*model.Conversation, error) {
	return nil, nil
}
func (f *fakeConversationService) Rename(context.Context, string, string, string) (*model.Conversation, error) {
	return nil, nil
}
func (f *fakeConversationService) Delete(context.Context, string, string) error { return nil }

func (f *fakeConversationService) History(context.Context, string, string) ([]model.Message, error) {
	return f.history, f.historyErr
}

func (f *fakeConversationService) AppendTurn(_ context.Context, conversationID, _, userText, assistantText, _ string) (*model.Conversation, error) {
	f.appendCalls++
	if f.appendErr != nil {
		return nil, f.appendErr
	}
	f.appendedUser = userText
	f.appendedReply = assistantText
	if conversationID == "" {
		conversationID = "conv-new"
	}
	return &model.Conversation{ID: conversationID}, nil
}

func (f *fakeConversationService) MessageStats(context.Context) (int, map[string]int, error) {
	return 0, nil, nil
}

type fakeClient struct {
	name     string
	reply    string
	err      error
	calls    int
	messages []provider.Message
}

func (f *fakeClient) Name() string { return f.name }

func (f *fakeClient) Complete(_ context.Context, messages []provider.Message) (string, error) {
	f.calls++
	f.messages = messages
	return f.reply, f.err
}

type fakeStreamClient struct {
	fakeClient
	sseBody string
}

func (f *fakeStreamClient) CompleteStream(_ context.Context, messages []provider.Message) (*provider.Stream, error) {
	f.calls++
	f.messages = messages
	return provider.NewStream(io.NopCloser(strings.NewReader(f.sseBody))), nil
}

type fakePublisher struct {
	topics   []string
	payloads [][]byte
}

func (f *fakePublisher) Publish(_ context.Context, topic string, payload []byte) (string, error) {
	f.topics = append(f.topics, topic)
	f.payloads = append(f.payloads, payload)
	return "msg-1", nil
}

type chatFixture struct {
	quota     *fakeQuotaService
	convs     *fakeConversationService
	client    *fakeClient
	publisher *fakePublisher
	svc       ChatService
}

func newChatFixture(client provider.Client) *chatFixture {
	registry := provider.NewRegistry()
	if client != nil {
		registry.Register(model.ModelChatGPT, client)
	}
	f := &chatFixture{
		quota:     &fakeQuotaService{decision: Decision{Allowed: true}},
		convs:     &fakeConversationService{},
		publisher: &fakePublisher{},
	}
	if c, ok := client.(*fakeClient); ok {
		f.client = c
	}
	f.svc = NewChatService(
		f.quota,
		&fakePromptService{prompt: "system prompt"},
		f.convs,
		registry,
		f.publisher,
		"usage-events",
		zerolog.Nop(),
	)
	return f
}

func testUser() *model.User {
	return &model.User{ID: "u1", Email: "u1@example.com", Role: model.RoleUser}
}

func TestSendUnknownModelHasNoSideEffects(t *testing.T) {
	f := newChatFixture(nil)

	_, err := f.svc.Send(context.Background(), testUser(), "", "hi", "mistral")
	require.ErrorIs(t, err, provider.ErrUnknownModel)

	assert.Equal(t, 0, f.quota.calls)
	assert.Equal(t, 0, f.convs.appendCalls)
}

func TestSendQuotaDeniedSkipsProvider(t *testing.T) {
	client := &fakeClient{name: "openai", reply: "hello"}
	f := newChatFixture(client)
	f.quota.decision = Decision{Allowed: false, Reason: "Daily message limit reached for this model."}

	_, err := f.svc.Send(context.Background(), testUser(), "", "hi", model.ModelChatGPT)

	var quotaErr *QuotaExceededError
	require.ErrorAs(t, err, &quotaErr)
	assert.Equal(t, "Daily message limit reached for this model.", quotaErr.Reason)
	assert.Equal(t, 0, client.calls)
	assert.Equal(t, 0, f.convs.appendCalls)
}

func TestSendAppendsTurnAndPublishes(t *testing.T) {
	client := &fakeClient{name: "openai", reply: "Hi there!"}
	f := newChatFixture(client)
	f.convs.history = []model.Message{
		{Role: model.MessageRoleUser, Content: "earlier question"},
		{Role: model.MessageRoleAssistant, Content: "earlier answer"},
	}

	result, err := f.svc.Send(context.Background(), testUser(), "conv-1", "hi", model.ModelChatGPT)
	require.NoError(t, err)
	assert.Equal(t, "Hi there!", result.Message)
	assert.Equal(t, "conv-1", result.ConversationID)

	// Provider saw [system, history..., new user message].
	require.Len(t, client.messages, 4)
	assert.Equal(t, provider.RoleSystem, client.messages[0].Role)
	assert.Equal(t, "hi", client.messages[3].Content)

	assert.Equal(t, "hi", f.convs.appendedUser)
	assert.Equal(t, "Hi there!", f.convs.appendedReply)

	require.Len(t, f.publisher.topics, 1)
	assert.Equal(t, "usage-events", f.publisher.topics[0])
}

func TestSendProviderFailureIsNotPersisted(t *testing.T) {
	client := &fakeClient{name: "openai", err: errors.New("upstream down")}
	f := newChatFixture(client)

	_, err := f.svc.Send(context.Background(), testUser(), "", "hi", model.ModelChatGPT)
	require.Error(t, err)

	// The quota unit was consumed before the failure and stays consumed.
	assert.Equal(t, 1, f.quota.calls)
	assert.Equal(t, 0, f.convs.appendCalls)
	assert.Empty(t, f.publisher.topics)
}

func TestSendSurfacesReplyWhenAppendFails(t *testing.T) {
	client := &fakeClient{name: "openai", reply: "the lost reply"}
	f := newChatFixture(client)
	f.convs.appendErr = errors.New("db down")

	_, err := f.svc.Send(context.Background(), testUser(), "", "hi", model.ModelChatGPT)

	var turnErr *TurnNotSavedError
	require.ErrorAs(t, err, &turnErr)
	assert.Equal(t, "the lost reply", turnErr.AssistantText)
	assert.Empty(t, f.publisher.topics)
}

func TestSendStreamEmitsFragmentsAndAppendsFullReply(t *testing.T) {
	client := &fakeStreamClient{
		fakeClient: fakeClient{name: "groq"},
		sseBody: "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n" +
			"data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n" +
			"data: [DONE]\n\n",
	}
	f := newChatFixture(client)

	var fragments []string
	result, err := f.svc.SendStream(context.Background(), testUser(), "", "hi", model.ModelChatGPT, func(fragment string) error {
		fragments = append(fragments, fragment)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Hel", "lo"}, fragments)
	assert.Equal(t, "Hello", result.Message)
	assert.Equal(t, "conv-new", result.ConversationID)
	assert.Equal(t, "Hello", f.convs.appendedReply)
}

func TestSendStreamFallsBackWithoutStreamingSupport(t *testing.T) {
	client := &fakeClient{name: "gemini", reply: "one-shot reply"}
	f := newChatFixture(client)

	var fragments []string
	result, err := f.svc.SendStream(context.Background(), testUser(), "", "hi", model.ModelChatGPT, func(fragment string) error {
		fragments = append(fragments, fragment)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"one-shot reply"}, fragments)
	assert.Equal(t, "one-shot reply", result.Message)
}

func TestSendStreamAbortsWhenCallerFails(t *testing.T) {
	client := &fakeStreamClient{
		fakeClient: fakeClient{name: "groq"},
		sseBody: "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n" +
			"data: [DONE]\n\n",
	}
	f := newChatFixture(client)

	_, err := f.svc.SendStream(context.Background(), testUser(), "", "hi", model.ModelChatGPT, func(string) error {
		return errors.New("client disconnected")
	})
	require.Error(t, err)
	assert.Equal(t, 0, f.convs.appendCalls)
}
