package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	groqBaseURL = "https://api.groq.com/openai/v1"
	groqModel   = "llama3-70b-8192"
)

// GroqClient serves Llama models through the Groq API, which speaks the
// OpenAI chat-completion wire format and supports SSE streaming.
type GroqClient struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	// Streaming responses have no client-side timeout; context
	// cancellation governs their lifetime.
	streamClient *http.Client
}

func NewGroqClient(apiKey string, timeout time.Duration) (*GroqClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("groq: API key is required")
	}
	return &GroqClient{
		apiKey:       apiKey,
		baseURL:      groqBaseURL,
		model:        groqModel,
		client:       &http.Client{Timeout: timeout},
		streamClient: &http.Client{},
	}, nil
}

func (c *GroqClient) Name() string { return "groq" }

func (c *GroqClient) post(ctx context.Context, client *http.Client, reqBody chatCompletionRequest) (*http.Response, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling groq request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating groq request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, classifyTransport(c.Name(), err)
	}
	return resp, nil
}

func (c *GroqClient) Complete(ctx context.Context, messages []Message) (string, error) {
	resp, err := c.post(ctx, c.client, chatCompletionRequest{Model: c.model, Messages: messages})
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading groq response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(c.Name(), resp.StatusCode, raw)
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(raw, &completion); err != nil {
		return "", protocolError(c.Name(), raw)
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return "", protocolError(c.Name(), raw)
	}
	return completion.Choices[0].Message.Content, nil
}

// CompleteStream opens a streaming completion. The caller owns the returned
// Stream and must Close it; closing early releases the connection.
func (c *GroqClient) CompleteStream(ctx context.Context, messages []Message) (*Stream, error) {
	resp, err := c.post(ctx, c.streamClient, chatCompletionRequest{Model: c.model, Messages: messages, Stream: true})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		raw, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			raw = nil
		}
		return nil, classifyStatus(c.Name(), resp.StatusCode, raw)
	}
	return NewStream(resp.Body), nil
}
