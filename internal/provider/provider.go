// Package provider integrates the external chat-completion APIs behind a
// single interface. Each variant owns its wire format, credentials, and
// error vocabulary; the rest of the backend only sees normalized messages,
// completion text, and classified errors.
package provider

import (
	"context"
	"errors"
	"sort"
)

// Message roles understood by every provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is the normalized role-tagged unit passed to every provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is implemented by every provider variant.
type Client interface {
	Name() string
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Streamer is implemented by variants that can deliver the completion as
// incremental text fragments.
type Streamer interface {
	CompleteStream(ctx context.Context, messages []Message) (*Stream, error)
}

// ErrUnknownModel is returned for model tags with no registered variant.
// Dispatch on an unknown tag never touches the network.
var ErrUnknownModel = errors.New("unknown model")

// Registry maps model tags to provider variants.
type Registry struct {
	clients map[string]Client
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]Client)}
}

func (r *Registry) Register(tag string, c Client) {
	r.clients[tag] = c
}

// Dispatch selects the variant for a model tag.
func (r *Registry) Dispatch(tag string) (Client, error) {
	c, ok := r.clients[tag]
	if !ok {
		return nil, ErrUnknownModel
	}
	return c, nil
}

// Tags returns the registered model tags in stable order.
func (r *Registry) Tags() []string {
	tags := make([]string, 0, len(r.clients))
	for tag := range r.clients {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
