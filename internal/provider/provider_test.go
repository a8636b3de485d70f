package provider

import (
	"context"
	"errors"
	"testing"
)

type stubClient struct{ name string }

func (s *stubClient) Name() string { return s.name }
func (s *stubClient) Complete(context.Context, []Message) (string, error) {
	return "", nil
}

func TestRegistryDispatch(t *testing.T) {
	r := NewRegistry()
	r.Register("chatgpt", &stubClient{name: "openai"})

	c, err := r.Dispatch("chatgpt")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if c.Name() != "openai" {
		t.Errorf("client = %q", c.Name())
	}
}

func TestRegistryDispatchUnknownTag(t *testing.T) {
	r := NewRegistry()
	r.Register("chatgpt", &stubClient{name: "openai"})

	if _, err := r.Dispatch("mistral"); !errors.Is(err, ErrUnknownModel) {
		t.Errorf("err = %v, want ErrUnknownModel", err)
	}
}

func TestRegistryTagsSorted(t *testing.T) {
	r := NewRegistry()
	r.Register("llama", &stubClient{name: "groq"})
	r.Register("chatgpt", &stubClient{name: "openai"})
	r.Register("gemini", &stubClient{name: "gemini"})

	tags := r.Tags()
	want := []string{"chatgpt", "gemini", "llama"}
	if len(tags) != len(want) {
		t.Fatalf("tags = %v", tags)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Errorf("tags = %v, want %v", tags, want)
		}
	}
}
