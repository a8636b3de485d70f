package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFlattenPrompt(t *testing.T) {
	got := flattenPrompt([]Message{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
	})
	want := "system: be brief\nuser: hi\nassistant: hello"
	if got != want {
		t.Errorf("flattenPrompt = %q, want %q", got, want)
	}
}

func TestGeminiComplete(t *testing.T) {
	var gotPath string
	var gotReq geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Hello, Melhoi."}]}}]}`))
	}))
	defer srv.Close()

	client, err := NewGeminiClient("test-key", 5*time.Second)
	if err != nil {
		t.Fatalf("NewGeminiClient: %v", err)
	}
	client.baseURL = srv.URL

	reply, err := client.Complete(context.Background(), []Message{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleUser, Content: "hi"},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if reply != "Hello, Melhoi." {
		t.Errorf("reply = %q", reply)
	}
	if !strings.Contains(gotPath, "/models/gemini-pro:generateContent") {
		t.Errorf("path = %q", gotPath)
	}
	if !strings.Contains(gotPath, "key=test-key") {
		t.Errorf("expected key in query, got %q", gotPath)
	}

	if len(gotReq.Contents) != 1 || len(gotReq.Contents[0].Parts) != 1 {
		t.Fatalf("unexpected request shape: %+v", gotReq)
	}
	prompt := gotReq.Contents[0].Parts[0].Text
	if !strings.Contains(prompt, "system: be brief") || !strings.Contains(prompt, "user: hi") {
		t.Errorf("flattened prompt = %q", prompt)
	}
}

func TestGeminiCompleteEmptyCandidatesIsProtocolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	client, err := NewGeminiClient("test-key", 5*time.Second)
	if err != nil {
		t.Fatalf("NewGeminiClient: %v", err)
	}
	client.baseURL = srv.URL

	_, err = client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	pe, ok := AsError(err)
	if !ok {
		t.Fatalf("expected *Error, got %v", err)
	}
	if pe.Kind != KindProtocol {
		t.Errorf("kind = %s, want %s", pe.Kind, KindProtocol)
	}
}
