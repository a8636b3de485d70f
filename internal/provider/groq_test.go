package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newGroqForTest(t *testing.T, handler http.HandlerFunc) *GroqClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewGroqClient("test-key", 5*time.Second)
	if err != nil {
		t.Fatalf("NewGroqClient: %v", err)
	}
	client.baseURL = srv.URL
	return client
}

func TestGroqCompleteStream(t *testing.T) {
	var gotReq chatCompletionRequest
	client := newGroqForTest(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n"))
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n"))
		w.Write([]byte("data: [DONE]\n\n"))
	})

	stream, err := client.CompleteStream(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("CompleteStream: %v", err)
	}
	defer stream.Close()

	if !gotReq.Stream {
		t.Error("expected stream flag in request")
	}
	if gotReq.Model != "llama3-70b-8192" {
		t.Errorf("model = %q, want llama3-70b-8192", gotReq.Model)
	}

	var fragments []string
	for {
		fragment, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		fragments = append(fragments, fragment)
	}
	if len(fragments) != 2 || fragments[0] != "Hel" || fragments[1] != "lo" {
		t.Errorf("fragments = %v", fragments)
	}
}

func TestGroqCompleteStreamClassifiesStatus(t *testing.T) {
	client := newGroqForTest(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"slow down"}`))
	})

	_, err := client.CompleteStream(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	pe, ok := AsError(err)
	if !ok {
		t.Fatalf("expected *Error, got %v", err)
	}
	if pe.Kind != KindRateLimited {
		t.Errorf("kind = %s, want %s", pe.Kind, KindRateLimited)
	}
}

func TestGroqComplete(t *testing.T) {
	client := newGroqForTest(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"non-streamed"}}]}`))
	})

	reply, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if reply != "non-streamed" {
		t.Errorf("reply = %q", reply)
	}
}
