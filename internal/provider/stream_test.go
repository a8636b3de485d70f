package provider

import (
	"io"
	"strings"
	"testing"
)

func streamOf(body string) *Stream {
	return NewStream(io.NopCloser(strings.NewReader(body)))
}

func drain(t *testing.T, s *Stream) []string {
	t.Helper()
	var fragments []string
	for {
		fragment, err := s.Recv()
		if err == io.EOF {
			return fragments
		}
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		fragments = append(fragments, fragment)
	}
}

func TestStreamRecv(t *testing.T) {
	s := streamOf("data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n" +
		"data: [DONE]\n\n")

	fragments := drain(t, s)
	if strings.Join(fragments, "") != "Hello" {
		t.Errorf("fragments = %v", fragments)
	}
}

func TestStreamSkipsMalformedFrames(t *testing.T) {
	s := streamOf("data: {not json}\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n\n" +
		"data: [DONE]\n\n")

	fragments := drain(t, s)
	if len(fragments) != 1 || fragments[0] != "ok" {
		t.Errorf("fragments = %v", fragments)
	}
}

func TestStreamSkipsCommentsAndEmptyDeltas(t *testing.T) {
	s := streamOf(": keepalive\n\n" +
		"event: ping\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"\"}}]}\n\n" +
		"data: {\"choices\":[]}\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"text\"}}]}\n\n" +
		"data: [DONE]\n\n")

	fragments := drain(t, s)
	if len(fragments) != 1 || fragments[0] != "text" {
		t.Errorf("fragments = %v", fragments)
	}
}

func TestStreamEndsCleanlyWithoutSentinel(t *testing.T) {
	s := streamOf("data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n\n")

	fragments := drain(t, s)
	if len(fragments) != 1 || fragments[0] != "partial" {
		t.Errorf("fragments = %v", fragments)
	}
}

func TestStreamNothingAfterSentinel(t *testing.T) {
	s := streamOf("data: [DONE]\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"late\"}}]}\n\n")

	fragments := drain(t, s)
	if len(fragments) != 0 {
		t.Errorf("fragments = %v, want none", fragments)
	}

	if _, err := s.Recv(); err != io.EOF {
		t.Errorf("Recv after EOF = %v, want io.EOF", err)
	}
}

func TestStreamCloseStopsRecv(t *testing.T) {
	s := streamOf("data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n\n")
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := s.Recv(); err != io.EOF {
		t.Errorf("Recv after Close = %v, want io.EOF", err)
	}
}
