package provider

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

const streamEndSentinel = "[DONE]"

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Stream yields incremental text fragments decoded from a server-sent-event
// framed response. Frames arrive as "data: <json>" lines; the stream ends
// at the "[DONE]" sentinel. Malformed frames are dropped without aborting.
type Stream struct {
	body   io.ReadCloser
	reader *bufio.Reader
	done   bool
}

// NewStream wraps an SSE-framed response body.
func NewStream(body io.ReadCloser) *Stream {
	return &Stream{body: body, reader: bufio.NewReader(body)}
}

// Recv returns the next non-empty text fragment. io.EOF signals clean
// termination; nothing is emitted after the end sentinel.
func (s *Stream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				s.done = true
				return "", io.EOF
			}
			return "", fmt.Errorf("reading stream frame: %w", err)
		}

		line = strings.TrimRight(line, "\r\n")
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		data := strings.TrimPrefix(line, "data: ")
		if data == streamEndSentinel {
			s.done = true
			return "", io.EOF
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			// Malformed frame; keep consuming.
			continue
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		return chunk.Choices[0].Delta.Content, nil
	}
}

// Close releases the underlying connection. Safe to call at any point,
// including before the sentinel has been seen.
func (s *Stream) Close() error {
	s.done = true
	return s.body.Close()
}
