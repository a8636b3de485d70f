package dto

// SendMessageRequest is the body of POST /v1/messages and
// POST /v1/messages/stream.
type SendMessageRequest struct {
	Message        string `json:"message" validate:"required"`
	ConversationID string `json:"conversationId"`
	Model          string `json:"model" validate:"required"`
}

// SendMessageResponse returns the full assistant reply with the id of the
// conversation the turn landed in.
type SendMessageResponse struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
}

// StreamFragment is one SSE data frame of a streamed reply.
type StreamFragment struct {
	Content string `json:"content"`
}

// StreamDone is the terminal SSE frame of a streamed reply.
type StreamDone struct {
	Done           bool   `json:"done"`
	ConversationID string `json:"conversationId"`
}
