package dto

import (
	"time"

	"app/internal/model"
)

type CreateConversationRequest struct {
	Title string `json:"title"`
	Model string `json:"model"`
}

type RenameConversationRequest struct {
	Title string `json:"title" validate:"required"`
}

type MessageResponse struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type ConversationResponse struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Model     string            `json:"model"`
	Messages  []MessageResponse `json:"messages,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

func NewMessageResponse(m model.Message) MessageResponse {
	return MessageResponse{
		ID:        m.ID,
		Role:      m.Role,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

func NewConversationResponse(c *model.Conversation) ConversationResponse {
	resp := ConversationResponse{
		ID:        c.ID,
		Title:     c.Title,
		Model:     c.Model,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	for _, m := range c.Messages {
		resp.Messages = append(resp.Messages, NewMessageResponse(m))
	}
	return resp
}

func NewConversationListResponse(conversations []model.Conversation) []ConversationResponse {
	out := make([]ConversationResponse, 0, len(conversations))
	for i := range conversations {
		out = append(out, NewConversationResponse(&conversations[i]))
	}
	return out
}
