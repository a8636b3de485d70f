package dto

// ErrorResponse is the uniform error body. Code is a stable machine tag;
// Error is the human message. AssistantMessage is set only when a reply
// completed but could not be saved.
type ErrorResponse struct {
	Error            string `json:"error"`
	Code             string `json:"code"`
	AssistantMessage string `json:"assistantMessage,omitempty"`
}
