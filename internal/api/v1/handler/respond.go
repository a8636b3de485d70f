package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/provider"
	"app/internal/service"

	"github.com/rs/zerolog"
)

// Stable machine-readable error codes.
const (
	codeAuth        = "auth_error"
	codeValidation  = "validation_error"
	codeQuota       = "quota_exceeded"
	codeProvider    = "provider_error"
	codeNotFound    = "not_found"
	codePersistence = "persistence_error"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, dto.ErrorResponse{Error: message, Code: code})
}

// writeServiceError maps pipeline and service failures to the uniform
// error body.
func writeServiceError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	var quotaErr *service.QuotaExceededError
	var turnErr *service.TurnNotSavedError
	var provErr *provider.Error

	switch {
	case errors.Is(err, provider.ErrUnknownModel):
		writeError(w, http.StatusBadRequest, "Unknown model", codeValidation)
	case errors.As(err, &quotaErr):
		writeError(w, http.StatusTooManyRequests, quotaErr.Reason, codeQuota)
	case errors.As(err, &turnErr):
		// The reply completed; hand it back even though it was not saved.
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{
			Error:            "Reply could not be saved",
			Code:             codePersistence,
			AssistantMessage: turnErr.AssistantText,
		})
	case errors.Is(err, service.ErrConversationNotFound):
		writeError(w, http.StatusNotFound, "Conversation not found", codeNotFound)
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "User not found", codeNotFound)
	case errors.As(err, &provErr):
		writeError(w, http.StatusInternalServerError, provErr.Message, codeProvider)
	default:
		logger.Error().Err(err).Msg("Unhandled service error")
		writeError(w, http.StatusInternalServerError, "Internal server error", codePersistence)
	}
}
