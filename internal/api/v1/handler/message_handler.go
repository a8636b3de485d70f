package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type MessageHandler struct {
	chatService service.ChatService
	validate    *validator.Validate
	logger      zerolog.Logger
}

func NewMessageHandler(chatService service.ChatService, v *validator.Validate, logger zerolog.Logger) *MessageHandler {
	return &MessageHandler{
		chatService: chatService,
		validate:    v,
		logger:      logger.With().Str("handler", "MessageHandler").Logger(),
	}
}

func (h *MessageHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/messages", authMw(http.HandlerFunc(h.sendMessage)))
	mux.Handle("/messages/stream", authMw(http.HandlerFunc(h.streamMessage)))
}

// decodeSendRequest pulls and validates the shared request body of both
// message endpoints.
func (h *MessageHandler) decodeSendRequest(w http.ResponseWriter, r *http.Request) (*dto.SendMessageRequest, bool) {
	var req dto.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload", codeValidation)
		return nil, false
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed: "+err.Error(), codeValidation)
		return nil, false
	}
	return &req, true
}

func (h *MessageHandler) sendMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", codeValidation)
		return
	}
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing authentication", codeAuth)
		return
	}

	req, ok := h.decodeSendRequest(w, r)
	if !ok {
		return
	}

	result, err := h.chatService.Send(r.Context(), user, req.ConversationID, req.Message, req.Model)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SendMessageResponse{
		Message:        result.Message,
		ConversationID: result.ConversationID,
	})
}

func (h *MessageHandler) streamMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", codeValidation)
		return
	}
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing authentication", codeAuth)
		return
	}

	req, ok := h.decodeSendRequest(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming not supported", codeProvider)
		return
	}

	// Headers go out with the first fragment, so pre-stream failures
	// (quota, unknown model) still produce a normal JSON error.
	started := false
	startSSE := func() {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		started = true
	}

	onFragment := func(fragment string) error {
		if !started {
			startSSE()
		}
		frame, err := json.Marshal(dto.StreamFragment{Content: fragment})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", frame); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	result, err := h.chatService.SendStream(r.Context(), user, req.ConversationID, req.Message, req.Model, onFragment)
	if err != nil {
		if !started {
			writeServiceError(w, h.logger, err)
			return
		}
		// Mid-stream failure; the status line is gone, signal in-band.
		h.logger.Error().Err(err).Msg("Stream aborted")
		frame, _ := json.Marshal(dto.ErrorResponse{Error: "Stream aborted", Code: codeProvider})
		fmt.Fprintf(w, "data: %s\n\n", frame)
		flusher.Flush()
		return
	}

	if !started {
		startSSE()
	}
	frame, _ := json.Marshal(dto.StreamDone{Done: true, ConversationID: result.ConversationID})
	fmt.Fprintf(w, "data: %s\n\n", frame)
	flusher.Flush()
}
