package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type ConversationHandler struct {
	conversationService service.ConversationService
	validate            *validator.Validate
	logger              zerolog.Logger
}

func NewConversationHandler(conversationService service.ConversationService, v *validator.Validate, logger zerolog.Logger) *ConversationHandler {
	return &ConversationHandler{
		conversationService: conversationService,
		validate:            v,
		logger:              logger.With().Str("handler", "ConversationHandler").Logger(),
	}
}

func (h *ConversationHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/conversations", authMw(http.HandlerFunc(h.handleCollection)))
	mux.Handle("/conversations/", authMw(http.HandlerFunc(h.handleItem)))
}

func (h *ConversationHandler) handleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listConversations(w, r)
	case http.MethodPost:
		h.createConversation(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", codeValidation)
	}
}

func (h *ConversationHandler) handleItem(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/conversations/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		h.getConversation(w, r, id)
	case http.MethodPut, http.MethodPatch:
		h.renameConversation(w, r, id)
	case http.MethodDelete:
		h.deleteConversation(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", codeValidation)
	}
}

func (h *ConversationHandler) listConversations(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing authentication", codeAuth)
		return
	}

	conversations, err := h.conversationService.List(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewConversationListResponse(conversations))
}

func (h *ConversationHandler) createConversation(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing authentication", codeAuth)
		return
	}

	var req dto.CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload", codeValidation)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed: "+err.Error(), codeValidation)
		return
	}
	if req.Model == "" {
		req.Model = model.ModelChatGPT
	}
	if !model.IsKnownModel(req.Model) {
		writeError(w, http.StatusBadRequest, "Unknown model", codeValidation)
		return
	}

	conversation, err := h.conversationService.Create(r.Context(), user.ID, req.Title, req.Model)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.NewConversationResponse(conversation))
}

func (h *ConversationHandler) getConversation(w http.ResponseWriter, r *http.Request, id string) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing authentication", codeAuth)
		return
	}

	conversation, err := h.conversationService.Get(r.Context(), id, user.ID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewConversationResponse(conversation))
}

func (h *ConversationHandler) renameConversation(w http.ResponseWriter, r *http.Request, id string) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing authentication", codeAuth)
		return
	}

	var req dto.RenameConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload", codeValidation)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed: "+err.Error(), codeValidation)
		return
	}

	conversation, err := h.conversationService.Rename(r.Context(), id, user.ID, req.Title)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewConversationResponse(conversation))
}

func (h *ConversationHandler) deleteConversation(w http.ResponseWriter, r *http.Request, id string) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing authentication", codeAuth)
		return
	}

	if err := h.conversationService.Delete(r.Context(), id, user.ID); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
