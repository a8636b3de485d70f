package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"app/internal/api/v1/dto"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type AdminHandler struct {
	userService         service.UserService
	conversationService service.ConversationService
	quotaService        service.QuotaService
	promptService       service.PromptService
	validate            *validator.Validate
	logger              zerolog.Logger
}

func NewAdminHandler(
	userService service.UserService,
	conversationService service.ConversationService,
	quotaService service.QuotaService,
	promptService service.PromptService,
	v *validator.Validate,
	logger zerolog.Logger,
) *AdminHandler {
	return &AdminHandler{
		userService:         userService,
		conversationService: conversationService,
		quotaService:        quotaService,
		promptService:       promptService,
		validate:            v,
		logger:              logger.With().Str("handler", "AdminHandler").Logger(),
	}
}

// RegisterRoutes mounts admin routes behind both auth and the admin gate.
func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux, authMw, adminMw func(http.Handler) http.Handler) {
	guard := func(fn http.HandlerFunc) http.Handler { return authMw(adminMw(fn)) }
	mux.Handle("/admin/stats", guard(h.getStats))
	mux.Handle("/admin/users", guard(h.listUsers))
	mux.Handle("/admin/users/", guard(h.deleteUser))
	mux.Handle("/admin/limits", guard(h.handleLimits))
	mux.Handle("/admin/system-prompt", guard(h.handleSystemPrompt))
}

func (h *AdminHandler) getStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", codeValidation)
		return
	}

	totalUsers, err := h.userService.CountUsers(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	totalMessages, byModel, err := h.conversationService.MessageStats(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.StatsResponse{
		TotalUsers:      totalUsers,
		TotalMessages:   totalMessages,
		MessagesByModel: byModel,
	})
}

func (h *AdminHandler) listUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", codeValidation)
		return
	}

	users, err := h.userService.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewUserListResponse(users))
}

func (h *AdminHandler) deleteUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", codeValidation)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/admin/users/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}

	if err := h.userService.DeleteAccount(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	h.logger.Info().Str("user_id", id).Msg("User removed by admin")
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) handleLimits(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		limits, err := h.quotaService.DailyLimits(r.Context())
		if err != nil {
			writeServiceError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, dto.DailyLimitsResponse{DailyLimits: limits})

	case http.MethodPut:
		var req dto.UpdateDailyLimitsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON payload", codeValidation)
			return
		}
		if err := h.validate.Struct(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Validation failed: "+err.Error(), codeValidation)
			return
		}

		if err := h.quotaService.SetDailyLimits(r.Context(), req.DailyLimits); err != nil {
			if errors.Is(err, service.ErrInvalidLimits) {
				writeError(w, http.StatusBadRequest, err.Error(), codeValidation)
				return
			}
			writeServiceError(w, h.logger, err)
			return
		}

		limits, err := h.quotaService.DailyLimits(r.Context())
		if err != nil {
			writeServiceError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, dto.DailyLimitsResponse{DailyLimits: limits})

	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", codeValidation)
	}
}

func (h *AdminHandler) handleSystemPrompt(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		prompt, err := h.promptService.GetSystemPrompt(r.Context())
		if err != nil {
			writeServiceError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, dto.SystemPromptResponse{Prompt: prompt})

	case http.MethodPut:
		var req dto.UpdateSystemPromptRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON payload", codeValidation)
			return
		}
		if err := h.validate.Struct(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Validation failed: "+err.Error(), codeValidation)
			return
		}

		if err := h.promptService.SetSystemPrompt(r.Context(), req.Prompt); err != nil {
			writeServiceError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, dto.SystemPromptResponse{Prompt: req.Prompt})

	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", codeValidation)
	}
}
