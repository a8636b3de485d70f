package handler

import (
	"encoding/json"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type UserHandler struct {
	userService service.UserService
	validate    *validator.Validate
	logger      zerolog.Logger
}

func NewUserHandler(userService service.UserService, v *validator.Validate, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		validate:    v,
		logger:      logger.With().Str("handler", "UserHandler").Logger(),
	}
}

func (h *UserHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/auth/me", authMw(http.HandlerFunc(h.getMe)))
	mux.Handle("/users/profile", authMw(http.HandlerFunc(h.handleProfile)))
	mux.Handle("/users/account", authMw(http.HandlerFunc(h.deleteAccount)))
}

// getMe returns the caller's record, provisioned by the auth middleware on
// first sight.
func (h *UserHandler) getMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", codeValidation)
		return
	}
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing authentication", codeAuth)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewUserResponse(user))
}

func (h *UserHandler) handleProfile(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.getProfile(w, r)
	case http.MethodPut:
		h.updateProfile(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", codeValidation)
	}
}

func (h *UserHandler) getProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing authentication", codeAuth)
		return
	}

	fresh, err := h.userService.Get(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewUserResponse(fresh))
}

func (h *UserHandler) updateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing authentication", codeAuth)
		return
	}

	var req dto.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload", codeValidation)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed: "+err.Error(), codeValidation)
		return
	}

	updated, err := h.userService.UpdateUsername(r.Context(), user.ID, req.Username)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewUserResponse(updated))
}

func (h *UserHandler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", codeValidation)
		return
	}
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing authentication", codeAuth)
		return
	}

	if err := h.userService.DeleteAccount(r.Context(), user.ID); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	h.logger.Info().Str("user_id", user.ID).Msg("Account deleted")
	w.WriteHeader(http.StatusNoContent)
}
