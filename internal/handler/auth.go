package handler

import (
	"errors"
	"net/http"

	"github.com/taskmanager/taskmanager-go/internal/middleware"
	"github.com/taskmanager/taskmanager-go/internal/model"
	"github.com/taskmanager/taskmanager-go/internal/service"
)

// AuthHandler handles HTTP requests for sign-up, login and token refresh.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// HandleSignUp handles POST /users requests.
func (h *AuthHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var req model.CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.service.SignUp(r.Context(), req)
	if err != nil {
		switch {
		case isValidationError(err), errors.Is(err, service.ErrEmailTaken):
			writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
		default:
			internalError(w, r, err)
		}
		return
	}

	writeSession(w, res)
}

// HandleLogin handles POST /users/login requests.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.service.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeJSON(w, http.StatusUnauthorized, errorResponse(err.Error()))
			return
		}
		internalError(w, r, err)
		return
	}

	writeSession(w, res)
}

// HandleAccessToken handles GET /users/me/access-token requests. It runs
// behind the session guard.
func (h *AuthHandler) HandleAccessToken(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	token, err := h.service.RefreshAccessToken(user)
	if err != nil {
		internalError(w, r, err)
		return
	}

	w.Header().Set(middleware.HeaderAccessToken, token)
	writeJSON(w, http.StatusOK, model.AccessTokenResponse{AccessToken: token})
}

func writeSession(w http.ResponseWriter, res service.AuthResult) {
	w.Header().Set(middleware.HeaderRefreshToken, res.RefreshToken)
	w.Header().Set(middleware.HeaderAccessToken, res.AccessToken)
	writeJSON(w, http.StatusOK, res.User)
}
