package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taskmanager/taskmanager-go/internal/middleware"
	"github.com/taskmanager/taskmanager-go/internal/model"
	"github.com/taskmanager/taskmanager-go/internal/service"
)

// ListHandler handles HTTP requests for the authenticated user's lists.
type ListHandler struct {
	service *service.ListService
}

// NewListHandler creates a new ListHandler.
func NewListHandler(svc *service.ListService) *ListHandler {
	return &ListHandler{service: svc}
}

// HandleList handles GET /lists requests.
func (h *ListHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.SubjectIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	lists, err := h.service.ListLists(r.Context(), userID)
	if err != nil {
		internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, lists)
}

// HandleCreate handles POST /lists requests.
func (h *ListHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.SubjectIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	var req model.ListRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	list, err := h.service.CreateList(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// HandleUpdate handles PATCH /lists/{listId} requests.
func (h *ListHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.SubjectIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	var req model.ListRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.UpdateList(r.Context(), userID, chi.URLParam(r, "listId"), req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, model.MessageResponse{Message: "Update Success."})
}

// HandleDelete handles DELETE /lists/{listId} requests. The list's tasks go
// with it.
func (h *ListHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.SubjectIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	removed, err := h.service.DeleteList(r.Context(), userID, chi.URLParam(r, "listId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, removed)
}
