package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/hisabkitab/server/internal/models"
	"github.com/hisabkitab/server/internal/services"
)

type ResetRequestHandler struct {
	resetRequestService *services.ResetRequestService
}

func NewResetRequestHandler(resetRequestService *services.ResetRequestService) *ResetRequestHandler {
	return &ResetRequestHandler{resetRequestService: resetRequestService}
}

type CreateResetRequestRequest struct {
	Username string `json:"username"`
}

type ResetRequestListResponse struct {
	Requests []models.HistoryResetRequestWithUsers `json:"requests"`
}

func (h *ResetRequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req CreateResetRequestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		writeError(w, http.StatusBadRequest, "Username is required")
		return
	}

	request, err := h.resetRequestService.Request(r.Context(), user.ID, username)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "User not found")
		case errors.Is(err, services.ErrCannotResetSelf):
			writeError(w, http.StatusBadRequest, "You cannot reset history with yourself")
		case errors.Is(err, services.ErrNotFriends):
			writeError(w, http.StatusForbidden, "You are not friends with this user")
		case errors.Is(err, services.ErrResetRequestExists):
			writeError(w, http.StatusConflict, "A reset request with this user is already pending")
		default:
			log.Printf("Error creating reset request: %v", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, request)
}

func (h *ResetRequestHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	requests, err := h.resetRequestService.ListIncomingPending(r.Context(), user.ID)
	if err != nil {
		log.Printf("Error listing reset requests: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, ResetRequestListResponse{Requests: requests})
}

func (h *ResetRequestHandler) Act(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	requestID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request ID")
		return
	}

	var req ConsentActionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	action, ok := models.ParseConsentAction(req.Action)
	if !ok {
		writeError(w, http.StatusBadRequest, "Action must be 'approve' or 'reject'")
		return
	}

	result, err := h.resetRequestService.Act(r.Context(), requestID, user.ID, action)
	if errors.Is(err, services.ErrResetRequestNotFound) {
		writeError(w, http.StatusNotFound, "Reset request not found")
		return
	}
	if err != nil {
		log.Printf("Error acting on reset request: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
