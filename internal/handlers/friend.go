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

type FriendHandler struct {
	friendshipService *services.FriendshipService
}

func NewFriendHandler(friendshipService *services.FriendshipService) *FriendHandler {
	return &FriendHandler{friendshipService: friendshipService}
}

type SendFriendRequestRequest struct {
	Username string `json:"username"`
}

type FriendRequestActionRequest struct {
	Action string `json:"action"`
}

type FriendRequestListResponse struct {
	Requests []models.FriendshipWithUsers `json:"requests"`
}

type FriendListResponse struct {
	Friends []models.SimpleUser `json:"friends"`
}

func (h *FriendHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req SendFriendRequestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		writeError(w, http.StatusBadRequest, "Username is required")
		return
	}

	friendship, err := h.friendshipService.SendRequest(r.Context(), user.ID, username)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "User not found")
		case errors.Is(err, services.ErrCannotFriendSelf):
			writeError(w, http.StatusBadRequest, "You cannot send a friend request to yourself")
		case errors.Is(err, services.ErrAlreadyFriends):
			writeError(w, http.StatusConflict, "You are already friends with this user")
		case errors.Is(err, services.ErrRequestAlreadySent):
			writeError(w, http.StatusConflict, "Friend request already sent")
		case errors.Is(err, services.ErrRequestAlreadyReceived):
			writeError(w, http.StatusConflict, "This user has already sent you a friend request")
		case errors.Is(err, services.ErrRequestPreviouslyRejected):
			writeError(w, http.StatusConflict, "A previous friend request with this user was rejected")
		default:
			log.Printf("Error sending friend request: %v", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, friendship)
}

func (h *FriendHandler) ListPendingRequests(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	requests, err := h.friendshipService.ListIncomingPending(r.Context(), user.ID)
	if err != nil {
		log.Printf("Error listing friend requests: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, FriendRequestListResponse{Requests: requests})
}

func (h *FriendHandler) ActOnRequest(w http.ResponseWriter, r *http.Request) {
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

	var req FriendRequestActionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	action, ok := models.ParseRequestAction(req.Action)
	if !ok {
		writeError(w, http.StatusBadRequest, "Action must be 'accept' or 'reject'")
		return
	}

	friendship, err := h.friendshipService.ActOnRequest(r.Context(), requestID, user.ID, action)
	if errors.Is(err, services.ErrFriendshipNotFound) {
		writeError(w, http.StatusNotFound, "Friend request not found")
		return
	}
	if err != nil {
		log.Printf("Error acting on friend request: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, friendship)
}

func (h *FriendHandler) ListFriends(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	friends, err := h.friendshipService.ListFriends(r.Context(), user.ID)
	if err != nil {
		log.Printf("Error listing friends: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, FriendListResponse{Friends: friends})
}
