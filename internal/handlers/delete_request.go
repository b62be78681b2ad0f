package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/hisabkitab/server/internal/models"
	"github.com/hisabkitab/server/internal/services"
)

type DeleteRequestHandler struct {
	deleteRequestService *services.DeleteRequestService
}

func NewDeleteRequestHandler(deleteRequestService *services.DeleteRequestService) *DeleteRequestHandler {
	return &DeleteRequestHandler{deleteRequestService: deleteRequestService}
}

type ConsentActionRequest struct {
	Action string `json:"action"`
}

type DeleteRequestListResponse struct {
	Requests []models.TransactionDeleteRequestDetail `json:"requests"`
}

func (h *DeleteRequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	transactionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid transaction ID")
		return
	}

	request, err := h.deleteRequestService.Request(r.Context(), transactionID, user.ID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTransactionNotFound):
			writeError(w, http.StatusNotFound, "Transaction not found")
		case errors.Is(err, services.ErrNotTransactionParty):
			writeError(w, http.StatusForbidden, "You are not a party to this transaction")
		case errors.Is(err, services.ErrDeleteRequestExists):
			writeError(w, http.StatusConflict, "A delete request for this transaction is already pending")
		default:
			log.Printf("Error creating delete request: %v", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, request)
}

func (h *DeleteRequestHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	requests, err := h.deleteRequestService.ListActionable(r.Context(), user.ID)
	if err != nil {
		log.Printf("Error listing delete requests: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, DeleteRequestListResponse{Requests: requests})
}

func (h *DeleteRequestHandler) Act(w http.ResponseWriter, r *http.Request) {
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

	request, err := h.deleteRequestService.Act(r.Context(), requestID, user.ID, action)
	if errors.Is(err, services.ErrDeleteRequestNotFound) {
		writeError(w, http.StatusNotFound, "Delete request not found")
		return
	}
	if err != nil {
		log.Printf("Error acting on delete request: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, request)
}
