package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hisabkitab/server/internal/models"
	"github.com/hisabkitab/server/internal/services"
)

type TransactionHandler struct {
	transactionService *services.TransactionService
}

func NewTransactionHandler(transactionService *services.TransactionService) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService}
}

type CreateTransactionRequest struct {
	Username    string `json:"username"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

type TransactionActionRequest struct {
	Action string `json:"action"`
}

type TransactionListResponse struct {
	Transactions []models.FriendTransactionWithUsers `json:"transactions"`
}

func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req CreateTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		writeError(w, http.StatusBadRequest, "Username is required")
		return
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Amount must be a decimal number")
		return
	}

	txn, err := h.transactionService.Create(r.Context(), user.ID, username, amount, strings.TrimSpace(req.Description))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrZeroAmount):
			writeError(w, http.StatusBadRequest, "Amount cannot be zero")
		case errors.Is(err, services.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "User not found")
		case errors.Is(err, services.ErrCannotTransactSelf):
			writeError(w, http.StatusBadRequest, "You cannot create a transaction with yourself")
		case errors.Is(err, services.ErrNotFriends):
			writeError(w, http.StatusForbidden, "You are not friends with this user")
		default:
			log.Printf("Error creating transaction: %v", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, txn)
}

func (h *TransactionHandler) ListPendingReceived(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	transactions, err := h.transactionService.ListPendingReceived(r.Context(), user.ID)
	if err != nil {
		log.Printf("Error listing received transactions: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, TransactionListResponse{Transactions: transactions})
}

func (h *TransactionHandler) ListPendingSent(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	transactions, err := h.transactionService.ListPendingSent(r.Context(), user.ID)
	if err != nil {
		log.Printf("Error listing sent transactions: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, TransactionListResponse{Transactions: transactions})
}

func (h *TransactionHandler) Act(w http.ResponseWriter, r *http.Request) {
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

	var req TransactionActionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	action, ok := models.ParseRequestAction(req.Action)
	if !ok {
		writeError(w, http.StatusBadRequest, "Action must be 'accept' or 'reject'")
		return
	}

	txn, err := h.transactionService.ActOnTransaction(r.Context(), transactionID, user.ID, action)
	if errors.Is(err, services.ErrTransactionNotFound) {
		writeError(w, http.StatusNotFound, "Transaction not found")
		return
	}
	if err != nil {
		log.Printf("Error acting on transaction: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, txn)
}

func (h *TransactionHandler) History(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	username := strings.TrimSpace(r.PathValue("username"))
	if username == "" {
		writeError(w, http.StatusBadRequest, "Username is required")
		return
	}

	transactions, err := h.transactionService.History(r.Context(), user.ID, username)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "User not found")
		case errors.Is(err, services.ErrNotFriends):
			writeError(w, http.StatusForbidden, "You are not friends with this user")
		default:
			log.Printf("Error listing transaction history: %v", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, TransactionListResponse{Transactions: transactions})
}
