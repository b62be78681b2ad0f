package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestTransactionHandler_Create_Unauthenticated(t *testing.T) {
	handler := NewTransactionHandler(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/transactions", nil)
	rr := httptest.NewRecorder()

	handler.Create(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rr.Code)
	}
}

func TestTransactionHandler_Create_InvalidBody(t *testing.T) {
	handler := NewTransactionHandler(nil)

	req := authenticatedRequest(http.MethodPost, "/api/transactions", bytes.NewBufferString("nope"))
	rr := httptest.NewRecorder()

	handler.Create(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestTransactionHandler_Create_BadAmount(t *testing.T) {
	handler := NewTransactionHandler(nil)

	body, _ := json.Marshal(CreateTransactionRequest{Username: "bob", Amount: "ten dollars"})
	req := authenticatedRequest(http.MethodPost, "/api/transactions", bytes.NewBuffer(body))
	rr := httptest.NewRecorder()

	handler.Create(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestTransactionHandler_Create_EmptyUsername(t *testing.T) {
	handler := NewTransactionHandler(nil)

	body, _ := json.Marshal(CreateTransactionRequest{Username: "", Amount: "10.00"})
	req := authenticatedRequest(http.MethodPost, "/api/transactions", bytes.NewBuffer(body))
	rr := httptest.NewRecorder()

	handler.Create(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestTransactionHandler_Act_InvalidID(t *testing.T) {
	handler := NewTransactionHandler(nil)

	req := authenticatedRequest(http.MethodPost, "/api/transactions/x/action", bytes.NewBufferString("{}"))
	req.SetPathValue("id", "not-a-uuid")
	rr := httptest.NewRecorder()

	handler.Act(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestTransactionHandler_Act_InvalidAction(t *testing.T) {
	handler := NewTransactionHandler(nil)

	body, _ := json.Marshal(TransactionActionRequest{Action: "approve"})
	req := authenticatedRequest(http.MethodPost, "/api/transactions/x/action", bytes.NewBuffer(body))
	req.SetPathValue("id", uuid.NewString())
	rr := httptest.NewRecorder()

	handler.Act(rr, req)

	// Transactions resolve with accept/reject, not the consent verbs.
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestTransactionHandler_History_MissingUsername(t *testing.T) {
	handler := NewTransactionHandler(nil)

	req := authenticatedRequest(http.MethodGet, "/api/transactions/history/", nil)
	rr := httptest.NewRecorder()

	handler.History(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestTransactionHandler_Lists_Unauthenticated(t *testing.T) {
	handler := NewTransactionHandler(nil)

	for _, fn := range []http.HandlerFunc{handler.ListPendingReceived, handler.ListPendingSent, handler.History} {
		req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
		rr := httptest.NewRecorder()

		fn(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", rr.Code)
		}
	}
}
