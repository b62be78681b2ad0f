package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestUserHandler_Search_Unauthenticated(t *testing.T) {
	handler := NewUserHandler(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/users/search?q=test", nil)
	rr := httptest.NewRecorder()

	handler.Search(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rr.Code)
	}
}

func TestUserHandler_Search_ShortQuery(t *testing.T) {
	handler := NewUserHandler(nil)

	req := authenticatedRequest(http.MethodGet, "/api/users/search?q=a", nil)
	rr := httptest.NewRecorder()

	handler.Search(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var response UserSearchResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(response.Users) != 0 {
		t.Errorf("expected empty users list for short query, got %d users", len(response.Users))
	}
}

func TestUserHandler_Search_EmptyQuery(t *testing.T) {
	handler := NewUserHandler(nil)

	req := authenticatedRequest(http.MethodGet, "/api/users/search?q=", nil)
	rr := httptest.NewRecorder()

	handler.Search(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var response UserSearchResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(response.Users) != 0 {
		t.Errorf("expected empty users list, got %d users", len(response.Users))
	}
}
