package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubVerifier struct {
	identity *Identity
	err      error
}

func (s stubVerifier) Verify(string) (*Identity, error) {
	return s.identity, s.err
}

func TestRequireAuthRejectsMissingHeader(t *testing.T) {
	authn := NewAuthenticator(stubVerifier{identity: &Identity{AdminID: "adm_1"}})
	handler := authn.RequireAuth()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/quotations", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if payload["success"] != false {
		t.Fatalf("success = %v, want false", payload["success"])
	}
	if payload["error"] != "unauthenticated" {
		t.Fatalf("error = %v", payload["error"])
	}
}

func TestRequireAuthRejectsExpiredToken(t *testing.T) {
	authn := NewAuthenticator(stubVerifier{err: ErrTokenExpired})
	handler := authn.RequireAuth()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/quotations", nil)
	req.Header.Set("Authorization", "Bearer stale")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if payload["error"] != "token_expired" {
		t.Fatalf("error = %v", payload["error"])
	}
}

func TestRequireAuthStoresIdentity(t *testing.T) {
	authn := NewAuthenticator(stubVerifier{identity: &Identity{AdminID: "adm_1", Role: RoleOperator}})

	var seen *Identity
	handler := authn.RequireAuth()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/quotations", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if seen == nil || seen.AdminID != "adm_1" {
		t.Fatalf("identity = %+v", seen)
	}
}

func TestRequireAuthEnforcesRoles(t *testing.T) {
	authn := NewAuthenticator(stubVerifier{identity: &Identity{AdminID: "adm_1", Role: RoleOperator}})
	handler := authn.RequireAuth(RoleAdmin)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/customers/cus_1", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}
