package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/freightdesk/api/internal/domain"
	"github.com/freightdesk/api/internal/services"
)

type stubAccountService struct {
	signupFunc func(ctx context.Context, cmd services.SignupCommand) (domain.Admin, error)
	loginFunc  func(ctx context.Context, cmd services.LoginCommand) (services.LoginResult, error)
	getFunc    func(ctx context.Context, adminID string) (domain.Admin, error)
}

func (s *stubAccountService) Signup(ctx context.Context, cmd services.SignupCommand) (domain.Admin, error) {
	if s.signupFunc != nil {
		return s.signupFunc(ctx, cmd)
	}
	return domain.Admin{}, nil
}

func (s *stubAccountService) Login(ctx context.Context, cmd services.LoginCommand) (services.LoginResult, error) {
	if s.loginFunc != nil {
		return s.loginFunc(ctx, cmd)
	}
	return services.LoginResult{}, nil
}

func (s *stubAccountService) GetAdmin(ctx context.Context, adminID string) (domain.Admin, error) {
	if s.getFunc != nil {
		return s.getFunc(ctx, adminID)
	}
	return domain.Admin{}, nil
}

func newAccountTestRouter(svc services.AccountService) chi.Router {
	r := chi.NewRouter()
	NewAccountHandlers(nil, svc).Routes(r)
	return r
}

func sampleAdmin() domain.Admin {
	now := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	return domain.Admin{
		ID:        "adm_01",
		Email:     "ops@freightdesk.example",
		Name:      "Ops Admin",
		Role:      domain.AdminRoleAdmin,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestAccountHandlersLogin_Success(t *testing.T) {
	expires := time.Date(2026, 1, 15, 21, 0, 0, 0, time.UTC)
	svc := &stubAccountService{
		loginFunc: func(ctx context.Context, cmd services.LoginCommand) (services.LoginResult, error) {
			if cmd.Email != "ops@freightdesk.example" {
				t.Fatalf("unexpected email %s", cmd.Email)
			}
			return services.LoginResult{
				Admin:     sampleAdmin(),
				Token:     "signed-token",
				ExpiresAt: expires,
			}, nil
		},
	}

	router := newAccountTestRouter(svc)
	body := bytes.NewBufferString(`{"email": "ops@freightdesk.example", "password": "correct-horse"}`)
	req := httptest.NewRequest(http.MethodPost, "/login", body)
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Success bool          `json:"success"`
		Data    loginResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("expected JSON response: %v", err)
	}
	if !envelope.Success {
		t.Fatalf("expected success envelope: %s", resp.Body.String())
	}
	if envelope.Data.Token != "signed-token" {
		t.Fatalf("unexpected token %q", envelope.Data.Token)
	}
	if envelope.Data.ExpiresAt != formatTime(expires) {
		t.Fatalf("unexpected expiry %s", envelope.Data.ExpiresAt)
	}
	if envelope.Data.Admin.Email != "ops@freightdesk.example" {
		t.Fatalf("unexpected admin payload %+v", envelope.Data.Admin)
	}
}

func TestAccountHandlersLogin_BadCredentials(t *testing.T) {
	svc := &stubAccountService{
		loginFunc: func(ctx context.Context, cmd services.LoginCommand) (services.LoginResult, error) {
			return services.LoginResult{}, services.ErrAccountInvalidCredentials
		},
	}

	router := newAccountTestRouter(svc)
	body := bytes.NewBufferString(`{"email": "ops@freightdesk.example", "password": "wrong"}`)
	req := httptest.NewRequest(http.MethodPost, "/login", body)
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}
}

func TestAccountHandlersSignup_Conflict(t *testing.T) {
	svc := &stubAccountService{
		signupFunc: func(ctx context.Context, cmd services.SignupCommand) (domain.Admin, error) {
			return domain.Admin{}, services.ErrAccountConflict
		},
	}

	router := newAccountTestRouter(svc)
	body := bytes.NewBufferString(`{"email": "ops@freightdesk.example", "name": "Ops", "password": "secret-enough", "role": "operator"}`)
	req := httptest.NewRequest(http.MethodPost, "/signup", body)
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}
}

func TestAccountHandlersSignup_Success(t *testing.T) {
	var received services.SignupCommand
	svc := &stubAccountService{
		signupFunc: func(ctx context.Context, cmd services.SignupCommand) (domain.Admin, error) {
			received = cmd
			return sampleAdmin(), nil
		},
	}

	router := newAccountTestRouter(svc)
	body := bytes.NewBufferString(`{"email": "ops@freightdesk.example", "name": "Ops Admin", "password": "correct-horse", "role": "admin"}`)
	req := httptest.NewRequest(http.MethodPost, "/signup", body)
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	if received.Role != domain.AdminRoleAdmin {
		t.Fatalf("unexpected role %s", received.Role)
	}

	var envelope struct {
		Data adminPayload `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("expected JSON response: %v", err)
	}
	if envelope.Data.ID != "adm_01" {
		t.Fatalf("unexpected admin id %s", envelope.Data.ID)
	}
}

func TestAccountHandlersGetAdmin_NotFound(t *testing.T) {
	svc := &stubAccountService{
		getFunc: func(ctx context.Context, adminID string) (domain.Admin, error) {
			return domain.Admin{}, services.ErrAccountNotFound
		},
	}

	router := newAccountTestRouter(svc)
	req := httptest.NewRequest(http.MethodGet, "/admins/adm_missing", nil)
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
}
