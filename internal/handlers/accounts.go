package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/freightdesk/api/internal/domain"
	"github.com/freightdesk/api/internal/platform/auth"
	"github.com/freightdesk/api/internal/platform/httpx"
	"github.com/freightdesk/api/internal/services"
)

// AccountHandlers exposes sign-up, login, and admin lookup endpoints.
type AccountHandlers struct {
	authn    *auth.Authenticator
	accounts services.AccountService
}

// NewAccountHandlers constructs the account handler set.
func NewAccountHandlers(authn *auth.Authenticator, svc services.AccountService) *AccountHandlers {
	return &AccountHandlers{
		authn:    authn,
		accounts: svc,
	}
}

// Routes registers the auth endpoints. Login and signup stay outside the
// bearer-token middleware so a fresh deployment can bootstrap its first admin.
func (h *AccountHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}

	r.Post("/login", h.login)
	r.Post("/signup", h.signup)

	protected := r
	if h.authn != nil {
		protected = protected.With(h.authn.RequireAuth())
	}
	protected.Get("/admins/{adminID}", h.getAdmin)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt string       `json:"expires_at"`
	Admin     adminPayload `json:"admin"`
}

func (h *AccountHandlers) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.accounts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "account service not available", http.StatusServiceUnavailable))
		return
	}

	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	result, err := h.accounts.Login(ctx, services.LoginCommand{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeAccountError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, "login successful", loginResponse{
		Token:     result.Token,
		ExpiresAt: formatTime(result.ExpiresAt),
		Admin:     buildAdminPayload(result.Admin),
	})
}

type signupRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *AccountHandlers) signup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.accounts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "account service not available", http.StatusServiceUnavailable))
		return
	}

	var req signupRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	admin, err := h.accounts.Signup(ctx, services.SignupCommand{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Role:     domain.AdminRole(strings.TrimSpace(req.Role)),
	})
	if err != nil {
		writeAccountError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, "account created", buildAdminPayload(admin))
}

func (h *AccountHandlers) getAdmin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.accounts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "account service not available", http.StatusServiceUnavailable))
		return
	}

	adminID := strings.TrimSpace(chi.URLParam(r, "adminID"))
	if adminID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "admin id is required", http.StatusBadRequest))
		return
	}

	admin, err := h.accounts.GetAdmin(ctx, adminID)
	if err != nil {
		writeAccountError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, "admin retrieved", buildAdminPayload(admin))
}

func writeAccountError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrAccountInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrAccountInvalidCredentials):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_credentials", "email or password is incorrect", http.StatusUnauthorized))
	case errors.Is(err, services.ErrAccountDisabled):
		httpx.WriteError(ctx, w, httpx.NewError("account_disabled", "account is disabled", http.StatusForbidden))
	case errors.Is(err, services.ErrAccountNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", err.Error(), http.StatusNotFound))
	case errors.Is(err, services.ErrAccountConflict):
		httpx.WriteError(ctx, w, httpx.NewError("conflict", "email address already registered", http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("account_error", "account operation failed", http.StatusInternalServerError))
	}
}
