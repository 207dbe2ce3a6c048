package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/freightdesk/api/internal/platform/httpx"
	"github.com/freightdesk/api/internal/repositories"
	"github.com/freightdesk/api/internal/services"
)

// CustomerHandlers exposes customer master record endpoints.
type CustomerHandlers struct {
	customers services.CustomerService
}

// NewCustomerHandlers constructs the customer handler set.
func NewCustomerHandlers(svc services.CustomerService) *CustomerHandlers {
	return &CustomerHandlers{customers: svc}
}

// Routes registers the customer endpoints on the provided router group.
func (h *CustomerHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}

	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{customerID}", h.get)
	r.Put("/{customerID}", h.update)
}

type customerCreateRequest struct {
	Name    string `json:"name"`
	Company string `json:"company"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	Country string `json:"country"`
	TaxID   string `json:"tax_id"`
}

func (h *CustomerHandlers) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req customerCreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	customer, err := h.customers.CreateCustomer(ctx, services.CreateCustomerCommand{
		Name:    req.Name,
		Company: req.Company,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
		City:    req.City,
		Country: req.Country,
		TaxID:   req.TaxID,
		ActorID: actorID(ctx),
	})
	if err != nil {
		writeCustomerError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, "customer created", buildCustomerPayload(customer))
}

type customerListResponse struct {
	Customers     []customerPayload `json:"customers"`
	NextPageToken string            `json:"next_page_token,omitempty"`
}

func (h *CustomerHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	paging, err := parsePagination(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	filter := repositories.CustomerListFilter{
		Search:     strings.TrimSpace(r.URL.Query().Get("search")),
		Pagination: paging,
	}

	page, err := h.customers.ListCustomers(ctx, filter)
	if err != nil {
		writeCustomerError(ctx, w, err)
		return
	}

	payloads := make([]customerPayload, 0, len(page.Items))
	for _, customer := range page.Items {
		payloads = append(payloads, buildCustomerPayload(customer))
	}
	httpx.WriteJSON(w, http.StatusOK, "customers retrieved", customerListResponse{
		Customers:     payloads,
		NextPageToken: page.NextPageToken,
	})
}

func (h *CustomerHandlers) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	customerID := strings.TrimSpace(chi.URLParam(r, "customerID"))
	if customerID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "customer id is required", http.StatusBadRequest))
		return
	}

	customer, err := h.customers.GetCustomer(ctx, customerID)
	if err != nil {
		writeCustomerError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, "customer retrieved", buildCustomerPayload(customer))
}

type customerUpdateRequest struct {
	Name    *string `json:"name"`
	Company *string `json:"company"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
	City    *string `json:"city"`
	Country *string `json:"country"`
	TaxID   *string `json:"tax_id"`
	Version int64   `json:"version"`
}

func (h *CustomerHandlers) update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	customerID := strings.TrimSpace(chi.URLParam(r, "customerID"))
	if customerID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "customer id is required", http.StatusBadRequest))
		return
	}

	var req customerUpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	customer, err := h.customers.UpdateCustomer(ctx, services.UpdateCustomerCommand{
		CustomerID:      customerID,
		ExpectedVersion: req.Version,
		Name:            req.Name,
		Company:         req.Company,
		Email:           req.Email,
		Phone:           req.Phone,
		Address:         req.Address,
		City:            req.City,
		Country:         req.Country,
		TaxID:           req.TaxID,
		ActorID:         actorID(ctx),
	})
	if err != nil {
		writeCustomerError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, "customer updated", buildCustomerPayload(customer))
}

func writeCustomerError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCustomerInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCustomerNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "customer not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCustomerConflict):
		httpx.WriteError(ctx, w, httpx.NewError("conflict", err.Error(), http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("customer_error", "customer operation failed", http.StatusInternalServerError))
	}
}
