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
	"github.com/freightdesk/api/internal/platform/auth"
	"github.com/freightdesk/api/internal/services"
)

type stubQuotationService struct {
	createFunc      func(ctx context.Context, cmd services.CreateQuotationCommand) (domain.Quotation, error)
	getFunc         func(ctx context.Context, quotationID string) (domain.Quotation, error)
	getByNumberFunc func(ctx context.Context, quoteNumber string) (domain.Quotation, error)
	listFunc        func(ctx context.Context, filter services.QuotationListFilter) (domain.CursorPage[domain.Quotation], error)
	updateFunc      func(ctx context.Context, cmd services.UpdateQuotationCommand) (domain.Quotation, error)
	setStatusFunc   func(ctx context.Context, cmd services.QuotationStatusCommand) (domain.Quotation, error)
	sendEmailFunc   func(ctx context.Context, cmd services.SendQuotationEmailCommand) (domain.Quotation, error)
	priceFunc       func(ctx context.Context, quotationID string) (domain.PricingBreakdown, error)
}

func (s *stubQuotationService) CreateQuotation(ctx context.Context, cmd services.CreateQuotationCommand) (domain.Quotation, error) {
	if s.createFunc != nil {
		return s.createFunc(ctx, cmd)
	}
	return domain.Quotation{}, nil
}

func (s *stubQuotationService) GetQuotation(ctx context.Context, quotationID string) (domain.Quotation, error) {
	if s.getFunc != nil {
		return s.getFunc(ctx, quotationID)
	}
	return domain.Quotation{}, nil
}

func (s *stubQuotationService) GetQuotationByNumber(ctx context.Context, quoteNumber string) (domain.Quotation, error) {
	if s.getByNumberFunc != nil {
		return s.getByNumberFunc(ctx, quoteNumber)
	}
	return domain.Quotation{}, nil
}

func (s *stubQuotationService) ListQuotations(ctx context.Context, filter services.QuotationListFilter) (domain.CursorPage[domain.Quotation], error) {
	if s.listFunc != nil {
		return s.listFunc(ctx, filter)
	}
	return domain.CursorPage[domain.Quotation]{}, nil
}

func (s *stubQuotationService) UpdateQuotation(ctx context.Context, cmd services.UpdateQuotationCommand) (domain.Quotation, error) {
	if s.updateFunc != nil {
		return s.updateFunc(ctx, cmd)
	}
	return domain.Quotation{}, nil
}

func (s *stubQuotationService) SetStatus(ctx context.Context, cmd services.QuotationStatusCommand) (domain.Quotation, error) {
	if s.setStatusFunc != nil {
		return s.setStatusFunc(ctx, cmd)
	}
	return domain.Quotation{}, nil
}

func (s *stubQuotationService) SendEmail(ctx context.Context, cmd services.SendQuotationEmailCommand) (domain.Quotation, error) {
	if s.sendEmailFunc != nil {
		return s.sendEmailFunc(ctx, cmd)
	}
	return domain.Quotation{}, nil
}

func (s *stubQuotationService) PriceQuotation(ctx context.Context, quotationID string) (domain.PricingBreakdown, error) {
	if s.priceFunc != nil {
		return s.priceFunc(ctx, quotationID)
	}
	return domain.PricingBreakdown{}, nil
}

func newQuotationTestRouter(mode domain.TransportMode, svc services.QuotationService, docs services.DocumentService) chi.Router {
	r := chi.NewRouter()
	NewQuotationHandlers(mode, svc, docs).Routes(r)
	return r
}

func sampleQuotation() domain.Quotation {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	return domain.Quotation{
		ID:           "quo_01",
		QuoteNumber:  "FD-AIR-2026-000123",
		Mode:         domain.TransportModeAir,
		CustomerRef:  "cus_01",
		Origin:       "DEL",
		Destination:  "LHR",
		ActualWeight: 5,
		Packages:     []domain.Package{{LengthCm: 40, WidthCm: 30, HeightCm: 20, Count: 1}},
		Charges: []domain.Charge{
			{Name: "Air Freight", Type: domain.ChargeTypeFreight, RatePerKg: 100},
		},
		Status:    domain.QuotationStatusDraft,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestQuotationHandlersCreate_Success(t *testing.T) {
	var received services.CreateQuotationCommand
	svc := &stubQuotationService{
		createFunc: func(ctx context.Context, cmd services.CreateQuotationCommand) (domain.Quotation, error) {
			received = cmd
			return sampleQuotation(), nil
		},
	}

	router := newQuotationTestRouter(domain.TransportModeAir, svc, nil)
	body := bytes.NewBufferString(`{
		"customer_ref": "cus_01",
		"origin": "DEL",
		"destination": "LHR",
		"actual_weight": 5,
		"packages": [{"length_cm": 40, "width_cm": 30, "height_cm": 20, "count": 1}],
		"charges": [{"name": "Air Freight", "type": "freight", "rate_per_kg": 100}]
	}`)
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{AdminID: "adm_01"}))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	if received.Mode != domain.TransportModeAir {
		t.Fatalf("expected air mode, got %s", received.Mode)
	}
	if received.ActorID != "adm_01" {
		t.Fatalf("expected actor adm_01, got %q", received.ActorID)
	}
	if len(received.Packages) != 1 || received.Packages[0].LengthCm != 40 {
		t.Fatalf("unexpected packages: %+v", received.Packages)
	}

	var envelope struct {
		Success bool             `json:"success"`
		Message string           `json:"message"`
		Data    quotationPayload `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("expected JSON response: %v", err)
	}
	if !envelope.Success {
		t.Fatalf("expected success envelope, got %s", resp.Body.String())
	}
	if envelope.Data.QuoteNumber != "FD-AIR-2026-000123" {
		t.Fatalf("unexpected quote number %s", envelope.Data.QuoteNumber)
	}
}

func TestQuotationHandlersCreate_InvalidJSON(t *testing.T) {
	router := newQuotationTestRouter(domain.TransportModeAir, &stubQuotationService{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"origin":`))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
	var envelope map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("expected JSON error envelope: %v", err)
	}
	if success, ok := envelope["success"].(bool); !ok || success {
		t.Fatalf("expected success:false, got %v", envelope["success"])
	}
}

func TestQuotationHandlersList_Filters(t *testing.T) {
	var received services.QuotationListFilter
	svc := &stubQuotationService{
		listFunc: func(ctx context.Context, filter services.QuotationListFilter) (domain.CursorPage[domain.Quotation], error) {
			received = filter
			return domain.CursorPage[domain.Quotation]{
				Items:         []domain.Quotation{sampleQuotation()},
				NextPageToken: "tok_next",
			}, nil
		},
	}

	router := newQuotationTestRouter(domain.TransportModeAir, svc, nil)
	req := httptest.NewRequest(http.MethodGet, "/?status=draft,pending&customer_ref=cus_01&page_size=20&page_token=tok_prev", nil)
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if received.Mode == nil || *received.Mode != domain.TransportModeAir {
		t.Fatalf("expected air mode filter, got %v", received.Mode)
	}
	if len(received.Status) != 2 || received.Status[0] != "draft" || received.Status[1] != "pending" {
		t.Fatalf("unexpected status filter: %v", received.Status)
	}
	if received.CustomerRef != "cus_01" {
		t.Fatalf("unexpected customer filter: %s", received.CustomerRef)
	}
	if received.Pagination.PageSize != 20 || received.Pagination.PageToken != "tok_prev" {
		t.Fatalf("unexpected pagination: %+v", received.Pagination)
	}

	var envelope struct {
		Data quotationListResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("expected JSON response: %v", err)
	}
	if len(envelope.Data.Quotations) != 1 {
		t.Fatalf("expected 1 quotation, got %d", len(envelope.Data.Quotations))
	}
	if envelope.Data.NextPageToken != "tok_next" {
		t.Fatalf("expected next page token, got %q", envelope.Data.NextPageToken)
	}
}

func TestQuotationHandlersGet_WrongModeHidden(t *testing.T) {
	svc := &stubQuotationService{
		getFunc: func(ctx context.Context, quotationID string) (domain.Quotation, error) {
			quotation := sampleQuotation()
			quotation.Mode = domain.TransportModeSea
			return quotation, nil
		},
	}

	router := newQuotationTestRouter(domain.TransportModeAir, svc, nil)
	req := httptest.NewRequest(http.MethodGet, "/quo_01", nil)
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
}

func TestQuotationHandlersGetByNumber_Success(t *testing.T) {
	svc := &stubQuotationService{
		getByNumberFunc: func(ctx context.Context, quoteNumber string) (domain.Quotation, error) {
			if quoteNumber != "FD-AIR-2026-000123" {
				t.Fatalf("unexpected quote number %s", quoteNumber)
			}
			return sampleQuotation(), nil
		},
	}

	router := newQuotationTestRouter(domain.TransportModeAir, svc, nil)
	req := httptest.NewRequest(http.MethodGet, "/by-number/FD-AIR-2026-000123", nil)
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestQuotationHandlersUpdate_VersionConflict(t *testing.T) {
	svc := &stubQuotationService{
		updateFunc: func(ctx context.Context, cmd services.UpdateQuotationCommand) (domain.Quotation, error) {
			if cmd.ExpectedVersion != 3 {
				t.Fatalf("expected version 3, got %d", cmd.ExpectedVersion)
			}
			return domain.Quotation{}, services.ErrQuotationConflict
		},
	}

	router := newQuotationTestRouter(domain.TransportModeAir, svc, nil)
	body := bytes.NewBufferString(`{"origin": "BOM", "version": 3}`)
	req := httptest.NewRequest(http.MethodPut, "/quo_01", body)
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}
}

func TestQuotationHandlersApprove_Success(t *testing.T) {
	var received services.QuotationStatusCommand
	svc := &stubQuotationService{
		setStatusFunc: func(ctx context.Context, cmd services.QuotationStatusCommand) (domain.Quotation, error) {
			received = cmd
			quotation := sampleQuotation()
			quotation.Status = domain.QuotationStatusApproved
			return quotation, nil
		},
	}

	router := newQuotationTestRouter(domain.TransportModeAir, svc, nil)
	body := bytes.NewBufferString(`{"version": 2}`)
	req := httptest.NewRequest(http.MethodPost, "/quo_01:approve", body)
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{AdminID: "adm_02"}))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if received.TargetStatus != domain.QuotationStatusApproved {
		t.Fatalf("expected approved target, got %s", received.TargetStatus)
	}
	if received.QuotationID != "quo_01" {
		t.Fatalf("expected quotation quo_01, got %s", received.QuotationID)
	}
	if received.ActorID != "adm_02" {
		t.Fatalf("expected actor adm_02, got %s", received.ActorID)
	}
}

func TestQuotationHandlersReject_Reason(t *testing.T) {
	var received services.QuotationStatusCommand
	svc := &stubQuotationService{
		setStatusFunc: func(ctx context.Context, cmd services.QuotationStatusCommand) (domain.Quotation, error) {
			received = cmd
			quotation := sampleQuotation()
			quotation.Status = domain.QuotationStatusRejected
			return quotation, nil
		},
	}

	router := newQuotationTestRouter(domain.TransportModeAir, svc, nil)
	body := bytes.NewBufferString(`{"version": 2, "reason": "rates too high"}`)
	req := httptest.NewRequest(http.MethodPost, "/quo_01:reject", body)
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if received.TargetStatus != domain.QuotationStatusRejected {
		t.Fatalf("expected rejected target, got %s", received.TargetStatus)
	}
	if received.Reason != "rates too high" {
		t.Fatalf("unexpected reason %q", received.Reason)
	}
}

func TestQuotationHandlersSendEmail_DeliveryFailure(t *testing.T) {
	svc := &stubQuotationService{
		sendEmailFunc: func(ctx context.Context, cmd services.SendQuotationEmailCommand) (domain.Quotation, error) {
			return domain.Quotation{}, services.ErrQuotationEmailFailed
		},
	}

	router := newQuotationTestRouter(domain.TransportModeAir, svc, nil)
	body := bytes.NewBufferString(`{"recipient": "ops@example.com", "version": 1}`)
	req := httptest.NewRequest(http.MethodPost, "/quo_01:send-email", body)
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected status 502, got %d", resp.Code)
	}
}

func TestQuotationHandlersPricing_Success(t *testing.T) {
	svc := &stubQuotationService{
		priceFunc: func(ctx context.Context, quotationID string) (domain.PricingBreakdown, error) {
			return domain.PricingBreakdown{
				VolumetricWeight: 4,
				ChargeableWeight: 5,
				FreightLines: []domain.ChargeLine{
					{Name: "Air Freight", Type: domain.ChargeTypeFreight, Rate: 100, Amount: 500},
				},
				FreightSubtotal:  500,
				SurchargeAmount:  10,
				SurchargeVisible: true,
				FreightTotal:     510,
				Subtotal:         760,
				TaxAmount:        136.8,
				GrandTotal:       896.8,
			}, nil
		},
	}

	router := newQuotationTestRouter(domain.TransportModeAir, svc, nil)
	req := httptest.NewRequest(http.MethodGet, "/quo_01/pricing", nil)
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data pricingResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("expected JSON response: %v", err)
	}
	if envelope.Data.ChargeableWeight != 5 {
		t.Fatalf("expected chargeable weight 5, got %v", envelope.Data.ChargeableWeight)
	}
	if envelope.Data.GrandTotal != 896.8 {
		t.Fatalf("expected grand total 896.8, got %v", envelope.Data.GrandTotal)
	}
	if !envelope.Data.SurchargeVisible {
		t.Fatalf("expected visible surcharge")
	}
}
