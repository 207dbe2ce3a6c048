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

type stubShipmentService struct {
	createFunc func(ctx context.Context, cmd services.CreateShipmentCommand) (domain.Shipment, error)
	getFunc    func(ctx context.Context, shipmentID string) (domain.Shipment, error)
	listFunc   func(ctx context.Context, filter services.ShipmentListFilter) (domain.CursorPage[domain.Shipment], error)
	updateFunc func(ctx context.Context, cmd services.UpdateShipmentCommand) (domain.Shipment, error)
}

func (s *stubShipmentService) CreateShipment(ctx context.Context, cmd services.CreateShipmentCommand) (domain.Shipment, error) {
	if s.createFunc != nil {
		return s.createFunc(ctx, cmd)
	}
	return domain.Shipment{}, nil
}

func (s *stubShipmentService) GetShipment(ctx context.Context, shipmentID string) (domain.Shipment, error) {
	if s.getFunc != nil {
		return s.getFunc(ctx, shipmentID)
	}
	return domain.Shipment{}, nil
}

func (s *stubShipmentService) ListShipments(ctx context.Context, filter services.ShipmentListFilter) (domain.CursorPage[domain.Shipment], error) {
	if s.listFunc != nil {
		return s.listFunc(ctx, filter)
	}
	return domain.CursorPage[domain.Shipment]{}, nil
}

func (s *stubShipmentService) UpdateShipment(ctx context.Context, cmd services.UpdateShipmentCommand) (domain.Shipment, error) {
	if s.updateFunc != nil {
		return s.updateFunc(ctx, cmd)
	}
	return domain.Shipment{}, nil
}

type stubDocumentService struct {
	quotationFunc func(ctx context.Context, cmd services.QuotationDocumentCommand) (domain.RenderedDocument, error)
	labelFunc     func(ctx context.Context, cmd services.ShipmentLabelCommand) (domain.RenderedDocument, error)
}

func (s *stubDocumentService) RenderQuotationDocument(ctx context.Context, cmd services.QuotationDocumentCommand) (domain.RenderedDocument, error) {
	if s.quotationFunc != nil {
		return s.quotationFunc(ctx, cmd)
	}
	return domain.RenderedDocument{}, nil
}

func (s *stubDocumentService) RenderShipmentLabel(ctx context.Context, cmd services.ShipmentLabelCommand) (domain.RenderedDocument, error) {
	if s.labelFunc != nil {
		return s.labelFunc(ctx, cmd)
	}
	return domain.RenderedDocument{}, nil
}

func newShipmentTestRouter(svc services.ShipmentService, docs services.DocumentService) chi.Router {
	r := chi.NewRouter()
	NewShipmentHandlers(svc, docs).Routes(r)
	return r
}

func sampleShipment() domain.Shipment {
	now := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)
	return domain.Shipment{
		ID:           "shp_01",
		TrackingCode: "FD-SHP-2026-000042",
		CustomerRef:  "cus_01",
		Shipper:      domain.ContactBlock{Name: "Acme Exports", City: "Delhi", Country: "IN"},
		Consignee:    domain.ContactBlock{Name: "Globex Ltd", City: "London", Country: "GB"},
		Boxes: []domain.ShipmentBox{
			{LengthCm: 50, WidthCm: 40, HeightCm: 30, WeightKg: 12, Count: 2},
		},
		Items: []domain.ShipmentItem{
			{Description: "Machine parts", Quantity: 10, UnitValue: 45},
		},
		PaymentMethod: "prepaid",
		Currency:      "USD",
		FreightAmount: 320,
		OtherCharges:  25,
		TotalAmount:   345,
		Status:        "Pending",
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestShipmentHandlersCreate_Success(t *testing.T) {
	var received services.CreateShipmentCommand
	svc := &stubShipmentService{
		createFunc: func(ctx context.Context, cmd services.CreateShipmentCommand) (domain.Shipment, error) {
			received = cmd
			return sampleShipment(), nil
		},
	}

	router := newShipmentTestRouter(svc, nil)
	body := bytes.NewBufferString(`{
		"customer_ref": "cus_01",
		"shipper": {"name": "Acme Exports", "city": "Delhi", "country": "IN"},
		"consignee": {"name": "Globex Ltd", "city": "London", "country": "GB"},
		"boxes": [{"length_cm": 50, "width_cm": 40, "height_cm": 30, "weight_kg": 12, "count": 2}],
		"items": [{"description": "Machine parts", "quantity": 10, "unit_value": 45}],
		"payment_method": "prepaid",
		"currency": "USD",
		"freight_amount": 320,
		"other_charges": 25
	}`)
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{AdminID: "adm_01"}))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	if received.Shipper.Name != "Acme Exports" {
		t.Fatalf("unexpected shipper %+v", received.Shipper)
	}
	if len(received.Boxes) != 1 || received.Boxes[0].WeightKg != 12 {
		t.Fatalf("unexpected boxes %+v", received.Boxes)
	}
	if received.ActorID != "adm_01" {
		t.Fatalf("expected actor adm_01, got %q", received.ActorID)
	}

	var envelope struct {
		Data shipmentPayload `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("expected JSON response: %v", err)
	}
	if envelope.Data.TrackingCode != "FD-SHP-2026-000042" {
		t.Fatalf("unexpected tracking code %s", envelope.Data.TrackingCode)
	}
	if envelope.Data.TotalAmount != 345 {
		t.Fatalf("unexpected total %v", envelope.Data.TotalAmount)
	}
}

func TestShipmentHandlersGet_NotFound(t *testing.T) {
	svc := &stubShipmentService{
		getFunc: func(ctx context.Context, shipmentID string) (domain.Shipment, error) {
			return domain.Shipment{}, services.ErrShipmentNotFound
		},
	}

	router := newShipmentTestRouter(svc, nil)
	req := httptest.NewRequest(http.MethodGet, "/shp_missing", nil)
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
}

func TestShipmentHandlersList_Filters(t *testing.T) {
	var received services.ShipmentListFilter
	svc := &stubShipmentService{
		listFunc: func(ctx context.Context, filter services.ShipmentListFilter) (domain.CursorPage[domain.Shipment], error) {
			received = filter
			return domain.CursorPage[domain.Shipment]{Items: []domain.Shipment{sampleShipment()}}, nil
		},
	}

	router := newShipmentTestRouter(svc, nil)
	req := httptest.NewRequest(http.MethodGet, "/?status=Pending&customer_ref=cus_01&page_size=5", nil)
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if received.Status != "Pending" || received.CustomerRef != "cus_01" {
		t.Fatalf("unexpected filter %+v", received)
	}
	if received.Pagination.PageSize != 5 {
		t.Fatalf("unexpected page size %d", received.Pagination.PageSize)
	}
}

func TestShipmentHandlersUpdate_PartialPatch(t *testing.T) {
	var received services.UpdateShipmentCommand
	svc := &stubShipmentService{
		updateFunc: func(ctx context.Context, cmd services.UpdateShipmentCommand) (domain.Shipment, error) {
			received = cmd
			shipment := sampleShipment()
			shipment.Status = "Shipped"
			shipment.Version = 2
			return shipment, nil
		},
	}

	router := newShipmentTestRouter(svc, nil)
	body := bytes.NewBufferString(`{"status": "Shipped", "version": 1}`)
	req := httptest.NewRequest(http.MethodPut, "/shp_01", body)
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if received.Status == nil || *received.Status != "Shipped" {
		t.Fatalf("expected status patch, got %v", received.Status)
	}
	if received.Shipper != nil || received.Boxes != nil {
		t.Fatalf("expected untouched fields to stay nil")
	}
	if received.ExpectedVersion != 1 {
		t.Fatalf("expected version 1, got %d", received.ExpectedVersion)
	}
}

func TestShipmentHandlersRenderLabel_Success(t *testing.T) {
	docs := &stubDocumentService{
		labelFunc: func(ctx context.Context, cmd services.ShipmentLabelCommand) (domain.RenderedDocument, error) {
			if cmd.ShipmentID != "shp_01" {
				t.Fatalf("unexpected shipment id %s", cmd.ShipmentID)
			}
			return domain.RenderedDocument{
				Kind:        domain.DocumentKindLabel,
				ObjectPath:  "labels/shp_01/label-1.pdf",
				SignedURL:   "https://storage.example.com/labels/shp_01/label-1.pdf?sig=abc",
				ContentType: "application/pdf",
				SizeBytes:   2048,
			}, nil
		},
	}

	router := newShipmentTestRouter(&stubShipmentService{}, docs)
	req := httptest.NewRequest(http.MethodGet, "/shp_01/documents/label", nil)
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data documentPayload `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("expected JSON response: %v", err)
	}
	if envelope.Data.Kind != string(domain.DocumentKindLabel) {
		t.Fatalf("unexpected kind %s", envelope.Data.Kind)
	}
	if envelope.Data.SignedURL == "" {
		t.Fatalf("expected signed url")
	}
}

func TestShipmentHandlersRenderLabel_NoService(t *testing.T) {
	router := newShipmentTestRouter(&stubShipmentService{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/shp_01/documents/label", nil)
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", resp.Code)
	}
}
