package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	domain "github.com/freightdesk/api/internal/domain"
)

type stubRenderer struct {
	quotationFn func(domain.DocumentKind, Quotation, PricingBreakdown) ([]byte, error)
	labelFn     func(Shipment) ([]byte, error)
}

func (s *stubRenderer) RenderQuotation(kind domain.DocumentKind, quotation Quotation, breakdown PricingBreakdown) ([]byte, error) {
	if s.quotationFn != nil {
		return s.quotationFn(kind, quotation, breakdown)
	}
	return []byte("%PDF-1.7 stub"), nil
}

func (s *stubRenderer) RenderShipmentLabel(shipment Shipment) ([]byte, error) {
	if s.labelFn != nil {
		return s.labelFn(shipment)
	}
	return []byte("%PDF-1.7 label"), nil
}

type stubDocumentStore struct {
	uploads map[string][]byte
	signFn  func(string, time.Duration) (string, time.Time, error)
}

func (s *stubDocumentStore) Upload(_ context.Context, objectPath, _ string, data []byte) error {
	if s.uploads == nil {
		s.uploads = map[string][]byte{}
	}
	s.uploads[objectPath] = data
	return nil
}

func (s *stubDocumentStore) SignedURL(_ context.Context, objectPath string, ttl time.Duration) (string, time.Time, error) {
	if s.signFn != nil {
		return s.signFn(objectPath, ttl)
	}
	return "https://storage.example.com/" + objectPath, fixedTestTime.Add(ttl), nil
}

func newDocumentServiceForTest(t *testing.T, deps DocumentServiceDeps) DocumentService {
	t.Helper()
	if deps.Quotations == nil {
		deps.Quotations = &stubQuotationRepo{
			findFn: func(context.Context, string) (domain.Quotation, error) {
				return domain.Quotation{ID: "quo_1", QuoteNumber: "FD-AIR-2026-000001"}, nil
			},
		}
	}
	if deps.Shipments == nil {
		deps.Shipments = &stubShipmentRepo{
			findFn: func(context.Context, string) (domain.Shipment, error) {
				return domain.Shipment{ID: "shp_1", TrackingCode: "FD-SHP-2026-000001"}, nil
			},
		}
	}
	if deps.Renderer == nil {
		deps.Renderer = &stubRenderer{}
	}
	if deps.Store == nil {
		deps.Store = &stubDocumentStore{}
	}
	if deps.Clock == nil {
		deps.Clock = fixedClock(fixedTestTime)
	}
	svc, err := NewDocumentService(deps)
	if err != nil {
		t.Fatalf("NewDocumentService: %v", err)
	}
	return svc
}

func TestRenderQuotationInvoiceUploadsAndSigns(t *testing.T) {
	store := &stubDocumentStore{}
	svc := newDocumentServiceForTest(t, DocumentServiceDeps{Store: store})

	doc, err := svc.RenderQuotationDocument(context.Background(), QuotationDocumentCommand{
		QuotationID: "quo_1",
		Kind:        domain.DocumentKindInvoice,
	})
	if err != nil {
		t.Fatalf("RenderQuotationDocument: %v", err)
	}
	if doc.Kind != domain.DocumentKindInvoice {
		t.Fatalf("unexpected kind %q", doc.Kind)
	}
	if !strings.HasPrefix(doc.ObjectPath, "quotations/quo_1/invoice-") {
		t.Fatalf("unexpected object path %q", doc.ObjectPath)
	}
	if _, ok := store.uploads[doc.ObjectPath]; !ok {
		t.Fatalf("expected upload at %q, got %v", doc.ObjectPath, store.uploads)
	}
	if doc.SignedURL == "" || doc.SizeBytes == 0 {
		t.Fatalf("incomplete document metadata %+v", doc)
	}
	if doc.ContentType != "application/pdf" {
		t.Fatalf("unexpected content type %q", doc.ContentType)
	}
}

func TestRenderQuotationRejectsLabelKind(t *testing.T) {
	svc := newDocumentServiceForTest(t, DocumentServiceDeps{})

	_, err := svc.RenderQuotationDocument(context.Background(), QuotationDocumentCommand{
		QuotationID: "quo_1",
		Kind:        domain.DocumentKindLabel,
	})
	if !errors.Is(err, ErrDocumentInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestRenderQuotationMissingQuotation(t *testing.T) {
	repo := &stubQuotationRepo{
		findFn: func(context.Context, string) (domain.Quotation, error) {
			return domain.Quotation{}, notFoundRepoError{}
		},
	}
	svc := newDocumentServiceForTest(t, DocumentServiceDeps{Quotations: repo})

	_, err := svc.RenderQuotationDocument(context.Background(), QuotationDocumentCommand{
		QuotationID: "quo_missing",
		Kind:        domain.DocumentKindReceipt,
	})
	if !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRenderShipmentLabel(t *testing.T) {
	svc := newDocumentServiceForTest(t, DocumentServiceDeps{})

	doc, err := svc.RenderShipmentLabel(context.Background(), ShipmentLabelCommand{ShipmentID: "shp_1"})
	if err != nil {
		t.Fatalf("RenderShipmentLabel: %v", err)
	}
	if doc.Kind != domain.DocumentKindLabel {
		t.Fatalf("unexpected kind %q", doc.Kind)
	}
	if !strings.HasPrefix(doc.ObjectPath, "shipments/shp_1/label-") {
		t.Fatalf("unexpected object path %q", doc.ObjectPath)
	}
}

func TestRenderFailureIsWrapped(t *testing.T) {
	renderer := &stubRenderer{
		quotationFn: func(domain.DocumentKind, Quotation, PricingBreakdown) ([]byte, error) {
			return nil, errors.New("font missing")
		},
	}
	svc := newDocumentServiceForTest(t, DocumentServiceDeps{Renderer: renderer})

	_, err := svc.RenderQuotationDocument(context.Background(), QuotationDocumentCommand{
		QuotationID: "quo_1",
		Kind:        domain.DocumentKindInvoice,
	})
	if !errors.Is(err, ErrDocumentRenderFailed) {
		t.Fatalf("expected render failure, got %v", err)
	}
}
