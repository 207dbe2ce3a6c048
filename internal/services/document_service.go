package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/freightdesk/api/internal/domain"
	"github.com/freightdesk/api/internal/repositories"
)

const (
	pdfContentType       = "application/pdf"
	defaultDocumentTTL   = 15 * time.Minute
	documentObjectFormat = "%s/%s/%s-%d.pdf"
)

var (
	// ErrDocumentInvalidInput signals the caller provided invalid data.
	ErrDocumentInvalidInput = errors.New("document: invalid input")
	// ErrDocumentNotFound indicates the referenced quotation or shipment is missing.
	ErrDocumentNotFound = errors.New("document: not found")
	// ErrDocumentRenderFailed indicates PDF generation failed.
	ErrDocumentRenderFailed = errors.New("document: render failed")
)

// DocumentRenderer produces PDF bytes for printable documents.
type DocumentRenderer interface {
	RenderQuotation(kind domain.DocumentKind, quotation Quotation, breakdown PricingBreakdown) ([]byte, error)
	RenderShipmentLabel(shipment Shipment) ([]byte, error)
}

// DocumentStore uploads rendered documents and signs short-lived download links.
type DocumentStore interface {
	Upload(ctx context.Context, objectPath, contentType string, data []byte) error
	SignedURL(ctx context.Context, objectPath string, ttl time.Duration) (string, time.Time, error)
}

// DocumentServiceDeps bundles collaborators required to construct the document service.
type DocumentServiceDeps struct {
	Quotations repositories.QuotationRepository
	Shipments  repositories.ShipmentRepository
	Pricer     QuotationPricer
	Renderer   DocumentRenderer
	Store      DocumentStore
	URLTTL     time.Duration
	Clock      func() time.Time
}

type documentService struct {
	quotations repositories.QuotationRepository
	shipments  repositories.ShipmentRepository
	pricer     QuotationPricer
	renderer   DocumentRenderer
	store      DocumentStore
	urlTTL     time.Duration
	clock      func() time.Time
}

// NewDocumentService wires dependencies into a concrete DocumentService implementation.
func NewDocumentService(deps DocumentServiceDeps) (DocumentService, error) {
	if deps.Quotations == nil {
		return nil, errors.New("document service: quotation repository is required")
	}
	if deps.Shipments == nil {
		return nil, errors.New("document service: shipment repository is required")
	}
	if deps.Renderer == nil {
		return nil, errors.New("document service: renderer is required")
	}
	if deps.Store == nil {
		return nil, errors.New("document service: store is required")
	}

	pricer := deps.Pricer
	if pricer == nil {
		pricer = NewQuotationPricingEngine()
	}

	ttl := deps.URLTTL
	if ttl <= 0 {
		ttl = defaultDocumentTTL
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	return &documentService{
		quotations: deps.Quotations,
		shipments:  deps.Shipments,
		pricer:     pricer,
		renderer:   deps.Renderer,
		store:      deps.Store,
		urlTTL:     ttl,
		clock: func() time.Time {
			return clock().UTC()
		},
	}, nil
}

func (s *documentService) RenderQuotationDocument(ctx context.Context, cmd QuotationDocumentCommand) (RenderedDocument, error) {
	quotationID := strings.TrimSpace(cmd.QuotationID)
	if quotationID == "" {
		return RenderedDocument{}, fmt.Errorf("%w: quotation id is required", ErrDocumentInvalidInput)
	}
	if cmd.Kind != domain.DocumentKindInvoice && cmd.Kind != domain.DocumentKindReceipt {
		return RenderedDocument{}, fmt.Errorf("%w: unsupported quotation document kind %q", ErrDocumentInvalidInput, cmd.Kind)
	}

	quotation, err := s.quotations.FindByID(ctx, quotationID)
	if err != nil {
		return RenderedDocument{}, s.mapRepositoryError(err)
	}

	breakdown := s.pricer.Price(quotation)
	data, err := s.renderer.RenderQuotation(cmd.Kind, quotation, breakdown)
	if err != nil {
		return RenderedDocument{}, fmt.Errorf("%w: %v", ErrDocumentRenderFailed, err)
	}

	return s.publish(ctx, cmd.Kind, "quotations", quotation.ID, data)
}

func (s *documentService) RenderShipmentLabel(ctx context.Context, cmd ShipmentLabelCommand) (RenderedDocument, error) {
	shipmentID := strings.TrimSpace(cmd.ShipmentID)
	if shipmentID == "" {
		return RenderedDocument{}, fmt.Errorf("%w: shipment id is required", ErrDocumentInvalidInput)
	}

	shipment, err := s.shipments.FindByID(ctx, shipmentID)
	if err != nil {
		return RenderedDocument{}, s.mapRepositoryError(err)
	}

	data, err := s.renderer.RenderShipmentLabel(shipment)
	if err != nil {
		return RenderedDocument{}, fmt.Errorf("%w: %v", ErrDocumentRenderFailed, err)
	}

	return s.publish(ctx, domain.DocumentKindLabel, "shipments", shipment.ID, data)
}

func (s *documentService) publish(ctx context.Context, kind domain.DocumentKind, prefix, ownerID string, data []byte) (RenderedDocument, error) {
	now := s.clock()
	objectPath := fmt.Sprintf(documentObjectFormat, prefix, ownerID, kind, now.Unix())

	if err := s.store.Upload(ctx, objectPath, pdfContentType, data); err != nil {
		return RenderedDocument{}, fmt.Errorf("document: upload %s: %w", objectPath, err)
	}

	url, expiresAt, err := s.store.SignedURL(ctx, objectPath, s.urlTTL)
	if err != nil {
		return RenderedDocument{}, fmt.Errorf("document: sign %s: %w", objectPath, err)
	}

	return RenderedDocument{
		Kind:        kind,
		ObjectPath:  objectPath,
		SignedURL:   url,
		SizeBytes:   int64(len(data)),
		ContentType: pdfContentType,
		ExpiresAt:   expiresAt,
		GeneratedAt: now,
	}, nil
}

func (s *documentService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrDocumentNotFound, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("document: repository unavailable: %w", err)
		}
	}

	return err
}
