package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/freightdesk/api/internal/domain"
	pfirestore "github.com/freightdesk/api/internal/platform/firestore"
	"github.com/freightdesk/api/internal/repositories"
)

const shipmentCollection = "shipments"

// ShipmentRepository persists courier export records in Firestore.
type ShipmentRepository struct {
	base     *pfirestore.BaseRepository[shipmentDocument]
	provider *pfirestore.Provider
}

// NewShipmentRepository constructs a Firestore-backed shipment repository.
func NewShipmentRepository(provider *pfirestore.Provider) (*ShipmentRepository, error) {
	if provider == nil {
		return nil, errors.New("shipment repository requires firestore provider")
	}

	base := pfirestore.NewBaseRepository[shipmentDocument](provider, shipmentCollection, nil, nil)
	return &ShipmentRepository{base: base, provider: provider}, nil
}

// Insert writes a new shipment, failing when the ID already exists.
func (r *ShipmentRepository) Insert(ctx context.Context, shipment domain.Shipment) error {
	if r == nil || r.base == nil {
		return errors.New("shipment repository not initialised")
	}
	if strings.TrimSpace(shipment.ID) == "" {
		return errors.New("shipment repository: id is required")
	}

	_, err := r.base.Create(ctx, shipment.ID, fromDomainShipment(shipment))
	return err
}

// Update replaces the stored shipment after verifying the expected version inside a transaction.
func (r *ShipmentRepository) Update(ctx context.Context, shipment domain.Shipment, expectedVersion int64) (domain.Shipment, error) {
	if r == nil || r.base == nil || r.provider == nil {
		return domain.Shipment{}, errors.New("shipment repository not initialised")
	}
	if strings.TrimSpace(shipment.ID) == "" {
		return domain.Shipment{}, errors.New("shipment repository: id is required")
	}

	doc := fromDomainShipment(shipment)
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.base.DocumentRef(ctx, shipment.ID)
		if err != nil {
			return err
		}
		snap, err := tx.Get(ref)
		if err != nil {
			return pfirestore.WrapError("shipments.update", err)
		}
		stored, err := r.base.Decode(ctx, snap)
		if err != nil {
			return fmt.Errorf("shipment repository: decode %s: %w", shipment.ID, err)
		}
		if stored.Data.Version != expectedVersion {
			return pfirestore.NewConflictError("shipments.update",
				fmt.Errorf("version %d does not match expected %d", stored.Data.Version, expectedVersion))
		}
		return tx.Set(ref, doc)
	})
	if err != nil {
		return domain.Shipment{}, err
	}
	return toDomainShipment(shipment.ID, doc), nil
}

// FindByID loads a shipment by document ID.
func (r *ShipmentRepository) FindByID(ctx context.Context, shipmentID string) (domain.Shipment, error) {
	if r == nil || r.base == nil {
		return domain.Shipment{}, errors.New("shipment repository not initialised")
	}
	if strings.TrimSpace(shipmentID) == "" {
		return domain.Shipment{}, errors.New("shipment repository: id is required")
	}

	doc, err := r.base.Get(ctx, shipmentID)
	if err != nil {
		return domain.Shipment{}, err
	}
	return toDomainShipment(doc.ID, doc.Data), nil
}

// List returns shipments matching the filter ordered by most recent creation.
func (r *ShipmentRepository) List(ctx context.Context, filter repositories.ShipmentListFilter) (domain.CursorPage[domain.Shipment], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Shipment]{}, errors.New("shipment repository not initialised")
	}

	limit := filter.Pagination.PageSize
	if limit < 0 {
		limit = 0
	}
	fetchLimit := limit
	if limit > 0 {
		fetchLimit = limit + 1
	}

	var startAfter []any
	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		tokenTime, tokenID, err := decodeListToken(token)
		if err != nil {
			return domain.CursorPage[domain.Shipment]{}, fmt.Errorf("shipment repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	customerRef := strings.TrimSpace(filter.CustomerRef)
	statusFilter := strings.TrimSpace(filter.Status)

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if customerRef != "" {
			q = q.Where("customerRef", "==", customerRef)
		}
		if statusFilter != "" {
			q = q.Where("status", "==", statusFilter)
		}
		if filter.DateRange.From != nil {
			q = q.Where("createdAt", ">=", filter.DateRange.From.UTC())
		}
		if filter.DateRange.To != nil {
			q = q.Where("createdAt", "<", filter.DateRange.To.UTC())
		}

		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if len(startAfter) == 2 {
			q = q.StartAfter(startAfter...)
		}
		if fetchLimit > 0 {
			q = q.Limit(fetchLimit)
		}
		return q
	})
	if err != nil {
		return domain.CursorPage[domain.Shipment]{}, err
	}

	valueDocs := docs
	nextToken := ""
	if limit > 0 && len(valueDocs) == fetchLimit {
		last := valueDocs[len(valueDocs)-1]
		tokenTime := last.Data.CreatedAt
		if tokenTime.IsZero() {
			tokenTime = last.CreateTime
		}
		nextToken = encodeListToken(tokenTime, last.ID)
		valueDocs = valueDocs[:len(valueDocs)-1]
	}

	items := make([]domain.Shipment, 0, len(valueDocs))
	for _, doc := range valueDocs {
		items = append(items, toDomainShipment(doc.ID, doc.Data))
	}

	return domain.CursorPage[domain.Shipment]{
		Items:         items,
		NextPageToken: nextToken,
	}, nil
}

type shipmentDocument struct {
	TrackingCode  string                 `firestore:"trackingCode"`
	CustomerRef   string                 `firestore:"customerRef,omitempty"`
	Shipper       contactDocument        `firestore:"shipper"`
	Consignee     contactDocument        `firestore:"consignee"`
	Boxes         []boxDocument          `firestore:"boxes"`
	Items         []shipmentItemDocument `firestore:"items"`
	PaymentMethod string                 `firestore:"paymentMethod,omitempty"`
	Currency      string                 `firestore:"currency"`
	FreightAmount float64                `firestore:"freightAmount"`
	OtherCharges  float64                `firestore:"otherCharges"`
	TotalAmount   float64                `firestore:"totalAmount"`
	Status        string                 `firestore:"status"`
	Version       int64                  `firestore:"version"`
	CreatedBy     string                 `firestore:"createdBy,omitempty"`
	UpdatedBy     string                 `firestore:"updatedBy,omitempty"`
	CreatedAt     time.Time              `firestore:"createdAt"`
	UpdatedAt     time.Time              `firestore:"updatedAt"`
}

type contactDocument struct {
	Name    string `firestore:"name"`
	Company string `firestore:"company,omitempty"`
	Phone   string `firestore:"phone,omitempty"`
	Email   string `firestore:"email,omitempty"`
	Address string `firestore:"address,omitempty"`
	City    string `firestore:"city,omitempty"`
	Country string `firestore:"country,omitempty"`
	Postal  string `firestore:"postal,omitempty"`
}

type boxDocument struct {
	LengthCm float64 `firestore:"lengthCm"`
	WidthCm  float64 `firestore:"widthCm"`
	HeightCm float64 `firestore:"heightCm"`
	WeightKg float64 `firestore:"weightKg"`
	Count    int     `firestore:"count"`
}

type shipmentItemDocument struct {
	Description string  `firestore:"description"`
	Quantity    int     `firestore:"quantity"`
	UnitValue   float64 `firestore:"unitValue"`
	HSCode      string  `firestore:"hsCode,omitempty"`
}

func fromDomainShipment(s domain.Shipment) shipmentDocument {
	boxes := make([]boxDocument, 0, len(s.Boxes))
	for _, b := range s.Boxes {
		boxes = append(boxes, boxDocument(b))
	}
	items := make([]shipmentItemDocument, 0, len(s.Items))
	for _, item := range s.Items {
		items = append(items, shipmentItemDocument(item))
	}

	return shipmentDocument{
		TrackingCode:  s.TrackingCode,
		CustomerRef:   s.CustomerRef,
		Shipper:       contactDocument(s.Shipper),
		Consignee:     contactDocument(s.Consignee),
		Boxes:         boxes,
		Items:         items,
		PaymentMethod: s.PaymentMethod,
		Currency:      s.Currency,
		FreightAmount: s.FreightAmount,
		OtherCharges:  s.OtherCharges,
		TotalAmount:   s.TotalAmount,
		Status:        s.Status,
		Version:       s.Version,
		CreatedBy:     s.CreatedBy,
		UpdatedBy:     s.UpdatedBy,
		CreatedAt:     s.CreatedAt.UTC(),
		UpdatedAt:     s.UpdatedAt.UTC(),
	}
}

func toDomainShipment(id string, doc shipmentDocument) domain.Shipment {
	boxes := make([]domain.ShipmentBox, 0, len(doc.Boxes))
	for _, b := range doc.Boxes {
		boxes = append(boxes, domain.ShipmentBox(b))
	}
	items := make([]domain.ShipmentItem, 0, len(doc.Items))
	for _, item := range doc.Items {
		items = append(items, domain.ShipmentItem(item))
	}

	return domain.Shipment{
		ID:            id,
		TrackingCode:  doc.TrackingCode,
		CustomerRef:   doc.CustomerRef,
		Shipper:       domain.ContactBlock(doc.Shipper),
		Consignee:     domain.ContactBlock(doc.Consignee),
		Boxes:         boxes,
		Items:         items,
		PaymentMethod: doc.PaymentMethod,
		Currency:      doc.Currency,
		FreightAmount: doc.FreightAmount,
		OtherCharges:  doc.OtherCharges,
		TotalAmount:   doc.TotalAmount,
		Status:        doc.Status,
		Version:       doc.Version,
		CreatedBy:     doc.CreatedBy,
		UpdatedBy:     doc.UpdatedBy,
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
	}
}
