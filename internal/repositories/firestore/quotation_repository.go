package firestore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/freightdesk/api/internal/domain"
	pfirestore "github.com/freightdesk/api/internal/platform/firestore"
	"github.com/freightdesk/api/internal/repositories"
)

const quotationCollection = "quotations"

// QuotationRepository persists quotations in Firestore with optimistic version checks.
type QuotationRepository struct {
	base     *pfirestore.BaseRepository[quotationDocument]
	provider *pfirestore.Provider
}

// NewQuotationRepository constructs a Firestore-backed quotation repository.
func NewQuotationRepository(provider *pfirestore.Provider) (*QuotationRepository, error) {
	if provider == nil {
		return nil, errors.New("quotation repository requires firestore provider")
	}

	base := pfirestore.NewBaseRepository[quotationDocument](provider, quotationCollection, nil, nil)
	return &QuotationRepository{base: base, provider: provider}, nil
}

// Insert writes a new quotation, failing when the ID already exists.
func (r *QuotationRepository) Insert(ctx context.Context, quotation domain.Quotation) error {
	if r == nil || r.base == nil {
		return errors.New("quotation repository not initialised")
	}
	if strings.TrimSpace(quotation.ID) == "" {
		return errors.New("quotation repository: id is required")
	}

	_, err := r.base.Create(ctx, quotation.ID, fromDomainQuotation(quotation))
	return err
}

// Update replaces the stored quotation after verifying the expected version
// inside a transaction. A mismatch is reported as a conflict.
func (r *QuotationRepository) Update(ctx context.Context, quotation domain.Quotation, expectedVersion int64) (domain.Quotation, error) {
	if r == nil || r.base == nil || r.provider == nil {
		return domain.Quotation{}, errors.New("quotation repository not initialised")
	}
	if strings.TrimSpace(quotation.ID) == "" {
		return domain.Quotation{}, errors.New("quotation repository: id is required")
	}

	doc := fromDomainQuotation(quotation)
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.base.DocumentRef(ctx, quotation.ID)
		if err != nil {
			return err
		}
		snap, err := tx.Get(ref)
		if err != nil {
			return pfirestore.WrapError("quotations.update", err)
		}
		stored, err := r.base.Decode(ctx, snap)
		if err != nil {
			return fmt.Errorf("quotation repository: decode %s: %w", quotation.ID, err)
		}
		if stored.Data.Version != expectedVersion {
			return pfirestore.NewConflictError("quotations.update",
				fmt.Errorf("version %d does not match expected %d", stored.Data.Version, expectedVersion))
		}
		return tx.Set(ref, doc)
	})
	if err != nil {
		return domain.Quotation{}, err
	}
	return toDomainQuotation(quotation.ID, doc), nil
}

// FindByID loads a quotation by document ID.
func (r *QuotationRepository) FindByID(ctx context.Context, quotationID string) (domain.Quotation, error) {
	if r == nil || r.base == nil {
		return domain.Quotation{}, errors.New("quotation repository not initialised")
	}
	if strings.TrimSpace(quotationID) == "" {
		return domain.Quotation{}, errors.New("quotation repository: id is required")
	}

	doc, err := r.base.Get(ctx, quotationID)
	if err != nil {
		return domain.Quotation{}, err
	}
	return toDomainQuotation(doc.ID, doc.Data), nil
}

// FindByQuoteNumber loads a quotation by its assigned quote number.
func (r *QuotationRepository) FindByQuoteNumber(ctx context.Context, quoteNumber string) (domain.Quotation, error) {
	if r == nil || r.base == nil {
		return domain.Quotation{}, errors.New("quotation repository not initialised")
	}
	quoteNumber = strings.TrimSpace(quoteNumber)
	if quoteNumber == "" {
		return domain.Quotation{}, errors.New("quotation repository: quote number is required")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("quoteNumber", "==", quoteNumber).Limit(1)
	})
	if err != nil {
		return domain.Quotation{}, err
	}
	if len(docs) == 0 {
		return domain.Quotation{}, pfirestore.NewNotFoundError("quotations.find_by_number",
			fmt.Errorf("quote number %s not found", quoteNumber))
	}
	return toDomainQuotation(docs[0].ID, docs[0].Data), nil
}

// List returns quotations matching the filter ordered by most recent creation.
func (r *QuotationRepository) List(ctx context.Context, filter repositories.QuotationListFilter) (domain.CursorPage[domain.Quotation], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Quotation]{}, errors.New("quotation repository not initialised")
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
			return domain.CursorPage[domain.Quotation]{}, fmt.Errorf("quotation repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	statusFilters := normaliseValues(filter.Status)
	customerRef := strings.TrimSpace(filter.CustomerRef)

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if filter.Mode != nil {
			q = q.Where("mode", "==", string(*filter.Mode))
		}
		if len(statusFilters) == 1 {
			q = q.Where("status", "==", statusFilters[0])
		} else if len(statusFilters) > 1 {
			// Firestore in clause supports up to 10 values.
			if len(statusFilters) > 10 {
				statusFilters = statusFilters[:10]
			}
			q = q.Where("status", "in", statusFilters)
		}
		if customerRef != "" {
			q = q.Where("customerRef", "==", customerRef)
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
		return domain.CursorPage[domain.Quotation]{}, err
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

	items := make([]domain.Quotation, 0, len(valueDocs))
	for _, doc := range valueDocs {
		items = append(items, toDomainQuotation(doc.ID, doc.Data))
	}

	return domain.CursorPage[domain.Quotation]{
		Items:         items,
		NextPageToken: nextToken,
	}, nil
}

type quotationDocument struct {
	QuoteNumber  string             `firestore:"quoteNumber"`
	Mode         string             `firestore:"mode"`
	CustomerRef  string             `firestore:"customerRef"`
	AgentRef     string             `firestore:"agentRef,omitempty"`
	Origin       string             `firestore:"origin"`
	Destination  string             `firestore:"destination"`
	ActualWeight float64            `firestore:"actualWeight"`
	Packages     []packageDocument  `firestore:"packages"`
	Charges      []chargeDocument   `firestore:"charges"`
	Status       string             `firestore:"status"`
	Notes        string             `firestore:"notes,omitempty"`
	Version      int64              `firestore:"version"`
	EmailedAt    *time.Time         `firestore:"emailedAt,omitempty"`
	CreatedBy    string             `firestore:"createdBy,omitempty"`
	UpdatedBy    string             `firestore:"updatedBy,omitempty"`
	CreatedAt    time.Time          `firestore:"createdAt"`
	UpdatedAt    time.Time          `firestore:"updatedAt"`
}

type packageDocument struct {
	LengthCm float64 `firestore:"lengthCm"`
	WidthCm  float64 `firestore:"widthCm"`
	HeightCm float64 `firestore:"heightCm"`
	Count    int     `firestore:"count"`
}

type chargeDocument struct {
	Name      string  `firestore:"name"`
	Type      string  `firestore:"type"`
	RatePerKg float64 `firestore:"ratePerKg,omitempty"`
	Amount    float64 `firestore:"amount,omitempty"`
}

func fromDomainQuotation(q domain.Quotation) quotationDocument {
	packages := make([]packageDocument, 0, len(q.Packages))
	for _, p := range q.Packages {
		packages = append(packages, packageDocument(p))
	}
	charges := make([]chargeDocument, 0, len(q.Charges))
	for _, c := range q.Charges {
		charges = append(charges, chargeDocument{
			Name:      c.Name,
			Type:      string(c.Type),
			RatePerKg: c.RatePerKg,
			Amount:    c.Amount,
		})
	}

	return quotationDocument{
		QuoteNumber:  q.QuoteNumber,
		Mode:         string(q.Mode),
		CustomerRef:  q.CustomerRef,
		AgentRef:     q.AgentRef,
		Origin:       q.Origin,
		Destination:  q.Destination,
		ActualWeight: q.ActualWeight,
		Packages:     packages,
		Charges:      charges,
		Status:       string(q.Status),
		Notes:        q.Notes,
		Version:      q.Version,
		EmailedAt:    q.EmailedAt,
		CreatedBy:    q.CreatedBy,
		UpdatedBy:    q.UpdatedBy,
		CreatedAt:    q.CreatedAt.UTC(),
		UpdatedAt:    q.UpdatedAt.UTC(),
	}
}

func toDomainQuotation(id string, doc quotationDocument) domain.Quotation {
	packages := make([]domain.Package, 0, len(doc.Packages))
	for _, p := range doc.Packages {
		packages = append(packages, domain.Package(p))
	}
	charges := make([]domain.Charge, 0, len(doc.Charges))
	for _, c := range doc.Charges {
		charges = append(charges, domain.Charge{
			Name:      c.Name,
			Type:      domain.ChargeType(c.Type),
			RatePerKg: c.RatePerKg,
			Amount:    c.Amount,
		})
	}

	return domain.Quotation{
		ID:           id,
		QuoteNumber:  doc.QuoteNumber,
		Mode:         domain.TransportMode(doc.Mode),
		CustomerRef:  doc.CustomerRef,
		AgentRef:     doc.AgentRef,
		Origin:       doc.Origin,
		Destination:  doc.Destination,
		ActualWeight: doc.ActualWeight,
		Packages:     packages,
		Charges:      charges,
		Status:       domain.QuotationStatus(doc.Status),
		Notes:        doc.Notes,
		Version:      doc.Version,
		EmailedAt:    doc.EmailedAt,
		CreatedBy:    doc.CreatedBy,
		UpdatedBy:    doc.UpdatedBy,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}
}

func encodeListToken(createdAt time.Time, docID string) string {
	payload := fmt.Sprintf("%s|%s", createdAt.UTC().Format(time.RFC3339Nano), docID)
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

func decodeListToken(token string) (time.Time, string, error) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return time.Time{}, "", err
	}
	parts := strings.SplitN(string(data), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, "", errors.New("invalid token structure")
	}
	ts, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return time.Time{}, "", err
	}
	return ts, parts[1], nil
}

func normaliseValues(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	normalized := make([]string, 0, len(values))
	seen := make(map[string]struct{})
	for _, value := range values {
		trimmed := strings.ToLower(strings.TrimSpace(value))
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		normalized = append(normalized, trimmed)
	}
	return normalized
}
