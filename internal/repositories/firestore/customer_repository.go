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

const customerCollection = "customers"

// CustomerRepository persists customer master records in Firestore.
type CustomerRepository struct {
	base     *pfirestore.BaseRepository[customerDocument]
	provider *pfirestore.Provider
}

// NewCustomerRepository constructs a Firestore-backed customer repository.
func NewCustomerRepository(provider *pfirestore.Provider) (*CustomerRepository, error) {
	if provider == nil {
		return nil, errors.New("customer repository requires firestore provider")
	}

	base := pfirestore.NewBaseRepository[customerDocument](provider, customerCollection, nil, nil)
	return &CustomerRepository{base: base, provider: provider}, nil
}

// Insert writes a new customer, failing when the ID already exists.
func (r *CustomerRepository) Insert(ctx context.Context, customer domain.Customer) error {
	if r == nil || r.base == nil {
		return errors.New("customer repository not initialised")
	}
	if strings.TrimSpace(customer.ID) == "" {
		return errors.New("customer repository: id is required")
	}

	_, err := r.base.Create(ctx, customer.ID, fromDomainCustomer(customer))
	return err
}

// Update replaces the stored customer after verifying the expected version inside a transaction.
func (r *CustomerRepository) Update(ctx context.Context, customer domain.Customer, expectedVersion int64) (domain.Customer, error) {
	if r == nil || r.base == nil || r.provider == nil {
		return domain.Customer{}, errors.New("customer repository not initialised")
	}
	if strings.TrimSpace(customer.ID) == "" {
		return domain.Customer{}, errors.New("customer repository: id is required")
	}

	doc := fromDomainCustomer(customer)
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.base.DocumentRef(ctx, customer.ID)
		if err != nil {
			return err
		}
		snap, err := tx.Get(ref)
		if err != nil {
			return pfirestore.WrapError("customers.update", err)
		}
		stored, err := r.base.Decode(ctx, snap)
		if err != nil {
			return fmt.Errorf("customer repository: decode %s: %w", customer.ID, err)
		}
		if stored.Data.Version != expectedVersion {
			return pfirestore.NewConflictError("customers.update",
				fmt.Errorf("version %d does not match expected %d", stored.Data.Version, expectedVersion))
		}
		return tx.Set(ref, doc)
	})
	if err != nil {
		return domain.Customer{}, err
	}
	return toDomainCustomer(customer.ID, doc), nil
}

// FindByID loads a customer by document ID.
func (r *CustomerRepository) FindByID(ctx context.Context, customerID string) (domain.Customer, error) {
	if r == nil || r.base == nil {
		return domain.Customer{}, errors.New("customer repository not initialised")
	}
	if strings.TrimSpace(customerID) == "" {
		return domain.Customer{}, errors.New("customer repository: id is required")
	}

	doc, err := r.base.Get(ctx, customerID)
	if err != nil {
		return domain.Customer{}, err
	}
	return toDomainCustomer(doc.ID, doc.Data), nil
}

// List returns customers ordered by name. Search narrows results to names
// beginning with the given prefix, matched case-insensitively.
func (r *CustomerRepository) List(ctx context.Context, filter repositories.CustomerListFilter) (domain.CursorPage[domain.Customer], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Customer]{}, errors.New("customer repository not initialised")
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
		tokenName, tokenID, err := decodeCustomerListToken(token)
		if err != nil {
			return domain.CursorPage[domain.Customer]{}, fmt.Errorf("customer repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenName, tokenID}
	}

	search := strings.ToLower(strings.TrimSpace(filter.Search))

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if search != "" {
			q = q.Where("nameLower", ">=", search).Where("nameLower", "<=", search+"")
		}

		q = q.OrderBy("nameLower", firestore.Asc).OrderBy(firestore.DocumentID, firestore.Asc)
		if len(startAfter) == 2 {
			q = q.StartAfter(startAfter...)
		}
		if fetchLimit > 0 {
			q = q.Limit(fetchLimit)
		}
		return q
	})
	if err != nil {
		return domain.CursorPage[domain.Customer]{}, err
	}

	valueDocs := docs
	nextToken := ""
	if limit > 0 && len(valueDocs) == fetchLimit {
		last := valueDocs[len(valueDocs)-1]
		nextToken = encodeCustomerListToken(last.Data.NameLower, last.ID)
		valueDocs = valueDocs[:len(valueDocs)-1]
	}

	items := make([]domain.Customer, 0, len(valueDocs))
	for _, doc := range valueDocs {
		items = append(items, toDomainCustomer(doc.ID, doc.Data))
	}

	return domain.CursorPage[domain.Customer]{
		Items:         items,
		NextPageToken: nextToken,
	}, nil
}

type customerDocument struct {
	Name      string    `firestore:"name"`
	NameLower string    `firestore:"nameLower"`
	Company   string    `firestore:"company,omitempty"`
	Email     string    `firestore:"email,omitempty"`
	Phone     string    `firestore:"phone,omitempty"`
	Address   string    `firestore:"address,omitempty"`
	City      string    `firestore:"city,omitempty"`
	Country   string    `firestore:"country,omitempty"`
	TaxID     string    `firestore:"taxId,omitempty"`
	Version   int64     `firestore:"version"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func fromDomainCustomer(c domain.Customer) customerDocument {
	return customerDocument{
		Name:      c.Name,
		NameLower: strings.ToLower(c.Name),
		Company:   c.Company,
		Email:     c.Email,
		Phone:     c.Phone,
		Address:   c.Address,
		City:      c.City,
		Country:   c.Country,
		TaxID:     c.TaxID,
		Version:   c.Version,
		CreatedAt: c.CreatedAt.UTC(),
		UpdatedAt: c.UpdatedAt.UTC(),
	}
}

func toDomainCustomer(id string, doc customerDocument) domain.Customer {
	return domain.Customer{
		ID:        id,
		Name:      doc.Name,
		Company:   doc.Company,
		Email:     doc.Email,
		Phone:     doc.Phone,
		Address:   doc.Address,
		City:      doc.City,
		Country:   doc.Country,
		TaxID:     doc.TaxID,
		Version:   doc.Version,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

func encodeCustomerListToken(nameLower, docID string) string {
	payload := fmt.Sprintf("%s|%s", nameLower, docID)
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

func decodeCustomerListToken(token string) (string, string, error) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", "", err
	}
	parts := strings.SplitN(string(data), "|", 2)
	if len(parts) != 2 {
		return "", "", errors.New("invalid token structure")
	}
	return parts[0], parts[1], nil
}
