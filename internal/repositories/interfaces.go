package repositories

import (
	"context"
	"time"

	domain "github.com/freightdesk/api/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork allows grouping repository operations in a transactional boundary when supported.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// QuotationRepository persists quotations with optimistic version checks.
// Update implementations must reject writes whose version does not match the
// stored document and report the failure as a conflict.
type QuotationRepository interface {
	Insert(ctx context.Context, quotation domain.Quotation) error
	Update(ctx context.Context, quotation domain.Quotation, expectedVersion int64) (domain.Quotation, error)
	FindByID(ctx context.Context, quotationID string) (domain.Quotation, error)
	FindByQuoteNumber(ctx context.Context, quoteNumber string) (domain.Quotation, error)
	List(ctx context.Context, filter QuotationListFilter) (domain.CursorPage[domain.Quotation], error)
}

// ShipmentRepository persists courier export records.
type ShipmentRepository interface {
	Insert(ctx context.Context, shipment domain.Shipment) error
	Update(ctx context.Context, shipment domain.Shipment, expectedVersion int64) (domain.Shipment, error)
	FindByID(ctx context.Context, shipmentID string) (domain.Shipment, error)
	List(ctx context.Context, filter ShipmentListFilter) (domain.CursorPage[domain.Shipment], error)
}

// CustomerRepository persists customer master records.
type CustomerRepository interface {
	Insert(ctx context.Context, customer domain.Customer) error
	Update(ctx context.Context, customer domain.Customer, expectedVersion int64) (domain.Customer, error)
	FindByID(ctx context.Context, customerID string) (domain.Customer, error)
	List(ctx context.Context, filter CustomerListFilter) (domain.CursorPage[domain.Customer], error)
}

// AdminRepository stores back-office accounts keyed by ID with a unique email lookup.
type AdminRepository interface {
	Insert(ctx context.Context, admin domain.Admin) error
	Update(ctx context.Context, admin domain.Admin) error
	FindByID(ctx context.Context, adminID string) (domain.Admin, error)
	FindByEmail(ctx context.Context, email string) (domain.Admin, error)
}

// CounterRepository provides transaction-safe sequence numbers for quote numbering.
type CounterRepository interface {
	Next(ctx context.Context, counterID string, step int64) (int64, error)
	Configure(ctx context.Context, counterID string, cfg CounterConfig) error
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}

// Filter DTOs shared across repositories ------------------------------------

type QuotationListFilter struct {
	Mode        *domain.TransportMode
	Status      []string
	CustomerRef string
	DateRange   domain.RangeQuery[time.Time]
	Pagination  domain.Pagination
}

type ShipmentListFilter struct {
	CustomerRef string
	Status      string
	DateRange   domain.RangeQuery[time.Time]
	Pagination  domain.Pagination
}

type CustomerListFilter struct {
	Search     string
	Pagination domain.Pagination
}

// CounterConfig customises increment behaviour and bounds for a counter.
type CounterConfig struct {
	Step         int64
	MaxValue     *int64
	InitialValue *int64
}
