package services

import (
	"context"
	"time"

	domain "github.com/freightdesk/api/internal/domain"
	"github.com/freightdesk/api/internal/repositories"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Pagination         = domain.Pagination
	SortOrder          = domain.SortOrder
	TransportMode      = domain.TransportMode
	QuotationStatus    = domain.QuotationStatus
	Quotation          = domain.Quotation
	Package            = domain.Package
	Charge             = domain.Charge
	ChargeLine         = domain.ChargeLine
	PricingBreakdown   = domain.PricingBreakdown
	Shipment           = domain.Shipment
	ShipmentBox        = domain.ShipmentBox
	ShipmentItem       = domain.ShipmentItem
	ContactBlock       = domain.ContactBlock
	Customer           = domain.Customer
	Admin              = domain.Admin
	AdminRole          = domain.AdminRole
	DocumentKind       = domain.DocumentKind
	RenderedDocument   = domain.RenderedDocument
	SystemHealthReport = domain.SystemHealthReport
)

// QuotationService orchestrates the quotation lifecycle: pricing, numbering,
// status changes, and the customer-facing email side effect.
type QuotationService interface {
	CreateQuotation(ctx context.Context, cmd CreateQuotationCommand) (Quotation, error)
	GetQuotation(ctx context.Context, quotationID string) (Quotation, error)
	GetQuotationByNumber(ctx context.Context, quoteNumber string) (Quotation, error)
	ListQuotations(ctx context.Context, filter QuotationListFilter) (domain.CursorPage[Quotation], error)
	UpdateQuotation(ctx context.Context, cmd UpdateQuotationCommand) (Quotation, error)
	SetStatus(ctx context.Context, cmd QuotationStatusCommand) (Quotation, error)
	SendEmail(ctx context.Context, cmd SendQuotationEmailCommand) (Quotation, error)
	PriceQuotation(ctx context.Context, quotationID string) (PricingBreakdown, error)
}

// ShipmentService manages courier export records.
type ShipmentService interface {
	CreateShipment(ctx context.Context, cmd CreateShipmentCommand) (Shipment, error)
	GetShipment(ctx context.Context, shipmentID string) (Shipment, error)
	ListShipments(ctx context.Context, filter ShipmentListFilter) (domain.CursorPage[Shipment], error)
	UpdateShipment(ctx context.Context, cmd UpdateShipmentCommand) (Shipment, error)
}

// CustomerService manages the customer master records shipments and quotations reference.
type CustomerService interface {
	CreateCustomer(ctx context.Context, cmd CreateCustomerCommand) (Customer, error)
	GetCustomer(ctx context.Context, customerID string) (Customer, error)
	ListCustomers(ctx context.Context, filter CustomerListFilter) (domain.CursorPage[Customer], error)
	UpdateCustomer(ctx context.Context, cmd UpdateCustomerCommand) (Customer, error)
}

// AccountService handles back-office sign-up, password login, and token issuance.
type AccountService interface {
	Signup(ctx context.Context, cmd SignupCommand) (Admin, error)
	Login(ctx context.Context, cmd LoginCommand) (LoginResult, error)
	GetAdmin(ctx context.Context, adminID string) (Admin, error)
}

// DocumentService renders printable PDFs and hands back signed download links.
type DocumentService interface {
	RenderQuotationDocument(ctx context.Context, cmd QuotationDocumentCommand) (RenderedDocument, error)
	RenderShipmentLabel(ctx context.Context, cmd ShipmentLabelCommand) (RenderedDocument, error)
}

// SystemService surfaces readiness information for health endpoints.
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
}

// Filters reuse the repository definitions.
type (
	QuotationListFilter = repositories.QuotationListFilter
	ShipmentListFilter  = repositories.ShipmentListFilter
	CustomerListFilter  = repositories.CustomerListFilter
)

// Quotation commands ---------------------------------------------------------

type CreateQuotationCommand struct {
	Mode         TransportMode
	CustomerRef  string
	AgentRef     string
	Origin       string
	Destination  string
	ActualWeight float64
	Packages     []Package
	Charges      []Charge
	Notes        string
	ActorID      string
}

type UpdateQuotationCommand struct {
	QuotationID     string
	ExpectedVersion int64
	CustomerRef     *string
	AgentRef        *string
	Origin          *string
	Destination     *string
	ActualWeight    *float64
	Packages        []Package
	Charges         []Charge
	Notes           *string
	ActorID         string
}

type QuotationStatusCommand struct {
	QuotationID     string
	ExpectedVersion int64
	TargetStatus    QuotationStatus
	Reason          string
	ActorID         string
}

type SendQuotationEmailCommand struct {
	QuotationID     string
	ExpectedVersion int64
	Recipient       string
	Message         string
	ActorID         string
}

// Shipment commands ----------------------------------------------------------

type CreateShipmentCommand struct {
	CustomerRef   string
	Shipper       ContactBlock
	Consignee     ContactBlock
	Boxes         []ShipmentBox
	Items         []ShipmentItem
	PaymentMethod string
	Currency      string
	FreightAmount float64
	OtherCharges  float64
	ActorID       string
}

type UpdateShipmentCommand struct {
	ShipmentID      string
	ExpectedVersion int64
	Shipper         *ContactBlock
	Consignee       *ContactBlock
	Boxes           []ShipmentBox
	Items           []ShipmentItem
	PaymentMethod   *string
	Currency        *string
	FreightAmount   *float64
	OtherCharges    *float64
	Status          *string
	ActorID         string
}

// Customer commands ----------------------------------------------------------

type CreateCustomerCommand struct {
	Name    string
	Company string
	Email   string
	Phone   string
	Address string
	City    string
	Country string
	TaxID   string
	ActorID string
}

type UpdateCustomerCommand struct {
	CustomerID      string
	ExpectedVersion int64
	Name            *string
	Company         *string
	Email           *string
	Phone           *string
	Address         *string
	City            *string
	Country         *string
	TaxID           *string
	ActorID         string
}

// Account commands -----------------------------------------------------------

type SignupCommand struct {
	Email    string
	Name     string
	Password string
	Role     AdminRole
}

type LoginCommand struct {
	Email    string
	Password string
}

// LoginResult carries the issued bearer token alongside the authenticated account.
type LoginResult struct {
	Admin     Admin
	Token     string
	ExpiresAt time.Time
}

// Document commands ----------------------------------------------------------

type QuotationDocumentCommand struct {
	QuotationID string
	Kind        DocumentKind
	ActorID     string
}

type ShipmentLabelCommand struct {
	ShipmentID string
	ActorID    string
}
