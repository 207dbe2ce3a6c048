package domain

import (
	"time"
)

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// SortOrder indicates ascending or descending ordering for list queries.
type SortOrder string

const (
	// SortAsc sorts results in ascending order.
	SortAsc SortOrder = "asc"
	// SortDesc sorts results in descending order.
	SortDesc SortOrder = "desc"
)

// RangeQuery represents inclusive range filters for numeric or timestamp fields.
type RangeQuery[T comparable] struct {
	From *T
	To   *T
}

// CursorPage packages list results with an encoded next token.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}

// TransportMode distinguishes air cargo quotations from sea freight quotations.
type TransportMode string

const (
	// TransportModeAir marks quotations priced by chargeable air weight.
	TransportModeAir TransportMode = "air"
	// TransportModeSea marks sea freight quotations.
	TransportModeSea TransportMode = "sea"
)

// QuotationStatus describes the approval lifecycle of a quotation.
type QuotationStatus string

const (
	// QuotationStatusDraft is the state every quotation starts in.
	QuotationStatusDraft QuotationStatus = "draft"
	// QuotationStatusPending indicates the quotation was emailed to the customer.
	QuotationStatusPending QuotationStatus = "pending"
	// QuotationStatusApproved indicates the customer accepted the quotation.
	QuotationStatusApproved QuotationStatus = "approved"
	// QuotationStatusRejected indicates the customer declined the quotation.
	QuotationStatusRejected QuotationStatus = "rejected"
)

// ChargeType categorises a charge row; freight rows are priced per kilogram,
// destination and clearance rows carry flat amounts.
type ChargeType string

const (
	// ChargeTypeFreight is a per-kilogram charge against chargeable weight.
	ChargeTypeFreight ChargeType = "freight"
	// ChargeTypeDestination is a flat destination-side charge.
	ChargeTypeDestination ChargeType = "destination"
	// ChargeTypeClearance is a flat customs clearance charge.
	ChargeTypeClearance ChargeType = "clearance"
)

// Package records the dimensions of one package size within a quotation.
// Count is the number of identically sized packages.
type Package struct {
	LengthCm float64
	WidthCm  float64
	HeightCm float64
	Count    int
}

// Charge is a single priced line on a quotation. Freight rows use RatePerKg;
// destination and clearance rows use Amount.
type Charge struct {
	Name      string
	Type      ChargeType
	RatePerKg float64
	Amount    float64
}

// Quotation is a priced cargo offer to a customer. The Version field increases
// on every write and guards against stale concurrent updates.
type Quotation struct {
	ID           string
	QuoteNumber  string
	Mode         TransportMode
	CustomerRef  string
	AgentRef     string
	Origin       string
	Destination  string
	ActualWeight float64
	Packages     []Package
	Charges      []Charge
	Status       QuotationStatus
	Notes        string
	Version      int64
	EmailedAt    *time.Time
	CreatedBy    string
	UpdatedBy    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ContactBlock holds one party's details on a shipment document.
type ContactBlock struct {
	Name    string
	Company string
	Phone   string
	Email   string
	Address string
	City    string
	Country string
	Postal  string
}

// ShipmentBox captures the physical dimensions and weight of one box.
type ShipmentBox struct {
	LengthCm float64
	WidthCm  float64
	HeightCm float64
	WeightKg float64
	Count    int
}

// ShipmentItem describes the declared contents of a courier export.
type ShipmentItem struct {
	Description string
	Quantity    int
	UnitValue   float64
	HSCode      string
}

// Shipment is a courier export record. Status is free text and defaults to
// "Pending"; there is no enforced state machine.
type Shipment struct {
	ID            string
	TrackingCode  string
	CustomerRef   string
	Shipper       ContactBlock
	Consignee     ContactBlock
	Boxes         []ShipmentBox
	Items         []ShipmentItem
	PaymentMethod string
	Currency      string
	FreightAmount float64
	OtherCharges  float64
	TotalAmount   float64
	Status        string
	Version       int64
	CreatedBy     string
	UpdatedBy     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Customer is a party shipments and quotations reference.
type Customer struct {
	ID        string
	Name      string
	Company   string
	Email     string
	Phone     string
	Address   string
	City      string
	Country   string
	TaxID     string
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AdminRole restricts which operations an account may perform.
type AdminRole string

const (
	// AdminRoleAdmin grants full access to all back-office operations.
	AdminRoleAdmin AdminRole = "admin"
	// AdminRoleOperator grants day-to-day CRUD access without account management.
	AdminRoleOperator AdminRole = "operator"
)

// Admin is a back-office user account. PasswordHash is a bcrypt digest and is
// never serialised to API responses.
type Admin struct {
	ID           string
	Email        string
	Name         string
	Role         AdminRole
	PasswordHash string
	Disabled     bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DocumentKind enumerates printable documents the API renders.
type DocumentKind string

const (
	// DocumentKindInvoice is the customer-facing invoice for a quotation.
	DocumentKindInvoice DocumentKind = "invoice"
	// DocumentKindReceipt is the payment receipt for a quotation.
	DocumentKindReceipt DocumentKind = "receipt"
	// DocumentKindLabel is the address label for a shipment.
	DocumentKindLabel DocumentKind = "label"
)

// RenderedDocument references a generated PDF stored in the documents bucket.
type RenderedDocument struct {
	Kind        DocumentKind
	ObjectPath  string
	SignedURL   string
	SizeBytes   int64
	ContentType string
	ExpiresAt   time.Time
	GeneratedAt time.Time
}

// DependencyStatus reports one downstream dependency inside a health report.
type DependencyStatus struct {
	Name      string
	Healthy   bool
	Detail    string
	LatencyMs int64
	CheckedAt time.Time
}

// SystemHealthReport aggregates dependency checks for readiness probes.
type SystemHealthReport struct {
	Healthy      bool
	Dependencies []DependencyStatus
	GeneratedAt  time.Time
}
