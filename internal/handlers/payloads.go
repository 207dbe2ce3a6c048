package handlers

import (
	"net/http"
	"strings"
	"time"

	domain "github.com/freightdesk/api/internal/domain"
	"github.com/freightdesk/api/internal/platform/pagination"
)

// Shared payload shapes and helpers used across the handler files.

type packagePayload struct {
	LengthCm float64 `json:"length_cm"`
	WidthCm  float64 `json:"width_cm"`
	HeightCm float64 `json:"height_cm"`
	Count    int     `json:"count"`
}

type chargePayload struct {
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	RatePerKg float64 `json:"rate_per_kg,omitempty"`
	Amount    float64 `json:"amount,omitempty"`
}

type quotationPayload struct {
	ID           string           `json:"id"`
	QuoteNumber  string           `json:"quote_number"`
	Mode         string           `json:"mode"`
	CustomerRef  string           `json:"customer_ref,omitempty"`
	AgentRef     string           `json:"agent_ref,omitempty"`
	Origin       string           `json:"origin"`
	Destination  string           `json:"destination"`
	ActualWeight float64          `json:"actual_weight"`
	Packages     []packagePayload `json:"packages"`
	Charges      []chargePayload  `json:"charges"`
	Status       string           `json:"status"`
	Notes        string           `json:"notes,omitempty"`
	Version      int64            `json:"version"`
	EmailedAt    string           `json:"emailed_at,omitempty"`
	CreatedBy    string           `json:"created_by,omitempty"`
	UpdatedBy    string           `json:"updated_by,omitempty"`
	CreatedAt    string           `json:"created_at"`
	UpdatedAt    string           `json:"updated_at"`
}

type contactPayload struct {
	Name    string `json:"name"`
	Company string `json:"company,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
	Country string `json:"country,omitempty"`
	Postal  string `json:"postal,omitempty"`
}

type shipmentBoxPayload struct {
	LengthCm float64 `json:"length_cm"`
	WidthCm  float64 `json:"width_cm"`
	HeightCm float64 `json:"height_cm"`
	WeightKg float64 `json:"weight_kg"`
	Count    int     `json:"count"`
}

type shipmentItemPayload struct {
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitValue   float64 `json:"unit_value"`
	HSCode      string  `json:"hs_code,omitempty"`
}

type shipmentPayload struct {
	ID            string                `json:"id"`
	TrackingCode  string                `json:"tracking_code"`
	CustomerRef   string                `json:"customer_ref,omitempty"`
	Shipper       contactPayload        `json:"shipper"`
	Consignee     contactPayload        `json:"consignee"`
	Boxes         []shipmentBoxPayload  `json:"boxes"`
	Items         []shipmentItemPayload `json:"items"`
	PaymentMethod string                `json:"payment_method,omitempty"`
	Currency      string                `json:"currency,omitempty"`
	FreightAmount float64               `json:"freight_amount"`
	OtherCharges  float64               `json:"other_charges"`
	TotalAmount   float64               `json:"total_amount"`
	Status        string                `json:"status"`
	Version       int64                 `json:"version"`
	CreatedBy     string                `json:"created_by,omitempty"`
	UpdatedBy     string                `json:"updated_by,omitempty"`
	CreatedAt     string                `json:"created_at"`
	UpdatedAt     string                `json:"updated_at"`
}

type customerPayload struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Company   string `json:"company,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address,omitempty"`
	City      string `json:"city,omitempty"`
	Country   string `json:"country,omitempty"`
	TaxID     string `json:"tax_id,omitempty"`
	Version   int64  `json:"version"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type adminPayload struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	Disabled    bool   `json:"disabled"`
	LastLoginAt string `json:"last_login_at,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type documentPayload struct {
	Kind        string `json:"kind"`
	ObjectPath  string `json:"object_path"`
	SignedURL   string `json:"signed_url"`
	SizeBytes   int64  `json:"size_bytes"`
	ContentType string `json:"content_type"`
	ExpiresAt   string `json:"expires_at"`
	GeneratedAt string `json:"generated_at"`
}

func buildQuotationPayload(q domain.Quotation) quotationPayload {
	packages := make([]packagePayload, 0, len(q.Packages))
	for _, p := range q.Packages {
		packages = append(packages, packagePayload{
			LengthCm: p.LengthCm,
			WidthCm:  p.WidthCm,
			HeightCm: p.HeightCm,
			Count:    p.Count,
		})
	}
	charges := make([]chargePayload, 0, len(q.Charges))
	for _, c := range q.Charges {
		charges = append(charges, chargePayload{
			Name:      c.Name,
			Type:      string(c.Type),
			RatePerKg: c.RatePerKg,
			Amount:    c.Amount,
		})
	}
	return quotationPayload{
		ID:           q.ID,
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
		EmailedAt:    formatTimePtr(q.EmailedAt),
		CreatedBy:    q.CreatedBy,
		UpdatedBy:    q.UpdatedBy,
		CreatedAt:    formatTime(q.CreatedAt),
		UpdatedAt:    formatTime(q.UpdatedAt),
	}
}

func buildShipmentPayload(s domain.Shipment) shipmentPayload {
	boxes := make([]shipmentBoxPayload, 0, len(s.Boxes))
	for _, b := range s.Boxes {
		boxes = append(boxes, shipmentBoxPayload{
			LengthCm: b.LengthCm,
			WidthCm:  b.WidthCm,
			HeightCm: b.HeightCm,
			WeightKg: b.WeightKg,
			Count:    b.Count,
		})
	}
	items := make([]shipmentItemPayload, 0, len(s.Items))
	for _, it := range s.Items {
		items = append(items, shipmentItemPayload{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitValue:   it.UnitValue,
			HSCode:      it.HSCode,
		})
	}
	return shipmentPayload{
		ID:            s.ID,
		TrackingCode:  s.TrackingCode,
		CustomerRef:   s.CustomerRef,
		Shipper:       buildContactPayload(s.Shipper),
		Consignee:     buildContactPayload(s.Consignee),
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
		CreatedAt:     formatTime(s.CreatedAt),
		UpdatedAt:     formatTime(s.UpdatedAt),
	}
}

func buildContactPayload(c domain.ContactBlock) contactPayload {
	return contactPayload{
		Name:    c.Name,
		Company: c.Company,
		Phone:   c.Phone,
		Email:   c.Email,
		Address: c.Address,
		City:    c.City,
		Country: c.Country,
		Postal:  c.Postal,
	}
}

func buildCustomerPayload(c domain.Customer) customerPayload {
	return customerPayload{
		ID:        c.ID,
		Name:      c.Name,
		Company:   c.Company,
		Email:     c.Email,
		Phone:     c.Phone,
		Address:   c.Address,
		City:      c.City,
		Country:   c.Country,
		TaxID:     c.TaxID,
		Version:   c.Version,
		CreatedAt: formatTime(c.CreatedAt),
		UpdatedAt: formatTime(c.UpdatedAt),
	}
}

func buildAdminPayload(a domain.Admin) adminPayload {
	return adminPayload{
		ID:          a.ID,
		Email:       a.Email,
		Name:        a.Name,
		Role:        string(a.Role),
		Disabled:    a.Disabled,
		LastLoginAt: formatTimePtr(a.LastLoginAt),
		CreatedAt:   formatTime(a.CreatedAt),
		UpdatedAt:   formatTime(a.UpdatedAt),
	}
}

func buildDocumentPayload(doc domain.RenderedDocument) documentPayload {
	return documentPayload{
		Kind:        string(doc.Kind),
		ObjectPath:  doc.ObjectPath,
		SignedURL:   doc.SignedURL,
		SizeBytes:   doc.SizeBytes,
		ContentType: doc.ContentType,
		ExpiresAt:   formatTime(doc.ExpiresAt),
		GeneratedAt: formatTime(doc.GeneratedAt),
	}
}

func contactFromPayload(p contactPayload) domain.ContactBlock {
	return domain.ContactBlock{
		Name:    p.Name,
		Company: p.Company,
		Phone:   p.Phone,
		Email:   p.Email,
		Address: p.Address,
		City:    p.City,
		Country: p.Country,
		Postal:  p.Postal,
	}
}

func packagesFromPayload(payloads []packagePayload) []domain.Package {
	if payloads == nil {
		return nil
	}
	packages := make([]domain.Package, 0, len(payloads))
	for _, p := range payloads {
		packages = append(packages, domain.Package{
			LengthCm: p.LengthCm,
			WidthCm:  p.WidthCm,
			HeightCm: p.HeightCm,
			Count:    p.Count,
		})
	}
	return packages
}

func chargesFromPayload(payloads []chargePayload) []domain.Charge {
	if payloads == nil {
		return nil
	}
	charges := make([]domain.Charge, 0, len(payloads))
	for _, c := range payloads {
		charges = append(charges, domain.Charge{
			Name:      c.Name,
			Type:      domain.ChargeType(c.Type),
			RatePerKg: c.RatePerKg,
			Amount:    c.Amount,
		})
	}
	return charges
}

func boxesFromPayload(payloads []shipmentBoxPayload) []domain.ShipmentBox {
	if payloads == nil {
		return nil
	}
	boxes := make([]domain.ShipmentBox, 0, len(payloads))
	for _, b := range payloads {
		boxes = append(boxes, domain.ShipmentBox{
			LengthCm: b.LengthCm,
			WidthCm:  b.WidthCm,
			HeightCm: b.HeightCm,
			WeightKg: b.WeightKg,
			Count:    b.Count,
		})
	}
	return boxes
}

func itemsFromPayload(payloads []shipmentItemPayload) []domain.ShipmentItem {
	if payloads == nil {
		return nil
	}
	items := make([]domain.ShipmentItem, 0, len(payloads))
	for _, it := range payloads {
		items = append(items, domain.ShipmentItem{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitValue:   it.UnitValue,
			HSCode:      it.HSCode,
		})
	}
	return items
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func parsePagination(r *http.Request) (domain.Pagination, error) {
	params, err := pagination.FromRequest(r, pagination.Options{})
	if err != nil {
		return domain.Pagination{}, err
	}
	return domain.Pagination{
		PageSize:  params.PageSize,
		PageToken: params.PageToken,
	}, nil
}

func parseTimeParam(r *http.Request, name string) *time.Time {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &parsed
}
