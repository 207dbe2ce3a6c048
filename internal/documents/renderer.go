package documents

import (
	"fmt"
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/core/entity"
	"github.com/johnfercher/maroto/v2/pkg/props"

	domain "github.com/freightdesk/api/internal/domain"
)

var (
	headerBg  = &props.Color{Red: 33, Green: 37, Blue: 41}
	mutedGrey = &props.Color{Red: 100, Green: 100, Blue: 100}
	altBg     = &props.Color{Red: 248, Green: 249, Blue: 250}
)

// Renderer produces printable PDF documents for quotations and shipments.
type Renderer struct {
	companyName    string
	companyAddress string
	companyEmail   string
}

// RendererOption customises Renderer output.
type RendererOption func(*Renderer)

// WithCompanyDetails sets the letterhead block printed on every document.
func WithCompanyDetails(name, address, email string) RendererOption {
	return func(r *Renderer) {
		if strings.TrimSpace(name) != "" {
			r.companyName = strings.TrimSpace(name)
		}
		r.companyAddress = strings.TrimSpace(address)
		r.companyEmail = strings.TrimSpace(email)
	}
}

// NewRenderer constructs a Renderer with the default letterhead.
func NewRenderer(opts ...RendererOption) *Renderer {
	r := &Renderer{companyName: "FreightDesk"}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// RenderQuotation produces an invoice or receipt PDF for a priced quotation.
func (r *Renderer) RenderQuotation(kind domain.DocumentKind, quotation domain.Quotation, breakdown domain.PricingBreakdown) ([]byte, error) {
	title, err := quotationTitle(kind)
	if err != nil {
		return nil, err
	}

	m := maroto.New(pageConfig())

	r.addHeader(m, title, quotation.QuoteNumber)
	addQuotationMeta(m, quotation, breakdown)
	addChargeTable(m, breakdown)
	addTotals(m, breakdown)
	if kind == domain.DocumentKindReceipt {
		addReceiptFooter(m, breakdown)
	}
	addNotes(m, quotation.Notes)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate %s pdf: %w", kind, err)
	}
	return doc.GetBytes(), nil
}

// RenderShipmentLabel produces an address label PDF for a courier shipment.
func (r *Renderer) RenderShipmentLabel(shipment domain.Shipment) ([]byte, error) {
	m := maroto.New(pageConfig())

	r.addHeader(m, "SHIPMENT LABEL", shipment.TrackingCode)
	addAddressBlocks(m, shipment.Shipper, shipment.Consignee)
	addBoxSummary(m, shipment)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate label pdf: %w", err)
	}
	return doc.GetBytes(), nil
}

func quotationTitle(kind domain.DocumentKind) (string, error) {
	switch kind {
	case domain.DocumentKindInvoice:
		return "INVOICE", nil
	case domain.DocumentKindReceipt:
		return "RECEIPT", nil
	default:
		return "", fmt.Errorf("unsupported document kind %q", kind)
	}
}

func pageConfig() *entity.Config {
	return config.NewBuilder().
		WithOrientation(orientation.Vertical).
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).
		WithTopMargin(10).
		WithRightMargin(10).
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
			Size:    7,
			Color:   mutedGrey,
		}).
		Build()
}

func (r *Renderer) addHeader(m core.Maroto, title, reference string) {
	m.AddRows(
		row.New(10).Add(
			col.New(6).Add(
				text.New(r.companyName, props.Text{Size: 14, Style: fontstyle.Bold, Align: align.Left}),
			),
			col.New(6).Add(
				text.New(title, props.Text{Size: 14, Style: fontstyle.Bold, Align: align.Right, Color: headerBg}),
			),
		),
	)

	contact := joinNonEmpty([]string{r.companyAddress, r.companyEmail}, " | ")
	m.AddRows(
		row.New(8).Add(
			col.New(6).Add(
				text.New(contact, props.Text{Size: 8, Align: align.Left, Color: mutedGrey}),
			),
			col.New(6).Add(
				text.New(fmt.Sprintf("Ref: %s", reference), props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right}),
			),
		),
	)

	m.AddRows(row.New(3))
}

func addQuotationMeta(m core.Maroto, quotation domain.Quotation, breakdown domain.PricingBreakdown) {
	label := props.Text{Size: 7, Style: fontstyle.Bold, Align: align.Left, Color: mutedGrey}
	value := props.Text{Size: 8, Align: align.Left}

	m.AddRows(
		row.New(6).Add(
			col.New(3).Add(text.New("MODE", label)),
			col.New(3).Add(text.New("ROUTE", label)),
			col.New(3).Add(text.New("ACTUAL WEIGHT", label)),
			col.New(3).Add(text.New("CHARGEABLE WEIGHT", label)),
		),
		row.New(7).Add(
			col.New(3).Add(text.New(strings.ToUpper(string(quotation.Mode)), value)),
			col.New(3).Add(text.New(fmt.Sprintf("%s to %s", quotation.Origin, quotation.Destination), value)),
			col.New(3).Add(text.New(fmt.Sprintf("%.2f kg", quotation.ActualWeight), value)),
			col.New(3).Add(text.New(fmt.Sprintf("%.2f kg", breakdown.ChargeableWeight), value)),
		),
	)

	m.AddRows(row.New(3))
}

func addChargeTable(m core.Maroto, breakdown domain.PricingBreakdown) {
	headerText := props.Text{Size: 7, Style: fontstyle.Bold, Align: align.Center, Color: &props.Color{Red: 255, Green: 255, Blue: 255}}
	headerTextLeft := headerText
	headerTextLeft.Align = align.Left
	headerCell := props.Cell{BackgroundColor: headerBg}

	m.AddRows(
		row.New(8).Add(
			col.New(6).Add(text.New("Charge", headerTextLeft)).WithStyle(&headerCell),
			col.New(3).Add(text.New("Rate", headerText)).WithStyle(&headerCell),
			col.New(3).Add(text.New("Amount", headerText)).WithStyle(&headerCell),
		),
	)

	lines := make([]domain.ChargeLine, 0,
		len(breakdown.FreightLines)+len(breakdown.DestinationLines)+len(breakdown.ClearanceLines)+1)
	lines = append(lines, breakdown.FreightLines...)
	if breakdown.SurchargeVisible {
		lines = append(lines, domain.ChargeLine{Name: "CCF surcharge", Amount: breakdown.SurchargeAmount})
	}
	lines = append(lines, breakdown.DestinationLines...)
	lines = append(lines, breakdown.ClearanceLines...)

	for i, line := range lines {
		bodyText := props.Text{Size: 8, Align: align.Left}
		amountText := props.Text{Size: 8, Align: align.Right}

		rate := ""
		if line.Rate != 0 {
			rate = fmt.Sprintf("%.2f/kg", line.Rate)
		}

		tableRow := row.New(7).Add(
			col.New(6).Add(text.New(line.Name, bodyText)),
			col.New(3).Add(text.New(rate, amountText)),
			col.New(3).Add(text.New(fmt.Sprintf("%.2f", line.Amount), amountText)),
		)
		if i%2 == 1 {
			tableRow.WithStyle(&props.Cell{BackgroundColor: altBg})
		}
		m.AddRows(tableRow)
	}

	m.AddRows(row.New(3))
}

func addTotals(m core.Maroto, breakdown domain.PricingBreakdown) {
	label := props.Text{Size: 8, Style: fontstyle.Bold, Align: align.Right}
	value := props.Text{Size: 8, Align: align.Right}

	totals := []struct {
		name   string
		amount float64
	}{
		{"Freight total", breakdown.FreightTotal},
		{"Subtotal", breakdown.Subtotal},
		{"Tax", breakdown.TaxAmount},
	}
	for _, t := range totals {
		m.AddRows(
			row.New(6).Add(
				col.New(9).Add(text.New(t.name, label)),
				col.New(3).Add(text.New(fmt.Sprintf("%.2f", t.amount), value)),
			),
		)
	}

	m.AddRows(
		row.New(8).Add(
			col.New(9).Add(text.New("GRAND TOTAL", props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right})),
			col.New(3).Add(text.New(fmt.Sprintf("%.2f", breakdown.GrandTotal), props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right})),
		),
	)
}

func addReceiptFooter(m core.Maroto, breakdown domain.PricingBreakdown) {
	m.AddRows(
		row.New(3),
		row.New(8).Add(
			col.New(12).Add(text.New(
				fmt.Sprintf("Received with thanks the sum of %.2f.", breakdown.GrandTotal),
				props.Text{Size: 9, Style: fontstyle.Italic, Align: align.Left},
			)),
		),
	)
}

func addNotes(m core.Maroto, notes string) {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return
	}
	m.AddRows(
		row.New(3),
		row.New(6).Add(
			col.New(12).Add(text.New("NOTES", props.Text{Size: 7, Style: fontstyle.Bold, Align: align.Left, Color: mutedGrey})),
		),
		row.New(7).Add(
			col.New(12).Add(text.New(notes, props.Text{Size: 8, Align: align.Left})),
		),
	)
}

func addAddressBlocks(m core.Maroto, shipper, consignee domain.ContactBlock) {
	sectionLabel := props.Text{Size: 7, Style: fontstyle.Bold, Align: align.Left, Color: mutedGrey}
	boldValue := props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Left}
	value := props.Text{Size: 8, Align: align.Left}

	headerCell := &props.Cell{BackgroundColor: &props.Color{Red: 245, Green: 243, Blue: 239}}

	m.AddRows(
		row.New(7).Add(
			col.New(6).Add(text.New("FROM", sectionLabel)).WithStyle(headerCell),
			col.New(6).Add(text.New("TO", sectionLabel)).WithStyle(headerCell),
		),
		row.New(7).Add(
			col.New(6).Add(text.New(contactTitle(shipper), boldValue)),
			col.New(6).Add(text.New(contactTitle(consignee), boldValue)),
		),
		row.New(7).Add(
			col.New(6).Add(text.New(contactAddress(shipper), value)),
			col.New(6).Add(text.New(contactAddress(consignee), value)),
		),
		row.New(7).Add(
			col.New(6).Add(text.New(joinNonEmpty([]string{shipper.Phone, shipper.Email}, " | "), value)),
			col.New(6).Add(text.New(joinNonEmpty([]string{consignee.Phone, consignee.Email}, " | "), value)),
		),
	)

	m.AddRows(row.New(3))
}

func addBoxSummary(m core.Maroto, shipment domain.Shipment) {
	label := props.Text{Size: 7, Style: fontstyle.Bold, Align: align.Left, Color: mutedGrey}
	value := props.Text{Size: 9, Align: align.Left}

	totalWeight := 0.0
	for _, box := range shipment.Boxes {
		totalWeight += box.WeightKg * float64(box.Count)
	}
	pieces := 0
	for _, box := range shipment.Boxes {
		pieces += box.Count
	}

	m.AddRows(
		row.New(6).Add(
			col.New(4).Add(text.New("PIECES", label)),
			col.New(4).Add(text.New("WEIGHT", label)),
			col.New(4).Add(text.New("PAYMENT", label)),
		),
		row.New(8).Add(
			col.New(4).Add(text.New(fmt.Sprintf("%d", pieces), value)),
			col.New(4).Add(text.New(fmt.Sprintf("%.2f kg", totalWeight), value)),
			col.New(4).Add(text.New(shipment.PaymentMethod, value)),
		),
	)
}

func contactTitle(c domain.ContactBlock) string {
	return joinNonEmpty([]string{c.Name, c.Company}, ", ")
}

func contactAddress(c domain.ContactBlock) string {
	return joinNonEmpty([]string{c.Address, c.City, c.Postal, c.Country}, ", ")
}

func joinNonEmpty(parts []string, sep string) string {
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) != "" {
			out = append(out, strings.TrimSpace(part))
		}
	}
	return strings.Join(out, sep)
}
