package services

import (
	"math"
	"strings"

	domain "github.com/freightdesk/api/internal/domain"
)

const (
	// volumetricDivisor converts cubic centimetres into volumetric kilograms
	// using the IATA air cargo convention.
	volumetricDivisor = 6000.0

	// ccfSurchargeRate is applied to the freight subtotal regardless of any
	// authored CCF row. An explicit CCF-named row only controls whether the
	// surcharge line is rendered; its own rate is intentionally ignored.
	ccfSurchargeRate = 0.02

	// taxRate is the fixed tax applied to the combined subtotal.
	taxRate = 0.18

	ccfNameFragment = "ccf"
)

// QuotationPricingEngine derives every monetary total for a quotation from its
// raw charge rows and package dimensions. It performs no I/O and holds no
// mutable state: pricing the same quotation twice yields identical results.
type QuotationPricingEngine struct{}

// NewQuotationPricingEngine constructs a pricing engine.
func NewQuotationPricingEngine() *QuotationPricingEngine {
	return &QuotationPricingEngine{}
}

// Price computes the full breakdown for the supplied quotation.
//
// Chargeable weight is max(actual weight, volumetric weight) where volumetric
// weight sums (L x W x H / 6000) x count over all packages. Freight rows are
// priced per kilogram against chargeable weight; CCF-named freight rows are
// excluded from the freight subtotal and instead drive a fixed 2% surcharge.
// Destination and clearance rows contribute their flat amounts. An 18% tax is
// applied to the combined subtotal.
func (e *QuotationPricingEngine) Price(q domain.Quotation) domain.PricingBreakdown {
	volumetric := VolumetricWeight(q.Packages)
	chargeable := math.Max(sanitizeNumeric(q.ActualWeight), volumetric)

	breakdown := domain.PricingBreakdown{
		VolumetricWeight: volumetric,
		ChargeableWeight: chargeable,
	}

	for _, charge := range q.Charges {
		switch charge.Type {
		case domain.ChargeTypeFreight:
			if isCCFCharge(charge.Name) {
				breakdown.SurchargeVisible = true
				continue
			}
			rate := sanitizeNumeric(charge.RatePerKg)
			line := domain.ChargeLine{
				Name:   charge.Name,
				Type:   domain.ChargeTypeFreight,
				Rate:   rate,
				Amount: rate * chargeable,
			}
			breakdown.FreightLines = append(breakdown.FreightLines, line)
			breakdown.FreightSubtotal += line.Amount
		case domain.ChargeTypeDestination:
			line := flatChargeLine(charge)
			breakdown.DestinationLines = append(breakdown.DestinationLines, line)
			breakdown.DestinationSubtotal += line.Amount
		case domain.ChargeTypeClearance:
			line := flatChargeLine(charge)
			breakdown.ClearanceLines = append(breakdown.ClearanceLines, line)
			breakdown.ClearanceSubtotal += line.Amount
		}
	}

	breakdown.SurchargeAmount = breakdown.FreightSubtotal * ccfSurchargeRate
	breakdown.FreightTotal = breakdown.FreightSubtotal + breakdown.SurchargeAmount
	breakdown.Subtotal = breakdown.FreightTotal + breakdown.DestinationSubtotal + breakdown.ClearanceSubtotal
	breakdown.TaxAmount = breakdown.Subtotal * taxRate
	breakdown.GrandTotal = breakdown.Subtotal + breakdown.TaxAmount

	return breakdown
}

// VolumetricWeight sums the volumetric kilograms over all packages. Missing or
// malformed dimension values contribute nothing.
func VolumetricWeight(packages []domain.Package) float64 {
	var total float64
	for _, pkg := range packages {
		count := pkg.Count
		if count <= 0 {
			continue
		}
		l := sanitizeNumeric(pkg.LengthCm)
		w := sanitizeNumeric(pkg.WidthCm)
		h := sanitizeNumeric(pkg.HeightCm)
		total += (l * w * h / volumetricDivisor) * float64(count)
	}
	return total
}

// ChargeableWeight returns the billed weight for the quotation.
func ChargeableWeight(actualWeight float64, packages []domain.Package) float64 {
	return math.Max(sanitizeNumeric(actualWeight), VolumetricWeight(packages))
}

func flatChargeLine(charge domain.Charge) domain.ChargeLine {
	return domain.ChargeLine{
		Name:   charge.Name,
		Type:   charge.Type,
		Amount: sanitizeNumeric(charge.Amount),
	}
}

func isCCFCharge(name string) bool {
	return strings.Contains(strings.ToLower(name), ccfNameFragment)
}

// sanitizeNumeric coerces negative, NaN, and infinite inputs to zero so a
// malformed charge row cannot poison the totals.
func sanitizeNumeric(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
