package domain

// ChargeLine is one computed row of a quotation pricing breakdown.
type ChargeLine struct {
	Name   string
	Type   ChargeType
	Rate   float64
	Amount float64
}

// PricingBreakdown captures every derived monetary figure for a quotation.
// All values are plain float64 in the quotation currency; rendering rounds to
// two decimal places.
type PricingBreakdown struct {
	VolumetricWeight    float64
	ChargeableWeight    float64
	FreightLines        []ChargeLine
	FreightSubtotal     float64
	SurchargeAmount     float64
	SurchargeVisible    bool
	FreightTotal        float64
	DestinationLines    []ChargeLine
	DestinationSubtotal float64
	ClearanceLines      []ChargeLine
	ClearanceSubtotal   float64
	Subtotal            float64
	TaxAmount           float64
	GrandTotal          float64
}
