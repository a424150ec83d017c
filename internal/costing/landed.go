package costing

import "errors"

// MaxWastePct is the exclusive upper bound for an ingredient's waste percentage.
const MaxWastePct = 100.0

var (
	ErrNegativeTax     = errors.New("el porcentaje de IVA no puede ser negativo")
	ErrWasteOutOfRange = errors.New("el porcentaje de merma debe estar entre 0 y 100")
)

// Landed holds the figures derived from one raw price observation.
// UnitPrice is the raw price as observed.
type Landed struct {
	UnitPrice   float64
	CostWithTax float64
	FinalCost   float64
}

// LandedCost applies tax then waste (both whole-number percentages) to a raw unit price.
// No rounding happens here.
func LandedCost(price, taxPct, wastePct float64) Landed {
	withTax := price * (1 + taxPct/100)
	return Landed{
		UnitPrice:   price,
		CostWithTax: withTax,
		FinalCost:   withTax * (1 + wastePct/100),
	}
}

// ValidatePercentages rejects tax/waste values that would distort or invert cost.
func ValidatePercentages(taxPct, wastePct float64) error {
	if taxPct < 0 {
		return ErrNegativeTax
	}
	if wastePct < 0 || wastePct >= MaxWastePct {
		return ErrWasteOutOfRange
	}
	return nil
}
