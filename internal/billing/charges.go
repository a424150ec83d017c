// Package billing computes banquet event totals and payment balances.
package billing

import (
	"errors"

	"github.com/shopspring/decimal"
)

const MaxExtras = 3

var (
	ErrTooManyExtras  = errors.New("un evento admite como máximo 3 adicionales")
	ErrChargeType     = errors.New("tipo de adicional inválido (fijo o por_persona)")
	ErrNegativeGuests = errors.New("la cantidad de invitados no puede ser negativa")
	ErrNegativePrice  = errors.New("los precios no pueden ser negativos")
)

type ChargeType string

const (
	ChargeFlat    ChargeType = "fijo"
	ChargePerHead ChargeType = "por_persona"
)

func (t ChargeType) Valid() bool {
	return t == ChargeFlat || t == ChargePerHead
}

// ExtraCharge is an optional add-on line of an event. A zero Value means unused.
type ExtraCharge struct {
	Description string          `json:"description"`
	Value       decimal.Decimal `json:"value"`
	Type        ChargeType      `json:"type"`
}

// Charges holds every input that determines an event total.
type Charges struct {
	Adults     int
	Minors     int
	AdultPrice decimal.Decimal
	MinorPrice decimal.Decimal
	Extras     []ExtraCharge
}

func (c Charges) Guests() int {
	return c.Adults + c.Minors
}

// Validate is applied at the write boundary; Total never fails.
func (c Charges) Validate() error {
	if c.Adults < 0 || c.Minors < 0 {
		return ErrNegativeGuests
	}
	if c.AdultPrice.IsNegative() || c.MinorPrice.IsNegative() {
		return ErrNegativePrice
	}
	if len(c.Extras) > MaxExtras {
		return ErrTooManyExtras
	}
	for _, ex := range c.Extras {
		if ex.Value.IsZero() {
			continue
		}
		if !ex.Type.Valid() {
			return ErrChargeType
		}
	}
	return nil
}

// Base is adults*adult price + minors*minor price.
func (c Charges) Base() decimal.Decimal {
	adults := decimal.NewFromInt(int64(c.Adults)).Mul(c.AdultPrice)
	minors := decimal.NewFromInt(int64(c.Minors)).Mul(c.MinorPrice)
	return adults.Add(minors)
}

// ExtraAmount is what a single extra adds to the total. Per-head extras are
// multiplied by the full guest count; anything else is taken as flat.
func (c Charges) ExtraAmount(ex ExtraCharge) decimal.Decimal {
	if ex.Value.IsZero() {
		return decimal.Zero
	}
	if ex.Type == ChargePerHead {
		return ex.Value.Mul(decimal.NewFromInt(int64(c.Guests())))
	}
	return ex.Value
}

// Total is recomputed from scratch on every call.
func (c Charges) Total() decimal.Decimal {
	total := c.Base()
	for _, ex := range c.Extras {
		total = total.Add(c.ExtraAmount(ex))
	}
	return total
}
