package billing

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrPaymentCategory = errors.New("concepto de pago inválido (pago, sena o ajuste_ipc)")
	ErrPaymentAmount   = errors.New("el monto del pago debe ser mayor a 0")
)

type PaymentCategory string

const (
	CategoryRegular             PaymentCategory = "pago"
	CategoryDeposit             PaymentCategory = "sena"
	CategoryInflationAdjustment PaymentCategory = "ajuste_ipc"
)

func (c PaymentCategory) Valid() bool {
	switch c {
	case CategoryRegular, CategoryDeposit, CategoryInflationAdjustment:
		return true
	}
	return false
}

type Payment struct {
	Amount   decimal.Decimal `json:"amount"`
	Category PaymentCategory `json:"category"`
	Date     time.Time       `json:"date"`
}

func ValidatePayment(p Payment) error {
	if !p.Category.Valid() {
		return ErrPaymentCategory
	}
	if !p.Amount.IsPositive() {
		return ErrPaymentAmount
	}
	return nil
}

// Balance is always derived from the payment history, never stored.
// Pending may be negative on overpayment.
type Balance struct {
	Total               decimal.Decimal `json:"total"`
	Paid                decimal.Decimal `json:"paid"`
	Deposits            decimal.Decimal `json:"deposits"`
	InflationAdjustment decimal.Decimal `json:"inflation_adjustment"`
	Pending             decimal.Decimal `json:"pending"`
}

// Summarize folds payments against the stored event total.
func Summarize(total decimal.Decimal, payments []Payment) Balance {
	b := Balance{
		Total:               total,
		Paid:                decimal.Zero,
		Deposits:            decimal.Zero,
		InflationAdjustment: decimal.Zero,
	}
	for _, p := range payments {
		switch p.Category {
		case CategoryRegular:
			b.Paid = b.Paid.Add(p.Amount)
		case CategoryDeposit:
			b.Paid = b.Paid.Add(p.Amount)
			b.Deposits = b.Deposits.Add(p.Amount)
		case CategoryInflationAdjustment:
			b.InflationAdjustment = b.InflationAdjustment.Add(p.Amount)
		}
	}
	b.Pending = b.Total.Add(b.InflationAdjustment).Sub(b.Paid)
	return b
}

func (b Balance) FullyPaid() bool {
	return !b.Pending.IsPositive()
}

// CollectedPercent is paid over total, clamped to [0, 100] for progress display.
func (b Balance) CollectedPercent() float64 {
	if !b.Total.IsPositive() {
		return 0
	}
	pct, _ := b.Paid.Div(b.Total).Mul(decimal.NewFromInt(100)).Float64()
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}
