// Package margin classifies menu-item profitability against a target margin.
package margin

import (
	"errors"
	"sort"
)

// DefaultCriticalFactor: a realized margin below target*factor is critical.
const DefaultCriticalFactor = 0.8

var ErrTargetMargin = errors.New("el margen objetivo debe estar entre 0 y 1 (excluido)")

type Status string

const (
	StatusOK       Status = "OK"
	StatusAlert    Status = "ALERTA"
	StatusCritical Status = "CRITICO"
)

// Policy carries the tunable thresholds of the evaluator.
type Policy struct {
	CriticalFactor float64
}

func DefaultPolicy() Policy {
	return Policy{CriticalFactor: DefaultCriticalFactor}
}

// Evaluation is the result for one menu item. SuggestedPrice is nil when Status is OK.
type Evaluation struct {
	Cost           float64  `json:"cost"`
	SalePrice      float64  `json:"sale_price"`
	TargetMargin   float64  `json:"target_margin"`
	RealizedMargin float64  `json:"realized_margin"`
	Status         Status   `json:"status"`
	SuggestedPrice *float64 `json:"suggested_price,omitempty"`
}

// ValidateTargetMargin rejects targets outside [0, 1).
func ValidateTargetMargin(target float64) error {
	if target < 0 || target >= 1 {
		return ErrTargetMargin
	}
	return nil
}

// RealizedMargin is (price-cost)/price, or 0 when the price is not positive.
func RealizedMargin(cost, salePrice float64) float64 {
	if salePrice <= 0 {
		return 0
	}
	return (salePrice - cost) / salePrice
}

// SuggestedPrice is the price at which the realized margin equals target.
// Targets >= 1 have no such price and yield 0.
func SuggestedPrice(cost, target float64) float64 {
	if target >= 1 {
		return 0
	}
	return cost / (1 - target)
}

// Classify applies CRITICO, then ALERTA, then OK.
func (p Policy) Classify(realized, target float64) Status {
	switch {
	case realized < target*p.CriticalFactor:
		return StatusCritical
	case realized < target:
		return StatusAlert
	default:
		return StatusOK
	}
}

func (p Policy) Evaluate(cost, salePrice, target float64) Evaluation {
	realized := RealizedMargin(cost, salePrice)
	ev := Evaluation{
		Cost:           cost,
		SalePrice:      salePrice,
		TargetMargin:   target,
		RealizedMargin: realized,
		Status:         p.Classify(realized, target),
	}
	if ev.Status != StatusOK {
		suggested := SuggestedPrice(cost, target)
		ev.SuggestedPrice = &suggested
	}
	return ev
}

// Item pairs an evaluation with the menu item it belongs to.
type Item struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Evaluation
}

// Alerts keeps the items that are not OK, worst realized margin first, capped at limit.
// A limit <= 0 keeps all of them.
func Alerts(items []Item, limit int) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if it.Status != StatusOK {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RealizedMargin < out[j].RealizedMargin
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
