package models

import (
	"errors"
	"time"

	"tero-backend/internal/costing"

	"gorm.io/gorm"
)

const (
	DefaultUnit   = "Kg"
	DefaultTaxPct = 21.0
)

var ErrNonPositivePrice = errors.New("el precio debe ser mayor a 0")

type Ingredient struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:150;not null;index" json:"name"`
	CategoryID   uint      `gorm:"index;not null" json:"category_id"`
	Category     Category  `gorm:"foreignKey:CategoryID;constraint:OnDelete:RESTRICT" json:"-"`
	SupplierID   *uint     `gorm:"index" json:"supplier_id"`
	Supplier     *Supplier `gorm:"foreignKey:SupplierID;constraint:OnDelete:SET NULL" json:"-"`
	Unit         string    `gorm:"size:20;not null" json:"unit"`
	PurchaseUnit string    `gorm:"size:50" json:"purchase_unit"`
	TaxPct       float64   `gorm:"not null" json:"tax_pct"`
	WastePct     float64   `gorm:"not null" json:"waste_pct"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (i *Ingredient) BeforeSave(tx *gorm.DB) error {
	return costing.ValidatePercentages(i.TaxPct, i.WastePct)
}

// Landed prices a raw amount with this ingredient's tax and waste.
func (i *Ingredient) Landed(price float64) costing.Landed {
	return costing.LandedCost(price, i.TaxPct, i.WastePct)
}

// PriceObservation is append-only. The derived costs are frozen with the
// percentages in force when it was recorded.
type PriceObservation struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	IngredientID uint      `gorm:"not null;index:idx_price_ingredient_date,priority:1" json:"ingredient_id"`
	Price        float64   `gorm:"not null" json:"price"`
	Date         time.Time `gorm:"not null;index:idx_price_ingredient_date,priority:2,sort:desc" json:"date"`
	UnitPrice    float64   `gorm:"not null" json:"unit_price"`
	CostWithTax  float64   `gorm:"not null" json:"cost_with_tax"`
	FinalCost    float64   `gorm:"not null" json:"final_cost"`
	CreatedAt    time.Time `json:"created_at"`
}

func (p *PriceObservation) BeforeCreate(tx *gorm.DB) error {
	if p.Price <= 0 {
		return ErrNonPositivePrice
	}
	return nil
}
