package models

import (
	"errors"
	"time"

	"tero-backend/internal/margin"

	"gorm.io/gorm"
)

const DefaultTargetMargin = 0.75

var ErrNegativeSalePrice = errors.New("el precio de carta no puede ser negativo")

type MenuSection struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Position int    `gorm:"not null;default:0" json:"position"`
}

// MenuItem is a dish on the menu backed by a recipe. Deleting deactivates it.
type MenuItem struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	RecipeID     uint        `gorm:"index;not null" json:"recipe_id"`
	Recipe       Recipe      `gorm:"foreignKey:RecipeID;constraint:OnDelete:RESTRICT" json:"-"`
	SectionID    uint        `gorm:"index;not null" json:"section_id"`
	Section      MenuSection `gorm:"foreignKey:SectionID;constraint:OnDelete:RESTRICT" json:"-"`
	Number       *int        `json:"number"`
	Name         string      `gorm:"size:150;not null" json:"name"`
	SalePrice    float64     `gorm:"not null" json:"sale_price"`
	TargetMargin float64     `gorm:"not null" json:"target_margin"`
	Active       bool        `gorm:"not null;index" json:"active"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

func (m *MenuItem) BeforeSave(tx *gorm.DB) error {
	if m.SalePrice < 0 {
		return ErrNegativeSalePrice
	}
	return margin.ValidateTargetMargin(m.TargetMargin)
}
