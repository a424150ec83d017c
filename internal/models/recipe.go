package models

import (
	"time"

	"tero-backend/internal/costing"

	"gorm.io/gorm"
)

type Recipe struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	Name        string           `gorm:"size:150;not null;index" json:"name"`
	IsSubRecipe bool             `gorm:"not null;index" json:"is_sub_recipe"`
	Description string           `gorm:"size:500" json:"description"`
	Lines       []RecipeLineItem `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// RecipeLineItem stores its reference as two nullable keys; exactly one is set.
// Use Ref/SetRef instead of touching the columns directly.
type RecipeLineItem struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	RecipeID     uint        `gorm:"index;not null" json:"recipe_id"`
	IngredientID *uint       `gorm:"index" json:"ingredient_id"`
	Ingredient   *Ingredient `gorm:"foreignKey:IngredientID;constraint:OnDelete:RESTRICT" json:"-"`
	SubRecipeID  *uint       `gorm:"index" json:"sub_recipe_id"`
	SubRecipe    *Recipe     `gorm:"foreignKey:SubRecipeID;constraint:OnDelete:RESTRICT" json:"-"`
	Quantity     float64     `gorm:"not null" json:"quantity"`
	Note         string      `gorm:"size:255" json:"note"`
	Position     int         `gorm:"not null;default:0" json:"position"`
}

func (l *RecipeLineItem) Ref() (costing.Ref, error) {
	return costing.RefFromColumns(l.IngredientID, l.SubRecipeID)
}

func (l *RecipeLineItem) SetRef(ref costing.Ref) {
	l.IngredientID, l.SubRecipeID = costing.Columns(ref)
}

func (l *RecipeLineItem) BeforeSave(tx *gorm.DB) error {
	ref, err := l.Ref()
	if err != nil {
		return err
	}
	return costing.ValidateLineItem(l.RecipeID, ref, l.Quantity)
}

// LineItem converts the row for the cost calculator.
func (l *RecipeLineItem) LineItem() (costing.LineItem, error) {
	ref, err := l.Ref()
	if err != nil {
		return costing.LineItem{}, err
	}
	return costing.LineItem{ID: l.ID, Ref: ref, Quantity: l.Quantity}, nil
}
