package costing

import "errors"

var (
	ErrLineItemRef   = errors.New("la línea debe referenciar un insumo o una subreceta, no ambos")
	ErrSelfReference = errors.New("una receta no puede usarse como subreceta de sí misma")
	ErrQuantity      = errors.New("la cantidad debe ser mayor a 0")
)

// Ref is what a recipe line points at: exactly one of IngredientRef or SubRecipeRef.
type Ref interface {
	isRef()
}

type IngredientRef struct {
	IngredientID uint
}

type SubRecipeRef struct {
	RecipeID uint
}

func (IngredientRef) isRef() {}
func (SubRecipeRef) isRef()  {}

// LineItem is one ordered component of a recipe.
type LineItem struct {
	ID       uint
	Ref      Ref
	Quantity float64
}

// RefFromColumns builds a Ref out of the two nullable foreign keys used for storage.
// Zero ids count as unset.
func RefFromColumns(ingredientID, subRecipeID *uint) (Ref, error) {
	hasIngredient := ingredientID != nil && *ingredientID != 0
	hasSub := subRecipeID != nil && *subRecipeID != 0

	switch {
	case hasIngredient && !hasSub:
		return IngredientRef{IngredientID: *ingredientID}, nil
	case hasSub && !hasIngredient:
		return SubRecipeRef{RecipeID: *subRecipeID}, nil
	default:
		return nil, ErrLineItemRef
	}
}

// Columns is the inverse of RefFromColumns.
func Columns(ref Ref) (ingredientID, subRecipeID *uint) {
	switch r := ref.(type) {
	case IngredientRef:
		id := r.IngredientID
		return &id, nil
	case SubRecipeRef:
		id := r.RecipeID
		return nil, &id
	}
	return nil, nil
}

// ValidateLineItem checks a line before it is written under recipeID.
func ValidateLineItem(recipeID uint, ref Ref, quantity float64) error {
	if ref == nil {
		return ErrLineItemRef
	}
	if quantity <= 0 {
		return ErrQuantity
	}
	if sub, ok := ref.(SubRecipeRef); ok && recipeID != 0 && sub.RecipeID == recipeID {
		return ErrSelfReference
	}
	return nil
}
