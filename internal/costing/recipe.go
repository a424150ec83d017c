package costing

// PriceLookup returns the final cost of an ingredient's most recent price observation.
// ok is false when the ingredient has never been priced.
type PriceLookup interface {
	LatestFinalCost(ingredientID uint) (cost float64, ok bool)
}

// LineLookup returns a recipe's line items in display order.
type LineLookup interface {
	LineItems(recipeID uint) []LineItem
}

// Calculator resolves recipe costs from already-fetched price and line data.
// Sub-recipes are expanded exactly one level: a sub-recipe's own sub-recipe
// lines contribute nothing.
type Calculator struct {
	Prices PriceLookup
	Lines  LineLookup
}

func NewCalculator(prices PriceLookup, lines LineLookup) *Calculator {
	return &Calculator{Prices: prices, Lines: lines}
}

// LineCost is one resolved line of a recipe breakdown.
type LineCost struct {
	Item     LineItem
	UnitCost float64
	Total    float64
	Share    float64 // percent of the recipe total
	HasPrice bool
}

// RecipeCost sums every line of recipeID, expanding sub-recipes one level.
func (c *Calculator) RecipeCost(recipeID uint) float64 {
	total := 0.0
	for _, item := range c.Lines.LineItems(recipeID) {
		unit, _ := c.unitCost(item.Ref)
		total += item.Quantity * unit
	}
	return total
}

// Breakdown resolves each line of recipeID and its share of the total.
func (c *Calculator) Breakdown(recipeID uint) ([]LineCost, float64) {
	items := c.Lines.LineItems(recipeID)
	lines := make([]LineCost, 0, len(items))
	total := 0.0
	for _, item := range items {
		unit, priced := c.unitCost(item.Ref)
		lc := LineCost{Item: item, UnitCost: unit, Total: item.Quantity * unit, HasPrice: priced}
		total += lc.Total
		lines = append(lines, lc)
	}
	if total > 0 {
		for i := range lines {
			lines[i].Share = lines[i].Total / total * 100
		}
	}
	return lines, total
}

func (c *Calculator) unitCost(ref Ref) (float64, bool) {
	switch r := ref.(type) {
	case IngredientRef:
		return c.ingredientUnitCost(r.IngredientID)
	case SubRecipeRef:
		return c.subRecipeUnitCost(r.RecipeID), true
	}
	return 0, false
}

// ingredientUnitCost degrades a missing price to zero.
func (c *Calculator) ingredientUnitCost(ingredientID uint) (float64, bool) {
	cost, ok := c.Prices.LatestFinalCost(ingredientID)
	if !ok {
		return 0, false
	}
	return cost, true
}

// subRecipeUnitCost is the non-recursive expansion: only ingredient lines of
// the sub-recipe are priced.
func (c *Calculator) subRecipeUnitCost(recipeID uint) float64 {
	total := 0.0
	for _, item := range c.Lines.LineItems(recipeID) {
		if ing, ok := item.Ref.(IngredientRef); ok {
			unit, _ := c.ingredientUnitCost(ing.IngredientID)
			total += item.Quantity * unit
		}
	}
	return total
}

// Book is an in-memory snapshot satisfying both lookups.
type Book struct {
	finalCosts map[uint]float64
	lines      map[uint][]LineItem
}

func NewBook() *Book {
	return &Book{
		finalCosts: make(map[uint]float64),
		lines:      make(map[uint][]LineItem),
	}
}

func (b *Book) SetPrice(ingredientID uint, finalCost float64) {
	b.finalCosts[ingredientID] = finalCost
}

func (b *Book) AddLine(recipeID uint, item LineItem) {
	b.lines[recipeID] = append(b.lines[recipeID], item)
}

func (b *Book) LatestFinalCost(ingredientID uint) (float64, bool) {
	cost, ok := b.finalCosts[ingredientID]
	return cost, ok
}

func (b *Book) LineItems(recipeID uint) []LineItem {
	return b.lines[recipeID]
}

// Calculator returns a calculator reading from the snapshot.
func (b *Book) Calculator() *Calculator {
	return NewCalculator(b, b)
}

var (
	_ PriceLookup = (*Book)(nil)
	_ LineLookup  = (*Book)(nil)
)
