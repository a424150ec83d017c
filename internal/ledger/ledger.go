// Package ledger joins stored data with the costing, margin and variation
// engines to produce the read models served by the API and the reports.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tero-backend/internal/costing"
	"tero-backend/internal/margin"
	"tero-backend/internal/models"
	"tero-backend/internal/storage"
	"tero-backend/internal/variation"

	"gorm.io/gorm"
)

type Service struct {
	Store     *storage.Store
	Policy    margin.Policy
	Variation variation.Config
	// TopN caps the margin alerts on the dashboard; <= 0 keeps all.
	TopN int
	Now  func() time.Time
}

func New(store *storage.Store, policy margin.Policy, vcfg variation.Config) *Service {
	return &Service{Store: store, Policy: policy, Variation: vcfg, TopN: vcfg.Limit, Now: time.Now}
}

type RecipeFilter struct {
	Search    string
	SubRecipe *bool
}

type RecipeView struct {
	models.Recipe
	Cost      float64 `json:"cost"`
	LineCount int     `json:"line_count"`
}

// Recipes lists recipes with their resolved cost, dishes before sub-recipes.
func (s *Service) Recipes(ctx context.Context, f RecipeFilter) ([]RecipeView, error) {
	q := s.Store.DB().WithContext(ctx).Model(&models.Recipe{})
	if f.Search != "" {
		q = q.Where("name ILIKE ?", "%"+f.Search+"%")
	}
	if f.SubRecipe != nil {
		q = q.Where("is_sub_recipe = ?", *f.SubRecipe)
	}
	var recipes []models.Recipe
	if err := q.Order("is_sub_recipe, name").Find(&recipes).Error; err != nil {
		return nil, fmt.Errorf("recetas: %w", err)
	}

	book, err := s.Store.LoadCostBook(ctx)
	if err != nil {
		return nil, err
	}
	calc := book.Calculator()

	out := make([]RecipeView, 0, len(recipes))
	for _, r := range recipes {
		out = append(out, RecipeView{
			Recipe:    r,
			Cost:      calc.RecipeCost(r.ID),
			LineCount: len(book.LineItems(r.ID)),
		})
	}
	return out, nil
}

type LineView struct {
	ID           uint    `json:"id"`
	IngredientID *uint   `json:"ingredient_id"`
	SubRecipeID  *uint   `json:"sub_recipe_id"`
	Name         string  `json:"name"`
	Unit         string  `json:"unit"`
	Quantity     float64 `json:"quantity"`
	Note         string  `json:"note"`
	Position     int     `json:"position"`
	UnitCost     float64 `json:"unit_cost"`
	Total        float64 `json:"total"`
	Share        float64 `json:"share_pct"`
	HasPrice     bool    `json:"has_price"`
}

type RecipeDetail struct {
	models.Recipe
	Cost  float64    `json:"cost"`
	Lines []LineView `json:"lines"`
}

// RecipeDetail resolves every line of one recipe with its share of the total.
func (s *Service) RecipeDetail(ctx context.Context, recipeID uint) (RecipeDetail, error) {
	var recipe models.Recipe
	if err := s.Store.DB().WithContext(ctx).First(&recipe, recipeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RecipeDetail{}, storage.ErrNotFound
		}
		return RecipeDetail{}, fmt.Errorf("receta %d: %w", recipeID, err)
	}

	rows, err := s.Store.LineItemsDetailed(ctx, recipeID)
	if err != nil {
		return RecipeDetail{}, err
	}
	book, err := s.Store.LoadCostBook(ctx)
	if err != nil {
		return RecipeDetail{}, err
	}

	costs, total := book.Calculator().Breakdown(recipeID)
	byLine := make(map[uint]costing.LineCost, len(costs))
	for _, lc := range costs {
		byLine[lc.Item.ID] = lc
	}

	lines := make([]LineView, 0, len(rows))
	for _, r := range rows {
		lc := byLine[r.ID]
		name, unit := r.IngredientName, r.IngredientUnit
		if r.SubRecipeID != nil {
			name, unit = r.SubRecipeName, "porción"
		}
		lines = append(lines, LineView{
			ID:           r.ID,
			IngredientID: r.IngredientID,
			SubRecipeID:  r.SubRecipeID,
			Name:         name,
			Unit:         unit,
			Quantity:     r.Quantity,
			Note:         r.Note,
			Position:     r.Position,
			UnitCost:     lc.UnitCost,
			Total:        lc.Total,
			Share:        lc.Share,
			HasPrice:     lc.HasPrice,
		})
	}
	return RecipeDetail{Recipe: recipe, Cost: total, Lines: lines}, nil
}

type MenuItemView struct {
	ID          uint   `json:"id"`
	RecipeID    uint   `json:"recipe_id"`
	RecipeName  string `json:"recipe_name"`
	SectionID   uint   `json:"section_id"`
	SectionName string `json:"section_name"`
	Number      *int   `json:"number"`
	Name        string `json:"name"`
	margin.Evaluation
}

// Menu evaluates every active menu item against its target margin.
func (s *Service) Menu(ctx context.Context, f storage.MenuFilter) ([]MenuItemView, error) {
	rows, err := s.Store.ActiveMenuItems(ctx, f)
	if err != nil {
		return nil, err
	}
	book, err := s.Store.LoadCostBook(ctx)
	if err != nil {
		return nil, err
	}
	return evaluateMenu(rows, book.Calculator(), s.Policy), nil
}

func evaluateMenu(rows []storage.MenuRow, calc *costing.Calculator, policy margin.Policy) []MenuItemView {
	out := make([]MenuItemView, 0, len(rows))
	for _, r := range rows {
		out = append(out, MenuItemView{
			ID:          r.ID,
			RecipeID:    r.RecipeID,
			RecipeName:  r.RecipeName,
			SectionID:   r.SectionID,
			SectionName: r.SectionName,
			Number:      r.Number,
			Name:        r.Name,
			Evaluation:  policy.Evaluate(calc.RecipeCost(r.RecipeID), r.SalePrice, r.TargetMargin),
		})
	}
	return out
}

type Dashboard struct {
	storage.Counts
	MenuItemsWithAlert int                   `json:"menu_items_with_alert"`
	Variations         []variation.Variation `json:"price_variations"`
	Alerts             []margin.Item         `json:"margin_alerts"`
	GeneratedAt        time.Time             `json:"generated_at"`
}

// Dashboard aggregates counts, significant price moves and the worst margins.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	now := s.Now()

	counts, err := s.Store.Counts(ctx)
	if err != nil {
		return Dashboard{}, err
	}

	since := s.Variation.Since(now)
	series, err := s.Store.PriceSeries(ctx, storage.SeriesFilter{Since: &since})
	if err != nil {
		return Dashboard{}, err
	}

	menu, err := s.Menu(ctx, storage.MenuFilter{})
	if err != nil {
		return Dashboard{}, err
	}
	items := make([]margin.Item, 0, len(menu))
	for _, m := range menu {
		items = append(items, margin.Item{ID: m.ID, Name: m.Name, Evaluation: m.Evaluation})
	}
	flagged := margin.Alerts(items, 0)

	return Dashboard{
		Counts:             counts,
		MenuItemsWithAlert: len(flagged),
		Variations:         variation.Detect(now, series, s.Variation),
		Alerts:             margin.Alerts(flagged, s.TopN),
		GeneratedAt:        now,
	}, nil
}
