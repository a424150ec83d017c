package storage

import (
	"context"
	"fmt"
	"time"

	"tero-backend/internal/models"
	"tero-backend/internal/variation"
)

type priceRow struct {
	ID           uint
	IngredientID uint
	Name         string
	Unit         string
	Price        float64
	Date         time.Time
}

// SeriesFilter narrows PriceSeries. A nil Since reads the whole history;
// PerIngredient <= 0 keeps every observation.
type SeriesFilter struct {
	Since         *time.Time
	PerIngredient int
}

// PriceSeries groups raw price observations by ingredient, newest first.
func (s *Store) PriceSeries(ctx context.Context, f SeriesFilter) ([]variation.Series, error) {
	sql := `
		SELECT id, ingredient_id, name, unit, price, date FROM (
			SELECT po.id, po.ingredient_id, i.name, i.unit, po.price, po.date,
			       ROW_NUMBER() OVER (PARTITION BY po.ingredient_id ORDER BY po.date DESC, po.id DESC) AS rn
			FROM price_observations po
			JOIN ingredients i ON i.id = po.ingredient_id
			WHERE (? OR po.date >= ?)
		) ranked
		WHERE (? OR rn <= ?)
		ORDER BY ingredient_id, rn`

	since := time.Time{}
	if f.Since != nil {
		since = *f.Since
	}
	var rows []priceRow
	if err := s.db.WithContext(ctx).
		Raw(sql, f.Since == nil, since, f.PerIngredient <= 0, f.PerIngredient).
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("series de precios: %w", err)
	}

	out := make([]variation.Series, 0)
	for _, r := range rows {
		if len(out) == 0 || out[len(out)-1].IngredientID != r.IngredientID {
			out = append(out, variation.Series{IngredientID: r.IngredientID, Name: r.Name, Unit: r.Unit})
		}
		last := &out[len(out)-1]
		last.Observations = append(last.Observations, variation.Observation{ID: r.ID, Price: r.Price, Date: r.Date})
	}
	return out, nil
}

// MenuRow is an active menu item joined with its recipe and section.
type MenuRow struct {
	models.MenuItem
	RecipeName      string
	SectionName     string
	SectionPosition int
}

type MenuFilter struct {
	SectionID uint
	Search    string
}

// ActiveMenuItems lists the menu ordered by section, number and name.
func (s *Store) ActiveMenuItems(ctx context.Context, f MenuFilter) ([]MenuRow, error) {
	q := s.db.WithContext(ctx).
		Table("menu_items AS m").
		Select("m.*, r.name AS recipe_name, s.name AS section_name, s.position AS section_position").
		Joins("LEFT JOIN recipes r ON r.id = m.recipe_id").
		Joins("LEFT JOIN menu_sections s ON s.id = m.section_id").
		Where("m.active = ?", true)

	if f.SectionID != 0 {
		q = q.Where("m.section_id = ?", f.SectionID)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		q = q.Where("(m.name ILIKE ? OR r.name ILIKE ?)", like, like)
	}

	var rows []MenuRow
	if err := q.Order("s.position, m.number NULLS LAST, m.name").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("carta: %w", err)
	}
	return rows, nil
}

type Counts struct {
	Ingredients         int64 `json:"ingredients"`
	Recipes             int64 `json:"recipes"`
	ActiveMenuItems     int64 `json:"active_menu_items"`
	UnpricedIngredients int64 `json:"unpriced_ingredients"`
}

func (s *Store) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.db.WithContext(ctx).Raw(`
		SELECT
			(SELECT COUNT(*) FROM ingredients) AS ingredients,
			(SELECT COUNT(*) FROM recipes) AS recipes,
			(SELECT COUNT(*) FROM menu_items WHERE active) AS active_menu_items,
			(SELECT COUNT(*) FROM ingredients i
			 WHERE NOT EXISTS (SELECT 1 FROM price_observations po WHERE po.ingredient_id = i.id)) AS unpriced_ingredients
	`).Scan(&c).Error
	if err != nil {
		return c, fmt.Errorf("totales: %w", err)
	}
	return c, nil
}

// EventsBetween loads events dated in [from, to) with their payments.
func (s *Store) EventsBetween(ctx context.Context, from, to time.Time) ([]models.Event, error) {
	var events []models.Event
	err := s.db.WithContext(ctx).
		Preload("Payments").
		Where("date >= ? AND date < ?", from, to).
		Order("date, start_time").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("eventos: %w", err)
	}
	return events, nil
}

// LineRow is a recipe line joined with the names of what it references.
type LineRow struct {
	models.RecipeLineItem
	IngredientName string
	IngredientUnit string
	SubRecipeName  string
}

func (s *Store) LineItemsDetailed(ctx context.Context, recipeID uint) ([]LineRow, error) {
	var rows []LineRow
	err := s.db.WithContext(ctx).
		Table("recipe_line_items AS l").
		Select("l.*, i.name AS ingredient_name, i.unit AS ingredient_unit, r.name AS sub_recipe_name").
		Joins("LEFT JOIN ingredients i ON i.id = l.ingredient_id").
		Joins("LEFT JOIN recipes r ON r.id = l.sub_recipe_id").
		Where("l.recipe_id = ?", recipeID).
		Order("l.position, l.id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("detalle de receta %d: %w", recipeID, err)
	}
	return rows, nil
}

// LatestObservations returns the newest observation of every priced ingredient.
func (s *Store) LatestObservations(ctx context.Context) (map[uint]models.PriceObservation, error) {
	var rows []models.PriceObservation
	if err := s.db.WithContext(ctx).Raw(`
		SELECT DISTINCT ON (ingredient_id) *
		FROM price_observations
		ORDER BY ingredient_id, date DESC, id DESC
	`).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("últimos precios: %w", err)
	}
	out := make(map[uint]models.PriceObservation, len(rows))
	for _, r := range rows {
		out[r.IngredientID] = r
	}
	return out, nil
}
