// Package storage implements the persistence operations the cost, billing
// and variation engines consume, on top of gorm.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tero-backend/internal/costing"
	"tero-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("registro no encontrado")

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// LatestPriceObservation returns the newest observation by date; ok is false
// when the ingredient was never priced.
func (s *Store) LatestPriceObservation(ctx context.Context, ingredientID uint) (obs models.PriceObservation, ok bool, err error) {
	var rows []models.PriceObservation
	err = s.db.WithContext(ctx).
		Where("ingredient_id = ?", ingredientID).
		Order("date DESC, id DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return obs, false, fmt.Errorf("último precio de %d: %w", ingredientID, err)
	}
	if len(rows) == 0 {
		return obs, false, nil
	}
	return rows[0], true, nil
}

// PriceObservationsInWindow returns observations dated on or after since, most recent first.
func (s *Store) PriceObservationsInWindow(ctx context.Context, ingredientID uint, since time.Time) ([]models.PriceObservation, error) {
	var rows []models.PriceObservation
	err := s.db.WithContext(ctx).
		Where("ingredient_id = ? AND date >= ?", ingredientID, since).
		Order("date DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("precios de %d: %w", ingredientID, err)
	}
	return rows, nil
}

// RecentPriceObservations returns the newest limit observations of one ingredient.
func (s *Store) RecentPriceObservations(ctx context.Context, ingredientID uint, limit int) ([]models.PriceObservation, error) {
	var rows []models.PriceObservation
	err := s.db.WithContext(ctx).
		Where("ingredient_id = ?", ingredientID).
		Order("date DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("historial de %d: %w", ingredientID, err)
	}
	return rows, nil
}

// InsertPriceObservation derives the landed costs from the ingredient's
// current tax and waste, appends the observation and touches the ingredient.
func (s *Store) InsertPriceObservation(ctx context.Context, ingredientID uint, price float64, date time.Time) (models.PriceObservation, error) {
	var obs models.PriceObservation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ing models.Ingredient
		if err := tx.First(&ing, ingredientID).Error; err != nil {
			return notFound(err)
		}

		landed := ing.Landed(price)
		obs = models.PriceObservation{
			IngredientID: ing.ID,
			Price:        price,
			Date:         date,
			UnitPrice:    landed.UnitPrice,
			CostWithTax:  landed.CostWithTax,
			FinalCost:    landed.FinalCost,
		}
		if err := tx.Create(&obs).Error; err != nil {
			return fmt.Errorf("precio no registrado: %w", err)
		}
		return tx.Model(&ing).UpdateColumn("updated_at", time.Now()).Error
	})
	return obs, err
}

// LineItems returns a recipe's lines in display order.
func (s *Store) LineItems(ctx context.Context, recipeID uint) ([]models.RecipeLineItem, error) {
	var rows []models.RecipeLineItem
	err := s.db.WithContext(ctx).
		Where("recipe_id = ?", recipeID).
		Order("position, id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("líneas de receta %d: %w", recipeID, err)
	}
	return rows, nil
}

// PaymentsForEvent returns the payment history of one event, newest first.
func (s *Store) PaymentsForEvent(ctx context.Context, eventID uint) ([]models.EventPayment, error) {
	var rows []models.EventPayment
	err := s.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("date DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("pagos del evento %d: %w", eventID, err)
	}
	return rows, nil
}

// RecomputeAndStoreEventTotal saves the event; the model hook overwrites
// Total from the charge columns inside the same statement.
func (s *Store) RecomputeAndStoreEventTotal(ctx context.Context, e *models.Event) (decimal.Decimal, error) {
	if err := s.db.WithContext(ctx).Omit("Menu", "Payments").Save(e).Error; err != nil {
		return decimal.Zero, err
	}
	return e.Total, nil
}

type latestCost struct {
	IngredientID uint
	FinalCost    float64
}

// LoadCostBook snapshots every ingredient's latest final cost and every line
// item, so a whole listing can be costed without further queries.
func (s *Store) LoadCostBook(ctx context.Context) (*costing.Book, error) {
	db := s.db.WithContext(ctx)

	var costs []latestCost
	if err := db.Raw(`
		SELECT DISTINCT ON (ingredient_id) ingredient_id, final_cost
		FROM price_observations
		ORDER BY ingredient_id, date DESC, id DESC
	`).Scan(&costs).Error; err != nil {
		return nil, fmt.Errorf("últimos costos: %w", err)
	}

	var lines []models.RecipeLineItem
	if err := db.Order("recipe_id, position, id").Find(&lines).Error; err != nil {
		return nil, fmt.Errorf("líneas de receta: %w", err)
	}

	book := costing.NewBook()
	for _, c := range costs {
		book.SetPrice(c.IngredientID, c.FinalCost)
	}
	for i := range lines {
		item, err := lines[i].LineItem()
		if err != nil {
			slog.Warn("línea de receta inválida ignorada", "line_id", lines[i].ID, "recipe_id", lines[i].RecipeID, "err", err)
			continue
		}
		book.AddLine(lines[i].RecipeID, item)
	}
	return book, nil
}
