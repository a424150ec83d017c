package ingredients

import (
	"errors"
	"fmt"
	"strings"

	"tero-backend/internal/app"
	"tero-backend/internal/audit"
	"tero-backend/internal/costing"
	"tero-backend/internal/database"
	"tero-backend/internal/models"
	"tero-backend/internal/storage"
	"tero-backend/internal/variation"

	"github.com/gofiber/fiber/v2"
)

const historySize = 20

// -------------------------
// Request/Response Types
// -------------------------

type IngredientRequest struct {
	Name         *string  `json:"name"`
	CategoryID   *uint    `json:"category_id"`
	SupplierID   *uint    `json:"supplier_id"`
	Unit         *string  `json:"unit"`
	PurchaseUnit *string  `json:"purchase_unit"`
	TaxPct       *float64 `json:"tax_pct"`
	WastePct     *float64 `json:"waste_pct"`
}

type IngredientResponse struct {
	models.Ingredient
	CategoryName string   `json:"category_name"`
	SupplierName string   `json:"supplier_name"`
	LastPrice    *float64 `json:"last_price"`
	FinalCost    *float64 `json:"final_cost"`
	LastPriceAt  *string  `json:"last_price_date"`
	VariationPct *float64 `json:"variation_pct"`
}

type IngredientDetailResponse struct {
	IngredientResponse
	History         []models.PriceObservation `json:"history"`
	WindowVariation *variation.Variation      `json:"window_variation"`
}

func seriesOf(ing models.Ingredient, obs []models.PriceObservation) variation.Series {
	s := variation.Series{IngredientID: ing.ID, Name: ing.Name, Unit: ing.Unit}
	for _, o := range obs {
		s.Observations = append(s.Observations, variation.Observation{ID: o.ID, Price: o.Price, Date: o.Date})
	}
	return s
}

func toResponse(ing models.Ingredient, latest *models.PriceObservation, v *variation.Variation) IngredientResponse {
	resp := IngredientResponse{Ingredient: ing, CategoryName: ing.Category.Name}
	if ing.Supplier != nil {
		resp.SupplierName = ing.Supplier.Name
	}
	if latest != nil {
		price, final := latest.Price, latest.FinalCost
		date := latest.Date.Format(app.DateLayout)
		resp.LastPrice, resp.FinalCost, resp.LastPriceAt = &price, &final, &date
	}
	if v != nil {
		pct := v.Percent
		resp.VariationPct = &pct
	}
	return resp
}

func validationError(err error) error {
	switch {
	case errors.Is(err, costing.ErrNegativeTax), errors.Is(err, costing.ErrWasteOutOfRange):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

// -------------------------
// Ingredient CRUD
// -------------------------

// GET /api/ingredients?category_id=&supplier_id=&search=
func ListIngredientsHandler(d *app.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.Ingredient{}).Preload("Category").Preload("Supplier")

		if cid := c.QueryInt("category_id"); cid > 0 {
			dbq = dbq.Where("category_id = ?", cid)
		}
		if sid := c.QueryInt("supplier_id"); sid > 0 {
			dbq = dbq.Where("supplier_id = ?", sid)
		}
		if search := strings.TrimSpace(c.Query("search")); search != "" {
			dbq = dbq.Where("name ILIKE ?", "%"+search+"%")
		}

		var list []models.Ingredient
		if err := dbq.Order("name").Find(&list).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar los insumos")
		}

		latest, err := d.Store.LatestObservations(c.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron leer los precios")
		}
		series, err := d.Store.PriceSeries(c.UserContext(), storage.SeriesFilter{PerIngredient: 2})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron leer los precios")
		}
		variations := make(map[uint]variation.Variation, len(series))
		for _, s := range series {
			if v, ok := variation.Latest(s); ok {
				variations[s.IngredientID] = v
			}
		}

		resp := make([]IngredientResponse, 0, len(list))
		for _, ing := range list {
			var lp *models.PriceObservation
			if obs, ok := latest[ing.ID]; ok {
				lp = &obs
			}
			var vp *variation.Variation
			if v, ok := variations[ing.ID]; ok {
				vp = &v
			}
			resp = append(resp, toResponse(ing, lp, vp))
		}
		return c.JSON(resp)
	}
}

// GET /api/ingredients/:id
func GetIngredientHandler(d *app.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := app.ParamID(c, "id")
		if err != nil {
			return err
		}
		var ing models.Ingredient
		if err := database.DB.Preload("Category").Preload("Supplier").First(&ing, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Insumo no encontrado")
		}

		history, err := d.Store.RecentPriceObservations(c.UserContext(), id, historySize)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo leer el historial de precios")
		}

		var latest *models.PriceObservation
		var v *variation.Variation
		if len(history) > 0 {
			latest = &history[0]
			if got, ok := variation.Latest(seriesOf(ing, history)); ok {
				v = &got
			}
		}

		// the change inside the dashboard window, below the threshold too
		since := d.Ledger.Variation.Since(d.Ledger.Now())
		recent, err := d.Store.PriceObservationsInWindow(c.UserContext(), id, since)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo leer el historial de precios")
		}
		var wv *variation.Variation
		if got, ok := variation.Latest(seriesOf(ing, recent)); ok {
			wv = &got
		}

		return c.JSON(IngredientDetailResponse{
			IngredientResponse: toResponse(ing, latest, v),
			History:            history,
			WindowVariation:    wv,
		})
	}
}

// POST /api/ingredients
func CreateIngredientHandler(d *app.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body IngredientRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Datos inválidos")
		}
		if body.Name == nil || strings.TrimSpace(*body.Name) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "El nombre es obligatorio")
		}
		if body.CategoryID == nil || *body.CategoryID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "La categoría es obligatoria")
		}

		ing := models.Ingredient{
			Unit:   models.DefaultUnit,
			TaxPct: d.Config.DefaultTaxPct,
		}
		applyIngredient(&ing, body)

		if err := database.DB.Omit("Category", "Supplier").Create(&ing).Error; err != nil {
			if vErr := validationError(err); vErr != nil {
				return vErr
			}
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo crear el insumo")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntityIngredient,
			EntityID:    ing.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Insumo creado: %s", ing.Name),
			After:       ing,
		})
		d.Invalidate(c.UserContext())

		return c.Status(fiber.StatusCreated).JSON(ing)
	}
}

// PUT /api/ingredients/:id
// Tax and waste changes apply to prices recorded from now on.
func UpdateIngredientHandler(d *app.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := app.ParamID(c, "id")
		if err != nil {
			return err
		}
		var ing models.Ingredient
		if err := database.DB.First(&ing, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Insumo no encontrado")
		}

		var body IngredientRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Datos inválidos")
		}

		before := ing
		applyIngredient(&ing, body)
		if ing.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "El nombre es obligatorio")
		}

		if err := database.DB.Omit("Category", "Supplier").Save(&ing).Error; err != nil {
			if vErr := validationError(err); vErr != nil {
				return vErr
			}
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo actualizar el insumo")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntityIngredient,
			EntityID:    ing.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Insumo actualizado: %s", ing.Name),
			Before:      before,
			After:       ing,
		})
		d.Invalidate(c.UserContext())

		return c.JSON(ing)
	}
}

// DELETE /api/ingredients/:id
func DeleteIngredientHandler(d *app.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := app.ParamID(c, "id")
		if err != nil {
			return err
		}
		var ing models.Ingredient
		if err := database.DB.First(&ing, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Insumo no encontrado")
		}

		var used int64
		database.DB.Model(&models.RecipeLineItem{}).Where("ingredient_id = ?", id).Count(&used)
		if used > 0 {
			return fiber.NewError(fiber.StatusConflict, fmt.Sprintf("El insumo se usa en %d líneas de receta", used))
		}

		tx := database.DB.Begin()
		if err := tx.Where("ingredient_id = ?", id).Delete(&models.PriceObservation{}).Error; err != nil {
			tx.Rollback()
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo eliminar el historial de precios")
		}
		if err := tx.Delete(&ing).Error; err != nil {
			tx.Rollback()
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo eliminar el insumo")
		}
		if err := tx.Commit().Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo eliminar el insumo")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntityIngredient,
			EntityID:    ing.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Insumo eliminado: %s", ing.Name),
			Before:      ing,
		})
		d.Invalidate(c.UserContext())

		return c.SendStatus(fiber.StatusNoContent)
	}
}

func applyIngredient(ing *models.Ingredient, body IngredientRequest) {
	if body.Name != nil {
		ing.Name = strings.TrimSpace(*body.Name)
	}
	if body.CategoryID != nil && *body.CategoryID > 0 {
		ing.CategoryID = *body.CategoryID
	}
	if body.SupplierID != nil {
		if *body.SupplierID == 0 {
			ing.SupplierID = nil
		} else {
			sid := *body.SupplierID
			ing.SupplierID = &sid
		}
	}
	if body.Unit != nil && strings.TrimSpace(*body.Unit) != "" {
		ing.Unit = strings.TrimSpace(*body.Unit)
	}
	if body.PurchaseUnit != nil {
		ing.PurchaseUnit = strings.TrimSpace(*body.PurchaseUnit)
	}
	if body.TaxPct != nil {
		ing.TaxPct = *body.TaxPct
	}
	if body.WastePct != nil {
		ing.WastePct = *body.WastePct
	}
}
