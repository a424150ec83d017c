package menu

import (
	"errors"
	"fmt"
	"strings"

	"tero-backend/internal/app"
	"tero-backend/internal/audit"
	"tero-backend/internal/database"
	"tero-backend/internal/margin"
	"tero-backend/internal/models"
	"tero-backend/internal/storage"

	"github.com/gofiber/fiber/v2"
)

type MenuItemRequest struct {
	RecipeID     *uint    `json:"recipe_id"`
	SectionID    *uint    `json:"section_id"`
	Number       *int     `json:"number"`
	Name         *string  `json:"name"`
	SalePrice    *float64 `json:"sale_price"`
	TargetMargin *float64 `json:"target_margin"`
	Active       *bool    `json:"active"`
}

func itemError(err error) error {
	if errors.Is(err, models.ErrNegativeSalePrice) || errors.Is(err, margin.ErrTargetMargin) {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

// GET /api/menu?section_id=&search=
// Each item carries its recipe cost, realized margin and status.
func ListMenuHandler(d *app.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, err := d.Ledger.Menu(c.UserContext(), storage.MenuFilter{
			SectionID: uint(c.QueryInt("section_id")),
			Search:    strings.TrimSpace(c.Query("search")),
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo evaluar la carta")
		}
		return c.JSON(items)
	}
}

// GET /api/menu/alerts
// Items below target, worst first.
func MenuAlertsHandler(d *app.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, err := d.Ledger.Menu(c.UserContext(), storage.MenuFilter{})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo evaluar la carta")
		}
		list := make([]margin.Item, 0, len(items))
		for _, it := range items {
			list = append(list, margin.Item{ID: it.ID, Name: it.Name, Evaluation: it.Evaluation})
		}
		return c.JSON(margin.Alerts(list, c.QueryInt("limit", 0)))
	}
}

// POST /api/menu
func CreateMenuItemHandler(d *app.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body MenuItemRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Datos inválidos")
		}
		if body.RecipeID == nil || *body.RecipeID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "La receta es obligatoria")
		}
		if body.SectionID == nil || *body.SectionID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "La sección es obligatoria")
		}

		var recipe models.Recipe
		if err := database.DB.First(&recipe, *body.RecipeID).Error; err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "La receta no existe")
		}

		target := models.DefaultTargetMargin
		if d.Config != nil && d.Config.DefaultTargetMargin > 0 {
			target = d.Config.DefaultTargetMargin
		}
		item := models.MenuItem{Name: recipe.Name, TargetMargin: target, Active: true}
		applyItem(&item, body)

		if err := database.DB.Omit("Recipe", "Section").Create(&item).Error; err != nil {
			if vErr := itemError(err); vErr != nil {
				return vErr
			}
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo crear el plato")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntityMenuItem,
			EntityID:    item.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Plato agregado a la carta: %s ($%.2f)", item.Name, item.SalePrice),
			After:       item,
		})
		d.Invalidate(c.UserContext())
		return c.Status(fiber.StatusCreated).JSON(item)
	}
}

// PUT /api/menu/:id
func UpdateMenuItemHandler(d *app.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := app.ParamID(c, "id")
		if err != nil {
			return err
		}
		var item models.MenuItem
		if err := database.DB.First(&item, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Plato no encontrado")
		}

		var body MenuItemRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Datos inválidos")
		}

		before := item
		applyItem(&item, body)
		if item.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "El nombre es obligatorio")
		}

		if err := database.DB.Omit("Recipe", "Section").Save(&item).Error; err != nil {
			if vErr := itemError(err); vErr != nil {
				return vErr
			}
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo actualizar el plato")
		}

		description := fmt.Sprintf("Plato actualizado: %s", item.Name)
		if before.SalePrice != item.SalePrice {
			description = fmt.Sprintf("Precio de %s: $%.2f -> $%.2f", item.Name, before.SalePrice, item.SalePrice)
		}
		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntityMenuItem,
			EntityID:    item.ID,
			Action:      models.AuditActionUpdate,
			Description: description,
			Before:      before,
			After:       item,
		})
		d.Invalidate(c.UserContext())
		return c.JSON(item)
	}
}

// DELETE /api/menu/:id
// Items leave the menu but keep their row.
func DeactivateMenuItemHandler(d *app.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := app.ParamID(c, "id")
		if err != nil {
			return err
		}
		var item models.MenuItem
		if err := database.DB.First(&item, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Plato no encontrado")
		}
		if err := database.DB.Model(&item).Update("active", false).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo quitar el plato")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntityMenuItem,
			EntityID:    item.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Plato quitado de la carta: %s", item.Name),
			Before:      item,
		})
		d.Invalidate(c.UserContext())
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func applyItem(item *models.MenuItem, body MenuItemRequest) {
	if body.RecipeID != nil && *body.RecipeID > 0 {
		item.RecipeID = *body.RecipeID
	}
	if body.SectionID != nil && *body.SectionID > 0 {
		item.SectionID = *body.SectionID
	}
	if body.Number != nil {
		if *body.Number <= 0 {
			item.Number = nil
		} else {
			n := *body.Number
			item.Number = &n
		}
	}
	if body.Name != nil && strings.TrimSpace(*body.Name) != "" {
		item.Name = strings.TrimSpace(*body.Name)
	}
	if body.SalePrice != nil {
		item.SalePrice = *body.SalePrice
	}
	if body.TargetMargin != nil {
		item.TargetMargin = *body.TargetMargin
	}
	if body.Active != nil {
		item.Active = *body.Active
	}
}
