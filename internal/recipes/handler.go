package recipes

import (
	"errors"
	"fmt"
	"strings"

	"tero-backend/internal/app"
	"tero-backend/internal/audit"
	"tero-backend/internal/database"
	"tero-backend/internal/ledger"
	"tero-backend/internal/models"
	"tero-backend/internal/storage"

	"github.com/gofiber/fiber/v2"
)

type RecipeRequest struct {
	Name        *string `json:"name"`
	IsSubRecipe *bool   `json:"is_sub_recipe"`
	Description *string `json:"description"`
}

// GET /api/recipes?search=&sub_recipe=true
func ListRecipesHandler(d *app.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		list, err := d.Ledger.Recipes(c.UserContext(), ledger.RecipeFilter{
			Search:    strings.TrimSpace(c.Query("search")),
			SubRecipe: app.QueryBool(c, "sub_recipe"),
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar las recetas")
		}
		return c.JSON(list)
	}
}

// GET /api/recipes/:id
func GetRecipeHandler(d *app.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := app.ParamID(c, "id")
		if err != nil {
			return err
		}
		detail, err := d.Ledger.RecipeDetail(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Receta no encontrada")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo calcular la receta")
		}
		return c.JSON(detail)
	}
}

// POST /api/recipes
func CreateRecipeHandler(d *app.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RecipeRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Datos inválidos")
		}
		if body.Name == nil || strings.TrimSpace(*body.Name) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "El nombre es obligatorio")
		}

		recipe := models.Recipe{}
		applyRecipe(&recipe, body)
		if err := database.DB.Create(&recipe).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo crear la receta")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntityRecipe,
			EntityID:    recipe.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Receta creada: %s", recipe.Name),
			After:       recipe,
		})
		return c.Status(fiber.StatusCreated).JSON(recipe)
	}
}

// PUT /api/recipes/:id
func UpdateRecipeHandler(d *app.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := app.ParamID(c, "id")
		if err != nil {
			return err
		}
		var recipe models.Recipe
		if err := database.DB.First(&recipe, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Receta no encontrada")
		}

		var body RecipeRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Datos inválidos")
		}

		before := recipe
		applyRecipe(&recipe, body)
		if recipe.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "El nombre es obligatorio")
		}

		// a recipe used as a component cannot stop being a sub-recipe
		if before.IsSubRecipe && !recipe.IsSubRecipe {
			var used int64
			database.DB.Model(&models.RecipeLineItem{}).Where("sub_recipe_id = ?", id).Count(&used)
			if used > 0 {
				return fiber.NewError(fiber.StatusConflict, fmt.Sprintf("La subreceta se usa en %d líneas de otras recetas", used))
			}
		}

		if err := database.DB.Omit("Lines").Save(&recipe).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo actualizar la receta")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntityRecipe,
			EntityID:    recipe.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Receta actualizada: %s", recipe.Name),
			Before:      before,
			After:       recipe,
		})
		d.Invalidate(c.UserContext())
		return c.JSON(recipe)
	}
}

// DELETE /api/recipes/:id
// Refused while a menu item or another recipe still depends on it.
func DeleteRecipeHandler(d *app.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := app.ParamID(c, "id")
		if err != nil {
			return err
		}
		var recipe models.Recipe
		if err := database.DB.First(&recipe, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Receta no encontrada")
		}

		var menuUses, lineUses int64
		if err := database.DB.Model(&models.MenuItem{}).Where("recipe_id = ?", id).Count(&menuUses).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo verificar el uso de la receta")
		}
		if err := database.DB.Model(&models.RecipeLineItem{}).Where("sub_recipe_id = ?", id).Count(&lineUses).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo verificar el uso de la receta")
		}
		if menuUses > 0 || lineUses > 0 {
			return fiber.NewError(fiber.StatusConflict,
				fmt.Sprintf("La receta está en uso (%d platos de carta, %d líneas de receta)", menuUses, lineUses))
		}

		lines, err := d.Store.LineItems(c.UserContext(), id)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron leer las líneas")
		}

		tx := database.DB.Begin()
		if err := tx.Where("recipe_id = ?", id).Delete(&models.RecipeLineItem{}).Error; err != nil {
			tx.Rollback()
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron eliminar las líneas")
		}
		if err := tx.Delete(&recipe).Error; err != nil {
			tx.Rollback()
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo eliminar la receta")
		}
		if err := tx.Commit().Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo eliminar la receta")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntityRecipe,
			EntityID:    recipe.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Receta eliminada: %s (%d líneas)", recipe.Name, len(lines)),
			Before:      fiber.Map{"recipe": recipe, "lines": lines},
		})
		d.Invalidate(c.UserContext())
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func applyRecipe(r *models.Recipe, body RecipeRequest) {
	if body.Name != nil {
		r.Name = strings.TrimSpace(*body.Name)
	}
	if body.IsSubRecipe != nil {
		r.IsSubRecipe = *body.IsSubRecipe
	}
	if body.Description != nil {
		r.Description = strings.TrimSpace(*body.Description)
	}
}
