package recipes

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"tero-backend/internal/app"
	"tero-backend/internal/audit"
	"tero-backend/internal/costing"
	"tero-backend/internal/database"
	"tero-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// LineRequest references exactly one of an ingredient or a sub-recipe.
type LineRequest struct {
	IngredientID *uint    `json:"ingredient_id"`
	SubRecipeID  *uint    `json:"sub_recipe_id"`
	Quantity     *float64 `json:"quantity"`
	Note         *string  `json:"note"`
	Position     *int     `json:"position"`
}

func nonZero(id *uint) *uint {
	if id == nil || *id == 0 {
		return nil
	}
	return id
}

func lineError(err error) error {
	switch {
	case errors.Is(err, costing.ErrLineItemRef),
		errors.Is(err, costing.ErrSelfReference),
		errors.Is(err, costing.ErrQuantity):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return fiber.NewError(fiber.StatusInternalServerError, "No se pudo guardar la línea")
}

// checkTarget makes sure the referenced row exists and that sub-recipe lines
// point at recipes flagged as sub-recipes.
func checkTarget(ref costing.Ref) error {
	switch r := ref.(type) {
	case costing.IngredientRef:
		var n int64
		if err := database.DB.Model(&models.Ingredient{}).Where("id = ?", r.IngredientID).Count(&n).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo verificar el insumo")
		}
		if n == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "El insumo no existe")
		}
	case costing.SubRecipeRef:
		var sub models.Recipe
		if err := database.DB.First(&sub, r.RecipeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusBadRequest, "La subreceta no existe")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo verificar la subreceta")
		}
		if !sub.IsSubRecipe {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("'%s' no está marcada como subreceta", sub.Name))
		}
	}
	return nil
}

// POST /api/recipes/:id/lines
func AddLineHandler(d *app.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		recipeID, err := app.ParamID(c, "id")
		if err != nil {
			return err
		}
		var recipe models.Recipe
		if err := database.DB.First(&recipe, recipeID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Receta no encontrada")
		}

		var body LineRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Datos inválidos")
		}

		ref, err := costing.RefFromColumns(nonZero(body.IngredientID), nonZero(body.SubRecipeID))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if body.Quantity == nil {
			return fiber.NewError(fiber.StatusBadRequest, "La cantidad es obligatoria")
		}
		if err := costing.ValidateLineItem(recipeID, ref, *body.Quantity); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := checkTarget(ref); err != nil {
			return err
		}

		line := models.RecipeLineItem{RecipeID: recipeID, Quantity: *body.Quantity}
		line.SetRef(ref)
		if body.Note != nil {
			line.Note = strings.TrimSpace(*body.Note)
		}
		if body.Position != nil {
			line.Position = *body.Position
		} else {
			var maxPos struct{ Max *int }
			if err := database.DB.Model(&models.RecipeLineItem{}).
				Select("MAX(position) AS max").
				Where("recipe_id = ?", recipeID).
				Scan(&maxPos).Error; err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "No se pudo calcular la posición de la línea")
			}
			if maxPos.Max != nil {
				line.Position = *maxPos.Max + 1
			}
		}

		tx := database.DB.Begin()
		if err := tx.Create(&line).Error; err != nil {
			tx.Rollback()
			return lineError(err)
		}
		if err := tx.Model(&recipe).UpdateColumn("updated_at", time.Now()).Error; err != nil {
			tx.Rollback()
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo actualizar la receta")
		}
		if err := tx.Commit().Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo guardar la línea")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntityRecipeLine,
			EntityID:    line.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Línea agregada a %s", recipe.Name),
			After:       line,
		})
		d.Invalidate(c.UserContext())
		return c.Status(fiber.StatusCreated).JSON(line)
	}
}

// PUT /api/recipes/:id/lines/:lineId
func UpdateLineHandler(d *app.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		line, err := findLine(c)
		if err != nil {
			return err
		}

		var body LineRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Datos inválidos")
		}

		before := line
		if body.IngredientID != nil || body.SubRecipeID != nil {
			ref, err := costing.RefFromColumns(nonZero(body.IngredientID), nonZero(body.SubRecipeID))
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			if err := checkTarget(ref); err != nil {
				return err
			}
			line.SetRef(ref)
		}
		if body.Quantity != nil {
			line.Quantity = *body.Quantity
		}
		if body.Note != nil {
			line.Note = strings.TrimSpace(*body.Note)
		}
		if body.Position != nil {
			line.Position = *body.Position
		}
		ref, err := line.Ref()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := costing.ValidateLineItem(line.RecipeID, ref, line.Quantity); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := database.DB.Omit("Ingredient", "SubRecipe").Save(&line).Error; err != nil {
			return lineError(err)
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntityRecipeLine,
			EntityID:    line.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Línea %d de la receta %d actualizada", line.ID, line.RecipeID),
			Before:      before,
			After:       line,
		})
		d.Invalidate(c.UserContext())
		return c.JSON(line)
	}
}

// DELETE /api/recipes/:id/lines/:lineId
func DeleteLineHandler(d *app.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		line, err := findLine(c)
		if err != nil {
			return err
		}
		if err := database.DB.Delete(&line).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo eliminar la línea")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntityRecipeLine,
			EntityID:    line.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Línea %d eliminada de la receta %d", line.ID, line.RecipeID),
			Before:      line,
		})
		d.Invalidate(c.UserContext())
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func findLine(c *fiber.Ctx) (models.RecipeLineItem, error) {
	var line models.RecipeLineItem
	recipeID, err := app.ParamID(c, "id")
	if err != nil {
		return line, err
	}
	lineID, err := app.ParamID(c, "lineId")
	if err != nil {
		return line, err
	}
	if err := database.DB.Where("id = ? AND recipe_id = ?", lineID, recipeID).First(&line).Error; err != nil {
		return line, fiber.NewError(fiber.StatusNotFound, "Línea no encontrada")
	}
	return line, nil
}
