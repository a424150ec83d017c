package menu

import (
	"fmt"
	"strings"

	"tero-backend/internal/app"
	"tero-backend/internal/audit"
	"tero-backend/internal/database"
	"tero-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type SectionRequest struct {
	Name     string `json:"name"`
	Position *int   `json:"position"`
}

// GET /api/menu-sections
func ListSectionsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var sections []models.MenuSection
		if err := database.DB.Order("position, name").Find(&sections).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar las secciones")
		}
		return c.JSON(sections)
	}
}

// POST /api/menu-sections
func CreateSectionHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body SectionRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Datos inválidos")
		}
		name := strings.TrimSpace(body.Name)
		if name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "El nombre es obligatorio")
		}

		section := models.MenuSection{Name: name}
		if body.Position != nil {
			section.Position = *body.Position
		}
		if err := database.DB.Create(&section).Error; err != nil {
			return fiber.NewError(fiber.StatusConflict, "No se pudo crear la sección (¿nombre repetido?)")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntitySection,
			EntityID:    section.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Sección creada: %s", section.Name),
			After:       section,
		})
		return c.Status(fiber.StatusCreated).JSON(section)
	}
}

// PUT /api/menu-sections/:id
func UpdateSectionHandler(d *app.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := app.ParamID(c, "id")
		if err != nil {
			return err
		}
		var section models.MenuSection
		if err := database.DB.First(&section, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Sección no encontrada")
		}

		var body SectionRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Datos inválidos")
		}
		before := section
		if name := strings.TrimSpace(body.Name); name != "" {
			section.Name = name
		}
		if body.Position != nil {
			section.Position = *body.Position
		}
		if err := database.DB.Save(&section).Error; err != nil {
			return fiber.NewError(fiber.StatusConflict, "No se pudo actualizar la sección")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntitySection,
			EntityID:    section.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Sección actualizada: %s", section.Name),
			Before:      before,
			After:       section,
		})
		d.Invalidate(c.UserContext())
		return c.JSON(section)
	}
}

// DELETE /api/menu-sections/:id
func DeleteSectionHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := app.ParamID(c, "id")
		if err != nil {
			return err
		}
		var section models.MenuSection
		if err := database.DB.First(&section, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Sección no encontrada")
		}

		var used int64
		database.DB.Model(&models.MenuItem{}).Where("section_id = ?", id).Count(&used)
		if used > 0 {
			return fiber.NewError(fiber.StatusConflict, fmt.Sprintf("La sección tiene %d platos", used))
		}
		if err := database.DB.Delete(&section).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo eliminar la sección")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntitySection,
			EntityID:    section.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Sección eliminada: %s", section.Name),
			Before:      section,
		})
		return c.SendStatus(fiber.StatusNoContent)
	}
}
