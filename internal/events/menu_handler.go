package events

import (
	"encoding/json"
	"fmt"
	"strings"

	"tero-backend/internal/audit"
	"tero-backend/internal/database"
	"tero-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const defaultMenuKind = "standard"

type EventMenuRequest struct {
	Name       string          `json:"name"`
	Kind       string          `json:"kind"`
	Categories json.RawMessage `json:"categories"`
	Extras     json.RawMessage `json:"extras"`
}

func jsonOrEmpty(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "[]", true
	}
	if !json.Valid(raw) {
		return "", false
	}
	return string(raw), true
}

// GET /api/event-menus
func ListEventMenusHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var menus []models.EventMenu
		if err := database.DB.Where("active = ?", true).Order("name").Find(&menus).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar los menús")
		}
		return c.JSON(menus)
	}
}

// POST /api/event-menus
func CreateEventMenuHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body EventMenuRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Datos inválidos")
		}
		name := strings.TrimSpace(body.Name)
		if name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "El nombre es obligatorio")
		}
		categories, ok := jsonOrEmpty(body.Categories)
		if !ok {
			return fiber.NewError(fiber.StatusBadRequest, "Las categorías no son JSON válido")
		}
		extras, ok := jsonOrEmpty(body.Extras)
		if !ok {
			return fiber.NewError(fiber.StatusBadRequest, "Los adicionales no son JSON válido")
		}

		menu := models.EventMenu{
			Name:       name,
			Kind:       strings.TrimSpace(body.Kind),
			Categories: categories,
			Extras:     extras,
			Active:     true,
		}
		if menu.Kind == "" {
			menu.Kind = defaultMenuKind
		}
		if err := database.DB.Create(&menu).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo crear el menú")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntityEventMenu,
			EntityID:    menu.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Menú de eventos creado: %s", menu.Name),
			After:       menu,
		})
		return c.Status(fiber.StatusCreated).JSON(menu)
	}
}
