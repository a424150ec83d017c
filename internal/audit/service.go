package audit

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"tero-backend/internal/auth"
	"tero-backend/internal/database"
	"tero-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Entity types recorded in the log.
const (
	EntityIngredient = "ingredient"
	EntityPrice      = "price"
	EntityCategory   = "category"
	EntitySupplier   = "supplier"
	EntityRecipe     = "recipe"
	EntityRecipeLine = "recipe_line"
	EntityMenuItem   = "menu_item"
	EntitySection    = "menu_section"
	EntityEvent      = "event"
	EntityPayment    = "event_payment"
	EntityEventMenu  = "event_menu"
	EntityUser       = "user"
)

type LogOptions struct {
	UserID      uint
	UserName    string
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

// snapshot encodes v for a jsonb column; absent values are stored as JSON null.
func snapshot(v any) string {
	if v == nil {
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func WriteLog(opts LogOptions) error {
	log := models.AuditLog{
		UserID:      opts.UserID,
		UserName:    opts.UserName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  snapshot(opts.Before),
		AfterData:   snapshot(opts.After),
	}

	if err := database.DB.Create(&log).Error; err != nil {
		return fmt.Errorf("no se pudo guardar el registro de auditoría: %w", err)
	}
	return nil
}

// Record stamps the acting user from the request and writes the entry.
// A failed write is logged and never fails the request.
func Record(c *fiber.Ctx, opts LogOptions) {
	userID, username, err := auth.CurrentUser(c)
	if err != nil {
		return
	}
	opts.UserID, opts.UserName = userID, username
	if err := WriteLog(opts); err != nil {
		slog.Warn("no se pudo escribir la auditoría", "entity_type", opts.EntityType, "entity_id", opts.EntityID, "err", err)
	}
}
