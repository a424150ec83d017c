// Package app holds the collaborators shared by the HTTP handlers and the CLI.
package app

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"tero-backend/internal/cache"
	"tero-backend/internal/config"
	"tero-backend/internal/ledger"
	"tero-backend/internal/notify"
	"tero-backend/internal/reports"
	"tero-backend/internal/storage"

	"github.com/gofiber/fiber/v2"
)

const DateLayout = "2006-01-02"

type Deps struct {
	Config    *config.Config
	Store     *storage.Store
	Ledger    *ledger.Service
	Dashboard *cache.Dashboard
	Notifier  *notify.Publisher
	Archiver  *reports.Archiver
}

// Invalidate drops the cached dashboard after a write that moves costs or margins.
func (d *Deps) Invalidate(ctx context.Context) {
	if err := d.Dashboard.Invalidate(ctx); err != nil {
		slog.Warn("no se pudo invalidar el dashboard cacheado", "err", err)
	}
}

// Publish sends a change notification; failures never fail the request.
func (d *Deps) Publish(ctx context.Context, typ string, entityID uint, data any) {
	if err := d.Notifier.Publish(ctx, typ, entityID, data); err != nil {
		slog.Warn("no se pudo publicar la notificación", "type", typ, "entity_id", entityID, "err", err)
	}
}

// ParamID reads a positive numeric route parameter.
func ParamID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "ID inválido")
	}
	return uint(id), nil
}

// ParseDate parses a YYYY-MM-DD date, falling back to today when empty.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, "El formato de fecha debe ser 'AAAA-MM-DD'")
	}
	return d, nil
}

// QueryBool reads an optional boolean filter; nil when absent or unparsable.
func QueryBool(c *fiber.Ctx, key string) *bool {
	v, err := strconv.ParseBool(c.Query(key))
	if err != nil {
		return nil
	}
	return &v
}
