package dashboard

import (
	"log/slog"
	"time"

	"tero-backend/internal/app"
	"tero-backend/internal/ledger"
	"tero-backend/internal/storage"
	"tero-backend/internal/variation"

	"github.com/gofiber/fiber/v2"
)

const maxWindowDays = 365

// GET /api/dashboard
// Served from the cache when a fresh snapshot exists.
func SummaryHandler(d *app.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		var snap ledger.Dashboard
		hit, err := d.Dashboard.Get(ctx, &snap)
		if err != nil {
			slog.Warn("dashboard cacheado no disponible", "err", err)
		}
		if hit {
			c.Set("X-Cache", "HIT")
			return c.JSON(snap)
		}

		snap, err = d.Ledger.Dashboard(ctx)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo armar el dashboard")
		}
		if err := d.Dashboard.Set(ctx, snap); err != nil {
			slog.Warn("no se pudo cachear el dashboard", "err", err)
		}
		c.Set("X-Cache", "MISS")
		return c.JSON(snap)
	}
}

// GET /api/dashboard/price-variations?days=14&threshold=5&limit=10
// Same detection as the dashboard with caller-chosen window and threshold.
func PriceVariationsHandler(d *app.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cfg := d.Ledger.Variation

		if days := c.QueryInt("days"); days != 0 {
			if days < 1 || days > maxWindowDays {
				return fiber.NewError(fiber.StatusBadRequest, "days debe estar entre 1 y 365")
			}
			cfg.Window = time.Duration(days) * 24 * time.Hour
		}
		if raw := c.Query("threshold"); raw != "" {
			threshold := c.QueryFloat("threshold", -1)
			if threshold < 0 {
				return fiber.NewError(fiber.StatusBadRequest, "threshold inválido")
			}
			cfg.Threshold = threshold
		}
		cfg.Limit = c.QueryInt("limit", cfg.Limit)

		now := d.Ledger.Now()
		since := cfg.Since(now)
		series, err := d.Store.PriceSeries(c.UserContext(), storage.SeriesFilter{Since: &since})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron leer los precios")
		}
		return c.JSON(variation.Detect(now, series, cfg))
	}
}
