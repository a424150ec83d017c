package dashboard

import (
	"bytes"
	"fmt"
	"log/slog"

	"tero-backend/internal/app"
	"tero-backend/internal/reports"

	"github.com/gofiber/fiber/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// GET /api/reports/costs
// Streams the cost workbook; a copy is archived to object storage when configured.
func CostWorkbookHandler(d *app.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		report, err := reports.BuildCostReport(ctx, d.Ledger)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo armar el reporte de costos")
		}

		var body []byte
		if d.Archiver.Enabled() {
			data, location, err := d.Archiver.ArchiveCostReport(ctx, report)
			if err != nil && data == nil {
				return fiber.NewError(fiber.StatusInternalServerError, "No se pudo generar el Excel")
			}
			if err != nil {
				slog.Warn("no se pudo archivar el reporte", "err", err)
			} else {
				c.Set("X-Archive-Location", location)
			}
			body = data
		} else {
			var buf bytes.Buffer
			if err := reports.WriteCostWorkbook(&buf, report); err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "No se pudo generar el Excel")
			}
			body = buf.Bytes()
		}

		c.Set(fiber.HeaderContentType, xlsxContentType)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, report.FileName()))
		return c.Send(body)
	}
}
