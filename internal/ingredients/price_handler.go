package ingredients

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"tero-backend/internal/app"
	"tero-backend/internal/audit"
	"tero-backend/internal/models"
	"tero-backend/internal/notify"
	"tero-backend/internal/reports"
	"tero-backend/internal/storage"
	"tero-backend/internal/variation"

	"github.com/gofiber/fiber/v2"
)

type AddPriceRequest struct {
	Price float64 `json:"price"`
	Date  string  `json:"date"`
}

// PriceResponse carries the change against the previous latest price when
// the new observation is the newest one.
type PriceResponse struct {
	models.PriceObservation
	VariationPct *float64 `json:"variation_pct"`
}

type priceRecorded struct {
	IngredientID uint    `json:"ingredient_id"`
	Price        float64 `json:"price"`
	FinalCost    float64 `json:"final_cost"`
	Date         string  `json:"date"`
}

func announcePrice(c *fiber.Ctx, d *app.Deps, obs models.PriceObservation) {
	d.Publish(c.UserContext(), notify.PriceRecorded, obs.IngredientID, priceRecorded{
		IngredientID: obs.IngredientID,
		Price:        obs.Price,
		FinalCost:    obs.FinalCost,
		Date:         obs.Date.Format(app.DateLayout),
	})
}

// POST /api/ingredients/:id/prices
// Appends a price observation; history is never edited.
func AddPriceHandler(d *app.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := app.ParamID(c, "id")
		if err != nil {
			return err
		}

		var body AddPriceRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Datos inválidos")
		}
		if body.Price <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "El precio debe ser mayor a 0")
		}
		date, err := app.ParseDate(body.Date)
		if err != nil {
			return err
		}

		prev, hasPrev, err := d.Store.LatestPriceObservation(c.UserContext(), id)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo leer el último precio")
		}

		obs, err := d.Store.InsertPriceObservation(c.UserContext(), id, body.Price, date)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Insumo no encontrado")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo registrar el precio")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntityPrice,
			EntityID:    obs.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Precio registrado para insumo %d: %.2f (costo final %.2f)", id, obs.Price, obs.FinalCost),
			After:       obs,
		})
		d.Invalidate(c.UserContext())
		announcePrice(c, d, obs)

		resp := PriceResponse{PriceObservation: obs}
		if hasPrev && !obs.Date.Before(prev.Date) {
			if pct, ok := variation.Percent(prev.Price, obs.Price); ok {
				resp.VariationPct = &pct
			}
		}
		return c.Status(fiber.StatusCreated).JSON(resp)
	}
}

// POST /api/ingredients/prices/import (multipart, field "file")
// Columns: ingredient id or name, price, optional date (YYYY-MM-DD or DD/MM/YYYY).
func ImportPricesHandler(d *app.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "No se pudo subir el archivo: "+err.Error())
		}
		if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".xlsx") {
			return fiber.NewError(fiber.StatusBadRequest, "Solo se aceptan archivos .xlsx")
		}

		file, err := fileHeader.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo abrir el archivo: "+err.Error())
		}
		defer file.Close()

		defaultDate, err := app.ParseDate(c.FormValue("date"))
		if err != nil {
			return err
		}

		rows, issues, err := reports.ParsePriceList(file, defaultDate)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		importer := &reports.Importer{Store: d.Store}
		res, err := importer.Import(c.UserContext(), rows)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo importar la lista de precios")
		}
		res.Issues = append(append([]reports.ImportIssue{}, issues...), res.Issues...)

		if res.Imported > 0 {
			audit.Record(c, audit.LogOptions{
				EntityType:  audit.EntityPrice,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("Lista de precios importada (%s): %d precios", fileHeader.Filename, res.Imported),
				After:       fiber.Map{"file": fileHeader.Filename, "imported": res.Imported, "at": time.Now().Format(time.RFC3339)},
			})
			d.Invalidate(c.UserContext())
			for _, obs := range res.Observations {
				announcePrice(c, d, obs)
			}
		}

		return c.JSON(res)
	}
}
