package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"tero-backend/internal/app"
	"tero-backend/internal/audit"
	"tero-backend/internal/billing"
	"tero-backend/internal/database"
	"tero-backend/internal/ledger"
	"tero-backend/internal/models"
	"tero-backend/internal/notify"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// -------------------------
// Request/Response Types
// -------------------------

type EventRequest struct {
	Date       string                `json:"date"`
	Client     string                `json:"client"`
	Phone      string                `json:"phone"`
	Shift      string                `json:"shift"`
	StartTime  string                `json:"start_time"`
	EndTime    string                `json:"end_time"`
	Seller     string                `json:"seller"`
	EventType  string                `json:"event_type"`
	Hall       string                `json:"hall"`
	MenuID     *uint                 `json:"menu_id"`
	MenuDetail json.RawMessage       `json:"menu_detail"`
	AV         bool                  `json:"av"`
	DJ         bool                  `json:"dj"`
	PremiumAV  bool                  `json:"premium_av"`
	Other      string                `json:"other"`
	Adults     int                   `json:"adults"`
	AdultPrice decimal.Decimal       `json:"adult_price"`
	Minors     int                   `json:"minors"`
	MinorPrice decimal.Decimal       `json:"minor_price"`
	Extras     []billing.ExtraCharge `json:"extras"`
	Confirmed  bool                  `json:"confirmed"`
}

type EventResponse struct {
	models.Event
	Guests           int             `json:"guests"`
	Balance          billing.Balance `json:"balance"`
	CollectedPercent float64         `json:"collected_percent"`
}

type EventDetailResponse struct {
	EventResponse
	Payments []models.EventPayment `json:"payments"`
}

type totalRecomputed struct {
	EventID uint            `json:"event_id"`
	Total   decimal.Decimal `json:"total"`
	Guests  int             `json:"guests"`
}

func toResponse(e models.Event) EventResponse {
	b := ledger.EventBalance(e)
	return EventResponse{
		Event:            e,
		Guests:           e.Adults + e.Minors,
		Balance:          b,
		CollectedPercent: b.CollectedPercent(),
	}
}

func chargeError(err error) error {
	switch {
	case errors.Is(err, billing.ErrTooManyExtras),
		errors.Is(err, billing.ErrChargeType),
		errors.Is(err, billing.ErrNegativeGuests),
		errors.Is(err, billing.ErrNegativePrice):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

// applyEvent copies the request over the event and validates the charges.
func applyEvent(e *models.Event, body EventRequest) error {
	if strings.TrimSpace(body.Date) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "La fecha es obligatoria")
	}
	date, err := app.ParseDate(body.Date)
	if err != nil {
		return err
	}
	client := strings.TrimSpace(body.Client)
	if client == "" {
		return fiber.NewError(fiber.StatusBadRequest, "El cliente es obligatorio")
	}

	e.Date = date
	e.Client = client
	e.Phone = strings.TrimSpace(body.Phone)
	e.Shift = strings.TrimSpace(body.Shift)
	e.StartTime = body.StartTime
	e.EndTime = body.EndTime
	e.Seller = strings.TrimSpace(body.Seller)
	e.EventType = strings.TrimSpace(body.EventType)
	e.Hall = strings.TrimSpace(body.Hall)
	e.MenuID = body.MenuID
	if body.MenuID != nil && *body.MenuID == 0 {
		e.MenuID = nil
	}
	e.MenuDetail = "null"
	if len(body.MenuDetail) > 0 {
		if !json.Valid(body.MenuDetail) {
			return fiber.NewError(fiber.StatusBadRequest, "El detalle de menú no es JSON válido")
		}
		e.MenuDetail = string(body.MenuDetail)
	}
	e.AV, e.DJ, e.PremiumAV = body.AV, body.DJ, body.PremiumAV
	e.Other = strings.TrimSpace(body.Other)
	e.Adults, e.Minors = body.Adults, body.Minors
	e.AdultPrice, e.MinorPrice = body.AdultPrice, body.MinorPrice
	e.Confirmed = body.Confirmed

	if err := e.SetExtras(body.Extras); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	charges := e.Charges()
	if err := charges.Validate(); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

// saveEvent stores the event with its recomputed total and announces it.
func saveEvent(c *fiber.Ctx, d *app.Deps, e *models.Event) error {
	total, err := d.Store.RecomputeAndStoreEventTotal(c.UserContext(), e)
	if err != nil {
		if cErr := chargeError(err); cErr != nil {
			return cErr
		}
		return fiber.NewError(fiber.StatusInternalServerError, "No se pudo guardar el evento")
	}
	d.Publish(c.UserContext(), notify.EventTotalRecomputed, e.ID, totalRecomputed{
		EventID: e.ID,
		Total:   total,
		Guests:  e.Adults + e.Minors,
	})
	return nil
}

// -------------------------
// Event CRUD
// -------------------------

// GET /api/events?year=&month=&confirmed=&seller=&search=
func ListEventsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.Event{}).Preload("Payments")

		year, month := c.QueryInt("year"), c.QueryInt("month")
		if month > 0 && year == 0 {
			year = time.Now().Year()
		}
		if year > 0 {
			from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
			to := from.AddDate(1, 0, 0)
			if month >= 1 && month <= 12 {
				from = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
				to = from.AddDate(0, 1, 0)
			}
			dbq = dbq.Where("date >= ? AND date < ?", from, to)
		}
		if confirmed := app.QueryBool(c, "confirmed"); confirmed != nil {
			dbq = dbq.Where("confirmed = ?", *confirmed)
		}
		if seller := strings.TrimSpace(c.Query("seller")); seller != "" {
			dbq = dbq.Where("seller = ?", seller)
		}
		if search := strings.TrimSpace(c.Query("search")); search != "" {
			like := "%" + search + "%"
			dbq = dbq.Where("(client ILIKE ? OR phone ILIKE ?)", like, like)
		}

		var list []models.Event
		if err := dbq.Order("date, start_time").Find(&list).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar los eventos")
		}

		resp := make([]EventResponse, 0, len(list))
		for _, e := range list {
			resp = append(resp, toResponse(e))
		}
		return c.JSON(resp)
	}
}

// GET /api/events/stats?year=
func EventStatsHandler(d *app.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		year := c.QueryInt("year", time.Now().Year())
		if year < 2000 || year > 2100 {
			return fiber.NewError(fiber.StatusBadRequest, "Año inválido")
		}
		stats, err := d.Ledger.EventStats(c.UserContext(), year)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron calcular las estadísticas")
		}
		return c.JSON(stats)
	}
}

// GET /api/events/:id
func GetEventHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := app.ParamID(c, "id")
		if err != nil {
			return err
		}
		var e models.Event
		err = database.DB.Preload("Payments", func(db *gorm.DB) *gorm.DB {
			return db.Order("date DESC, id DESC")
		}).First(&e, id).Error
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Evento no encontrado")
		}

		payments := e.Payments
		if payments == nil {
			payments = []models.EventPayment{}
		}
		return c.JSON(EventDetailResponse{EventResponse: toResponse(e), Payments: payments})
	}
}

// POST /api/events
func CreateEventHandler(d *app.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body EventRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Datos inválidos")
		}

		var e models.Event
		if err := applyEvent(&e, body); err != nil {
			return err
		}
		if err := saveEvent(c, d, &e); err != nil {
			return err
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntityEvent,
			EntityID:    e.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Evento creado: %s (%s), total $%s", e.Client, e.Date.Format(app.DateLayout), e.Total.StringFixed(2)),
			After:       e,
		})
		return c.Status(fiber.StatusCreated).JSON(toResponse(e))
	}
}

// PUT /api/events/:id
// The whole event is replaced; concurrent edits resolve to the last write.
func UpdateEventHandler(d *app.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := app.ParamID(c, "id")
		if err != nil {
			return err
		}
		var e models.Event
		if err := database.DB.Preload("Payments").First(&e, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Evento no encontrado")
		}

		var body EventRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Datos inválidos")
		}

		before := e
		if err := applyEvent(&e, body); err != nil {
			return err
		}
		if err := saveEvent(c, d, &e); err != nil {
			return err
		}

		description := fmt.Sprintf("Evento actualizado: %s", e.Client)
		if !before.Total.Equal(e.Total) {
			description = fmt.Sprintf("Evento %s: total $%s -> $%s", e.Client, before.Total.StringFixed(2), e.Total.StringFixed(2))
		}
		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntityEvent,
			EntityID:    e.ID,
			Action:      models.AuditActionUpdate,
			Description: description,
			Before:      before,
			After:       e,
		})
		return c.JSON(toResponse(e))
	}
}

// DELETE /api/events/:id
// Payments go with the event.
func DeleteEventHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := app.ParamID(c, "id")
		if err != nil {
			return err
		}
		var e models.Event
		if err := database.DB.First(&e, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Evento no encontrado")
		}

		tx := database.DB.Begin()
		if err := tx.Where("event_id = ?", id).Delete(&models.EventPayment{}).Error; err != nil {
			tx.Rollback()
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron eliminar los pagos")
		}
		if err := tx.Delete(&e).Error; err != nil {
			tx.Rollback()
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo eliminar el evento")
		}
		if err := tx.Commit().Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo eliminar el evento")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntityEvent,
			EntityID:    e.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Evento eliminado: %s (%s)", e.Client, e.Date.Format(app.DateLayout)),
			Before:      e,
		})
		return c.SendStatus(fiber.StatusNoContent)
	}
}
