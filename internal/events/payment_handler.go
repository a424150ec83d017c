package events

import (
	"fmt"
	"strings"

	"tero-backend/internal/app"
	"tero-backend/internal/audit"
	"tero-backend/internal/billing"
	"tero-backend/internal/database"
	"tero-backend/internal/models"
	"tero-backend/internal/notify"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type PaymentRequest struct {
	Amount   decimal.Decimal         `json:"amount"`
	Category billing.PaymentCategory `json:"category"`
	Date     string                  `json:"date"`
	Notes    string                  `json:"notes"`
}

type PaymentsResponse struct {
	Payments         []models.EventPayment `json:"payments"`
	Balance          billing.Balance       `json:"balance"`
	CollectedPercent float64               `json:"collected_percent"`
}

type paymentNotice struct {
	EventID  uint                    `json:"event_id"`
	Amount   decimal.Decimal         `json:"amount"`
	Category billing.PaymentCategory `json:"category"`
	Pending  decimal.Decimal         `json:"pending"`
}

// eventBalance reloads the payment history and folds it against the stored total.
func eventBalance(c *fiber.Ctx, d *app.Deps, e models.Event) ([]models.EventPayment, billing.Balance, error) {
	payments, err := d.Store.PaymentsForEvent(c.UserContext(), e.ID)
	if err != nil {
		return nil, billing.Balance{}, err
	}
	list := make([]billing.Payment, 0, len(payments))
	for _, p := range payments {
		list = append(list, p.Billing())
	}
	return payments, billing.Summarize(e.Total, list), nil
}

func findEvent(c *fiber.Ctx) (models.Event, error) {
	var e models.Event
	id, err := app.ParamID(c, "id")
	if err != nil {
		return e, err
	}
	if err := database.DB.First(&e, id).Error; err != nil {
		return e, fiber.NewError(fiber.StatusNotFound, "Evento no encontrado")
	}
	return e, nil
}

// GET /api/events/:id/payments
func ListPaymentsHandler(d *app.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		e, err := findEvent(c)
		if err != nil {
			return err
		}
		payments, balance, err := eventBalance(c, d, e)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron leer los pagos")
		}
		if payments == nil {
			payments = []models.EventPayment{}
		}
		return c.JSON(PaymentsResponse{
			Payments:         payments,
			Balance:          balance,
			CollectedPercent: balance.CollectedPercent(),
		})
	}
}

// POST /api/events/:id/payments
func CreatePaymentHandler(d *app.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		e, err := findEvent(c)
		if err != nil {
			return err
		}

		var body PaymentRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Datos inválidos")
		}
		if body.Category == "" {
			body.Category = billing.CategoryRegular
		}
		date, err := app.ParseDate(body.Date)
		if err != nil {
			return err
		}

		payment := models.EventPayment{
			EventID:  e.ID,
			Date:     date,
			Amount:   body.Amount,
			Category: body.Category,
			Notes:    strings.TrimSpace(body.Notes),
		}
		if err := billing.ValidatePayment(payment.Billing()); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := database.DB.Create(&payment).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo registrar el pago")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntityPayment,
			EntityID:    payment.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Pago (%s) de $%s para el evento de %s", payment.Category, payment.Amount.StringFixed(2), e.Client),
			After:       payment,
		})

		_, balance, err := eventBalance(c, d, e)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo calcular el saldo")
		}
		d.Publish(c.UserContext(), notify.PaymentRecorded, payment.ID, paymentNotice{
			EventID:  e.ID,
			Amount:   payment.Amount,
			Category: payment.Category,
			Pending:  balance.Pending,
		})

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"payment":           payment,
			"balance":           balance,
			"collected_percent": balance.CollectedPercent(),
		})
	}
}

// DELETE /api/events/:id/payments/:paymentId
func DeletePaymentHandler(d *app.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		e, err := findEvent(c)
		if err != nil {
			return err
		}
		paymentID, err := app.ParamID(c, "paymentId")
		if err != nil {
			return err
		}
		var payment models.EventPayment
		if err := database.DB.Where("id = ? AND event_id = ?", paymentID, e.ID).First(&payment).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Pago no encontrado")
		}
		if err := database.DB.Delete(&payment).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo eliminar el pago")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntityPayment,
			EntityID:    payment.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Pago eliminado: $%s del evento de %s", payment.Amount.StringFixed(2), e.Client),
			Before:      payment,
		})

		_, balance, err := eventBalance(c, d, e)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo calcular el saldo")
		}
		d.Publish(c.UserContext(), notify.PaymentDeleted, payment.ID, paymentNotice{
			EventID:  e.ID,
			Amount:   payment.Amount,
			Category: payment.Category,
			Pending:  balance.Pending,
		})
		return c.JSON(fiber.Map{"balance": balance, "collected_percent": balance.CollectedPercent()})
	}
}
