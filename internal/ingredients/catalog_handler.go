package ingredients

import (
	"fmt"
	"strings"

	"tero-backend/internal/app"
	"tero-backend/internal/audit"
	"tero-backend/internal/database"
	"tero-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type CategoryRequest struct {
	Name     string `json:"name"`
	Position *int   `json:"position"`
}

type SupplierRequest struct {
	Name    *string `json:"name"`
	Contact *string `json:"contact"`
	Phone   *string `json:"phone"`
	Active  *bool   `json:"active"`
}

// GET /api/categories
func ListCategoriesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var categories []models.Category
		if err := database.DB.Order("position, name").Find(&categories).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar las categorías")
		}
		return c.JSON(categories)
	}
}

// POST /api/categories
func CreateCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CategoryRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Datos inválidos")
		}
		name := strings.TrimSpace(body.Name)
		if name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "El nombre es obligatorio")
		}

		cat := models.Category{Name: name}
		if body.Position != nil {
			cat.Position = *body.Position
		}
		if err := database.DB.Create(&cat).Error; err != nil {
			return fiber.NewError(fiber.StatusConflict, "No se pudo crear la categoría (¿nombre repetido?)")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntityCategory,
			EntityID:    cat.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Categoría creada: %s", cat.Name),
			After:       cat,
		})
		return c.Status(fiber.StatusCreated).JSON(cat)
	}
}

// PUT /api/categories/:id
func UpdateCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := app.ParamID(c, "id")
		if err != nil {
			return err
		}
		var cat models.Category
		if err := database.DB.First(&cat, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Categoría no encontrada")
		}

		var body CategoryRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Datos inválidos")
		}
		before := cat
		if name := strings.TrimSpace(body.Name); name != "" {
			cat.Name = name
		}
		if body.Position != nil {
			cat.Position = *body.Position
		}
		if err := database.DB.Save(&cat).Error; err != nil {
			return fiber.NewError(fiber.StatusConflict, "No se pudo actualizar la categoría")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntityCategory,
			EntityID:    cat.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Categoría actualizada: %s", cat.Name),
			Before:      before,
			After:       cat,
		})
		return c.JSON(cat)
	}
}

// DELETE /api/categories/:id
func DeleteCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := app.ParamID(c, "id")
		if err != nil {
			return err
		}
		var cat models.Category
		if err := database.DB.First(&cat, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Categoría no encontrada")
		}

		var used int64
		database.DB.Model(&models.Ingredient{}).Where("category_id = ?", id).Count(&used)
		if used > 0 {
			return fiber.NewError(fiber.StatusConflict, fmt.Sprintf("La categoría tiene %d insumos asignados", used))
		}

		if err := database.DB.Delete(&cat).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo eliminar la categoría")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntityCategory,
			EntityID:    cat.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Categoría eliminada: %s", cat.Name),
			Before:      cat,
		})
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// GET /api/suppliers?active=true
func ListSuppliersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.Supplier{})
		if active := app.QueryBool(c, "active"); active != nil {
			dbq = dbq.Where("active = ?", *active)
		}
		var suppliers []models.Supplier
		if err := dbq.Order("name").Find(&suppliers).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar los proveedores")
		}
		return c.JSON(suppliers)
	}
}

// POST /api/suppliers
func CreateSupplierHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body SupplierRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Datos inválidos")
		}
		if body.Name == nil || strings.TrimSpace(*body.Name) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "El nombre es obligatorio")
		}

		sup := models.Supplier{Name: strings.TrimSpace(*body.Name), Active: true}
		applySupplier(&sup, body)
		if err := database.DB.Create(&sup).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo crear el proveedor")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntitySupplier,
			EntityID:    sup.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Proveedor creado: %s", sup.Name),
			After:       sup,
		})
		return c.Status(fiber.StatusCreated).JSON(sup)
	}
}

// PUT /api/suppliers/:id
func UpdateSupplierHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := app.ParamID(c, "id")
		if err != nil {
			return err
		}
		var sup models.Supplier
		if err := database.DB.First(&sup, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Proveedor no encontrado")
		}

		var body SupplierRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Datos inválidos")
		}
		before := sup
		applySupplier(&sup, body)
		if strings.TrimSpace(sup.Name) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "El nombre es obligatorio")
		}
		if err := database.DB.Save(&sup).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo actualizar el proveedor")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntitySupplier,
			EntityID:    sup.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Proveedor actualizado: %s", sup.Name),
			Before:      before,
			After:       sup,
		})
		return c.JSON(sup)
	}
}

// DELETE /api/suppliers/:id
// Suppliers are deactivated so ingredient history keeps its reference.
func DeactivateSupplierHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := app.ParamID(c, "id")
		if err != nil {
			return err
		}
		var sup models.Supplier
		if err := database.DB.First(&sup, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Proveedor no encontrado")
		}
		if err := database.DB.Model(&sup).Update("active", false).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo desactivar el proveedor")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntitySupplier,
			EntityID:    sup.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Proveedor desactivado: %s", sup.Name),
			Before:      sup,
		})
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func applySupplier(sup *models.Supplier, body SupplierRequest) {
	if body.Name != nil {
		sup.Name = strings.TrimSpace(*body.Name)
	}
	if body.Contact != nil {
		sup.Contact = strings.TrimSpace(*body.Contact)
	}
	if body.Phone != nil {
		sup.Phone = strings.TrimSpace(*body.Phone)
	}
	if body.Active != nil {
		sup.Active = *body.Active
	}
}
