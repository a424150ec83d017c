package admin

import (
	"fmt"
	"strings"

	"tero-backend/internal/app"
	"tero-backend/internal/audit"
	"tero-backend/internal/auth"
	"tero-backend/internal/database"
	"tero-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type CreateUserRequest struct {
	Username string          `json:"username"`
	Name     string          `json:"name"`
	Email    string          `json:"email"`
	Password string          `json:"password"`
	Role     models.UserRole `json:"role"`
}

type UpdateUserRequest struct {
	Name     *string          `json:"name"`
	Email    *string          `json:"email"`
	Password *string          `json:"password"`
	Role     *models.UserRole `json:"role"`
	Active   *bool            `json:"active"`
}

// userSnapshot is what goes into the audit log; never the password hash.
func userSnapshot(u models.User) fiber.Map {
	return auth.UserPayload(&u)
}

// ----------------------------------------
// USER CRUD
// ----------------------------------------

// GET /api/admin/users
func ListUsersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var users []models.User
		if err := database.DB.Order("username").Find(&users).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar los usuarios")
		}

		res := make([]fiber.Map, 0, len(users))
		for i := range users {
			res = append(res, auth.UserPayload(&users[i]))
		}
		return c.JSON(res)
	}
}

// POST /api/admin/users
func CreateUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateUserRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Datos inválidos")
		}

		body.Username = strings.ToLower(strings.TrimSpace(body.Username))
		body.Name = strings.TrimSpace(body.Name)
		if body.Username == "" || body.Password == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Usuario y contraseña son obligatorios")
		}
		if body.Role == "" {
			body.Role = models.RoleViewer
		}
		if !body.Role.Valid() {
			return fiber.NewError(fiber.StatusBadRequest, "Rol inválido (admin, chef o viewer)")
		}

		var exists int64
		database.DB.Model(&models.User{}).Where("username = ?", body.Username).Count(&exists)
		if exists > 0 {
			return fiber.NewError(fiber.StatusConflict, "El usuario ya existe")
		}

		hash, err := auth.HashPassword(body.Password)
		if err != nil {
			return err
		}

		user := models.User{
			Username:     body.Username,
			Name:         body.Name,
			PasswordHash: hash,
			Role:         body.Role,
			Active:       true,
		}
		if email := strings.ToLower(strings.TrimSpace(body.Email)); email != "" {
			user.Email = &email
		}

		if err := database.DB.Create(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo crear el usuario")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntityUser,
			EntityID:    user.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Usuario creado: %s (%s)", user.Username, user.Role),
			After:       userSnapshot(user),
		})
		return c.Status(fiber.StatusCreated).JSON(auth.UserPayload(&user))
	}
}

// PUT /api/admin/users/:id
func UpdateUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := app.ParamID(c, "id")
		if err != nil {
			return err
		}
		var user models.User
		if err := database.DB.First(&user, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Usuario no encontrado")
		}

		var body UpdateUserRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Datos inválidos")
		}

		currentID, _, _ := auth.CurrentUser(c)
		if currentID == user.ID {
			if body.Active != nil && !*body.Active {
				return fiber.NewError(fiber.StatusBadRequest, "No podés desactivar tu propio usuario")
			}
			if body.Role != nil && *body.Role != models.RoleAdmin {
				return fiber.NewError(fiber.StatusBadRequest, "No podés quitarte el rol de administrador")
			}
		}

		before := userSnapshot(user)
		if body.Name != nil {
			user.Name = strings.TrimSpace(*body.Name)
		}
		if body.Email != nil {
			email := strings.ToLower(strings.TrimSpace(*body.Email))
			if email == "" {
				user.Email = nil
			} else {
				user.Email = &email
			}
		}
		if body.Role != nil {
			if !body.Role.Valid() {
				return fiber.NewError(fiber.StatusBadRequest, "Rol inválido (admin, chef o viewer)")
			}
			user.Role = *body.Role
		}
		if body.Active != nil {
			user.Active = *body.Active
		}
		if body.Password != nil {
			hash, err := auth.HashPassword(*body.Password)
			if err != nil {
				return err
			}
			user.PasswordHash = hash
		}

		if err := database.DB.Save(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo actualizar el usuario")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntityUser,
			EntityID:    user.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Usuario actualizado: %s", user.Username),
			Before:      before,
			After:       userSnapshot(user),
		})
		return c.JSON(auth.UserPayload(&user))
	}
}

// DELETE /api/admin/users/:id
// Users are deactivated; their audit trail keeps pointing at them.
func DeactivateUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := app.ParamID(c, "id")
		if err != nil {
			return err
		}
		currentID, _, _ := auth.CurrentUser(c)
		if currentID == id {
			return fiber.NewError(fiber.StatusBadRequest, "No podés desactivar tu propio usuario")
		}

		var user models.User
		if err := database.DB.First(&user, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Usuario no encontrado")
		}
		if err := database.DB.Model(&user).Update("active", false).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo desactivar el usuario")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  audit.EntityUser,
			EntityID:    user.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Usuario desactivado: %s", user.Username),
			Before:      userSnapshot(user),
		})
		return c.SendStatus(fiber.StatusNoContent)
	}
}
