package auth

import (
	"strings"
	"time"

	"tero-backend/internal/config"
	"tero-backend/internal/database"
	"tero-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 8

type BootstrapAdminRequest struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserPayload is the public view of a user.
func UserPayload(u *models.User) fiber.Map {
	return fiber.Map{
		"id":         u.ID,
		"username":   u.Username,
		"name":       u.Name,
		"email":      u.Email,
		"role":       u.Role,
		"active":     u.Active,
		"last_login": u.LastLogin,
	}
}

// HashPassword validates the length and returns a bcrypt hash.
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", fiber.NewError(fiber.StatusBadRequest, "La contraseña debe tener al menos 8 caracteres")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fiber.NewError(fiber.StatusInternalServerError, "No se pudo procesar la contraseña")
	}
	return string(hash), nil
}

// POST /api/auth/bootstrap
// Creates the first admin. Refused once any user exists.
func BootstrapAdminHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body BootstrapAdminRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la solicitud inválido")
		}

		body.Username = strings.TrimSpace(strings.ToLower(body.Username))
		if body.Username == "" || body.Password == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Usuario y contraseña son obligatorios")
		}

		var count int64
		if err := database.DB.Model(&models.User{}).Count(&count).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo verificar los usuarios")
		}
		if count > 0 {
			return fiber.NewError(fiber.StatusForbidden, "Ya existe un usuario administrador")
		}

		hash, err := HashPassword(body.Password)
		if err != nil {
			return err
		}

		user := models.User{
			Username:     body.Username,
			Name:         strings.TrimSpace(body.Name),
			PasswordHash: hash,
			Role:         models.RoleAdmin,
			Active:       true,
		}
		if email := strings.TrimSpace(strings.ToLower(body.Email)); email != "" {
			user.Email = &email
		}

		if err := database.DB.Create(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo crear el usuario")
		}

		return c.Status(fiber.StatusCreated).JSON(UserPayload(&user))
	}
}

// POST /api/auth/login
func LoginHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la solicitud inválido")
		}

		body.Username = strings.TrimSpace(strings.ToLower(body.Username))

		var user models.User
		if err := database.DB.Where("username = ?", body.Username).First(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Usuario o contraseña incorrectos")
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Usuario o contraseña incorrectos")
		}

		if !user.Active {
			return fiber.NewError(fiber.StatusForbidden, "El usuario está desactivado")
		}

		token, err := GenerateToken(cfg.JWTSecret, cfg.JWTTTL, &user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo generar el token")
		}

		now := time.Now()
		if err := database.DB.Model(&user).UpdateColumn("last_login", now).Error; err == nil {
			user.LastLogin = &now
		}

		return c.JSON(fiber.Map{
			"token": token,
			"user":  UserPayload(&user),
		})
	}
}

// GET /api/auth/me
func MeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, username, err := CurrentUser(c)
		if err != nil {
			return err
		}

		var user models.User
		if err := database.DB.First(&user, userID).Error; err == nil {
			return c.JSON(UserPayload(&user))
		}

		// fall back to the token claims
		return c.JSON(fiber.Map{
			"id":       userID,
			"username": username,
			"role":     c.Locals(CtxUserRoleKey),
		})
	}
}
