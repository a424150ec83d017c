package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tero-backend/internal/app"
	"tero-backend/internal/auth"
	"tero-backend/internal/config"
	"tero-backend/internal/database"
	"tero-backend/internal/ledger"
	"tero-backend/internal/margin"
	"tero-backend/internal/models"
	"tero-backend/internal/storage"
	"tero-backend/internal/testutil"
	"tero-backend/internal/variation"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "secreto-de-prueba"

func newRoutedApp(t *testing.T) *fiber.App {
	db, _ := testutil.NewMockDB(t)
	database.DB = db

	cfg := &config.Config{JWTSecret: testSecret, JWTTTL: time.Hour, CORSOrigins: "*"}
	store := storage.New(db)
	d := &app.Deps{
		Config: cfg,
		Store:  store,
		Ledger: ledger.New(store, margin.DefaultPolicy(), variation.DefaultConfig()),
	}
	a := newApp(cfg)
	registerRoutes(a, d)
	return a
}

func tokenFor(t *testing.T, role models.UserRole) string {
	t.Helper()
	tok, err := auth.GenerateToken(testSecret, time.Hour, &models.User{ID: 7, Username: "lucia", Role: role})
	require.NoError(t, err)
	return tok
}

func do(t *testing.T, a *fiber.App, method, path, token, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.Test(req)
	require.NoError(t, err)
	return resp
}

func TestRoutes_RequireToken(t *testing.T) {
	a := newRoutedApp(t)

	resp := do(t, a, http.MethodGet, "/api/ingredients", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Falta el header Authorization", body["error"])

	resp = do(t, a, http.MethodGet, "/api/ingredients", "no-es-un-jwt", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRoutes_RoleMatrix(t *testing.T) {
	a := newRoutedApp(t)

	tests := []struct {
		name   string
		role   models.UserRole
		method string
		path   string
	}{
		{"viewer cannot create ingredients", models.RoleViewer, http.MethodPost, "/api/ingredients"},
		{"viewer cannot record payments", models.RoleViewer, http.MethodPost, "/api/events/1/payments"},
		{"viewer cannot edit recipes", models.RoleViewer, http.MethodPut, "/api/recipes/1"},
		{"chef cannot delete ingredients", models.RoleChef, http.MethodDelete, "/api/ingredients/1"},
		{"chef cannot delete payments", models.RoleChef, http.MethodDelete, "/api/events/1/payments/2"},
		{"chef cannot list users", models.RoleChef, http.MethodGet, "/api/admin/users"},
		{"chef cannot read audit logs", models.RoleChef, http.MethodGet, "/api/admin/audit-logs"},
		{"chef cannot create event menus", models.RoleChef, http.MethodPost, "/api/event-menus"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, a, tt.method, tt.path, tokenFor(t, tt.role), `{}`)
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		})
	}
}

func TestRoutes_Me(t *testing.T) {
	a := newRoutedApp(t)

	resp := do(t, a, http.MethodGet, "/api/auth/me", tokenFor(t, models.RoleChef), "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNewApp_UnexpectedErrorIsHidden(t *testing.T) {
	a := newApp(&config.Config{CORSOrigins: "http://localhost:3000"})
	a.Get("/boom", func(c *fiber.Ctx) error {
		return assert.AnError
	})

	resp, err := a.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Error inesperado del servidor", body["error"])
}

func TestNewLogger_Format(t *testing.T) {
	l := newLogger(&config.Config{LogLevel: "debug", LogFormat: "json"})
	assert.NotNil(t, l.Handler())
}
