package main

import (
	"tero-backend/internal/admin"
	"tero-backend/internal/app"
	"tero-backend/internal/audit"
	"tero-backend/internal/auth"
	"tero-backend/internal/dashboard"
	"tero-backend/internal/events"
	"tero-backend/internal/ingredients"
	"tero-backend/internal/menu"
	"tero-backend/internal/models"
	"tero-backend/internal/recipes"

	"github.com/gofiber/fiber/v2"
)

func registerRoutes(a *fiber.App, d *app.Deps) {
	cfg := d.Config
	api := a.Group("/api")

	// Public auth
	api.Post("/auth/bootstrap", auth.BootstrapAdminHandler())
	api.Post("/auth/login", auth.LoginHandler(cfg))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))
	protected.Get("/auth/me", auth.MeHandler())

	writer := auth.RequireRole(models.RoleAdmin, models.RoleChef)
	adminOnly := auth.RequireRole(models.RoleAdmin)

	// Dashboard and reports
	protected.Get("/dashboard", dashboard.SummaryHandler(d))
	protected.Get("/dashboard/price-variations", dashboard.PriceVariationsHandler(d))
	protected.Get("/reports/costs", dashboard.CostWorkbookHandler(d))

	// Catalogs
	protected.Get("/categories", ingredients.ListCategoriesHandler())
	protected.Post("/categories", writer, ingredients.CreateCategoryHandler())
	protected.Put("/categories/:id", writer, ingredients.UpdateCategoryHandler())
	protected.Delete("/categories/:id", adminOnly, ingredients.DeleteCategoryHandler())

	protected.Get("/suppliers", ingredients.ListSuppliersHandler())
	protected.Post("/suppliers", writer, ingredients.CreateSupplierHandler())
	protected.Put("/suppliers/:id", writer, ingredients.UpdateSupplierHandler())
	protected.Delete("/suppliers/:id", adminOnly, ingredients.DeactivateSupplierHandler())

	// Ingredients and prices
	protected.Get("/ingredients", ingredients.ListIngredientsHandler(d))
	protected.Post("/ingredients/prices/import", writer, ingredients.ImportPricesHandler(d))
	protected.Get("/ingredients/:id", ingredients.GetIngredientHandler(d))
	protected.Post("/ingredients", writer, ingredients.CreateIngredientHandler(d))
	protected.Put("/ingredients/:id", writer, ingredients.UpdateIngredientHandler(d))
	protected.Delete("/ingredients/:id", adminOnly, ingredients.DeleteIngredientHandler(d))
	protected.Post("/ingredients/:id/prices", writer, ingredients.AddPriceHandler(d))

	// Recipes
	protected.Get("/recipes", recipes.ListRecipesHandler(d))
	protected.Get("/recipes/:id", recipes.GetRecipeHandler(d))
	protected.Post("/recipes", writer, recipes.CreateRecipeHandler(d))
	protected.Put("/recipes/:id", writer, recipes.UpdateRecipeHandler(d))
	protected.Delete("/recipes/:id", adminOnly, recipes.DeleteRecipeHandler(d))
	protected.Post("/recipes/:id/lines", writer, recipes.AddLineHandler(d))
	protected.Put("/recipes/:id/lines/:lineId", writer, recipes.UpdateLineHandler(d))
	protected.Delete("/recipes/:id/lines/:lineId", writer, recipes.DeleteLineHandler(d))

	// Menu
	protected.Get("/menu", menu.ListMenuHandler(d))
	protected.Get("/menu/alerts", menu.MenuAlertsHandler(d))
	protected.Post("/menu", writer, menu.CreateMenuItemHandler(d))
	protected.Put("/menu/:id", writer, menu.UpdateMenuItemHandler(d))
	protected.Delete("/menu/:id", adminOnly, menu.DeactivateMenuItemHandler(d))

	protected.Get("/menu-sections", menu.ListSectionsHandler())
	protected.Post("/menu-sections", writer, menu.CreateSectionHandler())
	protected.Put("/menu-sections/:id", writer, menu.UpdateSectionHandler(d))
	protected.Delete("/menu-sections/:id", adminOnly, menu.DeleteSectionHandler())

	// Events and payments
	protected.Get("/events", events.ListEventsHandler())
	protected.Get("/events/stats", events.EventStatsHandler(d))
	protected.Get("/events/:id", events.GetEventHandler())
	protected.Post("/events", writer, events.CreateEventHandler(d))
	protected.Put("/events/:id", writer, events.UpdateEventHandler(d))
	protected.Delete("/events/:id", adminOnly, events.DeleteEventHandler())

	protected.Get("/events/:id/payments", events.ListPaymentsHandler(d))
	protected.Post("/events/:id/payments", writer, events.CreatePaymentHandler(d))
	protected.Delete("/events/:id/payments/:paymentId", adminOnly, events.DeletePaymentHandler(d))

	protected.Get("/event-menus", events.ListEventMenusHandler())
	protected.Post("/event-menus", adminOnly, events.CreateEventMenuHandler())

	// Admin routes
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(adminOnly)

	adminRoutes.Get("/users", admin.ListUsersHandler())
	adminRoutes.Post("/users", admin.CreateUserHandler())
	adminRoutes.Put("/users/:id", admin.UpdateUserHandler())
	adminRoutes.Delete("/users/:id", admin.DeactivateUserHandler())

	adminRoutes.Get("/audit-logs", audit.ListAuditLogsHandler())
}
