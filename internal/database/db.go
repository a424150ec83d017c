package database

import (
	"fmt"
	"log/slog"

	"tero-backend/internal/config"
	"tero-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Open(cfg *config.Config) (*gorm.DB, error) {
	level := logger.Warn
	if cfg.LogLevel == "debug" {
		level = logger.Info
	}
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("no se pudo conectar a la base de datos: %w", err)
	}
	return db, nil
}

// Init opens the connection, migrates and publishes it as DB.
func Init(cfg *config.Config) error {
	db, err := Open(cfg)
	if err != nil {
		return err
	}
	if err := Migrate(db); err != nil {
		return err
	}
	DB = db
	slog.Info("conexión a la base de datos lista, migración completa")
	return nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.AuditLog{},
		&models.Category{},
		&models.Supplier{},
		&models.Ingredient{},
		&models.PriceObservation{},
		&models.Recipe{},
		&models.RecipeLineItem{},
		&models.MenuSection{},
		&models.MenuItem{},
		&models.EventMenu{},
		&models.Event{},
		&models.EventPayment{},
	)
	if err != nil {
		return fmt.Errorf("error de AutoMigrate: %w", err)
	}

	for _, c := range checkConstraints {
		if err := ensureCheck(db, c); err != nil {
			return err
		}
	}
	return nil
}

type checkConstraint struct {
	table, name, expr string
}

// Row-level invariants that also hold for writes that bypass the model hooks.
var checkConstraints = []checkConstraint{
	{"recipe_line_items", "chk_recipe_line_items_one_ref", "(ingredient_id IS NULL) <> (sub_recipe_id IS NULL)"},
	{"recipe_line_items", "chk_recipe_line_items_not_self", "sub_recipe_id IS NULL OR sub_recipe_id <> recipe_id"},
	{"recipe_line_items", "chk_recipe_line_items_quantity", "quantity > 0"},
	{"ingredients", "chk_ingredients_waste", "waste_pct >= 0 AND waste_pct < 100"},
	{"ingredients", "chk_ingredients_tax", "tax_pct >= 0"},
	{"menu_items", "chk_menu_items_target", "target_margin >= 0 AND target_margin < 1"},
	{"event_payments", "chk_event_payments_category", "category IN ('pago', 'sena', 'ajuste_ipc')"},
}

func ensureCheck(db *gorm.DB, c checkConstraint) error {
	var exists bool
	if err := db.Raw(`
		SELECT EXISTS (
			SELECT 1
			FROM information_schema.table_constraints
			WHERE table_name = ?
			AND constraint_name = ?
		)
	`, c.table, c.name).Scan(&exists).Error; err != nil {
		return fmt.Errorf("no se pudo verificar %s: %w", c.name, err)
	}
	if exists {
		return nil
	}

	slog.Info("agregando constraint", "table", c.table, "constraint", c.name)
	if err := db.Exec(fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s CHECK (%s)", c.table, c.name, c.expr)).Error; err != nil {
		return fmt.Errorf("no se pudo agregar %s: %w", c.name, err)
	}
	return nil
}
