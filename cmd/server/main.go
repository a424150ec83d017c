package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tero-backend/internal/app"
	"tero-backend/internal/cache"
	"tero-backend/internal/config"
	"tero-backend/internal/database"
	"tero-backend/internal/ledger"
	"tero-backend/internal/margin"
	"tero-backend/internal/notify"
	"tero-backend/internal/reports"
	"tero-backend/internal/storage"
	"tero-backend/internal/variation"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "tero",
	Short:         "Costos de recetas, márgenes de carta y cobranza de eventos",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "archivo de configuración (yaml, json o env)")
	rootCmd.AddCommand(serveCmd, migrateCmd, importPricesCmd, exportCostsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("error fatal", "err", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration and installs the process logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(newLogger(cfg))
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// buildDeps connects the database and every optional collaborator. Redis,
// Kafka and S3 are skipped when not configured.
func buildDeps(ctx context.Context, cfg *config.Config) (*app.Deps, func(), error) {
	if err := database.Init(cfg); err != nil {
		return nil, nil, err
	}
	store := storage.New(database.DB)

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		var err error
		rdb, err = cache.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			slog.Warn("redis no disponible, el dashboard se calcula en cada pedido", "err", err)
			rdb = nil
		}
	}

	archiver, err := reports.NewS3Archiver(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	notifier := notify.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)

	svc := ledger.New(store,
		margin.Policy{CriticalFactor: cfg.MarginCriticalFactor},
		variation.Config{
			Window:    cfg.VariationWindow,
			Threshold: cfg.VariationThreshold,
			Limit:     cfg.DashboardTopN,
		})

	d := &app.Deps{
		Config:    cfg,
		Store:     store,
		Ledger:    svc,
		Dashboard: cache.NewDashboard(rdb, cfg.DashboardCacheTTL),
		Notifier:  notifier,
		Archiver:  archiver,
	}

	cleanup := func() {
		if err := notifier.Close(); err != nil {
			slog.Warn("no se pudo cerrar kafka", "err", err)
		}
		if rdb != nil {
			rdb.Close()
		}
	}
	return d, cleanup, nil
}

func newApp(cfg *config.Config) *fiber.App {
	a := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var e *fiber.Error
			if errors.As(err, &e) {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			slog.Error("error inesperado", "method", c.Method(), "path", c.Path(), "err", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Error inesperado del servidor",
			})
		},
	})

	origins := strings.Split(cfg.CORSOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	a.Use(recover.New())
	a.Use(logger.New())
	a.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(origins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))
	return a
}

func serve(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	d, cleanup, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	a := newApp(cfg)
	registerRoutes(a, d)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("servidor escuchando", "port", cfg.HTTPPort)
		errCh <- a.Listen(":" + cfg.HTTPPort)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("apagando el servidor")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.ShutdownWithContext(shutdownCtx); err != nil {
		return fmt.Errorf("apagado: %w", err)
	}
	return nil
}
