package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	_ "github.com/jhoicas/stock-ledger/docs"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/usecase"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/metrics"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/storage"
	httpRouter "github.com/jhoicas/stock-ledger/internal/interfaces/http"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.Log.Level,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.Storage.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()
	backend, err := storage.Open(ctx, cfg, log.Zerolog())
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar almacenamiento")
	}
	defer backend.Close()

	m := metrics.New("stock_ledger")
	zl := log.Zerolog()

	engine := inventory.NewAdjustmentEngine(backend.Runner, zl,
		inventory.WithMaxAttempts(cfg.Ledger.MaxAttempts),
		inventory.WithRecorder(m),
	)
	ledger := inventory.NewLedgerQuery(backend.Items, backend.Movements)
	replenishmentUC := inventory.NewReplenishmentUseCase(backend.Items)
	receiving := inventory.NewReceivingOrchestrator(engine, backend.PurchaseOrders, zl, m)
	reconciler := inventory.NewReconciler(backend.Items, backend.Movements, backend.Pending, zl, m)
	itemUC := usecase.NewItemUseCase(backend.Items)
	purchaseOrderUC := usecase.NewPurchaseOrderUseCase(backend.PurchaseOrders, backend.Items)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(httpRouter.MetricsMiddleware(m))

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Stock Ledger API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})
	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	httpRouter.Router(app, httpRouter.RouterDeps{
		ItemUC:          itemUC,
		PurchaseOrderUC: purchaseOrderUC,
		Engine:          engine,
		Ledger:          ledger,
		Replenishment:   replenishmentUC,
		Receiving:       receiving,
		Reconciler:      reconciler,
		AdjustTimeout:   cfg.Ledger.AdjustTimeout(),
		JWTSecret:       cfg.JWT.Secret,
		Log:             zl,
	})

	bgCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()
	if interval := cfg.Reconcile.Interval(); interval > 0 {
		go runReconciler(bgCtx, reconciler, interval, cfg.Reconcile.Batch, zl)
	}

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")
	stopBackground()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

// runReconciler repara periódicamente las operaciones pendientes hasta que ctx se cancele.
func runReconciler(ctx context.Context, r *inventory.Reconciler, interval time.Duration, batch int, log zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			summary, err := r.RepairPending(ctx, batch)
			if err != nil {
				log.Error().Err(err).Msg("pasada de reconciliación")
				continue
			}
			if summary.Scanned > 0 || len(summary.Manual) > 0 {
				log.Info().
					Int("scanned", summary.Scanned).
					Int("completed", summary.Completed).
					Int("replayed", summary.Replayed).
					Int("abandoned", summary.Abandoned).
					Strs("manual", summary.Manual).
					Msg("pasada de reconciliación")
			}
		}
	}
}
