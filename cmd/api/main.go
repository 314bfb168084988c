package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/mayorista-api/internal/application/ports"
	"github.com/jhoicas/mayorista-api/internal/application/transfer"
	"github.com/jhoicas/mayorista-api/internal/infrastructure/notify"
	"github.com/jhoicas/mayorista-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/mayorista-api/internal/interfaces/http"
	"github.com/jhoicas/mayorista-api/pkg/config"
	"github.com/jhoicas/mayorista-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
		App:   cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if cfg.DB.Migrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("migraciones")
		}
		log.Info().Msg("migraciones aplicadas")
	}

	transferSvc := transfer.NewService(
		postgres.NewTxRunner(pool),
		postgres.NewTransferRepository(pool),
		postgres.NewStockRepository(pool),
		postgres.NewStockMovementRepository(pool),
		postgres.NewUserRepository(pool),
		postgres.NewProductRepository(pool),
		transfer.Config{TTL: cfg.Transfer.TTL()},
		log.Component("transfer"),
	)

	// Eventos de traslado: RabbitMQ si está configurado; si no, sólo log.
	var notifier ports.TransferNotifier = notify.NewNop(log.Component("notify"))
	if cfg.RabbitMQ.Enabled() {
		rmq := notify.NewRabbitMQNotifier(cfg.RabbitMQ, log.Component("notify"))
		if err := rmq.Connect(ctx); err != nil {
			log.Error().Err(err).Msg("RabbitMQ no disponible; los eventos sólo se registran en el log")
		} else {
			defer rmq.Close()
			notifier = rmq
		}
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		if err := pool.Ping(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "db_unavailable", "service": cfg.App.Name})
		}
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Transfers: transferSvc,
		Notifier:  notifier,
		JWTSecret: cfg.JWT.Secret,
		Logger:    log.Component("http"),
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
