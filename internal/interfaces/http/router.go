package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/mayorista-api/internal/application/ports"
	"github.com/jhoicas/mayorista-api/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Transfers transferService
	Notifier  ports.TransferNotifier
	JWTSecret string
	Logger    zerolog.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token). Bodega y vendedores usan las mismas
	// rutas; el servicio valida que cada usuario sea parte del traslado.
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret),
		RequireRole(entity.RoleAdmin, entity.RoleBodeguero, entity.RoleVendedor))

	transfers := protected.Group("/transfers")
	transferHandler := NewTransferHandler(deps.Transfers, deps.Notifier, deps.Logger)
	transfers.Post("/", transferHandler.Create)
	transfers.Get("/pending", transferHandler.ListPending)
	transfers.Get("/:id", transferHandler.GetByID)
	transfers.Post("/:id/confirm", transferHandler.Confirm)
	transfers.Get("/:id/movements", transferHandler.Movements)
}
