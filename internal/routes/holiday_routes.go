package routes

import (
	"hr-request-backend/internal/handler"
	"hr-request-backend/internal/middleware"
	"hr-request-backend/internal/model"

	"github.com/gofiber/fiber/v2"
)

func SetupHolidayRoutes(app *fiber.App, hdl *handler.HolidayHandler, auth fiber.Handler) {
	api := app.Group("/api/holidays", auth)
	adminOnly := middleware.Role(model.RoleAdmin)

	api.Get("/", hdl.GetAll)
	api.Get("/check", hdl.Check)
	api.Post("/", adminOnly, hdl.Create)
	api.Put("/:id", adminOnly, hdl.Update)
	api.Delete("/:id", adminOnly, hdl.Delete)
}
