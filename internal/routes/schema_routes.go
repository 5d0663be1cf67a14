package routes

import (
	"hr-request-backend/internal/handler"
	"hr-request-backend/internal/middleware"
	"hr-request-backend/internal/model"

	"github.com/gofiber/fiber/v2"
)

func SetupSchemaRoutes(app *fiber.App, hdl *handler.SchemaHandler, auth fiber.Handler) {
	api := app.Group("/api/admin/schema", auth, middleware.Role(model.RoleAdmin))

	api.Get("/plan", hdl.Plan)
	api.Post("/apply", hdl.Apply)
}
