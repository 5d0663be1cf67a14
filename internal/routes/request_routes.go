package routes

import (
	"hr-request-backend/internal/handler"

	"github.com/gofiber/fiber/v2"
)

func SetupRequestRoutes(app *fiber.App, hdl *handler.RequestHandler, auth fiber.Handler) {
	api := app.Group("/api/requests", auth)

	// Endpoint untuk pegawai
	api.Post("/permissions", hdl.SubmitPermission)
	api.Post("/leaves", hdl.SubmitLeave)
	api.Get("/mine", hdl.ListMine)
	api.Get("/summary", hdl.Summary)

	// Endpoint untuk atasan / admin (authority dicek di usecase)
	api.Get("/team", hdl.Team)
	api.Get("/", hdl.ListAll)
	api.Get("/:id", hdl.Get)
	api.Get("/:id/punches", hdl.Punches)
	api.Post("/:id/decision", hdl.Decide)
}
