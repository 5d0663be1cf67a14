package handler

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"hr-request-backend/internal/apperror"
	"hr-request-backend/internal/migration"
)

type SchemaRunner interface {
	Apply(ctx context.Context, steps []migration.Step) ([]migration.StepReport, error)
	Plan(ctx context.Context, steps []migration.Step) ([]migration.PlanEntry, error)
}

// SchemaHandler exposes the schema runner to admins. Steps come from a
// function so each call sees a fresh batch.
type SchemaHandler struct {
	runner SchemaRunner
	steps  func() []migration.Step
	logger *slog.Logger
}

func NewSchemaHandler(runner SchemaRunner, steps func() []migration.Step, logger *slog.Logger) *SchemaHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SchemaHandler{runner: runner, steps: steps, logger: logger}
}

func (h *SchemaHandler) Apply(c *fiber.Ctx) error {
	reports, err := h.runner.Apply(c.UserContext(), h.steps())
	if err != nil {
		return respondError(c, h.logger, apperror.Internal(err))
	}
	summary := map[migration.Outcome]int{
		migration.OutcomeApplied: 0,
		migration.OutcomeSkipped: 0,
		migration.OutcomeFailed:  0,
	}
	for _, r := range reports {
		summary[r.Outcome]++
	}
	return c.JSON(fiber.Map{"data": reports, "summary": summary})
}

func (h *SchemaHandler) Plan(c *fiber.Ctx) error {
	plan, err := h.runner.Plan(c.UserContext(), h.steps())
	if err != nil {
		return respondError(c, h.logger, apperror.Internal(err))
	}
	return c.JSON(fiber.Map{"data": plan})
}
