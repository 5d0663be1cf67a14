package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"hr-request-backend/internal/apperror"
	"hr-request-backend/internal/clock"
	"hr-request-backend/internal/model"
	"hr-request-backend/internal/repository"
	"hr-request-backend/internal/usecase"
)

// RequestService is the part of usecase.RequestUsecase the HTTP layer uses.
type RequestService interface {
	Submit(ctx context.Context, in usecase.SubmitInput) (*model.Request, error)
	Decide(ctx context.Context, id uint, actor usecase.Actor, decision string) (*model.Request, error)
	ListForEmployee(ctx context.Context, empid string, status model.RequestStatus, limit int) ([]model.Request, error)
	ListAll(ctx context.Context, actor usecase.Actor, filter repository.ListFilter, limit int) ([]model.Request, error)
	Get(ctx context.Context, actor usecase.Actor, id uint) (*model.Request, error)
	Punches(ctx context.Context, actor usecase.Actor, id uint) ([]model.AttendancePunch, error)
	Summary(ctx context.Context, actor usecase.Actor, month time.Time) (*usecase.MonthSummary, error)
	Team(ctx context.Context, actor usecase.Actor) ([]model.Employee, error)
}

type RequestHandler struct {
	svc    RequestService
	loc    *time.Location
	logger *slog.Logger
}

func NewRequestHandler(svc RequestService, loc *time.Location, logger *slog.Logger) *RequestHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RequestHandler{svc: svc, loc: loc, logger: logger}
}

// SubmitRequest is the body of both submit endpoints. Empty type_label and
// reason are left to the core so they get their own error codes.
type SubmitRequest struct {
	TypeLabel string `json:"type_label" validate:"max=100"`
	FromTs    string `json:"from_ts" validate:"required"`
	ToTs      string `json:"to_ts" validate:"required"`
	Reason    string `json:"reason" validate:"max=2000"`
}

// DecisionRequest carries the raw decision; an empty or unknown value is
// rejected by the core as INVALID_DECISION.
type DecisionRequest struct {
	Decision string `json:"decision"`
}

func (h *RequestHandler) SubmitPermission(c *fiber.Ctx) error {
	return h.submit(c, model.KindPermission)
}

func (h *RequestHandler) SubmitLeave(c *fiber.Ctx) error {
	return h.submit(c, model.KindLeave)
}

func (h *RequestHandler) submit(c *fiber.Ctx, kind model.RequestKind) error {
	var body SubmitRequest
	if err := bindJSON(c, &body); err != nil {
		return respondError(c, h.logger, err)
	}
	from, err := parseTimestamp("from_ts", body.FromTs, h.loc, false)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	to, err := parseTimestamp("to_ts", body.ToTs, h.loc, true)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	req, err := h.svc.Submit(c.UserContext(), usecase.SubmitInput{
		Empid:     actorFrom(c).Empid,
		Kind:      kind,
		TypeLabel: body.TypeLabel,
		Reason:    body.Reason,
		From:      from,
		To:        to,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "request submitted", "data": req})
}

func (h *RequestHandler) Decide(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	var body DecisionRequest
	if err := bindJSON(c, &body); err != nil {
		return respondError(c, h.logger, err)
	}
	req, err := h.svc.Decide(c.UserContext(), id, actorFrom(c), body.Decision)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"message": "request " + string(req.Status), "data": req})
}

func (h *RequestHandler) ListMine(c *fiber.Ctx) error {
	status, err := queryStatus(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	limit, err := queryLimit(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	list, err := h.svc.ListForEmployee(c.UserContext(), actorFrom(c).Empid, status, limit)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"data": list})
}

func (h *RequestHandler) ListAll(c *fiber.Ctx) error {
	status, err := queryStatus(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	limit, err := queryLimit(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	filter := repository.ListFilter{Empid: c.Query("empid"), Status: status}
	if k := c.Query("kind"); k != "" {
		filter.Kind = model.RequestKind(k)
		if !filter.Kind.Valid() {
			return respondError(c, h.logger, apperror.InvalidKind(k))
		}
	}
	list, err := h.svc.ListAll(c.UserContext(), actorFrom(c), filter, limit)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"data": list})
}

func (h *RequestHandler) Get(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	req, err := h.svc.Get(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"data": req})
}

func (h *RequestHandler) Punches(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	list, err := h.svc.Punches(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"data": list})
}

// Summary serves ?month=2006-01; without it the current month is used.
func (h *RequestHandler) Summary(c *fiber.Ctx) error {
	var month time.Time
	if m := c.Query("month"); m != "" {
		t, err := time.ParseInLocation(clock.MonthLayout, m, h.loc)
		if err != nil {
			return respondError(c, h.logger, apperror.InvalidInput("month must look like 2026-01").With("month", m))
		}
		month = t
	}
	sum, err := h.svc.Summary(c.UserContext(), actorFrom(c), month)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"data": sum})
}

func (h *RequestHandler) Team(c *fiber.Ctx) error {
	list, err := h.svc.Team(c.UserContext(), actorFrom(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"data": list})
}

func queryStatus(c *fiber.Ctx) (model.RequestStatus, error) {
	s := model.RequestStatus(c.Query("status"))
	if s != "" && !s.Valid() {
		return "", apperror.InvalidInput("status must be pending, approved or rejected").With("status", string(s))
	}
	return s, nil
}
