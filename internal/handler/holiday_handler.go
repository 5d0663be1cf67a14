package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"hr-request-backend/internal/apperror"
	"hr-request-backend/internal/clock"
	"hr-request-backend/internal/model"
	"hr-request-backend/internal/repository"
)

type HolidayHandler struct {
	repo     repository.HolidayRepository
	loc      *time.Location
	calendar *clock.Calendar
	logger   *slog.Logger
}

func NewHolidayHandler(repo repository.HolidayRepository, loc *time.Location, logger *slog.Logger) *HolidayHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = clock.IST
	}
	return &HolidayHandler{repo: repo, loc: loc, calendar: clock.NewCalendar(loc, repo), logger: logger}
}

type HolidayRequest struct {
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	Description string `json:"description" validate:"max=255"`
}

func (h *HolidayHandler) GetAll(c *fiber.Ctx) error {
	data, err := h.repo.GetAll(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, apperror.Persistence(err))
	}
	return c.JSON(fiber.Map{"data": data})
}

// Check answers ?date=2006-01-02: whether it is a listed holiday and whether
// it counts as a working day for leave.
func (h *HolidayHandler) Check(c *fiber.Ctx) error {
	date := c.Query("date")
	day, err := time.ParseInLocation(clock.DateLayout, date, h.loc)
	if err != nil {
		return respondError(c, h.logger, apperror.InvalidInput("date must look like 2026-01-26").With("date", date))
	}
	holiday, err := h.repo.IsHoliday(c.UserContext(), date)
	if err != nil {
		return respondError(c, h.logger, apperror.Persistence(err))
	}
	working, err := h.calendar.IsWorkingDay(c.UserContext(), day)
	if err != nil {
		return respondError(c, h.logger, apperror.Persistence(err))
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"date":        date,
		"holiday":     holiday,
		"weekend":     clock.IsWeekend(day),
		"working_day": working,
	}})
}

func (h *HolidayHandler) Create(c *fiber.Ctx) error {
	var req HolidayRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	libur := model.Holiday{Date: req.Date, Description: req.Description}
	if err := h.repo.Create(c.UserContext(), &libur); err != nil {
		return respondError(c, h.logger, h.storageError(err, req.Date))
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "holiday added", "data": libur})
}

func (h *HolidayHandler) Update(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	var req HolidayRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	libur, err := h.repo.GetByID(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, h.storageError(err, id))
	}

	libur.Date = req.Date
	libur.Description = req.Description

	if err := h.repo.Update(c.UserContext(), libur); err != nil {
		return respondError(c, h.logger, h.storageError(err, req.Date))
	}
	return c.JSON(fiber.Map{"message": "holiday updated", "data": libur})
}

func (h *HolidayHandler) Delete(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if err := h.repo.Delete(c.UserContext(), id); err != nil {
		return respondError(c, h.logger, h.storageError(err, id))
	}
	return c.JSON(fiber.Map{"message": "holiday deleted"})
}

func (h *HolidayHandler) storageError(err error, ref any) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperror.NotFound("holiday", ref)
	case repository.IsUniqueViolation(err):
		return apperror.Conflict("a holiday already exists on that date").With("date", ref)
	}
	return apperror.Persistence(err)
}
