package handler

import (
	"errors"
	"log/slog"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"hr-request-backend/internal/apperror"
	"hr-request-backend/internal/middleware"
	"hr-request-backend/internal/usecase"
)

var validate = newValidator()

// newValidator reports fields by their json names so error details match the
// request body keys.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// respondError writes {"error", "code", "details"}. Internal and storage
// failures are logged here and reach the client only as a generic message.
func respondError(c *fiber.Ctx, logger *slog.Logger, err error) error {
	status := apperror.HTTPStatus(err)
	body := fiber.Map{
		"error": apperror.PublicMessage(err),
		"code":  apperror.CodeOf(err),
	}
	if e, ok := apperror.As(err); ok && status < fiber.StatusInternalServerError && len(e.Details) > 0 {
		body["details"] = e.Details
	}
	if status >= fiber.StatusInternalServerError {
		logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Any("request_id", c.Locals("requestid")),
			slog.String("error", err.Error()))
	}
	return c.Status(status).JSON(body)
}

// bindJSON parses the body and runs the struct tags through the validator.
func bindJSON(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return apperror.InvalidInput("malformed JSON body")
	}
	if err := validate.Struct(dst); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			return apperror.InvalidInput("invalid input")
		}
		e := apperror.InvalidInput("validation failed")
		for _, fe := range ve {
			e.With(fe.Field(), fe.Tag())
		}
		return e
	}
	return nil
}

func actorFrom(c *fiber.Ctx) usecase.Actor {
	empid, _ := c.Locals(middleware.LocalEmpid).(string)
	role, _ := c.Locals(middleware.LocalRole).(string)
	return usecase.Actor{Empid: empid, Role: role}
}

func paramID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperror.InvalidInput("id must be a positive integer").With("id", c.Params("id"))
	}
	return uint(id), nil
}

func queryLimit(c *fiber.Ctx) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperror.InvalidInput("limit must be a non-negative integer").With("limit", raw)
	}
	return n, nil
}

// offsetLayouts carry a zone; time.RFC3339Nano also accepts whole seconds.
var offsetLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04Z07:00",
}

var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

const dateLayout = "2006-01-02"

// parseTimestamp reads ISO-8601 with an offset, seconds optional. Values without an offset are
// wall-clock times in loc. A bare date means the start of that civil day, or
// for an end bound the start of the next one, so an inclusive end date
// becomes a half-open bound.
func parseTimestamp(field, s string, loc *time.Location, end bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range offsetLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	if d, err := time.ParseInLocation(dateLayout, s, loc); err == nil {
		if end {
			d = d.AddDate(0, 0, 1)
		}
		return d, nil
	}
	return time.Time{}, apperror.InvalidInput(field + " must be an ISO-8601 timestamp").With(field, s)
}
