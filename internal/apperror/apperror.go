// Package apperror carries the structured rejections surfaced to callers.
// Every error names the violated rule with a stable Code and cites the offending
// data in Details; Message is safe to show to an end user.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

type Kind string

const (
	KindValidation    Kind = "validation"
	KindAuthorization Kind = "authorization"
	KindConflict      Kind = "conflict"
	KindNotFound      Kind = "not_found"
	KindPersistence   Kind = "persistence"
	KindInternal      Kind = "internal"
)

type Code string

const (
	CodeMissingType          Code = "MISSING_TYPE"
	CodeMissingReason        Code = "MISSING_REASON"
	CodeInvertedRange        Code = "INVERTED_RANGE"
	CodeOutsideWindow        Code = "OUTSIDE_WINDOW"
	CodeDurationExceeded     Code = "DURATION_EXCEEDED"
	CodeMonthlyQuotaExceeded Code = "MONTHLY_QUOTA_EXCEEDED"
	CodeOverlappingRequest   Code = "OVERLAPPING_REQUEST"
	CodeInvalidKind          Code = "INVALID_KIND"
	CodeInactiveEmployee     Code = "INACTIVE_EMPLOYEE"
	CodeNoWorkingDays        Code = "NO_WORKING_DAYS"
	CodeInvalidInput         Code = "INVALID_INPUT"

	CodeNotFound        Code = "NOT_FOUND"
	CodeAlreadyDecided  Code = "ALREADY_DECIDED"
	CodeInvalidDecision Code = "INVALID_DECISION"
	CodeForbidden       Code = "FORBIDDEN"
	CodeConflict        Code = "CONFLICT"

	CodePersistence Code = "PERSISTENCE_ERROR"
	CodeInternal    Code = "INTERNAL_ERROR"
)

type Error struct {
	Code    Code
	Kind    Kind
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Code so callers can write errors.Is(err, apperror.New(CodeNotFound, ...)).
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

func New(kind Kind, code Code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func (e *Error) With(key string, value any) *Error {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

// As extracts an *Error from a chain.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// CodeOf returns the code of err, or CodeInternal for foreign errors.
func CodeOf(err error) Code {
	if e, ok := As(err); ok {
		return e.Code
	}
	return CodeInternal
}

func HasCode(err error, code Code) bool {
	e, ok := As(err)
	return ok && e.Code == code
}

func HTTPStatus(err error) int {
	e, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthorization:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindPersistence:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// PublicMessage hides the text of internal and foreign errors.
func PublicMessage(err error) string {
	e, ok := As(err)
	if !ok || e.Kind == KindInternal {
		return "internal error"
	}
	if e.Kind == KindPersistence {
		return "storage temporarily unavailable, retry later"
	}
	return e.Message
}

const stampLayout = time.RFC3339

func MissingType() *Error {
	return New(KindValidation, CodeMissingType, "type is required")
}

func MissingReason() *Error {
	return New(KindValidation, CodeMissingReason, "reason is required")
}

func InvertedRange(from, to time.Time) *Error {
	return New(KindValidation, CodeInvertedRange, "end must be after start").
		With("from_ts", from.Format(stampLayout)).
		With("to_ts", to.Format(stampLayout))
}

func OutsideWindow(startedAt, window string) *Error {
	return New(KindValidation, CodeOutsideWindow,
		fmt.Sprintf("permission must start between %s; requested start %s", window, startedAt)).
		With("start", startedAt).
		With("window", window)
}

func DurationExceeded(requested, limit time.Duration) *Error {
	return New(KindValidation, CodeDurationExceeded,
		fmt.Sprintf("permission lasts %s, longer than the %s limit", fmtDuration(requested), fmtDuration(limit))).
		With("duration_minutes", int(requested/time.Minute)).
		With("limit_minutes", int(limit/time.Minute))
}

func MonthlyQuotaExceeded(count int64, month string) *Error {
	return New(KindConflict, CodeMonthlyQuotaExceeded,
		fmt.Sprintf("already have %d permissions in %s", count, month)).
		With("count", count).
		With("month", month)
}

// OverlappingRequest cites the conflicting interval as interval (already
// rendered in civil time) plus machine-readable bounds.
func OverlappingRequest(id uint, from, to time.Time, interval, status string) *Error {
	return New(KindConflict, CodeOverlappingRequest,
		fmt.Sprintf("overlaps %s, status %s", interval, status)).
		With("existing_id", id).
		With("existing_from", from.Format(stampLayout)).
		With("existing_to", to.Format(stampLayout)).
		With("existing_status", status)
}

func InvalidKind(kind string) *Error {
	return New(KindValidation, CodeInvalidKind, fmt.Sprintf("unknown request kind %q", kind)).With("kind", kind)
}

func InactiveEmployee(empid string) *Error {
	return New(KindValidation, CodeInactiveEmployee, fmt.Sprintf("employee %s is not active", empid)).With("empid", empid)
}

func NoWorkingDays(interval string) *Error {
	return New(KindValidation, CodeNoWorkingDays,
		fmt.Sprintf("leave %s contains no working day", interval)).With("interval", interval)
}

func InvalidInput(msg string) *Error {
	return New(KindValidation, CodeInvalidInput, msg)
}

func NotFound(what string, id any) *Error {
	return New(KindNotFound, CodeNotFound, fmt.Sprintf("%s %v not found", what, id)).
		With("resource", what).
		With("id", id)
}

func AlreadyDecided(id uint, status string) *Error {
	return New(KindConflict, CodeAlreadyDecided,
		fmt.Sprintf("request %d is already %s", id, status)).
		With("id", id).
		With("status", status)
}

func InvalidDecision(value string) *Error {
	return New(KindValidation, CodeInvalidDecision,
		fmt.Sprintf("decision %q must be approved or rejected", value)).With("decision", value)
}

func Forbidden(msg string) *Error {
	return New(KindAuthorization, CodeForbidden, msg)
}

// Conflict is a uniqueness clash outside the request rules, e.g. a duplicate holiday.
func Conflict(msg string) *Error {
	return New(KindConflict, CodeConflict, msg)
}

func Persistence(err error) *Error {
	e := New(KindPersistence, CodePersistence, "storage failure")
	e.Err = err
	return e
}

func Internal(err error) *Error {
	e := New(KindInternal, CodeInternal, "internal error")
	e.Err = err
	return e
}

func fmtDuration(d time.Duration) string {
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh%02dm", h, m)
}
