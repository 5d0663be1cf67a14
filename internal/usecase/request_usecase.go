package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"gorm.io/datatypes"

	"hr-request-backend/internal/apperror"
	"hr-request-backend/internal/clock"
	"hr-request-backend/internal/metrics"
	"hr-request-backend/internal/model"
	"hr-request-backend/internal/repository"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500

	notifyTimeout = 10 * time.Second
)

// ReviewerNotifier is told about a stored submission. Failures are logged only.
type ReviewerNotifier interface {
	NotifyReviewer(ctx context.Context, reviewer model.Employee, req model.Request) error
}

// Policy holds the permission limits read from configuration.
type Policy struct {
	MaxPerMonth int
	MaxDuration time.Duration
	Window      clock.Window
}

// Actor is the caller identity resolved by the boundary.
type Actor struct {
	Empid string
	Role  string
}

func (a Actor) IsAdmin() bool { return a.Role == model.RoleAdmin }

type SubmitInput struct {
	Empid     string
	Kind      model.RequestKind
	TypeLabel string
	Reason    string
	From      time.Time
	To        time.Time
}

type Deps struct {
	Store    repository.Store
	Clock    clock.Clock
	Policy   Policy
	Notifier ReviewerNotifier
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

type RequestUsecase struct {
	store    repository.Store
	clock    clock.Clock
	loc      *time.Location
	calendar *clock.Calendar
	policy   Policy
	notifier ReviewerNotifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewRequestUsecase(d Deps) *RequestUsecase {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	loc := d.Clock.Location()
	return &RequestUsecase{
		store:    d.Store,
		clock:    d.Clock,
		loc:      loc,
		calendar: clock.NewCalendar(loc, d.Store.Repositories().Holidays),
		policy:   d.Policy,
		notifier: d.Notifier,
		logger:   logger.With(slog.String("component", "requests")),
		metrics:  d.Metrics,
	}
}

// ParseDecision accepts "approve"/"approved" and "reject"/"rejected".
func ParseDecision(s string) (model.RequestStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "approve", "approved":
		return model.StatusApproved, nil
	case "reject", "rejected":
		return model.StatusRejected, nil
	}
	return "", apperror.InvalidDecision(s)
}

// Submit validates and stores a new pending request. Rules are evaluated in a
// fixed order and the first failing one is returned.
func (u *RequestUsecase) Submit(ctx context.Context, in SubmitInput) (*model.Request, error) {
	req, emp, err := u.submit(ctx, in)
	u.metrics.ObserveSubmission(string(in.Kind), outcome(err))
	if err != nil {
		return nil, err
	}
	u.logger.InfoContext(ctx, "request submitted",
		slog.Uint64("id", uint64(req.ID)),
		slog.String("empid", req.Empid),
		slog.String("kind", string(req.Kind)))

	u.notifyReviewer(ctx, emp, *req)
	return req, nil
}

func (u *RequestUsecase) submit(ctx context.Context, in SubmitInput) (*model.Request, *model.Employee, error) {
	if !in.Kind.Valid() {
		return nil, nil, apperror.InvalidKind(string(in.Kind))
	}
	typeLabel := strings.TrimSpace(in.TypeLabel)
	reason := strings.TrimSpace(in.Reason)
	if typeLabel == "" {
		return nil, nil, apperror.MissingType()
	}
	if reason == "" {
		return nil, nil, apperror.MissingReason()
	}
	if !in.To.After(in.From) {
		return nil, nil, apperror.InvertedRange(in.From, in.To)
	}

	businessDays := 0
	switch in.Kind {
	case model.KindPermission:
		if !u.policy.Window.Contains(in.From, u.loc) {
			return nil, nil, apperror.OutsideWindow(clock.TimeOfDayOf(in.From, u.loc).String(), u.policy.Window.String())
		}
		if d := in.To.Sub(in.From); d > u.policy.MaxDuration {
			return nil, nil, apperror.DurationExceeded(d, u.policy.MaxDuration)
		}
	case model.KindLeave:
		days, err := u.calendar.WorkingDays(ctx, in.From, in.To)
		if err != nil {
			return nil, nil, apperror.Persistence(err)
		}
		if days == 0 {
			return nil, nil, apperror.NoWorkingDays(clock.FormatInterval(in.From, in.To, u.loc))
		}
		businessDays = days
	}

	var (
		created model.Request
		emp     *model.Employee
	)
	err := u.inTransaction(ctx, func(r repository.Repositories) error {
		// Lock first: every read below, the employee row included, must
		// happen after any other writer of the same empid has committed.
		if err := r.Locker.Lock(ctx, in.Empid); err != nil {
			return err
		}

		var err error
		emp, err = r.Employees.FindByEmpid(ctx, in.Empid)
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NotFound("employee", in.Empid)
		}
		if err != nil {
			return err
		}
		if !emp.Active {
			return apperror.InactiveEmployee(in.Empid)
		}

		if in.Kind == model.KindPermission {
			start, end := clock.MonthBounds(in.From, u.loc)
			count, err := r.Requests.CountActive(ctx, in.Empid, model.KindPermission, start, end)
			if err != nil {
				return err
			}
			if count >= int64(u.policy.MaxPerMonth) {
				return apperror.MonthlyQuotaExceeded(count, clock.MonthKey(in.From, u.loc))
			}
		}

		if err := u.checkOverlap(ctx, r, in.Empid, in.From, in.To, 0); err != nil {
			return err
		}

		created = model.Request{
			Empid:        in.Empid,
			Kind:         in.Kind,
			TypeLabel:    typeLabel,
			AppliedAt:    u.clock.Now(),
			FromTs:       in.From,
			ToTs:         in.To,
			Reason:       reason,
			Status:       model.StatusPending,
			BusinessDays: businessDays,
		}
		return r.Requests.Create(ctx, &created)
	})
	if err != nil {
		return nil, nil, err
	}
	return &created, emp, nil
}

func (u *RequestUsecase) checkOverlap(ctx context.Context, r repository.Repositories, empid string, from, to time.Time, excludeID uint) error {
	existing, err := r.Requests.FindOverlapping(ctx, empid, from, to, excludeID)
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		return nil
	}
	o := existing[0]
	return apperror.OverlappingRequest(o.ID, o.FromTs, o.ToTs, clock.FormatInterval(o.FromTs, o.ToTs, u.loc), string(o.Status))
}

func (u *RequestUsecase) notifyReviewer(ctx context.Context, emp *model.Employee, req model.Request) {
	if u.notifier == nil || emp == nil || emp.ReportsToEmpid == nil || *emp.ReportsToEmpid == "" {
		return
	}
	// The submission is already committed; a cancelled caller must not suppress the notice.
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	log := u.logger.With(slog.Uint64("id", uint64(req.ID)), slog.String("reviewer", *emp.ReportsToEmpid))
	reviewer, err := u.store.Repositories().Employees.FindByEmpid(nctx, *emp.ReportsToEmpid)
	if err != nil {
		log.WarnContext(ctx, "reviewer lookup failed", slog.String("error", err.Error()))
		return
	}
	if err := u.notifier.NotifyReviewer(nctx, *reviewer, req); err != nil {
		log.WarnContext(ctx, "reviewer notification failed", slog.String("error", err.Error()))
	}
}

// Decide moves a pending request to approved or rejected. Approval
// materializes the in/out punches in the same transaction.
func (u *RequestUsecase) Decide(ctx context.Context, id uint, actor Actor, decision string) (*model.Request, error) {
	status, err := ParseDecision(decision)
	if err != nil {
		u.metrics.ObserveDecision("invalid", outcome(err))
		return nil, err
	}
	req, err := u.decide(ctx, id, actor, status)
	u.metrics.ObserveDecision(string(status), outcome(err))
	if err != nil {
		return nil, err
	}
	u.logger.InfoContext(ctx, "request decided",
		slog.Uint64("id", uint64(req.ID)),
		slog.String("status", string(req.Status)),
		slog.String("decided_by", actor.Empid))
	return req, nil
}

func (u *RequestUsecase) decide(ctx context.Context, id uint, actor Actor, status model.RequestStatus) (*model.Request, error) {
	var decided model.Request
	err := u.inTransaction(ctx, func(r repository.Repositories) error {
		req, err := r.Requests.GetByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NotFound("request", id)
		}
		if err != nil {
			return err
		}
		// empid never changes, so the first read only names the lock.
		// Status and overlap are read again once it is held.
		if err := r.Locker.Lock(ctx, req.Empid); err != nil {
			return err
		}
		if req, err = r.Requests.GetByID(ctx, id); err != nil {
			return err
		}

		requester, err := r.Employees.FindByEmpid(ctx, req.Empid)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if !canDecide(actor, requester) {
			return apperror.Forbidden("only the requester's manager or an admin may decide")
		}

		if req.Status != model.StatusPending {
			return apperror.AlreadyDecided(req.ID, string(req.Status))
		}

		if status == model.StatusApproved {
			if err := u.checkOverlap(ctx, r, req.Empid, req.FromTs, req.ToTs, req.ID); err != nil {
				return err
			}
		}

		deciderName := ""
		if decider, err := r.Employees.FindByEmpid(ctx, actor.Empid); err == nil {
			deciderName = decider.Name
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		now := u.clock.Now()
		ok, err := r.Requests.Transition(ctx, req.ID, status, actor.Empid, deciderName, now)
		if err != nil {
			return err
		}
		if !ok {
			current, err := r.Requests.GetByID(ctx, req.ID)
			if err != nil {
				return err
			}
			return apperror.AlreadyDecided(current.ID, string(current.Status))
		}

		req.Status = status
		req.DecidedByEmpid = &actor.Empid
		req.DecidedByName = &deciderName
		req.DecidedAt = &now
		req.UpdatedAt = now

		if status == model.StatusApproved {
			nameSnapshot := ""
			if requester != nil {
				nameSnapshot = requester.Name
			}
			if err := r.Punches.CreateDerived(ctx, DerivePunches(*req, nameSnapshot, u.loc)); err != nil {
				return err
			}
		}
		decided = *req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &decided, nil
}

func canDecide(actor Actor, requester *model.Employee) bool {
	if actor.IsAdmin() {
		return true
	}
	return requester != nil && requester.ReportsToEmpid != nil && *requester.ReportsToEmpid == actor.Empid
}

// DerivePunches builds the in/out punches an approved request stands for.
func DerivePunches(req model.Request, nameSnapshot string, loc *time.Location) []model.AttendancePunch {
	status := model.PunchStatusPresent
	if req.Kind == model.KindLeave {
		status = model.PunchStatusOnLeave
	}
	id := req.ID
	return []model.AttendancePunch{
		{
			Empid:        req.Empid,
			NameSnapshot: nameSnapshot,
			Date:         civilDateColumn(req.FromTs, loc),
			PunchKind:    model.PunchIn,
			PunchTs:      req.FromTs,
			Status:       status,
			RequestID:    &id,
		},
		{
			Empid:        req.Empid,
			NameSnapshot: nameSnapshot,
			Date:         civilDateColumn(req.ToTs, loc),
			PunchKind:    model.PunchOut,
			PunchTs:      req.ToTs,
			Status:       status,
			RequestID:    &id,
		},
	}
}

// civilDateColumn pins the civil date at UTC midnight so drivers that convert
// to UTC before formatting do not shift it to the previous day.
func civilDateColumn(ts time.Time, loc *time.Location) datatypes.Date {
	d := clock.CivilDate(ts, loc)
	return datatypes.Date(time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC))
}

// ListForEmployee returns the caller's own requests, newest first.
func (u *RequestUsecase) ListForEmployee(ctx context.Context, empid string, status model.RequestStatus, limit int) ([]model.Request, error) {
	list, err := u.store.Repositories().Requests.List(ctx, repository.ListFilter{Empid: empid, Status: status}, clampLimit(limit))
	if err != nil {
		return nil, apperror.Persistence(err)
	}
	return list, nil
}

// ListAll returns every request for admins and direct reports' requests for
// managers. Staff may only use ListForEmployee.
func (u *RequestUsecase) ListAll(ctx context.Context, actor Actor, filter repository.ListFilter, limit int) ([]model.Request, error) {
	switch actor.Role {
	case model.RoleAdmin:
	case model.RoleManager:
		filter.ReportsToEmpid = actor.Empid
	default:
		return nil, apperror.Forbidden("listing other employees' requests requires manager or admin role")
	}
	list, err := u.store.Repositories().Requests.List(ctx, filter, clampLimit(limit))
	if err != nil {
		return nil, apperror.Persistence(err)
	}
	return list, nil
}

// Get returns one request visible to actor.
func (u *RequestUsecase) Get(ctx context.Context, actor Actor, id uint) (*model.Request, error) {
	repos := u.store.Repositories()
	req, err := repos.Requests.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NotFound("request", id)
	}
	if err != nil {
		return nil, apperror.Persistence(err)
	}
	if actor.IsAdmin() || req.Empid == actor.Empid {
		return req, nil
	}
	requester, err := repos.Employees.FindByEmpid(ctx, req.Empid)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.Persistence(err)
	}
	if !canDecide(actor, requester) {
		return nil, apperror.Forbidden("request belongs to another employee")
	}
	return req, nil
}

// Punches lists the attendance rows derived from a request.
func (u *RequestUsecase) Punches(ctx context.Context, actor Actor, id uint) ([]model.AttendancePunch, error) {
	if _, err := u.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	list, err := u.store.Repositories().Punches.GetByRequestID(ctx, id)
	if err != nil {
		return nil, apperror.Persistence(err)
	}
	return list, nil
}

// inTransaction runs fn once more when the first attempt lost a race on the
// per-empid path. Foreign errors come back as persistence errors.
func (u *RequestUsecase) inTransaction(ctx context.Context, fn func(repository.Repositories) error) error {
	err := u.store.WithinTransaction(ctx, fn)
	if err != nil && repository.IsRetryable(err) {
		u.metrics.ObserveRetry()
		u.logger.DebugContext(ctx, "retrying transaction", slog.String("error", err.Error()))
		err = u.store.WithinTransaction(ctx, fn)
	}
	if err == nil {
		return nil
	}
	if _, ok := apperror.As(err); ok {
		return err
	}
	return apperror.Persistence(err)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(apperror.CodeOf(err))
}
