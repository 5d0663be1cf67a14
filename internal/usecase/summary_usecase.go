package usecase

import (
	"context"
	"time"

	"hr-request-backend/internal/apperror"
	"hr-request-backend/internal/clock"
	"hr-request-backend/internal/model"
	"hr-request-backend/internal/repository"
)

const (
	ScopeSelf = "self"
	ScopeTeam = "team"
	ScopeAll  = "all"
)

// MonthSummary is the dashboard view of one civil month.
type MonthSummary struct {
	Month     string                                              `json:"month"`
	Scope     string                                              `json:"scope"`
	Employees int64                                               `json:"employees,omitempty"`
	Requests  map[model.RequestKind]map[model.RequestStatus]int64 `json:"requests"`
	// PermissionsLeft is set for the self scope only.
	PermissionsLeft *int `json:"permissions_left,omitempty"`
}

// Summary counts requests whose start falls in the civil month of month,
// scoped like ListAll: everything for admins, direct reports for managers and
// the caller's own requests otherwise. A zero month means the current one.
func (u *RequestUsecase) Summary(ctx context.Context, actor Actor, month time.Time) (*MonthSummary, error) {
	if month.IsZero() {
		month = u.clock.Now()
	}
	from, to := clock.MonthBounds(month, u.loc)

	sum := &MonthSummary{Month: clock.MonthKey(month, u.loc), Requests: map[model.RequestKind]map[model.RequestStatus]int64{}}
	for _, k := range []model.RequestKind{model.KindPermission, model.KindLeave} {
		sum.Requests[k] = map[model.RequestStatus]int64{
			model.StatusPending:  0,
			model.StatusApproved: 0,
			model.StatusRejected: 0,
		}
	}

	var filter repository.ListFilter
	switch actor.Role {
	case model.RoleAdmin:
		sum.Scope = ScopeAll
	case model.RoleManager:
		sum.Scope = ScopeTeam
		filter.ReportsToEmpid = actor.Empid
	default:
		sum.Scope = ScopeSelf
		filter.Empid = actor.Empid
	}

	dash := u.store.Repositories().Dashboard
	rows, err := dash.RequestStats(ctx, filter, from, to)
	if err != nil {
		return nil, apperror.Persistence(err)
	}
	for _, r := range rows {
		if sum.Requests[r.Kind] == nil {
			sum.Requests[r.Kind] = map[model.RequestStatus]int64{}
		}
		sum.Requests[r.Kind][r.Status] += r.Count
	}

	if sum.Scope == ScopeSelf {
		perm := sum.Requests[model.KindPermission]
		left := u.policy.MaxPerMonth - int(perm[model.StatusPending]+perm[model.StatusApproved])
		if left < 0 {
			left = 0
		}
		sum.PermissionsLeft = &left
		return sum, nil
	}

	sum.Employees, err = dash.CountActiveEmployees(ctx, filter.ReportsToEmpid)
	if err != nil {
		return nil, apperror.Persistence(err)
	}
	return sum, nil
}

// Team lists the direct reports of a manager or admin.
func (u *RequestUsecase) Team(ctx context.Context, actor Actor) ([]model.Employee, error) {
	if actor.Role != model.RoleManager && !actor.IsAdmin() {
		return nil, apperror.Forbidden("only managers have a team")
	}
	list, err := u.store.Repositories().Employees.GetByReportsTo(ctx, actor.Empid)
	if err != nil {
		return nil, apperror.Persistence(err)
	}
	return list, nil
}
